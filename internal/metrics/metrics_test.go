package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sheetsync/internal/record"
	"sheetsync/internal/store"
)

func TestCollector_ObserveMutation(t *testing.T) {
	c := NewCollector()
	c.ObserveMutation("orders", store.OpCreate, store.StatusSuccess)
	c.ObserveMutation("orders", store.OpCreate, store.StatusSuccess)
	c.ObserveMutation("orders", store.OpDelete, store.StatusRolledBack)

	if got := testutil.ToFloat64(c.Mutations.WithLabelValues("orders", "create", "success")); got != 2 {
		t.Errorf("create/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Mutations.WithLabelValues("orders", "delete", "rolled_back")); got != 1 {
		t.Errorf("delete/rolled_back = %v, want 1", got)
	}
}

func TestCollector_ObserveCollectionSize(t *testing.T) {
	c := NewCollector()
	c.ObserveCollectionSize("athletes", 12)
	c.ObserveCollectionSize("athletes", 11)
	if got := testutil.ToFloat64(c.Records.WithLabelValues("athletes")); got != 11 {
		t.Errorf("collection_records = %v, want 11", got)
	}
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("orders", "getOrders", 120*time.Millisecond, nil)
	c.ObserveRequest("orders", "createOrder", time.Second, &record.ApplicationError{Op: "createOrder", Message: "sheet locked"})
	c.ObserveRequest("orders", "createOrder", time.Second, &record.ConnectionError{Op: "createOrder", Err: errors.New("timeout")})

	if n := testutil.CollectAndCount(c.RequestDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
	if got := testutil.ToFloat64(c.RequestErrors.WithLabelValues("orders", "createOrder", "application")); got != 1 {
		t.Errorf("application errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.RequestErrors.WithLabelValues("orders", "createOrder", "connection")); got != 1 {
		t.Errorf("connection errors = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveMutation("athletes", store.OpUpdate, store.StatusSuccess)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	want := `sheetsync_mutations_total{kind="athletes",op="update",status="success"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q:\n%s", want, body)
	}
}

func TestCollector_Lint(t *testing.T) {
	c := NewCollector()
	c.ObserveMutation("orders", store.OpCreate, store.StatusSuccess)
	problems, err := testutil.GatherAndLint(c.Registry())
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint: %s: %s", p.Metric, p.Text)
	}
}
