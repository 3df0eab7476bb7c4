package store_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"sheetsync/internal/record"
	"sheetsync/internal/remote"
	"sheetsync/internal/store"
	"sheetsync/internal/testutil"
)

// fixedIDs hands out the given temporary ids in order.
type fixedIDs struct {
	ids []string
}

func (f *fixedIDs) New() string {
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id
}

type memJournal struct {
	mu      sync.Mutex
	entries []store.Mutation
	nextID  int64
}

func (j *memJournal) BeginMutation(m *store.Mutation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextID++
	m.ID = j.nextID
	return nil
}

func (j *memJournal) FinishMutation(m *store.Mutation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, *m)
	return nil
}

func (j *memJournal) ListMutations(limit int) ([]*store.Mutation, error) {
	return nil, nil
}

func setup(t *testing.T, kind record.Kind, opts store.Options) (*store.Store, *testutil.FakeSheet) {
	t.Helper()
	sheet := testutil.NewFakeSheet(t, kind)
	client, err := remote.NewClient(sheet.URL(), kind)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	s := store.NewStore(client, nil, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), opts)
	return s, sheet
}

func athlete(id, first string) map[string]any {
	return map[string]any{"id": id, "firstName": first, "lastName": "Smith", "level": "U12", "number": "7", "photoUrl": "https://example.com/p.jpg"}
}

func TestStore_Refresh(t *testing.T) {
	t.Run("loads collection", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"), athlete("A2", "Bob"))

		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if !s.Loaded() {
			t.Error("Loaded() = false after Refresh")
		}
		if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, []string{"A1", "A2"}) {
			t.Errorf("ids = %v, want [A1 A2]", got)
		}
	})

	t.Run("keeps collection on failure", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"))
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}

		sheet.RespondNext("getAthletes", 502, "bad gateway")
		err := s.Refresh(context.Background())
		if !record.IsConnection(err) {
			t.Fatalf("Refresh() error = %v, want connection error", err)
		}
		if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, []string{"A1"}) {
			t.Errorf("ids = %v, want [A1]", got)
		}
	})

	t.Run("drops duplicate ids", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"), athlete(" A1", "Alice again"))

		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if n := len(s.Snapshot()); n != 1 {
			t.Errorf("len = %d, want 1", n)
		}
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("rolls back on remote failure", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"))
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		before := s.Snapshot()

		sheet.FailNext("updateAthlete", "row locked")
		_, err := s.Update(context.Background(), "A1", record.Fields{"firstName": "Alicia"})

		var ae *record.ApplicationError
		if !errors.As(err, &ae) {
			t.Fatalf("Update() error = %v, want *ApplicationError", err)
		}
		after := s.Snapshot()
		if !reflect.DeepEqual(before, after) {
			t.Errorf("after rollback = %v, want %v", after, before)
		}
		if got := after[0].Get("firstName"); got != "Alice" {
			t.Errorf("firstName = %q, want Alice", got)
		}
		if len(s.InFlight()) != 0 {
			t.Errorf("InFlight() = %v, want empty", s.InFlight())
		}
	})

	t.Run("merges only supplied fields", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"))
		s.Refresh(context.Background())

		got, err := s.Update(context.Background(), " A1 ", record.Fields{"level": "U14"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Get("level") != "U14" || got.Get("firstName") != "Alice" {
			t.Errorf("Update() = %v", got.Fields)
		}

		reqs := sheet.RequestsFor("updateAthlete")
		if len(reqs) != 1 || reqs[0].ID != "A1" {
			t.Fatalf("updateAthlete requests = %+v", reqs)
		}
		if rows := sheet.Rows(); rows[0]["level"] != "U14" {
			t.Errorf("remote level = %v, want U14", rows[0]["level"])
		}
	})

	t.Run("unknown id makes no remote call", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		s.Refresh(context.Background())

		_, err := s.Update(context.Background(), "missing", record.Fields{"level": "U14"})
		if !errors.Is(err, record.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
		if n := len(sheet.RequestsFor("updateAthlete")); n != 0 {
			t.Errorf("got %d update requests, want 0", n)
		}
	})

	t.Run("blanking a required field is rejected locally", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"))
		s.Refresh(context.Background())

		_, err := s.Update(context.Background(), "A1", record.Fields{"firstName": " "})
		if !record.IsValidation(err) {
			t.Errorf("Update() error = %v, want validation error", err)
		}
		if n := len(sheet.RequestsFor("updateAthlete")); n != 0 {
			t.Errorf("got %d update requests, want 0", n)
		}
	})
}

func TestStore_Create(t *testing.T) {
	t.Run("provisional id is replaced by server id", func(t *testing.T) {
		sheet := testutil.NewFakeSheet(t, record.Orders)
		sheet.SetNextID(77)
		client, _ := remote.NewClient(sheet.URL(), record.Orders)
		s := store.NewStore(client, nil, store.NewNopLogger(), testutil.FixedClock(),
			&fixedIDs{ids: []string{"temp-123"}}, store.Options{NewestFirst: true})

		fields := record.Fields{"recipientName": "Bob", "phone": "0812345678", "details": "roses",
			"address": "Bangkok", "deliveryTime": "2024-02-14T09:00", "photoUrl": "https://example.com/r.jpg"}
		got, err := s.Create(context.Background(), fields)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if got.ID != "R77" {
			t.Errorf("ID = %q, want R77", got.ID)
		}

		coll := s.Snapshot()
		if len(coll) != 1 {
			t.Fatalf("len = %d, want 1", len(coll))
		}
		if coll[0].ID != "R77" || coll[0].Get("recipientName") != "Bob" {
			t.Errorf("record = %+v", coll[0])
		}
		if coll.IndexOf("temp-123") >= 0 {
			t.Error("temporary id still present")
		}
		if coll[0].CreatedAt == nil || !coll[0].CreatedAt.Equal(testutil.FixedClock().Now()) {
			t.Errorf("CreatedAt = %v", coll[0].CreatedAt)
		}
	})

	t.Run("rolls back on connection failure", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{NewestFirst: true})
		sheet.Seed(athlete("A1", "Alice"))
		s.Refresh(context.Background())
		before := s.Snapshot()

		sheet.RespondNext("registerAthlete", 500, "boom")
		fields := record.Fields{"firstName": "Bob", "lastName": "B", "level": "U10", "number": "9", "photoUrl": "x"}
		_, err := s.Create(context.Background(), fields)
		if !record.IsConnection(err) {
			t.Fatalf("Create() error = %v, want connection error", err)
		}
		if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Errorf("after rollback = %v, want %v", after, before)
		}
	})

	t.Run("validation failure makes no remote call", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		_, err := s.Create(context.Background(), record.Fields{"firstName": "Bob"})
		if !record.IsValidation(err) {
			t.Fatalf("Create() error = %v, want validation error", err)
		}
		if n := len(sheet.Requests()); n != 0 {
			t.Errorf("got %d requests, want 0", n)
		}
	})

	t.Run("reconcile refetches after success", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{Reconcile: true, NewestFirst: true})
		sheet.Seed(athlete("A1", "Alice"))
		s.Refresh(context.Background())

		fields := record.Fields{"firstName": "Bob", "lastName": "B", "level": "U10", "number": "9", "photoUrl": "x"}
		if _, err := s.Create(context.Background(), fields); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if n := len(sheet.RequestsFor("getAthletes")); n != 2 {
			t.Errorf("got %d list requests, want 2", n)
		}
		if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, []string{"R1", "A1"}) {
			t.Errorf("ids = %v, want [R1 A1]", got)
		}
	})

	t.Run("failed reconcile does not fail the create", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{Reconcile: true})
		sheet.RespondNext("getAthletes", 500, "down")

		fields := record.Fields{"firstName": "Bob", "lastName": "B", "level": "U10", "number": "9", "photoUrl": "x"}
		got, err := s.Create(context.Background(), fields)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, ok := s.Get(got.ID); !ok {
			t.Errorf("created record %s missing from collection", got.ID)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes record", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"), athlete("A2", "Bob"))
		s.Refresh(context.Background())

		if err := s.Delete(context.Background(), "A1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, []string{"A2"}) {
			t.Errorf("ids = %v, want [A2]", got)
		}
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		s, sheet := setup(t, record.Athletes, store.Options{})
		sheet.Seed(athlete("A1", "Alice"), athlete("A2", "Bob"))
		s.Refresh(context.Background())
		before := s.Snapshot()

		sheet.FailNext("deleteAthlete", "")
		err := s.Delete(context.Background(), "A1")
		if !record.IsApplication(err) {
			t.Fatalf("Delete() error = %v, want application error", err)
		}
		if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Errorf("after rollback = %v, want %v", after, before)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		s, _ := setup(t, record.Athletes, store.Options{})
		if err := s.Delete(context.Background(), "nope"); !errors.Is(err, record.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})
}

// blockingRemote lets a test observe the local state while a call is in flight.
type blockingRemote struct {
	kind    record.Kind
	started chan string
	release chan remote.Result

	mu   sync.Mutex
	rows record.Collection // List result when set
}

func (b *blockingRemote) Kind() record.Kind { return b.kind }
func (b *blockingRemote) List(context.Context) (record.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rows != nil {
		return b.rows.Clone(), nil
	}
	return record.Collection{{ID: "A1", Fields: record.Fields{"firstName": "Alice"}}}, nil
}

func (b *blockingRemote) setRows(rows record.Collection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = rows
}
func (b *blockingRemote) Create(_ context.Context, _ record.Fields) remote.Result {
	b.started <- "create"
	return <-b.release
}
func (b *blockingRemote) Update(_ context.Context, id string, _ record.Fields) remote.Result {
	b.started <- "update " + id
	return <-b.release
}
func (b *blockingRemote) Delete(_ context.Context, id string) remote.Result {
	b.started <- "delete " + id
	return <-b.release
}

func TestStore_OptimisticStateIsVisibleWhileInFlight(t *testing.T) {
	br := &blockingRemote{kind: record.Athletes, started: make(chan string), release: make(chan remote.Result)}
	s := store.NewStore(br, nil, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), store.Options{})
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	done := make(chan error)
	go func() {
		_, err := s.Update(context.Background(), "A1", record.Fields{"firstName": "Alicia"})
		done <- err
	}()

	<-br.started
	if r, _ := s.Get("A1"); r.Get("firstName") != "Alicia" {
		t.Errorf("in-flight firstName = %q, want Alicia", r.Get("firstName"))
	}
	if got := s.InFlight(); !reflect.DeepEqual(got, []string{"A1"}) {
		t.Errorf("InFlight() = %v, want [A1]", got)
	}

	br.release <- remote.Result{Err: &record.ApplicationError{Op: "updateAthlete"}}
	if err := <-done; err == nil {
		t.Fatal("Update() expected error")
	}
	if r, _ := s.Get("A1"); r.Get("firstName") != "Alice" {
		t.Errorf("after rollback firstName = %q, want Alice", r.Get("firstName"))
	}
}

func TestStore_CreateConfirmedAfterRefresh(t *testing.T) {
	fields := record.Fields{"firstName": "Bob", "lastName": "Smith", "level": "U12", "number": "9", "photoUrl": "https://example.com/b.jpg"}

	tests := []struct {
		name        string
		newestFirst bool
		listed      record.Collection // what the mid-create refresh returns
		want        []string
	}{
		{
			name: "row not yet listed",
			want: []string{"A1", "R77"},
		},
		{
			name:        "row not yet listed newest first",
			newestFirst: true,
			want:        []string{"R77", "A1"},
		},
		{
			name: "row already listed",
			listed: record.Collection{
				{ID: "A1", Fields: record.Fields{"firstName": "Alice"}},
				{ID: "R77", Fields: record.Fields{"firstName": "Bob"}},
			},
			want: []string{"A1", "R77"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := &blockingRemote{kind: record.Athletes, started: make(chan string), release: make(chan remote.Result)}
			s := store.NewStore(br, nil, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(),
				store.Options{NewestFirst: tt.newestFirst})
			if err := s.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			done := make(chan error)
			go func() {
				_, err := s.Create(context.Background(), fields)
				done <- err
			}()
			<-br.started

			br.setRows(tt.listed)
			if err := s.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh() during create error = %v", err)
			}
			br.release <- remote.Result{ID: "R77"}
			if err := <-done; err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			r, ok := s.Get("R77")
			if !ok || r.Get("firstName") != "Bob" || r.CreatedAt == nil {
				t.Errorf("Get(R77) = %+v, %v", r, ok)
			}
			if got := s.InFlight(); len(got) != 0 {
				t.Errorf("InFlight() = %v, want none", got)
			}
		})
	}
}

// gatedRemote blocks List until gate is closed and honours the ctx it is given.
type gatedRemote struct {
	blockingRemote
	listed chan struct{}
	gate   chan struct{}
}

func (g *gatedRemote) List(ctx context.Context) (record.Collection, error) {
	g.listed <- struct{}{}
	<-g.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.blockingRemote.List(ctx)
}

func TestStore_RefreshSharedAcrossCancellation(t *testing.T) {
	gr := &gatedRemote{
		blockingRemote: blockingRemote{kind: record.Athletes},
		listed:         make(chan struct{}, 2),
		gate:           make(chan struct{}),
	}
	s := store.NewStore(gr, nil, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), store.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error)
	go func() { first <- s.Refresh(ctx) }()
	<-gr.listed

	second := make(chan error)
	go func() { second <- s.Refresh(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Refresh() error = %v, want context.Canceled", err)
	}

	close(gr.gate)
	if err := <-second; err != nil {
		t.Fatalf("waiting Refresh() error = %v", err)
	}
	if !s.Loaded() {
		t.Error("Loaded() = false after shared refresh")
	}
	if got := s.Snapshot().IDs(); !reflect.DeepEqual(got, []string{"A1"}) {
		t.Errorf("ids = %v, want [A1]", got)
	}
}

type concurrencyRemote struct {
	blockingRemote
	mu        sync.Mutex
	active    int
	maxActive int
}

func (c *concurrencyRemote) Update(_ context.Context, id string, _ record.Fields) remote.Result {
	c.mu.Lock()
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return remote.Result{}
}

func TestStore_SerializePerRecord(t *testing.T) {
	cr := &concurrencyRemote{blockingRemote: blockingRemote{kind: record.Athletes}}
	s := store.NewStore(cr, nil, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(),
		store.Options{SerializePerRecord: true})
	s.Refresh(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update(context.Background(), "A1", record.Fields{"level": fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	if cr.maxActive != 1 {
		t.Errorf("max concurrent updates for one id = %d, want 1", cr.maxActive)
	}
}

func TestStore_Journal(t *testing.T) {
	sheet := testutil.NewFakeSheet(t, record.Athletes)
	sheet.Seed(athlete("A1", "Alice"))
	client, _ := remote.NewClient(sheet.URL(), record.Athletes)
	j := &memJournal{}
	s := store.NewStore(client, j, store.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), store.Options{})
	s.Refresh(context.Background())

	s.Update(context.Background(), "A1", record.Fields{"level": "U14"})
	sheet.FailNext("deleteAthlete", "locked")
	s.Delete(context.Background(), "A1")

	if len(j.entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(j.entries))
	}
	if e := j.entries[0]; e.Op != store.OpUpdate || e.Status != store.StatusSuccess || e.RecordID != "A1" {
		t.Errorf("entry 0 = %+v", e)
	}
	if e := j.entries[1]; e.Op != store.OpDelete || e.Status != store.StatusRolledBack || e.Error == "" {
		t.Errorf("entry 1 = %+v", e)
	}
	if j.entries[1].FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestStore_IDsStayUnique(t *testing.T) {
	s, sheet := setup(t, record.Athletes, store.Options{NewestFirst: true})
	sheet.Seed(athlete("A1", "Alice"), athlete("A2", "Bob"))
	s.Refresh(context.Background())

	rng := rand.New(rand.NewSource(1))
	fields := record.Fields{"firstName": "N", "lastName": "N", "level": "U10", "number": "1", "photoUrl": "x"}

	for step := 0; step < 60; step++ {
		if rng.Intn(3) == 0 {
			for _, action := range []string{"registerAthlete", "updateAthlete", "deleteAthlete"} {
				sheet.FailNext(action, "random failure")
			}
		}
		ids := s.Snapshot().IDs()
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			s.Create(context.Background(), fields)
		case op == 1:
			s.Update(context.Background(), ids[rng.Intn(len(ids))], record.Fields{"level": "U12"})
		case op == 2:
			s.Delete(context.Background(), ids[rng.Intn(len(ids))])
		default:
			s.Refresh(context.Background())
		}

		seen := map[string]bool{}
		for _, id := range s.Snapshot().IDs() {
			if seen[id] {
				t.Fatalf("step %d: duplicate id %s", step, id)
			}
			seen[id] = true
		}
	}
}
