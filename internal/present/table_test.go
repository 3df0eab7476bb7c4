package present

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"sheetsync/internal/record"
)

func TestRenderTable(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderTable(&buf, record.Orders, nil, TableOptions{}); err != nil {
			t.Fatalf("RenderTable() error = %v", err)
		}
		if got := buf.String(); got != "No orders found.\n" {
			t.Errorf("RenderTable() = %q", got)
		}
	})

	t.Run("marks selection and pending rows", func(t *testing.T) {
		var buf bytes.Buffer
		opts := TableOptions{Selection: NewSelection("R2"), InFlight: []string{"R1"}}
		if err := RenderTable(&buf, record.Orders, orders(), opts); err != nil {
			t.Fatalf("RenderTable() error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[0], "[ ]") || !strings.Contains(lines[0], "RECIPIENT") {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.Contains(lines[1], "R1 *") || !strings.HasPrefix(lines[1], "[ ]") {
			t.Errorf("row 1 = %q", lines[1])
		}
		if !strings.HasPrefix(lines[2], "[x]") {
			t.Errorf("row 2 = %q", lines[2])
		}
	})

	t.Run("checks header when every row is selected", func(t *testing.T) {
		var buf bytes.Buffer
		c := orders()
		opts := TableOptions{Selection: NewSelection(c.IDs()...)}
		if err := RenderTable(&buf, record.Orders, c, opts); err != nil {
			t.Fatalf("RenderTable() error = %v", err)
		}
		if header, _, _ := strings.Cut(buf.String(), "\n"); !strings.HasPrefix(header, "[x]") {
			t.Errorf("header = %q, want checked box", header)
		}
	})

	t.Run("truncates long cells", func(t *testing.T) {
		c := record.Collection{{ID: "R9", Fields: record.Fields{"details": strings.Repeat("กุหลาบ ", 20)}}}
		var buf bytes.Buffer
		RenderTable(&buf, record.Orders, c, TableOptions{})
		if !strings.Contains(buf.String(), "...") {
			t.Errorf("long cell not truncated: %q", buf.String())
		}
	})
}

func TestRenderDetails(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	r := record.Record{ID: "A1", CreatedAt: &ts, Fields: record.Fields{
		"firstName": "Alice",
		"photoUrl":  "data:image/png;base64,AAAA",
		"team":      "Blue",
	}}
	var buf bytes.Buffer
	if err := RenderDetails(&buf, record.Athletes, r); err != nil {
		t.Fatalf("RenderDetails() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"A1", "2024-01-15 10:30:00", "Alice", "data:image/png;base64 (26 bytes inline)", "team", "Blue"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
