package record

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestCollection_Clone(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	orig := Collection{
		{ID: "A1", Fields: Fields{"name": "Alice"}, CreatedAt: &ts},
		{ID: "B2", Fields: Fields{"name": "Bob"}},
	}

	clone := orig.Clone()
	if !reflect.DeepEqual(orig, clone) {
		t.Fatalf("Clone() = %v, want %v", clone, orig)
	}

	clone[0].Fields["name"] = "Alicia"
	*clone[0].CreatedAt = ts.Add(time.Hour)
	if orig[0].Get("name") != "Alice" {
		t.Errorf("mutating clone changed original field to %q", orig[0].Get("name"))
	}
	if !orig[0].CreatedAt.Equal(ts) {
		t.Errorf("mutating clone changed original CreatedAt to %v", orig[0].CreatedAt)
	}

	if Collection(nil).Clone() != nil {
		t.Error("Clone() of nil collection should be nil")
	}
}

func TestCollection_IndexOf(t *testing.T) {
	c := Collection{
		{ID: "A1"},
		{ID: "1712345678901"},
	}

	tests := []struct {
		name string
		id   any
		want int
	}{
		{name: "exact", id: "A1", want: 0},
		{name: "whitespace", id: " A1 ", want: 0},
		{name: "numeric id given as float", id: float64(1712345678901), want: 1},
		{name: "missing", id: "Z9", want: -1},
		{name: "blank", id: "  ", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IndexOf(tt.id); got != tt.want {
				t.Errorf("IndexOf(%#v) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestFields_Merge(t *testing.T) {
	base := Fields{"firstName": "Alice", "level": "U12"}
	got := base.Merge(Fields{"firstName": "Alicia"})

	want := Fields{"firstName": "Alicia", "level": "U12"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if base["firstName"] != "Alice" {
		t.Errorf("Merge() modified receiver: %v", base)
	}
}

func TestRecord_JSONRoundTripKeepsLargeIDs(t *testing.T) {
	var r Record
	data := []byte(`{"id": 1712345678901, "recipientName": "Somchai", "createdAt": 1705314600000}`)
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if r.ID != "1712345678901" {
		t.Errorf("ID = %q, want 1712345678901", r.ID)
	}
	if r.Get("recipientName") != "Somchai" {
		t.Errorf("recipientName = %q, want Somchai", r.Get("recipientName"))
	}
	if _, ok := r.Fields["id"]; ok {
		t.Error("id should not be kept in Fields")
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if r.CreatedAt == nil || !r.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, want)
	}
}

func TestFromRow_TimestampString(t *testing.T) {
	r := FromRow(map[string]any{"id": "X", "timestamp": "2024-02-01T08:00:00Z"})
	if r.CreatedAt == nil {
		t.Fatal("CreatedAt = nil, want parsed timestamp")
	}
	if got := r.CreatedAt.Format(time.RFC3339); got != "2024-02-01T08:00:00Z" {
		t.Errorf("CreatedAt = %s", got)
	}
}
