package present

import (
	"reflect"
	"testing"

	"sheetsync/internal/record"
)

func TestSelection_Toggle(t *testing.T) {
	s := NewSelection()
	if !s.Toggle("R1") {
		t.Error("Toggle() on unselected id = false, want true")
	}
	if !s.Has(" R1 ") {
		t.Error("Has() should compare canonical ids")
	}
	if s.Toggle("R1") {
		t.Error("Toggle() on selected id = true, want false")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSelection_SelectAllOnlyTouchesView(t *testing.T) {
	all := orders()
	s := NewSelection("R2")

	view := Filter(all, record.Orders, "somchai")
	s.SelectAll(view)
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"R1", "R2"}) {
		t.Errorf("after SelectAll IDs() = %v, want [R1 R2]", got)
	}
	if !s.AllSelected(view) {
		t.Error("AllSelected(view) = false after SelectAll")
	}

	s.DeselectAll(view)
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"R2"}) {
		t.Errorf("after DeselectAll IDs() = %v, want [R2] (outside the filter)", got)
	}
	if s.AllSelected(record.Collection{}) {
		t.Error("AllSelected(empty) = true, want false")
	}
}

func TestSelection_PickKeepsCollectionOrder(t *testing.T) {
	s := NewSelection("R3", "R1", "gone")
	got := s.Pick(orders()).IDs()
	if want := []string{"R1", "R3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pick() = %v, want %v", got, want)
	}

	if n := s.Prune(orders()); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if s.Has("gone") {
		t.Error("Prune() kept a missing id")
	}
}
