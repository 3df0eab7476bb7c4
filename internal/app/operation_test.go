package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 17, 30, 0, 0, time.FixedZone("ICT", 7*3600))

	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{name: "with parameters", operation: "Print", parameters: "layout=order-receipt"},
		{name: "empty parameters", operation: "List", parameters: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters, now)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != "success" {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if op.ID != "20240115T103000Z" {
				t.Errorf("ID = %q, want %q", op.ID, "20240115T103000Z")
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("Delete", "", time.Now())

	if err := op.Fail(nil); err != nil {
		t.Fatalf("Fail(nil) = %v, want nil", err)
	}
	if op.Failed() {
		t.Fatal("Failed() = true after Fail(nil)")
	}

	boom := errors.New("boom")
	if err := op.Fail(boom); !errors.Is(err, boom) {
		t.Errorf("Fail() = %v, want %v", err, boom)
	}
	if !op.Failed() {
		t.Error("Failed() = false after Fail(err)")
	}
}
