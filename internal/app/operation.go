package app

import (
	"sync"
	"time"
)

// Operation tracks one CLI invocation. Its ID tags every log line written
// while it runs. Fail and Failed may be called concurrently.
type Operation struct {
	mu sync.Mutex

	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation started at now. The ID is the start
// time in UTC, e.g. "20240115T103000Z".
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.mu.Lock()
		op.Status = "error"
		op.mu.Unlock()
	}
	return err
}

// Failed reports whether any step of the operation failed.
func (op *Operation) Failed() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.Status == "error"
}
