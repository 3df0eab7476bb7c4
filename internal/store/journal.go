package store

import "time"

// Op is the kind of mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Status is the outcome of a mutation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusRolledBack Status = "rolled_back"
)

// Mutation is one journaled create, update or delete.
type Mutation struct {
	ID         int64
	Kind       string
	Op         Op
	RecordID   string // canonical id; the store-assigned id once a create succeeds
	TempID     string // provisional id of a create
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Journal records every mutation the store performs. Journal failures are
// logged and never fail the mutation itself.
type Journal interface {
	// BeginMutation persists m with StatusPending and sets m.ID.
	BeginMutation(m *Mutation) error

	// FinishMutation stores the final status, error and record id of m.
	FinishMutation(m *Mutation) error

	// ListMutations returns the most recent mutations, newest first.
	ListMutations(limit int) ([]*Mutation, error)
}

// MutationObserver receives mutation outcomes and collection sizes.
type MutationObserver interface {
	ObserveMutation(kind string, op Op, status Status)
	ObserveCollectionSize(kind string, n int)
}

type nopJournal struct{}

func (nopJournal) BeginMutation(*Mutation) error          { return nil }
func (nopJournal) FinishMutation(*Mutation) error         { return nil }
func (nopJournal) ListMutations(int) ([]*Mutation, error) { return nil, nil }

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, Op, Status) {}
func (nopObserver) ObserveCollectionSize(string, int)  {}
