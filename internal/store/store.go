package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"sheetsync/internal/record"
	"sheetsync/internal/remote"
)

// RemoteStore is the remote record store the Store synchronizes with.
// Create, Update and Delete report failures in the Result, never as a
// separate error, so the rollback branch always runs.
type RemoteStore interface {
	Kind() record.Kind
	List(ctx context.Context) (record.Collection, error)
	Create(ctx context.Context, fields record.Fields) remote.Result
	Update(ctx context.Context, id string, fields record.Fields) remote.Result
	Delete(ctx context.Context, id string) remote.Result
}

// Options tune how mutations are applied locally.
type Options struct {
	// NewestFirst puts provisional records at the front of the collection.
	NewestFirst bool

	// Reconcile refetches the whole collection after every successful
	// mutation. A failed refetch is logged and does not fail the mutation.
	Reconcile bool

	// SerializePerRecord makes mutations on the same record id wait for
	// each other. Without it overlapping mutations race and the response
	// that resolves last decides the local state.
	SerializePerRecord bool

	// Observer receives mutation outcomes, e.g. for metrics. May be nil.
	Observer MutationObserver
}

// Store owns the local copy of one record collection and keeps it
// approximately consistent with the remote store. Mutations are applied
// locally first, then sent; a failed send restores the exact pre-mutation
// snapshot. Readers only ever receive deep copies.
type Store struct {
	remote   RemoteStore
	kind     record.Kind
	journal  Journal
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	observer MutationObserver
	opts     Options

	mu       sync.Mutex
	coll     record.Collection
	loaded   bool
	inflight map[string]int

	keys    *keyedMutex
	refresh singleflight.Group
}

// NewStore creates a Store with the provided dependencies. journal may be
// nil when mutations should not be recorded.
func NewStore(rs RemoteStore, journal Journal, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Store {
	if journal == nil {
		journal = nopJournal{}
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Store{
		remote:   rs,
		kind:     rs.Kind(),
		journal:  journal,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		observer: observer,
		opts:     opts,
		coll:     record.Collection{},
		inflight: make(map[string]int),
		keys:     newKeyedMutex(),
	}
}

// Kind returns the record kind held by the store.
func (s *Store) Kind() record.Kind {
	return s.kind
}

// Snapshot returns a deep copy of the current collection.
func (s *Store) Snapshot() record.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Clone()
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.coll.Find(id)
	if !ok {
		return record.Record{}, false
	}
	return r.Clone(), true
}

// Loaded reports whether at least one Refresh has succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// InFlight returns the ids with a mutation awaiting the remote store, sorted.
func (s *Store) InFlight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Refresh replaces the local collection with the remote one. Concurrent
// calls share a single request, which is not cancelled with the caller
// that started it; a caller whose ctx ends stops waiting and gets
// ctx.Err(). On failure the local collection is kept.
func (s *Store) Refresh(ctx context.Context) error {
	shared := context.WithoutCancel(ctx)
	ch := s.refresh.DoChan("refresh", func() (any, error) {
		coll, err := s.remote.List(shared)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.coll = dedupe(coll)
		s.loaded = true
		n := len(s.coll)
		s.mu.Unlock()

		s.observer.ObserveCollectionSize(s.kind.Name, n)
		s.logger.Debug("collection refreshed", "kind", s.kind.Name, "records", n)
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetching %s: %w", s.kind.Name, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return fmt.Errorf("fetching %s: %w", s.kind.Name, r.Err)
		}
		return nil
	}
}

// Create adds a record. A provisional copy with a temporary id is visible
// immediately; on success it takes the store-assigned id, on failure the
// collection is restored to its state before the call.
func (s *Store) Create(ctx context.Context, fields record.Fields) (record.Record, error) {
	if err := s.kind.Validate(fields); err != nil {
		return record.Record{}, err
	}

	tempID := s.idgen.New()
	m := s.begin(OpCreate, "", tempID)

	s.mu.Lock()
	snapshot := s.coll.Clone()
	s.insert(record.Record{ID: tempID, Fields: fields.Clone()})
	s.markInFlight(tempID)
	s.mu.Unlock()

	res := s.remote.Create(ctx, fields)
	if !res.OK() {
		s.rollback(tempID, snapshot)
		s.finish(m, StatusRolledBack, res.Err)
		s.logger.Error("create rolled back", "kind", s.kind.Name, "temp_id", tempID, "error", res.Err)
		return record.Record{}, fmt.Errorf("creating %s: %w", s.kind.Noun, res.Err)
	}

	s.mu.Lock()
	now := s.clock.Now()
	created := record.Record{ID: res.ID, Fields: fields.Clone(), CreatedAt: &now}
	i := s.coll.IndexOf(tempID)
	switch j := s.coll.IndexOf(res.ID); {
	case j >= 0:
		// A refresh already brought the new row in.
		s.coll[j] = created.Clone()
		if i >= 0 {
			s.coll = append(s.coll[:i:i], s.coll[i+1:]...)
		}
	case i >= 0:
		s.coll[i] = created.Clone()
	default:
		// A refresh replaced the collection while the create was in flight.
		s.insert(created.Clone())
	}
	s.clearInFlight(tempID)
	n := len(s.coll)
	s.mu.Unlock()

	m.RecordID = res.ID
	s.finish(m, StatusSuccess, nil)
	s.observer.ObserveCollectionSize(s.kind.Name, n)
	s.logger.Info("record created", "kind", s.kind.Name, "id", res.ID, "temp_id", tempID)

	s.reconcile(ctx)
	return created, nil
}

// Update merges patch into the record with the given id. Only the supplied
// fields change. On failure the collection is restored.
func (s *Store) Update(ctx context.Context, id string, patch record.Fields) (record.Record, error) {
	id = record.CanonicalID(id)
	if err := s.kind.ValidatePatch(patch); err != nil {
		return record.Record{}, err
	}

	unlock := s.lockRecord(id)
	defer unlock()

	s.mu.Lock()
	i := s.coll.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return record.Record{}, fmt.Errorf("updating %s %s: %w", s.kind.Noun, id, record.ErrNotFound)
	}
	snapshot := s.coll.Clone()
	s.coll[i].Fields = s.coll[i].Fields.Merge(patch)
	updated := s.coll[i].Clone()
	s.markInFlight(id)
	s.mu.Unlock()

	m := s.begin(OpUpdate, id, "")
	res := s.remote.Update(ctx, id, updated.Fields)
	if !res.OK() {
		s.rollback(id, snapshot)
		s.finish(m, StatusRolledBack, res.Err)
		s.logger.Error("update rolled back", "kind", s.kind.Name, "id", id, "error", res.Err)
		return record.Record{}, fmt.Errorf("updating %s %s: %w", s.kind.Noun, id, res.Err)
	}

	s.mu.Lock()
	s.clearInFlight(id)
	s.mu.Unlock()

	s.finish(m, StatusSuccess, nil)
	s.logger.Info("record updated", "kind", s.kind.Name, "id", id)

	s.reconcile(ctx)
	return updated, nil
}

// Delete removes the record with the given id. On failure the collection
// is restored.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = record.CanonicalID(id)

	unlock := s.lockRecord(id)
	defer unlock()

	s.mu.Lock()
	i := s.coll.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("deleting %s %s: %w", s.kind.Noun, id, record.ErrNotFound)
	}
	snapshot := s.coll.Clone()
	s.coll = append(s.coll[:i:i], s.coll[i+1:]...)
	s.markInFlight(id)
	s.mu.Unlock()

	m := s.begin(OpDelete, id, "")
	res := s.remote.Delete(ctx, id)
	if !res.OK() {
		s.rollback(id, snapshot)
		s.finish(m, StatusRolledBack, res.Err)
		s.logger.Error("delete rolled back", "kind", s.kind.Name, "id", id, "error", res.Err)
		return fmt.Errorf("deleting %s %s: %w", s.kind.Noun, id, res.Err)
	}

	s.mu.Lock()
	s.clearInFlight(id)
	n := len(s.coll)
	s.mu.Unlock()

	s.finish(m, StatusSuccess, nil)
	s.observer.ObserveCollectionSize(s.kind.Name, n)
	s.logger.Info("record deleted", "kind", s.kind.Name, "id", id)

	s.reconcile(ctx)
	return nil
}

// insert places r at the front or back of the collection per NewestFirst.
// It must be called with s.mu held.
func (s *Store) insert(r record.Record) {
	if s.opts.NewestFirst {
		s.coll = append(record.Collection{r}, s.coll...)
		return
	}
	s.coll = append(s.coll, r)
}

// rollback restores snapshot exactly; it does not consult the remote store.
func (s *Store) rollback(id string, snapshot record.Collection) {
	s.mu.Lock()
	s.coll = snapshot
	s.clearInFlight(id)
	s.mu.Unlock()
}

func (s *Store) reconcile(ctx context.Context) {
	if !s.opts.Reconcile {
		return
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("reconcile refresh failed", "kind", s.kind.Name, "error", err)
	}
}

func (s *Store) lockRecord(id string) func() {
	if !s.opts.SerializePerRecord {
		return func() {}
	}
	return s.keys.Lock(id)
}

// markInFlight and clearInFlight must be called with s.mu held.
func (s *Store) markInFlight(id string) {
	s.inflight[id]++
}

func (s *Store) clearInFlight(id string) {
	if s.inflight[id] <= 1 {
		delete(s.inflight, id)
		return
	}
	s.inflight[id]--
}

func (s *Store) begin(op Op, id, tempID string) *Mutation {
	m := &Mutation{
		Kind:      s.kind.Name,
		Op:        op,
		RecordID:  id,
		TempID:    tempID,
		Status:    StatusPending,
		StartedAt: s.clock.Now(),
	}
	if err := s.journal.BeginMutation(m); err != nil {
		s.logger.Warn("journal begin failed", "op", string(op), "error", err)
	}
	return m
}

func (s *Store) finish(m *Mutation, status Status, cause error) {
	now := s.clock.Now()
	m.Status = status
	m.FinishedAt = &now
	if cause != nil {
		m.Error = cause.Error()
	}
	if err := s.journal.FinishMutation(m); err != nil {
		s.logger.Warn("journal finish failed", "op", string(m.Op), "error", err)
	}
	s.observer.ObserveMutation(s.kind.Name, m.Op, status)
}

// dedupe keeps the first record of each canonical id.
func dedupe(c record.Collection) record.Collection {
	seen := make(map[string]bool, len(c))
	out := make(record.Collection, 0, len(c))
	for _, r := range c {
		id := record.CanonicalID(r.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}
