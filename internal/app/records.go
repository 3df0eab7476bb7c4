package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheetsync/internal/present"
	"sheetsync/internal/record"
	"sheetsync/internal/store"
)

// ErrUnknownField is returned for a field name the kind does not have.
var ErrUnknownField = errors.New("unknown field")

// ListOptions narrow and order List results.
type ListOptions struct {
	Search string
	Sort   string // field name, "id" or "createdAt"; empty keeps store order
	Desc   bool
}

// List fetches the collection and returns the records matching opts.
func (a *App) List(ctx context.Context, opts ListOptions) (record.Collection, error) {
	if opts.Sort != "" && opts.Sort != "id" && opts.Sort != "createdAt" && !a.kind.HasField(opts.Sort) {
		return nil, a.op.Fail(fmt.Errorf("cannot sort %s by %q: %w", a.kind.Name, opts.Sort, ErrUnknownField))
	}
	if err := a.store.Refresh(ctx); err != nil {
		return nil, a.op.Fail(err)
	}
	c := present.Filter(a.store.Snapshot(), a.kind, opts.Search)
	if opts.Sort == "id" {
		c = sortByID(c, opts.Desc)
	} else {
		c = present.Sort(c, opts.Sort, opts.Desc)
	}
	return c, nil
}

// Show fetches the collection and returns the record with id.
func (a *App) Show(ctx context.Context, id string) (record.Record, error) {
	if err := a.store.Refresh(ctx); err != nil {
		return record.Record{}, a.op.Fail(err)
	}
	r, ok := a.store.Get(id)
	if !ok {
		return record.Record{}, a.op.Fail(fmt.Errorf("%s %s: %w", a.kind.Noun, record.CanonicalID(id), record.ErrNotFound))
	}
	return r, nil
}

// Add creates a record from fields.
func (a *App) Add(ctx context.Context, fields record.Fields) (record.Record, error) {
	r, err := a.store.Create(ctx, fields)
	return r, a.op.Fail(err)
}

// Edit applies patch to the record with id. The collection is fetched first
// so the record can be found.
func (a *App) Edit(ctx context.Context, id string, patch record.Fields) (record.Record, error) {
	if len(patch) == 0 {
		return record.Record{}, a.op.Fail(errors.New("nothing to change"))
	}
	if err := a.store.Refresh(ctx); err != nil {
		return record.Record{}, a.op.Fail(err)
	}
	r, err := a.store.Update(ctx, id, patch)
	return r, a.op.Fail(err)
}

// Delete removes the record with id and drops it from the saved selection.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.store.Refresh(ctx); err != nil {
		return a.op.Fail(err)
	}
	if err := a.store.Delete(ctx, id); err != nil {
		return a.op.Fail(err)
	}
	_, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		s.Remove(record.CanonicalID(id))
		return nil
	})
	if err != nil {
		a.logger.Warn("removing deleted record from selection failed", "id", id, "error", err)
	}
	return nil
}

// Stats fetches the collection and summarises it.
func (a *App) Stats(ctx context.Context) (present.Stats, error) {
	if err := a.store.Refresh(ctx); err != nil {
		return present.Stats{}, a.op.Fail(err)
	}
	return present.ComputeStats(a.store.Snapshot(), a.kind, a.clock.Now(), a.loc), nil
}

// History returns the most recent journaled mutations, newest first.
func (a *App) History(limit int) ([]*store.Mutation, error) {
	ms, err := a.journal.ListMutations(limit)
	if err != nil {
		return nil, a.op.Fail(fmt.Errorf("reading journal: %w", err))
	}
	return ms, nil
}

// ParseAssignments turns "field=value" arguments into Fields. Unknown
// fields of the kind are rejected; values are kept as strings.
func ParseAssignments(kind record.Kind, args []string) (record.Fields, error) {
	f := record.Fields{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, want field=value", arg)
		}
		if !kind.HasField(name) {
			return nil, fmt.Errorf("%w %q for %s (fields: %s)", ErrUnknownField, name, kind.Noun, strings.Join(kind.Fields, ", "))
		}
		f[name] = value
	}
	return f, nil
}
