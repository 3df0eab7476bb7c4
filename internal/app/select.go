package app

import (
	"context"
	"fmt"

	"sheetsync/internal/present"
	"sheetsync/internal/record"
)

// Select adds the records with ids to the saved selection. Every id must
// exist in the current collection.
func (a *App) Select(ctx context.Context, ids []string) (*present.Selection, error) {
	c, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := c.Find(id); !ok {
			return nil, a.op.Fail(fmt.Errorf("selecting %s %s: %w", a.kind.Noun, record.CanonicalID(id), record.ErrNotFound))
		}
	}
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		for _, id := range ids {
			s.Add(record.CanonicalID(id))
		}
		return nil
	})
	return sel, a.op.Fail(err)
}

// SelectAll selects every record matching search. Records hidden by the
// search keep their selection state.
func (a *App) SelectAll(ctx context.Context, search string) (*present.Selection, error) {
	c, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	view := present.Filter(c, a.kind, search)
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		s.SelectAll(view)
		return nil
	})
	return sel, a.op.Fail(err)
}

// Toggle flips the selection state of each id. Selecting needs the record
// to exist; a selected id whose record is gone can still be toggled off.
func (a *App) Toggle(ctx context.Context, ids []string) (*present.Selection, error) {
	c, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		for _, id := range ids {
			if _, ok := c.Find(id); !ok && !s.Has(id) {
				return fmt.Errorf("selecting %s %s: %w", a.kind.Noun, record.CanonicalID(id), record.ErrNotFound)
			}
			s.Toggle(id)
		}
		return nil
	})
	return sel, a.op.Fail(err)
}

// Deselect removes ids from the saved selection. Unknown ids are ignored.
func (a *App) Deselect(ids []string) (*present.Selection, error) {
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		for _, id := range ids {
			s.Remove(record.CanonicalID(id))
		}
		return nil
	})
	return sel, a.op.Fail(err)
}

// DeselectAll deselects every record matching search. A blank search
// clears the whole selection.
func (a *App) DeselectAll(ctx context.Context, search string) (*present.Selection, error) {
	c, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	view := present.Filter(c, a.kind, search)
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		s.DeselectAll(view)
		if search == "" {
			for _, id := range s.IDs() {
				s.Remove(id)
			}
		}
		return nil
	})
	return sel, a.op.Fail(err)
}

// Selection returns the saved selection without touching the remote store.
func (a *App) Selection() (*present.Selection, error) {
	sel, err := a.selection.Load(a.kind.Name)
	return sel, a.op.Fail(err)
}

// Selected fetches the collection and returns the selected records in
// collection order. Ids that no longer exist are dropped from the saved
// selection.
func (a *App) Selected(ctx context.Context) (record.Collection, error) {
	c, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var pruned int
	sel, err := a.selection.Update(a.kind.Name, func(s *present.Selection) error {
		pruned = s.Prune(c)
		return nil
	})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if pruned > 0 {
		a.logger.Info("dropped stale ids from selection", "kind", a.kind.Name, "count", pruned)
	}
	return sel.Pick(c), nil
}

// fetch refreshes the store and returns a snapshot.
func (a *App) fetch(ctx context.Context) (record.Collection, error) {
	if err := a.store.Refresh(ctx); err != nil {
		return nil, a.op.Fail(err)
	}
	return a.store.Snapshot(), nil
}
