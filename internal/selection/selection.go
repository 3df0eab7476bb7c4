// Package selection persists the bulk-mode selection between command
// invocations, one set of record ids per kind.
package selection

import (
	"fmt"
	"sync"

	"sheetsync/internal/present"
)

// DefaultMaxSize is the default maximum number of selected records per kind.
const DefaultMaxSize = 500

// Area is a persisted selection. All shared logic lives here; the backing
// store only loads and saves id lists.
type Area struct {
	store   selectionStore
	maxSize int
	mu      sync.Mutex
}

func newArea(store selectionStore, maxSize int) *Area {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Area{store: store, maxSize: maxSize}
}

// Load returns the saved selection for kind.
func (a *Area) Load(kind string) (*present.Selection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(kind)
}

// Update loads the selection for kind, applies fn and saves the result.
// Nothing is saved when fn fails or the selection grows past the maximum
// size.
func (a *Area) Update(kind string, fn func(*present.Selection) error) (*present.Selection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sel, err := a.load(kind)
	if err != nil {
		return nil, err
	}
	if err := fn(sel); err != nil {
		return nil, err
	}
	if sel.Len() > a.maxSize {
		return nil, fmt.Errorf("selection full: %d %s selected, limit is %d", sel.Len(), kind, a.maxSize)
	}
	if err := a.store.Save(kind, sel.IDs()); err != nil {
		return nil, fmt.Errorf("saving %s selection: %w", kind, err)
	}
	return sel, nil
}

// Clear removes the saved selection for kind.
func (a *Area) Clear(kind string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Save(kind, nil); err != nil {
		return fmt.Errorf("clearing %s selection: %w", kind, err)
	}
	return nil
}

func (a *Area) load(kind string) (*present.Selection, error) {
	ids, err := a.store.Load(kind)
	if err != nil {
		return nil, fmt.Errorf("loading %s selection: %w", kind, err)
	}
	return present.NewSelection(ids...), nil
}
