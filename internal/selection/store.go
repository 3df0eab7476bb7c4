package selection

// selectionStore abstracts where the selected ids of each kind live.
// Concurrency is managed by the caller (Area.mu), so stores do not need to
// be safe for concurrent use.
type selectionStore interface {
	// Load returns the saved ids for kind, or nil when nothing was saved.
	Load(kind string) ([]string, error)

	// Save replaces the saved ids for kind. An empty list removes the entry.
	Save(kind string, ids []string) error
}
