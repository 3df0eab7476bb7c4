package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"sheetsync/internal/config"
)

// NewJournalFromConfig creates a journal based on the journal config type.
// Memory journals are migrated immediately; sqlite journals are left for
// the caller to check.
func NewJournalFromConfig(cfg config.JournalConfig) (*SQLiteJournal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, "journal.db"))
	case "memory", "":
		j, err := NewSQLiteJournal(":memory:")
		if err != nil {
			return nil, err
		}
		if err := j.MigrateUp(); err != nil {
			j.Close()
			return nil, err
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
