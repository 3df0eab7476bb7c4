package journal

import (
	"testing"

	"sheetsync/internal/config"
)

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("memory journal is ready to use", func(t *testing.T) {
		j, err := NewJournalFromConfig(config.JournalConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() error = %v", err)
		}
		defer j.Close()
		if err := j.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite journal", func(t *testing.T) {
		j, err := NewJournalFromConfig(config.JournalConfig{Type: "sqlite", DataDir: t.TempDir()})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() error = %v", err)
		}
		defer j.Close()
		if j.Path() == ":memory:" {
			t.Error("sqlite journal opened in memory")
		}
	})

	t.Run("sqlite without data_dir", func(t *testing.T) {
		if _, err := NewJournalFromConfig(config.JournalConfig{Type: "sqlite"}); err == nil {
			t.Error("NewJournalFromConfig() error = nil, want error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewJournalFromConfig(config.JournalConfig{Type: "postgres"}); err == nil {
			t.Error("NewJournalFromConfig() error = nil, want error")
		}
	})
}
