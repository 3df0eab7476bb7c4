package testutil

import (
	"path/filepath"
	"testing"

	"sheetsync/internal/config"
)

// NewTestConfig returns a config for kind at endpoint whose backends all
// live in memory. Logs go to a per-test temp dir.
func NewTestConfig(t *testing.T, endpoint, kind string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig("test-instance", dir)
	cfg.LogDir = filepath.Join(dir, "log")
	cfg.Timezone = "Asia/Bangkok"
	cfg.Remote.Endpoint = endpoint
	cfg.Remote.Kind = kind
	cfg.Remote.Timeout = "5s"
	cfg.Store = config.StoreConfig{NewestFirst: true, Reconcile: false, SerializePerRecord: true}
	cfg.Journal = config.JournalConfig{Type: "memory"}
	cfg.Selection = config.SelectionConfig{Type: "memory", MaxSize: 10}
	cfg.Archive = config.ArchiveConfig{Type: "memory"}
	cfg.Encryption = config.EncryptionConfig{Type: "fake"}
	cfg.Print = config.PrintConfig{Organization: "Test Club"}
	return cfg
}
