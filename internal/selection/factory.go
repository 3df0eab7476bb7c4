package selection

import (
	"fmt"

	"sheetsync/internal/config"
)

// NewAreaFromConfig creates a selection Area based on the config type.
func NewAreaFromConfig(cfg config.SelectionConfig) (*Area, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryArea(cfg.MaxSize), nil
	case "filesystem", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem selection requires dir to be set")
		}
		return NewFileSystemArea(cfg.Dir, cfg.MaxSize)
	default:
		return nil, fmt.Errorf("unknown selection type: %s", cfg.Type)
	}
}
