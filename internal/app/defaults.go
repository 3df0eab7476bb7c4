package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envConfigPath = "SHEETSYNC_CONFIG_PATH"
	envHome       = "SHEETSYNC_HOME"
)

// Paths are where sheetsync keeps its config file and local data.
type Paths struct {
	ConfigPath string // $SHEETSYNC_CONFIG_PATH or ~/.config/sheetsync.toml
	BaseDir    string // $SHEETSYNC_HOME or ~/.local/share/sheetsync
}

// LogDir is the directory holding sheetsync.log.
func (p Paths) LogDir() string {
	return filepath.Join(p.BaseDir, "log")
}

// DefaultPaths resolves Paths from the environment, falling back to the
// user's home directory.
func DefaultPaths() (Paths, error) {
	configPath, err := envOrHome(envConfigPath, ".config", "sheetsync.toml")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := envOrHome(envHome, ".local", "share", "sheetsync")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigPath: configPath, BaseDir: baseDir}, nil
}

func envOrHome(env string, rel ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory (set %s): %w", env, err)
	}
	return filepath.Join(append([]string{home}, rel...)...), nil
}
