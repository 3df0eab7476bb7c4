package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultTimezone is used for dates when the config names none.
const DefaultTimezone = "Asia/Bangkok"

// Config represents the main configuration for sheetsync.
type Config struct {
	InstanceID string           `toml:"instance_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Timezone   string           `toml:"timezone"`
	Remote     RemoteConfig     `toml:"remote"`
	Store      StoreConfig      `toml:"store"`
	Journal    JournalConfig    `toml:"journal"`
	Archive    ArchiveConfig    `toml:"archive"`
	Selection  SelectionConfig  `toml:"selection"`
	Encryption EncryptionConfig `toml:"encryption"`
	Print      PrintConfig      `toml:"print"`
	Serve      ServeConfig      `toml:"serve"`
}

// RemoteConfig points at the spreadsheet web app.
type RemoteConfig struct {
	Endpoint string        `toml:"endpoint"`
	Kind     string        `toml:"kind"`              // "athletes" or "orders"
	Timeout  string        `toml:"timeout,omitempty"` // Go duration, e.g. "30s"; empty means none
	Actions  ActionsConfig `toml:"actions"`
}

// ActionsConfig overrides the remote action names of the kind. Empty
// fields keep the built-in names.
type ActionsConfig struct {
	List   string `toml:"list,omitempty"`
	Create string `toml:"create,omitempty"`
	Update string `toml:"update,omitempty"`
	Delete string `toml:"delete,omitempty"`
}

// StoreConfig tunes how local mutations are applied.
type StoreConfig struct {
	NewestFirst        bool `toml:"newest_first"`
	Reconcile          bool `toml:"reconcile"`
	SerializePerRecord bool `toml:"serialize_per_record"`
}

// JournalConfig represents configuration for the mutation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the document archive.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// SelectionConfig represents configuration for the persisted bulk selection.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SelectionConfig struct {
	Type    string `toml:"type"`          // "memory" or "filesystem"
	Dir     string `toml:"dir,omitempty"` // only used for type=filesystem
	MaxSize int    `toml:"max_size"`      // max selected records per kind; defaults to 500
}

// EncryptionConfig holds paths to the age key pair used for exports.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "fake"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor"` // ASCII-armored output
}

// PrintConfig holds what is printed on documents.
type PrintConfig struct {
	Organization string `toml:"organization"`
	LogoURL      string `toml:"logo_url,omitempty"`
	Layout       string `toml:"layout,omitempty"` // default layout; empty uses the kind's default
}

// ServeConfig configures the read-only web view.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(instanceID, baseDir string) *Config {
	return &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Timezone:   DefaultTimezone,
		Remote:     RemoteConfig{Kind: "orders"},
		Store:      StoreConfig{NewestFirst: true, Reconcile: true, SerializePerRecord: true},
		Journal:    JournalConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "journal")},
		Archive:    ArchiveConfig{Type: "filesystem", Root: filepath.Join(baseDir, "archive")},
		Selection:  SelectionConfig{Type: "filesystem", Dir: filepath.Join(baseDir, "selection")},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "sheetsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "sheetsync.key"),
			Armor:          true,
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// Validate reports settings that would fail only later at first use.
func (c *Config) Validate() error {
	var errs []error
	if c.Remote.Endpoint == "" {
		errs = append(errs, errors.New("remote.endpoint is not set"))
	} else if u, err := url.Parse(c.Remote.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("remote.endpoint %q is not an http(s) URL", c.Remote.Endpoint))
	}
	if c.Remote.Kind == "" {
		errs = append(errs, errors.New("remote.kind is not set"))
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequestTimeout parses Remote.Timeout. Zero means no timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Remote.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("remote.timeout %q is not a valid duration", c.Remote.Timeout)
	}
	return d, nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys the Config does not
// know are reported as an error so typos do not go unnoticed.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The archive section may hold S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
