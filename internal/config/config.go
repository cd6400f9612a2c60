package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for rufas.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Storage    StorageConfig    `toml:"storage"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Polling    PollingConfig    `toml:"polling"`
	Export     ExportConfig     `toml:"export"`
	Encryption EncryptionConfig `toml:"encryption"`
	Tags       TagsConfig       `toml:"tags"`
}

// StorageConfig selects where the files, tags and bundles collections live.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "json" (default), "sqlite" or "memory"
	// Dir holds the collections. Relative paths are resolved against the
	// opened folder.
	Dir string `toml:"dir,omitempty"`
}

// FilesystemConfig holds the scanner's ignore rules.
type FilesystemConfig struct {
	IgnoreNames    []string `toml:"ignore_names"`
	IgnorePrefixes []string `toml:"ignore_prefixes"`
	IgnoreSuffixes []string `toml:"ignore_suffixes"`
	Ignore         []string `toml:"ignore"` // glob patterns
	Watch          bool     `toml:"watch"`  // wake the poller on filesystem events
}

// PollingConfig controls automatic rescans.
type PollingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // Go duration, e.g. "1s"
}

// IntervalDuration parses Interval. An empty interval means one second.
func (p PollingConfig) IntervalDuration() (time.Duration, error) {
	if p.Interval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(p.Interval)
	if err != nil {
		return 0, fmt.Errorf("parsing polling interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("polling interval must be positive, got %s", p.Interval)
	}
	return d, nil
}

// ExportConfig selects the export document format and destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ExportConfig struct {
	Type      string `toml:"type"`   // "filesystem" (default), "s3" or "memory"
	Format    string `toml:"format"` // "xml" (default), "json" or "toon"
	CacheSize int    `toml:"cache_size,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem").
	// Relative paths are resolved against the opened folder.
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
}

// EncryptionConfig selects optional encryption of export documents.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	// Armor writes ASCII-armored age output, keeping documents printable.
	Armor bool `toml:"armor"`
}

// TagsConfig controls tag defaults.
type TagsConfig struct {
	// SeedDefaults creates the default tag set the first time a folder is opened.
	SeedDefaults bool `toml:"seed_defaults"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Type: "json",
			Dir:  filepath.Join(".rufas", "database"),
		},
		Filesystem: FilesystemConfig{
			IgnoreNames:    []string{".DS_Store", "Thumbs.db", "node_modules", ".next", "package-lock.json"},
			IgnorePrefixes: []string{".", "_"},
			IgnoreSuffixes: []string{".log", ".tmp"},
		},
		Polling: PollingConfig{
			Enabled:  true,
			Interval: "1s",
		},
		Export: ExportConfig{
			Type:   "filesystem",
			Format: "xml",
			Dir:    filepath.Join(".rufas", "exports"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "rufas.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "rufas.key"),
		},
		Tags: TagsConfig{SeedDefaults: true},
	}
}

// ResolveDir returns dir unchanged when absolute, otherwise joined onto root.
func ResolveDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if err := m.ReadInto(r, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadInto decodes onto cfg. Keys absent from the input keep their values.
func (m *Manager) ReadInto(r io.Reader, cfg *Config) error {
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
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

// ReadFromFileWithDefaults reads the file at path on top of defaults.
func ReadFromFileWithDefaults(path string, defaults *Config) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.ReadInto(f, defaults); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return defaults, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
