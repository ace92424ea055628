// Package config loads contactbook settings from defaults, a YAML file and
// CONTACTBOOK_* environment overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// DefaultFile is the config file read when no explicit path is given.
const DefaultFile = "contactbook.yaml"

// Config holds all contactbook configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects the contact persistence backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory | sqlite | postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects the export target.
type BlobConfig struct {
	Driver string   `yaml:"driver"` // fs | memory | s3
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3 or MinIO settings. Empty credentials use the AWS default chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	PathStyle       bool   `yaml:"path_style"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console | auto
	// Trace writes one JSON line per service operation span to stderr.
	Trace bool `yaml:"trace"`
}

// DefaultConfig returns a Config with usable local defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Driver:     StorageSQLite,
			SQLitePath: "contactbook.db",
		},
		Blob: BlobConfig{
			Driver: "fs",
			FSRoot: "./blobdata",
			S3:     S3Config{Region: "us-east-1"},
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile reads the YAML file at path on top of the defaults.
// A missing or empty file yields the defaults. Unknown fields are rejected.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Load reads path (DefaultFile when empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies CONTACTBOOK_* environment overrides.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"CONTACTBOOK_STORAGE_DRIVER":   &c.Storage.Driver,
		"CONTACTBOOK_SQLITE_PATH":      &c.Storage.SQLitePath,
		"CONTACTBOOK_POSTGRES_DSN":     &c.Storage.PostgresDSN,
		"CONTACTBOOK_BLOB_DRIVER":      &c.Blob.Driver,
		"CONTACTBOOK_BLOB_FS_ROOT":     &c.Blob.FSRoot,
		"CONTACTBOOK_BLOB_S3_BUCKET":   &c.Blob.S3.Bucket,
		"CONTACTBOOK_BLOB_S3_REGION":   &c.Blob.S3.Region,
		"CONTACTBOOK_BLOB_S3_ENDPOINT": &c.Blob.S3.Endpoint,
		"CONTACTBOOK_HTTP_ADDR":        &c.HTTP.Addr,
		"CONTACTBOOK_LOG_LEVEL":        &c.Log.Level,
		"CONTACTBOOK_LOG_FORMAT":       &c.Log.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CONTACTBOOK_BLOB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid CONTACTBOOK_BLOB_S3_PATH_STYLE %q: %w", v, err)
		}
		c.Blob.S3.PathStyle = b
	}
	if v := os.Getenv("CONTACTBOOK_LOG_TRACE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid CONTACTBOOK_LOG_TRACE %q: %w", v, err)
		}
		c.Log.Trace = b
	}
	if v := os.Getenv("CONTACTBOOK_HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid CONTACTBOOK_HTTP_SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		c.HTTP.ShutdownTimeout = d
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: storage.sqlite_path cannot be empty for sqlite")
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.postgres_dsn cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return errors.New("config: blob.s3.bucket cannot be empty for s3")
		}
	default:
		return fmt.Errorf("config: unknown blob.driver %q", c.Blob.Driver)
	}
	if c.HTTP.Addr == "" {
		return errors.New("config: http.addr cannot be empty")
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.ShutdownTimeout < 0 {
		return errors.New("config: http timeouts must be non-negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}
