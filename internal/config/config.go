package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	appLog "edgemaint/internal/log"
)

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "UTC"
	defaultLogLevel      = "info"
	defaultBackendURL    = "http://127.0.0.1:9090/api/v1"
	defaultTimeout       = 15 * time.Second
	defaultRetryAttempts = 3
	defaultZoneCacheSize = 512
	defaultPreviewCount  = 5
	defaultProductID     = "-//edgemaint//maintenance windows//EN"
)

// BackendConfig points at the schedule store.
type BackendConfig struct {
	// URL is the base of the maintenance REST resource.
	URL string `yaml:"url" json:"url"`
	// Timeout bounds a single HTTP request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// RetryAttempts counts attempts per request, including the first.
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
}

// PreviewConfig controls the upcoming-window listing.
type PreviewConfig struct {
	Count int `yaml:"count" json:"count"`
}

// ICSConfig controls calendar export.
type ICSConfig struct {
	ProductID string `yaml:"product_id" json:"product_id"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used when a request names none.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ZoneCacheSize bounds the number of loaded zones kept in memory.
	ZoneCacheSize int `yaml:"zone_cache_size" json:"zone_cache_size"`

	Backend BackendConfig `yaml:"backend" json:"backend"`
	Preview PreviewConfig `yaml:"preview" json:"preview"`
	ICS     ICSConfig     `yaml:"ics" json:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so partially
// filled files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ZoneCacheSize <= 0 {
		c.ZoneCacheSize = defaultZoneCacheSize
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaultBackendURL
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = defaultTimeout
	}
	if c.Backend.RetryAttempts <= 0 {
		c.Backend.RetryAttempts = defaultRetryAttempts
	}
	if c.Preview.Count <= 0 {
		c.Preview.Count = defaultPreviewCount
	}
	if c.ICS.ProductID == "" {
		c.ICS.ProductID = defaultProductID
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("config: backend.url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: backend.url %q is not an absolute http(s) URL", c.Backend.URL)
	}
	return nil
}

// Load reads the YAML file at path. Unknown keys are rejected.
//
// On first run the file does not exist: the defaults are written to path
// and returned, together with any error from writing them.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty path")
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save normalizes cfg and replaces path with it. The file is readable by
// the owner only.
func Save(path string, cfg *Config) error {
	switch {
	case path == "":
		return errors.New("config: empty path")
	case cfg == nil:
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place, so
// readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
