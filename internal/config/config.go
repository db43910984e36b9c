package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDays    = 90
	DefaultRefresh = "*/15 * * * *"
	DefaultListen  = "127.0.0.1:8080"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for serve mode.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Days is the window half-width around now.
	Days int `yaml:"days"`

	// Emails identify the user; events they declined are dropped.
	Emails []string `yaml:"emails"`

	// Timezone is the IANA rendering timezone. Empty means the local zone.
	Timezone string `yaml:"timezone"`

	// IncludeLocation appends " - LOCATION" to titles that have a summary.
	IncludeLocation bool `yaml:"include_location"`

	// ContinueOnError skips failing documents, events and instances
	// instead of aborting the run.
	ContinueOnError bool `yaml:"continue_on_error"`

	// Sources are calendar file paths, "-" for stdin, or http(s) URLs.
	Sources []string `yaml:"sources"`

	// Output is the agenda file path, or "-" for stdout.
	Output string `yaml:"output"`

	// CacheDir stores fetched remote calendars. Empty disables caching.
	CacheDir string `yaml:"cache_dir"`

	// Refresh is the cron schedule used by watch mode.
	Refresh string `yaml:"refresh"`

	// Listen is the HTTP listen address used by serve mode.
	Listen string `yaml:"listen"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Days:    DefaultDays,
		Emails:  []string{},
		Sources: []string{},
		Output:  "-",
		Refresh: DefaultRefresh,
		Listen:  DefaultListen,
	}
}

// Normalize fills in missing or invalid values with defaults.
func (c *Config) Normalize() {
	if c.Days < 0 {
		c.Days = DefaultDays
	}
	if c.Emails == nil {
		c.Emails = []string{}
	}
	if c.Sources == nil {
		c.Sources = []string{}
	}
	if c.Output == "" {
		c.Output = "-"
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone; an empty name yields time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

// Load reads configuration from the YAML file at path. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling config %s", path)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data via a temp file in the same
// directory, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icalagenda-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
