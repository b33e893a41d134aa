package model

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	ConfigFileName = "config.yml"
	StoreDirName   = "store"

	StoreBackendMemory = "memory"
	StoreBackendFile   = "file"
	StoreBackendBadger = "badger"
)

type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Update  UpdateConfig  `yaml:"update"`
	Influx  InfluxConfig  `yaml:"influx"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type UpdateConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

type InfluxConfig struct {
	Url    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (c InfluxConfig) Enabled() bool {
	return c.Url != ""
}

type MetricsConfig struct {
	Address string `yaml:"address"`
}

func DefaultConfig() *Config {
	return &Config{
		Store:  StoreConfig{Backend: StoreBackendMemory},
		Update: UpdateConfig{MaxAttempts: 5},
	}
}

// LocalConfig returns the defaults with a file store under dir, so state outlives the process.
func LocalConfig(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{Backend: StoreBackendFile, Path: filepath.Join(dir, StoreDirName)}
	return cfg
}

// ConfigDir returns ~/.modelctl, the home of the config file and of the default stores.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to locate home directory")
	}
	return filepath.Join(home, ".modelctl"), nil
}

// LoadConfig reads the config at path, filling anything left unset with defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config [%s]", path)
	}

	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to parse config [%s]", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config [%s]", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendFile, StoreBackendBadger:
		if c.Store.Path == "" {
			return errors.Errorf("store backend '%s' requires a path", c.Store.Backend)
		}
	default:
		return errors.Errorf("unknown store backend '%s'", c.Store.Backend)
	}
	if c.Update.MaxAttempts < 1 {
		return errors.Errorf("update.max_attempts must be at least 1, got %d", c.Update.MaxAttempts)
	}
	if c.Influx.Enabled() && c.Influx.Bucket == "" {
		return errors.New("influx.bucket is required when influx.url is set")
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "unable to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "unable to create config directory")
	}
	return os.WriteFile(path, data, 0600)
}
