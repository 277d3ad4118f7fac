package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7400"
	DefaultDBFileName = ".beehive.db"
	DefaultDataFile   = ".beehive.json"

	BackendSQLite = "sqlite"
	BackendFile   = "file"

	configDirEnvKey = "BEEHIVE_CONFIG_DIR"
	apiURLEnvKey    = "BEEHIVE_API_URL"
	apiKeyEnvKey    = "BEEHIVE_API_KEY"
)

// Config defines runtime configuration for beehive.
type Config struct {
	APIURL   string `toml:"api_url"`
	APIKey   string `toml:"api_key"`
	Project  string `toml:"project"`
	Backend  string `toml:"backend"`
	DBPath   string `toml:"db_path"`
	DataPath string `toml:"data_path"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:  DefaultAPIURL,
		Backend: BackendSQLite,
	}
}

// Load reads config from the config file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if err := loadFileIfExists(path, &cfg); err != nil {
		return nil, err
	}

	if url := strings.TrimSpace(os.Getenv(apiURLEnvKey)); url != "" {
		cfg.APIURL = url
	}
	if key := strings.TrimSpace(os.Getenv(apiKeyEnvKey)); key != "" {
		cfg.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that hold regardless of where values came
// from.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendFile:
	case "":
		c.Backend = BackendSQLite
	default:
		return fmt.Errorf("invalid backend %q: expected %q or %q", c.Backend, BackendSQLite, BackendFile)
	}
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url is required")
	}
	return nil
}

// ResolveDBPath returns the SQLite path, defaulting to the home dir.
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDBFileName), nil
}

// ResolveDataPath returns the file-backend path, defaulting to the home
// dir.
func (c *Config) ResolveDataPath() (string, error) {
	if c.DataPath != "" {
		return c.DataPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDataFile), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, ".beehive.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".beehive.toml"), nil
}

// Save writes the config back to its file.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
