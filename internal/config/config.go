package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	// BackendFile stores favorites as a JSON file.
	BackendFile = "file"
	// BackendSQLite stores favorites in a SQLite key/value table.
	BackendSQLite = "sqlite"

	placeholderAPIKey = "your_api_key_here"
)

// Config represents the application configuration shared by the proxy and the client
type Config struct {
	Env       string          `yaml:"env" env:"ENV"`
	TMDB      TMDBConfig      `yaml:"tmdb"`
	HTTP      HTTPConfig      `yaml:"http"`
	Client    ClientConfig    `yaml:"client"`
	Favorites FavoritesConfig `yaml:"favorites"`
}

// TMDBConfig holds TMDB API configuration. The key may be left empty: the
// proxy still starts and answers every request as "not configured".
type TMDBConfig struct {
	APIKey     string `yaml:"api_key" env:"TMDB_API_KEY"`
	APIKeyFile string `yaml:"api_key_file" env:"TMDB_API_KEY_FILE"`
	Language   string `yaml:"language" env:"TMDB_LANGUAGE"`
	BaseURL    string `yaml:"base_url" env:"TMDB_BASE_URL"`
	TimeoutSec int    `yaml:"timeout_sec" env:"TMDB_TIMEOUT_SEC"`
}

// HTTPConfig holds the proxy listener settings
type HTTPConfig struct {
	Addr              string `yaml:"addr" env:"HTTP_ADDR"`
	BasePath          string `yaml:"base_path" env:"HTTP_BASE_PATH"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec" env:"HTTP_REQUEST_TIMEOUT_SEC"`
}

// ClientConfig holds settings for the terminal client talking to the proxy
type ClientConfig struct {
	ProxyURL   string `yaml:"proxy_url" env:"MOVIES_PROXY_URL"`
	TimeoutSec int    `yaml:"timeout_sec" env:"MOVIES_TIMEOUT_SEC"`
}

// FavoritesConfig holds local favorites storage settings
type FavoritesConfig struct {
	Backend string `yaml:"backend" env:"FAVORITES_BACKEND"`
	Dir     string `yaml:"dir" env:"FAVORITES_DIR"`
}

// TMDBTimeout returns the upstream HTTP timeout
func (c *Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDB.TimeoutSec) * time.Second
}

// RequestTimeout returns the per-request deadline applied by the proxy (0 disables it)
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSec) * time.Second
}

// ClientTimeout returns the timeout used by the terminal client
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSec) * time.Second
}

// Load reads the configuration file (if path is not empty), overlays
// environment variables and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		expanded, err := expandHome(path)
		if err != nil {
			return nil, err
		}

		// Read the config file
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to overlay env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Env == "" {
		c.Env = "local"
	}

	// An unedited sample key counts as "not configured"
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == placeholderAPIKey {
		c.TMDB.APIKey = ""
	}
	if c.TMDB.Language == "" {
		c.TMDB.Language = "en-US"
	}
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = "https://api.themoviedb.org/3"
	}
	c.TMDB.BaseURL = strings.TrimRight(c.TMDB.BaseURL, "/")
	if c.TMDB.TimeoutSec <= 0 {
		c.TMDB.TimeoutSec = 30
	}
	if c.TMDB.APIKeyFile != "" {
		p, err := expandHome(c.TMDB.APIKeyFile)
		if err != nil {
			return err
		}
		c.TMDB.APIKeyFile = p
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8080"
	}
	if c.HTTP.BasePath == "" {
		c.HTTP.BasePath = "/api"
	}
	c.HTTP.BasePath = strings.TrimRight(c.HTTP.BasePath, "/")

	if c.Client.ProxyURL == "" {
		c.Client.ProxyURL = "http://127.0.0.1:8080/api"
	}
	c.Client.ProxyURL = strings.TrimRight(c.Client.ProxyURL, "/")
	if c.Client.TimeoutSec <= 0 {
		c.Client.TimeoutSec = 30
	}

	if c.Favorites.Backend == "" {
		c.Favorites.Backend = BackendFile
	}
	if c.Favorites.Dir == "" {
		c.Favorites.Dir = "~/.movie-explorer"
	}
	dir, err := expandHome(c.Favorites.Dir)
	if err != nil {
		return err
	}
	c.Favorites.Dir = dir

	return nil
}

func (c *Config) validate() error {
	switch c.Favorites.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown favorites backend %q (want %q or %q)", c.Favorites.Backend, BackendFile, BackendSQLite)
	}

	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		return fmt.Errorf("http.base_path must start with '/': %q", c.HTTP.BasePath)
	}

	if c.HTTP.RequestTimeoutSec < 0 {
		return fmt.Errorf("http.request_timeout_sec must not be negative")
	}

	return nil
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
