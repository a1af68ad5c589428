package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved application configuration.
type Config struct {
	// RemoteName is the only remote the sync core reasons about.
	RemoteName string `mapstructure:"remote_name"`
	// DefaultBranch is where init points HEAD and what provisioning tracks.
	DefaultBranch string `mapstructure:"default_branch"`
	// CommandTimeout bounds local git invocations.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// NetworkTimeout bounds fetch, pull and push.
	NetworkTimeout time.Duration `mapstructure:"network_timeout"`
	// CacheTTL is the lifetime of cached engine reads. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// WatchDebounce coalesces bursts of .git changes in watch mode.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	LogLevel      string        `mapstructure:"log_level"`
	// LogFile is appended to; stderr when empty.
	LogFile string `mapstructure:"log_file"`
	// Output is text, json or yaml.
	Output  string  `mapstructure:"output"`
	Hosting Hosting `mapstructure:"hosting"`
}

// Hosting configures the repository hosting API.
type Hosting struct {
	// APIURL overrides the public GitHub API (for GitHub Enterprise).
	APIURL string `mapstructure:"api_url"`
	// TokenEnv names the environment variable holding the access token.
	// The token itself is never read from the config file.
	TokenEnv  string `mapstructure:"token_env"`
	UserAgent string `mapstructure:"user_agent"`
	MaxPages  int    `mapstructure:"max_pages"`
}

// Token reads the access token from the configured environment variable.
func (h Hosting) Token() string {
	if h.TokenEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(h.TokenEnv))
}

// Load reads configuration from $XDG_CONFIG_HOME/zgs/config.yaml (or
// ~/.config/zgs, then the current directory). A missing file is fine.
func Load() (*Config, error) {
	return load(configDirectory(), ".")
}

// LoadFile reads configuration from an explicit file.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func load(paths ...string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ZGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("config: output must be text, json or yaml, got %q", c.Output)
	}
	if strings.TrimSpace(c.RemoteName) == "" {
		return errors.New("config: remote_name must not be empty")
	}
	if strings.TrimSpace(c.DefaultBranch) == "" {
		return errors.New("config: default_branch must not be empty")
	}
	if c.CommandTimeout <= 0 || c.NetworkTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	return nil
}

func configDirectory() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zgs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "zgs")
}
