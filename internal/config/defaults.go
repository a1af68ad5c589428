package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values. Kept separate so the CLI can show them in flag help.
const (
	DefaultRemoteName     = "origin"
	DefaultBranch         = "main"
	DefaultCommandTimeout = 30 * time.Second
	DefaultNetworkTimeout = 2 * time.Minute
	DefaultCacheTTL       = 2 * time.Second
	DefaultWatchDebounce  = 500 * time.Millisecond
	DefaultTokenEnv       = "GITHUB_TOKEN"
	DefaultUserAgent      = "zgs"
	DefaultMaxPages       = 5
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote_name", DefaultRemoteName)
	v.SetDefault("default_branch", DefaultBranch)
	v.SetDefault("command_timeout", DefaultCommandTimeout)
	v.SetDefault("network_timeout", DefaultNetworkTimeout)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("watch_debounce", DefaultWatchDebounce)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("output", "text")
	v.SetDefault("hosting.api_url", "")
	v.SetDefault("hosting.token_env", DefaultTokenEnv)
	v.SetDefault("hosting.user_agent", DefaultUserAgent)
	v.SetDefault("hosting.max_pages", DefaultMaxPages)
}
