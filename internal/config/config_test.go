package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "origin", cfg.RemoteName)
	assert.Equal(t, "main", cfg.DefaultBranch)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 2*time.Minute, cfg.NetworkTimeout)
	assert.Equal(t, 2*time.Second, cfg.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, Hosting{TokenEnv: "GITHUB_TOKEN", UserAgent: "zgs", MaxPages: 5}, cfg.Hosting)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	body := "remote_name: upstream\nnetwork_timeout: 45s\noutput: json\nhosting:\n  api_url: https://ghe.example.com/api/v3/\n  max_pages: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))

	cfg, err := load(dir)
	require.NoError(t, err)
	assert.Equal(t, "upstream", cfg.RemoteName)
	assert.Equal(t, 45*time.Second, cfg.NetworkTimeout)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.Hosting.APIURL)
	assert.Equal(t, 2, cfg.Hosting.MaxPages)
	assert.Equal(t, "GITHUB_TOKEN", cfg.Hosting.TokenEnv)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZGS_DEFAULT_BRANCH", "trunk")
	t.Setenv("ZGS_HOSTING_TOKEN_ENV", "ZGS_TEST_TOKEN")
	t.Setenv("ZGS_TEST_TOKEN", "  tok  ")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "trunk", cfg.DefaultBranch)
	assert.Equal(t, "tok", cfg.Hosting.Token())
}

func TestLoadFileRejectsBadOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zgs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: xml\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "output")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTokenWithoutEnvName(t *testing.T) {
	assert.Empty(t, Hosting{}.Token())
}
