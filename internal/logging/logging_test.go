package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "debug", Out: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("pushed", "branch", "main")
	out := buf.String()
	assert.Contains(t, out, Prefix)
	assert.Contains(t, out, "pushed")
	assert.Contains(t, out, "branch=main")
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Out: &buf})
	require.NoError(t, err)

	logger.Info("quiet")
	assert.Empty(t, buf.String())
	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zgs.log")
	logger, closer, err := New(Options{File: path})
	require.NoError(t, err)
	logger.Info("fetched", "remote", "origin")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "remote=origin")
}
