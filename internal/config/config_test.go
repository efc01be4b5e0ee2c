// SPDX-License-Identifier: MIT

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
	t.Setenv("PAPERCAST_DATA", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultUndoWindow, cfg.UndoWindow)
	assert.Equal(t, int64(DefaultMaxFetchBytes), cfg.MaxFetchBytes)
	assert.True(t, cfg.MetricsOn)
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":9000\"\nundoWindow: 5m\n"), 0o644))

	t.Setenv("PAPERCAST_DATA", dir)
	t.Setenv("PAPERCAST_LISTEN", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	// ENV wins over file, file wins over default.
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.UndoWindow)
}

func TestLoadAutoDiscoversDataDirConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logLevel: debug\n"), 0o644))
	t.Setenv("PAPERCAST_DATA", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PAPERCAST_DATA", t.TempDir())
	t.Setenv("PAPERCAST_MAX_FETCH_BYTES", "-1")

	_, err := Load("")
	require.Error(t, err)
}

func TestParseHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "not-a-number")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 7, ParseInt("X_INT", 7))
	assert.Equal(t, true, ParseBool("X_BOOL", true))
	assert.Equal(t, time.Second, ParseDuration("X_DUR", time.Second))
	assert.Equal(t, "fallback", ParseString("X_MISSING", "fallback"))
}
