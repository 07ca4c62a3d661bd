package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
}

func TestLoadAppliesDefaults(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Sync.DConfirmedDays)
	require.Equal(t, 4, cfg.Sync.DSuspectedDays)
	require.Equal(t, "Transfers", cfg.Sync.TransferCategory)
	require.Equal(t, 4, cfg.Concurrency.Ceiling)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	content := []byte("remote:\n  base_url: https://example.test\narchive:\n  root: /tmp/archive\n  layout: single_file\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledgersync.yaml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "https://example.test", cfg.Remote.BaseURL)
	require.Equal(t, "single_file", cfg.Archive.Layout)
}

func TestRemoteTokenDefaultsEnvVarName(t *testing.T) {
	resetViper()
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "LEDGERSYNC_TOKEN", cfg.Remote.TokenEnvVar)
}
