package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.txt")
	contents := "BASE_URL=https://example.test\n" +
		"ORGANIZER=acme\n" +
		"EVENT=winter-series\n" +
		"BATCH_SIZE=250\n" +
		"NORMALIZE_CUR=Y\n" +
		"# a comment\n" +
		"UNKNOWN_KEY=ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	t.Setenv("BATTLE_API_USERNAME", "u")
	t.Setenv("BATTLE_API_PASSWORD", "p")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://example.test", cfg.BaseURL)
	require.Equal(t, "acme", cfg.Organizer)
	require.Equal(t, 250, cfg.BatchSize)
	require.Equal(t, defaultBatchLimit, cfg.BatchLimit)
	require.True(t, cfg.NormalizeCur)
	require.Equal(t, "u", cfg.Username)
	require.Equal(t, "p", cfg.Password)
}

func TestLoadMissingFileStillReadsEnv(t *testing.T) {
	t.Setenv("BATTLE_API_USERNAME", "u")
	t.Setenv("BATTLE_API_PASSWORD", "p")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	require.Equal(t, defaultBatchSize, cfg.BatchSize)
	require.Equal(t, "u", cfg.Username)
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "https://example.test"
	cfg.Organizer = "acme"
	cfg.Event = "series"
	require.Error(t, cfg.Validate())
}

func TestResolveDataRootCreatesSubdirs(t *testing.T) {
	root := t.TempDir()
	paths, err := ResolveDataRoot(root)
	require.NoError(t, err)

	for _, dir := range []string{paths.Database, paths.Logs, paths.Archive} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
