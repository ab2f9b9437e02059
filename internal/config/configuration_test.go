package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Success_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, "data/raw", cfg.RawDir)
	require.Equal(t, "data/processed", cfg.ProcessedDir)
	require.Equal(t, "dir", cfg.TableBackend)
	require.True(t, cfg.CSVExport)
	require.Equal(t, 10, cfg.DatabaseRetries)
	require.Equal(t, 10, cfg.TopN)
	require.Equal(t, 8080, cfg.WebServerPort)
	require.Equal(t, DefaultKeywords, cfg.AnalyzeKeywords)
	require.False(t, cfg.KeywordCaseInsensitive)
}

func TestLoadConfig_PostgresRequiresDSN(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("TABLE_BACKEND", "postgres")
	// Missing DATABASE_DSN

	cfg, err := LoadConfig(context.Background())
	require.Error(t, err)
	require.Nil(t, cfg)

	t.Setenv("DATABASE_DSN", "postgres://example")
	cfg, err = LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "postgres://example", cfg.DatabaseDSN)
}

func TestLoadConfig_ValidationError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("TABLE_BACKEND", "parquet")

	cfg, err := LoadConfig(context.Background())
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("RAW_DIR", "/tmp/raw")
	t.Setenv("TOP_N", "3")
	t.Setenv("ANALYZE_KEYWORDS", "go, rust ,,zig")
	t.Setenv("KEYWORD_CASE_INSENSITIVE", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/tmp/raw", cfg.RawDir)
	require.Equal(t, 3, cfg.TopN)
	require.Equal(t, []string{"go", "rust", "zig"}, cfg.AnalyzeKeywords)
	require.True(t, cfg.KeywordCaseInsensitive)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnv_DoesNotOverrideAndIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("TUBESTATS_TEST_A=fromfile\nTUBESTATS_TEST_B=fromfile\n"), 0o600))

	t.Setenv("TUBESTATS_TEST_A", "fromenv")
	os.Unsetenv("TUBESTATS_TEST_B")
	t.Cleanup(func() { os.Unsetenv("TUBESTATS_TEST_B") })

	require.NoError(t, LoadDotEnv(p, filepath.Join(dir, "missing.env")))
	require.Equal(t, "fromenv", os.Getenv("TUBESTATS_TEST_A"))
	require.Equal(t, "fromfile", os.Getenv("TUBESTATS_TEST_B"))
}
