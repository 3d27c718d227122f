package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/tmp/folio"},
		Lookup: LookupConfig{
			DictionaryURL:   "https://dict.example",
			EncyclopediaURL: "https://wiki.example",
		},
		Library: LibraryConfig{CoverConcurrency: 4},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "qa" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"zero cover concurrency", func(c *Config) { c.Library.CoverConcurrency = 0 }},
		{"empty lookup URL", func(c *Config) { c.Lookup.DictionaryURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataPath: "/data/folio"}}

	assert.Equal(t, filepath.Join("/data/folio", "books"), cfg.BooksPath())
	assert.Equal(t, filepath.Join("/data/folio", "metadata"), cfg.MetadataPath())
	assert.Equal(t, filepath.Join("/data/folio", "inbox"), cfg.InboxPath())
}

func TestExpandDataPath_Default(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandDataPath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Folio"), cfg.Storage.DataPath)
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("FOLIO_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "FOLIO_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "FOLIO_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "FOLIO_TEST_MISSING", "default"))
}

func TestGetBoolAndIntConfigValues(t *testing.T) {
	assert.True(t, getBoolConfigValue("yes", "X", false))
	assert.False(t, getBoolConfigValue("no", "X", true))
	assert.True(t, getBoolConfigValue("", "FOLIO_TEST_MISSING", true))

	assert.Equal(t, 7, getIntConfigValue("7", "X", 2))
	assert.Equal(t, 2, getIntConfigValue("seven", "X", 2))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("250ms", "X", "15s")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = parseDurationValue("soon", "X", "15s")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nFOLIO_ENV_FILE_KEY=\"quoted\"\n"), 0644))

	t.Setenv("FOLIO_ENV_FILE_KEY", "")
	os.Unsetenv("FOLIO_ENV_FILE_KEY")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "quoted", os.Getenv("FOLIO_ENV_FILE_KEY"))
}
