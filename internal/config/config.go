// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Lookup  LookupConfig
	Library LibraryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds app-data storage configuration.
// DataPath is the sandboxed application-data directory. The book assets,
// metadata records, key-value store, and search index all live under it.
type StorageConfig struct {
	DataPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 7337)
	ShellOrigin  string        // Origin of the desktop shell webview, for CORS
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LookupConfig holds dictionary/encyclopedia lookup configuration.
type LookupConfig struct {
	// DictionaryURL is the base URL of the dictionary entries endpoint.
	DictionaryURL string
	// EncyclopediaURL is the base URL of the encyclopedia summary endpoint.
	EncyclopediaURL string
	// Timeout bounds each remote lookup request.
	Timeout time.Duration
}

// LibraryConfig holds book library configuration.
type LibraryConfig struct {
	// CoverConcurrency is the number of covers loaded in parallel (default: 4)
	CoverConcurrency int
	// WatchInbox enables the drop-folder importer on {data}/inbox (default: true)
	WatchInbox bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Application data directory")
	serverPort := flag.String("port", "", "Server port (default: 7337)")
	shellOrigin := flag.String("shell-origin", "", "Desktop shell origin allowed by CORS")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	dictionaryURL := flag.String("dictionary-url", "", "Dictionary lookup base URL")
	encyclopediaURL := flag.String("encyclopedia-url", "", "Encyclopedia summary base URL")
	lookupTimeout := flag.String("lookup-timeout", "", "Remote lookup timeout (default: 10s)")
	coverConcurrency := flag.String("cover-concurrency", "", "Parallel cover loads (default: 4)")
	watchInbox := flag.String("watch-inbox", "", "Watch the inbox drop folder (default: true)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "FOLIO_DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "7337"),
			ShellOrigin: getConfigValue(*shellOrigin, "SHELL_ORIGIN", "tauri://localhost"),
		},
		Lookup: LookupConfig{
			DictionaryURL:   getConfigValue(*dictionaryURL, "DICTIONARY_URL", "https://api.dictionaryapi.dev/api/v2/entries/en"),
			EncyclopediaURL: getConfigValue(*encyclopediaURL, "ENCYCLOPEDIA_URL", "https://en.wikipedia.org/api/rest_v1/page/summary"),
		},
		Library: LibraryConfig{
			CoverConcurrency: getIntConfigValue(*coverConcurrency, "COVER_CONCURRENCY", 4),
			WatchInbox:       getBoolConfigValue(*watchInbox, "WATCH_INBOX", true),
		},
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	cfg.Lookup.Timeout, err = parseDurationValue(*lookupTimeout, "LOOKUP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Library.CoverConcurrency < 1 {
		return fmt.Errorf("cover concurrency must be at least 1, got %d", c.Library.CoverConcurrency)
	}

	if c.Lookup.DictionaryURL == "" || c.Lookup.EncyclopediaURL == "" {
		return errors.New("lookup endpoints cannot be empty")
	}

	return nil
}

// BooksPath returns the directory holding imported EPUB assets and covers.
func (c *Config) BooksPath() string {
	return filepath.Join(c.Storage.DataPath, "books")
}

// MetadataPath returns the directory holding per-book metadata records.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Storage.DataPath, "metadata")
}

// InboxPath returns the drop folder watched for new EPUB files.
func (c *Config) InboxPath() string {
	return filepath.Join(c.Storage.DataPath, "inbox")
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Folio when unset.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Folio")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// parseDurationValue resolves a duration setting from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), str, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty of flag, env var, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already present in the environment.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
