// Package config provides configuration management for mnemo.
// It loads settings from environment variables with the MNEMO_ prefix and
// provides sensible defaults for all configuration options.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration settings for the mnemo server.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Health   HealthConfig
	Security SecurityConfig
	Backup   BackupConfig
	Features FeaturesConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // HTTP port (default: 7171)
	Host string // HTTP host (default: 127.0.0.1)
}

// StorageConfig contains file-store configuration.
type StorageConfig struct {
	DataPath          string // Data directory (default: ./data)
	GraphFile         string // Graph file name within DataPath (default: memory.jsonl)
	WorkingMemoryFile string // Working-memory file name within DataPath (default: working-memory.json)
}

// GraphPath returns the full path to the graph file.
func (c StorageConfig) GraphPath() string {
	return filepath.Join(c.DataPath, c.GraphFile)
}

// WorkingMemoryPath returns the full path to the working-memory file.
func (c StorageConfig) WorkingMemoryPath() string {
	return filepath.Join(c.DataPath, c.WorkingMemoryFile)
}

// HealthConfig contains diagnostics thresholds.
type HealthConfig struct {
	StaleDays          int     // Staleness threshold in days (default: 60)
	DuplicateThreshold float64 // Name-similarity threshold for duplicates (default: 0.85)
}

// SecurityConfig contains authentication settings for the HTTP surface.
type SecurityConfig struct {
	SecurityMode string // development or production (default: development)
	APIToken     string // Bearer token required in production mode
}

// BackupConfig contains snapshot configuration.
type BackupConfig struct {
	Enabled bool   // Enable periodic snapshots (default: false)
	Path    string // Snapshot directory (default: ./backups)
	Keep    int    // Snapshots to retain (default: 10)
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	EnableHTTP bool // Enable the HTTP read surface (default: false)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the MNEMO_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("MNEMO_PORT", 7171),
			Host: getEnv("MNEMO_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			DataPath:          getEnv("MNEMO_DATA_PATH", "./data"),
			GraphFile:         getEnv("MNEMO_GRAPH_FILE", "memory.jsonl"),
			WorkingMemoryFile: getEnv("MNEMO_WORKING_MEMORY_FILE", "working-memory.json"),
		},
		Health: HealthConfig{
			StaleDays:          getEnvInt("MNEMO_STALE_DAYS", 60),
			DuplicateThreshold: getEnvFloat("MNEMO_DUPLICATE_THRESHOLD", 0.85),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("MNEMO_SECURITY_MODE", "development"),
			APIToken:     getEnv("MNEMO_API_TOKEN", ""),
		},
		Backup: BackupConfig{
			Enabled: getEnvBool("MNEMO_BACKUP_ENABLED", false),
			Path:    getEnv("MNEMO_BACKUP_PATH", "./backups"),
			Keep:    getEnvInt("MNEMO_BACKUP_KEEP", 10),
		},
		Features: FeaturesConfig{
			EnableHTTP: getEnvBool("MNEMO_ENABLE_HTTP", false),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. An unparsable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. An unparsable value falls back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
