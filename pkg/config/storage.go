package config

import (
	"fmt"
	"strings"
	"time"
)

// Storage drivers understood by the application.
const (
	StorageDriverFile     = "file"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// StorageConfig selects and configures the backend holding the inventory document.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	File   struct {
		Path string `koanf:"path"`
	} `koanf:"file"`
	SQLite struct {
		Path string `koanf:"path"`
	} `koanf:"sqlite"`
	Postgres DatabaseConfig `koanf:"postgres"`
}

type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  storage.driver: %s\n", c.Driver))
	switch c.Driver {
	case StorageDriverSQLite:
		b.WriteString(fmt.Sprintf("  storage.sqlite.path: %s\n", c.SQLite.Path))
	case StorageDriverPostgres:
		b.WriteString(fmt.Sprintf("  storage.postgres.url: %s\n", maskURL(c.Postgres.URL)))
		b.WriteString(fmt.Sprintf("  storage.postgres.timeout: %s\n", c.Postgres.Timeout))
	default:
		b.WriteString(fmt.Sprintf("  storage.file.path: %s\n", c.File.Path))
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverFile:
		if c.File.Path == "" {
			return fmt.Errorf("storage file path is not configured")
		}
	case StorageDriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("storage sqlite path is not configured")
		}
	case StorageDriverPostgres:
		return c.Postgres.Validate()
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Driver)
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", maskURL(c.URL))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout is not configured")
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}
