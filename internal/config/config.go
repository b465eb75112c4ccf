// Package config holds the inventory service configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/inventory/pkg/config"
	"github.com/abgdnv/inventory/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Storage        config.StorageConfig        `koanf:"storage"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	GRPC           config.GrpcServerConfig     `koanf:"grpc"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	NATS           config.NATSConfig           `koanf:"nats"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
}

// Defaults returns the built-in configuration, overridden by config.yaml, .env and the environment.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                        3001,
		"server.maxHeaderBytes":              1 << 20,
		"server.timeout.read":                "10s",
		"server.timeout.write":               "10s",
		"server.timeout.idle":                "60s",
		"server.timeout.readHeader":          "5s",
		"storage.driver":                     config.StorageDriverFile,
		"storage.file.path":                  "inventory.json",
		"storage.sqlite.path":                "inventory.db",
		"storage.postgres.timeout":           "5s",
		"log.level":                          "info",
		"pprof.enabled":                      false,
		"pprof.addr":                         "localhost:6060",
		"grpc.enabled":                       true,
		"grpc.port":                          "50051",
		"grpc.reflection":                    false,
		"shutdown.timeout":                   "10s",
		"shutdown.grace":                     "1s",
		"nats.enabled":                       false,
		"nats.url":                           "nats://localhost:4222",
		"nats.timeout":                       "5s",
		"nats.stream":                        "INVENTORY",
		"circuitbreaker.consecutivefailures": 5,
		"circuitbreaker.errorratepercent":    60,
		"circuitbreaker.opentimeout":         "30s",
		"telemetry.traces.enabled":           false,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  "5s",
		"telemetry.metrics.enabled":          true,
		"telemetry.metrics.path":             "/metrics",
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.CircuitBreaker.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer,
		&c.Storage,
		&c.Log,
		&c.PProf,
		&c.GRPC,
		&c.Shutdown,
		&c.NATS,
		&c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.NATS.Enabled {
		if err := c.CircuitBreaker.Validate(); err != nil {
			return fmt.Errorf("nats publisher: %w", err)
		}
	}
	return nil
}
