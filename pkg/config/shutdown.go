package config

import (
	"fmt"
	"strings"
	"time"
)

// ShutdownConfig bounds graceful shutdown.
// Grace is how long the gRPC health status reads NOT_SERVING before the servers stop
// accepting requests. It counts against Timeout.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Grace   time.Duration `koanf:"grace"`
}

// String returns a string representation of the shutdown configuration.
func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  shutdown.grace: %s\n", c.Grace))
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.Timeout)
	case c.Grace < 0:
		return fmt.Errorf("shutdown grace must not be negative, got %s", c.Grace)
	case c.Grace >= c.Timeout:
		return fmt.Errorf("shutdown grace %s must be shorter than the timeout %s", c.Grace, c.Timeout)
	}
	return nil
}

// Remaining returns the part of Timeout left for stopping servers once Grace has passed.
func (c *ShutdownConfig) Remaining() time.Duration {
	return c.Timeout - c.Grace
}
