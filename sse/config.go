package sse

import (
	"fmt"
	"time"
)

const (
	// DefaultPath is where the stream endpoint is mounted.
	DefaultPath = "/events"
	// DefaultKeepaliveInterval stays under the 60s idle timeout common to proxies.
	DefaultKeepaliveInterval = 30 * time.Second
	// DefaultQueueSize is the per-connection frame buffer.
	DefaultQueueSize = 64
)

// Config configures stream sessions.
type Config struct {
	// Path is the route prefix for GET <path>/:id.
	Path string `yaml:"path" mapstructure:"path"`
	// KeepaliveInterval between ": keepalive" comments. Negative disables them.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval" mapstructure:"keepalive_interval"`
	// QueueSize bounds the frames buffered per connection.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	// RetryHint, when positive, is sent as "retry:" when a stream opens.
	RetryHint time.Duration `yaml:"retry_hint" mapstructure:"retry_hint"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("sse.path must start with / (got: %q)", c.Path)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("sse.queue_size must be at least 1 (got: %d)", c.QueueSize)
	}
	if c.RetryHint < 0 {
		return fmt.Errorf("sse.retry_hint must not be negative (got: %v)", c.RetryHint)
	}
	return nil
}
