package client

import (
	"time"

	"github.com/kbukum/ssekit/resilience"
	"github.com/kbukum/ssekit/validation"
)

// ReconnectOptions configures linear reconnection. The wait before retry
// n is Interval + n*Delay. A nil Retries retries forever.
type ReconnectOptions struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	Delay    time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0"`
	Retries  *int          `yaml:"retries" mapstructure:"retries" validate:"omitempty,gte=0"`
}

// Backoff returns the delay schedule for these options.
func (o ReconnectOptions) Backoff() resilience.Backoff {
	return resilience.Linear{Interval: o.Interval, Step: o.Delay}
}

// allows reports whether another attempt may follow attempts failed ones.
func (o ReconnectOptions) allows(attempts int) bool {
	return o.Retries == nil || attempts < *o.Retries
}

// Retries returns a pointer to n for ReconnectOptions.Retries.
func Retries(n int) *int { return &n }

// Config is the file/env representation of a connector.
type Config struct {
	URL              string            `yaml:"url" mapstructure:"url" validate:"required,url"`
	WithCredentials  bool              `yaml:"with_credentials" mapstructure:"with_credentials"`
	ManualConnection bool              `yaml:"manual_connection" mapstructure:"manual_connection"`
	Reconnect        *ReconnectOptions `yaml:"reconnect" mapstructure:"reconnect"`
}

// Validate checks the configuration. Failures are INVALID_INPUT errors
// listing each offending field.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Options converts the configuration into connector options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.WithCredentials {
		opts = append(opts, WithCredentials())
	}
	if c.ManualConnection {
		opts = append(opts, WithManualConnection())
	}
	if c.Reconnect != nil {
		opts = append(opts, WithReconnect(*c.Reconnect))
	}
	return opts
}
