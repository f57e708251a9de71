package client

import (
	"time"

	"github.com/kbukum/ssekit/logger"
)

// Metrics receives reconnection counts. observability.SSEMetrics
// implements it.
type Metrics interface {
	ReconnectScheduled(attempt int, delay time.Duration)
	RetriesExhausted()
}

type nopMetrics struct{}

func (nopMetrics) ReconnectScheduled(int, time.Duration) {}
func (nopMetrics) RetriesExhausted()                     {}

type options struct {
	withCredentials bool
	manual          bool
	reconnect       *ReconnectOptions
	dialer          Dialer
	scheduler       Scheduler
	log             *logger.Logger
	metrics         Metrics
}

// Option configures a Connector.
type Option func(*options)

// WithCredentials sends the dialer's credentials (auth and cookies).
func WithCredentials() Option {
	return func(o *options) { o.withCredentials = true }
}

// WithReconnect enables reconnection after transport errors.
func WithReconnect(r ReconnectOptions) Option {
	return func(o *options) { o.reconnect = &r }
}

// WithManualConnection stops Open from connecting.
func WithManualConnection() Option {
	return func(o *options) { o.manual = true }
}

// WithDialer sets how transports are created. Defaults to EventSource
// transports over a default httpclient.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithScheduler sets the timer source for reconnect delays.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type registration struct {
	eventType  string
	fn         Listener
	autoRemove bool
	remove     func()
}

// ListenerOption configures a registration made with Connector.On.
type ListenerOption func(*registration)

// WithoutAutoRemove leaves the listener attached to a transport after the
// connector replaces or disposes of it.
func WithoutAutoRemove() ListenerOption {
	return func(r *registration) { r.autoRemove = false }
}
