package sse

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/ssekit/errors"
	"github.com/kbukum/ssekit/logger"
)

// Connection is a registered stream and the identity it was registered under.
type Connection[T comparable] struct {
	ID     T
	Stream Stream
}

// Metrics receives connection and delivery counts. observability.SSEMetrics
// implements it.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	EventDelivered(event string)
	DeliveryFailed(event string)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened()     {}
func (nopMetrics) ConnectionClosed()     {}
func (nopMetrics) EventDelivered(string) {}
func (nopMetrics) DeliveryFailed(string) {}

type options struct {
	log     *logger.Logger
	metrics Metrics
	config  Config
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfig sets the session configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// Registry tracks open streams by client identity and fans events out to
// them. At most one connection is registered per identity; registering an
// identity again replaces the previous entry.
type Registry[T comparable] struct {
	mu           sync.RWMutex
	clients      map[T]*Connection[T]
	onConnect    func(T)
	onDisconnect func(T)
	closed       bool

	log     *logger.Logger
	metrics Metrics
	config  Config
}

// NewRegistry creates an empty registry.
func NewRegistry[T comparable](opts ...Option) *Registry[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	o.config.ApplyDefaults()

	return &Registry[T]{
		clients: make(map[T]*Connection[T]),
		log:     o.log.WithComponent("sse"),
		metrics: o.metrics,
		config:  o.config,
	}
}

// Config returns the session configuration in effect.
func (r *Registry[T]) Config() Config { return r.config }

// OnConnect sets the callback fired after a client is registered.
// Setting it again replaces the previous callback.
func (r *Registry[T]) OnConnect(fn func(id T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnect = fn
}

// OnDisconnect sets the callback fired after a client is removed.
// Setting it again replaces the previous callback.
func (r *Registry[T]) OnDisconnect(fn func(id T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnect = fn
}

// AddClient registers stream under id, replacing any existing entry, and
// fires the connect callback. A replaced stream is left open; its own
// session ends it.
func (r *Registry[T]) AddClient(id T, stream Stream) {
	r.add(id, stream, false)
}

// addIfOpen registers stream like AddClient unless the registry is closed.
// The check and the insert happen under one lock, so a concurrent Close
// either sees the stream or the stream is refused.
func (r *Registry[T]) addIfOpen(id T, stream Stream) bool {
	return r.add(id, stream, true)
}

func (r *Registry[T]) add(id T, stream Stream, requireOpen bool) bool {
	r.mu.Lock()
	if requireOpen && r.closed {
		r.mu.Unlock()
		return false
	}
	_, replaced := r.clients[id]
	r.clients[id] = &Connection[T]{ID: id, Stream: stream}
	total := len(r.clients)
	cb := r.onConnect
	r.mu.Unlock()

	if !replaced {
		r.metrics.ConnectionOpened()
	}
	r.log.Debug("Client registered", map[string]interface{}{
		logger.FieldClientID: fmt.Sprint(id),
		logger.FieldClients:  total,
		"replaced":           replaced,
	})
	if cb != nil {
		cb(id)
	}
	return true
}

// RemoveClient removes id. The disconnect callback fires only if an entry
// was removed, so removing an unknown id is a silent no-op.
func (r *Registry[T]) RemoveClient(id T) {
	r.remove(id, nil)
}

// remove deletes id if present and, when owner is non-nil, still bound to
// owner. It reports whether an entry was removed.
func (r *Registry[T]) remove(id T, owner Stream) bool {
	r.mu.Lock()
	conn, ok := r.clients[id]
	if !ok || (owner != nil && conn.Stream != owner) {
		r.mu.Unlock()
		return false
	}
	delete(r.clients, id)
	total := len(r.clients)
	cb := r.onDisconnect
	r.mu.Unlock()

	r.metrics.ConnectionClosed()
	r.log.Debug("Client unregistered", map[string]interface{}{
		logger.FieldClientID: fmt.Sprint(id),
		logger.FieldClients:  total,
	})
	if cb != nil {
		cb(id)
	}
	return true
}

// Emit writes one event to the client registered under id. It returns a
// CLIENT_NOT_FOUND error for unknown ids and a WRITE_FAILED error wrapping
// the stream's error when the write is rejected.
func (r *Registry[T]) Emit(id T, event, data string) error {
	r.mu.RLock()
	conn, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return errors.ClientNotFound(id)
	}
	return r.write(conn, event, Frame{Event: event, Data: data}.Encode())
}

// EmitMultiple writes one event to each listed client. Unknown ids are
// skipped; only write failures are reported, as a *DeliveryError.
func (r *Registry[T]) EmitMultiple(ids []T, event, data string) error {
	r.mu.RLock()
	targets := make([]*Connection[T], 0, len(ids))
	for _, id := range ids {
		if conn, ok := r.clients[id]; ok {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	return r.fanOut(targets, event, data)
}

// Broadcast writes one event to every registered client. Every client is
// attempted; failures are reported together as a *DeliveryError.
func (r *Registry[T]) Broadcast(event, data string) error {
	targets := r.snapshot()
	err := r.fanOut(targets, event, data)

	r.log.Debug("Broadcast sent", map[string]interface{}{
		logger.FieldEvent:   event,
		logger.FieldClients: len(targets),
		"failed":            failedCount(err),
	})
	return err
}

func (r *Registry[T]) fanOut(targets []*Connection[T], event, data string) error {
	if len(targets) == 0 {
		return nil
	}
	frame := Frame{Event: event, Data: data}.Encode()

	var errs []error
	for _, conn := range targets {
		if err := r.write(conn, event, frame); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &DeliveryError{Event: event, Attempted: len(targets), Errs: errs}
}

func (r *Registry[T]) write(conn *Connection[T], event string, frame []byte) error {
	if err := conn.Stream.Write(frame); err != nil {
		r.metrics.DeliveryFailed(event)
		r.log.Warn("Event delivery failed", map[string]interface{}{
			logger.FieldClientID: fmt.Sprint(conn.ID),
			logger.FieldEvent:    event,
			logger.FieldError:    err.Error(),
		})
		return errors.WriteFailed(conn.ID, err)
	}
	r.metrics.EventDelivered(event)
	return nil
}

func (r *Registry[T]) snapshot() []*Connection[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection[T], 0, len(r.clients))
	for _, conn := range r.clients {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of registered clients.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// IDs returns the registered identities in no particular order.
func (r *Registry[T]) IDs() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]T, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether id is registered.
func (r *Registry[T]) Has(id T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[id]
	return ok
}

// Close removes and closes every registered stream, firing the disconnect
// callback for each. New sessions are refused afterwards.
func (r *Registry[T]) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	conns := r.snapshot()
	for _, conn := range conns {
		if r.remove(conn.ID, conn.Stream) {
			_ = conn.Stream.Close()
		}
	}
	r.log.Info("Registry closed", map[string]interface{}{logger.FieldClients: len(conns)})
	return nil
}

func (r *Registry[T]) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// DeliveryError reports the per-connection failures of a fan-out. Each
// entry is a WRITE_FAILED *errors.AppError naming the client.
type DeliveryError struct {
	Event     string
	Attempted int
	Errs      []error
}

// Error implements error.
func (e *DeliveryError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("sse: %d of %d deliveries of %q failed: %s",
		len(e.Errs), e.Attempted, e.Event, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *DeliveryError) Unwrap() []error { return e.Errs }

func failedCount(err error) int {
	if de, ok := err.(*DeliveryError); ok {
		return len(de.Errs)
	}
	return 0
}
