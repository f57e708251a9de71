package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/ssekit/httpclient"
	"github.com/kbukum/ssekit/httpclient/sse"
	"github.com/kbukum/ssekit/logger"
)

// DefaultRetry is the wait between native reconnects until the server
// sends a "retry:" field.
const DefaultRetry = 3 * time.Second

// ReadyState mirrors the EventSource readyState values.
type ReadyState int

const (
	ReadyConnecting ReadyState = iota
	ReadyOpen
	ReadyClosed
)

// DialerConfig configures the EventSource transports created by NewDialer.
type DialerConfig struct {
	// Headers are sent on every stream request.
	Headers map[string]string
	// UserAgent overrides the httpclient default.
	UserAgent string
	// Auth and Jar are only used by connectors built WithCredentials.
	Auth *httpclient.AuthConfig
	Jar  http.CookieJar
	// Retry is the native reconnect wait before the server sends one.
	// Defaults to DefaultRetry.
	Retry time.Duration
	// Logger defaults to the global logger.
	Logger *logger.Logger
}

// NewDialer returns a Dialer creating EventSource transports.
func NewDialer(cfg DialerConfig) (Dialer, error) {
	plain, err := httpclient.New(httpclient.Config{
		UserAgent: cfg.UserAgent,
		Headers:   cfg.Headers,
	})
	if err != nil {
		return nil, err
	}
	credentialed, err := httpclient.New(httpclient.Config{
		UserAgent: cfg.UserAgent,
		Headers:   cfg.Headers,
		Auth:      cfg.Auth,
		Jar:       cfg.Jar,
	})
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("eventsource")

	return func(url string, withCredentials bool) (Transport, error) {
		c := plain
		if withCredentials {
			c = credentialed
		}
		return NewEventSource(c, url, cfg.Retry, log), nil
	}, nil
}

// EventSource is a Transport reading one event stream over HTTP. Like the
// browser primitive, it reconnects by itself after the stream ends or the
// network fails, sending Last-Event-ID. An HTTP error status or a
// response that is not text/event-stream closes it for good.
type EventSource struct {
	client *httpclient.Client
	url    string
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	start  sync.Once
	done   chan struct{}

	mu          sync.Mutex
	state       ReadyState
	lastEventID string
	retry       time.Duration
	events      listenerSet[Listener]
	opens       listenerSet[func()]
	errs        listenerSet[func(error)]
	onOpen      func()
	onMessage   Listener
	onError     func(error)
}

var _ Transport = (*EventSource)(nil)

// NewEventSource creates a source for url. Start begins reading it in the
// background. A non-positive retry uses DefaultRetry.
func NewEventSource(client *httpclient.Client, url string, retry time.Duration, log *logger.Logger) *EventSource {
	if retry <= 0 {
		retry = DefaultRetry
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	es := &EventSource{
		client: client,
		url:    url,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		retry:  retry,
	}
	return es
}

// Start implements Transport.
func (es *EventSource) Start() {
	es.start.Do(func() { go es.run() })
}

func (es *EventSource) run() {
	defer close(es.done)

	for {
		terminal, err := es.stream()
		if es.ctx.Err() != nil {
			return
		}
		if terminal {
			es.fail(err)
			return
		}

		es.setState(ReadyConnecting)
		delay := es.retryDelay()
		es.log.Debug("Stream interrupted", map[string]interface{}{
			logger.FieldURL:   es.url,
			logger.FieldError: err.Error(),
			logger.FieldDelay: delay.Milliseconds(),
		})
		es.dispatchError(err)

		t := time.NewTimer(delay)
		select {
		case <-es.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// stream runs one request. terminal reports that the failure must not be
// retried natively.
func (es *EventSource) stream() (terminal bool, err error) {
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	if id := es.LastEventID(); id != "" {
		headers["Last-Event-ID"] = id
	}

	resp, err := es.client.DoStream(es.ctx, httpclient.Request{Path: es.url, Headers: headers})
	if err != nil {
		var httpErr *httpclient.Error
		if errors.As(err, &httpErr) && (httpErr.StatusCode > 0 || httpErr.Code == httpclient.ErrCodeValidation) {
			return true, err
		}
		return false, err
	}
	defer func() { _ = resp.Close() }()

	if resp.StatusCode != http.StatusOK {
		return true, &httpclient.Error{
			StatusCode: resp.StatusCode,
			Code:       httpclient.ErrCodeValidation,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
	if resp.SSE == nil {
		return true, httpclient.NewValidationError(fmt.Sprintf("unexpected content type %q", resp.ContentType))
	}

	es.opened()
	for {
		ev, err := resp.SSE.Next()
		es.remember(resp.SSE)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return false, httpclient.NewConnectionError(fmt.Errorf("stream ended: %w", err))
		}
		es.dispatch(ev)
	}
}

func (es *EventSource) remember(r sse.Reader) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if id := r.LastEventID(); id != "" {
		es.lastEventID = id
	}
	if d := r.Retry(); d > 0 {
		es.retry = d
	}
}

func (es *EventSource) retryDelay() time.Duration {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.retry
}

func (es *EventSource) setState(s ReadyState) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.state = s
}

func (es *EventSource) opened() {
	es.mu.Lock()
	if es.ctx.Err() != nil {
		es.mu.Unlock()
		return
	}
	es.state = ReadyOpen
	fns := es.opens.all()
	slot := es.onOpen
	es.mu.Unlock()

	es.log.Debug("Stream opened", map[string]interface{}{logger.FieldURL: es.url})
	for _, fn := range fns {
		fn()
	}
	if slot != nil {
		slot()
	}
}

func (es *EventSource) dispatch(ev *Event) {
	es.mu.Lock()
	if es.ctx.Err() != nil {
		es.mu.Unlock()
		return
	}
	fns := es.events.match(ev.Type())
	var slot Listener
	if ev.Type() == "message" {
		slot = es.onMessage
	}
	es.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
	if slot != nil {
		slot(ev)
	}
}

func (es *EventSource) dispatchError(err error) {
	es.mu.Lock()
	if es.ctx.Err() != nil {
		es.mu.Unlock()
		return
	}
	fns := es.errs.all()
	slot := es.onError
	es.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
	if slot != nil {
		slot(err)
	}
}

// fail closes the source after a terminal error and reports it.
func (es *EventSource) fail(err error) {
	es.setState(ReadyClosed)
	es.log.Warn("Stream failed", map[string]interface{}{
		logger.FieldURL:   es.url,
		logger.FieldError: err.Error(),
	})
	es.dispatchError(err)
	es.cancel()
}

// AddEventListener implements Transport.
func (es *EventSource) AddEventListener(eventType string, fn Listener) func() {
	es.mu.Lock()
	defer es.mu.Unlock()
	id := es.events.add(eventType, fn)
	return func() {
		es.mu.Lock()
		defer es.mu.Unlock()
		es.events.remove(id)
	}
}

// AddOpenListener implements Transport.
func (es *EventSource) AddOpenListener(fn func()) func() {
	es.mu.Lock()
	defer es.mu.Unlock()
	id := es.opens.add("", fn)
	return func() {
		es.mu.Lock()
		defer es.mu.Unlock()
		es.opens.remove(id)
	}
}

// AddErrorListener implements Transport.
func (es *EventSource) AddErrorListener(fn func(error)) func() {
	es.mu.Lock()
	defer es.mu.Unlock()
	id := es.errs.add("", fn)
	return func() {
		es.mu.Lock()
		defer es.mu.Unlock()
		es.errs.remove(id)
	}
}

// SetOnOpen implements Transport.
func (es *EventSource) SetOnOpen(fn func()) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.onOpen = fn
}

// SetOnMessage implements Transport.
func (es *EventSource) SetOnMessage(fn Listener) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.onMessage = fn
}

// SetOnError implements Transport.
func (es *EventSource) SetOnError(fn func(error)) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.onError = fn
}

// Close stops the source without waiting for the reader goroutine.
func (es *EventSource) Close() error {
	es.mu.Lock()
	es.state = ReadyClosed
	es.mu.Unlock()
	es.cancel()
	es.start.Do(func() { close(es.done) })
	return nil
}

// ReadyState returns the connection state.
func (es *EventSource) ReadyState() ReadyState {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.state
}

// LastEventID returns the last event id received.
func (es *EventSource) LastEventID() string {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.lastEventID
}

// Done is closed once the reader goroutine has exited, or on Close if the
// source was never started.
func (es *EventSource) Done() <-chan struct{} { return es.done }

// listenerSet holds registrations in insertion order.
type listenerSet[F any] struct {
	next    uint64
	entries []listenerEntry[F]
}

type listenerEntry[F any] struct {
	id  uint64
	key string
	fn  F
}

func (s *listenerSet[F]) add(key string, fn F) uint64 {
	s.next++
	s.entries = append(s.entries, listenerEntry[F]{id: s.next, key: key, fn: fn})
	return s.next
}

func (s *listenerSet[F]) remove(id uint64) {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *listenerSet[F]) match(key string) []F {
	var fns []F
	for _, e := range s.entries {
		if e.key == key {
			fns = append(fns, e.fn)
		}
	}
	return fns
}

func (s *listenerSet[F]) all() []F {
	fns := make([]F, 0, len(s.entries))
	for _, e := range s.entries {
		fns = append(fns, e.fn)
	}
	return fns
}
