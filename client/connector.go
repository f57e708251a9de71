package client

import (
	"slices"
	"sync"

	"github.com/kbukum/ssekit/logger"
)

// State is the connector's position in its reconnect cycle.
type State int

const (
	// StateDisconnected means no transport is live. It is also the terminal
	// state after Close or once retries are exhausted.
	StateDisconnected State = iota
	// StateOpen means a transport exists. It may still be connecting.
	StateOpen
	// StateScheduledRetry means a reconnect is pending.
	StateScheduledRetry
)

var stateNames = map[State]string{
	StateDisconnected:   "disconnected",
	StateOpen:           "open",
	StateScheduledRetry: "scheduled_retry",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Connector keeps one logical event stream alive over a transport that is
// recreated after errors. Listeners and handlers registered on the
// connector follow it onto every new transport.
type Connector struct {
	url  string
	opts options
	log  *logger.Logger

	mu        sync.Mutex
	transport Transport
	detach    []func()
	attempts  int
	timer     Timer
	gen       uint64
	closed    bool
	exhausted bool

	onOpen      func()
	onMessage   Listener
	onError     func(error)
	onExhausted func()
	listeners   []*registration
}

// New creates a connector for url. It does not connect; call Open or
// Connect.
func New(url string, opts ...Option) (*Connector, error) {
	o := options{
		scheduler: realScheduler{},
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Config{URL: url, Reconnect: o.reconnect}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.dialer == nil {
		d, err := NewDialer(DialerConfig{})
		if err != nil {
			return nil, err
		}
		o.dialer = d
	}

	return &Connector{
		url:  url,
		opts: o,
		log:  o.log.WithComponent("sse-client"),
	}, nil
}

// NewFromConfig creates a connector from cfg. Extra options apply after
// the ones derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Connector, error) {
	return New(cfg.URL, append(cfg.Options(), opts...)...)
}

// URL returns the stream URL.
func (c *Connector) URL() string { return c.url }

// Connect creates a transport unless one already exists. After Close it
// does nothing.
func (c *Connector) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if c.exhausted {
		c.exhausted = false
		c.attempts = 0
	}
	return c.connectLocked()
}

func (c *Connector) connectLocked() error {
	if c.transport != nil {
		return nil
	}

	t, err := c.opts.dialer(c.url, c.opts.withCredentials)
	if err != nil {
		c.log.Error("Failed to create transport", map[string]interface{}{
			logger.FieldURL:   c.url,
			logger.FieldError: err.Error(),
		})
		return err
	}

	c.gen++
	gen := c.gen
	c.transport = t
	c.detach = []func(){
		t.AddOpenListener(func() { c.handleOpen(gen) }),
		t.AddErrorListener(func(err error) { c.handleError(gen, err) }),
	}

	if c.onOpen != nil {
		t.SetOnOpen(c.onOpen)
	}
	if c.onMessage != nil {
		t.SetOnMessage(c.onMessage)
	}
	if c.onError != nil {
		t.SetOnError(c.onError)
	}
	for _, reg := range c.listeners {
		reg.remove = t.AddEventListener(reg.eventType, reg.fn)
	}
	t.Start()

	c.log.Debug("Transport created", map[string]interface{}{
		logger.FieldURL:     c.url,
		logger.FieldAttempt: c.attempts,
	})
	return nil
}

func (c *Connector) handleOpen(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	if c.attempts > 0 {
		c.log.Info("Reconnected", map[string]interface{}{
			logger.FieldURL:     c.url,
			logger.FieldAttempt: c.attempts,
		})
	}
	c.attempts = 0
}

func (c *Connector) handleError(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.closed || c.opts.reconnect == nil {
		c.mu.Unlock()
		return
	}
	scheduled := c.scheduleLocked(cause)
	hook := c.onExhausted
	c.mu.Unlock()

	if !scheduled && hook != nil {
		hook()
	}
}

// scheduleLocked arms the next reconnect, or settles the connector when
// the retry budget is spent. It reports whether a reconnect is pending.
// Errors arriving while a reconnect is already armed leave it in place.
func (c *Connector) scheduleLocked(cause error) bool {
	if c.timer != nil {
		return true
	}
	r := c.opts.reconnect
	if !r.allows(c.attempts) {
		c.log.Warn("Reconnect retries exhausted", map[string]interface{}{
			logger.FieldURL:     c.url,
			logger.FieldAttempt: c.attempts,
		})
		c.opts.metrics.RetriesExhausted()
		c.exhausted = true
		c.disconnectLocked()
		return false
	}

	c.attempts++
	delay := r.Backoff().Delay(c.attempts)
	gen := c.gen
	c.timer = c.opts.scheduler.AfterFunc(delay, func() { c.retry(gen) })
	c.opts.metrics.ReconnectScheduled(c.attempts, delay)

	fields := map[string]interface{}{
		logger.FieldURL:     c.url,
		logger.FieldAttempt: c.attempts,
		logger.FieldDelay:   delay.Milliseconds(),
	}
	if cause != nil {
		fields[logger.FieldError] = cause.Error()
	}
	c.log.Info("Reconnect scheduled", fields)
	return true
}

func (c *Connector) retry(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return
	}
	c.timer = nil
	c.disconnectLocked()
	_ = c.connectLocked()
}

// disconnectLocked detaches the internal listeners, closes and forgets the
// transport and cancels any pending reconnect.
func (c *Connector) disconnectLocked() {
	for _, remove := range c.detach {
		remove()
	}
	c.detach = nil

	if c.transport != nil {
		for _, reg := range c.listeners {
			if reg.autoRemove && reg.remove != nil {
				reg.remove()
			}
			reg.remove = nil
		}
		_ = c.transport.Close()
		c.transport = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// Close closes the transport and cancels any pending reconnect. The
// connector stays closed: later Connect calls do nothing.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

// Open connects unless the connector was built WithManualConnection.
func (c *Connector) Open() error {
	if c.opts.manual {
		return nil
	}
	return c.Connect()
}

// Dispose disconnects and drops listeners registered with auto-removal.
// Listeners registered WithoutAutoRemove are kept for a later Connect.
func (c *Connector) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnectLocked()
	c.listeners = slices.DeleteFunc(c.listeners, func(reg *registration) bool {
		return reg.autoRemove
	})
}

// On registers fn for events of eventType on the current transport and on
// every transport created after it. The returned function removes it.
func (c *Connector) On(eventType string, fn Listener, opts ...ListenerOption) func() {
	reg := &registration{eventType: eventType, fn: fn, autoRemove: true}
	for _, opt := range opts {
		opt(reg)
	}

	c.mu.Lock()
	c.listeners = append(c.listeners, reg)
	if c.transport != nil {
		reg.remove = c.transport.AddEventListener(eventType, fn)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unregister(reg) })
	}
}

func (c *Connector) unregister(reg *registration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.listeners {
		if r == reg {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
	if reg.remove != nil {
		reg.remove()
		reg.remove = nil
	}
}

// OnOpen sets the open handler. Setting it again replaces the previous one.
func (c *Connector) OnOpen(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = fn
	if c.transport != nil {
		c.transport.SetOnOpen(fn)
	}
}

// OnMessage sets the handler for events without an explicit type.
// Setting it again replaces the previous one.
func (c *Connector) OnMessage(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
	if c.transport != nil {
		c.transport.SetOnMessage(fn)
	}
}

// OnError sets the error handler. Setting it again replaces the previous one.
func (c *Connector) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
	if c.transport != nil {
		c.transport.SetOnError(fn)
	}
}

// OnRetriesExhausted sets a hook run once the retry budget is spent and
// the connector has disconnected.
func (c *Connector) OnRetriesExhausted(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExhausted = fn
}

// State returns the current state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return StateDisconnected
	case c.timer != nil:
		return StateScheduledRetry
	case c.transport != nil:
		return StateOpen
	default:
		return StateDisconnected
	}
}

// Attempts returns the number of reconnects since the last successful open.
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}
