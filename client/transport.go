package client

import (
	"github.com/kbukum/ssekit/httpclient/sse"
)

// Event is a server-sent event delivered to listeners.
type Event = sse.Event

// Listener receives events of one type.
type Listener func(*Event)

// Transport is one EventSource-like connection. Implementations reconnect
// on their own after transient failures and report every failure through
// the error listeners. Listener methods return a function that removes
// exactly that registration.
type Transport interface {
	// AddEventListener registers fn for events of eventType.
	AddEventListener(eventType string, fn Listener) (remove func())
	// AddOpenListener registers fn to run each time the stream opens.
	AddOpenListener(fn func()) (remove func())
	// AddErrorListener registers fn to run on every failure.
	AddErrorListener(fn func(error)) (remove func())

	// SetOnOpen, SetOnMessage and SetOnError bind the single handler slots.
	// Binding a slot again replaces the previous handler.
	SetOnOpen(fn func())
	SetOnMessage(fn Listener)
	SetOnError(fn func(error))

	// Start begins connecting. Listeners added before Start see every
	// event. Calling it again does nothing.
	Start()
	// Close stops the transport. It does not block and is idempotent.
	Close() error
}

// Dialer creates an unstarted transport for url. A Dialer only fails when
// the transport cannot be built; connection failures are reported to the
// transport's error listeners.
type Dialer func(url string, withCredentials bool) (Transport, error)
