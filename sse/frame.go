package sse

import (
	"strconv"
	"strings"
	"time"
)

// EventTypeMessage is the event type browsers dispatch to onmessage.
const EventTypeMessage = "message"

var keepaliveFrame = []byte(": keepalive\n\n")

// Frame is one server-sent event. Encode writes
//
//	event: <Event>
//	data: <Data>
//
// followed by a blank line. ID and Retry lines are only written when set.
// Data is written verbatim: a newline inside Data ends the data field early
// and corrupts the frame, so callers that need multi-line payloads must
// encode them (JSON does).
type Frame struct {
	Event string
	Data  string
	ID    string
	Retry time.Duration
}

// Encode returns the wire form of f.
func (f Frame) Encode() []byte {
	var b strings.Builder
	b.Grow(len(f.Event) + len(f.Data) + len(f.ID) + 24)
	if f.ID != "" {
		b.WriteString("id: ")
		b.WriteString(f.ID)
		b.WriteByte('\n')
	}
	if f.Retry > 0 {
		b.WriteString("retry: ")
		b.WriteString(strconv.FormatInt(f.Retry.Milliseconds(), 10))
		b.WriteByte('\n')
	}
	b.WriteString("event: ")
	b.WriteString(f.Event)
	b.WriteString("\ndata: ")
	b.WriteString(f.Data)
	b.WriteString("\n\n")
	return []byte(b.String())
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return string(f.Encode())
}

// retryFrame is the reconnection hint sent when a stream opens.
func retryFrame(d time.Duration) []byte {
	return []byte("retry: " + strconv.FormatInt(d.Milliseconds(), 10) + "\n\n")
}
