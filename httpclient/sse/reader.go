// Package sse reads the text/event-stream wire format.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// MaxLineSize bounds a single line of the stream.
const MaxLineSize = 1 << 20

// Event represents a single server-sent event.
type Event struct {
	// Event is the event type from the "event:" field. Empty means "message".
	Event string
	// Data is the payload. Multiple "data:" lines are joined with "\n".
	Data string
	// ID is the last event ID in effect when the event was dispatched.
	ID string
	// Retry is the reconnection time most recently sent by the server, 0 if none.
	Retry time.Duration
}

// Type returns the event type, defaulting to "message".
func (e *Event) Type() string {
	if e.Event == "" {
		return "message"
	}
	return e.Event
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next dispatched event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// LastEventID returns the last "id:" value seen, whether or not an event followed it.
	LastEventID() string
	// Retry returns the last valid "retry:" value seen, 0 if none.
	Retry() time.Duration
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
	retry   time.Duration
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &reader{scanner: scanner, body: body}
}

// Next returns the next SSE event. A block cut off by the end of the stream
// is discarded, matching browser EventSource behavior.
func (r *reader) Next() (*Event, error) {
	var event Event
	var data strings.Builder
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimPrefix(r.scanner.Text(), "\ufeff")

		if line == "" {
			if !hasData {
				event = Event{}
				continue
			}
			event.Data = data.String()
			event.ID = r.lastID
			event.Retry = r.retry
			return &event, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseSSELine(line)
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			event.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *reader) LastEventID() string  { return r.lastID }
func (r *reader) Retry() time.Duration { return r.retry }

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseSSELine parses a single SSE line into field and value.
func parseSSELine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	// A single leading space after the colon is not part of the value.
	value = strings.TrimPrefix(value, " ")
	return field, value
}
