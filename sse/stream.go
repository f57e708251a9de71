package sse

import (
	"sync"

	"github.com/kbukum/ssekit/errors"
)

// Sentinels for errors.Is. Stream writes return fresh *errors.AppError
// values carrying the same codes.
var (
	ErrStreamClosed = errors.New(errors.ErrCodeStreamClosed, "stream is closed", 0)
	ErrBackpressure = errors.New(errors.ErrCodeStreamBackpressure, "stream queue is full", 0)
)

// Stream is the write side of one open event stream.
type Stream interface {
	// Write hands one encoded frame to the stream. It never blocks.
	Write(frame []byte) error
	// Close ends the stream. Further writes fail with ErrStreamClosed.
	Close() error
}

// httpStream queues frames for the goroutine serving the HTTP response.
// Enqueue and close share one mutex so a write never races a close.
type httpStream struct {
	mu     sync.Mutex
	queue  chan []byte
	done   chan struct{}
	closed bool
}

func newHTTPStream(size int) *httpStream {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &httpStream{
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
}

func (s *httpStream) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.StreamClosed()
	}
	select {
	case s.queue <- frame:
		return nil
	default:
		return errors.StreamBackpressure(cap(s.queue))
	}
}

func (s *httpStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *httpStream) Done() <-chan struct{} { return s.done }
