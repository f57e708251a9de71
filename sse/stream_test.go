package sse

import (
	stderrors "errors"
	"testing"

	"github.com/kbukum/ssekit/errors"
)

func TestHTTPStream_WriteQueuesInOrder(t *testing.T) {
	s := newHTTPStream(4)
	for _, f := range []string{"a", "b", "c"} {
		if err := s.Write([]byte(f)); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		if got := string(<-s.queue); got != want {
			t.Errorf("dequeued %q, want %q", got, want)
		}
	}
}

func TestHTTPStream_Backpressure(t *testing.T) {
	s := newHTTPStream(2)
	_ = s.Write([]byte("1"))
	_ = s.Write([]byte("2"))

	err := s.Write([]byte("3"))
	if !stderrors.Is(err, ErrBackpressure) {
		t.Fatalf("expected backpressure error, got %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodeStreamBackpressure) {
		t.Errorf("expected STREAM_BACKPRESSURE code, got %v", err)
	}
}

func TestHTTPStream_WriteAfterClose(t *testing.T) {
	s := newHTTPStream(2)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}

	err := s.Write([]byte("late"))
	if !stderrors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestNewHTTPStream_DefaultSize(t *testing.T) {
	if got := cap(newHTTPStream(0).queue); got != DefaultQueueSize {
		t.Errorf("queue size = %d, want %d", got, DefaultQueueSize)
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Path != DefaultPath || cfg.KeepaliveInterval != DefaultKeepaliveInterval || cfg.QueueSize != DefaultQueueSize {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"relative path", Config{Path: "events", QueueSize: 1}},
		{"zero queue", Config{Path: "/e", QueueSize: 0}},
		{"negative retry", Config{Path: "/e", QueueSize: 1, RetryHint: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
