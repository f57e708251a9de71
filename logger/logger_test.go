package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: FormatJSON}, "ssekit", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("failed to decode log line %q: %v", line, err)
	}
	return out
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "debug")

	log.Info("client registered", Fields(FieldClientID, "abc", FieldClients, 3))

	entry := decodeLine(t, &buf)
	if entry["message"] != "client registered" {
		t.Errorf("expected message 'client registered', got %v", entry["message"])
	}
	if entry[FieldClientID] != "abc" {
		t.Errorf("expected client_id 'abc', got %v", entry[FieldClientID])
	}
	if entry[FieldService] != "ssekit" {
		t.Errorf("expected service 'ssekit', got %v", entry[FieldService])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "warn")

	log.Debug("hidden")
	log.Info("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged below warn, got %q", buf.String())
	}

	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "bogus")

	log.Debug("hidden")
	log.Info("visible")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be filtered when level falls back to info")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("expected info message in output")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "info").WithComponent("sse")

	log.Info("hello")

	entry := decodeLine(t, &buf)
	if entry[FieldComponent] != "sse" {
		t.Errorf("expected component 'sse', got %v", entry[FieldComponent])
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "info").
		WithError(errors.New("boom")).
		WithFields(map[string]interface{}{"attempt": 2})

	log.Error("reconnect failed")

	entry := decodeLine(t, &buf)
	if entry["error"] != "boom" {
		t.Errorf("expected error 'boom', got %v", entry["error"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("expected attempt 2, got %v", entry["attempt"])
	}
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-1")
	log := newJSONLogger(&buf, "info").WithContext(ctx)

	log.Info("handled")

	entry := decodeLine(t, &buf)
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id 'req-1', got %v", entry[FieldRequestID])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "ssekit", &buf)

	log.Info("console line", Fields("k", "v"))

	out := buf.String()
	if !strings.Contains(out, "[SSE][INF]") {
		t.Errorf("expected service and level tag, got %q", out)
	}
	if !strings.Contains(out, "console line") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	SetGlobalLogger(newJSONLogger(&buf, "debug"))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	WithComponent("registry").Info("tagged")

	out := buf.String()
	for _, want := range []string{`"d"`, `"i"`, `"w"`, `"e"`, `"registry"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output %q", want, out)
		}
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("dropped")
	if log.Service() != "nop" {
		t.Errorf("expected service 'nop', got %q", log.Service())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != FormatConsole {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "debug", Format: FormatJSON}, false},
		{"valid console", Config{Level: "info", Format: FormatConsole}, false},
		{"bad level", Config{Level: "loud", Format: FormatJSON}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("expected only key 'a', got %v", f)
	}

	ef := ErrorFields("emit", errors.New("closed"))
	if ef[FieldOperation] != "emit" || ef[FieldError] != "closed" {
		t.Errorf("unexpected error fields: %v", ef)
	}

	df := DurationFields("broadcast", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}
