package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssekit/client"
	apperrors "github.com/kbukum/ssekit/errors"
	ssereader "github.com/kbukum/ssekit/httpclient/sse"
	"github.com/kbukum/ssekit/logger"
	"github.com/kbukum/ssekit/sse"
)

func newTestAPI(t *testing.T) (*sse.Registry[string], *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := sse.NewRegistry[string](sse.WithLogger(logger.NewNop()))
	engine := gin.New()
	registerRoutes(engine, reg, logger.NewNop())

	ts := httptest.NewServer(engine)
	t.Cleanup(func() {
		_ = reg.Close()
		ts.Close()
	})
	return reg, ts
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func openStream(t *testing.T, url string) (*http.Response, ssereader.Reader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
	})
	return resp, ssereader.NewReader(resp.Body)
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestEmit_DeliversToStream(t *testing.T) {
	reg, ts := newTestAPI(t)
	_, events := openStream(t, ts.URL+"/events/alice")
	waitFor(t, "alice registered", func() bool { return reg.Has("alice") })

	status, body := postJSON(t, ts.URL+"/events/alice", `{"event":"greeting","data":"hello"}`)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %v", status, body)
	}

	ev, err := events.Next()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Event != "greeting" || ev.Data != "hello" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestDrain_AnnouncesShutdown(t *testing.T) {
	reg, ts := newTestAPI(t)
	_, alice := openStream(t, ts.URL+"/events/alice")
	_, bob := openStream(t, ts.URL+"/events/bob")
	waitFor(t, "clients registered", func() bool { return reg.Len() == 2 })

	if err := drain(reg, logger.NewNop()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %v after drain", reg.IDs())
	}
	for name, events := range map[string]ssereader.Reader{"alice": alice, "bob": bob} {
		ev, err := events.Next()
		if err != nil {
			t.Fatalf("%s: read shutdown notice: %v", name, err)
		}
		if ev.Event != shutdownEvent {
			t.Errorf("%s: unexpected event %+v", name, ev)
		}
		if _, err := events.Next(); err == nil {
			t.Errorf("%s: stream should end after the notice", name)
		}
	}

	// Streams opened after the drain are refused.
	resp, err := http.Get(ts.URL + "/events/carol")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after drain, got %d", resp.StatusCode)
	}
}

func TestEmit_Errors(t *testing.T) {
	_, ts := newTestAPI(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown client", "/events/nobody", `{"data":"x"}`, http.StatusNotFound, string(apperrors.ErrCodeClientNotFound)},
		{"missing data", "/events/alice", `{"event":"greeting"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"malformed json", "/events/alice", `{"data":`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"newline in event", "/events/alice", `{"event":"a\nb","data":"x"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"newline in data", "/events/alice", `{"data":"a\nb"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"carriage return in multi data", "/events", `{"ids":["alice"],"data":"a\rb"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"newline in broadcast data", "/broadcast", `{"data":"a\nb"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"empty ids", "/events", `{"ids":[],"data":"x"}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
		{"broadcast without data", "/broadcast", `{}`, http.StatusBadRequest, string(apperrors.ErrCodeInvalidInput)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, ts.URL+tt.path, tt.body)
			if status != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, status)
			}
			if got := errorCode(body); got != tt.wantErr {
				t.Errorf("expected code %s, got %s (%v)", tt.wantErr, got, body)
			}
		})
	}
}

func TestEmitMultiple_SkipsUnknown(t *testing.T) {
	reg, ts := newTestAPI(t)
	_, events := openStream(t, ts.URL+"/events/alice")
	waitFor(t, "alice registered", func() bool { return reg.Has("alice") })

	status, body := postJSON(t, ts.URL+"/events", `{"ids":["alice","ghost"],"event":"notice","data":"hi"}`)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	data, _ := body["data"].(map[string]any)
	if data["recipients"] != float64(1) || data["failed"] != float64(0) {
		t.Errorf("unexpected result %v", data)
	}

	ev, err := events.Next()
	if err != nil || ev.Data != "hi" {
		t.Fatalf("expected hi, got %+v %v", ev, err)
	}
}

func TestBroadcast_ReachesEveryStream(t *testing.T) {
	reg, ts := newTestAPI(t)
	_, alice := openStream(t, ts.URL+"/events/alice")
	_, bob := openStream(t, ts.URL+"/events/bob")
	waitFor(t, "both registered", func() bool { return reg.Len() == 2 })

	status, body := postJSON(t, ts.URL+"/broadcast", `{"event":"notice","data":"maintenance"}`)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if data, _ := body["data"].(map[string]any); data["recipients"] != float64(2) {
		t.Errorf("expected 2 recipients, got %v", data)
	}

	for name, r := range map[string]ssereader.Reader{"alice": alice, "bob": bob} {
		ev, err := r.Next()
		if err != nil || ev.Event != "notice" || ev.Data != "maintenance" {
			t.Errorf("%s: unexpected %+v %v", name, ev, err)
		}
	}
}

func TestAnonymousStream_AssignsID(t *testing.T) {
	reg, ts := newTestAPI(t)
	resp, _ := openStream(t, ts.URL+"/events")

	id := resp.Header.Get(ClientIDHeader)
	if id == "" {
		t.Fatal("expected assigned client id header")
	}
	waitFor(t, "assigned id registered", func() bool { return reg.Has(id) })

	cr, err := http.Get(ts.URL + "/clients")
	if err != nil {
		t.Fatalf("GET /clients: %v", err)
	}
	defer cr.Body.Close()
	var body struct {
		Data struct {
			Clients []string `json:"clients"`
			Count   int      `json:"count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(cr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Count != 1 || len(body.Data.Clients) != 1 || body.Data.Clients[0] != id {
		t.Errorf("unexpected clients %+v", body.Data)
	}
}

func TestPublish(t *testing.T) {
	reg, ts := newTestAPI(t)
	_, events := openStream(t, ts.URL+"/events/alice")
	waitFor(t, "alice registered", func() bool { return reg.Has("alice") })

	var out bytes.Buffer
	err := publish(ts.URL+"/", time.Second, emitRequest("/events", []string{"alice"}, "greeting", "hello"), &out)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(out.String(), `"recipients":1`) {
		t.Errorf("unexpected output %s", out.String())
	}
	if ev, err := events.Next(); err != nil || ev.Data != "hello" {
		t.Fatalf("expected hello, got %+v %v", ev, err)
	}

	err = publish(ts.URL, time.Second, emitRequest("/events", []string{"ghost"}, "", "x"), &out)
	if !apperrors.HasCode(err, apperrors.ErrCodeClientNotFound) {
		t.Errorf("expected CLIENT_NOT_FOUND, got %v", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTail_PrintsEvents(t *testing.T) {
	reg, ts := newTestAPI(t)

	conn, err := client.New(ts.URL+"/events/alice",
		client.WithLogger(logger.NewNop()),
		client.WithReconnect(client.ReconnectOptions{Interval: 20 * time.Millisecond, Retries: client.Retries(3)}),
	)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tail(ctx, conn, []string{"greeting"}, &printer{out: out}) }()

	waitFor(t, "alice registered", func() bool { return reg.Has("alice") })
	if err := reg.Emit("alice", "greeting", "hello"); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := reg.Emit("alice", "", "plain"); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	waitFor(t, "events printed", func() bool {
		s := out.String()
		return strings.Contains(s, "[greeting] hello\n") && strings.Contains(s, "[message] plain\n")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not return")
	}
	if conn.State() != client.StateDisconnected {
		t.Errorf("expected disconnected after tail, got %s", conn.State())
	}
}

func TestPrinter_JSON(t *testing.T) {
	var out bytes.Buffer
	p := &printer{out: &out, json: true}
	p.print(&client.Event{Data: "hi", ID: "7"})

	var got printedEvent
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON line %q: %v", out.String(), err)
	}
	if got.Event != "message" || got.Data != "hi" || got.ID != "7" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestServeConfig_Defaults(t *testing.T) {
	var cfg ServeConfig
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Name != serviceName || cfg.Observability.ServiceName != serviceName {
		t.Errorf("expected names to default to %s, got %q %q", serviceName, cfg.Name, cfg.Observability.ServiceName)
	}
	if cfg.SSE.Path != sse.DefaultPath || cfg.Server.Port != 8080 {
		t.Errorf("unexpected defaults %+v %+v", cfg.SSE, cfg.Server)
	}

	cfg.SSE.Path = "events"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for relative sse path")
	}
}

func TestTailConfig_Validate(t *testing.T) {
	cfg := TailConfig{Client: client.Config{URL: "not a url"}}
	cfg.ApplyDefaults()
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected logs on stderr, got %q", cfg.Logging.Output)
	}
	if err := cfg.Validate(); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestHeaderFlags(t *testing.T) {
	h := headerFlags{}
	if err := h.Set("Authorization: Bearer abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if h["Authorization"] != "Bearer abc" {
		t.Errorf("unexpected %v", h)
	}
	if err := h.Set("no-colon"); err == nil {
		t.Error("expected error for malformed header")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected %v", got)
	}
	if splitList("") != nil {
		t.Error("expected nil for empty input")
	}
}
