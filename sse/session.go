package sse

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/ssekit/errors"
	"github.com/kbukum/ssekit/logger"
)

// HeaderLastEventID is sent by reconnecting clients.
const HeaderLastEventID = "Last-Event-ID"

// LastEventID returns the id a reconnecting client last saw, from the
// Last-Event-ID header or the lastEventId query parameter.
func LastEventID(r *http.Request) string {
	if id := r.Header.Get(HeaderLastEventID); id != "" {
		return id
	}
	return r.URL.Query().Get("lastEventId")
}

// ServeStream turns the response into an event stream registered under id
// and blocks until the stream ends. It returns nil when the client goes away
// or the registry closes the stream, and an error when the response cannot
// stream or a write to the connection fails.
func (r *Registry[T]) ServeStream(w http.ResponseWriter, req *http.Request, id T) error {
	clientID := fmt.Sprint(id)

	flusher, ok := w.(http.Flusher)
	if !ok {
		err := errors.StreamingUnsupported()
		r.log.Error("Streaming not supported", map[string]interface{}{logger.FieldClientID: clientID})
		WriteError(w, err)
		return err
	}
	if r.isClosed() {
		err := errors.ServiceUnavailable("sse")
		WriteError(w, err)
		return err
	}

	// Streams are long-lived; the server's WriteTimeout must not end them.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !stderrors.Is(err, http.ErrNotSupported) {
		r.log.Warn("Could not disable write deadline", map[string]interface{}{
			logger.FieldClientID: clientID,
			logger.FieldError:    err.Error(),
		})
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if r.config.RetryHint > 0 {
		_, _ = w.Write(retryFrame(r.config.RetryHint))
	}
	flusher.Flush()

	stream := newHTTPStream(r.config.QueueSize)
	s := &session[T]{registry: r, id: id, stream: stream}
	if !r.addIfOpen(id, stream) {
		_ = stream.Close()
		r.log.Debug("Stream refused, registry closed", map[string]interface{}{logger.FieldClientID: clientID})
		return errors.ServiceUnavailable("sse")
	}
	defer s.teardown()

	fields := map[string]interface{}{
		logger.FieldClientID:   clientID,
		logger.FieldRemoteAddr: req.RemoteAddr,
	}
	if last := LastEventID(req); last != "" {
		fields["last_event_id"] = last
	}
	r.log.Debug("Stream opened", fields)

	var keepalive <-chan time.Time
	if r.config.KeepaliveInterval > 0 {
		ticker := time.NewTicker(r.config.KeepaliveInterval)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	ctx := req.Context()
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Client disconnected", map[string]interface{}{
				logger.FieldClientID: clientID,
				"reason":             ctx.Err().Error(),
			})
			return nil

		case <-stream.Done():
			flushQueued(w, flusher, stream.queue)
			r.log.Debug("Stream closed", map[string]interface{}{logger.FieldClientID: clientID})
			return nil

		case frame := <-stream.queue:
			if err := writeFlush(w, flusher, frame); err != nil {
				r.log.Debug("Stream write failed", map[string]interface{}{
					logger.FieldClientID: clientID,
					logger.FieldError:    err.Error(),
				})
				return errors.WriteFailed(id, err)
			}

		case <-keepalive:
			if err := writeFlush(w, flusher, keepaliveFrame); err != nil {
				return errors.WriteFailed(id, err)
			}
		}
	}
}

// Handler serves ServeStream for the identity identify extracts from the
// request. Identification failures answer 400.
func (r *Registry[T]) Handler(identify func(*http.Request) (T, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, err := identify(req)
		if err != nil {
			WriteError(w, errors.InvalidInput("client_id", err.Error()))
			return
		}
		_ = r.ServeStream(w, req, id)
	})
}

// WriteError renders err as a JSON error response. Errors that are not
// *errors.AppError are reported as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}

// session owns the cleanup of one ServeStream call. Request cancellation,
// a failed write and Registry.Close all converge on teardown.
type session[T comparable] struct {
	registry *Registry[T]
	id       T
	stream   *httpStream
	once     sync.Once
}

// teardown unregisters the stream, unless the identity has since been
// bound to a newer stream, and closes it.
func (s *session[T]) teardown() {
	s.once.Do(func() {
		s.registry.remove(s.id, s.stream)
		_ = s.stream.Close()
	})
}

// flushQueued writes the frames queued before the stream closed. Writes
// fail once a stream is closed, so the queue cannot grow meanwhile.
func flushQueued(w http.ResponseWriter, f http.Flusher, queue <-chan []byte) {
	for {
		select {
		case frame := <-queue:
			if writeFlush(w, f, frame) != nil {
				return
			}
		default:
			return
		}
	}
}

func writeFlush(w http.ResponseWriter, f http.Flusher, p []byte) error {
	if _, err := w.Write(p); err != nil {
		return err
	}
	f.Flush()
	return nil
}
