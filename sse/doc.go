// Package sse is the server side of ssekit: a registry of open
// Server-Sent Events streams keyed by an application-chosen identity.
//
// ServeStream turns an HTTP response into a stream and registers it; the
// registry then delivers events to one client (Emit), a list of clients
// (EmitMultiple) or everyone (Broadcast). Each connection has its own
// bounded queue drained by the goroutine serving the request, so a slow
// client never blocks a broadcast: its writes fail with ErrBackpressure
// instead.
//
// A stream leaves the registry when its request is cancelled, when a write
// to the connection fails, on RemoveClient, or when the registry closes.
//
// # Usage
//
//	reg := sse.NewRegistry[string](sse.WithConfig(cfg.SSE))
//	reg.OnConnect(func(id string) { log.Info("joined " + id) })
//
//	mux.Handle("/events", reg.Handler(func(r *http.Request) (string, error) {
//	    return r.URL.Query().Get("user"), nil
//	}))
//
//	err := reg.Broadcast("price", `{"sym":"ACME","px":12.5}`)
package sse
