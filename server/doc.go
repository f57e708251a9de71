// Package server provides the HTTP server that carries event streams, the
// publish endpoints and health probes. It is a Gin engine behind an h2c
// handler, wrapped as a component for lifecycle management.
//
// # Middleware
//
// Built-in middleware (server/middleware), applied at the handler level so
// they cover Gin routes and mounted handlers alike:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration, flush-safe for streams
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /alive: liveness probe
//   - /ready: readiness probe
package server
