// Package resilience provides retry with pluggable backoff.
//
// Retry drives outbound HTTP requests in httpclient. The Backoff
// implementations are shared with the SSE client, which schedules its
// reconnects with Linear:
//
//	b := resilience.Linear{Interval: time.Second, Step: 500 * time.Millisecond}
//	b.Delay(1) // 1.5s
//	b.Delay(3) // 2.5s
package resilience
