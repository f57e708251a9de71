package sse

// Publisher is the send side of a Registry. HTTP handlers depend on it
// rather than on the concrete registry.
type Publisher[T comparable] interface {
	Emit(id T, event, data string) error
	EmitMultiple(ids []T, event, data string) error
	Broadcast(event, data string) error
	Len() int
}

var _ Publisher[string] = (*Registry[string])(nil)
