// Package component defines the lifecycle contract for the long-lived
// parts of an ssekit process and a registry that starts them in order
// and stops them in reverse.
package component
