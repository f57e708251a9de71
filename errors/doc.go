// Package errors provides unified error handling for ssekit.
// Lookup and write failures on the registry are returned as *AppError values
// and never panic.
package errors
