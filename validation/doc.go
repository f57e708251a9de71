// Package validation validates structs with go-playground/validator tags
// and reports failures as *errors.AppError values with per-field details.
//
//	type EmitRequest struct {
//	    Event string `json:"event" validate:"required"`
//	}
//	if err := validation.Validate(req); err != nil { ... }
package validation
