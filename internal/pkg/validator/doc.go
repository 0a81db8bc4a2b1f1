// Package validator provides a small validation abstraction for request and
// domain structs.
//
// Business code depends on the Validator interface; the go-playground
// implementation reports failures as a field-to-message map keyed by the
// snake_case field name so handlers can return it as-is.
package validator

// Validator validates struct values according to their `validate` tags.
type Validator interface {
	Validate(data any) error
}
