// Package uid generates identifiers.
//
// Record and correlation identifiers are UUIDv7 strings; broker event
// identifiers are Snowflake numbers so consumers can order and deduplicate them.
package uid

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
