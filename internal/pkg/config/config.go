// Package config reads otpgate settings from a YAML file with environment
// overrides. Keys are dot separated ("modules.otp.store"); the matching
// environment variable upper-cases the key and replaces dots with
// underscores (MODULES_OTP_STORE).
package config

import (
	"io"
	"time"
)

// Config is the read side used by every component. Getters return the zero
// value for missing or unconvertible keys; use IsSet to tell the two apart.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetSecond and GetMinute read an integer and scale it.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetBinary decodes a standard base64 value; secrets are stored this way.
	GetBinary(key string) []byte

	// GetArray accepts "a,b,c" or a YAML sequence and drops blank entries.
	GetArray(key string) []string

	IsSet(key string) bool
}
