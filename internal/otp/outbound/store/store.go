// Package store keeps OTP records and resend cooldowns, in process memory or in Redis.
package store

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
)

type pairKey struct {
	identifier string
	purpose    entity.Purpose
}

// attemptOn applies the verification gate to rec in place. attemptScript in
// redis.go performs the same checks in the same order.
func attemptOn(rec *entity.Record, identifier string, now time.Time) entity.AttemptStatus {
	switch {
	case rec.Used:
		return entity.AttemptUsed
	case rec.IsExpired(now):
		return entity.AttemptExpired
	case identifier != "" && identifier != rec.Identifier:
		return entity.AttemptIdentifierMismatch
	}

	rec.Attempts++
	if rec.Attempts > rec.MaxAttempts {
		return entity.AttemptExhausted
	}
	return entity.AttemptGranted
}
