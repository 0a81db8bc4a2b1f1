package entity

import "time"

type GenerateStatus int8

const (
	GenerateIssued GenerateStatus = iota + 1
	GenerateThrottled
	GenerateConfigError
	GenerateDeliveryFailed
)

func (s GenerateStatus) String() string {
	switch s {
	case GenerateIssued:
		return "issued"
	case GenerateThrottled:
		return "throttled"
	case GenerateConfigError:
		return "config_error"
	case GenerateDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

type VerifyOutcome int8

const (
	VerifySuccess VerifyOutcome = iota + 1
	VerifyInvalidOrExpired
	VerifyAlreadyUsed
	VerifyExpired
	VerifyInvalidRequest
	VerifyAttemptsExhausted
	VerifyInvalidCode
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifySuccess:
		return "success"
	case VerifyInvalidOrExpired:
		return "invalid_or_expired"
	case VerifyAlreadyUsed:
		return "already_used"
	case VerifyExpired:
		return "expired"
	case VerifyInvalidRequest:
		return "invalid_request"
	case VerifyAttemptsExhausted:
		return "attempts_exhausted"
	case VerifyInvalidCode:
		return "invalid_code"
	default:
		return "unknown"
	}
}

// Message is the caller-facing text for the outcome.
func (o VerifyOutcome) Message() string {
	switch o {
	case VerifySuccess:
		return "Code verified successfully"
	case VerifyInvalidOrExpired:
		return "Invalid or expired code"
	case VerifyAlreadyUsed:
		return "Code has already been used"
	case VerifyExpired:
		return "Code has expired"
	case VerifyInvalidRequest:
		return "Invalid verification request"
	case VerifyAttemptsExhausted:
		return "Too many failed attempts, request a new code"
	case VerifyInvalidCode:
		return "Invalid code"
	default:
		return "Verification failed"
	}
}

// AttemptStatus is the result of the atomic check-and-increment in the store.
type AttemptStatus int8

const (
	AttemptNotFound AttemptStatus = iota + 1
	AttemptUsed
	AttemptExpired
	AttemptIdentifierMismatch
	AttemptExhausted
	AttemptGranted
)

// AttemptResult carries the record after the increment when Status is AttemptGranted.
type AttemptResult struct {
	Status AttemptStatus
	Record Record
}

type IssueResult struct {
	// Throttled is set when a cooldown appeared between the caller's check and the write.
	Throttled     bool
	CooldownUntil time.Time
	// Replaced is the ID of the prior active record that was removed, if any.
	Replaced string
}

type SweepResult struct {
	Records   int
	Cooldowns int
}

type Counts struct {
	Active  int `json:"active"`
	Used    int `json:"used"`
	Expired int `json:"expired"`
}

type Statistics struct {
	Counts
	Cooldowns          int
	ByPurpose          map[string]Counts
	ByChannel          map[string]Counts
	CooldownsByPurpose map[string]int
}
