package entity

import (
	"errors"
	"fmt"
	"time"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 32
)

var ErrPolicyInvalid = errors.New("otp: policy is invalid")

type Policy struct {
	CodeLength     int
	Expiry         time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	Charset        Charset
}

func (p Policy) Validate() error {
	var errs []error
	if p.CodeLength < MinCodeLength || p.CodeLength > MaxCodeLength {
		errs = append(errs, fmt.Errorf("code_length must be between %d and %d", MinCodeLength, MaxCodeLength))
	}
	if p.Expiry <= 0 {
		errs = append(errs, errors.New("expiry must be positive"))
	}
	if p.MaxAttempts < 1 {
		errs = append(errs, errors.New("max_attempts must be at least 1"))
	}
	if p.ResendCooldown < 0 {
		errs = append(errs, errors.New("resend_cooldown must not be negative"))
	}
	if !p.Charset.IsValid() {
		errs = append(errs, errors.New("charset must be DIGITS or ALPHANUMERIC"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPolicyInvalid, errors.Join(errs...))
}

// PolicyPatch is a partial update; nil fields keep the current value.
type PolicyPatch struct {
	CodeLength     *int
	Expiry         *time.Duration
	MaxAttempts    *int
	ResendCooldown *time.Duration
	Charset        *Charset
}

func (pp PolicyPatch) IsEmpty() bool {
	return pp.CodeLength == nil && pp.Expiry == nil && pp.MaxAttempts == nil &&
		pp.ResendCooldown == nil && pp.Charset == nil
}

func (pp PolicyPatch) Apply(p Policy) Policy {
	if pp.CodeLength != nil {
		p.CodeLength = *pp.CodeLength
	}
	if pp.Expiry != nil {
		p.Expiry = *pp.Expiry
	}
	if pp.MaxAttempts != nil {
		p.MaxAttempts = *pp.MaxAttempts
	}
	if pp.ResendCooldown != nil {
		p.ResendCooldown = *pp.ResendCooldown
	}
	if pp.Charset != nil {
		p.Charset = *pp.Charset
	}
	return p
}
