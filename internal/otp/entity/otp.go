package entity

import "time"

// Record is one outstanding or recently resolved code. Code holds the keyed
// digest of the upper-cased code, never the plaintext.
type Record struct {
	ID          string
	Identifier  string
	Code        string
	Channel     Channel
	Purpose     Purpose
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	VerifiedAt  *time.Time
	Used        bool
}

// IsExpired reports whether now is strictly past ExpiresAt.
func (r Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r Record) IsActive(now time.Time) bool {
	return !r.Used && !r.IsExpired(now)
}

func (r Record) AttemptsRemaining() int {
	return max(r.MaxAttempts-r.Attempts, 0)
}

// Cooldown blocks new codes for (Identifier, Purpose) until Until.
type Cooldown struct {
	Identifier string
	Purpose    Purpose
	Until      time.Time
}

func (c Cooldown) IsActive(now time.Time) bool {
	return c.Until.After(now)
}
