// Package clock provides a tiny time abstraction.
//
// Code that reasons about expiry or cooldown windows depends on the Clocker
// interface instead of calling time.Now() directly. Production wiring uses
// TimeClocker; tests use Frozen to step time deterministically across
// boundaries such as "one millisecond after expiry".
package clock
