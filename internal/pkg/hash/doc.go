// Package hash provides keyed digests for short-lived secrets.
//
// One-time codes are never stored in plaintext: the store keeps the digest and
// verification recomputes it from the candidate, comparing the two in constant
// time so response timing does not reveal how many leading characters matched.
package hash
