// Package jwt issues and verifies the bearer tokens operators use for the
// administrative OTP endpoints.
//
// Tokens are HS512-signed and carry the operator email, which is the subject
// used for casbin authorization decisions.
package jwt
