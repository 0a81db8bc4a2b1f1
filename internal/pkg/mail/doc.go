// Package mail sends email through a provider-agnostic Mail interface.
package mail
