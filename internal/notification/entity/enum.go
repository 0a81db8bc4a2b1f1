package entity

import (
	"strings"
)

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

func ChannelFromString(raw string) Channel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EMAIL":
		return ChannelEmail
	case "SMS":
		return ChannelSMS
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	default:
		return "unknown"
	}
}

// TemplateKey selects the message catalogue entry; it is the lower-cased OTP purpose.
type TemplateKey string

const (
	TemplateKeyEmailVerification TemplateKey = "email_verification"
	TemplateKeyPhoneVerification TemplateKey = "phone_verification"
	TemplateKeyPasswordReset     TemplateKey = "password_reset"
	TemplateKeyTwoFactorAuth     TemplateKey = "two_factor_auth"
	TemplateKeyDefault           TemplateKey = "default"
)

func TemplateKeyFromPurpose(purpose string) TemplateKey {
	switch tk := TemplateKey(strings.ToLower(strings.TrimSpace(purpose))); tk {
	case TemplateKeyEmailVerification, TemplateKeyPhoneVerification, TemplateKeyPasswordReset, TemplateKeyTwoFactorAuth:
		return tk
	default:
		return TemplateKeyDefault
	}
}

func (tk TemplateKey) String() string {
	return string(tk)
}
