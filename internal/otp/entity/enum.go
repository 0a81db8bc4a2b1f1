package entity

import "strings"

type Channel int8

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "EMAIL"
	case ChannelSMS:
		return "SMS"
	default:
		return "UNKNOWN"
	}
}

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

func ParseChannel(s string) Channel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EMAIL":
		return ChannelEmail
	case "SMS":
		return ChannelSMS
	default:
		return ChannelUnknown
	}
}

// Purpose scopes a policy and the single-active-record rule.
type Purpose int8

const (
	PurposeUnknown           Purpose = 0
	PurposeEmailVerification Purpose = 1
	PurposePhoneVerification Purpose = 2
	PurposePasswordReset     Purpose = 3
	PurposeTwoFactorAuth     Purpose = 4
)

// Purposes lists every known purpose in declaration order.
var Purposes = []Purpose{
	PurposeEmailVerification,
	PurposePhoneVerification,
	PurposePasswordReset,
	PurposeTwoFactorAuth,
}

func (p Purpose) String() string {
	switch p {
	case PurposeEmailVerification:
		return "EMAIL_VERIFICATION"
	case PurposePhoneVerification:
		return "PHONE_VERIFICATION"
	case PurposePasswordReset:
		return "PASSWORD_RESET"
	case PurposeTwoFactorAuth:
		return "TWO_FACTOR_AUTH"
	default:
		return "UNKNOWN"
	}
}

// Key is the lower-case form used in config keys and storage keys.
func (p Purpose) Key() string {
	return strings.ToLower(p.String())
}

func (p Purpose) IsValid() bool {
	return p >= PurposeEmailVerification && p <= PurposeTwoFactorAuth
}

func ParsePurpose(s string) Purpose {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range Purposes {
		if p.String() == v {
			return p
		}
	}
	return PurposeUnknown
}

type Charset int8

const (
	CharsetUnknown      Charset = 0
	CharsetDigits       Charset = 1
	CharsetAlphanumeric Charset = 2
)

const (
	alphabetDigits       = "0123456789"
	alphabetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func (c Charset) String() string {
	switch c {
	case CharsetDigits:
		return "DIGITS"
	case CharsetAlphanumeric:
		return "ALPHANUMERIC"
	default:
		return "UNKNOWN"
	}
}

func (c Charset) IsValid() bool {
	return c == CharsetDigits || c == CharsetAlphanumeric
}

// Alphabet returns the characters codes are drawn from, or "" for an unknown charset.
func (c Charset) Alphabet() string {
	switch c {
	case CharsetDigits:
		return alphabetDigits
	case CharsetAlphanumeric:
		return alphabetAlphanumeric
	default:
		return ""
	}
}

// ParseCharset also accepts the short forms "numeric" and "alnum".
func ParseCharset(s string) Charset {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DIGITS", "NUMERIC":
		return CharsetDigits
	case "ALPHANUMERIC", "ALNUM":
		return CharsetAlphanumeric
	default:
		return CharsetUnknown
	}
}
