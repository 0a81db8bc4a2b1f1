package validator

import (
	"errors"
	"testing"
)

type sampleInput struct {
	RecordID string `validate:"required,uuid"`
	Code     string `validate:"required,otpcode"`
	Phone    string `validate:"omitempty,phone"`
	Channel  string `json:"delivery_channel" validate:"omitempty,oneof=EMAIL SMS"`
}

func TestV10Validator_Validate(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	ok := sampleInput{
		RecordID: "0194f3a2-7c1e-7b3a-9d2e-5f6a7b8c9d0e",
		Code:     "a1b2c3",
		Phone:    "+628123456789",
	}
	if err := v.Validate(ok); err != nil {
		t.Fatalf("Validate(valid) error = %v", err)
	}

	err = v.Validate(sampleInput{RecordID: "nope", Code: "12", Phone: "12-34", Channel: "FAX"})
	var verr V10ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected V10ValidationError, got %T: %v", err, err)
	}

	fields := verr.Values()
	for _, key := range []string{"record_id", "code", "phone", "delivery_channel"} {
		if fields[key] == "" {
			t.Fatalf("missing message for %q in %v", key, fields)
		}
	}
	if fields["code"] != "code must be 4-32 letters or digits" {
		t.Fatalf("unexpected code message %q", fields["code"])
	}
}
