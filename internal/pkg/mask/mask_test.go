package mask

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "john.doe@example.com", want: "j***e@example.com"},
		{in: "abc@x.io", want: "a***c@x.io"},
		{in: "ab@example.com", want: "a*@example.com"},
		{in: "a@example.com", want: "*@example.com"},
		{in: "élodie@exemple.fr", want: "é***e@exemple.fr"},
		{in: "weird@name@host.com", want: "w***e@host.com"},
		{in: "@example.com", want: "@e********om"},
		{in: "user@", want: "us*r@"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Email(tt.in); got != tt.want {
				t.Fatalf("Email(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "+628123456789", want: "+6*********89"},
		{in: "08123", want: "08*23"},
		{in: "1234", want: "****"},
		{in: "12", want: "**"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Phone(tt.in); got != tt.want {
				t.Fatalf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIdentifier(t *testing.T) {
	if got := Identifier("jane@example.com"); got != "j***e@example.com" {
		t.Fatalf("Identifier(email) = %q", got)
	}
	if got := Identifier("+15551234567"); got != "+1********67" {
		t.Fatalf("Identifier(phone) = %q", got)
	}
}
