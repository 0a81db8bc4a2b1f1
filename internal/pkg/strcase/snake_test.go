package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":            "",
		"Identifier":  "identifier",
		"RecordID":    "record_id",
		"recordID":    "record_id",
		"HTTPServer":  "http_server",
		"maxAttempts": "max_attempts",
		"code2FA":     "code2_fa",
	}

	for in, want := range tests {
		if got := ToLowerSnake(in); got != want {
			t.Errorf("ToLowerSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
