package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
app:
  name: otpgate
modules:
  otp:
    janitor:
      interval_seconds: 45
    allowed: "a, b,,c"
    purposes:
      - email_verification
      - password_reset
hash:
  hmac:
    secret: "c2VjcmV0"
    broken: "not base64!"
`

func TestViperFromBytes_Getters(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	if got := cfg.GetString("app.name"); got != "otpgate" {
		t.Fatalf("GetString() = %q", got)
	}
	if got := cfg.GetSecond("modules.otp.janitor.interval_seconds"); got != 45*time.Second {
		t.Fatalf("GetSecond() = %v", got)
	}

	arr := cfg.GetArray("modules.otp.allowed")
	if len(arr) != 3 || arr[0] != "a" || arr[1] != "b" || arr[2] != "c" {
		t.Fatalf("GetArray(csv) = %#v", arr)
	}

	seq := cfg.GetArray("modules.otp.purposes")
	if len(seq) != 2 || seq[1] != "password_reset" {
		t.Fatalf("GetArray(seq) = %#v", seq)
	}

	if got := cfg.GetArray("missing.key"); len(got) != 0 {
		t.Fatalf("GetArray(missing) = %#v", got)
	}

	if got := string(cfg.GetBinary("hash.hmac.secret")); got != "secret" {
		t.Fatalf("GetBinary() = %q", got)
	}
	if got := cfg.GetBinary("hash.hmac.broken"); got != nil {
		t.Fatalf("GetBinary(invalid) = %q, want nil", got)
	}

	if !cfg.IsSet("app.name") || cfg.IsSet("app.nope") {
		t.Fatalf("IsSet() mismatch")
	}
}

func TestViperFromBytes_EnvOverride(t *testing.T) {
	t.Setenv("APP_NAME", "from-env")

	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	if got := cfg.GetString("app.name"); got != "from-env" {
		t.Fatalf("GetString() = %q, want env override", got)
	}
}

func TestViperFromBytes_RequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); !errors.Is(err, ErrConfigType) {
		t.Fatalf("error = %v, want ErrConfigType", err)
	}
}

func TestNewViper_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewViper(file)
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	if got := cfg.GetString("app.name"); got != "otpgate" {
		t.Fatalf("GetString() = %q", got)
	}

	if _, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("OTPGATE_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("OTPGATE_DOTENV_PROBE") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), file); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("OTPGATE_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("env not loaded, got %q", got)
	}
}
