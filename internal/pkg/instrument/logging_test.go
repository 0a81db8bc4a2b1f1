package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	return out
}

func TestHandler_MasksAndCorrelates(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, []string{"code", "Authorization"}, "info"))

	ctx := SetCorrelationID(context.Background(), "cid-123")
	logger.InfoContext(ctx, "otp issued",
		"code", "482913",
		"body", `{"identifier":"a@b.com","code":"482913"}`,
		"headers", map[string]string{"authorization": "Bearer x"},
	)

	line := decodeLine(t, &buf)
	if line["code"] != "***" {
		t.Fatalf("code not masked: %v", line["code"])
	}
	if line["_cID"] != "cid-123" {
		t.Fatalf("missing correlation id: %v", line)
	}
	if line["service"] != "otpgate" {
		t.Fatalf("missing service: %v", line)
	}
	if line["ts"] == nil || line["severity"] != "INFO" {
		t.Fatalf("renamed keys missing: %v", line)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(line["body"].(string)), &body); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if body["code"] != "***" || body["identifier"] != "a@b.com" {
		t.Fatalf("body not masked correctly: %v", body)
	}

	headers := line["headers"].(map[string]any)
	if headers["authorization"] != "***" {
		t.Fatalf("header not masked: %v", headers)
	}
}

func TestHandler_WithAttrsKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, nil, "info")).With("component", "janitor")

	logger.InfoContext(SetCorrelationID(context.Background(), "cid-9"), "swept")

	line := decodeLine(t, &buf)
	if line["_cID"] != "cid-9" || line["component"] != "janitor" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, nil, "warn"))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatalf("warn should be written")
	}
}

func TestGetCorrelationID_Absent(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("GetCorrelationID() = %q", got)
	}
}

func TestHandler_MasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, []string{"recipient"}, "info")).With("recipient", "a@b.com")

	logger.Info("dispatched")

	if line := decodeLine(t, &buf); line["recipient"] != "***" {
		t.Fatalf("With attribute not masked: %v", line)
	}
}

func TestHandler_TraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, nil, "info"))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "verified")

	line := decodeLine(t, &buf)
	if line["trace_id"] != sc.TraceID().String() || line["span_id"] != sc.SpanID().String() {
		t.Fatalf("trace ids missing: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
