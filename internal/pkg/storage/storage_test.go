package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var s Storage = NewMemory()

	info, err := s.PutObject(ctx, "cfg", "otp/policies.json", strings.NewReader(`{"login":{}}`), PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if info.Size != 12 {
		t.Fatalf("Size = %d, want 12", info.Size)
	}

	rc, got, err := s.GetObject(ctx, "cfg", "otp/policies.json")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"login":{}}` || got.ContentType != "application/json" {
		t.Fatalf("GetObject() = %q, %+v", body, got)
	}

	if err := s.DeleteObject(ctx, "cfg", "otp/policies.json"); err != nil {
		t.Fatalf("DeleteObject() error = %v", err)
	}
	if _, err := s.StatObject(ctx, "cfg", "otp/policies.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("StatObject() error = %v, want ErrObjectNotFound", err)
	}
}

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	s, err := NewFromDriver(context.Background(), " Memory ", FactoryOptions{})
	if err != nil {
		t.Fatalf("NewFromDriver() error = %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("NewFromDriver() = %T, want *Memory", s)
	}

	if _, err := NewFromDriver(context.Background(), "ftp", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("NewFromDriver() error = %v, want ErrUnknownDriver", err)
	}
}
