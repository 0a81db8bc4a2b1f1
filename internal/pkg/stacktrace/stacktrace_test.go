package stacktrace

import (
	"reflect"
	"testing"
)

func TestInternalPaths(t *testing.T) {
	t.Parallel()

	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/otpgate/internal/otp/usecase.(*Usecase).Verify(...)
	/src/otpgate/internal/otp/usecase/verify.go:42 +0x1a
net/http.HandlerFunc.ServeHTTP(...)
	/usr/local/go/src/net/http/server.go:2220 +0x29
`)

	got := InternalPaths(stack)
	want := []string{"internal/otp/usecase/verify.go:42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InternalPaths() = %#v, want %#v", got, want)
	}
}

func TestInternalPaths_Empty(t *testing.T) {
	t.Parallel()

	if got := InternalPaths(nil); len(got) != 0 {
		t.Fatalf("InternalPaths(nil) = %#v, want empty", got)
	}
}
