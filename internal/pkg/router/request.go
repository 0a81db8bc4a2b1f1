package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// maxBodyBytes bounds JSON request bodies; OTP payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

// Request is what a Handler receives.
type Request struct {
	*http.Request
}

// GetParam returns the named path parameter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// DecodeBody reads exactly one JSON value into dst. Unknown fields, trailing
// data and bodies over 64 KiB are rejected with a 400.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat("Request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return goerror.NewInvalidFormat("Request body is required")
		}
		return goerror.NewInvalidFormat()
	}
	if dec.InputOffset() > maxBodyBytes {
		return goerror.NewInvalidFormat("Request body is too large")
	}
	if dec.More() {
		return goerror.NewInvalidFormat("Request body must be a single JSON object")
	}

	return nil
}
