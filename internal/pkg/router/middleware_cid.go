package router

import (
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the correlation id in both directions.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted on input when HeaderCorrelationID is absent.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// validCorrelationID accepts printable ASCII without spaces so the value is
// safe to echo in a header and to embed in queue message headers.
func validCorrelationID(v string) bool {
	if v == "" || len(v) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] <= ' ' || v[i] > '~' {
			return false
		}
	}
	return true
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cid string
			for _, h := range [...]string{HeaderCorrelationID, HeaderRequestID} {
				if v := r.Header.Get(h); validCorrelationID(v) {
					cid = v
					break
				}
			}
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
