// Package router serves the otpgate JSON API on top of httprouter.
//
// Handlers return a payload or an error; the router turns a payload into the
// {"message","data","meta"} envelope and an error into {"message","error"}
// with the status taken from goerror. Payloads may refine the envelope by
// implementing StatusCode, Message, Headers or Meta.
package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/casbin/casbin/v3"
	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const defaultSuccessMessage = "request has been successfully"

type errorResponse struct {
	Message string            `json:"message" example:"invalid request format"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message" example:"otp issued"`
	Data    any            `json:"data" swaggertype:"object"`
	Meta    map[string]any `json:"meta,omitempty" swaggertype:"object"`
}

// Handler serves one endpoint.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	Config      config.Config
	UUID        uid.StringID
	JWT         jwt.JWT
	Instrument  instrument.Instrumentation
	Enforcer    *casbin.Enforcer
	ServiceName string
}

// Router is an http.Handler. Every route requires a bearer token unless it
// was marked with Public.
type Router struct {
	hr       *httprouter.Router
	enforcer *casbin.Enforcer
	mws      []Middleware

	mu     sync.RWMutex
	public map[routeKey]struct{}
}

type routeKey struct {
	method string
	path   string
}

// NewRouter builds a Router with recovery, client IP, correlation ID,
// observability, maintenance and authentication middleware, in that order.
func NewRouter(cfg Config) *Router {
	ro := &Router{
		enforcer: cfg.Enforcer,
		public:   map[routeKey]struct{}{{http.MethodGet, "/"}: {}},
	}

	ro.hr = &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	ro.mws = []Middleware{
		middlewareRecoverer,
		middlewareIP,
		middlewareCorrelationID(cfg.UUID),
		middlewareObservability(cfg.Config, cfg.Instrument),
		middlewareMaintenance(cfg.Config),
		middlewareAuthentication(cfg.JWT, ro.isPublic),
	}

	name := cfg.ServiceName
	if name == "" {
		name = "otpgate"
	}
	ro.hr.GET("/", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, successResponse{Message: name + " is running", Data: map[string]string{"service": name}}, http.StatusOK)
	})

	return ro
}

// Public marks method+path as reachable without a bearer token. path is the
// route pattern as registered, e.g. "/api/v1/otp/records/:id".
func (r *Router) Public(method, path string) {
	r.mu.Lock()
	r.public[routeKey{method, path}] = struct{}{}
	r.mu.Unlock()
}

func (r *Router) isPublic(method, path string) bool {
	r.mu.RLock()
	_, ok := r.public[routeKey{method, path}]
	r.mu.RUnlock()
	return ok
}

// Authorize returns a middleware that allows the request only when the
// authenticated subject may perform action on object.
func (r *Router) Authorize(object, action string) Middleware {
	return middlewareAuthorization(r.enforcer, object, action)
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodGet, path, h, mws)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPost, path, h, mws)
}

func (r *Router) PATCH(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPatch, path, h, mws)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodDelete, path, h, mws)
}

func (r *Router) handle(method, path string, h Handler, mws []Middleware) {
	final := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(*statusRecorder); ok {
				rec.err = err
			}
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	})

	chain := make([]Middleware, 0, len(r.mws)+len(mws))
	chain = append(chain, r.mws...)
	chain = append(chain, mws...)

	r.hr.Handler(method, path, Chain(final, chain...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg()}

	var verr validator.V10ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error = verr.Values()
	case len(gerr.Fields()) > 0:
		resp.Error = gerr.Fields()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

func writeSuccess(w http.ResponseWriter, resp any) {
	if h, ok := resp.(interface{ Headers() map[string]string }); ok {
		for k, v := range h.Headers() {
			w.Header().Set(k, v)
		}
	}

	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body := successResponse{Message: defaultSuccessMessage, Data: resp}
	if m, ok := resp.(interface{ Message() string }); ok {
		body.Message = m.Message()
	}
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		body.Meta = m.Meta()
	}

	writeJSON(w, body, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}
