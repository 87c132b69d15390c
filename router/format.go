package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jacentio/lakitu/store"
)

// CORS header values sent with every response.
const (
	AllowHeaders = "Authorization,Content-Type"
	AllowMethods = "GET,POST,PUT,DELETE,OPTIONS"
)

// Formatter serializes results and errors into Responses.
// Every Response it builds carries the full CORS header set.
type Formatter struct {
	origins  []string
	allowed  map[string]bool
	wildcard bool
}

// NewFormatter creates a Formatter for the given allowed origins.
// An origin of "*" allows any origin.
func NewFormatter(origins []string) *Formatter {
	f := &Formatter{allowed: make(map[string]bool)}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		f.origins = append(f.origins, o)
		f.allowed[o] = true
	}
	f.wildcard = f.allowed["*"]
	return f
}

// AllowOrigin picks the Access-Control-Allow-Origin value for a request.
func (f *Formatter) AllowOrigin(origin string) string {
	switch {
	case origin != "" && (f.wildcard || f.allowed[origin]):
		return origin
	case f.wildcard || len(f.origins) == 0:
		return "*"
	default:
		return f.origins[0]
	}
}

func (f *Formatter) headers(origin string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  f.AllowOrigin(origin),
		"Access-Control-Allow-Headers": AllowHeaders,
		"Access-Control-Allow-Methods": AllowMethods,
		"Vary":                         "Origin",
	}
}

// Preflight answers a CORS preflight request.
func (f *Formatter) Preflight(origin string) Response {
	return Response{Status: http.StatusNoContent, Headers: f.headers(origin)}
}

// Result serializes a successful outcome.
func (f *Formatter) Result(origin string, res Result) Response {
	payload := res.payload()
	if payload == nil {
		return Response{Status: res.status(), Headers: f.headers(origin)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return f.Error(origin, err)
	}
	return f.json(origin, res.status(), body)
}

// Error serializes a failure. Only fixed messages and validation messages
// reach the body; causes never do.
func (f *Formatter) Error(origin string, err error) Response {
	status, msg := StatusOf(err)
	body, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
	return f.json(origin, status, body)
}

func (f *Formatter) json(origin string, status int, body []byte) Response {
	h := f.headers(origin)
	h["Content-Type"] = "application/json"
	return Response{Status: status, Headers: h, Body: string(body)}
}

// StatusOf maps an error to its HTTP status and client-safe message.
func StatusOf(err error) (int, string) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ErrUnauthorized.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound, ErrRouteNotFound.Error()
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, ErrMethodNotAllowed.Error()
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
