package router

import "errors"

var (
	// ErrUnauthorized is returned when no verified identity is attached.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRouteNotFound is returned when no route matches the path.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMethodNotAllowed is returned when the path matches a route but
	// the method does not.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Fixed client-facing messages.
const (
	msgNotFound    = "not found"
	msgUnavailable = "service unavailable"
	msgInternal    = "internal error"
	msgInvalidBody = `invalid body; expected {"value":"..."}`
)
