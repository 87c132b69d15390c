package router

import (
	"net/http"

	"github.com/jacentio/lakitu/store"
)

// Result is the successful outcome of a route handler.
// Only the Formatter turns a Result into a wire body.
type Result interface {
	status() int
	payload() any
}

// ItemResult carries a single item.
type ItemResult struct {
	Item    store.Item
	Created bool
}

func (r ItemResult) status() int {
	if r.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (r ItemResult) payload() any { return r.Item }

// ListResult carries all items of the caller.
type ListResult struct {
	Items []store.Item
}

func (r ListResult) status() int { return http.StatusOK }

func (r ListResult) payload() any {
	items := r.Items
	if items == nil {
		items = []store.Item{}
	}
	return struct {
		Items []store.Item `json:"items"`
	}{items}
}

// NoContent is an empty 204 answer.
type NoContent struct{}

func (NoContent) status() int  { return http.StatusNoContent }
func (NoContent) payload() any { return nil }

// CallerResult echoes the authenticated subject.
type CallerResult struct {
	UserID string
}

func (r CallerResult) status() int { return http.StatusOK }

func (r CallerResult) payload() any {
	return struct {
		UserID string `json:"user_id"`
	}{r.UserID}
}
