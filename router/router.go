// Package router dispatches API requests to the item store.
//
// The Router is transport neutral: adapters translate their native events
// into a Request plus an optional Identity, call Handle, and translate the
// Response back.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/store"
)

// DefaultBasePath prefixes every route.
const DefaultBasePath = "/v1"

// Route names.
const (
	RouteListItems  = "list_items"
	RouteCreateItem = "create_item"
	RouteGetItem    = "get_item"
	RouteUpdateItem = "update_item"
	RouteDeleteItem = "delete_item"
	RouteMe         = "me"
	RoutePreflight  = "preflight"
)

// Config configures a Router.
type Config struct {
	// BasePath is the versioned prefix of all routes. Default: "/v1"
	BasePath string

	// AllowedOrigins lists the frontend origins permitted by CORS.
	AllowedOrigins []string
}

// call is the input of a route handler.
type call struct {
	req    Request
	owner  string
	itemID string
}

type handlerFunc func(ctx context.Context, c call) (Result, error)

// Router maps (method, path) to item store operations.
type Router struct {
	store     store.Store
	mux       *mux.Router
	handlers  map[string]handlerFunc
	formatter *Formatter
	logger    *zap.Logger
	basePath  string
}

// New creates a Router over s.
func New(s store.Store, config Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := "/" + strings.Trim(config.BasePath, "/")
	if config.BasePath == "" {
		base = DefaultBasePath
	}
	if base == "/" {
		base = ""
	}

	r := &Router{
		store:     s,
		mux:       mux.NewRouter(),
		formatter: NewFormatter(config.AllowedOrigins),
		logger:    logger,
		basePath:  base,
	}

	r.handlers = map[string]handlerFunc{
		RouteListItems:  r.listItems,
		RouteCreateItem: r.createItem,
		RouteGetItem:    r.getItem,
		RouteUpdateItem: r.updateItem,
		RouteDeleteItem: r.deleteItem,
		RouteMe:         r.me,
	}

	r.mux.Path(base + "/items").Methods(http.MethodGet).Name(RouteListItems)
	r.mux.Path(base + "/items").Methods(http.MethodPost).Name(RouteCreateItem)
	r.mux.Path(base + "/items/{id}").Methods(http.MethodGet).Name(RouteGetItem)
	r.mux.Path(base + "/items/{id}").Methods(http.MethodPut).Name(RouteUpdateItem)
	r.mux.Path(base + "/items/{id}").Methods(http.MethodDelete).Name(RouteDeleteItem)
	r.mux.Path(base + "/me").Methods(http.MethodGet).Name(RouteMe)

	return r
}

// Formatter returns the formatter used for responses.
func (r *Router) Formatter() *Formatter {
	return r.formatter
}

// Handle answers a single request. caller is nil when the authorizer
// attached no identity. Handle never panics.
func (r *Router) Handle(ctx context.Context, req Request, caller *Identity) (resp Response) {
	start := time.Now()
	req.Method = strings.ToUpper(req.Method)
	routeName := ""

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.String("request_id", req.RequestID),
				zap.Stack("stack"),
			)
			resp = r.formatter.Error(req.Origin, fmt.Errorf("panic: %v", rec))
		}

		r.logger.Info("request completed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("route", routeName),
			zap.Int("status", resp.Status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", req.RequestID),
		)
	}()

	if req.Method == http.MethodOptions && r.isItemsPath(req.Path) {
		routeName = RoutePreflight
		return r.formatter.Preflight(req.Origin)
	}

	name, vars, err := r.match(req)
	if err != nil {
		return r.formatter.Error(req.Origin, err)
	}
	routeName = name

	if !caller.present() {
		return r.formatter.Error(req.Origin, ErrUnauthorized)
	}

	result, err := r.handlers[name](ctx, call{
		req:    req,
		owner:  caller.Subject,
		itemID: vars["id"],
	})
	if err != nil {
		r.logError(req, name, err)
		return r.formatter.Error(req.Origin, err)
	}

	return r.formatter.Result(req.Origin, result)
}

// RouteOf returns the name of the route req dispatches to, RoutePreflight
// for a CORS preflight, or "" when no route matches.
func (r *Router) RouteOf(req Request) string {
	req.Method = strings.ToUpper(req.Method)
	if req.Method == http.MethodOptions && r.isItemsPath(req.Path) {
		return RoutePreflight
	}
	name, _, err := r.match(req)
	if err != nil {
		return ""
	}
	return name
}

// isItemsPath reports whether path is the items collection or below it.
func (r *Router) isItemsPath(path string) bool {
	items := r.basePath + "/items"
	return path == items || strings.HasPrefix(path, items+"/")
}

// match resolves the route name and path variables for req.
func (r *Router) match(req Request) (string, map[string]string, error) {
	httpReq := &http.Request{
		Method: req.Method,
		URL:    &url.URL{Path: req.Path},
		Header: http.Header{},
	}

	var m mux.RouteMatch
	if !r.mux.Match(httpReq, &m) {
		if errors.Is(m.MatchErr, mux.ErrMethodMismatch) {
			return "", nil, ErrMethodNotAllowed
		}
		return "", nil, ErrRouteNotFound
	}
	return m.Route.GetName(), m.Vars, nil
}

func (r *Router) logError(req Request, route string, err error) {
	fields := []zap.Field{
		zap.String("route", route),
		zap.String("request_id", req.RequestID),
		zap.Error(err),
	}
	switch status, _ := StatusOf(err); {
	case status == http.StatusServiceUnavailable:
		r.logger.Warn("item store unavailable", fields...)
	case status >= http.StatusInternalServerError:
		r.logger.Error("request failed", fields...)
	}
}

func (r *Router) listItems(ctx context.Context, c call) (Result, error) {
	items, err := r.store.List(ctx, c.owner)
	if err != nil {
		return nil, err
	}
	return ListResult{Items: items}, nil
}

func (r *Router) createItem(ctx context.Context, c call) (Result, error) {
	value, err := decodeValue(c.req.Body)
	if err != nil {
		return nil, err
	}
	item, err := r.store.Create(ctx, c.owner, value)
	if err != nil {
		return nil, err
	}
	return ItemResult{Item: item, Created: true}, nil
}

func (r *Router) getItem(ctx context.Context, c call) (Result, error) {
	item, err := r.store.Get(ctx, c.owner, c.itemID)
	if err != nil {
		return nil, err
	}
	return ItemResult{Item: item}, nil
}

func (r *Router) updateItem(ctx context.Context, c call) (Result, error) {
	value, err := decodeValue(c.req.Body)
	if err != nil {
		return nil, err
	}
	item, err := r.store.Update(ctx, c.owner, c.itemID, value)
	if err != nil {
		return nil, err
	}
	return ItemResult{Item: item}, nil
}

func (r *Router) deleteItem(ctx context.Context, c call) (Result, error) {
	if err := r.store.Delete(ctx, c.owner, c.itemID); err != nil {
		return nil, err
	}
	return NoContent{}, nil
}

func (r *Router) me(_ context.Context, c call) (Result, error) {
	return CallerResult{UserID: c.owner}, nil
}
