// Package apigw adapts API Gateway REST proxy events to the router.
package apigw

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/jacentio/lakitu/router"
	"github.com/jacentio/lakitu/store"
)

// Handler is the Lambda entry point for the items API.
type Handler struct {
	router *router.Router
}

// NewHandler creates a new API Gateway handler.
func NewHandler(r *router.Router) *Handler {
	return &Handler{router: r}
}

// Handle translates the proxy event, dispatches it and translates the
// answer back. Failures are always expressed as responses, never as
// Lambda invocation errors.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := Request(ctx, event)

	if event.IsBase64Encoded && event.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			resp := h.router.Formatter().Error(req.Origin, &store.ValidationError{
				Field:   "body",
				Message: "invalid body encoding",
			})
			return Response(resp), nil
		}
		req.Body = string(decoded)
	}

	return Response(h.router.Handle(ctx, req, Caller(event))), nil
}

// Request builds a router.Request from a proxy event. The body is
// copied as is.
func Request(ctx context.Context, event events.APIGatewayProxyRequest) router.Request {
	requestID := event.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		requestID = lc.AwsRequestID
	}

	return router.Request{
		Method:    event.HTTPMethod,
		Path:      event.Path,
		Origin:    header(event, "Origin"),
		Body:      event.Body,
		RequestID: requestID,
	}
}

// Caller extracts the identity attached by the API Gateway authorizer.
// It looks at Cognito user pool claims, JWT authorizer claims and a
// Lambda authorizer principal, in that order.
func Caller(event events.APIGatewayProxyRequest) *router.Identity {
	auth := event.RequestContext.Authorizer
	if auth == nil {
		return nil
	}

	if sub := claim(auth["claims"], "sub"); sub != "" {
		return &router.Identity{Subject: sub}
	}
	if jwt, ok := auth["jwt"].(map[string]any); ok {
		if sub := claim(jwt["claims"], "sub"); sub != "" {
			return &router.Identity{Subject: sub}
		}
	}
	if principal, ok := auth["principalId"].(string); ok && strings.TrimSpace(principal) != "" {
		return &router.Identity{Subject: principal}
	}
	return nil
}

func claim(claims any, name string) string {
	m, ok := claims.(map[string]any)
	if !ok {
		return ""
	}
	v, _ := m[name].(string)
	return strings.TrimSpace(v)
}

// header looks up a header case-insensitively, falling back to the
// multi-value form.
func header(event events.APIGatewayProxyRequest, name string) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, vs := range event.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// Response converts a router.Response to the proxy response shape.
func Response(resp router.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
}
