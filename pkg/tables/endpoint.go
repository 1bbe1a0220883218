package tables

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Method is one of the REST verbs the store understands.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPatch  Method = http.MethodPatch
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// IsWrite reports whether the method changes state on the store.
func (m Method) IsWrite() bool {
	return m != MethodGet
}

// Payload carries the optional query parameters and body of an action.
// Query values are serialized by the transport; nil values are skipped.
type Payload struct {
	Query map[string]any
	Body  any
}

// ActionOptions describes one action relative to the base.
type ActionOptions struct {
	Path    string
	Payload *Payload
}

// Query returns the query map of the payload, or nil.
func (o ActionOptions) Query() map[string]any {
	if o.Payload == nil {
		return nil
	}

	return o.Payload.Query
}

// Body returns the body of the payload, or nil.
func (o ActionOptions) Body() any {
	if o.Payload == nil {
		return nil
	}

	return o.Payload.Body
}

// Endpoint turns an action into the raw decoded JSON response, or fails with
// a normalized *APIError. Implementations must be safe for concurrent use.
type Endpoint interface {
	RunAction(ctx context.Context, method Method, options ActionOptions) (any, error)
}

// EndpointFunc adapts a function to the Endpoint interface.
type EndpointFunc func(ctx context.Context, method Method, options ActionOptions) (any, error)

// RunAction implements Endpoint.
func (f EndpointFunc) RunAction(ctx context.Context, method Method, options ActionOptions) (any, error) {
	return f(ctx, method, options)
}

// Request is handed to a Requester by the delegating transport.
type Request struct {
	Method Method
	Path   string
	Query  map[string]any
	Body   any
}

// Response is what a Requester returns for any status code.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
}

// Requester is the request primitive of a pre-existing store client (a vendor
// SDK). The delegating transport forwards every action to it.
type Requester interface {
	MakeRequest(ctx context.Context, request *Request) (*Response, error)
}

// SDKError is the error a Requester reports for semantic store failures. The
// delegating transport re-wraps it into *APIError.
type SDKError struct {
	Type       string
	Message    string
	StatusCode int
}

// Error implements the error interface.
func (e *SDKError) Error() string {
	return e.Type + ": " + e.Message
}

// JoinPath prefixes an already escaped relative path with one segment,
// escaping the segment. Table paths compose as table name, then record id,
// then sub-path.
func JoinPath(segment, path string) string {
	escaped := url.PathEscape(segment)
	if path == "" {
		return escaped
	}

	return escaped + "/" + strings.TrimPrefix(path, "/")
}
