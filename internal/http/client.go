// Package http is the retrying HTTP transport used by the direct REST endpoint.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/tablestore/internal/auth"
	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// Request is one HTTP request relative to the client's base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client sends authenticated JSON requests with retries on transient failures.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	logger       tables.Logger
	debug        bool
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig sets the retry limit and backoff bounds.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithLogger sets the logger. Retry attempts are logged at debug level.
func WithLogger(logger tables.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithHTTPTimeout sets the timeout of a single attempt.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// NewClient creates a client for baseURL. A nil tokenManager sends requests
// without authentication.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the URL every request path is relative to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. A non-2xx status returns the response together with a
// normalized *tables.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    httpReq.URL.String(),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("executing request: %w", ctxErr)
		}

		return nil, &tables.APIError{
			Category: constants.CategoryConnectionError,
			Message:  err.Error(),
		}
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"duration": time.Since(start).String(),
			"size":     len(body),
		})
	}

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return resp, ParseErrorResponse(httpResp.StatusCode, body)
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting access token: %w", err)
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// errorEnvelope matches both error payloads the store sends:
// {"error": {"type": "...", "message": "..."}} and {"error": "NOT_FOUND"}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// ParseErrorResponse normalizes a non-2xx response into *tables.APIError.
// Without a semantic payload the category is derived from the status code.
func ParseErrorResponse(statusCode int, body []byte) error {
	apiErr := &tables.APIError{StatusCode: statusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var category string
		if err := json.Unmarshal(envelope.Error, &category); err == nil {
			apiErr.Category = category
		} else {
			_ = json.Unmarshal(envelope.Error, apiErr)
		}
	}

	if apiErr.Category == "" {
		apiErr.Category = CategoryForStatus(statusCode)
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(http.StatusText(statusCode))
	}

	return apiErr
}

// CategoryForStatus maps a status code to the category the store uses for it.
func CategoryForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return constants.CategoryAuthenticationNeeded
	case http.StatusForbidden:
		return constants.CategoryNotAuthorized
	case http.StatusNotFound:
		return constants.CategoryNotFound
	case http.StatusRequestEntityTooLarge:
		return constants.CategoryRequestTooLarge
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return constants.CategoryInvalidRequest
	case http.StatusTooManyRequests:
		return constants.CategoryTooManyRequests
	case http.StatusServiceUnavailable:
		return constants.CategoryServiceUnavailable
	}

	if statusCode >= http.StatusInternalServerError {
		return constants.CategoryServerError
	}

	return constants.CategoryUnexpectedStatus
}

// DecodeJSON decodes a response body into a generic JSON value. An empty body
// decodes to nil.
func DecodeJSON(resp *Response) (interface{}, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	var value interface{}
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		return nil, &tables.APIError{
			Category:   constants.CategoryUnprocessableResponse,
			Message:    fmt.Sprintf("decoding response body: %v", err),
			StatusCode: resp.StatusCode,
		}
	}

	return value, nil
}

// IsTransient reports whether err is a failure the transport would retry.
func IsTransient(err error) bool {
	apiErr := &tables.APIError{}
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError ||
		apiErr.Category == constants.CategoryConnectionError
}

// leveledLogger adapts tables.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger tables.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func keysAndValuesToFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValuesToFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValuesToFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValuesToFields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValuesToFields(keysAndValues))
}
