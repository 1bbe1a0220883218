package tables

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/tablestore/internal/constants"
)

// APIError is the normalized error of every transport. Category is the
// machine-readable classification supplied by the store (e.g. "NOT_FOUND").
type APIError struct {
	Category   string `json:"type"    yaml:"type"`
	Message    string `json:"message" yaml:"message"`
	StatusCode int    `json:"-"       yaml:"status_code"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status: %d)", e.Category, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Category, e.Message, e.StatusCode)
}

// UnexpectedStatusError is returned when the store answers with a non-2xx
// status but no semantic error payload.
type UnexpectedStatusError struct {
	StatusCode int
	Header     http.Header
	Body       any
}

// Error implements the error interface.
func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("store responded with status code %d, but no semantic error in response: %v", e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) hold.
func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Common error categories.
const (
	CategoryNotFound        = constants.CategoryNotFound
	CategoryModelIDNotFound = constants.CategoryModelIDNotFound
	CategoryUnauthorized    = constants.CategoryAuthenticationNeeded
	CategoryForbidden       = constants.CategoryNotAuthorized
	CategoryTooManyRequests = constants.CategoryTooManyRequests
	CategoryInvalidRecords  = constants.CategoryInvalidRecords
)

// Common static errors that can be wrapped with context.
var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrConfigRequired   = errors.New("config is required")
	ErrAPIKeyRequired   = constants.ErrAPIKeyRequired
	ErrBaseIDRequired   = constants.ErrBaseIDRequired
	ErrEndpointRequired = constants.ErrEndpointRequired
	ErrRepeatedOffset   = errors.New("store repeated a continuation token")
	ErrEmptyRecordID    = errors.New("record id is required")
	ErrNoMoreItems      = errors.New("no more items")
	ErrNilEndpoint      = errors.New("endpoint is required")
)

// AsAPIError returns the normalized error wrapped in err, if any.
func AsAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsCategory checks if err is a normalized error of the given category.
func IsCategory(err error, category string) bool {
	apiErr, ok := AsAPIError(err)

	return ok && apiErr.Category == category
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}

	return apiErr.Category == CategoryNotFound || apiErr.Category == CategoryModelIDNotFound
}

// IsUnauthorized checks if the error is an authentication error.
func IsUnauthorized(err error) bool {
	return IsCategory(err, CategoryUnauthorized)
}

// IsRateLimited checks if the store rejected the request for exceeding its rate.
func IsRateLimited(err error) bool {
	return IsCategory(err, CategoryTooManyRequests)
}
