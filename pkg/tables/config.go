package tables

import (
	"time"
)

// Config represents client configuration for building a Base over the direct
// HTTP transport.
//
// # Required fields
//
// APIKey and BaseID must be set. EndpointURL and APIVersion default to the
// hosted store. Constructors fail with ErrAPIKeyRequired or ErrBaseIDRequired
// before making any request.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via the context passed
// to each operation. Transient failures (429, >=500 and connection errors) are
// retried by the transport; validation failures and other remote errors never are.
type Config struct {
	// EndpointURL: base URL of the store (e.g., "https://api.airtable.com").
	EndpointURL string
	// APIKey: bearer credential sent with every request.
	APIKey string
	// APIVersion: path segment after the endpoint URL (e.g., "v0").
	APIVersion string
	// BaseID: identifier of the base all tables belong to.
	BaseID string

	// HTTPTimeout: timeout of a single HTTP attempt.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. If 0, a
	// sensible default is used; NoRetries (or any negative value) disables
	// retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// RequestsPerSecond: when positive, actions are rate limited client-side.
	RequestsPerSecond int

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and interceptors.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
}

// NoRetries as Config.RetryMax sends every request exactly once.
const NoRetries = -1

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}

	if c.BaseID == "" {
		return ErrBaseIDRequired
	}

	return nil
}
