package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Store endpoint defaults.
const (
	// DefaultEndpointURL is the public endpoint of the hosted table store.
	DefaultEndpointURL = "https://api.airtable.com"

	// DefaultAPIVersion is the path segment placed between endpoint and base.
	DefaultAPIVersion = "v0"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "tablestore-go/1.0"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second

	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// Store limits.
const (
	// DefaultRequestsPerSecond is the per-base request rate the store tolerates.
	DefaultRequestsPerSecond = 5

	// MaxPageSize is the largest page size the store returns.
	MaxPageSize = 100

	// DefaultPageSize is used by the emulator when no page size is requested.
	DefaultPageSize = 100

	// MaxBatchSize is the largest number of records one write request may carry.
	MaxBatchSize = 10
)

// Error categories reported by the store.
const (
	CategoryNotFound              = "NOT_FOUND"
	CategoryModelIDNotFound       = "MODEL_ID_NOT_FOUND"
	CategoryAuthenticationNeeded  = "AUTHENTICATION_REQUIRED"
	CategoryNotAuthorized         = "NOT_AUTHORIZED"
	CategoryInvalidRequest        = "INVALID_REQUEST_UNKNOWN"
	CategoryInvalidRecords        = "INVALID_RECORDS"
	CategoryRequestTooLarge       = "REQUEST_TOO_LARGE"
	CategoryTooManyRequests       = "TOO_MANY_REQUESTS"
	CategoryServerError           = "SERVER_ERROR"
	CategoryServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CategoryUnexpectedStatus      = "UNEXPECTED_STATUS"
	CategoryConnectionError       = "CONNECTION_ERROR"
	CategoryUnprocessableResponse = "UNPROCESSABLE_RESPONSE"
)

// Environment variable names.
const (
	EnvPrefix      = "TABLESTORE_"
	EnvEndpointURL = EnvPrefix + "ENDPOINT_URL"
	EnvAPIKey      = EnvPrefix + "API_KEY"
	EnvAPIVersion  = EnvPrefix + "API_VERSION"
	EnvBaseID      = EnvPrefix + "BASE_ID"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)
