// Package endpoint holds the two transports a Base can dispatch through.
package endpoint

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/fivetwenty-io/tablestore/internal/auth"
	"github.com/fivetwenty-io/tablestore/internal/constants"
	internalhttp "github.com/fivetwenty-io/tablestore/internal/http"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// RESTEndpoint calls the store's REST API directly. Paths are resolved
// against {endpointURL}/{apiVersion}/{baseID}/.
type RESTEndpoint struct {
	client *internalhttp.Client
	baseID string
}

// NewREST builds the direct HTTP endpoint. Missing credentials or identifiers
// fail here, before any request is made.
func NewREST(config *tables.Config) (*RESTEndpoint, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	endpointURL := strings.TrimSuffix(config.EndpointURL, "/")
	if endpointURL == "" {
		endpointURL = constants.DefaultEndpointURL
	}

	if _, err := url.Parse(endpointURL); err != nil {
		return nil, fmt.Errorf("%w: %w", tables.ErrEndpointRequired, err)
	}

	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = constants.DefaultAPIVersion
	}

	opts := []internalhttp.Option{
		internalhttp.WithDebug(config.Debug),
		internalhttp.WithUserAgent(config.UserAgent),
		internalhttp.WithHTTPTimeout(config.HTTPTimeout),
	}

	if config.Logger != nil {
		opts = append(opts, internalhttp.WithLogger(config.Logger))
	}

	if config.RetryMax != 0 || config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		retryMax := config.RetryMax
		if retryMax == 0 {
			retryMax = constants.DefaultRetryMax
		}

		retryMax = max(retryMax, 0)

		waitMin := config.RetryWaitMin
		if waitMin == 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax == 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, internalhttp.WithRetryConfig(retryMax, waitMin, waitMax))
	}

	baseURL := endpointURL + "/" + url.PathEscape(apiVersion) + "/" + url.PathEscape(config.BaseID)

	return &RESTEndpoint{
		client: internalhttp.NewClient(baseURL, auth.NewStaticTokenManager(config.APIKey), opts...),
		baseID: config.BaseID,
	}, nil
}

// NewRESTWithClient wraps an already configured HTTP client whose base URL
// points at one base.
func NewRESTWithClient(client *internalhttp.Client) *RESTEndpoint {
	return &RESTEndpoint{client: client}
}

// BaseURL returns the URL all action paths are relative to.
func (e *RESTEndpoint) BaseURL() string {
	return e.client.BaseURL()
}

// RunAction implements tables.Endpoint.
func (e *RESTEndpoint) RunAction(ctx context.Context, method tables.Method, options tables.ActionOptions) (any, error) {
	query, err := EncodeQuery(options.Query())
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(ctx, &internalhttp.Request{
		Method: string(method),
		Path:   options.Path,
		Query:  query,
		Body:   options.Body(),
	})
	if err != nil {
		return nil, err
	}

	return internalhttp.DecodeJSON(resp)
}

// EncodeQuery JSON-encodes every query value. Nil values are skipped.
func EncodeQuery(query map[string]any) (url.Values, error) {
	if len(query) == 0 {
		return nil, nil
	}

	values := url.Values{}

	for key, value := range query {
		if value == nil {
			continue
		}

		encoded, err := json.MarshalNoEscape(value)
		if err != nil {
			return nil, fmt.Errorf("encoding query parameter %q: %w", key, err)
		}

		values.Set(key, string(encoded))
	}

	return values, nil
}
