// Package tsclient provides the entry points for creating a tables.Base over
// one of the two transports.
package tsclient

import (
	"fmt"

	"github.com/fivetwenty-io/tablestore/internal/config"
	"github.com/fivetwenty-io/tablestore/internal/endpoint"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// Option adjusts the endpoint a Base is built on.
type Option func(*options)

type options struct {
	requestInterceptors  []tables.RequestInterceptor
	responseInterceptors []tables.ResponseInterceptor
}

// WithRequestInterceptor runs interceptor before every action.
func WithRequestInterceptor(interceptor tables.RequestInterceptor) Option {
	return func(o *options) {
		o.requestInterceptors = append(o.requestInterceptors, interceptor)
	}
}

// WithResponseInterceptor runs interceptor after every action.
func WithResponseInterceptor(interceptor tables.ResponseInterceptor) Option {
	return func(o *options) {
		o.responseInterceptors = append(o.responseInterceptors, interceptor)
	}
}

// New creates a Base calling the store's REST API directly. The configuration
// is checked before anything else happens.
func New(cfg *tables.Config, opts ...Option) (*tables.Base, error) {
	if cfg == nil {
		return nil, tables.ErrConfigRequired
	}

	rest, err := endpoint.NewREST(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating REST endpoint: %w", err)
	}

	if cfg.RequestsPerSecond > 0 {
		opts = append([]Option{WithRequestInterceptor(tables.RateLimitInterceptor(cfg.RequestsPerSecond))}, opts...)
	}

	if cfg.Logger != nil {
		opts = append(opts,
			WithRequestInterceptor(tables.LoggingInterceptor(cfg.Logger)),
			WithResponseInterceptor(tables.LoggingResponseInterceptor(cfg.Logger)),
		)
	}

	return newBase(rest, opts)
}

// NewWithAPIKey creates a Base on the hosted store with default settings.
func NewWithAPIKey(apiKey, baseID string, opts ...Option) (*tables.Base, error) {
	return New(&tables.Config{APIKey: apiKey, BaseID: baseID}, opts...)
}

// FromEnv creates a Base from TABLESTORE_* variables, loading ./.env first.
func FromEnv(opts ...Option) (*tables.Base, error) {
	env, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return New(env.ToConfig(), opts...)
}

// FromRequester creates a Base delegating every action to the request
// primitive of an existing store client.
func FromRequester(requester tables.Requester, opts ...Option) (*tables.Base, error) {
	delegate, err := endpoint.NewDelegating(requester)
	if err != nil {
		return nil, fmt.Errorf("creating delegating endpoint: %w", err)
	}

	return newBase(delegate, opts)
}

func newBase(next tables.Endpoint, opts []Option) (*tables.Base, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.requestInterceptors) > 0 || len(o.responseInterceptors) > 0 {
		chain := tables.NewInterceptorChain()
		for _, interceptor := range o.requestInterceptors {
			chain.AddRequestInterceptor(interceptor)
		}

		for _, interceptor := range o.responseInterceptors {
			chain.AddResponseInterceptor(interceptor)
		}

		next = tables.NewInterceptingEndpoint(next, chain)
	}

	return tables.NewBase(next)
}
