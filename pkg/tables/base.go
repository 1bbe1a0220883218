package tables

import (
	"context"
)

// Base is the entry point for one remote base. It forwards every action to
// its Endpoint and hands out tables.
type Base struct {
	endpoint Endpoint
}

// NewBase creates a base over the given endpoint.
func NewBase(endpoint Endpoint) (*Base, error) {
	if endpoint == nil {
		return nil, ErrNilEndpoint
	}

	return &Base{endpoint: endpoint}, nil
}

// Endpoint returns the transport the base dispatches to.
func (b *Base) Endpoint() Endpoint {
	return b.endpoint
}

// RunAction implements Endpoint.
func (b *Base) RunAction(ctx context.Context, method Method, options ActionOptions) (any, error) {
	return b.endpoint.RunAction(ctx, method, options)
}

// Table returns an untyped table. A nil validator means the store is trusted.
func (b *Base) Table(name string, validator Validator[Fields]) *Table[Fields] {
	return NewTable(b, name, validator)
}

// DataSource is the table-scoped capability records and queries are built
// on: dispatch relative to the table plus field validation.
type DataSource[F any] interface {
	Validator[F]
	RunTableAction(ctx context.Context, method Method, options ActionOptions) (any, error)
}

// runValidated dispatches one action and validates the raw response.
func runValidated[T any](
	ctx context.Context,
	run func(context.Context, Method, ActionOptions) (any, error),
	method Method,
	options ActionOptions,
	validation ValidationContext[T],
) (T, error) {
	var zero T

	raw, err := run(ctx, method, options)
	if err != nil {
		return zero, err
	}

	value, ok := validation.IsValid(raw)
	if !ok {
		err := validation.ValidationError()
		if err == nil {
			err = ErrUnknownValidation
		}

		return zero, err
	}

	return value, nil
}
