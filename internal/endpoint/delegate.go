package endpoint

import (
	"context"
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// DelegatingEndpoint forwards every action to the request primitive of an
// existing store client.
type DelegatingEndpoint struct {
	requester tables.Requester
}

// NewDelegating wraps requester.
func NewDelegating(requester tables.Requester) (*DelegatingEndpoint, error) {
	if requester == nil {
		return nil, tables.ErrNilEndpoint
	}

	return &DelegatingEndpoint{requester: requester}, nil
}

// RunAction implements tables.Endpoint. Semantic failures reported by the
// requester become *tables.APIError; a non-2xx response without one becomes
// *tables.UnexpectedStatusError.
func (e *DelegatingEndpoint) RunAction(ctx context.Context, method tables.Method, options tables.ActionOptions) (any, error) {
	resp, err := e.requester.MakeRequest(ctx, &tables.Request{
		Method: method,
		Path:   "/" + options.Path,
		Query:  options.Query(),
		Body:   options.Body(),
	})
	if err != nil {
		sdkErr := &tables.SDKError{}
		if errors.As(err, &sdkErr) {
			return nil, pkgerrors.WithStack(&tables.APIError{
				Category:   sdkErr.Type,
				Message:    sdkErr.Message,
				StatusCode: sdkErr.StatusCode,
			})
		}

		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &tables.UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}
	}

	return resp.Body, nil
}
