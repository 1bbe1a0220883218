package tables_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

var errRejected = errors.New("rejected")

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	chain := tables.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		executionOrder = append(executionOrder, "first")
		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		executionOrder = append(executionOrder, "second")
		return nil
	})

	req := &tables.ActionRequest{
		Method: tables.MethodGet,
		Path:   "People",
	}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	chain := tables.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddResponseInterceptor(func(ctx context.Context, req *tables.ActionRequest, resp *tables.ActionResponse) error {
		executionOrder = append(executionOrder, "first")
		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *tables.ActionRequest, resp *tables.ActionResponse) error {
		executionOrder = append(executionOrder, "second")
		return nil
	})

	req := &tables.ActionRequest{Method: tables.MethodGet, Path: "People"}
	resp := &tables.ActionResponse{Result: map[string]any{}}

	err := chain.ExecuteResponseInterceptors(ctx, req, resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	chain := tables.NewInterceptorChain()
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		return errRejected
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		called = true
		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &tables.ActionRequest{})
	require.ErrorIs(t, err, errRejected)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, called)
}

func TestInterceptingEndpoint(t *testing.T) {
	t.Parallel()

	endpoint := newFakeEndpoint(respondWith(recordJSON("rec1", map[string]any{"Name": "Ada"})))
	chain := tables.NewInterceptorChain()

	var (
		seenRequest  *tables.ActionRequest
		seenResponse *tables.ActionResponse
	)

	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		seenRequest = req
		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *tables.ActionRequest, resp *tables.ActionResponse) error {
		seenResponse = resp
		return nil
	})

	base := newBase(tables.NewInterceptingEndpoint(endpoint, chain))

	record, err := base.Table("People", nil).Update(context.Background(), "rec1", tables.Fields{"Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "rec1", record.ID)

	require.NotNil(t, seenRequest)
	assert.Equal(t, tables.MethodPatch, seenRequest.Method)
	assert.Equal(t, "People/rec1", seenRequest.Path)
	assert.Equal(t, map[string]any{"fields": tables.Fields{"Name": "Ada"}}, seenRequest.Body)

	require.NotNil(t, seenResponse)
	require.NoError(t, seenResponse.Error)
	assert.Equal(t, 200, seenResponse.StatusCode())
}

func TestInterceptingEndpoint_RequestInterceptorAborts(t *testing.T) {
	t.Parallel()

	endpoint := newFakeEndpoint(respondWith(nil))
	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *tables.ActionRequest) error {
		return errRejected
	})

	_, err := tables.NewInterceptingEndpoint(endpoint, chain).RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{})
	require.ErrorIs(t, err, errRejected)
	assert.Empty(t, endpoint.Calls())
}

func TestInterceptingEndpoint_ActionErrorWins(t *testing.T) {
	t.Parallel()

	remote := &tables.APIError{Category: tables.CategoryNotFound, StatusCode: 404}
	chain := tables.NewInterceptorChain()

	var status int

	chain.AddResponseInterceptor(func(ctx context.Context, req *tables.ActionRequest, resp *tables.ActionResponse) error {
		status = resp.StatusCode()
		return errRejected
	})

	_, err := tables.NewInterceptingEndpoint(newFakeEndpoint(failWith(remote)), chain).
		RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People/rec1"})
	require.ErrorIs(t, err, remote)
	assert.True(t, tables.IsNotFound(err))
	assert.Equal(t, 404, status)

	_, err = tables.NewInterceptingEndpoint(newFakeEndpoint(respondWith(nil)), chain).
		RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People/rec1"})
	require.ErrorIs(t, err, errRejected)
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}
	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(tables.LoggingInterceptor(logger))
	chain.AddResponseInterceptor(tables.LoggingResponseInterceptor(logger))

	ok := tables.NewInterceptingEndpoint(newFakeEndpoint(respondWith(map[string]any{})), chain)
	_, err := ok.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.NoError(t, err)

	failing := tables.NewInterceptingEndpoint(newFakeEndpoint(failWith(
		&tables.APIError{Category: "SERVER_ERROR", StatusCode: 500})), chain)
	_, err = failing.RunAction(context.Background(), tables.MethodDelete, tables.ActionOptions{Path: "People/rec1"})
	require.Error(t, err)

	entries := logger.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, "Action Request", entries[0].Message)
	assert.Equal(t, "GET", entries[0].Fields["method"])
	assert.Equal(t, "People", entries[0].Fields["path"])

	assert.Equal(t, "Action Response", entries[1].Message)
	assert.Equal(t, "debug", entries[1].Level)
	assert.Equal(t, 200, entries[1].Fields["status_code"])

	assert.Equal(t, "Action Response Error", entries[3].Message)
	assert.Equal(t, "error", entries[3].Level)
	assert.Equal(t, 500, entries[3].Fields["status_code"])
	assert.Contains(t, entries[3].Fields["error"], "SERVER_ERROR")
}

func TestActionResponse_StatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 200, (&tables.ActionResponse{}).StatusCode())
	assert.Equal(t, 422, (&tables.ActionResponse{Error: &tables.APIError{StatusCode: 422}}).StatusCode())
	assert.Equal(t, 0, (&tables.ActionResponse{Error: errRejected}).StatusCode())
	assert.Equal(t, 403, (&tables.ActionResponse{
		Error: fmt.Errorf("delegate: %w", &tables.UnexpectedStatusError{StatusCode: 403}),
	}).StatusCode())
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := tables.NewMetricsCollector()

	var changes []string

	collector.SetOnChange(func(action string, metrics tables.Metrics) {
		changes = append(changes, action)
	})

	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(tables.MetricsRequestInterceptor(collector))
	chain.AddResponseInterceptor(tables.MetricsResponseInterceptor(collector))

	calls := 0
	endpoint := newFakeEndpoint(func(call) (any, error) {
		calls++
		if calls == 2 {
			return nil, errRejected
		}

		return map[string]any{}, nil
	})

	intercepted := tables.NewInterceptingEndpoint(endpoint, chain)
	for range 3 {
		_, _ = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	}

	metrics, ok := collector.GetMetrics("GET People")
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Equal(t, metrics.TotalLatency/3, metrics.AverageLatency)
	assert.Equal(t, []string{"GET People", "GET People", "GET People"}, changes)

	_, ok = collector.GetMetrics("DELETE People")
	assert.False(t, ok)
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	breaker := tables.NewCircuitBreaker(&tables.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          20 * time.Millisecond,
		SuccessThreshold: 1,
	})

	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(tables.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(tables.CircuitBreakerResponseInterceptor(breaker))

	var failure error

	endpoint := newFakeEndpoint(func(call) (any, error) {
		return map[string]any{}, failure
	})
	intercepted := tables.NewInterceptingEndpoint(endpoint, chain)

	run := func() error {
		_, err := intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})

		return err
	}

	failure = &tables.APIError{Category: tables.CategoryNotFound, StatusCode: 404}
	for range 3 {
		require.Error(t, run())
	}

	failure = nil
	require.NoError(t, run(), "client errors do not open the circuit")

	failure = &tables.APIError{Category: "SERVER_ERROR", StatusCode: 500}
	require.Error(t, run())
	require.Error(t, run())

	err := run()
	require.ErrorIs(t, err, tables.ErrCircuitBreakerOpen)
	assert.Len(t, endpoint.Calls(), 6)

	time.Sleep(40 * time.Millisecond)

	failure = nil
	require.NoError(t, run())
	require.NoError(t, run())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	breaker := tables.NewCircuitBreaker(&tables.CircuitBreakerConfig{
		Threshold:        1,
		Timeout:          20 * time.Millisecond,
		SuccessThreshold: 2,
	})

	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(tables.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(tables.CircuitBreakerResponseInterceptor(breaker))

	intercepted := tables.NewInterceptingEndpoint(newFakeEndpoint(failWith(errConnection)), chain)

	_, err := intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{})
	require.ErrorIs(t, err, errConnection)

	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{})
	require.ErrorIs(t, err, tables.ErrCircuitBreakerOpen)

	time.Sleep(40 * time.Millisecond)

	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{})
	require.ErrorIs(t, err, errConnection)

	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{})
	require.ErrorIs(t, err, tables.ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_IgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	breaker := tables.NewCircuitBreaker(&tables.CircuitBreakerConfig{
		Threshold:        1,
		Timeout:          time.Minute,
		SuccessThreshold: 1,
	})

	chain := tables.NewInterceptorChain()
	chain.AddRequestInterceptor(tables.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(tables.CircuitBreakerResponseInterceptor(breaker))

	var failure error

	endpoint := newFakeEndpoint(func(call) (any, error) {
		return map[string]any{}, failure
	})
	intercepted := tables.NewInterceptingEndpoint(endpoint, chain)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	failure = fmt.Errorf("executing request: %w", context.Canceled)
	_, err := intercepted.RunAction(cancelled, tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.ErrorIs(t, err, context.Canceled)

	failure = fmt.Errorf("executing request: %w", context.DeadlineExceeded)
	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	failure = &tables.UnexpectedStatusError{StatusCode: 404}
	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.ErrorIs(t, err, tables.ErrUnexpectedStatus)

	failure = nil
	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.NoError(t, err, "cancellations and client errors do not open the circuit")

	failure = &tables.UnexpectedStatusError{StatusCode: 502}
	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.ErrorIs(t, err, tables.ErrUnexpectedStatus)

	_, err = intercepted.RunAction(context.Background(), tables.MethodGet, tables.ActionOptions{Path: "People"})
	require.ErrorIs(t, err, tables.ErrCircuitBreakerOpen)
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	breaker := tables.NewCircuitBreaker(nil)
	interceptor := tables.CircuitBreakerRequestInterceptor(breaker)

	require.NoError(t, interceptor(context.Background(), &tables.ActionRequest{}))
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := tables.RateLimitInterceptor(1000)

	for range 5 {
		require.NoError(t, interceptor(context.Background(), &tables.ActionRequest{}))
	}
}
