package tables

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/tablestore/internal/constants"
)

// ErrCircuitBreakerOpen is returned while the circuit breaker rejects actions.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// ActionRequest is an action as seen by interceptors.
type ActionRequest struct {
	Method   Method
	Path     string
	Query    map[string]any
	Body     any
	Metadata map[string]interface{}
}

// ActionResponse is the outcome of an action as seen by interceptors.
type ActionResponse struct {
	Result any
	Error  error
}

// StatusCode returns the status of a failed action, or 200.
func (r *ActionResponse) StatusCode() int {
	if r.Error == nil {
		return 200
	}

	if apiErr, ok := AsAPIError(r.Error); ok {
		return apiErr.StatusCode
	}

	statusErr := &UnexpectedStatusError{}
	if errors.As(r.Error, &statusErr) {
		return statusErr.StatusCode
	}

	return 0
}

// RequestInterceptor is called before an action is dispatched. Returning an
// error aborts the action.
type RequestInterceptor func(ctx context.Context, req *ActionRequest) error

// ResponseInterceptor is called after an action completed, failed or not.
type ResponseInterceptor func(ctx context.Context, req *ActionRequest, resp *ActionResponse) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *ActionRequest) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *ActionRequest, resp *ActionResponse) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// interceptingEndpoint runs a chain around another endpoint.
type interceptingEndpoint struct {
	next  Endpoint
	chain *InterceptorChain
}

// NewInterceptingEndpoint wraps next so every action passes through chain.
// Interceptors must be added before the endpoint is used.
func NewInterceptingEndpoint(next Endpoint, chain *InterceptorChain) Endpoint {
	return &interceptingEndpoint{next: next, chain: chain}
}

// RunAction implements Endpoint.
func (e *interceptingEndpoint) RunAction(ctx context.Context, method Method, options ActionOptions) (any, error) {
	req := &ActionRequest{
		Method: method,
		Path:   options.Path,
		Query:  options.Query(),
		Body:   options.Body(),
	}

	err := e.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := e.next.RunAction(ctx, method, options)
	resp := &ActionResponse{Result: result, Error: err}

	interceptErr := e.chain.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil {
		return nil, err
	}

	if interceptErr != nil {
		return nil, interceptErr
	}

	return result, nil
}

// Common Interceptors

// LoggingInterceptor logs actions.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *ActionRequest) error {
		logger.Debug("Action Request", map[string]interface{}{
			"method": string(req.Method),
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs action outcomes.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *ActionRequest, resp *ActionResponse) error {
		fields := map[string]interface{}{
			"method":      string(req.Method),
			"path":        req.Path,
			"status_code": resp.StatusCode(),
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("Action Response Error", fields)
		} else {
			logger.Debug("Action Response", fields)
		}

		return nil
	}
}

// RateLimiter is a token bucket refilled continuously at a fixed rate.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
	now      func() time.Time
}

// NewRateLimiter allows requestsPerSecond actions per second with bursts of the
// same size. A non-positive rate uses the store's documented per-base limit.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = constants.DefaultRequestsPerSecond
	}

	return &RateLimiter{
		rate:     float64(requestsPerSecond),
		capacity: float64(requestsPerSecond),
		tokens:   float64(requestsPerSecond),
		last:     time.Now(),
		now:      time.Now,
	}
}

// reserve takes a token and returns how long the caller must wait for it.
func (l *RateLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens = min(l.capacity, l.tokens+now.Sub(l.last).Seconds()*l.rate)
	l.last = now
	l.tokens--

	if l.tokens >= 0 {
		return 0
	}

	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	delay := l.reserve()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		l.release()

		return ctx.Err()
	}
}

// release gives back a token taken by reserve for an action never sent.
func (l *RateLimiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = min(l.capacity, l.tokens+1)
}

// RateLimitInterceptor implements client-side rate limiting.
func RateLimitInterceptor(requestsPerSecond int) RequestInterceptor {
	limiter := NewRateLimiter(requestsPerSecond)

	return func(ctx context.Context, req *ActionRequest) error {
		return limiter.Wait(ctx)
	}
}

// Metrics are the counters of one action key ("METHOD path").
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector collects per-action metrics. It is safe for concurrent use.
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(action string, metrics Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange sets a callback for when metrics change.
func (m *MetricsCollector) SetOnChange(fn func(action string, metrics Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot of the metrics for an action key.
func (m *MetricsCollector) GetMetrics(action string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.metrics[action]
	if !ok {
		return Metrics{}, false
	}

	return *metrics, true
}

func (m *MetricsCollector) record(action string, latency time.Duration, failed bool) {
	m.mu.Lock()

	metrics, ok := m.metrics[action]
	if !ok {
		metrics = &Metrics{}
		m.metrics[action] = metrics
	}

	metrics.TotalRequests++
	metrics.LastRequestTime = time.Now()
	metrics.TotalLatency += latency
	metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)

	if failed {
		metrics.TotalErrors++
	}

	snapshot := *metrics
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(action, snapshot)
	}
}

// MetricsRequestInterceptor records the action start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, req *ActionRequest) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata["start_time"] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records action metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *ActionRequest, resp *ActionResponse) error {
		var latency time.Duration

		if startTime, ok := req.Metadata["start_time"].(time.Time); ok {
			latency = time.Since(startTime)
		}

		collector.record(fmt.Sprintf("%s %s", req.Method, req.Path), latency, resp.Error != nil)

		return nil
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Threshold        int           // Number of failures before opening
	Timeout          time.Duration // Time before trying again
	SuccessThreshold int           // Number of successes to close
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreaker stops dispatching after repeated server-side failures.
type CircuitBreaker struct {
	mu          sync.Mutex
	config      *CircuitBreakerConfig
	failures    int
	successes   int
	state       circuitState
	lastFailure time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = &CircuitBreakerConfig{
			Threshold:        constants.CircuitBreakerThreshold,
			Timeout:          constants.CircuitBreakerTimeout,
			SuccessThreshold: constants.CircuitBreakerSuccessThreshold,
		}
	}

	return &CircuitBreaker{config: config}
}

// CircuitBreakerRequestInterceptor checks circuit state before actions.
func CircuitBreakerRequestInterceptor(breaker *CircuitBreaker) RequestInterceptor {
	return func(ctx context.Context, req *ActionRequest) error {
		breaker.mu.Lock()
		defer breaker.mu.Unlock()

		if breaker.state == circuitOpen {
			if time.Since(breaker.lastFailure) <= breaker.config.Timeout {
				return ErrCircuitBreakerOpen
			}

			breaker.state = circuitHalfOpen
			breaker.successes = 0
		}

		return nil
	}
}

// CircuitBreakerResponseInterceptor updates circuit state. Only server-side
// failures count; a not-found or invalid request is a healthy store. Actions
// the caller cancelled or timed out leave the state untouched.
func CircuitBreakerResponseInterceptor(breaker *CircuitBreaker) ResponseInterceptor {
	return func(ctx context.Context, req *ActionRequest, resp *ActionResponse) error {
		if resp.Error != nil && (ctx.Err() != nil ||
			errors.Is(resp.Error, context.Canceled) || errors.Is(resp.Error, context.DeadlineExceeded)) {
			return nil
		}

		breaker.mu.Lock()
		defer breaker.mu.Unlock()

		status := resp.StatusCode()
		if resp.Error != nil && (status == 0 || status >= 500) {
			breaker.failures++
			breaker.lastFailure = time.Now()

			if breaker.failures >= breaker.config.Threshold || breaker.state == circuitHalfOpen {
				breaker.state = circuitOpen
			}

			return nil
		}

		switch breaker.state {
		case circuitHalfOpen:
			breaker.successes++
			if breaker.successes >= breaker.config.SuccessThreshold {
				breaker.state = circuitClosed
				breaker.failures = 0
			}
		case circuitClosed:
			breaker.failures = 0
		case circuitOpen:
		}

		return nil
	}
}
