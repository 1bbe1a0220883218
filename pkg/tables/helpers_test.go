package tables_test

import (
	"context"
	"sync"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// call is one action seen by a fakeEndpoint.
type call struct {
	Method tables.Method
	Path   string
	Query  map[string]any
	Body   any
}

// fakeEndpoint records every action and answers through respond.
type fakeEndpoint struct {
	mu      sync.Mutex
	calls   []call
	respond func(call call) (any, error)
}

func newFakeEndpoint(respond func(call call) (any, error)) *fakeEndpoint {
	return &fakeEndpoint{respond: respond}
}

func (f *fakeEndpoint) RunAction(ctx context.Context, method tables.Method, options tables.ActionOptions) (any, error) {
	c := call{
		Method: method,
		Path:   options.Path,
		Query:  options.Query(),
		Body:   options.Body(),
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	return f.respond(c)
}

func (f *fakeEndpoint) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]call(nil), f.calls...)
}

func (f *fakeEndpoint) LastCall() call {
	calls := f.Calls()

	return calls[len(calls)-1]
}

// respondWith always returns value.
func respondWith(value any) func(call) (any, error) {
	return func(call) (any, error) {
		return value, nil
	}
}

// failWith always returns err.
func failWith(err error) func(call) (any, error) {
	return func(call) (any, error) {
		return nil, err
	}
}

func recordJSON(id string, fields map[string]any) map[string]any {
	return map[string]any{"id": id, "fields": fields}
}

// pagedEndpoint serves list pages keyed by the offset query value.
func pagedEndpoint(pages map[string]any, errs map[string]error) *fakeEndpoint {
	return newFakeEndpoint(func(c call) (any, error) {
		offset, _ := c.Query["offset"].(string)

		if err, ok := errs[offset]; ok {
			return nil, err
		}

		return pages[offset], nil
	})
}

func newBase(endpoint tables.Endpoint) *tables.Base {
	base, err := tables.NewBase(endpoint)
	if err != nil {
		panic(err)
	}

	return base
}

func recordIDs[F any](records []*tables.Record[F]) []string {
	ids := make([]string, len(records))
	for index, record := range records {
		ids[index] = record.ID
	}

	return ids
}

// logEntry is one message captured by captureLogger.
type logEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{Level: level, Message: msg, Fields: fields})
}

func (l *captureLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *captureLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *captureLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *captureLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *captureLogger) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]logEntry(nil), l.entries...)
}
