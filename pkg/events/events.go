// Package events publishes committed write actions to NATS.
//
//	conn, err := events.Connect("nats://localhost:4222")
//	if err != nil { return err }
//	defer conn.Close()
//
//	base, err := tsclient.New(cfg, tsclient.WithResponseInterceptor(
//		events.ResponseInterceptor(events.NewPublisher(conn, "tablestore"), logger),
//	))
package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// Static errors for err113 compliance.
var (
	ErrNilConnection = errors.New("nats connection is required")
)

// Kinds of write events.
const (
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindReplaced = "replaced"
	KindDeleted  = "deleted"
)

// Event describes one committed write action.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Table     string    `json:"table"`
	RecordIDs []string  `json:"record_ids"`
	Time      time.Time `json:"time"`
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NATSPublisher publishes events as JSON on "<prefix>.<table>.<kind>".
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// Connect dials a NATS server with a client name set.
func Connect(serverURL string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{nats.Name("tablestore")}, opts...)

	conn, err := nats.Connect(serverURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return conn, nil
}

// NewPublisher publishes on conn under prefix.
func NewPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.Trim(prefix, ".")}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event *Event) string {
	parts := []string{sanitizeToken(event.Table), event.Kind}
	if p.prefix != "" {
		parts = append([]string{p.prefix}, parts...)
	}

	return strings.Join(parts, ".")
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	if p.conn == nil {
		return ErrNilConnection
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = p.conn.Publish(p.Subject(event), data)
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	return nil
}

// NewEvent builds the event of a successful action, or nil for reads and
// sub-path actions.
func NewEvent(req *tables.ActionRequest, result any) *Event {
	kind := kindOf(req.Method)
	if kind == "" {
		return nil
	}

	segments := strings.Split(req.Path, "/")
	if len(segments) == 0 || segments[0] == "" || len(segments) > 2 {
		return nil
	}

	table, err := url.PathUnescape(segments[0])
	if err != nil {
		table = segments[0]
	}

	return &Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Table:     table,
		RecordIDs: recordIDs(result),
		Time:      time.Now().UTC(),
	}
}

// ResponseInterceptor publishes an event after every successful write.
// Publishing failures are logged and never fail the action.
func ResponseInterceptor(publisher Publisher, logger tables.Logger) tables.ResponseInterceptor {
	return func(ctx context.Context, req *tables.ActionRequest, resp *tables.ActionResponse) error {
		if resp.Error != nil {
			return nil
		}

		event := NewEvent(req, resp.Result)
		if event == nil {
			return nil
		}

		err := publisher.Publish(ctx, event)
		if err != nil && logger != nil {
			logger.Warn("Event publish failed", map[string]interface{}{
				"table": event.Table,
				"kind":  event.Kind,
				"error": err.Error(),
			})
		}

		return nil
	}
}

func kindOf(method tables.Method) string {
	switch method {
	case tables.MethodPost:
		return KindCreated
	case tables.MethodPatch:
		return KindUpdated
	case tables.MethodPut:
		return KindReplaced
	case tables.MethodDelete:
		return KindDeleted
	case tables.MethodGet:
	}

	return ""
}

func recordIDs(result any) []string {
	object, ok := result.(map[string]any)
	if !ok {
		return nil
	}

	if id, ok := object["id"].(string); ok {
		return []string{id}
	}

	entries, _ := object["records"].([]any)
	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if record, ok := entry.(map[string]any); ok {
			if id, ok := record["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}

	return ids
}

// sanitizeToken makes a table name usable as one subject token.
func sanitizeToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>', '\t', '\n':
			return '_'
		}

		return r
	}, name)
}
