package emulator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Static errors for err113 compliance.
var (
	ErrRecordNotFound = errors.New("record not found")
)

// StoredRecord is one row of the emulated store.
type StoredRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Update is one entry of a batch update.
type Update struct {
	ID     string
	Fields map[string]any
}

// Store keeps records of every table in SQLite. Batch writes are atomic.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenStore opens (or creates) a store. Use ":memory:" for an in-memory database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// One connection keeps an in-memory database shared by every query.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		table_name TEXT NOT NULL,
		fields     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS records_table ON records(table_name, seq);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRecordID returns an id in the store's "rec" + 14 characters format.
func NewRecordID() string {
	return "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

// Get returns one record of table.
func (s *Store) Get(ctx context.Context, table, id string) (*StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get(ctx, s.db, table, id)
}

// List returns every record of table in insertion order.
func (s *Store) List(ctx context.Context, table string) ([]*StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields FROM records WHERE table_name = ? ORDER BY seq", table)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", table, err)
	}

	defer func() { _ = rows.Close() }()

	records := []*StoredRecord{}

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		record, err := decodeRecord(id, raw)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %q: %w", table, err)
	}

	return records, nil
}

// Create inserts records and returns them with their new ids.
func (s *Store) Create(ctx context.Context, table string, fields []map[string]any) ([]*StoredRecord, error) {
	created := make([]*StoredRecord, 0, len(fields))

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range fields {
			record := &StoredRecord{ID: NewRecordID(), Fields: compact(item)}

			raw, err := json.Marshal(record.Fields)
			if err != nil {
				return fmt.Errorf("encode fields: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				"INSERT INTO records (id, table_name, fields) VALUES (?, ?, ?)", record.ID, table, string(raw))
			if err != nil {
				return fmt.Errorf("insert record: %w", err)
			}

			created = append(created, record)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Update writes fields of existing records. With replace every field not
// given is cleared; otherwise fields are merged and null clears a field.
func (s *Store) Update(ctx context.Context, table string, updates []Update, replace bool) ([]*StoredRecord, error) {
	updated := make([]*StoredRecord, 0, len(updates))

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, update := range updates {
			record, err := get(ctx, tx, table, update.ID)
			if err != nil {
				return err
			}

			if replace {
				record.Fields = compact(update.Fields)
			} else {
				for key, value := range update.Fields {
					if value == nil {
						delete(record.Fields, key)
					} else {
						record.Fields[key] = value
					}
				}
			}

			raw, err := json.Marshal(record.Fields)
			if err != nil {
				return fmt.Errorf("encode fields: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				"UPDATE records SET fields = ? WHERE id = ? AND table_name = ?", string(raw), record.ID, table)
			if err != nil {
				return fmt.Errorf("update record: %w", err)
			}

			updated = append(updated, record)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes records. Either all ids exist and are removed, or none are.
func (s *Store) Delete(ctx context.Context, table string, ids []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			result, err := tx.ExecContext(ctx,
				"DELETE FROM records WHERE id = ? AND table_name = ?", id, table)
			if err != nil {
				return fmt.Errorf("delete record: %w", err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete record: %w", err)
			}

			if affected == 0 {
				return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
			}
		}

		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, table, id string) (*StoredRecord, error) {
	var raw string

	err := q.QueryRowContext(ctx,
		"SELECT fields FROM records WHERE id = ? AND table_name = ?", id, table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get %q: %w", id, err)
	}

	return decodeRecord(id, raw)
}

func decodeRecord(id, raw string) (*StoredRecord, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields of %q: %w", id, err)
	}

	return &StoredRecord{ID: id, Fields: fields}, nil
}

// compact drops null fields; the store never keeps empty cells.
func compact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))

	for key, value := range fields {
		if value != nil {
			out[key] = value
		}
	}

	return out
}
