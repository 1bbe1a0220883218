package tables

import (
	"context"
	"fmt"
)

// Table is a named remote collection paired with an optional field validator.
// It holds no records and no per-call state, so it is safe for concurrent use.
type Table[F any] struct {
	source    Endpoint
	name      string
	validator Validator[F]
}

// NewTable creates a table dispatching through source. A nil validator means
// fields are trusted as the store returns them.
func NewTable[F any](source Endpoint, name string, validator Validator[F]) *Table[F] {
	return &Table[F]{
		source:    source,
		name:      name,
		validator: validator,
	}
}

// Name returns the table name.
func (t *Table[F]) Name() string {
	return t.name
}

// CreateValidation implements Validator.
func (t *Table[F]) CreateValidation(reference string) ValidationContext[F] {
	if t.validator == nil {
		return NewTrustingValidation[F]()
	}

	return t.validator.CreateValidation(reference)
}

// RunTableAction runs an action with a path relative to the table.
func (t *Table[F]) RunTableAction(ctx context.Context, method Method, options ActionOptions) (any, error) {
	options.Path = JoinPath(t.name, options.Path)

	return t.source.RunAction(ctx, method, options)
}

// Record returns a handle for id without fetching it.
func (t *Table[F]) Record(id string) *Record[F] {
	return &Record[F]{ID: id, source: t}
}

// Find fetches one record.
func (t *Table[F]) Find(ctx context.Context, id string) (*Record[F], error) {
	return t.Record(id).Fetch(ctx)
}

// FindOrNull fetches one record and returns nil, nil when the store reports
// it as not found. Every other failure is returned.
func (t *Table[F]) FindOrNull(ctx context.Context, id string) (*Record[F], error) {
	record, err := t.Find(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return record, nil
}

// Select starts a query. The query is lazy: nothing is fetched until it is iterated.
func (t *Table[F]) Select(params *SelectParams) *SelectQuery[F] {
	return NewSelectQuery[F](t, params)
}

// Create creates one record.
func (t *Table[F]) Create(ctx context.Context, fields F) (*Record[F], error) {
	data, err := runValidated(ctx, t.RunTableAction, MethodPost, ActionOptions{
		Payload: &Payload{Body: map[string]any{"fields": fields}},
	}, NewRecordDataValidation[F](t, ""))
	if err != nil {
		return nil, fmt.Errorf("creating record in %s: %w", t.name, err)
	}

	return newRecord[F](t, data), nil
}

// CreateMany creates all records in one request and returns them in the
// order the store returned them.
func (t *Table[F]) CreateMany(ctx context.Context, fields []F) ([]*Record[F], error) {
	records := make([]map[string]any, len(fields))
	for index, item := range fields {
		records[index] = map[string]any{"fields": item}
	}

	return t.runMulti(ctx, MethodPost, records, "creating")
}

// Update merges fields into the existing fields of the record.
func (t *Table[F]) Update(ctx context.Context, id string, fields F) (*Record[F], error) {
	return t.Record(id).Update(ctx, fields)
}

// UpdateMany merges fields of several records in one request.
func (t *Table[F]) UpdateMany(ctx context.Context, records []RecordData[F]) ([]*Record[F], error) {
	return t.runMulti(ctx, MethodPatch, records, "updating")
}

// Replace replaces all fields of the record; fields not given are cleared.
func (t *Table[F]) Replace(ctx context.Context, id string, fields F) (*Record[F], error) {
	return t.Record(id).Replace(ctx, fields)
}

// ReplaceMany replaces the fields of several records in one request.
func (t *Table[F]) ReplaceMany(ctx context.Context, records []RecordData[F]) ([]*Record[F], error) {
	return t.runMulti(ctx, MethodPut, records, "replacing")
}

// Destroy deletes one record.
func (t *Table[F]) Destroy(ctx context.Context, id string) (*DeletedRecord, error) {
	return t.Record(id).Destroy(ctx)
}

// DestroyMany deletes several records in one request. Markers are returned
// in the order of ids.
func (t *Table[F]) DestroyMany(ctx context.Context, ids []string) ([]DeletedRecord, error) {
	deleted, err := runValidated(ctx, t.RunTableAction, MethodDelete, ActionOptions{
		Payload: &Payload{Query: map[string]any{"records": ids}},
	}, NewMultiRecordValidation(DeletedRecordValidator))
	if err != nil {
		return nil, fmt.Errorf("deleting records in %s: %w", t.name, err)
	}

	return deleted, nil
}

func (t *Table[F]) runMulti(ctx context.Context, method Method, records any, verb string) ([]*Record[F], error) {
	data, err := runValidated(ctx, t.RunTableAction, method, ActionOptions{
		Payload: &Payload{Body: map[string]any{"records": records}},
	}, NewMultiRecordValidation(RecordDataValidator[F](t)))
	if err != nil {
		return nil, fmt.Errorf("%s records in %s: %w", verb, t.name, err)
	}

	return newRecords[F](t, data), nil
}
