package tables

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

// Record is a handle on one stored record. Write operations never mutate the
// handle; they return a new Record holding the store's post-write state.
type Record[F any] struct {
	ID     string
	Fields F

	source DataSource[F]
}

func newRecord[F any](source DataSource[F], data RecordData[F]) *Record[F] {
	return &Record[F]{ID: data.ID, Fields: data.Fields, source: source}
}

func newRecords[F any](source DataSource[F], data []RecordData[F]) []*Record[F] {
	records := make([]*Record[F], len(data))
	for index, item := range data {
		records[index] = newRecord(source, item)
	}

	return records
}

// Data returns the identity and fields of the record, without its source.
func (r *Record[F]) Data() RecordData[F] {
	return RecordData[F]{ID: r.ID, Fields: r.Fields}
}

// MarshalJSON encodes the record in its wire shape.
func (r *Record[F]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data())
}

// RunAction runs an action with a path relative to the record.
func (r *Record[F]) RunAction(ctx context.Context, method Method, options ActionOptions) (any, error) {
	if r.ID == "" {
		return nil, ErrEmptyRecordID
	}

	options.Path = JoinPath(r.ID, options.Path)

	return r.source.RunTableAction(ctx, method, options)
}

// Fetch loads the current state of the record.
func (r *Record[F]) Fetch(ctx context.Context) (*Record[F], error) {
	data, err := runValidated(ctx, r.RunAction, MethodGet, ActionOptions{},
		NewRecordDataValidation[F](r.source, ""))
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", r.ID, err)
	}

	return newRecord(r.source, data), nil
}

// Update merges fields into the stored fields.
func (r *Record[F]) Update(ctx context.Context, fields F) (*Record[F], error) {
	return r.write(ctx, MethodPatch, fields, "updating")
}

// Replace replaces every stored field; fields not given are cleared.
func (r *Record[F]) Replace(ctx context.Context, fields F) (*Record[F], error) {
	return r.write(ctx, MethodPut, fields, "replacing")
}

// Destroy deletes the record.
func (r *Record[F]) Destroy(ctx context.Context) (*DeletedRecord, error) {
	deleted, err := runValidated(ctx, r.RunAction, MethodDelete, ActionOptions{},
		NewDeletedRecordValidation(r.ID))
	if err != nil {
		return nil, fmt.Errorf("deleting record %s: %w", r.ID, err)
	}

	return &deleted, nil
}

func (r *Record[F]) write(ctx context.Context, method Method, fields F, verb string) (*Record[F], error) {
	data, err := runValidated(ctx, r.RunAction, method, ActionOptions{
		Payload: &Payload{Body: map[string]any{"fields": fields}},
	}, NewRecordDataValidation[F](r.source, ""))
	if err != nil {
		return nil, fmt.Errorf("%s record %s: %w", verb, r.ID, err)
	}

	return newRecord(r.source, data), nil
}
