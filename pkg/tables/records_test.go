package tables_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

var peopleShape = tables.FieldShape{
	"Name": tables.Required(tables.KindString),
	"Age":  tables.Optional(tables.KindNumber),
}

func TestRecordDataValidation(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewRecordDataValidation[tables.Fields](peopleShape, "")
		data, ok := validation.IsValid(map[string]any{
			"id":     "rec1",
			"fields": map[string]any{"Name": "Ada", "Age": float64(36)},
		})
		require.True(t, ok)
		assert.Equal(t, "rec1", data.ID)
		assert.Equal(t, "Ada", data.Fields["Name"])
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewRecordDataValidation[tables.Fields](peopleShape, "")
		_, ok := validation.IsValid(map[string]any{"fields": map[string]any{"Name": "Ada"}})
		require.False(t, ok)
		assert.Contains(t, validation.ValidationError().Error(),
			`expected record data to have a string property "id", found nothing`)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewRecordDataValidation[tables.Fields](peopleShape, "")
		_, ok := validation.IsValid(map[string]any{"id": "rec1"})
		require.False(t, ok)
		assert.Contains(t, validation.ValidationError().Error(), `expected record "rec1" to have a "fields" property`)
	})

	t.Run("invalid fields name the record", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewRecordDataValidation[tables.Fields](peopleShape, "")
		_, ok := validation.IsValid(map[string]any{
			"id":     "rec1",
			"fields": map[string]any{"Age": "old"},
		})
		require.False(t, ok)

		message := validation.ValidationError().Error()
		assert.Contains(t, message, `validating "fields of record \"rec1\""`)
		assert.Contains(t, message, `field "Age" expected number, found string`)
		assert.Contains(t, message, `missing required field "Name"`)
	})

	t.Run("not an object", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewRecordDataValidation[tables.Fields](peopleShape, "")
		_, ok := validation.IsValid([]any{})
		require.False(t, ok)
		assert.Equal(t, `Encountered an error while validating "record data": expected an object, found array`,
			validation.ValidationError().Error())
	})
}

func TestMultiRecordValidation_ReportsEveryEntry(t *testing.T) {
	t.Parallel()

	validation := tables.NewMultiRecordValidation(tables.RecordDataValidator[tables.Fields](peopleShape))
	_, ok := validation.IsValid(map[string]any{
		"records": []any{
			map[string]any{"id": "rec1", "fields": map[string]any{}},
			map[string]any{"id": "rec2", "fields": map[string]any{"Name": "Ada"}},
			map[string]any{"id": "rec3", "fields": map[string]any{"Name": 7}},
		},
	})
	require.False(t, ok)

	message := validation.ValidationError().Error()
	assert.Contains(t, message, `Encountered 2 errors while validating "multi-record response"`)
	assert.Contains(t, message, "records[0]")
	assert.Contains(t, message, "records[2]")
	assert.NotContains(t, message, "records[1]")
}

func TestMultiRecordValidation_Shape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "missing records", input: map[string]any{}, expected: `expected object to have property "records"`},
		{name: "records not an array", input: map[string]any{"records": "x"}, expected: `expected property "records" to be an array, found string`},
		{name: "not an object", input: "x", expected: "expected an object, found string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			validation := tables.NewMultiRecordValidation(tables.DeletedRecordValidator)
			_, ok := validation.IsValid(tt.input)
			require.False(t, ok)
			assert.Contains(t, validation.ValidationError().Error(), tt.expected)
		})
	}
}

func TestMultiRecordValidation_KeepsOrder(t *testing.T) {
	t.Parallel()

	validation := tables.NewMultiRecordValidation(tables.DeletedRecordValidator)
	deleted, ok := validation.IsValid(map[string]any{
		"records": []any{
			map[string]any{"id": "rec2", "deleted": true},
			map[string]any{"id": "rec1", "deleted": true},
		},
	})
	require.True(t, ok)
	assert.Equal(t, []tables.DeletedRecord{{ID: "rec2", Deleted: true}, {ID: "rec1", Deleted: true}}, deleted)
}

// untouchable returns a validator that fails t when any entry is checked.
func untouchable[T any](t *testing.T) tables.Validator[T] {
	t.Helper()

	return tables.ValidatorFunc[T](func(reference string) tables.ValidationContext[T] {
		t.Errorf("entry validator called for %s", reference)

		return tables.NewTrustingValidation[T]()
	})
}

func TestMultiRecordValidation_EmptyBatch(t *testing.T) {
	t.Parallel()

	validation := tables.NewMultiRecordValidation(untouchable[tables.DeletedRecord](t))
	deleted, ok := validation.IsValid(map[string]any{"records": []any{}})
	require.True(t, ok)
	assert.Empty(t, deleted)
	assert.NoError(t, validation.ValidationError())
}

func TestPageValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty records array", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewPageValidation(untouchable[tables.Fields](t))
		page, ok := validation.IsValid(map[string]any{"records": []any{}})
		require.True(t, ok)
		assert.Empty(t, page.Records)
		assert.Empty(t, page.Offset)
		assert.NoError(t, validation.ValidationError())
	})

	t.Run("empty object is an empty last page", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewPageValidation[tables.Fields](peopleShape)
		page, ok := validation.IsValid(map[string]any{})
		require.True(t, ok)
		assert.Empty(t, page.Records)
		assert.Empty(t, page.Offset)
	})

	t.Run("records and offset", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewPageValidation[tables.Fields](peopleShape)
		page, ok := validation.IsValid(map[string]any{
			"records": []any{map[string]any{"id": "rec1", "fields": map[string]any{"Name": "Ada"}}},
			"offset":  "itr1",
		})
		require.True(t, ok)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "rec1", page.Records[0].ID)
		assert.Equal(t, "itr1", page.Offset)
	})

	t.Run("offset must be a string", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewPageValidation[tables.Fields](peopleShape)
		_, ok := validation.IsValid(map[string]any{"records": []any{}, "offset": float64(3)})
		require.False(t, ok)
		assert.Contains(t, validation.ValidationError().Error(), "expected offset to be a string, found number")
	})

	t.Run("invalid record", func(t *testing.T) {
		t.Parallel()

		validation := tables.NewPageValidation[tables.Fields](peopleShape)
		_, ok := validation.IsValid(map[string]any{
			"records": []any{map[string]any{"id": "rec1", "fields": map[string]any{}}},
		})
		require.False(t, ok)
		assert.Contains(t, validation.ValidationError().Error(), `validating "page results"`)
	})
}

func TestDeletedRecordValidation(t *testing.T) {
	t.Parallel()

	validation := tables.NewDeletedRecordValidation("rec1")
	deleted, ok := validation.IsValid(map[string]any{"id": "rec1", "deleted": true})
	require.True(t, ok)
	assert.Equal(t, tables.DeletedRecord{ID: "rec1", Deleted: true}, deleted)

	validation = tables.NewDeletedRecordValidation("rec1")
	_, ok = validation.IsValid(map[string]any{"id": "rec1", "deleted": false})
	require.False(t, ok)
	assert.Equal(t,
		`Encountered an error while validating "deleted record rec1": expected object to have property "deleted" set to true, found false`,
		validation.ValidationError().Error())

	validation = tables.NewDeletedRecordValidation("")
	_, ok = validation.IsValid(map[string]any{})
	require.False(t, ok)
	assert.Contains(t, validation.ValidationError().Error(), `Encountered 2 errors while validating "deleted record"`)
}

func TestTrustingValidation(t *testing.T) {
	t.Parallel()

	validation := tables.NewTrustingValidation[tables.Fields]()
	fields, ok := validation.IsValid(map[string]any{"anything": []any{1}})
	require.True(t, ok)
	assert.Equal(t, tables.Fields{"anything": []any{1}}, fields)
	assert.ErrorIs(t, validation.ValidationError(), tables.ErrNoValidationPerformed)

	type typed struct {
		Name string `json:"Name"`
	}

	typedValidation := tables.NewTrustingValidation[typed]()
	value, ok := typedValidation.IsValid(map[string]any{"Name": "Ada"})
	require.True(t, ok)
	assert.Equal(t, typed{Name: "Ada"}, value)

	typedValidation = tables.NewTrustingValidation[typed]()
	_, ok = typedValidation.IsValid("not an object")
	require.False(t, ok)
	assert.True(t, tables.IsValidationError(typedValidation.ValidationError()))
}
