package tables_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

func TestRecordIterator(t *testing.T) {
	t.Parallel()

	endpoint := pagedEndpoint(twoPages(), nil)
	iterator := newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	assert.Empty(t, endpoint.Calls())

	require.True(t, iterator.HasNext())
	assert.Len(t, endpoint.Calls(), 1)

	first, err := iterator.Next()
	require.NoError(t, err)
	assert.Equal(t, "rec1", first.ID)

	require.True(t, iterator.HasNext())

	second, err := iterator.Next()
	require.NoError(t, err)
	assert.Equal(t, "rec2", second.ID)

	assert.False(t, iterator.HasNext())

	_, err = iterator.Next()
	require.ErrorIs(t, err, tables.ErrNoMoreItems)
	assert.Len(t, endpoint.Calls(), 2)
}

func TestRecordIterator_Error(t *testing.T) {
	t.Parallel()

	endpoint := pagedEndpoint(map[string]any{"": page("x", "rec1")}, map[string]error{"x": errPageFailed})
	iterator := newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	record, err := iterator.Next()
	require.NoError(t, err)
	assert.Equal(t, "rec1", record.ID)

	require.True(t, iterator.HasNext())

	_, err = iterator.Next()
	require.ErrorIs(t, err, errPageFailed)

	assert.False(t, iterator.HasNext())
}

func TestRecordIterator_All(t *testing.T) {
	t.Parallel()

	endpoint := pagedEndpoint(twoPages(), nil)
	iterator := newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	records, err := iterator.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, recordIDs(records))

	endpoint = pagedEndpoint(map[string]any{"": page("x", "rec1")}, map[string]error{"x": errPageFailed})
	iterator = newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	_, err = iterator.All()
	require.ErrorIs(t, err, errPageFailed)
}

func TestRecordIterator_ForEach(t *testing.T) {
	t.Parallel()

	endpoint := pagedEndpoint(twoPages(), nil)
	iterator := newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	var ids []string

	err := iterator.ForEach(func(record *tables.Record[tables.Fields]) error {
		ids = append(ids, record.ID)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, ids)

	iterator = newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())
	err = iterator.ForEach(func(record *tables.Record[tables.Fields]) error {
		return errPageFailed
	})
	require.ErrorIs(t, err, errPageFailed)
}

func TestRecordIterator_RepeatedOffset(t *testing.T) {
	t.Parallel()

	endpoint := pagedEndpoint(map[string]any{
		"":  page("a", "rec1"),
		"a": page("a", "rec2"),
	}, nil)
	iterator := newBase(endpoint).Table("People", nil).Select(nil).Iterator(context.Background())

	var ids []string

	for iterator.HasNext() {
		record, err := iterator.Next()
		if err != nil {
			require.ErrorIs(t, err, tables.ErrRepeatedOffset)

			break
		}

		ids = append(ids, record.ID)
	}

	assert.Equal(t, []string{"rec1", "rec2"}, ids)
}
