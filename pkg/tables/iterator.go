package tables

import "context"

// RecordIterator pulls records from a query one at a time, fetching pages on demand.
type RecordIterator[F any] struct {
	ctx     context.Context //nolint:containedctx // the iterator is bound to one paging run
	pages   *pager[F]
	current []*Record[F]
	index   int
	err     error
}

// Iterator starts a new paging run for pull-style iteration.
func (q *SelectQuery[F]) Iterator(ctx context.Context) *RecordIterator[F] {
	return &RecordIterator[F]{
		ctx:   ctx,
		pages: q.newPager(),
	}
}

// HasNext reports whether Next will return a record or an error. It fetches
// the next page when the current one is exhausted.
func (it *RecordIterator[F]) HasNext() bool {
	for it.index >= len(it.current) {
		if it.err != nil {
			return true
		}

		records, ok, err := it.pages.next(it.ctx)
		if err != nil {
			it.err = err
			it.current = records
			it.index = 0

			return true
		}

		if !ok {
			return false
		}

		it.current = records
		it.index = 0
	}

	return true
}

// Next returns the next record. After the last record it returns ErrNoMoreItems.
func (it *RecordIterator[F]) Next() (*Record[F], error) {
	if !it.HasNext() {
		return nil, ErrNoMoreItems
	}

	if it.index < len(it.current) {
		record := it.current[it.index]
		it.index++

		return record, nil
	}

	err := it.err
	it.err = nil
	it.current = nil

	return nil, err
}

// All collects the remaining records.
func (it *RecordIterator[F]) All() ([]*Record[F], error) {
	var all []*Record[F]

	for it.HasNext() {
		record, err := it.Next()
		if err != nil {
			return nil, err
		}

		all = append(all, record)
	}

	return all, nil
}

// ForEach calls fn for each remaining record until fn returns an error.
func (it *RecordIterator[F]) ForEach(fn func(*Record[F]) error) error {
	for it.HasNext() {
		record, err := it.Next()
		if err != nil {
			return err
		}

		if err := fn(record); err != nil {
			return err
		}
	}

	return nil
}
