package tables

import (
	"context"
	"fmt"
	"iter"

	"github.com/fivetwenty-io/tablestore/pkg/formula"
)

// CellFormat controls how cell values are rendered by the store.
type CellFormat string

// Cell formats.
const (
	CellFormatJSON   CellFormat = "json"
	CellFormatString CellFormat = "string"
)

// SortDirection orders a sorted query.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortParam sorts a query by a single field.
type SortParam struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// SelectParams are the list query parameters. Zero values are omitted from
// the request. Everything except the filter is passed to the store as is.
type SelectParams struct {
	Fields          []string
	FilterByFormula formula.Formula
	MaxRecords      int
	PageSize        int
	Sort            *SortParam
	View            string
	CellFormat      CellFormat
	TimeZone        string
	UserLocale      string
}

// SelectQuery is a lazy list query over a table. Every iteration starts a
// fresh paging run from the first page, so one query value can be iterated
// any number of times, including concurrently.
type SelectQuery[F any] struct {
	source  DataSource[F]
	params  SelectParams
	compile func(formula.Formula) string
}

// NewSelectQuery creates a query over source. params is copied.
func NewSelectQuery[F any](source DataSource[F], params *SelectParams) *SelectQuery[F] {
	query := &SelectQuery[F]{
		source:  source,
		compile: formula.Compile,
	}

	if params != nil {
		query.params = *params
		query.params.Fields = append([]string(nil), params.Fields...)
	}

	return query
}

// WithCompiler returns a copy of the query compiling filters with compile.
func (q *SelectQuery[F]) WithCompiler(compile func(formula.Formula) string) *SelectQuery[F] {
	clone := *q
	clone.compile = compile

	return &clone
}

// Params returns a copy of the query parameters.
func (q *SelectQuery[F]) Params() SelectParams {
	params := q.params
	params.Fields = append([]string(nil), q.params.Fields...)

	return params
}

// payload builds the request for one page. The filter is compiled per call.
func (q *SelectQuery[F]) payload(offset string) *Payload {
	query := map[string]any{}

	if len(q.params.Fields) > 0 {
		query["fields"] = q.params.Fields
	}

	if q.params.FilterByFormula != nil {
		query["filterByFormula"] = q.compile(q.params.FilterByFormula)
	}

	if q.params.MaxRecords > 0 {
		query["maxRecords"] = q.params.MaxRecords
	}

	if q.params.PageSize > 0 {
		query["pageSize"] = q.params.PageSize
	}

	if q.params.Sort != nil {
		query["sort"] = map[string]any{
			"field":     q.params.Sort.Field,
			"direction": q.params.Sort.Direction,
		}
	}

	if q.params.View != "" {
		query["view"] = q.params.View
	}

	if q.params.CellFormat != "" {
		query["cellFormat"] = string(q.params.CellFormat)
	}

	if q.params.TimeZone != "" {
		query["timeZone"] = q.params.TimeZone
	}

	if q.params.UserLocale != "" {
		query["userLocale"] = q.params.UserLocale
	}

	if offset != "" {
		query["offset"] = offset
	}

	return &Payload{Query: query}
}

// fetchPage runs one list request and returns its records and continuation token.
func (q *SelectQuery[F]) fetchPage(ctx context.Context, offset string) ([]*Record[F], string, error) {
	page, err := runValidated(ctx, q.source.RunTableAction, MethodGet, ActionOptions{
		Payload: q.payload(offset),
	}, NewPageValidation[F](q.source))
	if err != nil {
		return nil, "", fmt.Errorf("fetching page: %w", err)
	}

	return newRecords(q.source, page.Records), page.Offset, nil
}

// pager is the paging state of one iteration.
type pager[F any] struct {
	query  *SelectQuery[F]
	offset string
	done   bool
	seen   map[string]struct{}
}

func (q *SelectQuery[F]) newPager() *pager[F] {
	return &pager[F]{query: q, seen: map[string]struct{}{}}
}

// next fetches the next page. It returns ok=false once the store has
// reported the last page.
func (p *pager[F]) next(ctx context.Context) ([]*Record[F], bool, error) {
	if p.done {
		return nil, false, nil
	}

	records, offset, err := p.query.fetchPage(ctx, p.offset)
	if err != nil {
		p.done = true

		return nil, false, err
	}

	if offset == "" {
		p.done = true
	} else {
		if _, repeated := p.seen[offset]; repeated {
			p.done = true

			return records, true, fmt.Errorf("%w: %q", ErrRepeatedOffset, offset)
		}

		p.seen[offset] = struct{}{}
	}

	p.offset = offset

	return records, true, nil
}

// Pages yields one slice of records per page. Iteration stops after the first
// page without a continuation token, or at the first error, which is yielded
// with a nil page.
func (q *SelectQuery[F]) Pages(ctx context.Context) iter.Seq2[[]*Record[F], error] {
	return func(yield func([]*Record[F], error) bool) {
		pages := q.newPager()

		for {
			records, ok, err := pages.next(ctx)
			if err != nil {
				if records != nil && !yield(records, nil) {
					return
				}

				yield(nil, err)

				return
			}

			if !ok || !yield(records, nil) {
				return
			}
		}
	}
}

// Records yields every record of every page in order.
func (q *SelectQuery[F]) Records(ctx context.Context) iter.Seq2[*Record[F], error] {
	return func(yield func(*Record[F], error) bool) {
		for records, err := range q.Pages(ctx) {
			if err != nil {
				yield(nil, err)

				return
			}

			for _, record := range records {
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

// All fetches every page and returns the records in order.
func (q *SelectQuery[F]) All(ctx context.Context) ([]*Record[F], error) {
	var all []*Record[F]

	for records, err := range q.Pages(ctx) {
		if err != nil {
			return nil, err
		}

		all = append(all, records...)
	}

	return all, nil
}

// FirstPage fetches only the first page.
func (q *SelectQuery[F]) FirstPage(ctx context.Context) ([]*Record[F], error) {
	records, _, err := q.GetPage(ctx, "")

	return records, err
}

// GetPage fetches the page at offset ("" for the first page) and returns the
// continuation token for the next one, "" when it was the last page.
func (q *SelectQuery[F]) GetPage(ctx context.Context, offset string) ([]*Record[F], string, error) {
	return q.fetchPage(ctx, offset)
}

// EachPage calls handler for every page until handler returns an error.
func (q *SelectQuery[F]) EachPage(ctx context.Context, handler func(records []*Record[F]) error) error {
	for records, err := range q.Pages(ctx) {
		if err != nil {
			return err
		}

		if err := handler(records); err != nil {
			return err
		}
	}

	return nil
}
