package commands

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

const defaultIndent = 2

// render writes data as json or yaml, or header and rows as a table.
func render(out io.Writer, format string, data any, header []string, rows [][]string) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("encoding data to JSON: %w", err)
		}

		return nil
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(defaultIndent)

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("encoding data to YAML: %w", err)
		}

		return nil
	case constants.FormatTable, "":
		table := tablewriter.NewWriter(out)

		headerCells := make([]any, len(header))
		for index, cell := range header {
			headerCells[index] = cell
		}

		table.Header(headerCells...)

		for _, row := range rows {
			_ = table.Append(row)
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

// recordRows lays records out with one column per field name.
func recordRows(records []*tables.Record[tables.Fields]) ([]string, [][]string) {
	names := map[string]struct{}{}

	for _, record := range records {
		for name := range record.Fields {
			names[name] = struct{}{}
		}
	}

	columns := make([]string, 0, len(names))
	for name := range names {
		columns = append(columns, name)
	}

	sort.Strings(columns)

	header := append([]string{"ID"}, columns...)
	rows := make([][]string, 0, len(records))

	for _, record := range records {
		row := []string{record.ID}

		for _, name := range columns {
			row = append(row, formatCell(record.Fields[name]))
		}

		rows = append(rows, row)
	}

	return header, rows
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}

func recordData(records []*tables.Record[tables.Fields]) []tables.RecordData[tables.Fields] {
	data := make([]tables.RecordData[tables.Fields], len(records))
	for index, record := range records {
		data[index] = record.Data()
	}

	return data
}
