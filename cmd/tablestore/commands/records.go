package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/pkg/formula"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage records",
		Long:    "Fetch, list, create, update, replace and delete records of a table",
	}

	cmd.PersistentFlags().StringP("table", "t", "", "table name")

	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsCreateCommand())
	cmd.AddCommand(newRecordsWriteCommand("update", "Update fields of a record", false))
	cmd.AddCommand(newRecordsWriteCommand("replace", "Replace all fields of a record", true))
	cmd.AddCommand(newRecordsDeleteCommand())

	return cmd
}

// withTable opens the configured base and the table named by --table.
func withTable(cmd *cobra.Command, run func(ctx context.Context, table *tables.Table[tables.Fields]) error) error {
	name, _ := cmd.Flags().GetString("table")
	if name == "" {
		return constants.ErrTableRequired
	}

	base, cleanup, err := createBase()
	if err != nil {
		return err
	}

	defer cleanup()

	return run(cmd.Context(), base.Table(name, nil))
}

func renderRecords(cmd *cobra.Command, records []*tables.Record[tables.Fields]) error {
	format := viper.GetString(KeyOutput)
	if (format == constants.FormatTable || format == "") && len(records) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No records found")

		return nil
	}

	header, rows := recordRows(records)

	return render(cmd.OutOrStdout(), format, recordData(records), header, rows)
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(cmd, func(ctx context.Context, table *tables.Table[tables.Fields]) error {
				record, err := table.Find(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get record: %w", err)
				}

				return renderRecords(cmd, []*tables.Record[tables.Fields]{record})
			})
		},
	}
}

func newRecordsListCommand() *cobra.Command {
	var (
		fields     []string
		filter     string
		view       string
		sortFlag   string
		pageSize   int
		maxRecords int
		firstPage  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long:  "List records of a table, fetching every page unless --first-page is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			sortParam, err := parseSortFlag(sortFlag)
			if err != nil {
				return err
			}

			params := &tables.SelectParams{
				Fields:     fields,
				View:       view,
				Sort:       sortParam,
				PageSize:   pageSize,
				MaxRecords: maxRecords,
			}

			if filter != "" {
				params.FilterByFormula = formula.Raw(filter)
			}

			return withTable(cmd, func(ctx context.Context, table *tables.Table[tables.Fields]) error {
				query := table.Select(params)

				var records []*tables.Record[tables.Fields]
				if firstPage {
					records, err = query.FirstPage(ctx)
				} else {
					records, err = query.All(ctx)
				}

				if err != nil {
					return fmt.Errorf("failed to list records: %w", err)
				}

				return renderRecords(cmd, records)
			})
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "only return these fields")
	cmd.Flags().StringVar(&filter, "filter", "", "filter formula")
	cmd.Flags().StringVar(&view, "view", "", "view name")
	cmd.Flags().StringVar(&sortFlag, "sort", "", "sort by field, optionally field:asc or field:desc")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page")
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "maximum number of records")
	cmd.Flags().BoolVar(&firstPage, "first-page", false, "only fetch the first page")

	return cmd
}

func newRecordsCreateCommand() *cobra.Command {
	var (
		fieldFlags []string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create records",
		Long:  "Create one record from --field flags, or one or more records from a YAML/JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := collectFields(fieldFlags, file)
			if err != nil {
				return err
			}

			return withTable(cmd, func(ctx context.Context, table *tables.Table[tables.Fields]) error {
				var records []*tables.Record[tables.Fields]

				if len(items) == 1 {
					record, err := table.Create(ctx, items[0])
					if err != nil {
						return fmt.Errorf("failed to create record: %w", err)
					}

					records = append(records, record)
				} else {
					records, err = table.CreateMany(ctx, items)
					if err != nil {
						return fmt.Errorf("failed to create records: %w", err)
					}
				}

				return renderRecords(cmd, records)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "field as name=value (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON file with a field map or a list of field maps")

	return cmd
}

func newRecordsWriteCommand(use, short string, replace bool) *cobra.Command {
	var (
		fieldFlags []string
		file       string
	)

	cmd := &cobra.Command{
		Use:   use + " RECORD_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := collectFields(fieldFlags, file)
			if err != nil {
				return err
			}

			return withTable(cmd, func(ctx context.Context, table *tables.Table[tables.Fields]) error {
				var record *tables.Record[tables.Fields]

				if replace {
					record, err = table.Replace(ctx, args[0], items[0])
				} else {
					record, err = table.Update(ctx, args[0], items[0])
				}

				if err != nil {
					return fmt.Errorf("failed to %s record: %w", use, err)
				}

				return renderRecords(cmd, []*tables.Record[tables.Fields]{record})
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "field as name=value (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON file with a field map")

	return cmd
}

func newRecordsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RECORD_ID...",
		Short: "Delete records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(cmd, func(ctx context.Context, table *tables.Table[tables.Fields]) error {
				var deleted []tables.DeletedRecord

				if len(args) == 1 {
					marker, err := table.Destroy(ctx, args[0])
					if err != nil {
						return fmt.Errorf("failed to delete record: %w", err)
					}

					deleted = append(deleted, *marker)
				} else {
					markers, err := table.DestroyMany(ctx, args)
					if err != nil {
						return fmt.Errorf("failed to delete records: %w", err)
					}

					deleted = markers
				}

				rows := make([][]string, len(deleted))
				for index, marker := range deleted {
					rows[index] = []string{marker.ID, fmt.Sprint(marker.Deleted)}
				}

				return render(cmd.OutOrStdout(), viper.GetString(KeyOutput), deleted,
					[]string{"ID", "Deleted"}, rows)
			})
		},
	}
}

// collectFields builds field sets from --field flags or a file. A file may
// hold one field map or a list of them.
func collectFields(fieldFlags []string, file string) ([]tables.Fields, error) {
	if file != "" {
		return readFieldsFile(file)
	}

	if len(fieldFlags) == 0 {
		return nil, constants.ErrNoFieldsProvided
	}

	fields, err := parseFieldFlags(fieldFlags)
	if err != nil {
		return nil, err
	}

	return []tables.Fields{fields}, nil
}

// parseFieldFlags parses name=value pairs. Values are read as YAML scalars or
// collections, so 42 is a number, true a boolean and [a, b] a list.
func parseFieldFlags(flags []string) (tables.Fields, error) {
	fields := tables.Fields{}

	for _, flag := range flags {
		name, raw, ok := strings.Cut(flag, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidFieldFlag, flag)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}

		fields[strings.TrimSpace(name)] = value
	}

	return fields, nil
}

func readFieldsFile(path string) ([]tables.Fields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var list []tables.Fields
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	var single tables.Fields
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(single) == 0 {
		return nil, constants.ErrNoFieldsProvided
	}

	return []tables.Fields{single}, nil
}

func parseSortFlag(flag string) (*tables.SortParam, error) {
	if flag == "" {
		return nil, nil
	}

	field, direction, hasDirection := strings.Cut(flag, ":")
	if field == "" {
		return nil, constants.ErrInvalidSortFlag
	}

	param := &tables.SortParam{Field: field, Direction: tables.SortAsc}

	if hasDirection {
		switch tables.SortDirection(strings.ToLower(direction)) {
		case tables.SortAsc:
		case tables.SortDesc:
			param.Direction = tables.SortDesc
		default:
			return nil, constants.ErrInvalidSortFlag
		}
	}

	return param, nil
}
