package commands_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/cmd/tablestore/commands"
	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/internal/emulator"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

func TestNewRecordsCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewRecordsCommand()
	assert.Equal(t, "records", cmd.Use)
	assert.Equal(t, []string{"record", "rec"}, cmd.Aliases)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("table"))

	for _, name := range []string{"get", "list", "create", "update", "replace", "delete"} {
		assert.NotNil(t, findSubcommand(cmd, name), name)
	}

	list := findSubcommand(cmd, "list")
	for _, flag := range []string{"fields", "filter", "view", "sort", "page-size", "max-records", "first-page"} {
		assert.NotNil(t, list.Flags().Lookup(flag), flag)
	}
}

func TestNewEmulatorCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewEmulatorCommand()
	assert.Equal(t, "emulator", cmd.Name())

	for _, flag := range []string{"addr", "db", "api-key", "base", "page-size"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

// useEmulator points the CLI configuration at a fresh emulator.
func useEmulator(t *testing.T) {
	t.Helper()

	store, err := emulator.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := httptest.NewServer(emulator.NewServer(store,
		emulator.WithAPIKey("key"),
		emulator.WithBaseID("app1"),
		emulator.WithPageSize(2),
	).Handler())
	t.Cleanup(server.Close)

	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(commands.KeyEndpointURL, server.URL)
	viper.Set(commands.KeyAPIKey, "key")
	viper.Set(commands.KeyBaseID, "app1")
	viper.Set(commands.KeyOutput, constants.FormatJSON)
}

func runRecords(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := commands.NewRecordsCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func decodeRecords(t *testing.T, output string) []tables.RecordData[tables.Fields] {
	t.Helper()

	var records []tables.RecordData[tables.Fields]
	require.NoError(t, json.Unmarshal([]byte(output), &records))

	return records
}

//nolint:paralleltest // mutates the global viper configuration
func TestRecordsCommands_AgainstEmulator(t *testing.T) {
	useEmulator(t)

	output, err := runRecords(t, "create", "-t", "People", "-f", "Name=Ada", "-f", "Age=36")
	require.NoError(t, err)

	created := decodeRecords(t, output)
	require.Len(t, created, 1)
	assert.Equal(t, tables.Fields{"Name": "Ada", "Age": float64(36)}, created[0].Fields)

	id := created[0].ID

	for _, name := range []string{"Grace", "Linus"} {
		_, err = runRecords(t, "create", "--table", "People", "--field", "Name="+name)
		require.NoError(t, err)
	}

	output, err = runRecords(t, "list", "-t", "People", "--sort", "Name:desc")
	require.NoError(t, err)

	listed := decodeRecords(t, output)
	require.Len(t, listed, 3)
	assert.Equal(t, "Linus", listed[0].Fields["Name"])

	output, err = runRecords(t, "list", "-t", "People", "--first-page")
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, output), 2)

	output, err = runRecords(t, "update", id, "-t", "People", "-f", "Age=37")
	require.NoError(t, err)
	assert.Equal(t, tables.Fields{"Name": "Ada", "Age": float64(37)}, decodeRecords(t, output)[0].Fields)

	output, err = runRecords(t, "replace", id, "-t", "People", "-f", "Name=Ada L.")
	require.NoError(t, err)
	assert.Equal(t, tables.Fields{"Name": "Ada L."}, decodeRecords(t, output)[0].Fields)

	output, err = runRecords(t, "get", id, "-t", "People")
	require.NoError(t, err)
	assert.Equal(t, id, decodeRecords(t, output)[0].ID)

	output, err = runRecords(t, "delete", id, "-t", "People")
	require.NoError(t, err)

	var deleted []tables.DeletedRecord
	require.NoError(t, json.Unmarshal([]byte(output), &deleted))
	assert.Equal(t, []tables.DeletedRecord{{ID: id, Deleted: true}}, deleted)

	_, err = runRecords(t, "get", id, "-t", "People")
	require.Error(t, err)
	assert.True(t, tables.IsNotFound(err))
}

//nolint:paralleltest // mutates the global viper configuration
func TestRecordsCommands_Errors(t *testing.T) {
	useEmulator(t)

	_, err := runRecords(t, "get", "rec1")
	require.ErrorIs(t, err, constants.ErrTableRequired)

	_, err = runRecords(t, "create", "-t", "People")
	require.ErrorIs(t, err, constants.ErrNoFieldsProvided)

	_, err = runRecords(t, "list", "-t", "People", "--sort", "Name:up")
	require.ErrorIs(t, err, constants.ErrInvalidSortFlag)

	viper.Set(commands.KeyAPIKey, "wrong")

	_, err = runRecords(t, "list", "-t", "People")
	require.Error(t, err)
	assert.True(t, tables.IsUnauthorized(err))

	viper.Set(commands.KeyAPIKey, "")

	_, err = runRecords(t, "list", "-t", "People")
	require.ErrorIs(t, err, tables.ErrAPIKeyRequired)
}

//nolint:paralleltest // mutates the global viper configuration
func TestRecordsCommands_EmptyTable(t *testing.T) {
	useEmulator(t)
	viper.Set(commands.KeyOutput, constants.FormatTable)

	output, err := runRecords(t, "list", "-t", "People")
	require.NoError(t, err)
	assert.Equal(t, "No records found\n", output)
}
