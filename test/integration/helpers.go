//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	EndpointURL string
	APIKey      string
	BaseID      string
	Table       string
	BinaryPath  string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	table := os.Getenv("TABLESTORE_INTEGRATION_TABLE")
	if table == "" {
		table = "Integration"
	}

	return &TestConfig{
		EndpointURL: os.Getenv("TABLESTORE_ENDPOINT_URL"),
		APIKey:      os.Getenv("TABLESTORE_API_KEY"),
		BaseID:      os.Getenv("TABLESTORE_BASE_ID"),
		Table:       table,
		BinaryPath:  getBinaryPath(),
		Verbose:     os.Getenv("TABLESTORE_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the tablestore binary
func getBinaryPath() string {
	if path := os.Getenv("TABLESTORE_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../tablestore",
		"./tablestore",
		"../tablestore",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "tablestore" // Fallback to PATH
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.APIKey == "" || config.BaseID == "" {
		t.Skip("TABLESTORE_API_KEY or TABLESTORE_BASE_ID not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("tablestore binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner provides utilities for running tablestore commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes a tablestore command and returns output. Connection settings
// reach the binary through its TABLESTORE_* environment.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.BinaryPath, args...)
	cmd.Env = append(os.Environ(),
		"TABLESTORE_ENDPOINT_URL="+runner.config.EndpointURL,
		"TABLESTORE_API_KEY="+runner.config.APIKey,
		"TABLESTORE_BASE_ID="+runner.config.BaseID,
	)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// Records runs a records subcommand against the configured table with JSON
// output and decodes the result.
func (runner *CommandRunner) Records(args ...string) []tables.RecordData[tables.Fields] {
	runner.t.Helper()

	args = append([]string{"records"}, args...)
	args = append(args, "--table", runner.config.Table, "--output", "json")

	stdout, stderr, err := runner.Run(args...)
	require.NoError(runner.t, err, "command failed: %s", stderr)

	var records []tables.RecordData[tables.Fields]
	require.NoError(runner.t, json.Unmarshal([]byte(stdout), &records), "output: %s", stdout)

	return records
}

// GenerateTestName creates a unique test record name
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CleanupRecords attempts to delete test records
func (runner *CommandRunner) CleanupRecords(ids ...string) {
	if len(ids) == 0 {
		return
	}

	args := append([]string{"records", "delete"}, ids...)
	args = append(args, "--table", runner.config.Table)

	stdout, stderr, err := runner.Run(args...)
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for %v: %s\nStderr: %s", ids, stdout, stderr)
	}
}
