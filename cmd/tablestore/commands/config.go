package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/tablestore/internal/constants"
)

// Config represents the CLI configuration.
type Config struct {
	EndpointURL string `json:"endpoint_url,omitempty" yaml:"endpoint_url,omitempty"`
	APIKey      string `json:"api_key,omitempty"      yaml:"api_key,omitempty"`
	APIVersion  string `json:"api_version,omitempty"  yaml:"api_version,omitempty"`
	BaseID      string `json:"base_id,omitempty"      yaml:"base_id,omitempty"`
	Output      string `json:"output,omitempty"       yaml:"output,omitempty"`
	NATSURL     string `json:"nats_url,omitempty"     yaml:"nats_url,omitempty"`
	NATSSubject string `json:"nats_subject,omitempty" yaml:"nats_subject,omitempty"`
}

// configKeys are the keys "config set" accepts.
var configKeys = []string{
	KeyEndpointURL, KeyAPIKey, KeyAPIVersion, KeyBaseID, KeyOutput, KeyNATSURL, KeyNATSSubject,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage tablestore CLI configuration stored in $HOME/.tablestore/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigLoginCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func loadConfig() *Config {
	return &Config{
		EndpointURL: viper.GetString(KeyEndpointURL),
		APIKey:      viper.GetString(KeyAPIKey),
		APIVersion:  viper.GetString(KeyAPIVersion),
		BaseID:      viper.GetString(KeyBaseID),
		Output:      viper.GetString(KeyOutput),
		NATSURL:     viper.GetString(KeyNATSURL),
		NATSSubject: viper.GetString(KeyNATSSubject),
	}
}

// masked returns a copy safe to print.
func (c *Config) masked() *Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = constants.MaskedSecret
	}

	return &out
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig().masked()

			return render(cmd.OutOrStdout(), viper.GetString(KeyOutput), config,
				[]string{"Property", "Value"},
				[][]string{
					{"Endpoint URL", formatConfigValue(config.EndpointURL)},
					{"API Key", formatConfigValue(config.APIKey)},
					{"API Version", formatConfigValue(config.APIVersion)},
					{"Base ID", formatConfigValue(config.BaseID)},
					{"Output", formatConfigValue(config.Output)},
					{"NATS URL", formatConfigValue(config.NATSURL)},
					{"NATS Subject", formatConfigValue(config.NATSSubject)},
				})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := normalizeKey(args[0]), args[1]
			if !isConfigKey(key) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, args[0])
			}

			viper.Set(key, value)

			if err := saveConfig(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := normalizeKey(args[0])
			if !isConfigKey(key) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, args[0])
			}

			viper.Set(key, "")

			if err := saveConfig(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)

			return nil
		},
	}
}

func newConfigLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Long:  "Prompt for an API key without echoing it and store it in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), "API key: ")

			apiKey, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read API key: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout())

			if apiKey == "" {
				return constants.ErrEmptyAPIKeyEntered
			}

			viper.Set(KeyAPIKey, apiKey)

			if err := saveConfig(); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API key saved")

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all configuration")

			return nil
		},
	}
}

// readSecret reads without echo from a terminal, or a line from any other reader.
func readSecret(in io.Reader) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		secret, err := term.ReadPassword(int(file.Fd()))
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

func isConfigKey(key string) bool {
	for _, known := range configKeys {
		if key == known {
			return true
		}
	}

	return false
}

func formatConfigValue(value string) string {
	if value == "" {
		return "(not set)"
	}

	return value
}

func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}

	return filepath.Join(home, ".tablestore", "config.yml"), nil
}

func saveConfig() error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Chmod(configFile, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}
