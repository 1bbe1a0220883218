package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/tablestore/cmd/tablestore/commands"
	"github.com/fivetwenty-io/tablestore/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tablestore",
	Short: "Table store CLI",
	Long: `A command-line interface for reading and writing records of a table store.

Records can be fetched, listed with transparent pagination, created, updated,
replaced and deleted. The emulator command serves a local store for testing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.tablestore/config.yml)")
	rootCmd.PersistentFlags().String("endpoint", "", "store endpoint URL")
	rootCmd.PersistentFlags().String("api-key", "", "API key")
	rootCmd.PersistentFlags().StringP("base", "b", "", "base ID")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("nats-url", "", "publish write events to this NATS server")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag(commands.KeyEndpointURL, rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag(commands.KeyAPIKey, rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag(commands.KeyBaseID, rootCmd.PersistentFlags().Lookup("base"))
	_ = viper.BindPFlag(commands.KeyOutput, rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag(commands.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag(commands.KeyNATSURL, rootCmd.PersistentFlags().Lookup("nats-url"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewRecordsCommand())
	rootCmd.AddCommand(commands.NewEmulatorCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Create config directory if it doesn't exist
		configDir := filepath.Join(home, ".tablestore")
		if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		// Search config in ~/.tablestore/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix(strings.TrimSuffix(constants.EnvPrefix, "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool(commands.KeyVerbose) {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
