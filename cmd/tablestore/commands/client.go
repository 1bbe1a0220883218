package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/tablestore/pkg/events"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
	"github.com/fivetwenty-io/tablestore/pkg/tsclient"
)

// Viper keys. With the TABLESTORE env prefix they map to TABLESTORE_<KEY>.
const (
	KeyEndpointURL = "endpoint_url"
	KeyAPIKey      = "api_key"
	KeyAPIVersion  = "api_version"
	KeyBaseID      = "base_id"
	KeyOutput      = "output"
	KeyVerbose     = "verbose"
	KeyNATSURL     = "nats_url"
	KeyNATSSubject = "nats_subject"
)

const defaultNATSSubject = "tablestore"

// newLogger returns a debug logger on stderr when verbose output is on.
func newLogger() tables.Logger {
	if !viper.GetBool(KeyVerbose) {
		return nil
	}

	return tables.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

// buildConfig reads the client configuration from flags, env and config file.
func buildConfig() *tables.Config {
	logger := newLogger()

	return &tables.Config{
		EndpointURL: viper.GetString(KeyEndpointURL),
		APIKey:      viper.GetString(KeyAPIKey),
		APIVersion:  viper.GetString(KeyAPIVersion),
		BaseID:      viper.GetString(KeyBaseID),
		Debug:       logger != nil,
		Logger:      logger,
	}
}

// createBase connects to the configured base. The returned cleanup flushes
// pending write events and must be called once the command is done.
func createBase() (*tables.Base, func(), error) {
	config := buildConfig()
	cleanup := func() {}

	var opts []tsclient.Option

	if natsURL := viper.GetString(KeyNATSURL); natsURL != "" {
		conn, err := events.Connect(natsURL)
		if err != nil {
			return nil, cleanup, err
		}

		subject := viper.GetString(KeyNATSSubject)
		if subject == "" {
			subject = defaultNATSSubject
		}

		opts = append(opts, tsclient.WithResponseInterceptor(
			events.ResponseInterceptor(events.NewPublisher(conn, subject), config.Logger)))
		cleanup = func() { _ = conn.Drain() }
	}

	base, err := tsclient.New(config, opts...)
	if err != nil {
		cleanup()

		return nil, func() {}, fmt.Errorf("failed to create client: %w", err)
	}

	return base, cleanup, nil
}
