package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/internal/emulator"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

const emulatorShutdownTimeout = 5 * time.Second

// NewEmulatorCommand creates the emulator command.
func NewEmulatorCommand() *cobra.Command {
	var (
		addr     string
		dbPath   string
		apiKey   string
		baseID   string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "emulator",
		Short: "Run a local table store",
		Long: `Serve the table store REST API from a local SQLite database.

Point the client at it with --endpoint http://ADDR. Filter formulas are
accepted but not evaluated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := emulator.OpenStore(dbPath)
			if err != nil {
				return err
			}

			defer func() { _ = store.Close() }()

			logger := tables.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

			server := emulator.NewServer(store,
				emulator.WithAPIKey(apiKey),
				emulator.WithBaseID(baseID),
				emulator.WithPageSize(pageSize),
				emulator.WithLogger(logger),
			)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: constants.ShortHTTPTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)

			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			logger.Info("Emulator listening", map[string]interface{}{
				"addr":     addr,
				"database": dbPath,
			})

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}

				return fmt.Errorf("emulator stopped: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), emulatorShutdownTimeout)
			defer cancel()

			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", ":memory:", "SQLite database path")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "require this API key (empty accepts any)")
	cmd.Flags().StringVar(&baseID, "base", "", "only serve this base ID (empty serves any)")
	cmd.Flags().IntVar(&pageSize, "page-size", constants.DefaultPageSize, "records per list page")

	return cmd
}
