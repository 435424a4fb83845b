package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the HTTP API server.

Examples:
  secureplan serve
  secureplan serve --addr :9000
  secureplan serve --db-driver postgres --db-dsn postgres://localhost/secureplan?sslmode=disable`,
	RunE: runServe,
}

var (
	serveAddr     string
	serveDBDriver string
	serveDBDSN    string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&serveDBDriver, "db-driver", "", "Database driver: sqlite or postgres")
	serveCmd.Flags().StringVar(&serveDBDSN, "db-dsn", "", "Database DSN or SQLite path")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveDBDriver != "" {
		cfg.DBDriver = serveDBDriver
	}
	if serveDBDSN != "" {
		cfg.DBDSN = serveDBDSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.Open(cfg)
	if err != nil {
		logger.Error("Failed to open server", logger.Err(err))
		return fmt.Errorf("failed to open server: %w", err)
	}
	defer func() {
		_ = srv.Close()
		logger.Info("Database closed")
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "SecurePlan API listening on %s (%s)\n", cfg.Addr, cfg.DBDriver)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
