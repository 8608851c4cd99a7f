package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/groundwork/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves ingestion, question answering and feedback over HTTP.

Endpoints:
  POST /ingest           Ingest server-side paths and rebuild the index
  POST /ingest/upload    Upload files (multipart "files")
  POST /ingest/rebuild   Rebuild the index from the chunk store
  GET  /ingest/status    Corpus and index status
  POST /query            Answer a question
  POST /feedback         Rate an answer
  GET  /healthz          Liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from settings, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || queryService == nil {
		return errors.New("ingest and query services not configured")
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}

	config := httpapi.Config{}
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		config.RateLimitPerMinute = settings.Server.RateLimitPerMinute
		if addr == "" {
			addr = settings.Server.Addr
		}
	}
	if addr == "" {
		addr = ":8000"
	}

	server, err := httpapi.NewServer(ingestService, queryService, config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.SetTimestamps(true)
	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s\n", addr)
	return server.Run(ctx, addr)
}
