// Package cli implements the groundwork command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// version is set by SetVersion.
var version = "dev"

var (
	verbose bool
	dataDir string
)

// Services used by the commands. Set by SetServices or by the builder
// registered with SetServiceBuilder.
var (
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	queryService     driving.QueryService
	settingsService  driving.SettingsService
	closeServices    func() error
)

// Services holds the core services the commands drive.
type Services struct {
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Query     driving.QueryService
	Settings  driving.SettingsService

	// Close releases the resources behind the services. May be nil.
	Close func() error
}

// ServiceBuilder creates the services once flags are parsed.
type ServiceBuilder func(ctx context.Context, dataDir string) (*Services, error)

var serviceBuilder ServiceBuilder

var rootCmd = &cobra.Command{
	Use:   "groundwork",
	Short: "Ground answers in your documents",
	Long: `Groundwork ingests Markdown, HTML and PDF documents into a local chunk
store, keeps a vector index in step with it, and answers questions with
citations back to the source passages.

Example usage:
  groundwork ingest ./docs              # Ingest and index a directory
  groundwork query "how do I reset?"    # Ask a question
  groundwork serve                      # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if serviceBuilder == nil || ingestService != nil {
			return nil
		}
		services, err := serviceBuilder(cmd.Context(), dataDir)
		if err != nil {
			return fmt.Errorf("initialise services: %w", err)
		}
		SetServices(services)
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if closeServices == nil {
			return nil
		}
		fn := closeServices
		closeServices = nil
		return fn()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.groundwork)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	ingestService = s.Ingest
	retrievalService = s.Retrieval
	queryService = s.Query
	settingsService = s.Settings
	closeServices = s.Close
}

// SetServiceBuilder registers a builder run before any command when no
// services have been installed.
func SetServiceBuilder(b ServiceBuilder) {
	serviceBuilder = b
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
