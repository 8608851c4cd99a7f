package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve retrieval tools to AI assistants over MCP",
	Long: `Start a Model Context Protocol server exposing the knowledge base.

Tools: retrieve (ranked passages), answer (cited answer) and
ingest_status (corpus and index state). Recently ingested documents are
also published as a resource.

The server speaks JSON-RPC over stdio unless --http is given.

Examples:
  groundwork mcp
  groundwork mcp --http 127.0.0.1:8081

Assistant configuration:
  {"mcpServers": {"groundwork": {"command": "groundwork", "args": ["mcp"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().String("http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	addr, _ := cmd.Flags().GetString("http")

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: retrievalService,
		Ingest:    ingestService,
		Query:     queryService,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr == "" {
		return server.Run(ctx)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", addr)
	return server.RunHTTP(ctx, addr)
}
