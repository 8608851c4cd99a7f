package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from the chunk store",
	Long: `Re-embeds every stored chunk and replaces the index artifacts. Running it
twice over an unchanged chunk store produces identical artifacts.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the vector index",
}

var indexAddCmd = &cobra.Command{
	Use:   "add [chunk-id...]",
	Short: "Append stored chunks to the index",
	Long: `Embeds the given chunks and appends them to the index. When the index is
missing or the append fails, the index is rebuilt from the chunk store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexAdd,
}

func init() {
	indexCmd.AddCommand(indexAddCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	report, err := ingestService.RebuildFromDatabase(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	printIndexReport(cmd, report)
	return nil
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid chunk id %q", arg)
		}
		ids = append(ids, id)
	}

	report, err := ingestService.AddChunksToIndex(cmd.Context(), ids)
	if err != nil {
		return fmt.Errorf("index add failed: %w", err)
	}
	printIndexReport(cmd, report)
	return nil
}
