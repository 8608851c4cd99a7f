package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	status, err := ingestService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(render(titleStyle, "Corpus"))
	cmd.Printf("  Documents: %d\n", status.TotalDocuments)
	cmd.Printf("  Chunks:    %d\n", status.TotalChunks)
	cmd.Println()

	cmd.Println(render(titleStyle, "Index"))
	if status.IndexExists {
		cmd.Printf("  Vectors:   %d\n", status.IndexVectors)
		if status.IndexVectors != status.TotalChunks {
			cmd.Println(render(warningStyle, "  Index is out of step with the chunk store. Run 'groundwork rebuild'."))
		}
	} else {
		cmd.Println(render(warningStyle, "  Not built. Run 'groundwork rebuild'."))
	}

	if len(status.RecentDocuments) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println(render(titleStyle, "Recent documents"))
	for _, d := range status.RecentDocuments {
		cmd.Printf("  %s %s\n", d.Document.Title,
			render(mutedStyle, fmt.Sprintf("(%d chunks, %s)", d.ChunkCount, d.Document.Source)))
	}
	return nil
}
