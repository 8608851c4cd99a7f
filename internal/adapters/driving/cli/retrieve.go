package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// previewLength bounds passage text in table output.
const previewLength = 200

var (
	retrieveTopK   int
	retrieveKFinal int
	retrieveJSON   bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the passages retrieved for a query",
	Long: `Embeds the query, searches the vector index and prints the ranked passages
without generating an answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", domain.DefaultTopK, "raw index hits considered")
	retrieveCmd.Flags().IntVarP(&retrieveKFinal, "k-final", "n", domain.DefaultKFinal, "passages returned")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	results, err := retrievalService.Retrieve(cmd.Context(), args[0], domain.RetrieveOptions{
		TopK:   retrieveTopK,
		KFinal: retrieveKFinal,
	})
	if errors.Is(err, domain.ErrIndexNotFound) {
		cmd.Println("No index found. Run 'groundwork ingest' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		return outputJSON(cmd, results)
	}
	return outputResults(cmd, results)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResults(cmd *cobra.Command, results []domain.Result) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		title := r.Title
		if r.Section != "" {
			title += " > " + r.Section
		}
		cmd.Printf("  [%d] %s (%.2f)\n", r.Rank, render(titleStyle, title), r.Score)
		if r.Source != "" {
			cmd.Printf("      %s\n", render(mutedStyle, r.Source))
		}
		if text := preview(r.Text); text != "" {
			cmd.Printf("      %s\n", text)
		}
		cmd.Println()
	}
	return nil
}

// preview flattens whitespace and truncates to previewLength runes.
func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
