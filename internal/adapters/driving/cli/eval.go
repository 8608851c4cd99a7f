package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/eval"
)

var (
	evalK          int
	evalSaveReport bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [dataset.jsonl]",
	Short: "Measure retrieval quality against a labelled dataset",
	Long: `Runs every query in a JSONL dataset through retrieval and reports the mean
recall@k, nDCG@k and MRR@k. Each line holds a query and the titles of the
documents that should be retrieved:

  {"query": "how do I reset my password?", "doc_titles": ["Account Guide"]}`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().IntVarP(&evalK, "k", "k", eval.DefaultK, "cut-off rank")
	evalCmd.Flags().BoolVar(&evalSaveReport, "save", false, "write the report as JSON next to the dataset")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	cases, err := eval.LoadCases(args[0])
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	report, err := eval.Run(cmd.Context(), retrievalService, cases, evalK)
	if err != nil {
		return fmt.Errorf("eval failed: %w", err)
	}

	for _, row := range report.Rows {
		cmd.Printf("  %-50s  R=%.3f  nDCG=%.3f  MRR=%.3f\n", truncate(row.Query, 50), row.Recall, row.NDCG, row.MRR)
	}
	cmd.Println()
	cmd.Println(render(titleStyle, fmt.Sprintf("Mean over %d queries (k=%d)", len(report.Rows), report.K)))
	cmd.Printf("  recall@k: %.3f\n", report.Recall)
	cmd.Printf("  nDCG@k:   %.3f\n", report.NDCG)
	cmd.Printf("  MRR@k:    %.3f\n", report.MRR)

	if evalSaveReport {
		path := reportPath(args[0])
		if err := eval.WriteReport(path, report); err != nil {
			return err
		}
		cmd.Printf("Report written to %s\n", path)
	}
	return nil
}

// reportPath places the report beside the dataset: data.jsonl -> data.report.json.
func reportPath(dataset string) string {
	base := strings.TrimSuffix(dataset, filepath.Ext(dataset))
	return base + ".report.json"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
