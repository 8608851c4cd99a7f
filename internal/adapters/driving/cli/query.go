package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

var (
	queryTopK   int
	queryKFinal int
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the passages most relevant to the question and answers from them,
citing sources by rank. When the retrieved context is too weak the answer says
so instead of guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var feedbackComment string

var feedbackCmd = &cobra.Command{
	Use:   "feedback [interaction-id] [rating]",
	Short: "Rate an earlier answer",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", domain.DefaultTopK, "raw index hits considered")
	queryCmd.Flags().IntVar(&queryKFinal, "k-final", domain.DefaultKFinal, "passages used as context")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	feedbackCmd.Flags().StringVarP(&feedbackComment, "comment", "c", "", "free-text comment")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	answer, err := queryService.Answer(cmd.Context(), domain.QueryRequest{
		Query:  args[0],
		TopK:   queryTopK,
		KFinal: queryKFinal,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, answer)
	}

	cmd.Println(answer.Answer)
	cmd.Println()
	if len(answer.Citations) > 0 {
		cmd.Println(render(titleStyle, "Sources"))
		for _, c := range answer.Citations {
			line := fmt.Sprintf("  [%d] %s", c.Rank, c.Title)
			if c.URL != "" {
				line += " " + render(mutedStyle, c.URL)
			}
			cmd.Println(line)
		}
		cmd.Println()
	}

	confidence := fmt.Sprintf("Confidence: %.2f", answer.Confidence)
	style := successStyle
	if answer.Confidence < 0.5 {
		style = warningStyle
	}
	cmd.Print(render(style, confidence))
	if answer.InteractionID > 0 {
		cmd.Print(render(mutedStyle, fmt.Sprintf("  (interaction %d)", answer.InteractionID)))
	}
	cmd.Println()
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	interactionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid interaction id %q", args[0])
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}

	id, err := queryService.RecordFeedback(cmd.Context(), domain.Feedback{
		InteractionID: interactionID,
		Rating:        rating,
		Comment:       feedbackComment,
	})
	if err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}
	cmd.Printf("Recorded feedback %d for interaction %d\n", id, interactionID)
	return nil
}
