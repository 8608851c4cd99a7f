package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// DefaultK is the cutoff used when none is given.
const DefaultK = 20

// Case is one golden query.
type Case struct {
	Query     string   `json:"query"`
	DocTitles []string `json:"doc_titles"`
}

// Row is the score of one case.
type Row struct {
	Query  string  `json:"query"`
	Recall float64 `json:"recall@k"`
	NDCG   float64 `json:"nDCG@k"`
	MRR    float64 `json:"MRR@k"`
}

// Report averages the rows.
type Report struct {
	K      int     `json:"k"`
	Recall float64 `json:"recall@k"`
	NDCG   float64 `json:"nDCG@k"`
	MRR    float64 `json:"MRR@k"`
	Rows   []Row   `json:"rows"`
}

// LoadCases reads a JSONL dataset. Blank lines are ignored.
func LoadCases(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCases(f)
}

// ReadCases parses JSONL cases from r.
func ReadCases(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Case
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("parse dataset line %d: %w", line, err)
		}
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("dataset line %d: empty query: %w", line, domain.ErrInvalidInput)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return cases, nil
}

// Run retrieves the top k passages for each case and scores their titles.
func Run(ctx context.Context, retriever driving.RetrievalService, cases []Case, k int) (*Report, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("run eval: no cases: %w", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultK
	}

	done := logger.Timed("Evaluation")
	defer done()

	report := &Report{K: k, Rows: make([]Row, 0, len(cases))}
	for _, c := range cases {
		results, err := retriever.Retrieve(ctx, c.Query, domain.RetrieveOptions{TopK: k, KFinal: k})
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", c.Query, err)
		}

		titles := make([]string, len(results))
		for i, r := range results {
			titles[i] = r.Title
		}

		row := Row{
			Query:  c.Query,
			Recall: RecallAtK(c.DocTitles, titles, k),
			NDCG:   NDCGAtK(c.DocTitles, titles, k),
			MRR:    MRRAtK(c.DocTitles, titles, k),
		}
		logger.Debug("%q: recall=%.2f ndcg=%.3f mrr=%.3f", c.Query, row.Recall, row.NDCG, row.MRR)

		report.Rows = append(report.Rows, row)
		report.Recall += row.Recall
		report.NDCG += row.NDCG
		report.MRR += row.MRR
	}

	n := float64(len(cases))
	report.Recall /= n
	report.NDCG /= n
	report.MRR /= n
	return report, nil
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
