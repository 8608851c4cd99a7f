package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0600))
	return path
}

func TestEvalCmd_ReportsMeans(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeDataset(t, `{"query":"annual leave","doc_titles":["handbook"]}
{"query":"policy index","doc_titles":["Policies"]}
`)

	out, err := execute("eval", "-k", "5", path)

	require.NoError(t, err)
	assert.Equal(t, 5, ts.retrieval.opts.KFinal)
	assert.Contains(t, out, "Mean over 2 queries (k=5)")
	// handbook at rank 1 (MRR 1), policies at rank 2 (MRR 0.5)
	assert.Contains(t, out, "MRR@k:    0.750")
	assert.Contains(t, out, "recall@k: 1.000")
	assert.NoFileExists(t, reportPath(path))
}

func TestEvalCmd_SavesReport(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := writeDataset(t, `{"query":"annual leave","doc_titles":["Handbook"]}`)

	out, err := execute("eval", "--save", path)

	require.NoError(t, err)
	report := reportPath(path)
	assert.Contains(t, out, "Report written to "+report)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 20, decoded["k"])
}

func TestEvalCmd_MissingDataset(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("eval", filepath.Join(t.TempDir(), "missing.jsonl"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load dataset")
}

func TestEvalCmd_EmptyDataset(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := writeDataset(t, "\n\n")

	_, err := execute("eval", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "eval failed")
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "data/golden.report.json", reportPath("data/golden.jsonl"))
	assert.Equal(t, "golden.report.json", reportPath("golden"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
