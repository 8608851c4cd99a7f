package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query  string `json:"query" jsonschema:"the question or keywords to retrieve passages for"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of nearest neighbours to consider (default 20)"`
	KFinal int    `json:"k_final,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Source  string  `json:"source"`
	Section string  `json:"section,omitempty"`
	ChunkID int64   `json:"chunk_id"`
	Text    string  `json:"text"`
}

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the knowledge base"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer        string           `json:"answer"`
	Confidence    float64          `json:"confidence"`
	Citations     []CitationOutput `json:"citations"`
	InteractionID int64            `json:"interaction_id,omitempty"`
}

// CitationOutput is a numbered source of an answer.
type CitationOutput struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// StatusInput is the (empty) input schema for the ingest_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the ingest_status tool.
type StatusOutput struct {
	TotalDocuments int  `json:"total_documents"`
	TotalChunks    int  `json:"total_chunks"`
	IndexExists    bool `json:"index_exists"`
	IndexVectors   int  `json:"index_vectors"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the passages of the knowledge base most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Query != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "answer",
			Description: "Answer a question from the knowledge base with numbered citations",
		}, s.handleAnswer)
	}

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_status",
			Description: "Report how many documents and chunks are stored and whether the index is built",
		}, s.handleStatus)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := domain.RetrieveOptions{TopK: input.TopK, KFinal: input.KFinal}
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, RetrieveOutput{Results: []PassageOutput{}}, nil
	}
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = PassageOutput{
			Rank:    results[i].Rank,
			Score:   results[i].Score,
			Title:   results[i].Title,
			URL:     results[i].URL,
			Source:  results[i].Source,
			Section: results[i].Section,
			ChunkID: results[i].ChunkID,
			Text:    results[i].Text,
		}
	}

	return nil, output, nil
}

// handleAnswer handles the answer tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.ports.Query.Answer(ctx, domain.QueryRequest{Query: input.Query})
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	output := AnswerOutput{
		Answer:        answer.Answer,
		Confidence:    answer.Confidence,
		Citations:     make([]CitationOutput, len(answer.Citations)),
		InteractionID: answer.InteractionID,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{Rank: c.Rank, Title: c.Title, URL: c.URL}
	}

	return nil, output, nil
}

// handleStatus handles the ingest_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		TotalDocuments: status.TotalDocuments,
		TotalChunks:    status.TotalChunks,
		IndexExists:    status.IndexExists,
		IndexVectors:   status.IndexVectors,
	}, nil
}
