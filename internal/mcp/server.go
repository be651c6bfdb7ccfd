// Package mcp exposes casefind over the Model Context Protocol so AI
// clients can search a case-law workspace as a tool.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/search"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/pkg/version"
)

// Server bridges MCP clients with the hybrid search orchestrator.
type Server struct {
	mcp    *mcp.Server
	orch   *search.Orchestrator
	meta   store.MetadataStore
	logger *slog.Logger
}

// SearchCasesInput is the input schema for the search_cases tool.
type SearchCasesInput struct {
	Query       string `json:"query" jsonschema:"the case-law search query, natural language with optional court, year, and case type mentions"`
	WorkspaceID string `json:"workspace_id" jsonschema:"the workspace to search"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	UseReranker bool   `json:"use_reranker,omitempty" jsonschema:"enable the hosted reranking pass"`
	Court       string `json:"court,omitempty" jsonschema:"explicit court filter, overrides extraction from the query"`
	Year        int    `json:"year,omitempty" jsonschema:"explicit decision year filter"`
	CaseType    string `json:"case_type,omitempty" jsonschema:"explicit case type filter, e.g. writ petition"`
}

// CaseResult is one fused search result.
type CaseResult struct {
	ID            string  `json:"id" jsonschema:"document identifier"`
	Title         string  `json:"title" jsonschema:"case title"`
	Snippet       string  `json:"snippet,omitempty" jsonschema:"matched or synthesized text"`
	Score         float64 `json:"score" jsonschema:"combined relevance score between 0 and 1"`
	VectorScore   float64 `json:"vector_score" jsonschema:"dense similarity component"`
	MetadataScore float64 `json:"metadata_score" jsonschema:"structured-field relevance component"`
	RerankerScore float64 `json:"reranker_score" jsonschema:"hosted reranker component, 0.5 when disabled"`
	Source        string  `json:"source" jsonschema:"which branches matched: vector, metadata, or hybrid"`
	Court         string  `json:"court,omitempty" jsonschema:"deciding court"`
	Year          string  `json:"year,omitempty" jsonschema:"decision year"`
	Citation      string  `json:"citation,omitempty" jsonschema:"reported citation"`
	CaseType      string  `json:"case_type,omitempty" jsonschema:"case type"`
}

// SearchCasesOutput is the output schema for the search_cases tool.
type SearchCasesOutput struct {
	Results []CaseResult `json:"results" jsonschema:"ranked search results"`
}

// GetCaseInput is the input schema for the get_case tool.
type GetCaseInput struct {
	DocID string `json:"doc_id" jsonschema:"the document identifier to fetch"`
}

// GetCaseOutput is the output schema for the get_case tool.
type GetCaseOutput struct {
	Case *store.CaseRecord `json:"case" jsonschema:"the full case record"`
}

// NewServer creates an MCP server over the orchestrator. The metadata
// store backs the get_case tool.
func NewServer(orch *search.Orchestrator, meta store.MetadataStore) (*Server, error) {
	if orch == nil {
		return nil, cferrors.New(cferrors.ErrCodeInternal, "search orchestrator is required", nil)
	}
	if meta == nil {
		return nil, cferrors.New(cferrors.ErrCodeInternal, "metadata store is required", nil)
	}

	s := &Server{
		orch:   orch,
		meta:   meta,
		logger: slog.Default().With("component", "mcp"),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "casefind",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_cases",
		Description: "Hybrid case-law search over a workspace. Combines semantic similarity with structured filters (court, year, case type, citation) extracted from the query. Results carry per-component scores explaining the ranking.",
	}, s.searchCasesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_case",
		Description: "Fetch the full stored record of a single case by its document id, as returned by search_cases.",
	}, s.getCaseHandler)

	s.logger.Debug("mcp tools registered", "count", 2)
}

func (s *Server) searchCasesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchCasesInput) (
	*mcp.CallToolResult,
	SearchCasesOutput,
	error,
) {
	opts := s.orch.Options()
	if input.Limit > 0 {
		opts.MaxResults = input.Limit
	}
	opts.UseHostedReranker = opts.UseHostedReranker || input.UseReranker

	if input.Court != "" || input.Year != 0 || input.CaseType != "" {
		opts.Filters = &store.Filters{
			Court:    input.Court,
			Year:     input.Year,
			CaseType: input.CaseType,
			Fulltext: input.Query,
		}
	}

	candidates, err := s.orch.Search(ctx, input.WorkspaceID, input.Query, opts)
	if err != nil {
		s.logger.Warn("search_cases failed", "err", err, "code", cferrors.CodeOf(err))
		return nil, SearchCasesOutput{}, err
	}

	out := SearchCasesOutput{Results: make([]CaseResult, 0, len(candidates))}
	for _, c := range candidates {
		out.Results = append(out.Results, CaseResult{
			ID:            c.ID,
			Title:         c.Title,
			Snippet:       c.Text,
			Score:         c.CombinedScore,
			VectorScore:   c.VectorScore,
			MetadataScore: c.MetadataScore,
			RerankerScore: c.RerankerScore,
			Source:        string(c.Source),
			Court:         c.Metadata["court"],
			Year:          c.Metadata["year"],
			Citation:      c.Metadata["citation"],
			CaseType:      c.Metadata["case_type"],
		})
	}

	s.logger.Info("search_cases complete",
		"workspace", input.WorkspaceID,
		"results", len(out.Results))
	return nil, out, nil
}

func (s *Server) getCaseHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetCaseInput) (
	*mcp.CallToolResult,
	GetCaseOutput,
	error,
) {
	if input.DocID == "" {
		return nil, GetCaseOutput{}, cferrors.ValidationError("doc_id parameter is required", nil)
	}

	rec, err := s.meta.Get(ctx, input.DocID)
	if err != nil {
		return nil, GetCaseOutput{}, err
	}
	return nil, GetCaseOutput{Case: rec}, nil
}

// Serve runs the server until the context is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting mcp server", "transport", transport)

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", "err", err)
			return err
		}
		s.logger.Info("mcp server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
