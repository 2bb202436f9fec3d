package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danilop/total-recall/internal/recall"
	"github.com/danilop/total-recall/internal/recall/query"
)

type searchInput struct {
	Query            string  `json:"query" jsonschema:"required,Natural-language text to search for by meaning"`
	After            string  `json:"after,omitempty" jsonschema:"Only messages at or after this RFC3339 timestamp"`
	Before           string  `json:"before,omitempty" jsonschema:"Only messages strictly before this RFC3339 timestamp"`
	ContextSize      int     `json:"context_size,omitempty" jsonschema:"Messages to include before and after each match (default: 3)"`
	Threshold        float64 `json:"threshold,omitempty" jsonschema:"Minimum cosine similarity in [0,1] (default: 0.2)"`
	MaxResults       int     `json:"max_results,omitempty" jsonschema:"Maximum results to return (default: 10)"`
	Offset           int     `json:"offset,omitempty" jsonschema:"Number of matches to skip for pagination (default: 0)"`
	CurrentWorkspace string  `json:"current_workspace,omitempty" jsonschema:"Workspace path for project-scoped search; ignored by other tools"`
}

type searchResultOutput struct {
	MatchedMessage messageOutput   `json:"matched_message"`
	Score          float32         `json:"score"`
	Context        []contextOutput `json:"context"`
}

type messageOutput struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Workspace string `json:"workspace"`
	SessionID string `json:"session_id"`
	UUID      string `json:"uuid"`
	Source    string `json:"source"`
}

type contextOutput struct {
	messageOutput
	IsMatch bool `json:"is_match"`
}

type searchOutput struct {
	Results      []searchResultOutput `json:"results"`
	Query        string                `json:"query"`
	TotalMatches int                   `json:"total_matches"`
	Offset       int                   `json:"offset"`
	HasMore      bool                  `json:"has_more"`
	Hint         string                `json:"hint"`
}

const (
	defaultContextSize = 3
	defaultThreshold   = 0.2
	defaultMaxResults  = 10
)

func toMessageOutput(m recall.Message) messageOutput {
	return messageOutput{
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.Format(time.RFC3339),
		Workspace: m.Workspace,
		SessionID: m.SessionID,
		UUID:      m.UUID,
		Source:    string(m.Source),
	}
}

func toSearchOutput(resp query.Response) searchOutput {
	results := make([]searchResultOutput, len(resp.Results))
	for i, r := range resp.Results {
		ctxMessages := make([]contextOutput, len(r.Context))
		for j, c := range r.Context {
			ctxMessages[j] = contextOutput{messageOutput: toMessageOutput(c.Message), IsMatch: c.IsMatch}
		}
		results[i] = searchResultOutput{
			MatchedMessage: toMessageOutput(r.Message),
			Score:          r.Score,
			Context:        ctxMessages,
		}
	}
	return searchOutput{
		Results:      results,
		Query:        resp.Query,
		TotalMatches: resp.TotalMatches,
		Offset:       resp.Offset,
		HasMore:      resp.HasMore,
		Hint:         resp.Hint,
	}
}

// buildRequest translates tool-call arguments into a query.Request,
// applying the configured defaults and parsing optional date bounds.
func buildRequest(args searchInput, filters query.Filters) (query.Request, error) {
	contextSize := args.ContextSize
	if contextSize == 0 {
		contextSize = defaultContextSize
	}
	threshold := args.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	maxResults := args.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	if args.After != "" {
		after, err := time.Parse(time.RFC3339, args.After)
		if err != nil {
			return query.Request{}, fmt.Errorf("invalid after timestamp: %w", err)
		}
		filters.After = &after
	}
	if args.Before != "" {
		before, err := time.Parse(time.RFC3339, args.Before)
		if err != nil {
			return query.Request{}, fmt.Errorf("invalid before timestamp: %w", err)
		}
		filters.Before = &before
	}

	return query.Request{
		Query:       args.Query,
		Filters:     filters,
		ContextSize: contextSize,
		Threshold:   threshold,
		MaxResults:  maxResults,
		Offset:      args.Offset,
	}, nil
}

// requireWorkspace validates that a project-scoped search call carried a
// current workspace, returning it for use as the scope filter.
func requireWorkspace(args searchInput) (string, error) {
	if args.CurrentWorkspace == "" {
		return "", fmt.Errorf("current_workspace is required for project-scoped search")
	}
	return args.CurrentWorkspace, nil
}

func (s *Server) runSearch(ctx context.Context, toolName string, args searchInput, filters query.Filters) (*mcp.CallToolResult, searchOutput, error) {
	var err error
	defer s.metrics.startTool(toolName)(&err)

	req, buildErr := buildRequest(args, filters)
	if buildErr != nil {
		err = buildErr
		return nil, searchOutput{}, err
	}

	resp, searchErr := s.engine.Search(ctx, req)
	if searchErr != nil {
		err = searchErr
		return nil, searchOutput{}, fmt.Errorf("%s failed: %w", toolName, err)
	}

	output := toSearchOutput(resp)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output.Hint}},
	}, output, nil
}

func (s *Server) registerSearchTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_project_history",
		Description: "Search past conversations by meaning, scoped to the current project workspace.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		ws, err := requireWorkspace(args)
		if err != nil {
			return nil, searchOutput{}, err
		}
		return s.runSearch(ctx, "search_project_history", args, query.Filters{Workspace: &ws})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_global_history",
		Description: "Search past conversations by meaning across all workspaces and sources.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		return s.runSearch(ctx, "search_global_history", args, query.Filters{})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_cli_history",
		Description: "Search past conversations by meaning, scoped to the CLI conversation store.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		return s.runSearch(ctx, "search_cli_history", args, query.Filters{Sources: []recall.Source{recall.SourceCLI}})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_ide_history",
		Description: "Search past conversations by meaning, scoped to the IDE chat-document store.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		return s.runSearch(ctx, "search_ide_history", args, query.Filters{Sources: []recall.Source{recall.SourceIDE}})
	})
}
