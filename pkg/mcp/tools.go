package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// toolHandler handles one tools/call invocation.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"campusdesk_ask":          handleAsk,
	"campusdesk_languages":    handleLanguages,
	"campusdesk_cache_stats":  handleCacheStats,
	"campusdesk_usage":        handleUsage,
	"campusdesk_budget":       handleBudget,
	"campusdesk_audit_search": handleAuditSearch,
}

var sinceProperty = map[string]any{
	"type":        "string",
	"description": "Start date in YYYY-MM-DD format (optional)",
}

var allTools = []ToolDefinition{
	{
		Name:        "campusdesk_ask",
		Description: "Ask the university support chatbot a question. The answer comes only from the knowledge base, optionally translated.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The question to answer",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "Answer language code: en, hi, gu, ta or mr (optional, defaults to en)",
				},
			},
		},
	},
	{
		Name:        "campusdesk_languages",
		Description: "List the supported answer languages.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
	{
		Name:        "campusdesk_cache_stats",
		Description: "Show response cache statistics (entries, cached failures, hits, misses, hit rate).",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
	{
		Name:        "campusdesk_usage",
		Description: "Show upstream generation and translation calls grouped by provider and outcome.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"since": sinceProperty},
		},
	},
	{
		Name:        "campusdesk_budget",
		Description: "Show call budget usage against every configured policy.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
	{
		Name:        "campusdesk_audit_search",
		Description: "Search the chat audit log with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Filter by answer language (optional)",
				},
				"outcome": map[string]any{
					"type":        "string",
					"description": "Filter by outcome: success, quota_exceeded or failed (optional)",
				},
				"request_id": map[string]any{
					"type":        "string",
					"description": "Filter by request ID (optional)",
				},
				"since": sinceProperty,
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

type askArgs struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

func handleAsk(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Resolver == nil {
		return errorResult("Resolver is not configured.")
	}
	var args askArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	if args.Query == "" {
		return errorResult("query is required")
	}

	start := time.Now()
	res := s.deps.Resolver.Resolve(ctx, args.Query, models.ParseLanguage(args.Language))

	if s.deps.Auditor != nil {
		err := s.deps.Auditor.Log(ctx, models.ChatExchange{
			RequestID: uuid.NewString(),
			Query:     args.Query,
			Language:  res.Language,
			Response:  res.Text,
			CacheHit:  res.CacheHit,
			Outcome:   res.Outcome,
			Channel:   "mcp",
			LatencyMs: time.Since(start).Milliseconds(),
			CreatedAt: start,
		})
		if err != nil {
			s.log.WithError(err).Warn("audit log failed")
		}
	}
	return textResult(res.Text)
}

func handleLanguages(_ context.Context, _ *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatLanguages(models.SupportedLanguages))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.deps.Cache.Stats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

type sinceArgs struct {
	Since string `json:"since"`
}

func handleUsage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Tracker == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args sinceArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	since, err := parseSince(args.Since)
	if err != nil {
		return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
	}
	rows, err := s.deps.Tracker.Summary(ctx, since)
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatUsage(rows))
}

func handleBudget(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	statuses, err := s.deps.Budget.Status(ctx)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(statuses))
}

type auditSearchArgs struct {
	Language  string `json:"language"`
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id"`
	Since     string `json:"since"`
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}

	since, err := parseSince(args.Since)
	if err != nil {
		return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
	}
	exchanges, err := s.deps.Auditor.Query(ctx, models.AuditQueryOpts{
		Language:  models.Language(args.Language),
		Outcome:   models.Outcome(args.Outcome),
		RequestID: args.RequestID,
		Since:     since,
		Limit:     50,
	})
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatExchanges(exchanges))
}
