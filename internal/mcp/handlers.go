package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/discovery"
	"github.com/hpungsan/bssh/internal/errors"
	"github.com/hpungsan/bssh/internal/ops"
)

const (
	defaultDiscoverLimit = 10
	defaultRecentLimit   = 5
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	engine *discovery.Engine
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, cfg *config.Config, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{
		db:     database,
		cfg:    cfg,
		engine: discovery.NewEngine(db.NewStore(database), discovery.WithLogger(logger)),
		logger: logger,
	}
}

// DiscoverRequest represents the arguments for connection_discover.
type DiscoverRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// TargetRequest addresses a single connection by id or name.
type TargetRequest struct {
	Target string `json:"target"`
}

// ListRequest represents the arguments for connection_list.
type ListRequest struct {
	Tag        *string `json:"tag,omitempty"`
	RecentOnly bool    `json:"recent_only,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

// RecentRequest represents the arguments for connection_recent.
type RecentRequest struct {
	Limit int `json:"limit,omitempty"`
}

// AddRequest represents the arguments for connection_add.
type AddRequest struct {
	Name        string   `json:"name"`
	Host        string   `json:"host"`
	User        *string  `json:"user,omitempty"`
	Port        *int     `json:"port,omitempty"`
	Bastion     *string  `json:"bastion,omitempty"`
	NoBastion   bool     `json:"no_bastion,omitempty"`
	BastionUser *string  `json:"bastion_user,omitempty"`
	UseKerberos *bool    `json:"use_kerberos,omitempty"`
	KeyPath     *string  `json:"key_path,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// HistoryRequest represents the arguments for connection_history.
type HistoryRequest struct {
	Connection *string `json:"connection,omitempty"`
	Days       int     `json:"days,omitempty"`
	FailedOnly bool    `json:"failed_only,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

// DiscoverMatch is one ranked candidate in a discover response.
type DiscoverMatch struct {
	connection.Connection
	Score    float64 `json:"score"`
	Strategy string  `json:"strategy,omitempty"`
}

// DiscoverOutput is the connection_discover response.
type DiscoverOutput struct {
	Query      string          `json:"query"`
	Candidates []DiscoverMatch `json:"candidates"`
	Count      int             `json:"count"`
}

// RecentOutput is the connection_recent response.
type RecentOutput struct {
	Items []connection.Connection `json:"items"`
	Count int                     `json:"count"`
}

// HandleDiscover handles the connection_discover tool call.
func (h *Handlers) HandleDiscover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiscoverRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultDiscoverLimit
	}

	candidates, err := h.engine.Discover(ctx, input.Query, limit)
	if err != nil {
		return errorResult(err), nil
	}

	q := strings.TrimSpace(input.Query)
	out := DiscoverOutput{
		Query:      q,
		Candidates: make([]DiscoverMatch, 0, len(candidates)),
		Count:      len(candidates),
	}
	for _, c := range candidates {
		m := DiscoverMatch{Connection: c.Connection, Score: c.Score}
		if s, ok := discovery.MatchStrategy(q, c.Name); ok {
			m.Strategy = s.String()
		}
		out.Candidates = append(out.Candidates, m)
	}
	return successResult(out)
}

// HandleShow handles the connection_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TargetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.db, h.cfg, ops.ShowInput{Target: input.Target})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the connection_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Tag:        input.Tag,
		RecentOnly: input.RecentOnly,
		Limit:      input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecent handles the connection_recent tool call.
func (h *Handlers) HandleRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultRecentLimit
	}

	items, err := h.engine.Recent(ctx, limit)
	if err != nil {
		return errorResult(err), nil
	}
	if items == nil {
		items = []connection.Connection{}
	}
	return successResult(RecentOutput{Items: items, Count: len(items)})
}

// HandleAdd handles the connection_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Add(ctx, h.db, h.cfg, ops.AddInput{
		Name:        input.Name,
		Host:        input.Host,
		User:        input.User,
		Port:        input.Port,
		Bastion:     input.Bastion,
		NoBastion:   input.NoBastion,
		BastionUser: input.BastionUser,
		UseKerberos: input.UseKerberos,
		KeyPath:     input.KeyPath,
		Tags:        input.Tags,
	})
	if err != nil {
		return errorResult(err), nil
	}
	h.logger.Info("connection added", zap.String("id", result.ID), zap.String("name", result.Connection.Name))
	return successResult(result)
}

// HandleRemove handles the connection_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TargetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Remove(ctx, h.db, ops.RemoveInput{Target: input.Target})
	if err != nil {
		return errorResult(err), nil
	}
	h.logger.Info("connection removed", zap.String("id", result.ID), zap.String("name", result.Name))
	return successResult(result)
}

// HandleStats handles the connection_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the connection_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		Connection: input.Connection,
		Days:       input.Days,
		FailedOnly: input.FailedOnly,
		Limit:      input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var bErr *errors.BsshError
	if errors.As(err, &bErr) {
		msg := bErr.Message
		// Keep wrapper context such as "line 3: " in front of the message.
		if prefix, ok := strings.CutSuffix(err.Error(), bErr.Error()); ok && prefix != "" {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    bErr.Code,
			"message": msg,
			"status":  bErr.Status,
		}
		// Internal errors may carry paths or SQL text.
		if bErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if bErr.Details != nil {
			errorObj["details"] = bErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
