package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	gen ops.Generator
	rec ops.ExchangeRecorder
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, gen ops.Generator, rec ops.ExchangeRecorder) *Handlers {
	return &Handlers{db: db, gen: gen, rec: rec}
}

// ModelCallResult is returned by model_call.
type ModelCallResult struct {
	Text string `json:"text"`
}

// HandleFormulaSave handles the formula_save tool call.
func (h *Handlers) HandleFormulaSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SaveFormulaInput](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.SaveFormula(ctx, h.db, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFormulaList handles the formula_list tool call.
func (h *Handlers) HandleFormulaList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := ops.ListFormulas(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"formulas": items})
}

// HandleProblemSave handles the problem_save tool call.
func (h *Handlers) HandleProblemSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SaveProblemInput](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.SaveProblem(ctx, h.db, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProblemList handles the problem_list tool call.
func (h *Handlers) HandleProblemList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := ops.ListProblems(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"problems": items})
}

// HandleContentSave handles the content_save tool call.
func (h *Handlers) HandleContentSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SaveContentInput](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.SaveContent(ctx, h.db, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContentList handles the content_list tool call.
func (h *Handlers) HandleContentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := ops.ListContent(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"data": items})
}

// HandleModelCall handles the model_call tool call.
func (h *Handlers) HandleModelCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.CallModelInput](req)
	if err != nil {
		return errorResult(err), nil
	}
	text, err := ops.CallModel(ctx, h.gen, h.rec, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ModelCallResult{Text: text})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Details are omitted for INTERNAL errors.
func errorResult(err error) *mcp.CallToolResult {
	appErr := errors.As(err)

	errorObj := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
		"status":  appErr.Status,
	}
	if appErr.Code != errors.ErrInternal && appErr.Details != nil {
		errorObj["details"] = appErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
