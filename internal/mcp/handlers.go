// ABOUTME: MCP tool handler implementations for the ai-me server
// ABOUTME: Maps tool requests onto the orchestrator and retriever
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/byoung/ai-me/internal/agent"
	"github.com/byoung/ai-me/internal/retrieval"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	orchestrator *agent.Orchestrator
	retriever    *retrieval.Retriever
}

// Chat handles the chat tool
func (h *Handlers) Chat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}

	reply, err := h.orchestrator.Handle(ctx, sessionID, message)
	if err != nil {
		if errors.Is(err, agent.ErrSessionInit) {
			return mcp.NewToolResultError("the knowledge index is still being built, try again shortly"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"session_id": sessionID,
		"reply":      reply,
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// EndSession handles the end_session tool
func (h *Handlers) EndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	h.orchestrator.End(sessionID)

	response := map[string]interface{}{
		"session_id": sessionID,
		"ended":      true,
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// SearchKnowledge handles the search_knowledge tool
func (h *Handlers) SearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	maxResults := request.GetInt("max_results", 5)

	result, err := h.retriever.Search(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("knowledge search failed: %v", err)), nil
	}

	passages := make([]map[string]interface{}, 0, len(result))
	for _, sp := range result {
		passages = append(passages, map[string]interface{}{
			"id":         sp.Passage.StableID,
			"text":       sp.Passage.Chunk.Text,
			"source_url": sp.Passage.SourceURL,
			"score":      sp.Score,
		})
	}

	response := map[string]interface{}{
		"query":    query,
		"passages": passages,
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// Shutdown ends every active session before the server exits.
func (h *Handlers) Shutdown() {
	h.orchestrator.Shutdown()
}
