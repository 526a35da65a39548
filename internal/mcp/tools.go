// ABOUTME: MCP tool definitions and registration for the ai-me server
// ABOUTME: Exposes chat, end_session, and search_knowledge over stdio
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/byoung/ai-me/internal/agent"
	"github.com/byoung/ai-me/internal/retrieval"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, orchestrator *agent.Orchestrator, retriever *retrieval.Retriever) *Handlers {
	handlers := &Handlers{
		orchestrator: orchestrator,
		retriever:    retriever,
	}

	// 1. chat - Send a message to the persona within a session
	server.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the persona and get a reply. Messages sharing a session_id form one conversation with ordered turns and shared session memory.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation identifier. Reuse it across messages to continue the same conversation.",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The user's message",
				},
			},
			Required: []string{"session_id", "message"},
		},
	}, handlers.Chat)

	// 2. end_session - End a conversation and release its resources
	server.AddTool(mcp.Tool{
		Name:        "end_session",
		Description: "End a conversation session. Releases the session's tools and erases its session-scoped memory. Ending an unknown session is a no-op.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation identifier to end",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.EndSession)

	// 3. search_knowledge - Query the document index directly
	server.AddTool(mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the persona's document index directly, bypassing the conversation loop. Returns scored passages with source attribution.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of passages to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchKnowledge)

	return handlers
}
