// ABOUTME: Session orchestrator running the persona completion loop with tools
// ABOUTME: Serializes turns per session and degrades turn failures to an apology
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/byoung/ai-me/internal/tools"
)

// ErrSessionInit is returned when a turn arrives before the knowledge index
// has been built. The caller should tell the user the system is starting up.
var ErrSessionInit = errors.New("session cannot start: knowledge index is not ready")

// ApologyText is the fixed reply for any turn that fails internally. The
// error itself is logged, never shown to the user.
const ApologyText = "I'm sorry, something went wrong on my end while answering that. Please try asking again."

const retrievalToolName = "get_local_info"

// Completer is the chat completion capability. llm.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ChatModel() string
}

// Retriever is the knowledge lookup capability consumed by the completion
// loop through the get_local_info tool.
type Retriever interface {
	Ready() bool
	SearchAndFormat(ctx context.Context, sessionID, query string) (string, error)
}

// session is one conversation. Its mutex serializes turns: a second message
// arriving while one is in flight waits rather than interleaving history.
type session struct {
	mu      sync.Mutex
	id      string
	history []openai.ChatCompletionMessage
	tools   *tools.ToolSet
}

// Orchestrator owns every active session and runs their turns.
type Orchestrator struct {
	completer         Completer
	retriever         Retriever
	toolManager       *tools.Manager
	botName           string
	maxToolRounds     int
	completionTimeout time.Duration
	toolTimeout       time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an orchestrator.
func New(completer Completer, retriever Retriever, toolManager *tools.Manager, botName string, maxToolRounds int, completionTimeout, toolTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		completer:         completer,
		retriever:         retriever,
		toolManager:       toolManager,
		botName:           botName,
		maxToolRounds:     maxToolRounds,
		completionTimeout: completionTimeout,
		toolTimeout:       toolTimeout,
		sessions:          make(map[string]*session),
	}
}

// Handle runs one conversation turn and returns the persona's reply. Turns
// within a session are strictly ordered; concurrent sessions do not block
// each other. Internal failures degrade to ApologyText with a nil error so
// one bad turn never ends the conversation.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, userText string) (string, error) {
	if !o.retriever.Ready() {
		return "", ErrSessionInit
	}

	s := o.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	o.activate(ctx, s)

	ctx, cancel := context.WithTimeout(ctx, o.completionTimeout)
	defer cancel()

	reply, err := o.runTurn(ctx, s, Normalize(userText))
	if err != nil {
		log.Printf("Warning: turn failed for session %s: %v", sessionID, err)
		return ApologyText, nil
	}
	return Normalize(reply), nil
}

// End closes a session, releasing its tools and any memory they hold. Ending
// an unknown or already-ended session is a no-op.
func (o *Orchestrator) End(sessionID string) {
	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	delete(o.sessions, sessionID)
	o.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tools != nil {
		s.tools.Close()
	}
}

// Shutdown ends every active session.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		o.End(id)
	}
}

// getOrCreate registers the session entry. Tool activation happens later
// under the session's own lock: a slow tool handshake may stall this
// session's first turn but never another session's.
func (o *Orchestrator) getOrCreate(sessionID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.sessions[sessionID]; ok {
		return s
	}

	s := &session{id: sessionID}
	o.sessions[sessionID] = s
	return s
}

// activate connects the session's tools on first use. The caller holds
// s.mu, so concurrent first turns cannot activate twice.
func (o *Orchestrator) activate(ctx context.Context, s *session) {
	if s.tools != nil {
		return
	}

	set := &tools.ToolSet{}
	if o.toolManager != nil {
		set = o.toolManager.Activate(ctx, s.id)
	}

	s.tools = set
	s.history = []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: o.systemPrompt(set.Degraded),
	}}
}

// systemPrompt renders the persona instructions, disclosing any tools that
// failed to activate so the model does not promise unavailable capabilities.
func (o *Orchestrator) systemPrompt(degraded []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s. Always speak in the first person as %s; never refer to %s in the third person.\n\n", o.botName, o.botName, o.botName)
	sb.WriteString("Answer every question about yourself, your work, your projects, or your opinions by first calling the get_local_info tool with the user's question. ")
	sb.WriteString("Base your answer only on what the tool returns. If it returns no documentation, say you don't have information on that topic rather than guessing.\n\n")
	sb.WriteString("When a returned passage cites a github.com source URL, include that link in your answer so the user can read more.\n")
	sb.WriteString("If the tool results note that sources disagree, present the primary answer and mention the conflicting value; never silently pick one.\n\n")
	sb.WriteString("Keep answers concise and conversational. Do not ask follow-up questions.")

	if len(degraded) > 0 {
		fmt.Fprintf(&sb, "\n\nThe following tools failed to start and are unavailable this session: %s. If the user asks for something that needs one of them, say that capability is temporarily unavailable.", strings.Join(degraded, ", "))
	}
	return sb.String()
}

// runTurn appends the user message and loops completions until the model
// stops calling tools or the round budget is spent. History is only
// committed on success so a failed turn can be retried cleanly.
func (o *Orchestrator) runTurn(ctx context.Context, s *session, userText string) (string, error) {
	messages := append([]openai.ChatCompletionMessage{}, s.history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	defs := o.toolDefinitions(s.tools)

	for round := 0; round < o.maxToolRounds; round++ {
		resp, err := o.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.completer.ChatModel(),
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return "", fmt.Errorf("completion round %d: %w", round, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("completion round %d: no choices returned", round)
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			s.history = messages
			return msg.Content, nil
		}

		for _, call := range msg.ToolCalls {
			result, err := o.invokeTool(ctx, s, call)
			if err != nil {
				return "", fmt.Errorf("tool %s: %w", call.Function.Name, err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	return "", fmt.Errorf("tool round budget of %d exhausted", o.maxToolRounds)
}

// invokeTool dispatches one tool call. Retrieval is built in; everything
// else comes from the session's tool set.
func (o *Orchestrator) invokeTool(ctx context.Context, s *session, call openai.ToolCall) (string, error) {
	args := make(map[string]any)
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", fmt.Errorf("parse arguments: %w", err)
		}
	}

	if call.Function.Name == retrievalToolName {
		query, _ := args["query"].(string)
		if query == "" {
			return "", errors.New("get_local_info requires a query")
		}
		return o.retriever.SearchAndFormat(ctx, s.id, query)
	}

	tool := s.tools.ByName(call.Function.Name)
	if tool == nil {
		return "", fmt.Errorf("unknown tool %q", call.Function.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()
	return tool.Invoke(ctx, args)
}

// toolDefinitions renders the retrieval tool plus the session's ready tools
// as completion API tool schemas.
func (o *Orchestrator) toolDefinitions(set *tools.ToolSet) []openai.Tool {
	defs := []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        retrievalToolName,
			Description: "Search the persona's documentation for passages relevant to a question. Always call this before answering questions about the persona.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The user's question, as asked",
					},
				},
				"required": []string{"query"},
			},
		},
	}}

	for _, t := range set.Tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
