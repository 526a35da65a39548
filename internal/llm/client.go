// ABOUTME: OpenAI client for embeddings, chat completion, and conflict judgment
// ABOUTME: Wraps sashabaranov/go-openai with bounded retries and timeouts
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/byoung/ai-me/internal/config"
	"github.com/byoung/ai-me/internal/util"
)

const requestTimeout = 30 * time.Second

// Client wraps the OpenAI API for the completion and embedding capabilities.
type Client struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	maxRetries     int
	retryDelay     time.Duration
}

// NewClient creates a client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
	}, nil
}

// ChatModel returns the configured chat model identifier.
func (c *Client) ChatModel() string {
	return c.chatModel
}

// GenerateEmbedding generates an embedding vector for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: c.embeddingModel,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("no embeddings returned")
		}

		embedding32 := resp.Data[0].Embedding
		embedding = make([]float64, len(embedding32))
		for i, v := range embedding32 {
			embedding[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding after %d attempts: %w", c.maxRetries+1, err)
	}
	return embedding, nil
}

// CreateChatCompletion forwards a chat completion request, letting the
// caller control messages, tools, and deadlines.
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.chatModel
	}
	return c.client.CreateChatCompletion(ctx, req)
}

// JudgeContradiction asks the completion capability whether two passages
// state incompatible facts about the same entity or attribute. The
// judgment is opaque: contradiction logic is never computed locally.
func (c *Client) JudgeContradiction(ctx context.Context, passageA, passageB string) (bool, error) {
	systemPrompt := `You compare two documentation passages. Answer YES if they state incompatible facts about the same entity or attribute (for example different values for the same quantity). Answer NO otherwise. Reply with exactly one word: YES or NO.`

	userPrompt := fmt.Sprintf("Passage 1:\n%s\n\nPassage 2:\n%s", passageA, passageB)

	var verdict string
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.0,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		verdict = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("conflict judgment failed after %d attempts: %w", c.maxRetries+1, err)
	}

	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(verdict)), "YES"), nil
}
