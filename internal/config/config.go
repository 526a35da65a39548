// ABOUTME: Centralized configuration for the ai-me persona agent
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// ErrChunkConfig is returned when the chunking parameters are invalid.
// It is raised at construction time, never during chunking.
var ErrChunkConfig = errors.New("chunk overlap must be smaller than chunk size")

// Config holds all configuration for the ai-me system. It is constructed
// once at startup and never mutated afterwards.
type Config struct {
	// Persona settings
	BotFullName string

	// OpenAI settings
	OpenAIKey      string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration

	// Document loading
	DocRoot      string
	DocLoadLocal []string // glob patterns, e.g. **/*.md
	GitHubRepos  []string // owner/name
	GitHubRef    string
	GitHubToken  string // optional, gates the repository browser tool

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK                int
	ConflictScoreWindow float64
	RetrievalTimeout    time.Duration

	// Session settings
	CompletionTimeout time.Duration
	ToolTimeout       time.Duration
	MaxToolRounds     int

	// Data locations
	ConflictLogPath string
	MemoryDBPath    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := filepath.Join(xdg.DataHome, "ai-me")

	cfg := &Config{
		BotFullName:         getEnv("BOT_FULL_NAME", "Ben Young"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		ChatModel:           getEnv("AIME_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:      getEnv("AIME_EMBEDDING_MODEL", "text-embedding-3-small"),
		MaxRetries:          getEnvInt("AIME_MAX_RETRIES", 3),
		RetryDelay:          getEnvDuration("AIME_RETRY_DELAY", 2*time.Second),
		DocRoot:             getEnv("DOC_ROOT", "docs"),
		DocLoadLocal:        getEnvList("DOC_LOAD_LOCAL", []string{"**/*.md"}),
		GitHubRepos:         getEnvList("GITHUB_REPOS", []string{"Neosofia/corporate", "byoung/me", "byoung/ai-me"}),
		GitHubRef:           getEnv("GITHUB_REF", "main"),
		GitHubToken:         os.Getenv("GITHUB_PERSONAL_ACCESS_TOKEN"),
		ChunkSize:           getEnvInt("CHUNK_SIZE", 1200),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		TopK:                getEnvInt("RETRIEVAL_TOP_K", 5),
		ConflictScoreWindow: getEnvFloat("CONFLICT_SCORE_WINDOW", 0.15),
		RetrievalTimeout:    getEnvDuration("RETRIEVAL_TIMEOUT", 15*time.Second),
		CompletionTimeout:   getEnvDuration("COMPLETION_TIMEOUT", 60*time.Second),
		ToolTimeout:         getEnvDuration("TOOL_TIMEOUT", 30*time.Second),
		MaxToolRounds:       getEnvInt("MAX_TOOL_ROUNDS", 5),
		ConflictLogPath:     getEnv("CONFLICT_LOG_PATH", filepath.Join(dataDir, "conflicts.jsonl")),
		MemoryDBPath:        getEnv("MEMORY_DB_PATH", filepath.Join(dataDir, "session_memory.db")),
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration invariants. Chunk parameter violations are
// configuration errors surfaced here, not at chunk time.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d, size %d", ErrChunkConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.ConflictScoreWindow < 0 || c.ConflictScoreWindow > 1 {
		return fmt.Errorf("CONFLICT_SCORE_WINDOW must be 0-1, got %f", c.ConflictScoreWindow)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("AIME_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	for _, repo := range c.GitHubRepos {
		if strings.Count(repo, "/") != 1 {
			return fmt.Errorf("GITHUB_REPOS entries must be owner/name, got %q", repo)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
