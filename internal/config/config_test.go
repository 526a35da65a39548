// ABOUTME: Tests for environment-based configuration loading
// ABOUTME: Covers defaults, overrides, list parsing, and validation failures
package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ChunkSize != 1200 {
		t.Errorf("ChunkSize = %d, want 1200", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Errorf("ChunkOverlap = %d, want 200", cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q, want gpt-4o-mini", cfg.ChatModel)
	}
	if len(cfg.DocLoadLocal) != 1 || cfg.DocLoadLocal[0] != "**/*.md" {
		t.Errorf("DocLoadLocal = %v, want [**/*.md]", cfg.DocLoadLocal)
	}
	if len(cfg.GitHubRepos) != 3 {
		t.Errorf("GitHubRepos = %v, want 3 defaults", cfg.GitHubRepos)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_FULL_NAME", "Ada Lovelace")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("GITHUB_REPOS", "octocat/hello, octocat/world")
	t.Setenv("RETRIEVAL_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BotFullName != "Ada Lovelace" {
		t.Errorf("BotFullName = %q", cfg.BotFullName)
	}
	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 100 {
		t.Errorf("chunk settings = %d/%d, want 800/100", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if len(cfg.GitHubRepos) != 2 || cfg.GitHubRepos[1] != "octocat/world" {
		t.Errorf("GitHubRepos = %v", cfg.GitHubRepos)
	}
	if cfg.RetrievalTimeout != 5*time.Second {
		t.Errorf("RetrievalTimeout = %v, want 5s", cfg.RetrievalTimeout)
	}
}

func TestValidate_OverlapNotSmallerThanSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ChunkSize: tt.size, ChunkOverlap: tt.overlap, TopK: 5, MaxRetries: 3}
			err := cfg.Validate()
			if !errors.Is(err, ErrChunkConfig) {
				t.Errorf("Validate() error = %v, want ErrChunkConfig", err)
			}
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		return &Config{ChunkSize: 1200, ChunkOverlap: 200, TopK: 5, MaxRetries: 3, ConflictScoreWindow: 0.15}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"conflict window above one", func(c *Config) { c.ConflictScoreWindow = 1.5 }},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }},
		{"bad repo format", func(c *Config) { c.GitHubRepos = []string{"not-a-repo"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("RETRIEVAL_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 1200 {
		t.Errorf("ChunkSize = %d, want default 1200", cfg.ChunkSize)
	}
	if cfg.RetrievalTimeout != 15*time.Second {
		t.Errorf("RetrievalTimeout = %v, want default 15s", cfg.RetrievalTimeout)
	}
}
