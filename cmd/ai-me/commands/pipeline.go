// ABOUTME: Shared pipeline assembly for commands needing the full system
// ABOUTME: Loads documents, builds the index, and wires the orchestrator
package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/byoung/ai-me/internal/agent"
	"github.com/byoung/ai-me/internal/chunker"
	"github.com/byoung/ai-me/internal/config"
	"github.com/byoung/ai-me/internal/index"
	"github.com/byoung/ai-me/internal/llm"
	"github.com/byoung/ai-me/internal/loader"
	"github.com/byoung/ai-me/internal/models"
	"github.com/byoung/ai-me/internal/retrieval"
	"github.com/byoung/ai-me/internal/tools"
)

// pipeline holds the assembled system for one process lifetime.
type pipeline struct {
	cfg          *config.Config
	retriever    *retrieval.Retriever
	orchestrator *agent.Orchestrator
	toolManager  *tools.Manager
	docCount     int
	passageCount int
}

// loadEnv loads a .env file if present. Missing files are fine.
func loadEnv() {
	if err := godotenv.Load(); err != nil && verbose {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}
}

// buildPipeline loads documents, chunks and indexes them, and wires the
// session orchestrator on top. The index is rebuilt from the sources on
// every startup.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize completion client: %w", err)
	}

	ld := loader.New(cfg)
	docs := ld.Load(ctx)
	if !quiet {
		log.Printf("Loaded %d source documents", len(docs))
	}

	ck, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("initialize chunker: %w", err)
	}

	chunksByDoc := make(map[string][]models.Chunk, len(docs))
	for _, doc := range docs {
		chunksByDoc[doc.DocumentID] = ck.Chunk(doc)
	}

	ix := index.New()
	builder := index.NewBuilder(client, ix)
	indexed, err := builder.Build(ctx, docs, chunksByDoc)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if !quiet {
		log.Printf("Indexed %d passages", indexed)
	}

	retriever := retrieval.New(
		client, ix, client,
		retrieval.NewConflictLog(cfg.ConflictLogPath),
		cfg.TopK, cfg.ConflictScoreWindow, cfg.RetrievalTimeout,
	)

	store, err := tools.OpenMemoryStore(cfg.MemoryDBPath)
	if err != nil {
		log.Printf("Warning: session memory unavailable: %v", err)
		store = nil
	}

	var browser tools.RepoBrowser
	if cfg.GitHubToken != "" {
		browser = ld.GitHub()
	}

	toolManager := tools.NewManager(store, browser, cfg.GitHubRef, cfg.ToolTimeout)

	orchestrator := agent.New(
		client, retriever, toolManager,
		cfg.BotFullName, cfg.MaxToolRounds,
		cfg.CompletionTimeout, cfg.ToolTimeout,
	)

	return &pipeline{
		cfg:          cfg,
		retriever:    retriever,
		orchestrator: orchestrator,
		toolManager:  toolManager,
		docCount:     len(docs),
		passageCount: indexed,
	}, nil
}

// close releases the pipeline's shared backends.
func (p *pipeline) close() {
	p.orchestrator.Shutdown()
	if err := p.toolManager.Close(); err != nil {
		log.Printf("Warning: failed to close tool backends: %v", err)
	}
}
