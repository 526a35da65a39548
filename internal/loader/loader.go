// ABOUTME: Loader aggregates local and remote document sources
// ABOUTME: Always returns whatever loaded successfully, logging failures per source
package loader

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/byoung/ai-me/internal/config"
	"github.com/byoung/ai-me/internal/models"
)

// Loader reads local files and remote repository files into raw text
// documents with provenance metadata.
type Loader struct {
	cfg    *config.Config
	github *GitHubClient
}

// New creates a Loader. The GitHub client is always constructed; without a
// token it still serves public repositories.
func New(cfg *config.Config) *Loader {
	return &Loader{
		cfg:    cfg,
		github: NewGitHubClient(cfg.GitHubToken, cfg.MaxRetries, cfg.RetryDelay),
	}
}

// GitHub exposes the underlying client for the repository browser tool.
func (l *Loader) GitHub() *GitHubClient {
	return l.github
}

// Load reads all configured sources. A failing source never fails the
// batch: it is logged and skipped, and Load returns whatever succeeded.
func (l *Loader) Load(ctx context.Context) []models.SourceDocument {
	docs := LoadLocal(l.cfg.DocRoot, l.cfg.DocLoadLocal)

	if len(l.cfg.GitHubRepos) > 0 {
		docs = append(docs, l.loadRemote(ctx)...)
	}

	log.Printf("Loaded %d total documents.", len(docs))
	return docs
}

// loadRemote loads all configured repositories concurrently. Each repo
// failure is contained to that repo.
func (l *Loader) loadRemote(ctx context.Context) []models.SourceDocument {
	log.Printf("Loading GitHub documents from %d repos %v", len(l.cfg.GitHubRepos), l.cfg.GitHubRepos)

	var mu sync.Mutex
	var docs []models.SourceDocument

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, repo := range l.cfg.GitHubRepos {
		g.Go(func() error {
			loaded, err := l.github.LoadRepository(gctx, repo, l.cfg.GitHubRef)
			if err != nil {
				log.Printf("Warning: error loading repo %s: %v - skipping", repo, err)
				return nil // contain the failure
			}
			mu.Lock()
			docs = append(docs, loaded...)
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()

	log.Printf("Loaded %d total GitHub documents.", len(docs))
	return docs
}
