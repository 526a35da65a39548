// ABOUTME: Builder embeds chunks and inserts them into the index
// ABOUTME: Per-chunk embedding failures degrade the index instead of aborting the build
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/byoung/ai-me/internal/models"
)

// Embedder is the embedding capability contract.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Builder turns chunks into indexed passages.
type Builder struct {
	embedder Embedder
	index    *Index
}

// NewBuilder creates a Builder targeting the given index.
func NewBuilder(embedder Embedder, ix *Index) *Builder {
	return &Builder{embedder: embedder, index: ix}
}

// Build embeds every chunk of every document and inserts the resulting
// passages. An embedding failure for an individual chunk is logged and the
// chunk skipped: a degraded index, not an aborted build. Returns the number
// of passages indexed.
func (b *Builder) Build(ctx context.Context, docs []models.SourceDocument, chunksByDoc map[string][]models.Chunk) (int, error) {
	originByDoc := make(map[string]models.Origin, len(docs))
	for _, d := range docs {
		originByDoc[d.DocumentID] = d.Origin
	}

	var passages []models.IndexedPassage
	for _, d := range docs {
		for _, ch := range chunksByDoc[d.DocumentID] {
			origin, ok := originByDoc[ch.DocumentID]
			if !ok {
				log.Printf("Warning: chunk %s#%d has unknown parent document - skipping", ch.DocumentID, ch.SequenceIndex)
				continue
			}

			text := RewriteLinks(ch.Text, origin)
			ch.Text = text

			vector, err := b.embedder.GenerateEmbedding(ctx, text)
			if err != nil {
				log.Printf("Warning: embedding failed for %s#%d: %v - skipping chunk", ch.DocumentID, ch.SequenceIndex, err)
				continue
			}

			passages = append(passages, models.IndexedPassage{
				Chunk:     ch,
				Vector:    vector,
				SourceURL: SourceURL(origin),
				StableID:  stableID(ch),
			})
		}
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("index build cancelled: %w", err)
		}
	}

	b.index.insert(passages)
	log.Printf("Index built with %d passages", len(passages))
	return len(passages), nil
}

// stableID derives a deterministic passage identifier from the chunk's
// parent document and position, so rebuilds of the same corpus produce the
// same IDs and tie-breaking stays reproducible.
func stableID(ch models.Chunk) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s#%d", ch.DocumentID, ch.SequenceIndex))
	return hex.EncodeToString(sum[:8])
}
