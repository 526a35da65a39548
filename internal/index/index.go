// ABOUTME: In-memory similarity index over embedded passages
// ABOUTME: Cosine top-k search with deterministic stable-ID tie-breaking
package index

import (
	"math"
	"sort"
	"sync"

	"github.com/byoung/ai-me/internal/models"
)

// Index is the process-wide searchable collection of embedded passages.
// It is built once per process lifetime and read-only afterwards:
// concurrent searches take the read lock, Reset and build take the write
// lock so a rebuild never races in-flight queries.
type Index struct {
	mu       sync.RWMutex
	passages []models.IndexedPassage
	built    bool
}

// New creates an empty index.
func New() *Index {
	return &Index{}
}

// insert adds passages under the write lock. Only the Builder calls this.
func (ix *Index) insert(passages []models.IndexedPassage) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.passages = append(ix.passages, passages...)
	ix.built = true
}

// Built reports whether a build has completed. An empty corpus still counts
// as built: querying it is a permanent knowledge gap, not an error.
func (ix *Index) Built() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// Reset drops every passage. Used for test isolation; the whole set is
// rebuilt on process restart by design.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.passages = nil
	ix.built = false
}

// Count returns the number of indexed passages.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.passages)
}

// Search returns the top-k passages by cosine similarity to the query
// vector, highest first. Ties are broken by StableID ascending so an
// unchanged index always yields an identical ordering. k values below
// zero are treated as zero; k arrives from external callers unchecked.
func (ix *Index) Search(queryVector []float64, k int) []models.ScoredPassage {
	if k < 0 {
		k = 0
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]models.ScoredPassage, 0, len(ix.passages))
	for _, p := range ix.passages {
		results = append(results, models.ScoredPassage{
			Passage: p,
			Score:   cosineSimilarity(queryVector, p.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.StableID < results[j].Passage.StableID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
