// ABOUTME: Retriever executes similarity queries and formats attributed passages
// ABOUTME: Surfaces co-ranked conflicting passages and logs them for review
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/byoung/ai-me/internal/index"
	"github.com/byoung/ai-me/internal/models"
)

// ErrRetrievalTimeout is returned when a search exceeds its deadline. The
// consuming layer degrades to a knowledge-gap response instead of failing
// the session turn.
var ErrRetrievalTimeout = errors.New("retrieval timed out")

// KnowledgeGapText is the formatted output when retrieval finds nothing.
const KnowledgeGapText = "No documentation found for this query. Say that you don't have documentation on that topic."

// Embedder is the query embedding capability.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// ConflictJudge decides whether two passages state incompatible facts. The
// judgment is delegated to the completion capability; the retriever only
// surfaces co-ranked candidates for it.
type ConflictJudge interface {
	JudgeContradiction(ctx context.Context, passageA, passageB string) (bool, error)
}

// Retriever executes similarity queries against the process-wide index.
type Retriever struct {
	embedder    Embedder
	index       *index.Index
	judge       ConflictJudge // nil disables conflict detection
	conflictLog *ConflictLog  // nil disables conflict logging
	topK        int
	scoreWindow float64
	timeout     time.Duration
}

// New creates a Retriever. judge and conflictLog may be nil, which disables
// conflict detection entirely.
func New(embedder Embedder, ix *index.Index, judge ConflictJudge, conflictLog *ConflictLog, topK int, scoreWindow float64, timeout time.Duration) *Retriever {
	return &Retriever{
		embedder:    embedder,
		index:       ix,
		judge:       judge,
		conflictLog: conflictLog,
		topK:        topK,
		scoreWindow: scoreWindow,
		timeout:     timeout,
	}
}

// Ready reports whether the index build has completed.
func (r *Retriever) Ready() bool {
	return r.index.Built()
}

// Search returns the top-k passages for the query with normalized scores in
// [0, 1], highest first. Identical queries against an unchanged index yield
// identical orderings.
func (r *Retriever) Search(ctx context.Context, query string, k int) (models.RetrievalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalTimeout, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := r.index.Search(vector, k)

	result := make(models.RetrievalResult, len(scored))
	for i, sp := range scored {
		result[i] = models.ScoredPassage{
			Passage: sp.Passage,
			Score:   normalizeScore(sp.Score),
		}
	}
	return result, nil
}

// SearchAndFormat runs a search and renders the passages for the completion
// call, each annotated with its source URL and a relevance indicator. A
// retrieval timeout or an empty result degrades to the knowledge-gap text.
// Detected conflicts are logged and disclosed in the returned text so the
// answer can acknowledge both values instead of asserting one silently.
func (r *Retriever) SearchAndFormat(ctx context.Context, sessionID, query string) (string, error) {
	result, err := r.Search(ctx, query, r.topK)
	if err != nil {
		if errors.Is(err, ErrRetrievalTimeout) {
			log.Printf("Warning: retrieval timed out for session %s: %v", sessionID, err)
			return KnowledgeGapText, nil
		}
		return "", err
	}
	if len(result) == 0 {
		return KnowledgeGapText, nil
	}

	conflicting := r.detectConflicts(ctx, sessionID, query, result)

	var sb strings.Builder
	if len(conflicting) > 0 {
		sb.WriteString("Note: the sources below disagree about this topic. ")
		sb.WriteString("Use the highest-relevance passage as the primary answer and explicitly mention the differing value from the other source(s).\n\n")
	}

	for _, sp := range result {
		marker := ""
		if conflicting[sp.Passage.StableID] {
			marker = " [conflicting source]"
		}
		fmt.Fprintf(&sb, "Source: %s (relevance: %s)%s\n%s\n\n",
			sp.Passage.SourceURL, relevanceWord(sp.Score), marker, sp.Passage.Chunk.Text)
	}
	return sb.String(), nil
}

// detectConflicts asks the judge whether any passage scored within the
// conflict window of the top result contradicts it. Judge failures are
// logged and treated as no conflict; detection never drops a passage.
func (r *Retriever) detectConflicts(ctx context.Context, sessionID, query string, result models.RetrievalResult) map[string]bool {
	if r.judge == nil || len(result) < 2 {
		return nil
	}

	top := result[0]
	conflicting := make(map[string]bool)

	for _, sp := range result[1:] {
		if top.Score-sp.Score > r.scoreWindow {
			break // results are ordered, nothing further is a candidate
		}
		contradicts, err := r.judge.JudgeContradiction(ctx, top.Passage.Chunk.Text, sp.Passage.Chunk.Text)
		if err != nil {
			log.Printf("Warning: conflict judgment failed: %v", err)
			continue
		}
		if contradicts {
			conflicting[sp.Passage.StableID] = true
		}
	}

	if len(conflicting) == 0 {
		return nil
	}
	conflicting[top.Passage.StableID] = true

	if r.conflictLog != nil {
		rec := models.ConflictRecord{
			Query:     query,
			SessionID: sessionID,
			Timestamp: time.Now(),
		}
		for _, sp := range result {
			if conflicting[sp.Passage.StableID] {
				rec.PassageIDs = append(rec.PassageIDs, sp.Passage.StableID)
				rec.Scores = append(rec.Scores, sp.Score)
			}
		}
		if err := r.conflictLog.Append(rec); err != nil {
			log.Printf("Warning: failed to append conflict record: %v", err)
		}
	}
	return conflicting
}

// normalizeScore maps cosine similarity from [-1, 1] to [0, 1].
func normalizeScore(cosine float64) float64 {
	score := (cosine + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// relevanceWord renders a normalized score as a human-readable indicator.
func relevanceWord(score float64) string {
	switch {
	case score >= 0.75:
		return "high"
	case score >= 0.6:
		return "medium"
	default:
		return "low"
	}
}
