// ABOUTME: IndexedPassage and retrieval result types for the vector index
// ABOUTME: Defines ScoredPassage ordering used by the retriever
package models

// IndexedPassage is a chunk that has been embedded and inserted into the
// index. The whole set is discarded and rebuilt on process restart.
type IndexedPassage struct {
	Chunk     Chunk     `json:"chunk"`
	Vector    []float64 `json:"-"`
	SourceURL string    `json:"source_url"`
	StableID  string    `json:"stable_id"`
}

// ScoredPassage pairs an indexed passage with a normalized relevance score
// in [0, 1].
type ScoredPassage struct {
	Passage IndexedPassage `json:"passage"`
	Score   float64        `json:"score"`
}

// RetrievalResult is an ordered sequence of scored passages, highest score
// first. Ties are broken by StableID ascending so identical queries against
// an unchanged index always return identical orderings.
type RetrievalResult []ScoredPassage
