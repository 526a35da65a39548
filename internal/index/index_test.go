// ABOUTME: Tests for the in-memory similarity index and build pipeline
// ABOUTME: Covers determinism, tie-breaking, degraded builds, and link rewriting
package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/byoung/ai-me/internal/models"
)

// fakeEmbedder returns canned vectors per text and can fail selectively.
type fakeEmbedder struct {
	vectors map[string][]float64
	failOn  string
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func buildTestIndex(t *testing.T, emb Embedder, docs []models.SourceDocument, chunks map[string][]models.Chunk) *Index {
	t.Helper()
	ix := New()
	b := NewBuilder(emb, ix)
	if _, err := b.Build(context.Background(), docs, chunks); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return ix
}

func simpleDoc(id string) models.SourceDocument {
	return models.SourceDocument{DocumentID: id, Origin: models.Origin{Path: id + ".md"}}
}

func TestSearch_OrdersByScore(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"close":   {1, 0, 0},
		"partial": {1, 1, 0},
		"far":     {0, 0, 1},
	}}

	docs := []models.SourceDocument{simpleDoc("d1")}
	chunks := map[string][]models.Chunk{
		"d1": {
			{Text: "far", DocumentID: "d1", SequenceIndex: 0},
			{Text: "close", DocumentID: "d1", SequenceIndex: 1},
			{Text: "partial", DocumentID: "d1", SequenceIndex: 2},
		},
	}
	ix := buildTestIndex(t, emb, docs, chunks)

	results := ix.Search([]float64{1, 0, 0}, 3)
	if len(results) != 3 {
		t.Fatalf("Search() = %d results, want 3", len(results))
	}
	if results[0].Passage.Chunk.Text != "close" {
		t.Errorf("top result = %q, want close", results[0].Passage.Chunk.Text)
	}
	if results[2].Passage.Chunk.Text != "far" {
		t.Errorf("last result = %q, want far", results[2].Passage.Chunk.Text)
	}
}

func TestSearch_DeterministicAcrossRepeatedCalls(t *testing.T) {
	// All chunks embed to the same vector, so ordering depends entirely on
	// the stable-ID tie-break.
	emb := &fakeEmbedder{}
	docs := []models.SourceDocument{simpleDoc("d1"), simpleDoc("d2")}
	chunks := map[string][]models.Chunk{
		"d1": {
			{Text: "alpha", DocumentID: "d1", SequenceIndex: 0},
			{Text: "beta", DocumentID: "d1", SequenceIndex: 1},
		},
		"d2": {
			{Text: "gamma", DocumentID: "d2", SequenceIndex: 0},
		},
	}
	ix := buildTestIndex(t, emb, docs, chunks)

	first := ix.Search([]float64{1, 0, 0}, 3)
	for i := 0; i < 10; i++ {
		again := ix.Search([]float64{1, 0, 0}, 3)
		for j := range first {
			if again[j].Passage.StableID != first[j].Passage.StableID {
				t.Fatalf("call %d: result %d = %s, want %s",
					i, j, again[j].Passage.StableID, first[j].Passage.StableID)
			}
		}
	}

	// Tied results must be ordered by stable ID ascending
	for j := 1; j < len(first); j++ {
		if first[j-1].Score == first[j].Score && first[j-1].Passage.StableID > first[j].Passage.StableID {
			t.Errorf("tie not broken by stable ID: %s before %s",
				first[j-1].Passage.StableID, first[j].Passage.StableID)
		}
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	emb := &fakeEmbedder{}
	docs := []models.SourceDocument{simpleDoc("d1")}
	chunks := map[string][]models.Chunk{
		"d1": {
			{Text: "a", DocumentID: "d1", SequenceIndex: 0},
			{Text: "b", DocumentID: "d1", SequenceIndex: 1},
		},
	}
	ix := buildTestIndex(t, emb, docs, chunks)

	// Negative k comes straight from external request payloads and must
	// not panic
	if results := ix.Search([]float64{1, 0, 0}, -1); len(results) != 0 {
		t.Errorf("Search(k=-1) = %d results, want 0", len(results))
	}
	if results := ix.Search([]float64{1, 0, 0}, 0); len(results) != 0 {
		t.Errorf("Search(k=0) = %d results, want 0", len(results))
	}
}

func TestBuild_SkipsFailedEmbeddings(t *testing.T) {
	emb := &fakeEmbedder{failOn: "poison"}
	docs := []models.SourceDocument{simpleDoc("d1")}
	chunks := map[string][]models.Chunk{
		"d1": {
			{Text: "fine", DocumentID: "d1", SequenceIndex: 0},
			{Text: "poison pill", DocumentID: "d1", SequenceIndex: 1},
			{Text: "also fine", DocumentID: "d1", SequenceIndex: 2},
		},
	}
	ix := buildTestIndex(t, emb, docs, chunks)

	if ix.Count() != 2 {
		t.Errorf("Count() = %d, want 2 (degraded build keeps the rest)", ix.Count())
	}
}

func TestReset_EmptiesIndex(t *testing.T) {
	emb := &fakeEmbedder{}
	docs := []models.SourceDocument{simpleDoc("d1")}
	chunks := map[string][]models.Chunk{
		"d1": {{Text: "a", DocumentID: "d1", SequenceIndex: 0}},
	}
	ix := buildTestIndex(t, emb, docs, chunks)

	ix.Reset()
	if ix.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", ix.Count())
	}
	if results := ix.Search([]float64{1, 0, 0}, 5); len(results) != 0 {
		t.Errorf("Search() after Reset = %d results, want 0", len(results))
	}
}

func TestStableID_DeterministicAcrossBuilds(t *testing.T) {
	ch := models.Chunk{DocumentID: "byoung/me:README.md", SequenceIndex: 3}
	if stableID(ch) != stableID(ch) {
		t.Error("stableID should be deterministic for the same chunk")
	}
	other := models.Chunk{DocumentID: "byoung/me:README.md", SequenceIndex: 4}
	if stableID(ch) == stableID(other) {
		t.Error("stableID should differ for different sequence indexes")
	}
}

func TestSourceURL(t *testing.T) {
	remote := models.Origin{Path: "website/about.md", Repository: "byoung/me", Ref: "main"}
	if got := SourceURL(remote); got != "https://github.com/byoung/me/blob/main/website/about.md" {
		t.Errorf("SourceURL(remote) = %q", got)
	}

	local := models.Origin{Path: "docs/resume.md"}
	if got := SourceURL(local); got != "docs/resume.md" {
		t.Errorf("SourceURL(local) = %q", got)
	}
}

func TestRewriteLinks(t *testing.T) {
	origin := models.Origin{Path: "README.md", Repository: "byoung/me", Ref: "main"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root-relative after space",
			in:   "see /website/ for details",
			want: "see https://github.com/byoung/me/tree/main/website/ for details",
		},
		{
			name: "root-relative at start",
			in:   "/docs/ has everything",
			want: "https://github.com/byoung/me/tree/main/docs/ has everything",
		},
		{
			name: "absolute URL untouched",
			in:   "see https://example.com/website/ here",
			want: "see https://example.com/website/ here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteLinks(tt.in, origin); got != tt.want {
				t.Errorf("RewriteLinks() = %q, want %q", got, tt.want)
			}
		})
	}

	local := models.Origin{Path: "a.md"}
	in := "see /website/ here"
	if got := RewriteLinks(in, local); got != in {
		t.Errorf("RewriteLinks(local) = %q, want unchanged", got)
	}
}
