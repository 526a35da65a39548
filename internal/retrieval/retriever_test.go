// ABOUTME: Tests for the retriever, score normalization, and conflict surfacing
// ABOUTME: Verifies knowledge-gap degradation, determinism, and conflict records
package retrieval

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/byoung/ai-me/internal/index"
	"github.com/byoung/ai-me/internal/models"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	block   bool
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0}, nil
}

type fakeJudge struct {
	contradicts bool
	calls       int
}

func (f *fakeJudge) JudgeContradiction(_ context.Context, _, _ string) (bool, error) {
	f.calls++
	return f.contradicts, nil
}

func buildIndex(t *testing.T, emb index.Embedder, texts ...string) *index.Index {
	t.Helper()
	ix := index.New()
	doc := models.SourceDocument{DocumentID: "d1", Origin: models.Origin{Path: "facts.md", Repository: "byoung/me", Ref: "main"}}
	chunks := make([]models.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = models.Chunk{Text: txt, DocumentID: "d1", SequenceIndex: i}
	}
	b := index.NewBuilder(emb, ix)
	if _, err := b.Build(context.Background(), []models.SourceDocument{doc}, map[string][]models.Chunk{"d1": chunks}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return ix
}

func TestSearch_NormalizedScoresDescending(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"identical": {1, 0},
		"opposite":  {-1, 0},
		"the query": {1, 0},
	}}
	ix := buildIndex(t, emb, "identical", "opposite")
	r := New(emb, ix, nil, nil, 5, 0.15, time.Second)

	result, err := r.Search(context.Background(), "the query", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Search() = %d results, want 2", len(result))
	}
	if result[0].Score != 1.0 {
		t.Errorf("top score = %f, want 1.0", result[0].Score)
	}
	if result[1].Score != 0.0 {
		t.Errorf("bottom score = %f, want 0.0", result[1].Score)
	}
	for _, sp := range result {
		if sp.Score < 0 || sp.Score > 1 {
			t.Errorf("score %f outside [0,1]", sp.Score)
		}
	}
}

func TestSearch_RepeatedCallsIdentical(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := buildIndex(t, emb, "alpha", "beta", "gamma")
	r := New(emb, ix, nil, nil, 5, 0.15, time.Second)

	first, err := r.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Search(context.Background(), "q", 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		for j := range first {
			if again[j].Passage.StableID != first[j].Passage.StableID {
				t.Fatalf("ordering changed between calls at position %d", j)
			}
		}
	}
}

func TestSearchAndFormat_EmptyIndexKnowledgeGap(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := index.New()
	r := New(emb, ix, nil, nil, 5, 0.15, time.Second)

	text, err := r.SearchAndFormat(context.Background(), "session-1", "anything")
	if err != nil {
		t.Fatalf("SearchAndFormat() error = %v", err)
	}
	if text != KnowledgeGapText {
		t.Errorf("SearchAndFormat() = %q, want knowledge gap text", text)
	}
}

func TestSearchAndFormat_TimeoutDegradesToKnowledgeGap(t *testing.T) {
	emb := &fakeEmbedder{block: true}
	ix := buildIndex(t, &fakeEmbedder{}, "alpha")
	r := New(emb, ix, nil, nil, 5, 0.15, 20*time.Millisecond)

	text, err := r.SearchAndFormat(context.Background(), "session-1", "slow query")
	if err != nil {
		t.Fatalf("SearchAndFormat() error = %v, want degraded response", err)
	}
	if text != KnowledgeGapText {
		t.Errorf("SearchAndFormat() = %q, want knowledge gap text", text)
	}
}

func TestSearchAndFormat_IncludesSourceAttribution(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := buildIndex(t, emb, "I worked at Initech for five years.")
	r := New(emb, ix, nil, nil, 5, 0.15, time.Second)

	text, err := r.SearchAndFormat(context.Background(), "session-1", "where did you work")
	if err != nil {
		t.Fatalf("SearchAndFormat() error = %v", err)
	}
	if !strings.Contains(text, "Source: https://github.com/byoung/me/blob/main/facts.md") {
		t.Errorf("formatted output missing source URL:\n%s", text)
	}
	if !strings.Contains(text, "relevance: high") {
		t.Errorf("formatted output missing relevance indicator:\n%s", text)
	}
	if !strings.Contains(text, "Initech") {
		t.Errorf("formatted output missing passage text:\n%s", text)
	}
}

func TestSearchAndFormat_ConflictLoggedAndDisclosed(t *testing.T) {
	emb := &fakeEmbedder{}
	// Two contradictory numeric facts about the same entity, equal scores
	ix := buildIndex(t, emb,
		"The project served 10,000 users.",
		"The project served 50,000 users.")

	judge := &fakeJudge{contradicts: true}
	logPath := filepath.Join(t.TempDir(), "conflicts.jsonl")
	r := New(emb, ix, judge, NewConflictLog(logPath), 5, 0.15, time.Second)

	text, err := r.SearchAndFormat(context.Background(), "session-42", "how many users")
	if err != nil {
		t.Fatalf("SearchAndFormat() error = %v", err)
	}

	// Both values stay in the output; neither is silently dropped
	if !strings.Contains(text, "10,000") || !strings.Contains(text, "50,000") {
		t.Errorf("conflicting passages missing from output:\n%s", text)
	}
	if !strings.Contains(text, "sources below disagree") {
		t.Errorf("conflict disclosure missing:\n%s", text)
	}
	if judge.calls == 0 {
		t.Error("conflict judge was never consulted")
	}

	// A ConflictRecord was appended as one JSON line
	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("conflict log not written: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("conflict log is empty")
	}
	var rec models.ConflictRecord
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("conflict record is not valid JSON: %v", err)
	}
	if rec.Query != "how many users" || rec.SessionID != "session-42" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.PassageIDs) != 2 || len(rec.Scores) != 2 {
		t.Errorf("record should name both passages: %+v", rec)
	}
}

func TestSearchAndFormat_NoConflictOutsideScoreWindow(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"near":  {1, 0},
		"far":   {0, 1},
		"query": {1, 0},
	}}
	ix := buildIndex(t, emb, "near", "far")

	judge := &fakeJudge{contradicts: true}
	r := New(emb, ix, judge, nil, 5, 0.15, time.Second)

	if _, err := r.SearchAndFormat(context.Background(), "s", "query"); err != nil {
		t.Fatalf("SearchAndFormat() error = %v", err)
	}
	if judge.calls != 0 {
		t.Errorf("judge consulted %d times for passages outside the window", judge.calls)
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		cosine float64
		want   float64
	}{
		{1, 1},
		{0, 0.5},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := normalizeScore(tt.cosine); got != tt.want {
			t.Errorf("normalizeScore(%f) = %f, want %f", tt.cosine, got, tt.want)
		}
	}
}

func TestRelevanceWord(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, "high"},
		{0.75, "high"},
		{0.65, "medium"},
		{0.3, "low"},
	}
	for _, tt := range tests {
		if got := relevanceWord(tt.score); got != tt.want {
			t.Errorf("relevanceWord(%f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
