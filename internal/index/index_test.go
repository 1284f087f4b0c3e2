package index

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testChunks() []Chunk {
	return []Chunk{
		{ID: "travel-001", Category: "travel", Title: "Air Travel", Content: "Business class is permitted for flights over six hours."},
		{ID: "travel-002", Category: "travel", Title: "Hotels", Content: "Hotel stays are capped at two hundred dollars per night."},
		{ID: "expense-001", Category: "expense", Title: "Meals", Content: "Meal expenses require itemized receipts over twenty five dollars."},
		{ID: "approval-001", Category: "approval", Title: "Thresholds", Content: "Expenses above five hundred dollars require manager approval."},
	}
}

func buildTestIndex(t *testing.T, threshold float64) *Index {
	t.Helper()
	idx := New(&HashEmbedder{Dimension: 128}, threshold)
	if err := idx.Build(context.Background(), testChunks()); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return idx
}

func TestBuild_RejectsEmptyCorpus(t *testing.T) {
	idx := New(&HashEmbedder{Dimension: 128}, 0.75)
	if err := idx.Build(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
}

func TestBuild_StoresUnitVectorsInCorpusOrder(t *testing.T) {
	idx := buildTestIndex(t, 0.75)
	chunks := testChunks()
	if idx.Len() != len(chunks) {
		t.Fatalf("expected %d chunks, got %d", len(chunks), idx.Len())
	}
	for i, row := range idx.matrix {
		if idx.chunks[i].ID != chunks[i].ID {
			t.Fatalf("row %d: expected chunk %q, got %q", i, chunks[i].ID, idx.chunks[i].ID)
		}
		var norm float64
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if math.Abs(norm-1.0) > 1e-9 {
			t.Fatalf("row %d: expected unit norm, got %v", i, norm)
		}
	}
}

func TestSearch_Deterministic(t *testing.T) {
	idx := buildTestIndex(t, 0.75)
	ctx := context.Background()

	first, err := idx.Search(ctx, "hotel nightly rate limit", 4)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	second, err := idx.Search(ctx, "hotel nightly rate limit", 4)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Chunk.ID != second[i].Chunk.ID || first[i].Score != second[i].Score {
			t.Fatalf("result %d differs between identical searches", i)
		}
	}
}

func TestSearch_ScoresDescending(t *testing.T) {
	idx := buildTestIndex(t, 0.75)
	results, err := idx.Search(context.Background(), "meal receipts", 4)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted: score[%d]=%v > score[%d]=%v", i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	idx := buildTestIndex(t, 0.75)
	results, err := idx.Search(context.Background(), "approval", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_TieBreaksByCorpusIndex(t *testing.T) {
	// Duplicate content produces identical embeddings, hence identical
	// scores. The earlier chunk must win.
	chunks := []Chunk{
		{ID: "dup-a", Content: "identical policy text"},
		{ID: "dup-b", Content: "identical policy text"},
	}
	idx := New(&HashEmbedder{Dimension: 128}, 0.75)
	if err := idx.Build(context.Background(), chunks); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	results, err := idx.Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results[0].Score != results[1].Score {
		t.Fatalf("expected tied scores, got %v and %v", results[0].Score, results[1].Score)
	}
	if results[0].Chunk.ID != "dup-a" {
		t.Fatalf("expected dup-a first on tie, got %q", results[0].Chunk.ID)
	}
}

func TestSearchWithThreshold_ConfidenceTracksThreshold(t *testing.T) {
	ctx := context.Background()
	// confident must be true iff some score clears the gate, for any gate.
	for _, threshold := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		idx := buildTestIndex(t, threshold)
		results, confident, err := idx.SearchWithThreshold(ctx, "hotel limits", 3)
		if err != nil {
			t.Fatalf("threshold %v: search failed: %v", threshold, err)
		}
		anyAbove := false
		for _, r := range results {
			if r.Score >= threshold {
				anyAbove = true
			}
			if r.Confident != (r.Score >= threshold) {
				t.Fatalf("threshold %v: result %q confident flag mismatch", threshold, r.Chunk.ID)
			}
		}
		if confident != anyAbove {
			t.Fatalf("threshold %v: expected confident=%v, got %v", threshold, anyAbove, confident)
		}
	}
}

func TestSearch_ErrorsBeforeBuild(t *testing.T) {
	idx := New(&HashEmbedder{Dimension: 128}, 0.75)
	if _, err := idx.Search(context.Background(), "anything", 3); err == nil {
		t.Fatal("expected error searching an unbuilt index")
	}
}

func TestService_BuildsOnceLazily(t *testing.T) {
	builds := 0
	svc := &Service{
		load: func(ctx context.Context) (*Index, error) {
			builds++
			idx := New(&HashEmbedder{Dimension: 128}, 0.75)
			if err := idx.Build(ctx, testChunks()); err != nil {
				return nil, err
			}
			return idx, nil
		},
	}
	if builds != 0 {
		t.Fatalf("expected no build before first use, got %d", builds)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := svc.SearchWithThreshold(ctx, "meals", 3); err != nil {
			t.Fatalf("search %d failed: %v", i, err)
		}
	}
	if builds != 1 {
		t.Fatalf("expected exactly one build, got %d", builds)
	}
}

func TestService_LoadsCorpusFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	corpus := `{"policies":[{"id":"travel-001","category":"travel","title":"Air Travel","content":"Business class for long flights."}]}`
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	svc := NewService(&HashEmbedder{Dimension: 128}, 0.75, path)
	results, _, err := svc.SearchWithThreshold(context.Background(), "business class", 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "travel-001" {
		t.Fatalf("unexpected results: %+v", results)
	}
}
