package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Index is an in-memory vector index over policy chunks. Chunk order matches
// embedding-matrix row order 1:1, and every stored vector is unit-norm so dot
// products equal cosine similarity. Read-only after Build.
type Index struct {
	embedder  Embedder
	threshold float64
	chunks    []Chunk
	matrix    [][]float64
}

// New creates an empty index with the given embedder and confidence threshold.
func New(embedder Embedder, threshold float64) *Index {
	return &Index{
		embedder:  embedder,
		threshold: threshold,
	}
}

// Threshold returns the confidence gate applied by SearchWithThreshold.
func (ix *Index) Threshold() float64 {
	return ix.threshold
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Build embeds every chunk with the document-side transform, normalizes, and
// stacks the vectors in corpus order.
func (ix *Index) Build(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("cannot build index from empty corpus")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	ix.chunks = make([]Chunk, len(chunks))
	ix.matrix = make([][]float64, len(chunks))
	for i, vector := range vectors {
		Normalize(vector)
		chunk := chunks[i]
		chunk.Embedding = vector
		ix.chunks[i] = chunk
		ix.matrix[i] = vector
	}

	slog.Info("policy index built", "chunks", len(ix.chunks), "threshold", ix.threshold)
	return nil
}

// Search returns the topK most similar chunks by descending score. Ties are
// broken by original corpus index so results are deterministic.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if len(ix.matrix) == 0 {
		return nil, fmt.Errorf("index not built")
	}
	if topK <= 0 {
		topK = len(ix.chunks)
	}

	queryVector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	Normalize(queryVector)

	scores := make([]float64, len(ix.matrix))
	order := make([]int, len(ix.matrix))
	for i, row := range ix.matrix {
		scores[i] = Dot(row, queryVector)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})

	if topK > len(order) {
		topK = len(order)
	}

	results := make([]Result, topK)
	for i := 0; i < topK; i++ {
		idx := order[i]
		results[i] = Result{
			Chunk:     ix.chunks[idx],
			Score:     scores[idx],
			Confident: scores[idx] >= ix.threshold,
		}
	}
	return results, nil
}

// SearchWithThreshold searches and reports whether any result clears the
// confidence gate. When confident is false, callers must refuse to assert
// policy-backed claims instead of guessing.
func (ix *Index) SearchWithThreshold(ctx context.Context, query string, topK int) ([]Result, bool, error) {
	results, err := ix.Search(ctx, query, topK)
	if err != nil {
		return nil, false, err
	}

	confident := false
	for _, r := range results {
		if r.Score >= ix.threshold {
			confident = true
			break
		}
	}
	return results, confident, nil
}

// Service builds the index lazily, at most once per process, and serves
// concurrent reads afterwards. It replaces the ambient singleton the naive
// design would use: construct one Service and inject it.
type Service struct {
	once sync.Once
	idx  *Index
	err  error
	load func(ctx context.Context) (*Index, error)
}

// NewService wires a lazy index over the given corpus path.
func NewService(embedder Embedder, threshold float64, corpusPath string) *Service {
	return &Service{
		load: func(ctx context.Context) (*Index, error) {
			chunks, err := LoadCorpus(corpusPath)
			if err != nil {
				return nil, err
			}
			idx := New(embedder, threshold)
			if err := idx.Build(ctx, chunks); err != nil {
				return nil, err
			}
			return idx, nil
		},
	}
}

// NewServiceFromChunks wires a lazy index over an in-memory corpus.
func NewServiceFromChunks(embedder Embedder, threshold float64, chunks []Chunk) *Service {
	return &Service{
		load: func(ctx context.Context) (*Index, error) {
			idx := New(embedder, threshold)
			if err := idx.Build(ctx, chunks); err != nil {
				return nil, err
			}
			return idx, nil
		},
	}
}

// Index returns the built index, building it on first use.
func (s *Service) Index(ctx context.Context) (*Index, error) {
	s.once.Do(func() {
		s.idx, s.err = s.load(ctx)
	})
	return s.idx, s.err
}

// SearchWithThreshold builds the index if needed and runs a gated search.
func (s *Service) SearchWithThreshold(ctx context.Context, query string, topK int) ([]Result, bool, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, false, err
	}
	return idx.SearchWithThreshold(ctx, query, topK)
}

// Threshold reports the configured confidence gate without forcing a build.
func (s *Service) Threshold(ctx context.Context) (float64, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return 0, err
	}
	return idx.Threshold(), nil
}
