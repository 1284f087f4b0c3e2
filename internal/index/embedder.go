package index

import (
	"context"
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// Embedder produces vectors for documents and queries. The two transforms are
// distinct (asymmetric embedding): documents embed as knowledge-base items,
// queries embed as search probes.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
}

const (
	documentSide = "document"
	querySide    = "query"

	// DefaultDimension matches the voyage-3 output width so the hash embedder
	// can stand in without reconfiguring the index.
	DefaultDimension = 1024
)

// HashEmbedder is a deterministic pseudo-embedder for offline use and tests.
// Vectors are seeded from a content hash, so identical text always embeds to
// the identical unit vector within a side.
type HashEmbedder struct {
	Dimension int
}

// NewHashEmbedder returns a hash embedder with the given dimension
// (DefaultDimension when dim <= 0).
func NewHashEmbedder(dim int) HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return HashEmbedder{Dimension: dim}
}

// EmbedDocuments embeds texts with the document-side transform.
func (h HashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(documentSide, text)
	}
	return vectors, nil
}

// EmbedQuery embeds a query with the query-side transform.
func (h HashEmbedder) EmbedQuery(_ context.Context, query string) ([]float64, error) {
	return h.embed(querySide, query), nil
}

func (h HashEmbedder) embed(side, text string) []float64 {
	seed := xxhash.Sum64String(side + "\x00" + text)
	rng := rand.New(rand.NewSource(int64(seed)))

	v := make([]float64, h.Dimension)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	Normalize(v)
	return v
}

// Normalize scales v to unit L2 norm in place. Zero vectors are left unchanged.
func Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}

// Dot returns the dot product of two equal-length vectors. For unit vectors
// this equals cosine similarity.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
