package index

import (
	"encoding/json"
	"fmt"
	"os"
)

// Chunk is one policy section with metadata. Immutable once indexed.
type Chunk struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"-"`
}

// Result is a retrieved chunk with its similarity score.
type Result struct {
	Chunk     Chunk   `json:"-"`
	Score     float64 `json:"score"`
	Confident bool    `json:"is_confident"`
}

type corpusFile struct {
	Policies []Chunk `json:"policies"`
}

// LoadCorpus reads the policy corpus file ({"policies": [...]}).
func LoadCorpus(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy corpus: %w", err)
	}

	var corpus corpusFile
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse policy corpus: %w", err)
	}
	if len(corpus.Policies) == 0 {
		return nil, fmt.Errorf("policy corpus %s contains no policies", path)
	}
	return corpus.Policies, nil
}
