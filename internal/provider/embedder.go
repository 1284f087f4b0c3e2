package provider

import (
	"fmt"

	"github.com/oakline/policyagent/internal/config"
	"github.com/oakline/policyagent/internal/index"
)

// NewEmbedder creates the embedding backend for the policy index.
func NewEmbedder(cfg *config.Config) (index.Embedder, error) {
	e := cfg.Retrieval.Embedding
	switch e.Provider {
	case "", "hash":
		return &index.HashEmbedder{Dimension: e.Dimension}, nil
	case "voyage":
		if e.APIKey == "" {
			return nil, fmt.Errorf("voyage embedding provider requires an api key")
		}
		return index.NewVoyageEmbedder(e.APIKey, e.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
}
