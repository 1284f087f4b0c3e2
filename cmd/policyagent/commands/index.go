package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakline/policyagent/internal/config"
	"github.com/oakline/policyagent/internal/index"
	"github.com/oakline/policyagent/internal/provider"
)

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the policy retrieval index",
	}

	cmd.AddCommand(
		newIndexSearchCmd(),
		newIndexStatsCmd(),
	)

	return cmd
}

func newIndexSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the policy index directly",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIndexSearch,
	}

	cmd.Flags().Int("top", 0, "Number of results (default from config)")

	return cmd
}

func newIndexStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size and configuration",
		RunE:  runIndexStats,
	}
}

func loadIndexService(cfg *config.Config) (*index.Service, error) {
	embedder, err := provider.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return index.NewService(embedder, cfg.Retrieval.ConfidenceThreshold, cfg.PoliciesPath()), nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	topK, _ := cmd.Flags().GetInt("top")
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	service, err := loadIndexService(cfg)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, confident, err := service.SearchWithThreshold(ctx, query, topK)
	if err != nil {
		return err
	}

	fmt.Printf("Query: %q (threshold %.2f)\n", query, cfg.Retrieval.ConfidenceThreshold)
	if !confident {
		fmt.Println(escalationStyle.Render("⚠ No result clears the confidence threshold."))
	}
	fmt.Println()

	for i, r := range results {
		marker := " "
		if r.Confident {
			marker = "*"
		}
		fmt.Printf("%s %d. [%.3f] %s - %s (%s)\n", marker, i+1, r.Score, r.Chunk.ID, r.Chunk.Title, r.Chunk.Category)
		fmt.Printf("      %s\n", snippet(r.Chunk.Content, 140))
	}

	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	service, err := loadIndexService(cfg)
	if err != nil {
		return err
	}
	idx, err := service.Index(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Corpus:    %s\n", cfg.PoliciesPath())
	fmt.Printf("Chunks:    %d\n", idx.Len())
	fmt.Printf("Threshold: %.2f\n", idx.Threshold())
	fmt.Printf("Embedding: %s (dim %d)\n", cfg.Retrieval.Embedding.Provider, cfg.Retrieval.Embedding.Dimension)

	return nil
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
