package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/oakline/policyagent/internal/index"
)

// PolicySearchInput carries the arguments for policy_search_manual.
type PolicySearchInput struct {
	Query          string `json:"query" validate:"required,min=3,max=500"`
	MaxResults     int    `json:"max_results,omitempty" validate:"omitempty,gte=1,lte=10"`
	ResponseFormat string `json:"response_format,omitempty" validate:"omitempty,oneof=json markdown"`
}

// SearchResult is one scored policy section in the tool's JSON output.
type SearchResult struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	IsConfident bool    `json:"is_confident"`
}

// SearchOutput is the JSON response of policy_search_manual. The agent reads
// the top score back as its retrieval confidence signal.
type SearchOutput struct {
	Query               string         `json:"query"`
	IsConfident         bool           `json:"is_confident"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	Results             []SearchResult `json:"results"`
}

type policySearchTool struct {
	service  *index.Service
	validate *validator.Validate
}

// NewPolicySearchTool builds the semantic policy search tool over a lazily
// built index.
func NewPolicySearchTool(service *index.Service) Tool {
	return &policySearchTool{service: service, validate: newValidator()}
}

func (t *policySearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NamePolicySearch,
		Desc: "Search the corporate policy manual for relevant sections. Returns confidence scores; when no result is confident, say you don't have enough information instead of guessing.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Natural language query about company policy (e.g., 'first class flight rules')",
				Required: true,
			},
			"max_results": {
				Type: schema.Integer,
				Desc: "Maximum number of policy sections to return (1-10, default 3)",
			},
			"response_format": {
				Type: schema.String,
				Desc: "Output format: 'json' for structured data, 'markdown' for human-readable",
				Enum: []string{"json", "markdown"},
			},
		}),
	}, nil
}

func (t *policySearchTool) InvokableRun(ctx context.Context, args string, opts ...any) (string, error) {
	var input PolicySearchInput
	if err := decodeStrict(args, &input); err != nil {
		return errorPayload(err.Error(), nil), nil
	}
	if err := t.validate.Struct(&input); err != nil {
		return errorPayload(validationMessage(err), nil), nil
	}
	if input.MaxResults == 0 {
		input.MaxResults = 3
	}

	results, confident, err := t.service.SearchWithThreshold(ctx, input.Query, input.MaxResults)
	if err != nil {
		return "", fmt.Errorf("policy search: %w", err)
	}
	threshold, err := t.service.Threshold(ctx)
	if err != nil {
		return "", err
	}

	out := SearchOutput{
		Query:               input.Query,
		IsConfident:         confident,
		ConfidenceThreshold: threshold,
		Results:             make([]SearchResult, len(results)),
	}
	for i, r := range results {
		out.Results[i] = SearchResult{
			ID:          r.Chunk.ID,
			Category:    r.Chunk.Category,
			Title:       r.Chunk.Title,
			Content:     r.Chunk.Content,
			Score:       r.Score,
			IsConfident: r.Confident,
		}
	}

	if input.ResponseFormat == "markdown" {
		return renderSearchMarkdown(out), nil
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func renderSearchMarkdown(out SearchOutput) string {
	var b strings.Builder
	b.WriteString("## Policy Search Results\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n", out.Query)
	confident := "No"
	if out.IsConfident {
		confident = "Yes"
	}
	fmt.Fprintf(&b, "**Confident Match:** %s\n\n", confident)
	if !out.IsConfident {
		b.WriteString("Low confidence warning: no results met the confidence threshold. The following results may not be relevant to your query.\n\n")
	}
	for i, r := range out.Results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "### %s\n", r.Title)
		fmt.Fprintf(&b, "**Category:** %s | **Confidence:** %.2f%% | **ID:** %s\n\n", r.Category, r.Score*100, r.ID)
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}
