// Package provider constructs the chat model from configuration. Claude
// uses the native component; the remaining providers speak the
// OpenAI-compatible API.
package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/oakline/policyagent/internal/config"
)

// NewChatModel creates a ChatModel based on configuration
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	return newChatModel(ctx, cfg, cfg.Agent.Model)
}

// NewFastChatModel creates the cheaper model used for grading, falling back
// to the primary model name when no fast model is configured.
func NewFastChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	name := cfg.Agent.FastModel
	if name == "" {
		name = cfg.Agent.Model
	}
	return newChatModel(ctx, cfg, name)
}

func newChatModel(ctx context.Context, cfg *config.Config, modelName string) (model.ChatModel, error) {
	p := cfg.Providers
	a := cfg.Agent

	switch {
	case p.Claude.APIKey != "":
		return newClaudeModel(ctx, p.Claude, a, modelName)
	case p.OpenRouter.APIKey != "":
		return newOpenAICompatModel(ctx, p.OpenRouter, a, modelName, "https://openrouter.ai/api/v1")
	case p.OpenAI.APIKey != "":
		return newOpenAICompatModel(ctx, p.OpenAI, a, modelName, "")
	case p.DeepSeek.APIKey != "":
		return newOpenAICompatModel(ctx, p.DeepSeek, a, modelName, "https://api.deepseek.com/v1")
	case p.Ollama.BaseURL != "":
		return newOllamaModel(ctx, p.Ollama, a, modelName)
	default:
		return nil, fmt.Errorf("no provider configured: set api_key for at least one provider")
	}
}

func newClaudeModel(ctx context.Context, p config.ProviderConfig, a config.AgentConfig, modelName string) (model.ChatModel, error) {
	cfg := &claude.Config{
		APIKey:      p.APIKey,
		Model:       modelName,
		MaxTokens:   a.MaxTokens,
		Temperature: toFloat32Ptr(a.Temperature),
	}
	if p.BaseURL != "" {
		cfg.BaseURL = &p.BaseURL
	}
	return claude.NewChatModel(ctx, cfg)
}

func newOpenAICompatModel(ctx context.Context, p config.ProviderConfig, a config.AgentConfig, modelName, defaultBaseURL string) (model.ChatModel, error) {
	cfg := &openai.ChatModelConfig{
		Model:       modelName,
		APIKey:      p.APIKey,
		BaseURL:     defaultBaseURL,
		Temperature: toFloat32Ptr(a.Temperature),
		MaxTokens:   toIntPtr(a.MaxTokens),
	}
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return openai.NewChatModel(ctx, cfg)
}

func newOllamaModel(ctx context.Context, p config.ProviderConfig, a config.AgentConfig, modelName string) (model.ChatModel, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       modelName,
		BaseURL:     baseURL + "/v1",
		Temperature: toFloat32Ptr(a.Temperature),
		MaxTokens:   toIntPtr(a.MaxTokens),
	})
}

func toFloat32Ptr(f float64) *float32 {
	v := float32(f)
	return &v
}

func toIntPtr(i int) *int {
	return &i
}
