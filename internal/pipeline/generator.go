package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/prompt"
	"github.com/sells-group/analysis-cli/pkg/anthropic"
	"github.com/sells-group/analysis-cli/pkg/openrouter"
)

// Generator is the narrow interface the formatting stage depends on, so the
// provider can be swapped or stubbed without touching pipeline logic.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, model.TokenUsage, error)
}

// OpenRouterGenerator formats via the OpenRouter chat completions API.
type OpenRouterGenerator struct {
	client openrouter.Client
}

// NewOpenRouterGenerator wraps an OpenRouter client.
func NewOpenRouterGenerator(client openrouter.Client) *OpenRouterGenerator {
	return &OpenRouterGenerator{client: client}
}

func (g *OpenRouterGenerator) Generate(ctx context.Context, promptText string) (string, model.TokenUsage, error) {
	resp, err := g.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Messages: []openrouter.Message{
			{Role: "system", Content: prompt.FormatSystem},
			{Role: "user", Content: promptText},
		},
	})
	if err != nil {
		return "", model.TokenUsage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", model.TokenUsage{}, eris.New("openrouter: response contains no choices")
	}

	usage := model.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// AnthropicGenerator formats via the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicGenerator wraps an Anthropic client.
func NewAnthropicGenerator(client anthropic.Client, maxTokens int64) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicGenerator{client: client, maxTokens: maxTokens}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, promptText string) (string, model.TokenUsage, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		MaxTokens: g.maxTokens,
		System:    prompt.FormatSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: promptText}},
	})
	if err != nil {
		return "", model.TokenUsage{}, err
	}

	usage := model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return resp.Text(), usage, nil
}
