package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/pkg/perplexity"
)

// Researcher issues the web-grounded research call.
type Researcher interface {
	Research(ctx context.Context, prompt string, period model.SearchPeriod) (*model.RawAnalysis, error)
}

// PerplexityResearcher adapts the Perplexity client to the Researcher
// interface.
type PerplexityResearcher struct {
	client perplexity.Client
}

// NewPerplexityResearcher wraps a Perplexity client.
func NewPerplexityResearcher(client perplexity.Client) *PerplexityResearcher {
	return &PerplexityResearcher{client: client}
}

// Research sends the composed prompt with a recent-scope web search and
// returns the raw analysis. Citation order is preserved exactly as the
// provider reported it.
func (r *PerplexityResearcher) Research(ctx context.Context, prompt string, period model.SearchPeriod) (*model.RawAnalysis, error) {
	if period == "" {
		period = model.PeriodAll
	}

	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:     []perplexity.Message{{Role: "user", Content: prompt}},
		SearchScope:  "recent",
		SearchPeriod: string(period),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("perplexity: response contains no choices")
	}

	return &model.RawAnalysis{
		Body:      scrub(strings.TrimSpace(resp.Choices[0].Message.Content)),
		Citations: resp.Citations,
		Usage: model.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// scrub removes stray terminal escape characters from provider text.
func scrub(s string) string {
	return strings.ReplaceAll(s, "\x1b", "")
}
