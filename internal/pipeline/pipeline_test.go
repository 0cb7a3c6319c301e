package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-cli/internal/cost"
	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/prompt"
	"github.com/sells-group/analysis-cli/internal/render"
	"github.com/sells-group/analysis-cli/pkg/perplexity"
)

type stubResearcher struct {
	raw        *model.RawAnalysis
	err        error
	calls      int
	lastPrompt string
	lastPeriod model.SearchPeriod
}

func (s *stubResearcher) Research(_ context.Context, promptText string, period model.SearchPeriod) (*model.RawAnalysis, error) {
	s.calls++
	s.lastPrompt = promptText
	s.lastPeriod = period
	if s.err != nil {
		return nil, s.err
	}
	return s.raw, nil
}

type stubGenerator struct {
	markdown   string
	usage      model.TokenUsage
	err        error
	calls      int
	lastPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, promptText string) (string, model.TokenUsage, error) {
	s.calls++
	s.lastPrompt = promptText
	if s.err != nil {
		return "", model.TokenUsage{}, s.err
	}
	return s.markdown, s.usage, nil
}

func newTestPipeline(t *testing.T, research Researcher, format Generator) *Pipeline {
	t.Helper()
	registry, err := prompt.NewRegistry(nil)
	require.NoError(t, err)
	return New(registry, research, format, render.NewRenderer(), cost.NewCalculator(cost.DefaultRates()))
}

func TestRunDeliversFullResult(t *testing.T) {
	research := &stubResearcher{
		raw: &model.RawAnalysis{
			Body:      "Acme Robotics GmbH baut Industrieroboter.",
			Citations: []string{"https://acme.example/about", "https://handelsregister.example/acme"},
			Usage:     model.TokenUsage{PromptTokens: 200, CompletionTokens: 800, TotalTokens: 1000},
		},
	}
	format := &stubGenerator{
		markdown: "## Acme Robotics GmbH\n\nIndustrieroboter aus München.\n",
		usage:    model.TokenUsage{PromptTokens: 900, CompletionTokens: 100, TotalTokens: 1000},
	}
	p := newTestPipeline(t, research, format)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		Description: "Acme Robotics GmbH",
		Kind:        model.KindCompanyProfile,
		Period:      model.PeriodMonth,
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusDelivered, result.Status)
	assert.NotEmpty(t, result.ID)

	// The composed prompt reached the researcher with the requested period.
	assert.Equal(t, 1, research.calls)
	assert.Contains(t, research.lastPrompt, "Acme Robotics GmbH")
	assert.Equal(t, model.PeriodMonth, research.lastPeriod)

	// The formatter prompt carries the raw body plus the citation appendix.
	assert.Equal(t, 1, format.calls)
	assert.Contains(t, format.lastPrompt, "Acme Robotics GmbH baut Industrieroboter.")
	assert.Contains(t, format.lastPrompt, "### Webseiten-Quellen:")
	first := strings.Index(format.lastPrompt, "https://acme.example/about")
	second := strings.Index(format.lastPrompt, "https://handelsregister.example/acme")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "citation order must be preserved")

	// Both output views exist.
	assert.Equal(t, "## Acme Robotics GmbH\n\nIndustrieroboter aus München.", result.Markdown)
	assert.Contains(t, result.HTML, "<h2")
	assert.NotEmpty(t, result.PDF.Bytes)
	assert.True(t, strings.HasPrefix(result.PDF.Filename, "Analyse_Firmenanalyse_Acme_Robotics_GmbH_"))
	assert.True(t, strings.HasSuffix(result.PDF.Filename, ".pdf"))

	// Usage and cost aggregate both calls.
	assert.Equal(t, 2000, result.Usage.TotalTokens)
	assert.InDelta(t, 1000.0/1000*0.01+1000.0/1000*0.005, result.CostUSD, 1e-9)
	assert.InDelta(t, result.CostUSD*0.92, result.CostEUR, 1e-9)
	assert.Equal(t, research.raw.Citations, result.Citations)

	// All four stages completed in order.
	require.Len(t, result.Stages, 4)
	for i, name := range []string{"compose", "research", "format", "render"} {
		assert.Equal(t, name, result.Stages[i].Name)
		assert.Equal(t, model.StageStatusComplete, result.Stages[i].Status)
	}
}

func TestRunComposeFailureSkipsProviders(t *testing.T) {
	research := &stubResearcher{}
	format := &stubGenerator{}
	p := newTestPipeline(t, research, format)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.Kind("market_forecast"),
	})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCompose, stageErr.Stage)
	assert.Equal(t, FailureTemplateMissing, stageErr.Kind)

	assert.Equal(t, 0, research.calls, "research must not run after a compose failure")
	assert.Equal(t, 0, format.calls)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, model.StageStatusFailed, result.Stages[0].Status)
}

func TestRunResearchAuthFailureShortCircuits(t *testing.T) {
	research := &stubResearcher{err: &perplexity.APIError{StatusCode: 401, Body: "invalid key"}}
	format := &stubGenerator{}
	p := newTestPipeline(t, research, format)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		Description: "Acme Robotics GmbH",
		Kind:        model.KindCompanyProfile,
	})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageResearch, stageErr.Stage)
	assert.Equal(t, FailureAuth, stageErr.Kind)
	assert.Contains(t, stageErr.Message(), "Zugangsdaten")

	assert.Equal(t, 0, format.calls, "formatter must never run after a research failure")
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Empty(t, result.Markdown)
	assert.Empty(t, result.PDF.Bytes)
}

func TestRunFormatRateLimitFailure(t *testing.T) {
	research := &stubResearcher{
		raw: &model.RawAnalysis{Body: "Rohtext.", Usage: model.TokenUsage{TotalTokens: 100}},
	}
	format := &stubGenerator{err: &perplexity.APIError{StatusCode: 429, Body: "slow down"}}
	p := newTestPipeline(t, research, format)

	result, err := p.Run(context.Background(), model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.KindProductSnapshot,
	})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFormat, stageErr.Stage)
	assert.Equal(t, FailureRateLimited, stageErr.Kind)

	// Research completed, format failed; nothing was retried.
	assert.Equal(t, 1, research.calls)
	assert.Equal(t, 1, format.calls)
	require.Len(t, result.Stages, 3)
	assert.Equal(t, model.StageStatusComplete, result.Stages[1].Status)
	assert.Equal(t, model.StageStatusFailed, result.Stages[2].Status)
}

func TestRunWithoutCitationsOmitsAppendix(t *testing.T) {
	research := &stubResearcher{
		raw: &model.RawAnalysis{Body: "Kurzer Befund.", Usage: model.TokenUsage{TotalTokens: 10}},
	}
	format := &stubGenerator{markdown: "Kurzer Befund."}
	p := newTestPipeline(t, research, format)

	_, err := p.Run(context.Background(), model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.KindCompanyProfile,
	})
	require.NoError(t, err)
	assert.NotContains(t, format.lastPrompt, "Webseiten-Quellen")
}

func TestAppendCitations(t *testing.T) {
	out := appendCitations("Text.", []string{"https://a.example", "https://b.example"})
	assert.Equal(t, "Text.\n\n### Webseiten-Quellen:\n- [https://a.example](https://a.example)\n- [https://b.example](https://b.example)", out)

	assert.Equal(t, "Text.", appendCitations("Text.", nil))
}
