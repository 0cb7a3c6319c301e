package main

import (
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/analysis-cli/internal/config"
	"github.com/sells-group/analysis-cli/internal/cost"
	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/pipeline"
	"github.com/sells-group/analysis-cli/internal/prompt"
	"github.com/sells-group/analysis-cli/internal/render"
	anthropicpkg "github.com/sells-group/analysis-cli/pkg/anthropic"
	"github.com/sells-group/analysis-cli/pkg/openrouter"
	"github.com/sells-group/analysis-cli/pkg/perplexity"
)

// buildPipeline wires the pipeline from configuration: template registry,
// research and formatting clients with per-provider rate limiters, renderer
// and cost calculator.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	registry, err := prompt.NewRegistry(map[model.Kind]string{
		model.KindCompanyProfile:  cfg.Prompts.CompanyProfile,
		model.KindProductSnapshot: cfg.Prompts.ProductSnapshot,
	})
	if err != nil {
		return nil, eris.Wrap(err, "build prompt registry")
	}

	// Empty config strings keep the client defaults instead of blanking them.
	pplxOpts := []perplexity.Option{
		perplexity.WithTimeout(time.Duration(cfg.Perplexity.TimeoutSecs) * time.Second),
		perplexity.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Perplexity.RPS), 1)),
	}
	if cfg.Perplexity.BaseURL != "" {
		pplxOpts = append(pplxOpts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
	}
	if cfg.Perplexity.Model != "" {
		pplxOpts = append(pplxOpts, perplexity.WithModel(cfg.Perplexity.Model))
	}
	researcher := pipeline.NewPerplexityResearcher(perplexity.NewClient(cfg.Perplexity.Key, pplxOpts...))

	var formatter pipeline.Generator
	switch cfg.Formatter.Provider {
	case "anthropic":
		var antOpts []anthropicpkg.Option
		if cfg.Anthropic.Model != "" {
			antOpts = append(antOpts, anthropicpkg.WithModel(cfg.Anthropic.Model))
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key, antOpts...)
		formatter = pipeline.NewAnthropicGenerator(client, cfg.Anthropic.MaxTokens)
	default:
		orOpts := []openrouter.Option{
			openrouter.WithTimeout(time.Duration(cfg.OpenRouter.TimeoutSecs) * time.Second),
			openrouter.WithLimiter(rate.NewLimiter(rate.Limit(cfg.OpenRouter.RPS), 1)),
		}
		if cfg.OpenRouter.BaseURL != "" {
			orOpts = append(orOpts, openrouter.WithBaseURL(cfg.OpenRouter.BaseURL))
		}
		if cfg.OpenRouter.Model != "" {
			orOpts = append(orOpts, openrouter.WithModel(cfg.OpenRouter.Model))
		}
		formatter = pipeline.NewOpenRouterGenerator(openrouter.NewClient(cfg.OpenRouter.Key, orOpts...))
	}

	calc := cost.NewCalculator(cost.Rates{
		PerplexityPer1K: cfg.Pricing.PerplexityPer1K,
		FormatterPer1K:  cfg.Pricing.FormatterPer1K,
		EURPerUSD:       cfg.Pricing.EURPerUSD,
	})

	return pipeline.New(registry, researcher, formatter, render.NewRenderer(), calc), nil
}
