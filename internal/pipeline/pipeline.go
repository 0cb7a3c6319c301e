package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/analysis-cli/internal/cost"
	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/prompt"
	"github.com/sells-group/analysis-cli/internal/render"
)

// Pipeline runs the four analysis stages strictly in order: compose,
// research, format, render. Each stage consumes only the previous stage's
// output; a failure in any stage aborts the run. The pipeline holds no
// per-request state, so a single instance serves concurrent sessions.
type Pipeline struct {
	composer *prompt.Registry
	research Researcher
	format   Generator
	renderer *render.Renderer
	costCalc *cost.Calculator
}

// New creates a Pipeline with all dependencies.
func New(composer *prompt.Registry, research Researcher, format Generator, renderer *render.Renderer, costCalc *cost.Calculator) *Pipeline {
	return &Pipeline{
		composer: composer,
		research: research,
		format:   format,
		renderer: renderer,
		costCalc: costCalc,
	}
}

// Run executes the full pipeline for one analysis request. On failure the
// returned result carries the terminal failed status and the stage results
// up to the point of failure; the error is always a *StageError.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	result := &model.AnalysisResult{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    model.RunStatusIdle,
		StartedAt: time.Now(),
	}

	log := zap.L().With(
		zap.String("run_id", result.ID),
		zap.String("kind", string(req.Kind)),
	)
	log.Info("pipeline: starting analysis")

	runStage := func(stage Stage, status model.RunStatus, fn func() error) error {
		result.Status = status
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()

		sr := model.StageResult{Name: string(stage), Duration: duration}
		if err != nil {
			stageErr := classify(stage, err)
			sr.Status = model.StageStatusFailed
			sr.Error = stageErr.Error()
			result.Stages = append(result.Stages, sr)
			result.Status = model.RunStatusFailed
			log.Error("pipeline: stage failed",
				zap.String("stage", string(stage)),
				zap.String("failure_kind", string(stageErr.Kind)),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return stageErr
		}

		sr.Status = model.StageStatusComplete
		result.Stages = append(result.Stages, sr)
		log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", duration),
		)
		return nil
	}

	// Compose.
	var researchPrompt string
	if err := runStage(StageCompose, model.RunStatusComposing, func() error {
		var err error
		researchPrompt, err = p.composer.Compose(req)
		return err
	}); err != nil {
		return result, err
	}

	// Research.
	var raw *model.RawAnalysis
	if err := runStage(StageResearch, model.RunStatusResearching, func() error {
		var err error
		raw, err = p.research.Research(ctx, researchPrompt, req.Period)
		return err
	}); err != nil {
		return result, err
	}
	result.Citations = raw.Citations

	// Format.
	var doc model.FormattedDocument
	if err := runStage(StageFormat, model.RunStatusFormatting, func() error {
		body := appendCitations(raw.Body, raw.Citations)
		markdown, usage, err := p.format.Generate(ctx, prompt.BuildFormatPrompt(body))
		if err != nil {
			return err
		}
		doc = model.FormattedDocument{Markdown: strings.TrimSpace(markdown), Usage: usage}
		return nil
	}); err != nil {
		return result, err
	}
	result.Markdown = doc.Markdown

	// Render. The HTML fragment and the PDF are two views of the same
	// Markdown and are produced concurrently.
	title := fmt.Sprintf("%s: %s", req.Kind.Label(), req.Description)
	if err := runStage(StageRender, model.RunStatusRendering, func() error {
		var g errgroup.Group
		g.Go(func() error {
			html, err := p.renderer.ToHTML(doc.Markdown)
			if err != nil {
				return err
			}
			result.HTML = html
			return nil
		})
		g.Go(func() error {
			pdfBytes, err := p.renderer.ToPDF(doc.Markdown, title)
			if err != nil {
				return err
			}
			result.PDF.Bytes = pdfBytes
			return nil
		})
		return g.Wait()
	}); err != nil {
		return result, err
	}

	result.PDF.Filename = Filename(req.Kind, req.Description, result.StartedAt)
	result.Usage = raw.Usage.Add(doc.Usage)
	summary := p.costCalc.Summarize(raw.Usage.TotalTokens, doc.Usage.TotalTokens)
	result.CostUSD = summary.USD
	result.CostEUR = summary.EUR
	result.Status = model.RunStatusDelivered

	log.Info("pipeline: analysis delivered",
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Float64("cost_usd", result.CostUSD),
		zap.Int("pdf_bytes", len(result.PDF.Bytes)),
	)
	return result, nil
}

// appendCitations appends the provider's citation URLs to the raw body as a
// Markdown link list, preserving their order.
func appendCitations(body string, citations []string) string {
	if len(citations) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n### Webseiten-Quellen:\n")
	for i, u := range citations {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s](%s)", u, u)
	}
	return b.String()
}
