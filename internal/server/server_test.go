package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/pipeline"
)

type stubRunner struct {
	result  *model.AnalysisResult
	err     error
	calls   int
	lastReq model.AnalysisRequest
}

func (s *stubRunner) Run(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func postAnalyze(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeSuccess(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4 fake")
	runner := &stubRunner{
		result: &model.AnalysisResult{
			ID:       "run-1",
			Status:   model.RunStatusDelivered,
			Markdown: "## Acme",
			HTML:     "<h2>Acme</h2>",
			Citations: []string{
				"https://acme.example",
			},
			PDF:     model.RenderedPDF{Bytes: pdfBytes, Filename: "Analyse_Firmenanalyse_Acme_20260829-120000.pdf"},
			Usage:   model.TokenUsage{PromptTokens: 100, CompletionTokens: 900, TotalTokens: 1000},
			CostUSD: 0.015,
			CostEUR: 0.0138,
			Stages: []model.StageResult{
				{Name: "compose", Status: model.StageStatusComplete},
				{Name: "research", Status: model.StageStatusComplete},
				{Name: "format", Status: model.StageStatusComplete},
				{Name: "render", Status: model.StageStatusComplete},
			},
		},
	}
	handler := New(runner).Router()

	rec := postAnalyze(t, handler, map[string]string{
		"description": "Acme Robotics GmbH",
		"kind":        "company_profile",
		"period":      "month",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		ID        string           `json:"id"`
		Status    string           `json:"status"`
		Markdown  string           `json:"markdown"`
		HTML      string           `json:"html"`
		PageHTML  string           `json:"page_html"`
		Filename  string           `json:"filename"`
		PDFBase64 string           `json:"pdf_base64"`
		Usage     model.TokenUsage `json:"usage"`
		CostUSD   float64          `json:"cost_usd"`
		CostEUR   float64          `json:"cost_eur"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, "delivered", resp.Status)
	assert.Equal(t, "## Acme", resp.Markdown)
	assert.Equal(t, "<h2>Acme</h2>", resp.HTML)

	// The print view is the same fragment wrapped in the A4 page template.
	assert.Contains(t, resp.PageHTML, "<h2>Acme</h2>")
	assert.Contains(t, resp.PageHTML, "size: A4 portrait")
	assert.Equal(t, "Analyse_Firmenanalyse_Acme_20260829-120000.pdf", resp.Filename)
	assert.InDelta(t, 0.015, resp.CostUSD, 1e-9)

	decoded, err := base64.StdEncoding.DecodeString(resp.PDFBase64)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, decoded)

	// The request reached the pipeline with typed fields.
	assert.Equal(t, model.KindCompanyProfile, runner.lastReq.Kind)
	assert.Equal(t, model.PeriodMonth, runner.lastReq.Period)
}

func TestAnalyzeValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]string
		wantErr string
	}{
		{
			name:    "missing_description",
			body:    map[string]string{"kind": "company_profile"},
			wantErr: "description is required",
		},
		{
			name:    "unknown_kind",
			body:    map[string]string{"description": "Acme", "kind": "market_forecast"},
			wantErr: "unknown analysis kind",
		},
		{
			name:    "unknown_period",
			body:    map[string]string{"description": "Acme", "kind": "company_profile", "period": "decade"},
			wantErr: "unknown search period",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			rec := postAnalyze(t, New(runner).Router(), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantErr)
			assert.Equal(t, 0, runner.calls, "the pipeline must not run for invalid input")
		})
	}
}

func TestAnalyzeMalformedBody(t *testing.T) {
	runner := &stubRunner{}
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	New(runner).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStage  string
	}{
		{
			name:       "auth_maps_to_bad_gateway",
			err:        &pipeline.StageError{Stage: pipeline.StageResearch, Kind: pipeline.FailureAuth},
			wantStatus: http.StatusBadGateway,
			wantStage:  "research",
		},
		{
			name:       "rate_limited_maps_to_unavailable",
			err:        &pipeline.StageError{Stage: pipeline.StageFormat, Kind: pipeline.FailureRateLimited},
			wantStatus: http.StatusServiceUnavailable,
			wantStage:  "format",
		},
		{
			name:       "template_missing_is_internal",
			err:        &pipeline.StageError{Stage: pipeline.StageCompose, Kind: pipeline.FailureTemplateMissing},
			wantStatus: http.StatusInternalServerError,
			wantStage:  "compose",
		},
		{
			name:       "render_is_internal",
			err:        &pipeline.StageError{Stage: pipeline.StageRender, Kind: pipeline.FailureRender},
			wantStatus: http.StatusInternalServerError,
			wantStage:  "render",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{err: tt.err}
			rec := postAnalyze(t, New(runner).Router(), map[string]string{
				"description": "Acme",
				"kind":        "company_profile",
			})

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp struct {
				Error string `json:"error"`
				Stage string `json:"stage"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantStage, resp.Stage)
		})
	}
}

func TestIndexServesForm(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&stubRunner{}).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Analyse starten")
	assert.Contains(t, rec.Body.String(), "company_profile")
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&stubRunner{}).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
