package server

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/pipeline"
	"github.com/sells-group/analysis-cli/internal/render"
)

//go:embed index.html
var staticFS embed.FS

// Runner executes one analysis. Satisfied by *pipeline.Pipeline; stubbed in
// tests.
type Runner interface {
	Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// Server exposes the analysis pipeline over HTTP: a single-page form, one
// synchronous analyze endpoint, and a health check.
type Server struct {
	runner Runner
}

// New creates a Server around the given Runner.
func New(runner Runner) *Server {
	return &Server{runner: runner}
}

// Router builds the chi router with CORS and panic recovery, so one failing
// request never takes down other sessions.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Period      string `json:"period,omitempty"`
}

// analyzeResponse carries everything the page needs: the Markdown and its
// HTML rendering for on-screen display, a self-contained print page, and the
// PDF bytes for download.
type analyzeResponse struct {
	ID        string              `json:"id"`
	Status    model.RunStatus     `json:"status"`
	Markdown  string              `json:"markdown"`
	HTML      string              `json:"html"`
	PageHTML  string              `json:"page_html"`
	Citations []string            `json:"citations,omitempty"`
	Filename  string              `json:"filename"`
	PDFBase64 string              `json:"pdf_base64"`
	Usage     model.TokenUsage    `json:"usage"`
	CostUSD   float64             `json:"cost_usd"`
	CostEUR   float64             `json:"cost_eur"`
	Stages    []model.StageResult `json:"stages"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	req := model.AnalysisRequest{
		Description: body.Description,
		Kind:        model.Kind(body.Kind),
		Period:      model.SearchPeriod(body.Period),
	}
	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "description is required"})
		return
	}
	if !req.Kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown analysis kind"})
		return
	}
	if !req.Period.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown search period"})
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status, resp := mapError(err)
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		ID:        result.ID,
		Status:    result.Status,
		Markdown:  result.Markdown,
		HTML:      result.HTML,
		PageHTML:  render.Page(result.HTML),
		Citations: result.Citations,
		Filename:  result.PDF.Filename,
		PDFBase64: base64.StdEncoding.EncodeToString(result.PDF.Bytes),
		Usage:     result.Usage,
		CostUSD:   result.CostUSD,
		CostEUR:   result.CostEUR,
		Stages:    result.Stages,
	})
}

// mapError converts a pipeline failure into an HTTP status and a readable
// message naming the failed stage.
func mapError(err error) (int, errorResponse) {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		status := http.StatusBadGateway
		switch stageErr.Kind {
		case pipeline.FailureTemplateMissing, pipeline.FailureRender:
			status = http.StatusInternalServerError
		case pipeline.FailureRateLimited:
			status = http.StatusServiceUnavailable
		}
		return status, errorResponse{Error: stageErr.Message(), Stage: string(stageErr.Stage)}
	}
	return http.StatusInternalServerError, errorResponse{Error: "analysis failed"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}
