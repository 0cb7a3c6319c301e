package model

import "time"

// Kind selects which analysis report is produced. It is a closed enumeration:
// adding a kind means touching every exhaustive switch over it.
type Kind string

const (
	KindCompanyProfile  Kind = "company_profile"
	KindProductSnapshot Kind = "product_snapshot"
)

// Kinds lists all supported analysis kinds in display order.
func Kinds() []Kind {
	return []Kind{KindCompanyProfile, KindProductSnapshot}
}

// Valid reports whether k is a registered analysis kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCompanyProfile, KindProductSnapshot:
		return true
	}
	return false
}

// Label returns the German display name used in the UI and in the PDF title.
func (k Kind) Label() string {
	switch k {
	case KindCompanyProfile:
		return "Firmenanalyse"
	case KindProductSnapshot:
		return "Absatzprofil"
	}
	return string(k)
}

// SearchPeriod restricts the research call to recent sources.
type SearchPeriod string

const (
	PeriodDay   SearchPeriod = "day"
	PeriodWeek  SearchPeriod = "week"
	PeriodMonth SearchPeriod = "month"
	PeriodYear  SearchPeriod = "year"
	PeriodAll   SearchPeriod = "all"
)

// Valid reports whether p is a known search period. The empty value is
// accepted and treated as PeriodAll.
func (p SearchPeriod) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll, "":
		return true
	}
	return false
}

// AnalysisRequest is a single user submission. It is immutable once created
// and discarded when the pipeline completes.
type AnalysisRequest struct {
	Description string       `json:"description"`
	Kind        Kind         `json:"kind"`
	Period      SearchPeriod `json:"period,omitempty"`
}

// TokenUsage tracks token consumption for one external call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// RawAnalysis is the research stage output: unformatted body text plus the
// provider's citation URLs in the exact order they were reported.
type RawAnalysis struct {
	Body      string     `json:"body"`
	Citations []string   `json:"citations"`
	Usage     TokenUsage `json:"usage"`
}

// FormattedDocument is the formatting stage output: normalized Markdown.
type FormattedDocument struct {
	Markdown string     `json:"markdown"`
	Usage    TokenUsage `json:"usage"`
}

// RenderedPDF is the terminal artifact handed to the user.
type RenderedPDF struct {
	Bytes    []byte `json:"-"`
	Filename string `json:"filename"`
}

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusIdle        RunStatus = "idle"
	RunStatusComposing   RunStatus = "composing"
	RunStatusResearching RunStatus = "researching"
	RunStatusFormatting  RunStatus = "formatting"
	RunStatusRendering   RunStatus = "rendering"
	RunStatusDelivered   RunStatus = "delivered"
	RunStatusFailed      RunStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDelivered || s == RunStatusFailed
}

// StageStatus represents the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult records timing and outcome for a single stage.
type StageResult struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Duration int64       `json:"duration_ms"`
	Error    string      `json:"error,omitempty"`
}

// AnalysisResult is the full outcome of one pipeline run.
type AnalysisResult struct {
	ID        string          `json:"id"`
	Request   AnalysisRequest `json:"request"`
	Status    RunStatus       `json:"status"`
	Markdown  string          `json:"markdown"`
	HTML      string          `json:"html,omitempty"`
	Citations []string        `json:"citations,omitempty"`
	PDF       RenderedPDF     `json:"pdf"`
	Stages    []StageResult   `json:"stages"`
	Usage     TokenUsage      `json:"usage"`
	CostUSD   float64         `json:"cost_usd"`
	CostEUR   float64         `json:"cost_eur"`
	StartedAt time.Time       `json:"started_at"`
}
