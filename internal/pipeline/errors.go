package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/analysis-cli/internal/prompt"
)

// Stage names the pipeline step an error occurred in.
type Stage string

const (
	StageCompose  Stage = "compose"
	StageResearch Stage = "research"
	StageFormat   Stage = "format"
	StageRender   Stage = "render"
)

// FailureKind classifies a stage failure for user-facing messages and HTTP
// status mapping.
type FailureKind string

const (
	FailureTemplateMissing FailureKind = "template_missing"
	FailureAuth            FailureKind = "auth"
	FailureRateLimited     FailureKind = "rate_limited"
	FailureUpstream        FailureKind = "upstream"
	FailureRender          FailureKind = "render"
)

// StageError wraps an underlying error with the stage it occurred in and its
// classified kind. The pipeline aborts on the first StageError; nothing is
// retried.
type StageError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Message returns a readable description identifying the failed stage,
// suitable for showing to the user.
func (e *StageError) Message() string {
	switch e.Kind {
	case FailureTemplateMissing:
		return "Analyse nicht möglich: kein Prompt für diesen Analyse-Typ hinterlegt"
	case FailureAuth:
		return fmt.Sprintf("Analyse fehlgeschlagen (%s): Zugangsdaten ungültig oder fehlend", e.Stage)
	case FailureRateLimited:
		return fmt.Sprintf("Analyse fehlgeschlagen (%s): Anbieter-Limit erreicht, bitte später erneut versuchen", e.Stage)
	case FailureRender:
		return "PDF-Erstellung fehlgeschlagen"
	default:
		return fmt.Sprintf("Analyse fehlgeschlagen (%s): Anbieter nicht erreichbar", e.Stage)
	}
}

// httpStatuser is implemented by the API client error types.
type httpStatuser interface {
	HTTPStatus() int
}

// classify wraps err in a StageError with a kind derived from the error
// chain: template lookup failures, provider HTTP statuses, and timeouts each
// map to their own kind; everything else at a client stage is an upstream
// failure.
func classify(stage Stage, err error) *StageError {
	if stage == StageRender {
		return &StageError{Stage: stage, Kind: FailureRender, Err: err}
	}
	if errors.Is(err, prompt.ErrTemplateMissing) {
		return &StageError{Stage: stage, Kind: FailureTemplateMissing, Err: err}
	}

	var hs httpStatuser
	if errors.As(err, &hs) {
		switch code := hs.HTTPStatus(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &StageError{Stage: stage, Kind: FailureAuth, Err: err}
		case code == http.StatusTooManyRequests:
			return &StageError{Stage: stage, Kind: FailureRateLimited, Err: err}
		default:
			return &StageError{Stage: stage, Kind: FailureUpstream, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &StageError{Stage: stage, Kind: FailureUpstream, Err: err}
	}
	if stage == StageCompose {
		return &StageError{Stage: stage, Kind: FailureTemplateMissing, Err: err}
	}
	return &StageError{Stage: stage, Kind: FailureUpstream, Err: err}
}
