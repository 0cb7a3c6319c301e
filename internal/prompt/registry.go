package prompt

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/analysis-cli/internal/model"
)

// ErrTemplateMissing indicates that no template is registered for the
// requested analysis kind. This is a configuration defect, not a runtime
// provider failure, and is detected before any network call.
var ErrTemplateMissing = eris.New("prompt: no template registered for kind")

// Template is a research prompt with a single substitution slot.
type Template struct {
	Kind model.Kind
	Text string
}

// Registry holds the per-kind research templates. It is built once at startup
// and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	templates map[model.Kind]Template
}

// NewRegistry builds a registry from the built-in templates, with optional
// per-kind overrides from configuration. An override with an empty text keeps
// the built-in. Every template must contain the substitution slot exactly
// once.
func NewRegistry(overrides map[model.Kind]string) (*Registry, error) {
	texts := map[model.Kind]string{
		model.KindCompanyProfile:  companyProfileTemplate,
		model.KindProductSnapshot: productSnapshotTemplate,
	}
	for kind, text := range overrides {
		if text == "" {
			continue
		}
		if !kind.Valid() {
			return nil, eris.Errorf("prompt: override for unknown kind %q", kind)
		}
		texts[kind] = text
	}

	r := &Registry{templates: make(map[model.Kind]Template, len(texts))}
	for kind, text := range texts {
		if n := strings.Count(text, Slot); n != 1 {
			return nil, eris.Errorf("prompt: template for kind %q contains %d substitution slots, want 1", kind, n)
		}
		r.templates[kind] = Template{Kind: kind, Text: text}
	}
	return r, nil
}

// Compose selects the template matching the request's kind and substitutes
// the user's description into the slot. The description appears verbatim
// exactly once in the result.
func (r *Registry) Compose(req model.AnalysisRequest) (string, error) {
	tmpl, ok := r.templates[req.Kind]
	if !ok {
		return "", eris.Wrapf(ErrTemplateMissing, "kind %q", req.Kind)
	}
	return strings.Replace(tmpl.Text, Slot, req.Description, 1), nil
}
