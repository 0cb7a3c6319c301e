package prompt

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-cli/internal/model"
)

func TestComposeEmbedsDescriptionOnce(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	description := "Acme Robotics GmbH"
	for _, kind := range model.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			out, err := registry.Compose(model.AnalysisRequest{
				Description: description,
				Kind:        kind,
			})
			require.NoError(t, err)
			assert.Equal(t, 1, strings.Count(out, description),
				"description must appear verbatim exactly once")
			assert.NotContains(t, out, Slot, "slot must be fully substituted")
		})
	}
}

func TestComposeUnknownKind(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = registry.Compose(model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.Kind("market_forecast"),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrTemplateMissing))
}

func TestNewRegistryOverride(t *testing.T) {
	registry, err := NewRegistry(map[model.Kind]string{
		model.KindCompanyProfile: "Kurzprofil zu {{input}} erstellen.",
	})
	require.NoError(t, err)

	out, err := registry.Compose(model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.KindCompanyProfile,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kurzprofil zu Acme erstellen.", out)

	// The other kind keeps its built-in template.
	out, err = registry.Compose(model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.KindProductSnapshot,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Absatzprofil")
}

func TestNewRegistryEmptyOverrideKeepsBuiltin(t *testing.T) {
	registry, err := NewRegistry(map[model.Kind]string{
		model.KindCompanyProfile: "",
	})
	require.NoError(t, err)

	out, err := registry.Compose(model.AnalysisRequest{
		Description: "Acme",
		Kind:        model.KindCompanyProfile,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Firmenanalyse")
}

func TestNewRegistrySlotValidation(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"no_slot", "Analyse ohne Platzhalter."},
		{"two_slots", "Analyse zu {{input}} und nochmal {{input}}."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(map[model.Kind]string{
				model.KindCompanyProfile: tt.template,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "substitution slot")
		})
	}
}

func TestNewRegistryUnknownOverrideKind(t *testing.T) {
	_, err := NewRegistry(map[model.Kind]string{
		model.Kind("bogus"): "Text {{input}}",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestBuildFormatPrompt(t *testing.T) {
	out := BuildFormatPrompt("Roher Analysetext.")
	assert.True(t, strings.HasSuffix(out, "---\nRoher Analysetext."))
	assert.Contains(t, out, "Markdown-Tabellen")
}
