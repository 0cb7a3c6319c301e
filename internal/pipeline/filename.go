package pipeline

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/analysis-cli/internal/model"
)

// maxTitleLen bounds the sanitized title portion of the download filename.
const maxTitleLen = 40

// asciiFold strips combining marks so umlauts and accents survive as their
// base letters ("Müller" → "Muller").
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Filename builds the deterministic download name for a rendered PDF from
// the analysis kind, the user's title and the run timestamp, e.g.
// "Analyse_Firmenanalyse_Acme_Robotics_GmbH_20260829-153000.pdf".
func Filename(kind model.Kind, title string, ts time.Time) string {
	parts := []string{"Analyse", kind.Label()}
	if s := sanitizeTitle(title); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, ts.Format("20060102-150405"))
	return strings.Join(parts, "_") + ".pdf"
}

// sanitizeTitle folds the title to ASCII and keeps only characters that are
// safe in a Content-Disposition filename.
func sanitizeTitle(title string) string {
	folded, _, err := transform.String(asciiFold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	sep := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			sep = false
		case r == ' ' || r == '_':
			// Collapse separator runs; dropped characters between spaces
			// would otherwise leave doubled underscores.
			if !sep && b.Len() > 0 {
				b.WriteByte('_')
				sep = true
			}
		}
	}

	s := strings.Trim(b.String(), "_")
	if len(s) > maxTitleLen {
		s = strings.Trim(s[:maxTitleLen], "_")
	}
	return s
}
