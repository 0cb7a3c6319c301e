package prompt

// Slot is the single substitution marker each research template must contain
// exactly once.
const Slot = "{{input}}"

// companyProfileTemplate is the built-in research prompt for a full company
// analysis. The user's company name replaces the slot verbatim.
const companyProfileTemplate = `Du bist ein B2B-Analyst. Erstelle eine fundierte, aktuelle Firmenanalyse zum Unternehmen "{{input}}".

Recherchiere im Web und decke mindestens ab:
- Unternehmensprofil: Gründung, Standorte, Mitarbeiterzahl, Eigentümerstruktur
- Produkte und Dienstleistungen mit Zielmärkten
- Marktposition und wichtigste Wettbewerber
- Aktuelle Entwicklungen: Nachrichten, Investitionen, Personalien der letzten Monate
- Finanzkennzahlen, soweit öffentlich verfügbar
- Chancen und Risiken für einen B2B-Vertriebsansatz

Nenne zu jeder wesentlichen Aussage die Quelle. Antworte auf Deutsch.`

// productSnapshotTemplate is the built-in research prompt for a sales-oriented
// product/market snapshot. The user's product description replaces the slot.
const productSnapshotTemplate = `Du bist ein B2B-Vertriebsanalyst. Erstelle ein Absatzprofil für folgendes Produkt bzw. Angebot: "{{input}}".

Recherchiere im Web und decke mindestens ab:
- Typische Abnehmerbranchen und Unternehmensgrößen
- Konkrete Anwendungsfälle und Kaufauslöser
- Relevante Entscheiderrollen im Einkaufsprozess
- Marktvolumen und Nachfragetrends im DACH-Raum
- Wettbewerbsangebote und Differenzierungsmerkmale
- Empfohlene Ansprache- und Vertriebskanäle

Nenne zu jeder wesentlichen Aussage die Quelle. Antworte auf Deutsch.`

// FormatInstruction is the fixed editor prompt for the formatting stage. The
// raw research text is appended below the separator by BuildFormatPrompt.
const FormatInstruction = `Du bist ein erfahrener Redakteur und Markdown-Profi.

### Aufgabe:
Formatiere den folgenden Text als einheitliches, elegantes Markdown-Dokument mit:
- Überschriften (## / ###)
- Bulletpoints, wo sinnvoll
- echten Markdown-Tabellen
- **kein** HTML, **keine** ASCII-Grafik, **keine** Farben

### Text:
---
`

// FormatSystem is the system message sent with the formatting request.
const FormatSystem = "Formatierungs-Experte"

// BuildFormatPrompt combines the fixed editor instruction with the raw
// research text.
func BuildFormatPrompt(raw string) string {
	return FormatInstruction + raw
}
