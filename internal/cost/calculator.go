package cost

// Rates holds per-provider pricing configuration. Token rates are USD per
// 1000 tokens, matching how the providers bill the two pipeline calls.
type Rates struct {
	PerplexityPer1K float64 `yaml:"perplexity_per_1k" mapstructure:"perplexity_per_1k"`
	FormatterPer1K  float64 `yaml:"formatter_per_1k" mapstructure:"formatter_per_1k"`
	EURPerUSD       float64 `yaml:"eur_per_usd" mapstructure:"eur_per_usd"`
}

// Summary is the cost breakdown for one analysis run.
type Summary struct {
	ResearchTokens  int     `json:"research_tokens"`
	FormatterTokens int     `json:"formatter_tokens"`
	USD             float64 `json:"usd"`
	EUR             float64 `json:"eur"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Research computes the cost in USD for the research call.
func (c *Calculator) Research(tokens int) float64 {
	return (float64(tokens) / 1000) * c.rates.PerplexityPer1K
}

// Formatter computes the cost in USD for the formatting call.
func (c *Calculator) Formatter(tokens int) float64 {
	return (float64(tokens) / 1000) * c.rates.FormatterPer1K
}

// Summarize computes the full cost breakdown for one run.
func (c *Calculator) Summarize(researchTokens, formatterTokens int) Summary {
	usd := c.Research(researchTokens) + c.Formatter(formatterTokens)
	return Summary{
		ResearchTokens:  researchTokens,
		FormatterTokens: formatterTokens,
		USD:             usd,
		EUR:             usd * c.rates.EURPerUSD,
	}
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		PerplexityPer1K: 0.01,
		FormatterPer1K:  0.005,
		EURPerUSD:       0.92,
	}
}
