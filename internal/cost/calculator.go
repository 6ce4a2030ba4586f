package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
	Hunter    RequestRate          `yaml:"hunter" mapstructure:"hunter"`
	LinkedIn  RequestRate          `yaml:"linkedin" mapstructure:"linkedin"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// RequestRate is a flat price per API request.
type RequestRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of one Claude message. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return tokens(input, rate.Input) +
		tokens(output, rate.Output) +
		tokens(cacheWrite, rate.Input*rate.CacheWriteMul) +
		tokens(cacheRead, rate.Input*rate.CacheReadMul)
}

// Gemini computes the cost of one Gemini generation. Unknown models cost 0.
func (c *Calculator) Gemini(model string, input, output int) float64 {
	rate, ok := c.rates.Gemini[model]
	if !ok {
		return 0
	}
	return tokens(input, rate.Input) + tokens(output, rate.Output)
}

// HunterRequests returns the cost of n domain-search pages.
func (c *Calculator) HunterRequests(n int) float64 {
	return float64(n) * c.rates.Hunter.PerRequest
}

// ProfileRequests returns the cost of n profile fetches.
func (c *Calculator) ProfileRequests(n int) float64 {
	return float64(n) * c.rates.LinkedIn.PerRequest
}

func tokens(n int, perMTok float64) float64 {
	return (float64(n) / 1e6) * perMTok
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		},
		Hunter:   RequestRate{PerRequest: 0.049},
		LinkedIn: RequestRate{PerRequest: 0.01},
	}
}
