package llm

// Dollar prices per million tokens. Unknown models bill at the default rate
// so cost accounting stays monotone rather than silently zero.
type modelRate struct {
	in  float64
	out float64
}

var modelRates = map[string]modelRate{
	"gpt-4o":                    {in: 2.50, out: 10.00},
	"gpt-4o-mini":               {in: 0.15, out: 0.60},
	"gpt-4.1":                   {in: 2.00, out: 8.00},
	"gpt-4.1-mini":              {in: 0.40, out: 1.60},
	"claude-sonnet-4-20250514":  {in: 3.00, out: 15.00},
	"claude-3-5-haiku-20241022": {in: 0.80, out: 4.00},
}

var defaultRate = modelRate{in: 3.00, out: 15.00}

// callCost converts token usage into dollars for the given model.
func callCost(model string, inTokens, outTokens int) float64 {
	rate, ok := modelRates[model]
	if !ok {
		rate = defaultRate
	}
	return float64(inTokens)/1e6*rate.in + float64(outTokens)/1e6*rate.out
}
