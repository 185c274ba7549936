package exit

// ApplySlippage adjusts an exit price against the trader: a long's exit is
// reduced, a short's exit is increased, under either the percent or the
// fixed-amount model.
func ApplySlippage(price float64, isLong bool, model string, value float64) float64 {
	if value <= 0 {
		return price
	}
	if model == "fixed" {
		if isLong {
			return price - value
		}
		return price + value
	}
	// percent
	if isLong {
		return price * (1.0 - value/100.0)
	}
	return price * (1.0 + value/100.0)
}
