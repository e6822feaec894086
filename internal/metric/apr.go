package metric

import "math"

const daysPerYear = 365

// FeeAPR annualises one day of fees against TVL, in percent. It is 0 when
// tvl is not positive or the result is not finite.
func FeeAPR(fees24h, tvl float64) float64 {
	if tvl <= 0 {
		return 0
	}
	apr := fees24h * daysPerYear / tvl * 100
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return 0
	}
	return apr
}
