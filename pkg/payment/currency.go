package payment

import "math"

// ConvertToKobo converts a major-unit amount to minor units, rounding half
// away from zero.
func ConvertToKobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func ConvertFromKobo(amount int64) float64 {
	return float64(amount) / 100
}
