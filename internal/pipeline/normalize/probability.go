package normalize

import "math"

// NormalizeProbability turns a sheet probability into an integer percentage.
// Values at or below 1 are fractions; anything else is already a percentage.
// A literal 1 therefore means 100%, never 1%.
func NormalizeProbability(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	var pct float64
	if raw <= 1 {
		pct = math.Round(raw * 100)
	} else {
		pct = math.Round(raw)
	}
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// ProbabilityPtr normalizes an optional raw probability.
func ProbabilityPtr(raw *float64) *int {
	if raw == nil {
		return nil
	}
	p := NormalizeProbability(*raw)
	return &p
}
