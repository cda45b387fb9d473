package kuloydis

import (
	"math"
	"strconv"
)

// FormatScore renders a float64 the way ZSCORE replies need it: shortest
// round-trip decimal, no trailing zeros, lowercase inf/-inf.
func FormatScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatDistance renders a GEODIST result to 4 decimal places, matching
// the fixed-point rendering real Redis uses for distances.
func FormatDistance(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
