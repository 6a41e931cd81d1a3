package pricing

import (
	"fmt"
	"math"
)

// MarginInfo describes how much of a package's retail price is kept
// after the wholesale cost.
type MarginInfo struct {
	// Percent is meaningless when Defined is false.
	Percent float64
	// Defined is false when retail price is zero, where the margin
	// formula would divide by zero.
	Defined bool
	// Loss marks packages sold at or below wholesale cost.
	Loss bool
}

// Margin computes the retail margin for a package. A zero retail price
// yields an undefined margin flagged as a loss rather than NaN or Inf,
// so sorting and filtering can rely on the flags alone.
func Margin(wholesaleCost, retailPrice float64) MarginInfo {
	if retailPrice == 0 {
		return MarginInfo{Defined: false, Loss: true}
	}

	percent := (retailPrice - wholesaleCost) / retailPrice * 100
	return MarginInfo{
		Percent: percent,
		Defined: true,
		Loss:    retailPrice <= wholesaleCost,
	}
}

// String renders the margin to one decimal place, or "N/A" when
// undefined.
func (m MarginInfo) String() string {
	if !m.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", roundTenth(m.Percent))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
