package pricing

import (
	"fmt"
	"math"
)

// DiscountTier grants a percentage off the retail price once a request
// reaches its token threshold.
type DiscountTier struct {
	Threshold int
	Percent   float64
	Label     string
}

// Discount is the tier resolved for a given request size.
type Discount struct {
	Active  bool
	Percent float64
	Label   string
}

// Policy evaluates volume discounts for inventory requests. Tiers are
// ordered by ascending threshold; the highest qualifying tier wins.
type Policy struct {
	tiers []DiscountTier
}

// DefaultTiers is the standing volume discount ladder: 5% off from 100
// tokens, 10% off from 300 tokens.
func DefaultTiers() []DiscountTier {
	return []DiscountTier{
		{Threshold: 100, Percent: 5, Label: "5% volume discount"},
		{Threshold: 300, Percent: 10, Label: "10% volume discount"},
	}
}

// NewPolicy builds a Policy, rejecting ladders that would break discount
// monotonicity: thresholds must strictly increase and percents must not
// decrease.
func NewPolicy(tiers []DiscountTier) (*Policy, error) {
	for i, tier := range tiers {
		if tier.Threshold <= 0 {
			return nil, fmt.Errorf("tier %d: threshold must be positive, got %d", i, tier.Threshold)
		}
		if tier.Percent < 0 || tier.Percent > 100 {
			return nil, fmt.Errorf("tier %d: percent out of range: %v", i, tier.Percent)
		}
		if i > 0 {
			if tier.Threshold <= tiers[i-1].Threshold {
				return nil, fmt.Errorf("tier %d: thresholds must strictly increase", i)
			}
			if tier.Percent < tiers[i-1].Percent {
				return nil, fmt.Errorf("tier %d: percent must not decrease", i)
			}
		}
	}

	copied := make([]DiscountTier, len(tiers))
	copy(copied, tiers)
	return &Policy{tiers: copied}, nil
}

// MustPolicy is NewPolicy for ladders known valid at compile time.
func MustPolicy(tiers []DiscountTier) *Policy {
	p, err := NewPolicy(tiers)
	if err != nil {
		panic(err)
	}
	return p
}

// DiscountFor returns the discount earned by a request of totalTokens
// tokens. Below every threshold the result is inactive with 0%.
func (p *Policy) DiscountFor(totalTokens int) Discount {
	for i := len(p.tiers) - 1; i >= 0; i-- {
		if totalTokens >= p.tiers[i].Threshold {
			return Discount{
				Active:  true,
				Percent: p.tiers[i].Percent,
				Label:   p.tiers[i].Label,
			}
		}
	}
	return Discount{}
}

// DiscountedPrice applies the tier earned by totalTokens to a retail
// price, rounded to cents. Every line in one order must be priced with
// the same totalTokens snapshot.
func (p *Policy) DiscountedPrice(retailPrice float64, totalTokens int) float64 {
	d := p.DiscountFor(totalTokens)
	return roundCents(retailPrice * (1 - d.Percent/100))
}

// Tiers returns the ladder for display.
func (p *Policy) Tiers() []DiscountTier {
	copied := make([]DiscountTier, len(p.tiers))
	copy(copied, p.tiers)
	return copied
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
