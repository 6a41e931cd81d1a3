package request

import (
	"context"
	"fmt"

	"netvoya-bot/internal/pricing"
	"netvoya-bot/pkg/api"
)

// RequesterProvider resolves the identity attached to a submitted
// request. The bot backs it with the Telegram chat; tests use a fixed
// fake.
type RequesterProvider interface {
	Requester(ctx context.Context, chatID int64) api.Requester
}

// BuildOrder assembles the order-intake payload from a completed
// wizard session. Every line is priced with the same TotalTokens
// snapshot, and the grand total is the exact sum of line totals with
// no independent re-rounding.
func BuildOrder(s *State, policy *pricing.Policy, requester api.Requester) (api.InventoryRequest, error) {
	if !s.CanSubmit() {
		return api.InventoryRequest{}, fmt.Errorf(
			"request not ready to submit: %d of %d tokens assigned", s.Assigned(), s.TotalTokens)
	}

	discount := policy.DiscountFor(s.TotalTokens)

	lines := make([]api.InventoryLine, 0, len(s.Selected))
	total := 0.0
	for _, pkg := range s.Selected {
		qty := s.Quantities[pkg.ID]
		if qty == 0 {
			continue
		}
		unit := policy.DiscountedPrice(pkg.RetailPrice, s.TotalTokens)
		lineTotal := unit * float64(qty)
		lines = append(lines, api.InventoryLine{
			PackageID: pkg.ID,
			Name:      pkg.Name,
			Region:    pkg.Region,
			Quantity:  qty,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
		total += lineTotal
	}

	return api.InventoryRequest{
		TotalTokens:   s.TotalTokens,
		TotalAmount:   total,
		DiscountLabel: discount.Label,
		Packages:      lines,
		Requester:     requester,
	}, nil
}
