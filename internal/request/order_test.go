package request

import (
	"context"
	"testing"

	"netvoya-bot/internal/pricing"
	"netvoya-bot/pkg/api"
)

type fakeRequesterProvider struct {
	requester api.Requester
}

func (f fakeRequesterProvider) Requester(ctx context.Context, chatID int64) api.Requester {
	return f.requester
}

func TestBuildOrderAppliesOneDiscountSnapshot(t *testing.T) {
	policy := pricing.MustPolicy(pricing.DefaultTiers())

	s := New()
	s.TotalTokens = 300 // 10% tier
	s.Step = StepDistribution
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.Select(pkg("p2", "Asia 10GB", "Asia", 20))
	s.SetQuantity("p1", 200)
	s.SetQuantity("p2", 100)

	provider := fakeRequesterProvider{requester: api.Requester{ChatID: 7, Username: "partner"}}
	order, err := BuildOrder(s, policy, provider.Requester(context.Background(), 7))
	if err != nil {
		t.Fatalf("BuildOrder failed: %v", err)
	}

	if len(order.Packages) != 2 {
		t.Fatalf("got %d lines, want 2", len(order.Packages))
	}

	// Both lines must carry the 10% discount from the shared snapshot.
	if order.Packages[0].UnitPrice != 9 {
		t.Errorf("line 1 unit price %v, want 9", order.Packages[0].UnitPrice)
	}
	if order.Packages[1].UnitPrice != 18 {
		t.Errorf("line 2 unit price %v, want 18", order.Packages[1].UnitPrice)
	}
	if order.Packages[0].LineTotal != 1800 {
		t.Errorf("line 1 total %v, want 1800", order.Packages[0].LineTotal)
	}
	if order.Packages[1].LineTotal != 1800 {
		t.Errorf("line 2 total %v, want 1800", order.Packages[1].LineTotal)
	}

	// Grand total is the exact sum of line totals.
	want := order.Packages[0].LineTotal + order.Packages[1].LineTotal
	if order.TotalAmount != want {
		t.Errorf("grand total %v, want %v", order.TotalAmount, want)
	}

	if order.DiscountLabel != "10% volume discount" {
		t.Errorf("got discount label %q", order.DiscountLabel)
	}
	if order.Requester.Username != "partner" {
		t.Errorf("requester identity dropped: %+v", order.Requester)
	}
}

func TestBuildOrderNoDiscountBelowTier(t *testing.T) {
	policy := pricing.MustPolicy(pricing.DefaultTiers())

	s := New()
	s.TotalTokens = 50
	s.Step = StepDistribution
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.SetQuantity("p1", 50)

	order, err := BuildOrder(s, policy, api.Requester{ChatID: 1})
	if err != nil {
		t.Fatalf("BuildOrder failed: %v", err)
	}
	if order.DiscountLabel != "" {
		t.Errorf("unexpected discount label %q", order.DiscountLabel)
	}
	if order.Packages[0].UnitPrice != 10 {
		t.Errorf("unit price %v, want undiscounted 10", order.Packages[0].UnitPrice)
	}
	if order.TotalAmount != 500 {
		t.Errorf("total %v, want 500", order.TotalAmount)
	}
}

func TestBuildOrderSkipsZeroQuantityLines(t *testing.T) {
	policy := pricing.MustPolicy(pricing.DefaultTiers())

	s := New()
	s.TotalTokens = 100
	s.Step = StepDistribution
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.Select(pkg("p2", "Asia 10GB", "Asia", 20))
	s.SetQuantity("p1", 100)
	// p2 stays at zero.

	order, err := BuildOrder(s, policy, api.Requester{ChatID: 1})
	if err != nil {
		t.Fatalf("BuildOrder failed: %v", err)
	}
	if len(order.Packages) != 1 {
		t.Fatalf("got %d lines, want 1", len(order.Packages))
	}
	if order.Packages[0].PackageID != "p1" {
		t.Errorf("wrong line kept: %s", order.Packages[0].PackageID)
	}
}

func TestBuildOrderRejectsIncompleteDistribution(t *testing.T) {
	policy := pricing.MustPolicy(pricing.DefaultTiers())

	s := New()
	s.TotalTokens = 100
	s.Step = StepDistribution
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.SetQuantity("p1", 60)

	if _, err := BuildOrder(s, policy, api.Requester{ChatID: 1}); err == nil {
		t.Error("BuildOrder accepted an incomplete distribution")
	}
}
