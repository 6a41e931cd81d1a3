package catalog

import (
	"testing"

	"netvoya-bot/pkg/api"
)

func samplePackages() []api.Package {
	return []api.Package{
		{ID: "p1", Name: "Europe 5GB", Region: "Europe", IsLive: true},
		{ID: "p2", Name: "Asia Traveler", Region: "Asia Pacific", IsLive: true},
		{ID: "p3", Name: "Global Roam", Region: "Worldwide", IsLive: false},
		{ID: "p4", Name: "USA Unlimited", Region: "North America", IsLive: true},
	}
}

func TestLiveFiltersDrafts(t *testing.T) {
	live := Live(samplePackages())
	if len(live) != 3 {
		t.Fatalf("got %d live packages, want 3", len(live))
	}
	for _, p := range live {
		if !p.IsLive {
			t.Errorf("draft package %s leaked into live view", p.ID)
		}
	}
}

func TestFilterMatchesNameOrRegion(t *testing.T) {
	pkgs := samplePackages()

	cases := []struct {
		query   string
		wantIDs []string
	}{
		{"europe", []string{"p1"}},
		{"ASIA", []string{"p2"}},          // case-insensitive
		{"america", []string{"p4"}},       // region match
		{"a", []string{"p2", "p3", "p4"}}, // substring, OR semantics
		{"  global ", []string{"p3"}},     // query trimmed
		{"", []string{"p1", "p2", "p3", "p4"}},
		{"nowhere", nil},
	}

	for _, tc := range cases {
		got := Filter(pkgs, tc.query)
		if len(got) != len(tc.wantIDs) {
			t.Errorf("Filter(%q): got %d results, want %d", tc.query, len(got), len(tc.wantIDs))
			continue
		}
		for i, p := range got {
			if p.ID != tc.wantIDs[i] {
				t.Errorf("Filter(%q)[%d] = %s, want %s", tc.query, i, p.ID, tc.wantIDs[i])
			}
		}
	}
}

func TestFindByID(t *testing.T) {
	pkgs := samplePackages()

	if p, ok := FindByID(pkgs, "p3"); !ok || p.Name != "Global Roam" {
		t.Errorf("FindByID(p3) = %+v, %v", p, ok)
	}
	if _, ok := FindByID(pkgs, "missing"); ok {
		t.Error("FindByID(missing) reported a hit")
	}
}
