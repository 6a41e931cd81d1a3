package catalog

import (
	"strings"

	"netvoya-bot/pkg/api"
)

// Live returns only the packages offered to partners. The admin pricing
// view shows the full catalog and skips this filter.
func Live(pkgs []api.Package) []api.Package {
	out := make([]api.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.IsLive {
			out = append(out, p)
		}
	}
	return out
}

// Filter narrows a catalog by a case-insensitive substring match over
// package name or region. An empty query returns the input unchanged.
func Filter(pkgs []api.Package, query string) []api.Package {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return pkgs
	}

	out := make([]api.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Region), query) {
			out = append(out, p)
		}
	}
	return out
}

// FindByID looks a package up in a fetched catalog snapshot.
func FindByID(pkgs []api.Package, id string) (api.Package, bool) {
	for _, p := range pkgs {
		if p.ID == id {
			return p, true
		}
	}
	return api.Package{}, false
}
