package store

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

// SortOrder selects the ordering of List results.
type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortPopular SortOrder = "popular"
	SortName    SortOrder = "name"
)

// ParseSort maps a query value to a SortOrder. Unknown values mean newest.
func ParseSort(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortPopular:
		return SortPopular
	case SortName:
		return SortName
	default:
		return SortNewest
	}
}

// Filter narrows and orders List results. The zero value matches everything
// and sorts newest first.
type Filter struct {
	Search       string
	Category     string
	FeaturedOnly bool
	Sort         SortOrder
}

// Match reports whether app satisfies every predicate of f.
func (f Filter) Match(app *models.App) bool {
	if f.Category != "" && app.Category != f.Category {
		return false
	}
	if f.FeaturedOnly && !app.IsFeatured {
		return false
	}
	return matchSearch(app, f.Search)
}

func matchSearch(app *models.App, search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(app.Name), q) ||
		strings.Contains(strings.ToLower(app.Description), q)
}

// apply filters apps (given in insertion order) and sorts the survivors.
// The sort is stable so ties keep insertion order.
func apply(apps []models.App, f Filter) []models.App {
	out := make([]models.App, 0, len(apps))
	for i := range apps {
		if f.Match(&apps[i]) {
			out = append(out, apps[i].Clone())
		}
	}
	sortApps(out, f.Sort)
	return out
}

func sortApps(apps []models.App, order SortOrder) {
	switch order {
	case SortPopular:
		sort.SliceStable(apps, func(i, j int) bool {
			return apps[i].Downloads > apps[j].Downloads
		})
	case SortName:
		col := collate.New(language.Und)
		sort.SliceStable(apps, func(i, j int) bool {
			return col.CompareString(apps[i].Name, apps[j].Name) < 0
		})
	default:
		sort.SliceStable(apps, func(i, j int) bool {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		})
	}
}
