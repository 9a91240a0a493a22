package utils

import (
	"math"
	"sort"
	"strings"
	"time"

	"riseagain/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort modes for listing collections.
const (
	SortNewest     = "newest"
	SortTitleAsc   = "title_asc"
	SortTitleDesc  = "title_desc"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortStatusAsc  = "status_asc"
	SortStatusDesc = "status_desc"
)

// Date range filters, in days; "all" disables the range.
var dateRangeDays = map[string]int{
	"7":   7,
	"30":  30,
	"90":  90,
	"365": 365,
}

// ListingFilter holds the conjunctive predicates applied to a listing
// collection. Zero values disable the corresponding predicate; MinPrice
// and MaxPrice are bounds on the parsed numeric price.
type ListingFilter struct {
	Query     string
	Status    []string
	Location  string
	DateRange string
	MinPrice  float64
	MaxPrice  float64
}

var listingCollator = collate.New(language.English, collate.Loose)

// listingPrice resolves a row's numeric price, preferring the exact
// stored amount over re-parsing the display string.
func listingPrice(l *models.Listing) float64 {
	if l.PriceAmount > 0 {
		return l.PriceAmount
	}
	if strings.TrimSpace(l.Price) == "" {
		return math.NaN()
	}
	return NormalizePrice(l.Price)
}

// FilterListings returns the rows matching every predicate of f. The
// source slice is never mutated.
func FilterListings(rows []models.Listing, f ListingFilter) []models.Listing {
	now := time.Now()
	query := strings.ToLower(strings.TrimSpace(f.Query))
	location := strings.ToLower(strings.TrimSpace(f.Location))
	priceBounded := f.MinPrice > 0 || f.MaxPrice > 0

	out := make([]models.Listing, 0, len(rows))
	for _, row := range rows {
		if query != "" {
			indexed := strings.ToLower(row.Title + " " + row.Location + " " + row.Price)
			if !strings.Contains(indexed, query) {
				continue
			}
		}

		if len(f.Status) > 0 && !containsString(f.Status, row.Status) {
			continue
		}

		if location != "" && !strings.Contains(strings.ToLower(row.Location), location) {
			continue
		}

		if days, bounded := dateRangeDays[f.DateRange]; bounded {
			if row.CreatedAt.IsZero() {
				continue
			}
			if row.CreatedAt.Before(now.AddDate(0, 0, -days)) {
				continue
			}
		}

		if priceBounded {
			price := listingPrice(&row)
			if math.IsNaN(price) {
				continue
			}
			if f.MinPrice > 0 && price < f.MinPrice {
				continue
			}
			if f.MaxPrice > 0 && price > f.MaxPrice {
				continue
			}
		}

		out = append(out, row)
	}
	return out
}

// SortListings returns a new slice ordered by the given mode. Sorting is
// stable for equal keys; rows with unparsable prices sort after parsable
// ones in both price directions.
func SortListings(rows []models.Listing, mode string) []models.Listing {
	sorted := append([]models.Listing(nil), rows...)

	switch mode {
	case SortTitleAsc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return listingCollator.CompareString(sorted[i].Title, sorted[j].Title) < 0
		})
	case SortTitleDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return listingCollator.CompareString(sorted[j].Title, sorted[i].Title) < 0
		})
	case SortPriceAsc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return comparePrices(&sorted[i], &sorted[j], true)
		})
	case SortPriceDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return comparePrices(&sorted[i], &sorted[j], false)
		})
	case SortStatusAsc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return listingCollator.CompareString(sorted[i].Status, sorted[j].Status) < 0
		})
	case SortStatusDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return listingCollator.CompareString(sorted[j].Status, sorted[i].Status) < 0
		})
	default: // newest
		sort.SliceStable(sorted, func(i, j int) bool {
			return createdAtOrEpoch(&sorted[i]).After(createdAtOrEpoch(&sorted[j]))
		})
	}
	return sorted
}

func comparePrices(a, b *models.Listing, ascending bool) bool {
	pa, pb := listingPrice(a), listingPrice(b)
	aNaN, bNaN := math.IsNaN(pa), math.IsNaN(pb)
	if aNaN || bNaN {
		// Unparsable prices always sort last
		return !aNaN && bNaN
	}
	if ascending {
		return pa < pb
	}
	return pa > pb
}

func createdAtOrEpoch(l *models.Listing) time.Time {
	if l.CreatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return l.CreatedAt
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
