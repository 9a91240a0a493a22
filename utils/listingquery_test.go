package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"riseagain/models"
)

func queryFixture() []models.Listing {
	day := 24 * time.Hour
	return []models.Listing{
		listingRow(1, "Karen Villa", "Karen, Nairobi", "KES 45M", 45000000, models.ListingStatusAvailable, time.Now().Add(-2*day)),
		listingRow(2, "Runda Mansion", "Runda, Nairobi", "KES 120M", 120000000, models.ListingStatusPending, time.Now().Add(-40*day)),
		listingRow(3, "Diani Beach Plot", "Diani, Kwale", "Price on request", 0, models.ListingStatusAvailable, time.Now().Add(-10*day)),
		listingRow(4, "Athi Bungalow", "Athi River", "KES 8M", 8000000, models.ListingStatusSold, time.Now().Add(-100*day)),
	}
}

func listingRow(id uint, title, location, price string, amount float64, status string, createdAt time.Time) models.Listing {
	return models.Listing{
		Model:       gorm.Model{ID: id, CreatedAt: createdAt},
		Title:       title,
		Location:    location,
		Price:       price,
		PriceAmount: amount,
		Status:      status,
	}
}

func ids(rows []models.Listing) []uint {
	out := make([]uint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterListingsQueryMatchesTitleLocationPrice(t *testing.T) {
	rows := queryFixture()

	assert.Equal(t, []uint{1}, ids(FilterListings(rows, ListingFilter{Query: "karen"})))
	assert.Equal(t, []uint{3}, ids(FilterListings(rows, ListingFilter{Query: "kwale"})))
	// "45M" appears only in the price string
	assert.Equal(t, []uint{1}, ids(FilterListings(rows, ListingFilter{Query: "45m"})))
	assert.Empty(t, FilterListings(rows, ListingFilter{Query: "mombasa"}))
}

func TestFilterListingsStatus(t *testing.T) {
	rows := queryFixture()

	got := FilterListings(rows, ListingFilter{Status: []string{models.ListingStatusAvailable}})
	assert.Equal(t, []uint{1, 3}, ids(got))

	got = FilterListings(rows, ListingFilter{
		Status: []string{models.ListingStatusPending, models.ListingStatusSold},
	})
	assert.Equal(t, []uint{2, 4}, ids(got))
}

func TestFilterListingsDateRange(t *testing.T) {
	rows := queryFixture()

	assert.Equal(t, []uint{1}, ids(FilterListings(rows, ListingFilter{DateRange: "7"})))
	assert.Equal(t, []uint{1, 3}, ids(FilterListings(rows, ListingFilter{DateRange: "30"})))
	assert.Equal(t, []uint{1, 2, 3, 4}, ids(FilterListings(rows, ListingFilter{DateRange: "all"})))
}

func TestFilterListingsDateRangeExcludesZeroCreatedAt(t *testing.T) {
	rows := queryFixture()
	rows[0].CreatedAt = time.Time{}

	got := FilterListings(rows, ListingFilter{DateRange: "365"})
	assert.NotContains(t, ids(got), uint(1))
}

func TestFilterListingsPriceBoundsExcludeUnparsable(t *testing.T) {
	rows := queryFixture()

	got := FilterListings(rows, ListingFilter{MinPrice: 10000000})
	assert.Equal(t, []uint{1, 2}, ids(got))

	got = FilterListings(rows, ListingFilter{MaxPrice: 50000000})
	// Row 3 has no parsable price and must not match any bounded filter.
	assert.Equal(t, []uint{1, 4}, ids(got))

	got = FilterListings(rows, ListingFilter{MinPrice: 10000000, MaxPrice: 50000000})
	assert.Equal(t, []uint{1}, ids(got))
}

func TestFilterListingsDoesNotMutateInput(t *testing.T) {
	rows := queryFixture()
	before := ids(rows)
	FilterListings(rows, ListingFilter{Query: "karen"})
	assert.Equal(t, before, ids(rows))
}

func TestSortListingsNewest(t *testing.T) {
	got := SortListings(queryFixture(), SortNewest)
	assert.Equal(t, []uint{1, 3, 2, 4}, ids(got))
}

func TestSortListingsNewestZeroCreatedAtLast(t *testing.T) {
	rows := queryFixture()
	rows[0].CreatedAt = time.Time{}
	got := SortListings(rows, SortNewest)
	assert.Equal(t, uint(1), got[len(got)-1].ID)
}

func TestSortListingsTitle(t *testing.T) {
	got := SortListings(queryFixture(), SortTitleAsc)
	assert.Equal(t, []uint{4, 3, 1, 2}, ids(got))

	got = SortListings(queryFixture(), SortTitleDesc)
	assert.Equal(t, []uint{2, 1, 3, 4}, ids(got))
}

func TestSortListingsPricePlacesUnparsableLast(t *testing.T) {
	asc := SortListings(queryFixture(), SortPriceAsc)
	assert.Equal(t, []uint{4, 1, 2, 3}, ids(asc))

	desc := SortListings(queryFixture(), SortPriceDesc)
	assert.Equal(t, []uint{2, 1, 4, 3}, ids(desc))
}

func TestSortListingsStatus(t *testing.T) {
	got := SortListings(queryFixture(), SortStatusAsc)
	require.Len(t, got, 4)
	assert.Equal(t, models.ListingStatusAvailable, got[0].Status)
	assert.Equal(t, models.ListingStatusSold, got[3].Status)
}

func TestSortListingsStableAndNonMutating(t *testing.T) {
	rows := queryFixture()
	// Two rows with equal prices keep their input order.
	rows[1].PriceAmount = 45000000
	rows[1].Price = "KES 45M"

	got := SortListings(rows, SortPriceAsc)
	assert.Equal(t, []uint{4, 1, 2, 3}, ids(got))
	// Input untouched
	assert.Equal(t, []uint{1, 2, 3, 4}, ids(rows))
}
