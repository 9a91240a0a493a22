package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"15000000", 15000000},
		{"KES 15,000,000", 15000000},
		{"ksh 2,500,000", 2500000},
		{"15M", 15000000},
		{"14.5m", 14500000},
		{"750K", 750000},
		{"1.2B", 1200000000},
		{"  KES 500K ", 500000},
		{"", 0},
		{"KES", 0},
		{"KES ,", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePrice(tc.in), "input %q", tc.in)
	}
}

func TestNormalizePriceUnparsable(t *testing.T) {
	for _, in := range []string{"call for price", "N/A", "12x", "KES abc"} {
		assert.True(t, math.IsNaN(NormalizePrice(in)), "input %q should be NaN", in)
	}
}

func TestNormalizePriceValue(t *testing.T) {
	assert.Equal(t, float64(15000000), NormalizePriceValue("KES 15M"))
	assert.Equal(t, float64(2500000), NormalizePriceValue(2500000.0))
	assert.Equal(t, float64(1200), NormalizePriceValue(1200))
	assert.Equal(t, float64(99), NormalizePriceValue(int64(99)))
	assert.Equal(t, float64(0), NormalizePriceValue(nil))
	assert.True(t, math.IsNaN(NormalizePriceValue("no price")))
	assert.True(t, math.IsNaN(NormalizePriceValue(struct{}{})))
}

func TestFormatKES(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{15000000, "KES 15M"},
		{14500000, "KES 15M"}, // display rounds to the nearest M
		{14400000, "KES 14M"},
		{2500000000, "KES 3B"},
		{750000, "KES 750K"},
		{1500, "KES 2K"},
		{950, "KES 950"},
		{0, ""},
		{math.NaN(), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatKES(tc.in), "input %v", tc.in)
	}
}

func TestFormatKESGroupsSubThousand(t *testing.T) {
	// Below 1K the full figure is printed, grouped.
	assert.Equal(t, "KES 999", FormatKES(999))
}

func TestPriceRoundTrip(t *testing.T) {
	// Normalizing a formatted price lands back on the bucket value the
	// display encodes, not necessarily the exact input.
	assert.Equal(t, float64(15000000), NormalizePrice(FormatKES(14500000)))
	assert.Equal(t, float64(750000), NormalizePrice(FormatKES(750000)))
}

func TestFormatWithCommas(t *testing.T) {
	assert.Equal(t, "15,000,000", FormatWithCommas("15M"))
	assert.Equal(t, "2,500,000", FormatWithCommas(2500000.0))
	assert.Equal(t, "1,200", FormatWithCommas(1200))
	assert.Equal(t, "", FormatWithCommas("not a price"))
	assert.Equal(t, "", FormatWithCommas(""))
}
