package utils

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.English)

var priceStripper = strings.NewReplacer("KES", "", "KSH", "", ",", "")

// NormalizePrice parses a human-entered price string into its numeric
// value. Currency labels (KES/KSH), commas and K/M/B magnitude suffixes
// are understood, case-insensitive. Empty input parses to 0; non-numeric
// residue yields NaN, which callers must reject rather than persist.
func NormalizePrice(value string) float64 {
	str := strings.ToUpper(strings.TrimSpace(value))
	if str == "" {
		return 0
	}

	str = strings.TrimSpace(priceStripper.Replace(str))
	if str == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(str, "B"):
		multiplier = 1_000_000_000
		str = strings.TrimSuffix(str, "B")
	case strings.HasSuffix(str, "M"):
		multiplier = 1_000_000
		str = strings.TrimSuffix(str, "M")
	case strings.HasSuffix(str, "K"):
		multiplier = 1_000
		str = strings.TrimSuffix(str, "K")
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return math.NaN()
	}
	return n * multiplier
}

// NormalizePriceValue resolves a price that may arrive as a string or a
// number. Strings go through NormalizePrice; unsupported types yield NaN.
func NormalizePriceValue(value interface{}) float64 {
	switch v := value.(type) {
	case string:
		return NormalizePrice(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case nil:
		return 0
	}
	return math.NaN()
}

// FormatKES renders a numeric price as the canonical display string.
// Values from 1K upward are compressed to a rounded K/M/B figure, so the
// rendering is lossy; the exact amount is persisted separately.
func FormatKES(value float64) string {
	if value == 0 || math.IsNaN(value) {
		return ""
	}

	switch {
	case value >= 1_000_000_000:
		return "KES " + strconv.FormatInt(int64(math.Round(value/1_000_000_000)), 10) + "B"
	case value >= 1_000_000:
		return "KES " + strconv.FormatInt(int64(math.Round(value/1_000_000)), 10) + "M"
	case value >= 1_000:
		return "KES " + strconv.FormatInt(int64(math.Round(value/1_000)), 10) + "K"
	}
	return pricePrinter.Sprintf("KES %d", int64(math.Round(value)))
}

// FormatWithCommas renders a price as a locale-grouped plain integer
// string with no currency prefix and no suffix compression. Strings go
// through NormalizePrice first.
func FormatWithCommas(value interface{}) string {
	var n float64
	switch v := value.(type) {
	case string:
		n = NormalizePrice(v)
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return ""
	}
	if n == 0 || math.IsNaN(n) {
		return ""
	}
	return pricePrinter.Sprintf("%d", int64(math.Round(n)))
}
