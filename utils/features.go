package utils

import (
	"sort"
	"strconv"
	"strings"

	"riseagain/models"

	"github.com/google/uuid"
)

// Bounds for the two feature lists on a listing.
const (
	KeyFeaturesBound = 10
	AllFeaturesBound = 15
)

// FeatureVocabulary is the fixed set of feature names the picker offers.
var FeatureVocabulary = []string{
	"Sliding Gate", "Bio Tank", "CCTV Security", "Solar Panels", "Backup Generator",
	"Borehole", "Perimeter Wall", "Staff Quarters", "Swimming Pool", "Garden",
	"Gazebo", "Outdoor Kitchen", "Braai Area", "Fireplace", "Central Heating",
	"Air Conditioning", "Ceiling Fans", "Walk-in Closet", "Jacuzzi", "Sauna",
	"Home Theater", "Wine Cellar", "Gym", "Study/Office", "Playroom",
	"Guest House", "Servants Quarters", "Store Room", "Pantry", "Laundry Room",
	"Double Garage", "Triple Garage", "Carport", "Parking Bays", "Electric Fence",
	"Security Beams", "Intercom", "Electric Gate", "Alarm System", "Smart Home",
	"Fibre Internet", "Satellite TV", "Water Tank", "Water Pump", "Irrigation System",
	"Thatched Roof", "Tile Roof", "Wooden Floors", "Marble Floors", "Granite Countertops",
	"Built-in Wardrobes", "Dressing Room", "En-suite Bathroom", "Guest Toilet",
	"Separate Shower", "Bathtub", "Double Sink", "His & Hers Sinks", "Outdoor Shower",
	"Pool House", "Tennis Court", "Basketball Court", "Squash Court", "Putting Green",
	"Stable", "Kennel", "Chicken Coop", "Greenhouse", "Orchard",
}

func init() {
	sort.Strings(FeatureVocabulary)
}

// SearchVocabulary filters the feature vocabulary by case-insensitive
// substring match, for populating the picker.
func SearchVocabulary(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]string(nil), FeatureVocabulary...)
	}
	var matches []string
	for _, name := range FeatureVocabulary {
		if strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, name)
		}
	}
	return matches
}

// FeatureRow is one editable entry; the id only disambiguates rows while
// editing and is dropped from the persisted payload.
type FeatureRow struct {
	ID      string `json:"id"`
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// FeatureList manages a bounded, ordered collection of feature rows. The
// list always holds at least one (possibly blank) row.
type FeatureList struct {
	bound int
	rows  []FeatureRow
}

func NewFeatureList(bound int) *FeatureList {
	return &FeatureList{
		bound: bound,
		rows:  []FeatureRow{blankFeatureRow()},
	}
}

// FeatureListFrom seeds an editor from persisted entries, for the edit
// flow. An empty source still yields the single blank row.
func FeatureListFrom(bound int, entries models.FeatureEntries) *FeatureList {
	fl := &FeatureList{bound: bound}
	for _, e := range entries {
		if len(fl.rows) == bound {
			break
		}
		count := e.Count
		if count < 1 {
			count = 1
		}
		fl.rows = append(fl.rows, FeatureRow{ID: uuid.NewString(), Feature: e.Feature, Count: count})
	}
	if len(fl.rows) == 0 {
		fl.rows = []FeatureRow{blankFeatureRow()}
	}
	return fl
}

func blankFeatureRow() FeatureRow {
	return FeatureRow{ID: uuid.NewString(), Feature: "", Count: 1}
}

// Rows returns a copy of the current rows in order.
func (fl *FeatureList) Rows() []FeatureRow {
	return append([]FeatureRow(nil), fl.rows...)
}

func (fl *FeatureList) Len() int { return len(fl.rows) }

// Add appends a blank row. No-op once the bound is reached.
func (fl *FeatureList) Add() bool {
	if len(fl.rows) >= fl.bound {
		return false
	}
	fl.rows = append(fl.rows, blankFeatureRow())
	return true
}

// Remove deletes the row with the given id. Refuses to empty the list.
func (fl *FeatureList) Remove(id string) bool {
	if len(fl.rows) <= 1 {
		return false
	}
	for i, row := range fl.rows {
		if row.ID == id {
			fl.rows = append(fl.rows[:i], fl.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Update sets one field on the row with the given id. Counts are coerced
// to integers of at least 1; an unparsable count defaults to 1.
func (fl *FeatureList) Update(id, field string, value string) bool {
	for i := range fl.rows {
		if fl.rows[i].ID != id {
			continue
		}
		switch field {
		case "feature":
			fl.rows[i].Feature = value
		case "count":
			count, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || count < 1 {
				count = 1
			}
			fl.rows[i].Count = count
		default:
			return false
		}
		return true
	}
	return false
}

// Persistable returns the save payload: blank rows dropped, ids stripped.
func (fl *FeatureList) Persistable() models.FeatureEntries {
	entries := models.FeatureEntries{}
	for _, row := range fl.rows {
		if strings.TrimSpace(row.Feature) == "" {
			continue
		}
		entries = append(entries, models.FeatureEntry{Feature: row.Feature, Count: row.Count})
	}
	return entries
}

// SanitizeFeatureEntries applies the persistence rules to entries that
// arrive directly in an API payload: blanks dropped, counts coerced to
// ≥ 1, the list truncated at its bound.
func SanitizeFeatureEntries(entries models.FeatureEntries, bound int) models.FeatureEntries {
	out := models.FeatureEntries{}
	for _, e := range entries {
		if strings.TrimSpace(e.Feature) == "" {
			continue
		}
		if e.Count < 1 {
			e.Count = 1
		}
		out = append(out, e)
		if len(out) == bound {
			break
		}
	}
	return out
}
