package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riseagain/models"
)

func TestFeatureListStartsWithBlankRow(t *testing.T) {
	fl := NewFeatureList(KeyFeaturesBound)
	require.Equal(t, 1, fl.Len())
	assert.Equal(t, "", fl.Rows()[0].Feature)
	assert.Equal(t, 1, fl.Rows()[0].Count)
}

func TestFeatureListAddStopsAtBound(t *testing.T) {
	fl := NewFeatureList(3)
	assert.True(t, fl.Add())
	assert.True(t, fl.Add())
	assert.False(t, fl.Add(), "add past the bound must be a no-op")
	assert.Equal(t, 3, fl.Len())
}

func TestFeatureListRemoveKeepsOneRow(t *testing.T) {
	fl := NewFeatureList(5)
	fl.Add()
	rows := fl.Rows()

	assert.True(t, fl.Remove(rows[0].ID))
	assert.Equal(t, 1, fl.Len())
	assert.False(t, fl.Remove(fl.Rows()[0].ID), "last row must not be removable")
}

func TestFeatureListUpdateCoercesCount(t *testing.T) {
	fl := NewFeatureList(5)
	id := fl.Rows()[0].ID

	assert.True(t, fl.Update(id, "count", "4"))
	assert.Equal(t, 4, fl.Rows()[0].Count)

	assert.True(t, fl.Update(id, "count", "0"))
	assert.Equal(t, 1, fl.Rows()[0].Count)

	assert.True(t, fl.Update(id, "count", "banana"))
	assert.Equal(t, 1, fl.Rows()[0].Count)

	assert.False(t, fl.Update(id, "color", "blue"))
	assert.False(t, fl.Update("no-such-id", "feature", "Gym"))
}

func TestFeatureListPersistableDropsBlanks(t *testing.T) {
	fl := NewFeatureList(5)
	fl.Update(fl.Rows()[0].ID, "feature", "Swimming Pool")
	fl.Add()
	fl.Add()
	rows := fl.Rows()
	fl.Update(rows[2].ID, "feature", "  ")

	got := fl.Persistable()
	require.Len(t, got, 1)
	assert.Equal(t, "Swimming Pool", got[0].Feature)
	assert.Equal(t, 1, got[0].Count)
}

func TestFeatureListFromPreservesOrder(t *testing.T) {
	entries := models.FeatureEntries{
		{Feature: "Borehole", Count: 1},
		{Feature: "Double Garage", Count: 2},
		{Feature: "Garden", Count: 0}, // count backfilled to 1
	}
	fl := FeatureListFrom(AllFeaturesBound, entries)
	rows := fl.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Borehole", rows[0].Feature)
	assert.Equal(t, "Double Garage", rows[1].Feature)
	assert.Equal(t, 2, rows[1].Count)
	assert.Equal(t, 1, rows[2].Count)
}

func TestSearchVocabulary(t *testing.T) {
	all := SearchVocabulary("")
	assert.Len(t, all, len(FeatureVocabulary))
	assert.Len(t, all, 69)

	pool := SearchVocabulary("pool")
	assert.Contains(t, pool, "Swimming Pool")
	assert.Contains(t, pool, "Pool House")
	for _, name := range pool {
		assert.Contains(t, []string{"Swimming Pool", "Pool House"}, name)
	}

	assert.Empty(t, SearchVocabulary("zzzz"))
}

func TestSanitizeFeatureEntries(t *testing.T) {
	in := models.FeatureEntries{
		{Feature: "CCTV Security", Count: 0},
		{Feature: "", Count: 3},
		{Feature: "Garden", Count: 2},
		{Feature: "Gym", Count: 1},
	}
	got := SanitizeFeatureEntries(in, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "CCTV Security", got[0].Feature)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, "Garden", got[1].Feature)
}
