package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"riseagain/models"
)

// fakeStore records uploads in memory and can be told to fail.
type fakeStore struct {
	objects   map[string][]byte
	failAfter int // fail uploads once this many have succeeded; -1 never
	uploads   int
	removed   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failAfter: -1}
}

func (f *fakeStore) Upload(bucket, path string, data []byte, contentType string, upsert bool) error {
	if f.failAfter >= 0 && f.uploads >= f.failAfter {
		return fmt.Errorf("upload rejected")
	}
	f.uploads++
	f.objects[bucket+"/"+path] = data
	return nil
}

func (f *fakeStore) PublicURL(bucket, path string) string {
	return "https://storage.test/object/public/" + bucket + "/" + path
}

func (f *fakeStore) SignedURL(bucket, path string, expiresIn time.Duration) (string, error) {
	return "https://storage.test/object/sign/" + bucket + "/" + path, nil
}

func (f *fakeStore) Remove(bucket string, paths []string) error {
	for _, p := range paths {
		delete(f.objects, bucket+"/"+p)
		f.removed = append(f.removed, p)
	}
	return nil
}

func galleryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Listing{}, &models.ListingMedia{}))
	return db
}

func imageFile(name string) FileInput {
	return FileInput{Name: name, ContentType: "image/jpeg", Data: []byte("jpegdata")}
}

func videoFile(name string) FileInput {
	return FileInput{Name: name, ContentType: "video/mp4", Data: []byte("mp4data")}
}

func TestParseMediaKey(t *testing.T) {
	key, err := ParseMediaKey("ex:42")
	require.NoError(t, err)
	assert.Equal(t, "ex:42", key.String())

	key, err = ParseMediaKey("nw:abc-def")
	require.NoError(t, err)
	assert.Equal(t, "nw:abc-def", key.String())

	for _, bad := range []string{"", "42", "ex:", "ex:notanumber", "xx:1"} {
		_, err := ParseMediaKey(bad)
		assert.ErrorIs(t, err, ErrBadMediaKey, "input %q", bad)
	}
}

func TestGalleryAddFilesPromotesFirstImageToCover(t *testing.T) {
	g := NewGallery(nil)
	require.NoError(t, g.AddFiles([]FileInput{
		videoFile("tour.mp4"),
		imageFile("front.jpg"),
		imageFile("back.jpg"),
	}))

	staged := g.Staged()
	require.Len(t, staged, 3)
	assert.False(t, staged[0].IsCover, "video must not be promoted")
	assert.True(t, staged[1].IsCover, "first image becomes cover")
	assert.False(t, staged[2].IsCover)
	assert.Equal(t, models.MediaKindVideo, staged[0].Kind)
	assert.Equal(t, models.MediaKindImage, staged[1].Kind)
}

func TestGalleryAddFilesKeepsExistingCover(t *testing.T) {
	existing := []models.ListingMedia{
		{Model: gorm.Model{ID: 1}, Kind: models.MediaKindImage, IsCover: true},
	}
	g := NewGallery(existing)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("extra.jpg")}))
	assert.False(t, g.Staged()[0].IsCover)
}

func TestGalleryCapRejectsWholesale(t *testing.T) {
	g := NewGallery(nil)
	files := make([]FileInput, MaxGalleryEntries-1)
	for i := range files {
		files[i] = imageFile(fmt.Sprintf("img%d.jpg", i))
	}
	require.NoError(t, g.AddFiles(files))

	// Two more would exceed the cap; neither may be staged.
	err := g.AddFiles([]FileInput{imageFile("a.jpg"), imageFile("b.jpg")})
	assert.ErrorIs(t, err, ErrGalleryFull)
	assert.Equal(t, MaxGalleryEntries-1, g.Count())

	require.NoError(t, g.AddFiles([]FileInput{imageFile("last.jpg")}))
	assert.ErrorIs(t, g.AddFiles([]FileInput{imageFile("over.jpg")}), ErrGalleryFull)
}

func TestGalleryDelete(t *testing.T) {
	existing := []models.ListingMedia{
		{Model: gorm.Model{ID: 7}, Kind: models.MediaKindImage, ObjectPath: "listings/x/x-1.jpg"},
	}
	g := NewGallery(existing)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("new.jpg")}))
	stagedID := g.Staged()[0].ID

	assert.True(t, g.Delete(StagedKey(stagedID)))
	assert.Empty(t, g.Staged())

	assert.True(t, g.Delete(ExistingKey(7)))
	assert.Empty(t, g.Existing())
	require.Len(t, g.Removed(), 1)
	assert.Equal(t, uint(7), g.Removed()[0].ID)

	assert.False(t, g.Delete(ExistingKey(99)))
}

func TestGalleryReplace(t *testing.T) {
	existing := []models.ListingMedia{
		{Model: gorm.Model{ID: 3}, Kind: models.MediaKindImage},
	}
	g := NewGallery(existing)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("old.jpg")}))
	stagedID := g.Staged()[0].ID

	// Staged entries swap in place.
	assert.True(t, g.Replace(StagedKey(stagedID), videoFile("swap.mp4")))
	require.Len(t, g.Staged(), 1)
	assert.Equal(t, "swap.mp4", g.Staged()[0].FileName)
	assert.Equal(t, models.MediaKindVideo, g.Staged()[0].Kind)

	// Existing entries are immutable; a replacement is appended.
	assert.True(t, g.Replace(ExistingKey(3), imageFile("newer.jpg")))
	assert.Len(t, g.Existing(), 1)
	assert.Len(t, g.Staged(), 2)
}

func TestGallerySetCoverIsExclusive(t *testing.T) {
	existing := []models.ListingMedia{
		{Model: gorm.Model{ID: 1}, Kind: models.MediaKindImage, IsCover: true},
		{Model: gorm.Model{ID: 2}, Kind: models.MediaKindImage},
	}
	g := NewGallery(existing)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("new.jpg")}))
	stagedID := g.Staged()[0].ID

	assert.True(t, g.SetCover(StagedKey(stagedID)))
	assert.False(t, g.Existing()[0].IsCover)
	assert.False(t, g.Existing()[1].IsCover)
	assert.True(t, g.Staged()[0].IsCover)

	assert.True(t, g.SetCover(ExistingKey(2)))
	assert.True(t, g.Existing()[1].IsCover)
	assert.False(t, g.Staged()[0].IsCover)
}

func TestGalleryPersist(t *testing.T) {
	db := galleryTestDB(t)
	store := newFakeStore()

	listing := models.Listing{
		Slug:        "karen-villa",
		Title:       "Karen Villa",
		MediaBucket: "listings-media",
		MediaPrefix: "listings/karen-villa",
	}
	require.NoError(t, db.Create(&listing).Error)

	g := NewGallery(nil)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("front.jpg"), imageFile("back.jpg")}))

	combined, err := g.Persist(store, db, &listing)
	require.NoError(t, err)
	require.Len(t, combined, 2)

	assert.True(t, combined[0].IsCover)
	assert.False(t, combined[1].IsCover)
	assert.Equal(t, 0, combined[0].SortOrder)
	assert.Equal(t, 1, combined[1].SortOrder)
	for _, m := range combined {
		assert.Contains(t, m.ObjectPath, "listings/karen-villa/karen-villa-")
		assert.Contains(t, m.URL, m.ObjectPath)
	}
	assert.Len(t, store.objects, 2)

	var rows []models.ListingMedia
	require.NoError(t, db.Where("listing_id = ?", listing.ID).Find(&rows).Error)
	assert.Len(t, rows, 2)

	// Payloads are released after persisting.
	assert.Empty(t, g.Staged())
}

func TestGalleryPersistFailureCompensates(t *testing.T) {
	db := galleryTestDB(t)
	store := newFakeStore()
	store.failAfter = 1 // second upload fails

	listing := models.Listing{
		Slug:        "runda-mansion",
		MediaBucket: "listings-media",
		MediaPrefix: "listings/runda-mansion",
	}
	require.NoError(t, db.Create(&listing).Error)

	g := NewGallery(nil)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("a.jpg"), imageFile("b.jpg")}))

	_, err := g.Persist(store, db, &listing)
	require.Error(t, err)

	// The object uploaded before the failure was removed again.
	assert.Empty(t, store.objects)
	assert.Len(t, store.removed, 1)
}

func TestGalleryPersistContinuesSortOrder(t *testing.T) {
	db := galleryTestDB(t)
	store := newFakeStore()

	listing := models.Listing{
		Slug:        "athi-bungalow",
		MediaBucket: "listings-media",
		MediaPrefix: "listings/athi-bungalow",
	}
	require.NoError(t, db.Create(&listing).Error)

	existing := []models.ListingMedia{
		{Model: gorm.Model{ID: 11}, ListingID: listing.ID, Kind: models.MediaKindImage, IsCover: true, SortOrder: 0},
	}
	require.NoError(t, db.Create(&existing[0]).Error)

	g := NewGallery(existing)
	require.NoError(t, g.AddFiles([]FileInput{imageFile("annex.jpg")}))

	combined, err := g.Persist(store, db, &listing)
	require.NoError(t, err)
	require.Len(t, combined, 2)
	assert.Equal(t, 1, combined[1].SortOrder)
	assert.True(t, combined[0].IsCover)
	assert.False(t, combined[1].IsCover)
}

func TestEnsureCoverPromotesFirstImage(t *testing.T) {
	media := []models.ListingMedia{
		{Model: gorm.Model{ID: 1}, Kind: models.MediaKindVideo},
		{Model: gorm.Model{ID: 2}, Kind: models.MediaKindImage},
		{Model: gorm.Model{ID: 3}, Kind: models.MediaKindImage},
	}
	out := models.EnsureCover(media)
	assert.False(t, out[0].IsCover)
	assert.True(t, out[1].IsCover)
	assert.False(t, out[2].IsCover)
}
