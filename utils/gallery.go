package utils

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"riseagain/models"
	"riseagain/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxGalleryEntries caps existing + staged media per listing.
const MaxGalleryEntries = 20

type mediaKeyKind int

const (
	keyExisting mediaKeyKind = iota
	keyStaged
)

// MediaKey identifies one gallery entry as either a persisted media row
// or a staged (not yet uploaded) file. The wire form keeps the original
// "ex:<id>" / "nw:<id>" tags for API compatibility.
type MediaKey struct {
	kind       mediaKeyKind
	existingID uint
	stagedID   string
}

func ExistingKey(id uint) MediaKey {
	return MediaKey{kind: keyExisting, existingID: id}
}

func StagedKey(id string) MediaKey {
	return MediaKey{kind: keyStaged, stagedID: id}
}

func (k MediaKey) String() string {
	if k.kind == keyStaged {
		return "nw:" + k.stagedID
	}
	return fmt.Sprintf("ex:%d", k.existingID)
}

var ErrBadMediaKey = errors.New("malformed media key")

func ParseMediaKey(s string) (MediaKey, error) {
	tag, id, found := strings.Cut(s, ":")
	if !found || id == "" {
		return MediaKey{}, ErrBadMediaKey
	}
	switch tag {
	case "ex":
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return MediaKey{}, ErrBadMediaKey
		}
		return ExistingKey(uint(n)), nil
	case "nw":
		return StagedKey(id), nil
	}
	return MediaKey{}, ErrBadMediaKey
}

// FileInput is one incoming file payload.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// StagedMedia holds a file that has been added to the gallery but not yet
// uploaded. Data is the local preview/pending payload and must be
// released when the entry is superseded or the gallery is torn down.
type StagedMedia struct {
	ID          string
	FileName    string
	ContentType string
	Kind        string
	IsCover     bool
	Data        []byte
}

// Release frees the pending payload.
func (s *StagedMedia) Release() {
	s.Data = nil
}

func kindFromContentType(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return models.MediaKindVideo
	}
	return models.MediaKindImage
}

// Gallery manages the media attached to one listing: the persisted
// entries plus newly staged files, displayed as one combined sequence
// (existing first, staged after).
type Gallery struct {
	existing []models.ListingMedia
	staged   []StagedMedia
	removed  []models.ListingMedia
}

func NewGallery(existing []models.ListingMedia) *Gallery {
	return &Gallery{existing: append([]models.ListingMedia(nil), existing...)}
}

func (g *Gallery) Existing() []models.ListingMedia { return g.existing }
func (g *Gallery) Staged() []StagedMedia           { return g.staged }

// Removed lists existing entries deleted from the gallery; their storage
// objects and rows still need to be cleaned up by the caller.
func (g *Gallery) Removed() []models.ListingMedia { return g.removed }

func (g *Gallery) Count() int { return len(g.existing) + len(g.staged) }

func (g *Gallery) hasCover() bool {
	for i := range g.existing {
		if g.existing[i].IsCover {
			return true
		}
	}
	for i := range g.staged {
		if g.staged[i].IsCover {
			return true
		}
	}
	return false
}

var ErrGalleryFull = fmt.Errorf("a listing holds at most %d media entries", MaxGalleryEntries)

// AddFiles stages incoming files. Files beyond the 20-entry cap are
// rejected wholesale. When no entry is marked cover, the first image-kind
// file added is promoted.
func (g *Gallery) AddFiles(files []FileInput) error {
	if g.Count()+len(files) > MaxGalleryEntries {
		return ErrGalleryFull
	}
	needCover := !g.hasCover()
	for _, f := range files {
		entry := StagedMedia{
			ID:          uuid.NewString(),
			FileName:    f.Name,
			ContentType: f.ContentType,
			Kind:        kindFromContentType(f.ContentType),
			Data:        f.Data,
		}
		if needCover && entry.Kind == models.MediaKindImage {
			entry.IsCover = true
			needCover = false
		}
		g.staged = append(g.staged, entry)
	}
	return nil
}

// Delete removes the entry for key. Staged entries release their payload;
// existing entries move to the removed list for row/object cleanup.
func (g *Gallery) Delete(key MediaKey) bool {
	switch key.kind {
	case keyStaged:
		for i := range g.staged {
			if g.staged[i].ID == key.stagedID {
				g.staged[i].Release()
				g.staged = append(g.staged[:i], g.staged[i+1:]...)
				return true
			}
		}
	case keyExisting:
		for i := range g.existing {
			if g.existing[i].ID == key.existingID {
				g.removed = append(g.removed, g.existing[i])
				g.existing = append(g.existing[:i], g.existing[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Replace swaps a staged entry's file in place. Persisted entries are
// immutable; replacing one appends a new staged entry instead.
func (g *Gallery) Replace(key MediaKey, file FileInput) bool {
	if key.kind == keyStaged {
		for i := range g.staged {
			if g.staged[i].ID == key.stagedID {
				g.staged[i].Release()
				g.staged[i].FileName = file.Name
				g.staged[i].ContentType = file.ContentType
				g.staged[i].Kind = kindFromContentType(file.ContentType)
				g.staged[i].Data = file.Data
				return true
			}
		}
		return false
	}

	for i := range g.existing {
		if g.existing[i].ID == key.existingID {
			g.staged = append(g.staged, StagedMedia{
				ID:          uuid.NewString(),
				FileName:    file.Name,
				ContentType: file.ContentType,
				Kind:        kindFromContentType(file.ContentType),
				Data:        file.Data,
			})
			return true
		}
	}
	return false
}

// SetCover marks exactly the entry for key as cover and clears the flag
// everywhere else.
func (g *Gallery) SetCover(key MediaKey) bool {
	found := false
	for i := range g.existing {
		isTarget := key.kind == keyExisting && g.existing[i].ID == key.existingID
		g.existing[i].IsCover = isTarget
		found = found || isTarget
	}
	for i := range g.staged {
		isTarget := key.kind == keyStaged && g.staged[i].ID == key.stagedID
		g.staged[i].IsCover = isTarget
		found = found || isTarget
	}
	return found
}

// ReleaseAll frees every staged payload; call on teardown.
func (g *Gallery) ReleaseAll() {
	for i := range g.staged {
		g.staged[i].Release()
	}
}

func stagedObjectPath(listing *models.Listing, entry *StagedMedia) string {
	ext := path.Ext(entry.FileName)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s-%s%s", listing.MediaPrefix, listing.Slug, entry.ID, ext)
}

// Persist uploads every staged file and inserts its media row, with
// sort_order continuing from the existing count. Uploads run
// sequentially; the first failure aborts the save, and objects uploaded
// earlier in the same call are removed best-effort so the abort does not
// strand them.
func (g *Gallery) Persist(store storage.ObjectStore, db *gorm.DB, listing *models.Listing) ([]models.ListingMedia, error) {
	if listing.MediaBucket == "" {
		return nil, errors.New("listing has no media bucket configured")
	}
	if listing.MediaPrefix == "" {
		listing.MediaPrefix = "listings/" + listing.Slug
	}

	var uploadedPaths []string
	created := make([]models.ListingMedia, 0, len(g.staged))

	for i := range g.staged {
		entry := &g.staged[i]
		objectPath := stagedObjectPath(listing, entry)

		if err := store.Upload(listing.MediaBucket, objectPath, entry.Data, entry.ContentType, false); err != nil {
			if cleanupErr := store.Remove(listing.MediaBucket, uploadedPaths); cleanupErr != nil {
				return nil, fmt.Errorf("media upload failed: %w (cleanup also failed: %v)", err, cleanupErr)
			}
			return nil, fmt.Errorf("media upload failed: %w", err)
		}
		uploadedPaths = append(uploadedPaths, objectPath)

		row := models.ListingMedia{
			ListingID:  listing.ID,
			Bucket:     listing.MediaBucket,
			ObjectPath: objectPath,
			URL:        store.PublicURL(listing.MediaBucket, objectPath),
			Kind:       entry.Kind,
			SortOrder:  len(g.existing) + len(created),
			IsCover:    entry.IsCover,
		}
		if err := db.Create(&row).Error; err != nil {
			if cleanupErr := store.Remove(listing.MediaBucket, uploadedPaths); cleanupErr != nil {
				return nil, fmt.Errorf("media row insert failed: %w (cleanup also failed: %v)", err, cleanupErr)
			}
			return nil, fmt.Errorf("media row insert failed: %w", err)
		}
		created = append(created, row)
		entry.Release()
	}

	combined := models.EnsureCover(append(append([]models.ListingMedia(nil), g.existing...), created...))
	g.existing = combined
	g.staged = nil

	// Sync the flags EnsureCover may have changed
	for _, m := range combined {
		if err := db.Model(&models.ListingMedia{}).Where("id = ?", m.ID).Update("is_cover", m.IsCover).Error; err != nil {
			return nil, err
		}
	}

	return combined, nil
}
