package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Listing statuses, mirrored by a check constraint on the listings table
const (
	ListingStatusAvailable = "available"
	ListingStatusPending   = "pending"
	ListingStatusSold      = "sold"
	ListingStatusHidden    = "hidden"
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// FeatureEntry is one row of a listing's key/all feature lists.
type FeatureEntry struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// FeatureEntries stores an ordered feature list as a JSON column.
type FeatureEntries []FeatureEntry

func (f FeatureEntries) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	return string(b), err
}

func (f *FeatureEntries) Scan(value interface{}) error {
	if value == nil {
		*f = FeatureEntries{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported type %T for FeatureEntries", value)
	}
}

// StringArray stores a string slice as a JSON column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported type %T for StringArray", value)
	}
}

// Listing represents a property record
type Listing struct {
	gorm.Model
	Slug        string `gorm:"uniqueIndex" json:"slug"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Location    string `json:"location"`

	// Price is the canonical display string ("KES 15M"); PriceAmount keeps
	// the exact value the display string was derived from.
	Price       string  `json:"price"`
	PriceAmount float64 `json:"price_amount"`
	Negotiable  bool    `gorm:"default:true" json:"negotiable"`
	Status      string  `gorm:"default:available;index" json:"status"`

	Bedrooms     *int   `json:"bedrooms"`
	Bathrooms    *int   `json:"bathrooms"`
	Washrooms    *int   `json:"washrooms"`
	BuildingArea string `json:"building_area"`
	LandSize     string `json:"land_size"`

	MediaBucket   string      `json:"media_bucket"`
	MediaPrefix   string      `json:"media_prefix"`
	CoverImageURL string      `json:"cover_image_url"`
	Images        StringArray `gorm:"type:text" json:"images"`

	KeyFeatures FeatureEntries `gorm:"type:text" json:"key_features"`
	AllFeatures FeatureEntries `gorm:"type:text" json:"all_features"`

	// Relations
	Media []ListingMedia `gorm:"foreignKey:ListingID" json:"media,omitempty"`
}

// ListingMedia represents one image or video attached to a listing
type ListingMedia struct {
	gorm.Model
	ListingID  uint   `gorm:"not null;index" json:"listing_id"`
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"object_path"`
	URL        string `json:"url"`
	Kind       string `gorm:"default:image" json:"kind"`
	SortOrder  int    `gorm:"default:0" json:"sort_order"`
	IsCover    bool   `gorm:"default:false" json:"is_cover"`
	Caption    string `json:"caption"`

	// Relations
	Listing Listing `json:"-"`
}

var ValidListingStatuses = []string{
	ListingStatusAvailable,
	ListingStatusPending,
	ListingStatusSold,
	ListingStatusHidden,
}

func IsValidListingStatus(status string) bool {
	for _, s := range ValidListingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ListingView is the projection handed to API consumers. Null handling for
// the physical fields happens here once instead of at every call site.
type ListingView struct {
	ID            uint           `json:"id"`
	Slug          string         `json:"slug"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Location      string         `json:"location"`
	Price         string         `json:"price"`
	PriceAmount   float64        `json:"price_amount"`
	Negotiable    bool           `json:"negotiable"`
	Status        string         `json:"status"`
	Bedrooms      int            `json:"bedrooms"`
	Bathrooms     int            `json:"bathrooms"`
	Washrooms     int            `json:"washrooms"`
	BuildingArea  string         `json:"building_area"`
	LandSize      string         `json:"land_size"`
	CoverImageURL string         `json:"cover_image_url"`
	Images        []string       `json:"images"`
	KeyFeatures   FeatureEntries `json:"key_features"`
	AllFeatures   FeatureEntries `json:"all_features"`
	HasVideo      bool           `json:"has_video"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// View projects a listing row into its API shape.
func (l *Listing) View() ListingView {
	status := l.Status
	if status == "" {
		status = ListingStatusAvailable
	}
	images := []string(l.Images)
	if images == nil {
		images = []string{}
	}
	keyFeatures := l.KeyFeatures
	if keyFeatures == nil {
		keyFeatures = FeatureEntries{}
	}
	allFeatures := l.AllFeatures
	if allFeatures == nil {
		allFeatures = FeatureEntries{}
	}
	hasVideo := false
	for _, m := range l.Media {
		if m.Kind == MediaKindVideo {
			hasVideo = true
			break
		}
	}
	return ListingView{
		ID:            l.ID,
		Slug:          l.Slug,
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		Price:         l.Price,
		PriceAmount:   l.PriceAmount,
		Negotiable:    l.Negotiable,
		Status:        status,
		Bedrooms:      intOrZero(l.Bedrooms),
		Bathrooms:     intOrZero(l.Bathrooms),
		Washrooms:     intOrZero(l.Washrooms),
		BuildingArea:  l.BuildingArea,
		LandSize:      l.LandSize,
		CoverImageURL: l.CoverImageURL,
		Images:        images,
		KeyFeatures:   keyFeatures,
		AllFeatures:   allFeatures,
		HasVideo:      hasVideo,
		CreatedAt:     l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     l.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// EnsureCover promotes the first image-kind media entry to cover when no
// entry is marked, and clears extra flags so at most one remains.
func EnsureCover(media []ListingMedia) []ListingMedia {
	coverSeen := false
	for i := range media {
		if media[i].IsCover {
			if coverSeen {
				media[i].IsCover = false
				continue
			}
			coverSeen = true
		}
	}
	if !coverSeen {
		for i := range media {
			if media[i].Kind == MediaKindImage {
				media[i].IsCover = true
				break
			}
		}
	}
	return media
}

var ErrListingNotFound = errors.New("listing not found")
