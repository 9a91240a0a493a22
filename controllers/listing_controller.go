package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"riseagain/config"
	"riseagain/models"
	"riseagain/storage"
	"riseagain/utils"
)

type ListingController struct {
	db     *gorm.DB
	store  storage.ObjectStore
	logger *logrus.Logger
}

func NewListingController(db *gorm.DB, store storage.ObjectStore, logger *logrus.Logger) *ListingController {
	return &ListingController{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// ListingInput carries the editable fields of a listing. Price arrives as
// the human-entered string and is normalized before anything is written.
type ListingInput struct {
	Title        string                `json:"title" validate:"required,min=3"`
	Description  string                `json:"description"`
	Location     string                `json:"location"`
	Price        string                `json:"price" validate:"required"`
	Negotiable   bool                  `json:"negotiable"`
	Status       string                `json:"status" validate:"omitempty,listing_status"`
	Bedrooms     *int                  `json:"bedrooms"`
	Bathrooms    *int                  `json:"bathrooms"`
	Washrooms    *int                  `json:"washrooms"`
	BuildingArea string                `json:"building_area"`
	LandSize     string                `json:"land_size"`
	KeyFeatures  models.FeatureEntries `json:"key_features"`
	AllFeatures  models.FeatureEntries `json:"all_features"`
	CoverIndex   int                   `json:"cover_index"`
}

var ErrInvalidPrice = errors.New("price could not be parsed")

// createListing inserts a new listing together with its staged media. The
// whole save is one transaction; an upload failure aborts it.
func (lc *ListingController) createListing(in ListingInput, files []utils.FileInput) (*models.Listing, error) {
	amount := utils.NormalizePrice(in.Price)
	if math.IsNaN(amount) {
		return nil, ErrInvalidPrice
	}

	status := in.Status
	if status == "" {
		status = models.ListingStatusAvailable
	}

	slug, err := lc.uniqueSlug(in.Title)
	if err != nil {
		return nil, err
	}

	listing := models.Listing{
		Slug:         slug,
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		Price:        utils.FormatKES(amount),
		PriceAmount:  amount,
		Negotiable:   in.Negotiable,
		Status:       status,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		Washrooms:    in.Washrooms,
		BuildingArea: in.BuildingArea,
		LandSize:     in.LandSize,
		MediaBucket:  config.AppConfig.Storage.ListingsBucket,
		MediaPrefix:  "listings/" + slug,
		KeyFeatures:  utils.SanitizeFeatureEntries(in.KeyFeatures, utils.KeyFeaturesBound),
		AllFeatures:  utils.SanitizeFeatureEntries(in.AllFeatures, utils.AllFeaturesBound),
	}

	gallery := utils.NewGallery(nil)
	if err := gallery.AddFiles(files); err != nil {
		return nil, err
	}
	if in.CoverIndex >= 0 && in.CoverIndex < len(gallery.Staged()) {
		gallery.SetCover(utils.StagedKey(gallery.Staged()[in.CoverIndex].ID))
	}

	err = lc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		combined, err := gallery.Persist(lc.store, tx, &listing)
		if err != nil {
			return err
		}
		return tx.Model(&listing).Updates(map[string]interface{}{
			"cover_image_url": coverURL(combined),
			"images":          mediaURLs(combined),
		}).Error
	})
	if err != nil {
		gallery.ReleaseAll()
		return nil, err
	}

	listing.Media = gallery.Existing()
	return &listing, nil
}

func (lc *ListingController) uniqueSlug(title string) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		return "", errors.New("title yields an empty slug")
	}
	slug := base
	for i := 2; ; i++ {
		var count int64
		if err := lc.db.Model(&models.Listing{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func coverURL(media []models.ListingMedia) string {
	for _, m := range media {
		if m.IsCover {
			return m.URL
		}
	}
	if len(media) > 0 {
		return media[0].URL
	}
	return ""
}

func mediaURLs(media []models.ListingMedia) models.StringArray {
	urls := models.StringArray{}
	for _, m := range media {
		urls = append(urls, m.URL)
	}
	return urls
}

// CreateListing handles the new-listing form: multipart fields plus any
// number of "media" files.
func (lc *ListingController) CreateListing(c *fiber.Ctx) error {
	in, files, err := parseListingForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := utils.ValidateStruct(*in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	listing, err := lc.createListing(*in, files)
	if err != nil {
		if errors.Is(err, ErrInvalidPrice) || errors.Is(err, utils.ErrGalleryFull) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		lc.logger.WithError(err).Error("listing create failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create listing", err)
	}

	lc.logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"slug":       listing.Slug,
		"media":      len(listing.Media),
	}).Info("listing created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(listing.View()))
}

// updateListing applies field edits, media removals, staged additions and
// a cover change to one listing.
func (lc *ListingController) updateListing(id uint, in ListingInput, files []utils.FileInput, removeKeys []string, coverKey string) (*models.Listing, error) {
	var listing models.Listing
	if err := lc.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrListingNotFound
		}
		return nil, err
	}

	amount := utils.NormalizePrice(in.Price)
	if math.IsNaN(amount) {
		return nil, ErrInvalidPrice
	}

	gallery := utils.NewGallery(listing.Media)
	for _, raw := range removeKeys {
		key, err := utils.ParseMediaKey(raw)
		if err != nil {
			return nil, err
		}
		gallery.Delete(key)
	}
	if err := gallery.AddFiles(files); err != nil {
		return nil, err
	}
	if coverKey != "" {
		key, err := utils.ParseMediaKey(coverKey)
		if err != nil {
			return nil, err
		}
		gallery.SetCover(key)
	}

	status := in.Status
	if status == "" {
		status = listing.Status
	}

	// Row deletes ride the save transaction so an aborted save keeps the
	// removed entries; their storage objects go after commit.
	removed := gallery.Removed()
	err := lc.db.Transaction(func(tx *gorm.DB) error {
		for _, r := range removed {
			if err := tx.Delete(&models.ListingMedia{}, r.ID).Error; err != nil {
				return err
			}
		}
		combined, err := gallery.Persist(lc.store, tx, &listing)
		if err != nil {
			return err
		}
		return tx.Model(&listing).Updates(map[string]interface{}{
			"title":           in.Title,
			"description":     in.Description,
			"location":        in.Location,
			"price":           utils.FormatKES(amount),
			"price_amount":    amount,
			"negotiable":      in.Negotiable,
			"status":          status,
			"bedrooms":        in.Bedrooms,
			"bathrooms":       in.Bathrooms,
			"washrooms":       in.Washrooms,
			"building_area":   in.BuildingArea,
			"land_size":       in.LandSize,
			"key_features":    utils.SanitizeFeatureEntries(in.KeyFeatures, utils.KeyFeaturesBound),
			"all_features":    utils.SanitizeFeatureEntries(in.AllFeatures, utils.AllFeaturesBound),
			"cover_image_url": coverURL(combined),
			"images":          mediaURLs(combined),
		}).Error
	})
	if err != nil {
		gallery.ReleaseAll()
		return nil, err
	}

	for _, r := range removed {
		if r.ObjectPath == "" {
			continue
		}
		if err := lc.store.Remove(r.Bucket, []string{r.ObjectPath}); err != nil {
			lc.logger.WithError(err).WithField("path", r.ObjectPath).Warn("media object delete failed")
		}
	}

	if err := lc.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateListing handles the edit-listing form.
func (lc *ListingController) UpdateListing(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing id"})
	}

	in, files, err := parseListingForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := utils.ValidateStruct(*in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var removeKeys []string
	if raw := c.FormValue("remove_media"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &removeKeys); err != nil {
			removeKeys = strings.Split(raw, ",")
		}
	}

	listing, err := lc.updateListing(id, *in, files, removeKeys, c.FormValue("cover_key"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrListingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		case errors.Is(err, ErrInvalidPrice), errors.Is(err, utils.ErrGalleryFull), errors.Is(err, utils.ErrBadMediaKey):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		lc.logger.WithError(err).Error("listing update failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update listing", err)
	}

	return c.JSON(utils.SuccessResponse(listing.View()))
}

// GetListings serves the admin dashboard list with the full filter/sort
// surface as query parameters.
func (lc *ListingController) GetListings(c *fiber.Ctx) error {
	return lc.serveListings(c, false)
}

// GetPublicListings serves the public site: only available listings.
func (lc *ListingController) GetPublicListings(c *fiber.Ctx) error {
	return lc.serveListings(c, true)
}

func (lc *ListingController) serveListings(c *fiber.Ctx, publicOnly bool) error {
	q := lc.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	})
	if publicOnly {
		q = q.Where("status = ?", models.ListingStatusAvailable)
	}

	var rows []models.Listing
	if err := q.Find(&rows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch listings", err)
	}

	filter := utils.ListingFilter{
		Query:     c.Query("q"),
		Location:  c.Query("location"),
		DateRange: c.Query("date_range", "all"),
		MinPrice:  priceQuery(c.Query("min_price")),
		MaxPrice:  priceQuery(c.Query("max_price")),
	}
	if statuses := c.Query("status"); statuses != "" && !publicOnly {
		filter.Status = strings.Split(statuses, ",")
	}

	rows = utils.FilterListings(rows, filter)
	rows = utils.SortListings(rows, c.Query("sort", utils.SortNewest))

	views := make([]models.ListingView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View())
	}
	return c.JSON(utils.SuccessResponse(views))
}

// priceQuery parses a price bound; bounds accept the same shorthand as
// price input ("10M"). Unparsable bounds are ignored.
func priceQuery(raw string) float64 {
	if raw == "" {
		return 0
	}
	n := utils.NormalizePrice(raw)
	if math.IsNaN(n) {
		return 0
	}
	return n
}

// GetListing resolves a listing by numeric id or slug.
func (lc *ListingController) GetListing(c *fiber.Ctx) error {
	param := c.Params("id")

	q := lc.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	})

	var listing models.Listing
	var err error
	if id := utils.ParseUint(param); id > 0 {
		err = q.First(&listing, id).Error
	} else {
		err = q.Where("slug = ?", param).First(&listing).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch listing", err)
	}

	return c.JSON(utils.SuccessResponse(listing.View()))
}

// DeleteListing removes a listing, its media rows and their storage
// objects.
func (lc *ListingController) DeleteListing(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing id"})
	}

	var listing models.Listing
	if err := lc.db.Preload("Media").First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch listing", err)
	}

	var paths []string
	for _, m := range listing.Media {
		if m.ObjectPath != "" {
			paths = append(paths, m.ObjectPath)
		}
	}
	if len(paths) > 0 {
		if err := lc.store.Remove(listing.MediaBucket, paths); err != nil {
			lc.logger.WithError(err).WithField("listing_id", id).Warn("storage cleanup failed on listing delete")
		}
	}

	err := lc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&models.ListingMedia{}).Error; err != nil {
			return err
		}
		return tx.Delete(&listing).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete listing", err)
	}

	lc.logger.WithField("listing_id", id).Info("listing deleted")
	return c.JSON(fiber.Map{"success": true})
}

// SetListingCover marks one media entry as the listing's cover.
func (lc *ListingController) SetListingCover(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	key, err := utils.ParseMediaKey(c.Query("key"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var listing models.Listing
	if err := lc.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch listing", err)
	}

	gallery := utils.NewGallery(listing.Media)
	if !gallery.SetCover(key) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Media entry not found"})
	}

	combined := gallery.Existing()
	err = lc.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range combined {
			if err := tx.Model(&models.ListingMedia{}).Where("id = ?", m.ID).Update("is_cover", m.IsCover).Error; err != nil {
				return err
			}
		}
		return tx.Model(&listing).Update("cover_image_url", coverURL(combined)).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to set cover", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// SearchFeatures serves the feature-picker vocabulary.
func (lc *ListingController) SearchFeatures(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(utils.SearchVocabulary(c.Query("q"))))
}

// parseListingForm reads the multipart listing form into the input DTO
// plus the raw media file payloads.
func parseListingForm(c *fiber.Ctx) (*ListingInput, []utils.FileInput, error) {
	in := ListingInput{
		Title:        c.FormValue("title"),
		Description:  c.FormValue("description"),
		Location:     c.FormValue("location"),
		Price:        c.FormValue("price"),
		Negotiable:   c.FormValue("negotiable", "true") != "false",
		Status:       c.FormValue("status"),
		BuildingArea: c.FormValue("building_area"),
		LandSize:     c.FormValue("land_size"),
		CoverIndex:   -1,
	}

	in.Bedrooms = intField(c.FormValue("bedrooms"))
	in.Bathrooms = intField(c.FormValue("bathrooms"))
	in.Washrooms = intField(c.FormValue("washrooms"))
	if raw := c.FormValue("cover_index"); raw != "" {
		var idx int
		if _, err := fmt.Sscanf(raw, "%d", &idx); err == nil {
			in.CoverIndex = idx
		}
	}

	if raw := c.FormValue("key_features"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.KeyFeatures); err != nil {
			return nil, nil, fmt.Errorf("key_features is not valid JSON: %w", err)
		}
	}
	if raw := c.FormValue("all_features"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.AllFeatures); err != nil {
			return nil, nil, fmt.Errorf("all_features is not valid JSON: %w", err)
		}
	}

	var files []utils.FileInput
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["media"] {
			data, err := readMultipartFile(fh)
			if err != nil {
				return nil, nil, err
			}
			files = append(files, utils.FileInput{
				Name:        utils.NormalizeFileName(fh.Filename),
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	return &in, files, nil
}

func intField(raw string) *int {
	if raw == "" {
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return nil
	}
	return &n
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
