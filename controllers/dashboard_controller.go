package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"riseagain/models"
	"riseagain/utils"
)

type DashboardController struct {
	db *gorm.DB
}

func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{db: db}
}

// DashboardStats is the aggregate block the admin dashboard renders.
type DashboardStats struct {
	TotalListings     int64                `json:"total_listings"`
	AvailableListings int64                `json:"available_listings"`
	PendingListings   int64                `json:"pending_listings"`
	SoldListings      int64                `json:"sold_listings"`
	UnreadMessages    int64                `json:"unread_messages"`
	OpenConversations int64                `json:"open_conversations"`
	RecentListings    []models.ListingView `json:"recent_listings"`
}

// GetStats computes the dashboard aggregates.
func (dc *DashboardController) GetStats(c *fiber.Ctx) error {
	var stats DashboardStats

	listingCounts := []struct {
		status string
		dest   *int64
	}{
		{"", &stats.TotalListings},
		{models.ListingStatusAvailable, &stats.AvailableListings},
		{models.ListingStatusPending, &stats.PendingListings},
		{models.ListingStatusSold, &stats.SoldListings},
	}
	for _, lc := range listingCounts {
		q := dc.db.Model(&models.Listing{})
		if lc.status != "" {
			q = q.Where("status = ?", lc.status)
		}
		if err := q.Count(lc.dest).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
		}
	}

	if err := dc.db.Model(&models.Message{}).
		Where("direction = ? AND is_read = ?", models.DirectionInbound, false).
		Count(&stats.UnreadMessages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}
	if err := dc.db.Model(&models.Conversation{}).
		Where("is_archived = ?", false).
		Count(&stats.OpenConversations).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}

	var recent []models.Listing
	if err := dc.db.Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}
	stats.RecentListings = make([]models.ListingView, 0, len(recent))
	for i := range recent {
		stats.RecentListings = append(stats.RecentListings, recent[i].View())
	}

	return c.JSON(utils.SuccessResponse(stats))
}
