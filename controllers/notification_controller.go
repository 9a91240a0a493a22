package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"riseagain/models"
	"riseagain/utils"
)

const notificationPageSize = 40

type NotificationController struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewNotificationController(db *gorm.DB, logger *logrus.Logger) *NotificationController {
	return &NotificationController{db: db, logger: logger}
}

// GetNotifications returns the admin's latest notifications, newest
// first.
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)

	var notifications []models.Notification
	if err := nc.db.Where("admin_user_id = ?", adminID).
		Order("created_at DESC").
		Limit(notificationPageSize).
		Find(&notifications).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch notifications", err)
	}

	var unread int64
	if err := nc.db.Model(&models.Notification{}).
		Where("admin_user_id = ? AND is_read = ?", adminID, false).
		Count(&unread).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count notifications", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"notifications": notifications,
		"unread_count":  unread,
	}))
}

// MarkNotificationRead marks one of the admin's notifications read.
func (nc *NotificationController) MarkNotificationRead(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)
	id := utils.ParseUint(c.Params("id"))
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	res := nc.db.Model(&models.Notification{}).
		Where("id = ? AND admin_user_id = ?", id, adminID).
		Update("is_read", true)
	if res.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// StreamNotifications pushes the admin's unread notifications over a
// websocket on a short poll interval. The connection closes when the
// client goes away or stops responding.
func (nc *NotificationController) StreamNotifications() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		adminID, ok := conn.Locals("adminID").(uint)
		if !ok {
			conn.Close()
			return
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		defer conn.Close()

		var lastSeen uint
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				var unread []models.Notification
				if err := nc.db.Where("admin_user_id = ? AND is_read = ? AND id > ?",
					adminID, false, lastSeen).
					Order("id ASC").
					Find(&unread).Error; err != nil {
					nc.logger.WithError(err).Warn("notification poll failed")
					continue
				}
				if len(unread) == 0 {
					continue
				}
				if err := conn.WriteJSON(fiber.Map{
					"type":          "notifications",
					"notifications": unread,
				}); err != nil {
					return
				}
				lastSeen = unread[len(unread)-1].ID
			}
		}
	})
}

// WebSocketUpgrade gates the ws route to actual upgrade requests.
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
