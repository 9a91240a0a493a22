package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"riseagain/models"
	"riseagain/utils"
)

// DeliveryWorker drains queued outbound messages and hands them to SMTP,
// advancing each to sent or failed.
type DeliveryWorker struct {
	DB     *gorm.DB
	Mailer *utils.Mailer
	Logger *log.Logger
}

func NewDeliveryWorker(db *gorm.DB, mailer *utils.Mailer, logger *log.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		DB:     db,
		Mailer: mailer,
		Logger: logger,
	}
}

func (dw *DeliveryWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	dw.Logger.Println("Delivery worker started")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Delivery worker shutting down...")
			return
		case <-ticker.C:
			dw.processQueuedMessages()
		}
	}
}

func (dw *DeliveryWorker) processQueuedMessages() {
	var queued []models.Message
	if err := dw.DB.Preload("Attachments").
		Where("direction = ? AND status = ?", models.DirectionOutbound, models.MessageStatusQueued).
		Order("created_at ASC").
		Limit(20).
		Find(&queued).Error; err != nil {
		dw.Logger.Printf("Error fetching queued messages: %v", err)
		return
	}

	for i := range queued {
		msg := &queued[i]
		if err := dw.deliver(msg); err != nil {
			dw.Logger.Printf("Error delivering message %d: %v", msg.ID, err)
			dw.markFailed(msg, err.Error())
			continue
		}
		dw.markSent(msg)
	}
}

func (dw *DeliveryWorker) deliver(msg *models.Message) error {
	return dw.Mailer.SendReply(msg, msg.Attachments)
}

func (dw *DeliveryWorker) markSent(msg *models.Message) {
	if err := dw.DB.Model(msg).Updates(map[string]interface{}{
		"status":        models.MessageStatusSent,
		"failed_reason": "",
	}).Error; err != nil {
		dw.Logger.Printf("Error marking message %d sent: %v", msg.ID, err)
		return
	}
	dw.Logger.Printf("✅ Message %d sent to %s", msg.ID, msg.ToEmail)
}

func (dw *DeliveryWorker) markFailed(msg *models.Message, reason string) {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	if err := dw.DB.Model(msg).Updates(map[string]interface{}{
		"status":        models.MessageStatusFailed,
		"failed_reason": reason,
	}).Error; err != nil {
		dw.Logger.Printf("Error marking message %d failed: %v", msg.ID, err)
	}
}
