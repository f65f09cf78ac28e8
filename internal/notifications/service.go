package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

// Service records and delivers notifications. Dispatch is fire and forget:
// callers never see delivery errors, they are logged and kept on the row.
type Service struct {
	db     *gorm.DB
	sender Sender
	logger *zap.Logger
}

// Sender delivers one notification out of process, e.g. over SMTP.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

func NewService(db *gorm.DB, sender Sender, logger *zap.Logger) *Service {
	return &Service{db: db, sender: sender, logger: logger}
}

// Migrate creates the notification table.
func (s *Service) Migrate() error {
	return s.db.AutoMigrate(&Notification{})
}

// Notify persists the notification and attempts delivery. Implements the
// request service's notification sink.
func (s *Service) Notify(ctx context.Context, recipient workflow.Actor, title, message, category string) {
	n := &Notification{
		ID:            uuid.New(),
		RecipientID:   recipient.ID,
		RecipientName: recipient.Name,
		RecipientMail: recipient.Mail,
		Category:      category,
		Title:         title,
		Message:       message,
		Status:        StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		s.logger.Error("Failed to persist notification",
			zap.String("recipientId", recipient.ID.String()),
			zap.String("category", category),
			zap.Error(err))
		return
	}

	if s.sender == nil || n.RecipientMail == "" {
		return
	}
	if err := s.sender.Send(ctx, n); err != nil {
		s.logger.Warn("Notification delivery failed",
			zap.String("notificationId", n.ID.String()),
			zap.String("recipient", n.RecipientMail),
			zap.Error(err))
		s.updateStatus(ctx, n.ID, StatusFailed, err.Error())
		return
	}
	s.updateStatus(ctx, n.ID, StatusSent, "")
}

func (s *Service) updateStatus(ctx context.Context, id uuid.UUID, status, errMsg string) {
	now := time.Now()
	updates := map[string]any{"status": status, "error": errMsg}
	if status == StatusSent {
		updates["sent_at"] = &now
	}
	if err := s.db.WithContext(ctx).Model(&Notification{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logger.Error("Failed to update notification status",
			zap.String("notificationId", id.String()),
			zap.Error(err))
	}
}

// ListForRecipient returns a recipient's notifications, newest first.
func (s *Service) ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]Notification, error) {
	var out []Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkSeen stamps the notification as seen by its recipient.
func (s *Service) MarkSeen(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Update("seen_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
