package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service records engagement events for out-of-band delivery. It is a
// fire-and-forget sink: every failure is logged and swallowed so that a
// broken notification path can never roll back a core transition.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates the sink and migrates its table.
func NewService(db *gorm.DB, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&SentNotification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notifications: %w", err)
	}
	return &Service{db: db, logger: logger}, nil
}

// Notify persists one event. Never returns an error to the caller.
func (s *Service) Notify(ctx context.Context, event string, projectID uuid.UUID, metadata map[string]interface{}) {
	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			s.logger.Warn("dropping unmarshalable notification metadata",
				zap.String("event", event), zap.Error(err))
		} else {
			raw = b
		}
	}

	n := &SentNotification{
		ID:        uuid.New(),
		Event:     event,
		ProjectID: projectID.String(),
		Metadata:  datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		s.logger.Warn("failed to record notification",
			zap.String("event", event),
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		return
	}
	s.logger.Info("notification recorded",
		zap.String("event", event),
		zap.String("project_id", projectID.String()))
}

// ListRecent returns the newest events for a project, for portal display.
func (s *Service) ListRecent(ctx context.Context, projectID uuid.UUID, limit int) ([]SentNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []SentNotification
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
