package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SentNotification is the durable record of an emitted event. Delivery
// (email, chat) is handled by external collaborators reading this log.
type SentNotification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Event     string         `json:"event" gorm:"not null;index"`
	ProjectID string         `json:"project_id" gorm:"not null;index"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// Events emitted by the engagement service.
const (
	EventStageDelivered    = "stage.delivered"
	EventStageApproved     = "stage.approved"
	EventRevisionRequested = "revision.requested"
	EventRevisionLogged    = "revision.logged"
	EventPaymentMarked     = "payment.marked"
	EventPaymentVerified   = "payment.verified"
	EventPaymentRejected   = "payment.rejected"
	EventExtensionMarked   = "extension.marked"
	EventExtensionVerified = "extension.verified"
	EventExtensionRejected = "extension.rejected"
	EventProjectCompleted  = "project.completed"
	EventClaimReminder     = "claim.reminder"
)
