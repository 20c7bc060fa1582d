package engagements

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

type StageStatus string

const (
	StageLocked            StageStatus = "locked"
	StageActive            StageStatus = "active"
	StageInProgress        StageStatus = "in_progress"
	StageDelivered         StageStatus = "delivered"
	StageApproved          StageStatus = "approved"
	StageRevisionRequested StageStatus = "revision_requested"
	StagePaymentPending    StageStatus = "payment_pending"
	StageCompleted         StageStatus = "completed"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentReceived PaymentStatus = "received"
)

type ClaimStatus string

const (
	ClaimMarkedPaid ClaimStatus = "marked_paid"
	ClaimVerified   ClaimStatus = "verified"
	ClaimRejected   ClaimStatus = "rejected"
)

// ClaimKind separates stage payments from extension purchases. Both run
// the same mark-paid/verify protocol against separate outstanding slots.
type ClaimKind string

const (
	ClaimKindStage     ClaimKind = "stage"
	ClaimKindExtension ClaimKind = "extension"
)

// Project is one engagement between a freelancer and a client. Amounts are
// opaque integers in the project's single currency.
type Project struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	OwnerID     uuid.UUID     `json:"owner_id" db:"owner_id"`
	Name        string        `json:"name" db:"name"`
	Currency    string        `json:"currency" db:"currency"`
	TotalAmount int64         `json:"total_amount" db:"total_amount"`
	Status      ProjectStatus `json:"status" db:"status"`
	ShareCode   string        `json:"-" db:"share_code"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Stage is one billable milestone. Stage number 0 is an optional
// down-payment gate: it carries no revisions and no deliverables.
type Stage struct {
	ID                     uuid.UUID     `json:"id" db:"id"`
	ProjectID              uuid.UUID     `json:"project_id" db:"project_id"`
	StageNumber            int           `json:"stage_number" db:"stage_number"`
	Title                  string        `json:"title" db:"title"`
	Amount                 int64         `json:"amount" db:"amount"`
	Status                 StageStatus   `json:"status" db:"status"`
	PaymentStatus          PaymentStatus `json:"payment_status" db:"payment_status"`
	RevisionsIncluded      int           `json:"revisions_included" db:"revisions_included"`
	RevisionsUsed          int           `json:"revisions_used" db:"revisions_used"`
	ExtensionPurchased     bool          `json:"extension_purchased" db:"extension_purchased"`
	ExtensionPrice         int64         `json:"extension_price" db:"extension_price"`
	ExtensionRevisionsUsed int           `json:"extension_revisions_used" db:"extension_revisions_used"`
	DeliveredAt            *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	ApprovedAt             *time.Time    `json:"approved_at,omitempty" db:"approved_at"`
	PaymentReceivedAt      *time.Time    `json:"payment_received_at,omitempty" db:"payment_received_at"`
	CreatedAt              time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at" db:"updated_at"`
}

// IsDownPayment reports whether the stage is the number-0 payment gate.
func (s *Stage) IsDownPayment() bool {
	return s.StageNumber == 0
}

type Deliverable struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StageID   uuid.UUID `json:"stage_id" db:"stage_id"`
	URL       string    `json:"url" db:"url"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Revision struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	StageID     uuid.UUID  `json:"stage_id" db:"stage_id"`
	Sequence    int        `json:"sequence" db:"sequence"`
	Feedback    string     `json:"feedback" db:"feedback"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// PaymentClaim is the client's assertion that money changed hands,
// correlated by a human-readable reference code. Verification is the
// freelancer's confirmation; no money ever moves through this system.
type PaymentClaim struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	StageID         uuid.UUID   `json:"stage_id" db:"stage_id"`
	Kind            ClaimKind   `json:"kind" db:"kind"`
	Amount          int64       `json:"amount" db:"amount"`
	ReferenceCode   string      `json:"reference_code" db:"reference_code"`
	Channel         string      `json:"channel" db:"channel"`
	Status          ClaimStatus `json:"status" db:"status"`
	MarkedPaidAt    time.Time   `json:"marked_paid_at" db:"marked_paid_at"`
	VerifiedAt      *time.Time  `json:"verified_at,omitempty" db:"verified_at"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectionReason *string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
}

// ProjectOverview is the read model served to both portal views.
type ProjectOverview struct {
	Project Project `json:"project"`
	Stages  []Stage `json:"stages"`
}

// StageDetail is a stage with its child records.
type StageDetail struct {
	Stage        Stage          `json:"stage"`
	Deliverables []Deliverable  `json:"deliverables"`
	Revisions    []Revision     `json:"revisions"`
	Claims       []PaymentClaim `json:"claims"`
}

// VerifyResult reports the outcome of a stage-payment verification,
// including the downstream stage unlocked by it, if any.
type VerifyResult struct {
	Stage           Stage      `json:"stage"`
	UnlockedStageID *uuid.UUID `json:"unlocked_stage_id,omitempty"`
	ProjectComplete bool       `json:"project_complete"`
}
