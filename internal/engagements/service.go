package engagements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"milestone-portal/portal-backend/internal/auth"
	"milestone-portal/portal-backend/pkg/refcode"
)

// Reference-code prefixes for the two claim ledgers.
const (
	stageClaimPrefix     = "PAY"
	extensionClaimPrefix = "EXT"
)

const maxConflictRetries = 3

// Notifier is the fire-and-forget notification sink. Implementations must
// swallow their own failures; a lost notification never fails a transition.
type Notifier interface {
	Notify(ctx context.Context, event string, projectID uuid.UUID, metadata map[string]interface{})
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, uuid.UUID, map[string]interface{}) {}

type DeliverableInput struct {
	URL   string
	Title string
}

type Service interface {
	DeliverStage(ctx context.Context, actor auth.Actor, stageID uuid.UUID, deliverables []DeliverableInput) (*Stage, error)
	RequestRevision(ctx context.Context, actor auth.Actor, stageID uuid.UUID, feedback string) (*Stage, error)
	ApproveStage(ctx context.Context, actor auth.Actor, stageID uuid.UUID) (*Stage, error)
	LogManualRevision(ctx context.Context, actor auth.Actor, stageID uuid.UUID, note string) (*Stage, error)

	SubmitPaymentClaim(ctx context.Context, actor auth.Actor, stageID uuid.UUID, amount int64, channel string) (*PaymentClaim, error)
	VerifyPaymentClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID) (*VerifyResult, error)
	RejectPaymentClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID, reason string) (*PaymentClaim, error)

	SubmitExtensionClaim(ctx context.Context, actor auth.Actor, stageID uuid.UUID, amount int64) (*PaymentClaim, error)
	VerifyExtensionClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID) (*Stage, error)
	RejectExtensionClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID, reason string) (*PaymentClaim, error)

	GetProjectOverview(ctx context.Context, actor auth.Actor, projectID uuid.UUID) (*ProjectOverview, error)
	GetStageDetail(ctx context.Context, actor auth.Actor, stageID uuid.UUID) (*StageDetail, error)
	ListOutstandingClaims(ctx context.Context, actor auth.Actor, projectID uuid.UUID) ([]PaymentClaim, error)
}

type service struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
}

func NewService(repo Repository, notifier Notifier, logger *zap.Logger) Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &service{repo: repo, notifier: notifier, logger: logger}
}

// inTxRetry runs fn in a transaction, retrying transient lock and
// serialization failures with bounded backoff before surfacing ErrConflict.
func (s *service) inTxRetry(ctx context.Context, fn func(Store) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxConflictRetries), ctx)

	err := backoff.Retry(func() error {
		if err := s.repo.InTx(ctx, fn); err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
	if err != nil && isTransient(err) {
		s.logger.Warn("transaction retries exhausted", zap.Error(err))
		return ErrConflict
	}
	return err
}

// authorize checks the actor's role and its scope against the project.
// RoleSystem is a trusted channel and bypasses scope checks.
func authorize(actor auth.Actor, project *Project, roles ...auth.Role) error {
	if !actor.Is(roles...) {
		return ErrUnauthorized
	}
	switch actor.Role {
	case auth.RoleClient:
		if actor.ProjectID != project.ID {
			return ErrUnauthorized
		}
	case auth.RoleFreelancer:
		if actor.UserID != project.OwnerID {
			return ErrUnauthorized
		}
	}
	return nil
}

func projectWritable(p *Project) error {
	if p.Status != ProjectActive {
		return fmt.Errorf("project is %s: %w", p.Status, ErrInvalidState)
	}
	return nil
}

func (s *service) notify(event string, projectID uuid.UUID, metadata map[string]interface{}) {
	// Fired after commit; the sink swallows its own failures.
	s.notifier.Notify(context.Background(), event, projectID, metadata)
}

func (s *service) DeliverStage(ctx context.Context, actor auth.Actor, stageID uuid.UUID, deliverables []DeliverableInput) (*Stage, error) {
	var result *Stage
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		if stage.IsDownPayment() {
			return fmt.Errorf("down-payment stage carries no deliverables: %w", ErrInvalidState)
		}
		if !canTransition(stage.Status, StageDelivered) {
			return fmt.Errorf("cannot deliver from %s: %w", stage.Status, ErrInvalidState)
		}

		now := time.Now()
		for _, in := range deliverables {
			d := &Deliverable{
				ID:        uuid.New(),
				StageID:   stage.ID,
				URL:       in.URL,
				Title:     in.Title,
				CreatedAt: now,
			}
			if err := st.CreateDeliverable(ctx, d); err != nil {
				return err
			}
		}
		count, err := st.CountDeliverables(ctx, stage.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("stage has no deliverables: %w", ErrInvalidState)
		}
		if err := st.CompleteOpenRevisions(ctx, stage.ID, now); err != nil {
			return err
		}

		stage.Status = StageDelivered
		stage.DeliveredAt = &now
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stage delivered",
		zap.String("stage_id", stageID.String()),
		zap.Int("stage_number", result.StageNumber))
	s.notify("stage.delivered", result.ProjectID, map[string]interface{}{"stage_id": stageID.String()})
	return result, nil
}

func (s *service) RequestRevision(ctx context.Context, actor auth.Actor, stageID uuid.UUID, feedback string) (*Stage, error) {
	var result *Stage
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleClient); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		if !canTransition(stage.Status, StageRevisionRequested) {
			return fmt.Errorf("cannot request revision from %s: %w", stage.Status, ErrInvalidState)
		}
		// Credit consumption is serialized by the stage row lock.
		if err := ConsumeCredit(stage); err != nil {
			return err
		}
		seq, err := st.NextRevisionSequence(ctx, stage.ID)
		if err != nil {
			return err
		}
		rev := &Revision{
			ID:          uuid.New(),
			StageID:     stage.ID,
			Sequence:    seq,
			Feedback:    feedback,
			RequestedAt: time.Now(),
		}
		if err := st.CreateRevision(ctx, rev); err != nil {
			return err
		}
		stage.Status = StageRevisionRequested
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("revision requested",
		zap.String("stage_id", stageID.String()),
		zap.Int("revisions_used", result.RevisionsUsed))
	s.notify("revision.requested", result.ProjectID, map[string]interface{}{"stage_id": stageID.String()})
	return result, nil
}

func (s *service) ApproveStage(ctx context.Context, actor auth.Actor, stageID uuid.UUID) (*Stage, error) {
	var result *Stage
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleClient); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		if !canTransition(stage.Status, StageApproved) {
			return fmt.Errorf("cannot approve from %s: %w", stage.Status, ErrInvalidState)
		}
		now := time.Now()
		stage.Status = StageApproved
		stage.ApprovedAt = &now
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("stage.approved", result.ProjectID, map[string]interface{}{"stage_id": stageID.String()})
	return result, nil
}

// LogManualRevision records an out-of-band change agreed in chat. It draws
// a credit and pushes the stage back to in_progress from any workable
// state, outside the client-facing transition table.
func (s *service) LogManualRevision(ctx context.Context, actor auth.Actor, stageID uuid.UUID, note string) (*Stage, error) {
	var result *Stage
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		if stage.IsDownPayment() || !workable(stage.Status) {
			return fmt.Errorf("cannot log revision from %s: %w", stage.Status, ErrInvalidState)
		}
		if err := ConsumeCredit(stage); err != nil {
			return err
		}
		seq, err := st.NextRevisionSequence(ctx, stage.ID)
		if err != nil {
			return err
		}
		rev := &Revision{
			ID:          uuid.New(),
			StageID:     stage.ID,
			Sequence:    seq,
			Feedback:    note,
			RequestedAt: time.Now(),
		}
		if err := st.CreateRevision(ctx, rev); err != nil {
			return err
		}
		stage.Status = StageInProgress
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("revision.logged", result.ProjectID, map[string]interface{}{"stage_id": stageID.String()})
	return result, nil
}

func (s *service) SubmitPaymentClaim(ctx context.Context, actor auth.Actor, stageID uuid.UUID, amount int64, channel string) (*PaymentClaim, error) {
	if channel == "" {
		channel = "manual"
	}
	var result *PaymentClaim
	var projectID uuid.UUID
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleClient); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		// The outstanding-claim check comes first: a second mark-paid on a
		// payment_pending stage is a duplicate, not an illegal transition.
		if _, err := st.GetOutstandingClaim(ctx, stage.ID, ClaimKindStage); err == nil {
			return ErrDuplicateClaim
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if !canTransition(stage.Status, StagePaymentPending) {
			return fmt.Errorf("cannot mark paid from %s: %w", stage.Status, ErrInvalidState)
		}
		if stage.Status == StageActive && !stage.IsDownPayment() {
			// Only the down-payment gate may be paid without delivery.
			return fmt.Errorf("stage not delivered: %w", ErrInvalidState)
		}

		claim := &PaymentClaim{
			ID:            uuid.New(),
			StageID:       stage.ID,
			Kind:          ClaimKindStage,
			Amount:        amount,
			ReferenceCode: refcode.New(stageClaimPrefix, stage.ID),
			Channel:       channel,
			Status:        ClaimMarkedPaid,
			MarkedPaidAt:  time.Now(),
		}
		if err := st.CreateClaim(ctx, claim); err != nil {
			return err
		}
		stage.Status = StagePaymentPending
		stage.PaymentStatus = PaymentPending
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = claim
		projectID = stage.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment marked",
		zap.String("stage_id", stageID.String()),
		zap.String("reference_code", result.ReferenceCode))
	s.notify("payment.marked", projectID, map[string]interface{}{
		"stage_id": stageID.String(),
		"claim_id": result.ID.String(),
	})
	return result, nil
}

// VerifyPaymentClaim confirms a stage payment. Claim, stage, downstream
// unlock and project completion all commit in one transaction; a second
// verification of the same claim fails ErrAlreadyVerified with no
// double-unlock. The trusted payment webhook calls this directly.
func (s *service) VerifyPaymentClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID) (*VerifyResult, error) {
	var result VerifyResult
	var projectID uuid.UUID
	err := s.inTxRetry(ctx, func(st Store) error {
		claim, err := st.GetClaimForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Kind != ClaimKindStage {
			return fmt.Errorf("claim %s is not a stage payment: %w", claimID, ErrNotFound)
		}
		stage, err := st.GetStageForUpdate(ctx, claim.StageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer, auth.RoleSystem); err != nil {
			return err
		}
		switch claim.Status {
		case ClaimVerified:
			return ErrAlreadyVerified
		case ClaimRejected:
			return ErrAlreadyRejected
		}
		if !canTransition(stage.Status, StageCompleted) {
			return fmt.Errorf("cannot complete from %s: %w", stage.Status, ErrInvalidState)
		}

		now := time.Now()
		claim.Status = ClaimVerified
		claim.VerifiedAt = &now
		if err := st.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		stage.Status = StageCompleted
		stage.PaymentStatus = PaymentReceived
		stage.PaymentReceivedAt = &now
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}

		unlockedID, complete, err := unlockNext(ctx, st, stage)
		if err != nil {
			return err
		}
		result = VerifyResult{Stage: *stage, UnlockedStageID: unlockedID, ProjectComplete: complete}
		projectID = stage.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment verified",
		zap.String("claim_id", claimID.String()),
		zap.Bool("project_complete", result.ProjectComplete))
	s.notify("payment.verified", projectID, map[string]interface{}{
		"claim_id": claimID.String(),
		"stage_id": result.Stage.ID.String(),
	})
	if result.ProjectComplete {
		s.notify("project.completed", projectID, nil)
	}
	return &result, nil
}

// unlockNext is the project unlock coordinator. Given a stage that just
// completed, it activates the next stage by number or, when none remains,
// completes the project. Re-running it for an already-unlocked successor
// is a no-op.
func unlockNext(ctx context.Context, st Store, completed *Stage) (*uuid.UUID, bool, error) {
	next, err := st.NextStageForUpdate(ctx, completed.ProjectID, completed.StageNumber)
	if err == ErrNotFound {
		// Last stage: the project is done.
		if err := st.UpdateProjectStatus(ctx, completed.ProjectID, ProjectCompleted); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if next.Status != StageLocked {
		return nil, false, nil
	}
	next.Status = StageActive
	if err := st.UpdateStage(ctx, next); err != nil {
		return nil, false, err
	}
	return &next.ID, false, nil
}

func (s *service) RejectPaymentClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID, reason string) (*PaymentClaim, error) {
	var result *PaymentClaim
	var projectID uuid.UUID
	err := s.inTxRetry(ctx, func(st Store) error {
		claim, err := st.GetClaimForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Kind != ClaimKindStage {
			return fmt.Errorf("claim %s is not a stage payment: %w", claimID, ErrNotFound)
		}
		stage, err := st.GetStageForUpdate(ctx, claim.StageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer); err != nil {
			return err
		}
		switch claim.Status {
		case ClaimVerified:
			return ErrAlreadyVerified
		case ClaimRejected:
			return ErrAlreadyRejected
		}

		now := time.Now()
		claim.Status = ClaimRejected
		claim.RejectedAt = &now
		claim.RejectionReason = &reason
		if err := st.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		// Restore the stage exactly as it was before the claim so the
		// client can resubmit.
		if stage.Status == StagePaymentPending {
			stage.Status = preClaimStatus(stage)
			stage.PaymentStatus = PaymentUnpaid
			if err := st.UpdateStage(ctx, stage); err != nil {
				return err
			}
		}
		result = claim
		projectID = stage.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("payment.rejected", projectID, map[string]interface{}{
		"claim_id": claimID.String(),
		"reason":   reason,
	})
	return result, nil
}

func (s *service) SubmitExtensionClaim(ctx context.Context, actor auth.Actor, stageID uuid.UUID, amount int64) (*PaymentClaim, error) {
	var result *PaymentClaim
	var projectID uuid.UUID
	err := s.inTxRetry(ctx, func(st Store) error {
		stage, err := st.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleClient); err != nil {
			return err
		}
		if err := projectWritable(project); err != nil {
			return err
		}
		if stage.IsDownPayment() {
			return fmt.Errorf("down-payment stage carries no revisions: %w", ErrInvalidState)
		}
		if stage.Status == StageLocked || stage.Status == StageCompleted {
			return fmt.Errorf("cannot purchase extension for %s stage: %w", stage.Status, ErrInvalidState)
		}
		if _, err := st.GetOutstandingClaim(ctx, stage.ID, ClaimKindExtension); err == nil {
			return ErrDuplicateClaim
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		claim := &PaymentClaim{
			ID:            uuid.New(),
			StageID:       stage.ID,
			Kind:          ClaimKindExtension,
			Amount:        amount,
			ReferenceCode: refcode.New(extensionClaimPrefix, stage.ID),
			Channel:       "manual",
			Status:        ClaimMarkedPaid,
			MarkedPaidAt:  time.Now(),
		}
		if err := st.CreateClaim(ctx, claim); err != nil {
			return err
		}
		result = claim
		projectID = stage.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("extension.marked", projectID, map[string]interface{}{
		"stage_id": stageID.String(),
		"claim_id": result.ID.String(),
	})
	return result, nil
}

// VerifyExtensionClaim confirms an extension purchase: the claim verifies
// and the stage gains one permanent included revision.
func (s *service) VerifyExtensionClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID) (*Stage, error) {
	var result *Stage
	err := s.inTxRetry(ctx, func(st Store) error {
		claim, err := st.GetClaimForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Kind != ClaimKindExtension {
			return fmt.Errorf("claim %s is not an extension purchase: %w", claimID, ErrNotFound)
		}
		stage, err := st.GetStageForUpdate(ctx, claim.StageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer, auth.RoleSystem); err != nil {
			return err
		}
		switch claim.Status {
		case ClaimVerified:
			return ErrAlreadyVerified
		case ClaimRejected:
			return ErrAlreadyRejected
		}
		if stage.Status == StageCompleted || stage.Status == StageLocked {
			return fmt.Errorf("cannot grant extension for %s stage: %w", stage.Status, ErrInvalidState)
		}

		now := time.Now()
		claim.Status = ClaimVerified
		claim.VerifiedAt = &now
		if err := st.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		GrantExtensionCredit(stage, claim.Amount)
		if err := st.UpdateStage(ctx, stage); err != nil {
			return err
		}
		result = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("extension verified",
		zap.String("claim_id", claimID.String()),
		zap.Int("revisions_included", result.RevisionsIncluded))
	s.notify("extension.verified", result.ProjectID, map[string]interface{}{
		"claim_id": claimID.String(),
		"stage_id": result.ID.String(),
	})
	return result, nil
}

func (s *service) RejectExtensionClaim(ctx context.Context, actor auth.Actor, claimID uuid.UUID, reason string) (*PaymentClaim, error) {
	var result *PaymentClaim
	var projectID uuid.UUID
	err := s.inTxRetry(ctx, func(st Store) error {
		claim, err := st.GetClaimForUpdate(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Kind != ClaimKindExtension {
			return fmt.Errorf("claim %s is not an extension purchase: %w", claimID, ErrNotFound)
		}
		stage, err := st.GetStage(ctx, claim.StageID)
		if err != nil {
			return err
		}
		project, err := st.GetProject(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if err := authorize(actor, project, auth.RoleFreelancer); err != nil {
			return err
		}
		switch claim.Status {
		case ClaimVerified:
			return ErrAlreadyVerified
		case ClaimRejected:
			return ErrAlreadyRejected
		}
		now := time.Now()
		claim.Status = ClaimRejected
		claim.RejectedAt = &now
		claim.RejectionReason = &reason
		if err := st.UpdateClaim(ctx, claim); err != nil {
			return err
		}
		result = claim
		projectID = stage.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("extension.rejected", projectID, map[string]interface{}{
		"claim_id": claimID.String(),
		"reason":   reason,
	})
	return result, nil
}

func (s *service) GetProjectOverview(ctx context.Context, actor auth.Actor, projectID uuid.UUID) (*ProjectOverview, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, project, auth.RoleFreelancer, auth.RoleClient, auth.RoleSystem); err != nil {
		return nil, err
	}
	stages, err := s.repo.ListStages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectOverview{Project: *project, Stages: stages}, nil
}

func (s *service) GetStageDetail(ctx context.Context, actor auth.Actor, stageID uuid.UUID) (*StageDetail, error) {
	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(ctx, stage.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, project, auth.RoleFreelancer, auth.RoleClient, auth.RoleSystem); err != nil {
		return nil, err
	}
	deliverables, err := s.repo.ListDeliverables(ctx, stageID)
	if err != nil {
		return nil, err
	}
	revisions, err := s.repo.ListRevisions(ctx, stageID)
	if err != nil {
		return nil, err
	}
	claims, err := s.repo.ListClaims(ctx, stageID)
	if err != nil {
		return nil, err
	}
	return &StageDetail{
		Stage:        *stage,
		Deliverables: deliverables,
		Revisions:    revisions,
		Claims:       claims,
	}, nil
}

func (s *service) ListOutstandingClaims(ctx context.Context, actor auth.Actor, projectID uuid.UUID) ([]PaymentClaim, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, project, auth.RoleFreelancer, auth.RoleClient, auth.RoleSystem); err != nil {
		return nil, err
	}
	return s.repo.ListOutstandingClaims(ctx, projectID)
}
