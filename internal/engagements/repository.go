package engagements

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the set of data operations available both on the root
// connection and inside a transaction.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*Project, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status ProjectStatus) error

	GetStage(ctx context.Context, id uuid.UUID) (*Stage, error)
	GetStageForUpdate(ctx context.Context, id uuid.UUID) (*Stage, error)
	NextStageForUpdate(ctx context.Context, projectID uuid.UUID, afterNumber int) (*Stage, error)
	ListStages(ctx context.Context, projectID uuid.UUID) ([]Stage, error)
	UpdateStage(ctx context.Context, stage *Stage) error

	CreateDeliverable(ctx context.Context, d *Deliverable) error
	ListDeliverables(ctx context.Context, stageID uuid.UUID) ([]Deliverable, error)
	CountDeliverables(ctx context.Context, stageID uuid.UUID) (int, error)

	CreateRevision(ctx context.Context, r *Revision) error
	ListRevisions(ctx context.Context, stageID uuid.UUID) ([]Revision, error)
	NextRevisionSequence(ctx context.Context, stageID uuid.UUID) (int, error)
	CompleteOpenRevisions(ctx context.Context, stageID uuid.UUID, at time.Time) error

	CreateClaim(ctx context.Context, c *PaymentClaim) error
	GetClaim(ctx context.Context, id uuid.UUID) (*PaymentClaim, error)
	GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*PaymentClaim, error)
	GetOutstandingClaim(ctx context.Context, stageID uuid.UUID, kind ClaimKind) (*PaymentClaim, error)
	ListClaims(ctx context.Context, stageID uuid.UUID) ([]PaymentClaim, error)
	ListOutstandingClaims(ctx context.Context, projectID uuid.UUID) ([]PaymentClaim, error)
	UpdateClaim(ctx context.Context, c *PaymentClaim) error
}

// Repository is a Store that can also open transactional scopes.
type Repository interface {
	Store
	// InTx runs fn inside a single database transaction. Row locks taken
	// via the ForUpdate accessors are held until commit or rollback.
	InTx(ctx context.Context, fn func(Store) error) error
	// ResolveShareCode satisfies the auth middleware's resolver.
	ResolveShareCode(ctx context.Context, code string) (uuid.UUID, error)
}

type store struct {
	ext sqlx.ExtContext
}

type postgresRepository struct {
	db *sqlx.DB
	store
}

// NewRepository wraps a Postgres connection pool.
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db, store: store{ext: db}}
}

func (r *postgresRepository) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&store{ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *postgresRepository) ResolveShareCode(ctx context.Context, code string) (uuid.UUID, error) {
	p, err := r.getProjectWhere(ctx, "share_code = $1", code)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *store) getProjectWhere(ctx context.Context, where string, arg interface{}) (*Project, error) {
	var p Project
	err := sqlx.GetContext(ctx, s.ext, &p, "SELECT * FROM projects WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *store) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.getProjectWhere(ctx, "id = $1", id)
}

func (s *store) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.getProjectWhere(ctx, "id = $1 FOR UPDATE", id)
}

func (s *store) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status ProjectStatus) error {
	_, err := s.ext.ExecContext(ctx,
		"UPDATE projects SET status = $1, updated_at = now() WHERE id = $2", status, id)
	return err
}

func (s *store) getStageWhere(ctx context.Context, query string, args ...interface{}) (*Stage, error) {
	var st Stage
	err := sqlx.GetContext(ctx, s.ext, &st, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *store) GetStage(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return s.getStageWhere(ctx, "SELECT * FROM stages WHERE id = $1", id)
}

func (s *store) GetStageForUpdate(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return s.getStageWhere(ctx, "SELECT * FROM stages WHERE id = $1 FOR UPDATE", id)
}

// NextStageForUpdate returns the lowest-numbered stage after afterNumber,
// locked. ErrNotFound means the predecessor was the project's last stage.
func (s *store) NextStageForUpdate(ctx context.Context, projectID uuid.UUID, afterNumber int) (*Stage, error) {
	return s.getStageWhere(ctx, `
		SELECT * FROM stages
		WHERE project_id = $1 AND stage_number > $2
		ORDER BY stage_number ASC
		LIMIT 1 FOR UPDATE`, projectID, afterNumber)
}

func (s *store) ListStages(ctx context.Context, projectID uuid.UUID) ([]Stage, error) {
	var stages []Stage
	err := sqlx.SelectContext(ctx, s.ext, &stages,
		"SELECT * FROM stages WHERE project_id = $1 ORDER BY stage_number ASC", projectID)
	return stages, err
}

func (s *store) UpdateStage(ctx context.Context, stage *Stage) error {
	query := `
		UPDATE stages SET
			status = :status,
			payment_status = :payment_status,
			revisions_included = :revisions_included,
			revisions_used = :revisions_used,
			extension_purchased = :extension_purchased,
			extension_price = :extension_price,
			extension_revisions_used = :extension_revisions_used,
			delivered_at = :delivered_at,
			approved_at = :approved_at,
			payment_received_at = :payment_received_at,
			updated_at = now()
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, stage)
	return err
}

func (s *store) CreateDeliverable(ctx context.Context, d *Deliverable) error {
	query := `
		INSERT INTO deliverables (id, stage_id, url, title, created_at)
		VALUES (:id, :stage_id, :url, :title, :created_at)`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, d)
	return err
}

func (s *store) ListDeliverables(ctx context.Context, stageID uuid.UUID) ([]Deliverable, error) {
	var out []Deliverable
	err := sqlx.SelectContext(ctx, s.ext, &out,
		"SELECT * FROM deliverables WHERE stage_id = $1 ORDER BY created_at ASC", stageID)
	return out, err
}

func (s *store) CountDeliverables(ctx context.Context, stageID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.ext, &n,
		"SELECT COUNT(*) FROM deliverables WHERE stage_id = $1", stageID)
	return n, err
}

func (s *store) CreateRevision(ctx context.Context, r *Revision) error {
	query := `
		INSERT INTO revisions (id, stage_id, sequence, feedback, requested_at, completed_at)
		VALUES (:id, :stage_id, :sequence, :feedback, :requested_at, :completed_at)`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, r)
	return err
}

func (s *store) ListRevisions(ctx context.Context, stageID uuid.UUID) ([]Revision, error) {
	var out []Revision
	err := sqlx.SelectContext(ctx, s.ext, &out,
		"SELECT * FROM revisions WHERE stage_id = $1 ORDER BY sequence ASC", stageID)
	return out, err
}

func (s *store) NextRevisionSequence(ctx context.Context, stageID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.ext, &n,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM revisions WHERE stage_id = $1", stageID)
	return n, err
}

func (s *store) CompleteOpenRevisions(ctx context.Context, stageID uuid.UUID, at time.Time) error {
	_, err := s.ext.ExecContext(ctx,
		"UPDATE revisions SET completed_at = $1 WHERE stage_id = $2 AND completed_at IS NULL",
		at, stageID)
	return err
}

func (s *store) CreateClaim(ctx context.Context, c *PaymentClaim) error {
	query := `
		INSERT INTO payment_claims (
			id, stage_id, kind, amount, reference_code, channel, status, marked_paid_at
		) VALUES (
			:id, :stage_id, :kind, :amount, :reference_code, :channel, :status, :marked_paid_at
		)`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, c)
	if isUniqueViolation(err) {
		// The partial unique index on outstanding claims (and the unique
		// reference code) is the real duplicate-submission guard.
		return ErrDuplicateClaim
	}
	return err
}

func (s *store) getClaimWhere(ctx context.Context, query string, args ...interface{}) (*PaymentClaim, error) {
	var c PaymentClaim
	err := sqlx.GetContext(ctx, s.ext, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *store) GetClaim(ctx context.Context, id uuid.UUID) (*PaymentClaim, error) {
	return s.getClaimWhere(ctx, "SELECT * FROM payment_claims WHERE id = $1", id)
}

func (s *store) GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*PaymentClaim, error) {
	return s.getClaimWhere(ctx, "SELECT * FROM payment_claims WHERE id = $1 FOR UPDATE", id)
}

func (s *store) GetOutstandingClaim(ctx context.Context, stageID uuid.UUID, kind ClaimKind) (*PaymentClaim, error) {
	return s.getClaimWhere(ctx, `
		SELECT * FROM payment_claims
		WHERE stage_id = $1 AND kind = $2 AND status = 'marked_paid'`, stageID, kind)
}

func (s *store) ListClaims(ctx context.Context, stageID uuid.UUID) ([]PaymentClaim, error) {
	var out []PaymentClaim
	err := sqlx.SelectContext(ctx, s.ext, &out,
		"SELECT * FROM payment_claims WHERE stage_id = $1 ORDER BY marked_paid_at DESC", stageID)
	return out, err
}

func (s *store) ListOutstandingClaims(ctx context.Context, projectID uuid.UUID) ([]PaymentClaim, error) {
	var out []PaymentClaim
	err := sqlx.SelectContext(ctx, s.ext, &out, `
		SELECT c.* FROM payment_claims c
		JOIN stages st ON st.id = c.stage_id
		WHERE st.project_id = $1 AND c.status = 'marked_paid'
		ORDER BY c.marked_paid_at ASC`, projectID)
	return out, err
}

func (s *store) UpdateClaim(ctx context.Context, c *PaymentClaim) error {
	query := `
		UPDATE payment_claims SET
			status = :status,
			verified_at = :verified_at,
			rejected_at = :rejected_at,
			rejection_reason = :rejection_reason
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, c)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isTransient reports lock or serialization failures worth retrying:
// serialization_failure, deadlock_detected, lock_not_available.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
