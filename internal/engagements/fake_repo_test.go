package engagements

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository. A mutex serializes transactions the
// way row locks do in Postgres, and each transaction works on a deep copy
// that only commits on success, so all-or-nothing semantics hold.
type fakeRepo struct {
	mu   sync.Mutex
	data *fakeData
}

type fakeData struct {
	projects     map[uuid.UUID]Project
	stages       map[uuid.UUID]Stage
	deliverables map[uuid.UUID][]Deliverable
	revisions    map[uuid.UUID][]Revision
	claims       map[uuid.UUID]PaymentClaim
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{data: &fakeData{
		projects:     make(map[uuid.UUID]Project),
		stages:       make(map[uuid.UUID]Stage),
		deliverables: make(map[uuid.UUID][]Deliverable),
		revisions:    make(map[uuid.UUID][]Revision),
		claims:       make(map[uuid.UUID]PaymentClaim),
	}}
}

func (d *fakeData) clone() *fakeData {
	c := &fakeData{
		projects:     make(map[uuid.UUID]Project, len(d.projects)),
		stages:       make(map[uuid.UUID]Stage, len(d.stages)),
		deliverables: make(map[uuid.UUID][]Deliverable, len(d.deliverables)),
		revisions:    make(map[uuid.UUID][]Revision, len(d.revisions)),
		claims:       make(map[uuid.UUID]PaymentClaim, len(d.claims)),
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.stages {
		c.stages[k] = v
	}
	for k, v := range d.deliverables {
		c.deliverables[k] = append([]Deliverable(nil), v...)
	}
	for k, v := range d.revisions {
		c.revisions[k] = append([]Revision(nil), v...)
	}
	for k, v := range d.claims {
		c.claims[k] = v
	}
	return c
}

func (r *fakeRepo) InTx(_ context.Context, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.data.clone()
	if err := fn(&fakeStore{data: work}); err != nil {
		return err
	}
	r.data = work
	return nil
}

func (r *fakeRepo) ResolveShareCode(_ context.Context, code string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data.projects {
		if p.ShareCode == code {
			return p.ID, nil
		}
	}
	return uuid.Nil, ErrNotFound
}

// test seeding helpers

func (r *fakeRepo) addProject(p Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.projects[p.ID] = p
}

func (r *fakeRepo) addStage(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.stages[s.ID] = s
}

func (r *fakeRepo) addDeliverable(d Deliverable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.deliverables[d.StageID] = append(r.data.deliverables[d.StageID], d)
}

func (r *fakeRepo) stage(id uuid.UUID) Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.stages[id]
}

func (r *fakeRepo) project(id uuid.UUID) Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.projects[id]
}

// root-connection reads delegate to a view under the lock

func (r *fakeRepo) withView(fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&fakeStore{data: r.data})
}

func (r *fakeRepo) GetProject(ctx context.Context, id uuid.UUID) (out *Project, err error) {
	err = r.withView(func(s Store) error { out, err = s.GetProject(ctx, id); return err })
	return
}

func (r *fakeRepo) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*Project, error) {
	return r.GetProject(ctx, id)
}

func (r *fakeRepo) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status ProjectStatus) error {
	return r.withView(func(s Store) error { return s.UpdateProjectStatus(ctx, id, status) })
}

func (r *fakeRepo) GetStage(ctx context.Context, id uuid.UUID) (out *Stage, err error) {
	err = r.withView(func(s Store) error { out, err = s.GetStage(ctx, id); return err })
	return
}

func (r *fakeRepo) GetStageForUpdate(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return r.GetStage(ctx, id)
}

func (r *fakeRepo) NextStageForUpdate(ctx context.Context, projectID uuid.UUID, afterNumber int) (out *Stage, err error) {
	err = r.withView(func(s Store) error { out, err = s.NextStageForUpdate(ctx, projectID, afterNumber); return err })
	return
}

func (r *fakeRepo) ListStages(ctx context.Context, projectID uuid.UUID) (out []Stage, err error) {
	err = r.withView(func(s Store) error { out, err = s.ListStages(ctx, projectID); return err })
	return
}

func (r *fakeRepo) UpdateStage(ctx context.Context, stage *Stage) error {
	return r.withView(func(s Store) error { return s.UpdateStage(ctx, stage) })
}

func (r *fakeRepo) CreateDeliverable(ctx context.Context, d *Deliverable) error {
	return r.withView(func(s Store) error { return s.CreateDeliverable(ctx, d) })
}

func (r *fakeRepo) ListDeliverables(ctx context.Context, stageID uuid.UUID) (out []Deliverable, err error) {
	err = r.withView(func(s Store) error { out, err = s.ListDeliverables(ctx, stageID); return err })
	return
}

func (r *fakeRepo) CountDeliverables(ctx context.Context, stageID uuid.UUID) (n int, err error) {
	err = r.withView(func(s Store) error { n, err = s.CountDeliverables(ctx, stageID); return err })
	return
}

func (r *fakeRepo) CreateRevision(ctx context.Context, rev *Revision) error {
	return r.withView(func(s Store) error { return s.CreateRevision(ctx, rev) })
}

func (r *fakeRepo) ListRevisions(ctx context.Context, stageID uuid.UUID) (out []Revision, err error) {
	err = r.withView(func(s Store) error { out, err = s.ListRevisions(ctx, stageID); return err })
	return
}

func (r *fakeRepo) NextRevisionSequence(ctx context.Context, stageID uuid.UUID) (n int, err error) {
	err = r.withView(func(s Store) error { n, err = s.NextRevisionSequence(ctx, stageID); return err })
	return
}

func (r *fakeRepo) CompleteOpenRevisions(ctx context.Context, stageID uuid.UUID, at time.Time) error {
	return r.withView(func(s Store) error { return s.CompleteOpenRevisions(ctx, stageID, at) })
}

func (r *fakeRepo) CreateClaim(ctx context.Context, c *PaymentClaim) error {
	return r.withView(func(s Store) error { return s.CreateClaim(ctx, c) })
}

func (r *fakeRepo) GetClaim(ctx context.Context, id uuid.UUID) (out *PaymentClaim, err error) {
	err = r.withView(func(s Store) error { out, err = s.GetClaim(ctx, id); return err })
	return
}

func (r *fakeRepo) GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*PaymentClaim, error) {
	return r.GetClaim(ctx, id)
}

func (r *fakeRepo) GetOutstandingClaim(ctx context.Context, stageID uuid.UUID, kind ClaimKind) (out *PaymentClaim, err error) {
	err = r.withView(func(s Store) error { out, err = s.GetOutstandingClaim(ctx, stageID, kind); return err })
	return
}

func (r *fakeRepo) ListClaims(ctx context.Context, stageID uuid.UUID) (out []PaymentClaim, err error) {
	err = r.withView(func(s Store) error { out, err = s.ListClaims(ctx, stageID); return err })
	return
}

func (r *fakeRepo) ListOutstandingClaims(ctx context.Context, projectID uuid.UUID) (out []PaymentClaim, err error) {
	err = r.withView(func(s Store) error { out, err = s.ListOutstandingClaims(ctx, projectID); return err })
	return
}

func (r *fakeRepo) UpdateClaim(ctx context.Context, c *PaymentClaim) error {
	return r.withView(func(s Store) error { return s.UpdateClaim(ctx, c) })
}

// fakeStore implements Store over one fakeData snapshot.
type fakeStore struct {
	data *fakeData
}

func (f *fakeStore) GetProject(_ context.Context, id uuid.UUID) (*Project, error) {
	p, ok := f.data.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*Project, error) {
	return f.GetProject(ctx, id)
}

func (f *fakeStore) UpdateProjectStatus(_ context.Context, id uuid.UUID, status ProjectStatus) error {
	p, ok := f.data.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	f.data.projects[id] = p
	return nil
}

func (f *fakeStore) GetStage(_ context.Context, id uuid.UUID) (*Stage, error) {
	s, ok := f.data.stages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) GetStageForUpdate(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return f.GetStage(ctx, id)
}

func (f *fakeStore) NextStageForUpdate(_ context.Context, projectID uuid.UUID, afterNumber int) (*Stage, error) {
	var next *Stage
	for id := range f.data.stages {
		s := f.data.stages[id]
		if s.ProjectID != projectID || s.StageNumber <= afterNumber {
			continue
		}
		if next == nil || s.StageNumber < next.StageNumber {
			copied := s
			next = &copied
		}
	}
	if next == nil {
		return nil, ErrNotFound
	}
	return next, nil
}

func (f *fakeStore) ListStages(_ context.Context, projectID uuid.UUID) ([]Stage, error) {
	var out []Stage
	for _, s := range f.data.stages {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageNumber < out[j].StageNumber })
	return out, nil
}

func (f *fakeStore) UpdateStage(_ context.Context, stage *Stage) error {
	if _, ok := f.data.stages[stage.ID]; !ok {
		return ErrNotFound
	}
	f.data.stages[stage.ID] = *stage
	return nil
}

func (f *fakeStore) CreateDeliverable(_ context.Context, d *Deliverable) error {
	f.data.deliverables[d.StageID] = append(f.data.deliverables[d.StageID], *d)
	return nil
}

func (f *fakeStore) ListDeliverables(_ context.Context, stageID uuid.UUID) ([]Deliverable, error) {
	return append([]Deliverable(nil), f.data.deliverables[stageID]...), nil
}

func (f *fakeStore) CountDeliverables(_ context.Context, stageID uuid.UUID) (int, error) {
	return len(f.data.deliverables[stageID]), nil
}

func (f *fakeStore) CreateRevision(_ context.Context, r *Revision) error {
	f.data.revisions[r.StageID] = append(f.data.revisions[r.StageID], *r)
	return nil
}

func (f *fakeStore) ListRevisions(_ context.Context, stageID uuid.UUID) ([]Revision, error) {
	return append([]Revision(nil), f.data.revisions[stageID]...), nil
}

func (f *fakeStore) NextRevisionSequence(_ context.Context, stageID uuid.UUID) (int, error) {
	maxSeq := 0
	for _, r := range f.data.revisions[stageID] {
		if r.Sequence > maxSeq {
			maxSeq = r.Sequence
		}
	}
	return maxSeq + 1, nil
}

func (f *fakeStore) CompleteOpenRevisions(_ context.Context, stageID uuid.UUID, at time.Time) error {
	revs := f.data.revisions[stageID]
	for i := range revs {
		if revs[i].CompletedAt == nil {
			t := at
			revs[i].CompletedAt = &t
		}
	}
	f.data.revisions[stageID] = revs
	return nil
}

func (f *fakeStore) CreateClaim(_ context.Context, c *PaymentClaim) error {
	// Mirrors the partial unique index on outstanding claims and the
	// unique reference code.
	for _, existing := range f.data.claims {
		if existing.ReferenceCode == c.ReferenceCode {
			return ErrDuplicateClaim
		}
		if existing.StageID == c.StageID && existing.Kind == c.Kind && existing.Status == ClaimMarkedPaid && c.Status == ClaimMarkedPaid {
			return ErrDuplicateClaim
		}
	}
	f.data.claims[c.ID] = *c
	return nil
}

func (f *fakeStore) GetClaim(_ context.Context, id uuid.UUID) (*PaymentClaim, error) {
	c, ok := f.data.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*PaymentClaim, error) {
	return f.GetClaim(ctx, id)
}

func (f *fakeStore) GetOutstandingClaim(_ context.Context, stageID uuid.UUID, kind ClaimKind) (*PaymentClaim, error) {
	for id := range f.data.claims {
		c := f.data.claims[id]
		if c.StageID == stageID && c.Kind == kind && c.Status == ClaimMarkedPaid {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ListClaims(_ context.Context, stageID uuid.UUID) ([]PaymentClaim, error) {
	var out []PaymentClaim
	for _, c := range f.data.claims {
		if c.StageID == stageID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarkedPaidAt.After(out[j].MarkedPaidAt) })
	return out, nil
}

func (f *fakeStore) ListOutstandingClaims(_ context.Context, projectID uuid.UUID) ([]PaymentClaim, error) {
	var out []PaymentClaim
	for _, c := range f.data.claims {
		stage, ok := f.data.stages[c.StageID]
		if ok && stage.ProjectID == projectID && c.Status == ClaimMarkedPaid {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarkedPaidAt.Before(out[j].MarkedPaidAt) })
	return out, nil
}

func (f *fakeStore) UpdateClaim(_ context.Context, c *PaymentClaim) error {
	if _, ok := f.data.claims[c.ID]; !ok {
		return ErrNotFound
	}
	f.data.claims[c.ID] = *c
	return nil
}

func testTime() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}
