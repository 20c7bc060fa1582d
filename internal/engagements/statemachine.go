package engagements

import "milestone-portal/portal-backend/pkg/workflows"

// stageTransitions is the authoritative stage lifecycle. Anything not in
// this table is ErrInvalidState, regardless of which actor asks.
var stageTransitions = workflows.New(map[StageStatus][]StageStatus{
	StageLocked:            {StageActive},
	StageActive:            {StageInProgress, StageDelivered, StagePaymentPending},
	StageInProgress:        {StageDelivered},
	StageDelivered:         {StageApproved, StageRevisionRequested, StagePaymentPending},
	StageApproved:          {StagePaymentPending},
	StageRevisionRequested: {StageInProgress, StageDelivered},
	StagePaymentPending:    {StageCompleted},
	StageCompleted:         {},
})

// canTransition consults the stage lifecycle table. Claim rejection does
// not go through it: the stage is restored to preClaimStatus directly. The
// active -> payment_pending edge exists only for the stage-0 payment gate.
func canTransition(from, to StageStatus) bool {
	return stageTransitions.CanTransition(from, to)
}

// workable reports whether the freelancer can act on the stage (deliver
// work, log a manual revision).
func workable(s StageStatus) bool {
	switch s {
	case StageActive, StageInProgress, StageDelivered, StageRevisionRequested:
		return true
	}
	return false
}

// preClaimStatus is the status a stage returns to when its outstanding
// payment claim is rejected. Mark-paid is only legal from delivered,
// approved, or (for stage 0) active, so this restores it exactly.
func preClaimStatus(s *Stage) StageStatus {
	if s.IsDownPayment() {
		return StageActive
	}
	if s.ApprovedAt != nil {
		return StageApproved
	}
	return StageDelivered
}
