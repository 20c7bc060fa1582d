package engagements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageTransitions(t *testing.T) {
	allowed := []struct{ from, to StageStatus }{
		{StageLocked, StageActive},
		{StageActive, StageInProgress},
		{StageActive, StageDelivered},
		{StageInProgress, StageDelivered},
		{StageDelivered, StageApproved},
		{StageDelivered, StageRevisionRequested},
		{StageDelivered, StagePaymentPending},
		{StageApproved, StagePaymentPending},
		{StageRevisionRequested, StageInProgress},
		{StageRevisionRequested, StageDelivered},
		{StagePaymentPending, StageCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, canTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	denied := []struct{ from, to StageStatus }{
		{StageLocked, StageDelivered},
		{StageLocked, StageCompleted},
		{StageActive, StageApproved},
		{StageApproved, StageRevisionRequested},
		{StagePaymentPending, StageDelivered},
		{StagePaymentPending, StageApproved},
		{StagePaymentPending, StageActive},
		{StagePaymentPending, StagePaymentPending},
		{StageCompleted, StageActive},
		{StageCompleted, StageDelivered},
		{StageCompleted, StagePaymentPending},
	}
	for _, tc := range denied {
		assert.False(t, canTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	assert.True(t, stageTransitions.Terminal(StageCompleted))
	for _, to := range []StageStatus{
		StageLocked, StageActive, StageInProgress, StageDelivered,
		StageApproved, StageRevisionRequested, StagePaymentPending,
	} {
		assert.False(t, canTransition(StageCompleted, to))
	}
}

func TestWorkable(t *testing.T) {
	assert.True(t, workable(StageActive))
	assert.True(t, workable(StageInProgress))
	assert.True(t, workable(StageDelivered))
	assert.True(t, workable(StageRevisionRequested))
	assert.False(t, workable(StageLocked))
	assert.False(t, workable(StagePaymentPending))
	assert.False(t, workable(StageCompleted))
}

func TestPreClaimStatus(t *testing.T) {
	now := testTime()
	assert.Equal(t, StageActive, preClaimStatus(&Stage{StageNumber: 0}))
	assert.Equal(t, StageApproved, preClaimStatus(&Stage{StageNumber: 1, ApprovedAt: &now}))
	assert.Equal(t, StageDelivered, preClaimStatus(&Stage{StageNumber: 1}))
}
