package engagements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemainingPools(t *testing.T) {
	s := &Stage{RevisionsIncluded: 2, RevisionsUsed: 1}
	assert.Equal(t, 1, RemainingIncluded(s))
	assert.Equal(t, 0, RemainingExtension(s), "extension pool closed until purchased")
	assert.Equal(t, 1, RemainingTotal(s))

	s.ExtensionPurchased = true
	assert.Equal(t, 3, RemainingExtension(s))
	assert.Equal(t, 4, RemainingTotal(s))

	s.ExtensionRevisionsUsed = 3
	assert.Equal(t, 0, RemainingExtension(s))
}

func TestConsumeCreditDrawsIncludedFirst(t *testing.T) {
	s := &Stage{RevisionsIncluded: 1, ExtensionPurchased: true}

	assert.NoError(t, ConsumeCredit(s))
	assert.Equal(t, 1, s.RevisionsUsed)
	assert.Equal(t, 0, s.ExtensionRevisionsUsed, "included pool is spent before extension credits")

	assert.NoError(t, ConsumeCredit(s))
	assert.Equal(t, 1, s.RevisionsUsed)
	assert.Equal(t, 1, s.ExtensionRevisionsUsed)
}

func TestConsumeCreditExhausted(t *testing.T) {
	s := &Stage{RevisionsIncluded: 1, RevisionsUsed: 1}
	err := ConsumeCredit(s)
	assert.ErrorIs(t, err, ErrNoCreditsAvailable)
	assert.Equal(t, 1, s.RevisionsUsed, "failed draw must not mutate the stage")

	s.ExtensionPurchased = true
	s.ExtensionRevisionsUsed = 3
	assert.ErrorIs(t, ConsumeCredit(s), ErrNoCreditsAvailable)
}

func TestConsumeCreditInvariants(t *testing.T) {
	s := &Stage{RevisionsIncluded: 2, ExtensionPurchased: true}
	for {
		if err := ConsumeCredit(s); err != nil {
			break
		}
		assert.LessOrEqual(t, s.RevisionsUsed, s.RevisionsIncluded)
		assert.LessOrEqual(t, s.ExtensionRevisionsUsed, 3)
	}
	assert.Equal(t, 2, s.RevisionsUsed)
	assert.Equal(t, 3, s.ExtensionRevisionsUsed)
}

func TestGrantExtensionCredit(t *testing.T) {
	s := &Stage{RevisionsIncluded: 2, RevisionsUsed: 2}
	assert.ErrorIs(t, ConsumeCredit(s), ErrNoCreditsAvailable)

	GrantExtensionCredit(s, 1500)
	assert.Equal(t, 3, s.RevisionsIncluded, "verified extension grants one permanent included unit")
	assert.True(t, s.ExtensionPurchased)
	assert.Equal(t, int64(1500), s.ExtensionPrice)

	assert.NoError(t, ConsumeCredit(s))
	assert.Equal(t, 3, s.RevisionsUsed)
}
