package refcode

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewFormat(t *testing.T) {
	stageID := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	code := New("pay", stageID)

	parts := strings.Split(code, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "PAY", parts[0])
	assert.Equal(t, "a1b2c3d4", parts[1])
	assert.Len(t, parts[2], 6)
}

func TestNewNonces(t *testing.T) {
	stageID := uuid.New()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := New("EXT", stageID)
		assert.False(t, seen[code], "nonce collision within a small sample")
		seen[code] = true
	}
}
