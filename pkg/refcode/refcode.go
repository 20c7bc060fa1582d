package refcode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New builds a human-readable payment reference code of the form
// {PREFIX}-{stageId8}-{nonce}. The code is communicated out-of-band
// (bank note, PayPal memo) and correlated back by the freelancer, so it
// favors readability over entropy; uniqueness is enforced by the database.
func New(prefix string, stageID uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", strings.ToUpper(prefix), stageID.String()[:8], nonce())
}

func nonce() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
