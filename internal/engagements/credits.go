package engagements

// Credit ledger: pure computation over a stage's revision balances.
//
// Two pools coexist. Included revisions are use-it-or-lose-it per stage and
// are always spent first. The extension pool is a fixed quota of 3 that
// opens once an extension has been purchased. Verifying an extension
// purchase additionally grants one permanent unit to the included
// allotment; both numbers are displayed to the client, so both rules stay.

// extensionPoolSize is the fixed quota opened by an extension purchase.
const extensionPoolSize = 3

// RemainingIncluded returns the unspent included revisions.
func RemainingIncluded(s *Stage) int {
	return max(0, s.RevisionsIncluded-s.RevisionsUsed)
}

// RemainingExtension returns the unspent extension revisions. Zero until an
// extension has been purchased.
func RemainingExtension(s *Stage) int {
	if !s.ExtensionPurchased {
		return 0
	}
	return max(0, extensionPoolSize-s.ExtensionRevisionsUsed)
}

// RemainingTotal returns all revisions the client may still request.
func RemainingTotal(s *Stage) int {
	return RemainingIncluded(s) + RemainingExtension(s)
}

// ConsumeCredit draws one revision credit, included pool first. Returns
// ErrNoCreditsAvailable when both pools are exhausted. Callers must hold
// the stage row lock; the ledger itself does no I/O.
func ConsumeCredit(s *Stage) error {
	if RemainingIncluded(s) > 0 {
		s.RevisionsUsed++
		return nil
	}
	if RemainingExtension(s) > 0 {
		s.ExtensionRevisionsUsed++
		return nil
	}
	return ErrNoCreditsAvailable
}

// GrantExtensionCredit applies a verified extension purchase: one permanent
// unit added to the included allotment, and the extension pool opens.
func GrantExtensionCredit(s *Stage, price int64) {
	s.RevisionsIncluded++
	s.ExtensionPurchased = true
	s.ExtensionPrice = price
}
