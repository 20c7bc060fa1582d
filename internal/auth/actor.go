package auth

import "github.com/google/uuid"

// Role identifies which side of an engagement a caller acts for.
type Role string

const (
	// RoleFreelancer is the authenticated project owner.
	RoleFreelancer Role = "freelancer"
	// RoleClient is a share-code session scoped to a single project.
	RoleClient Role = "client"
	// RoleSystem is a trusted payment-confirmation channel (card-processor
	// webhook). It may verify claims directly.
	RoleSystem Role = "system"
)

// Actor is the explicit authorization context passed into every core
// operation. Who the caller is must never be inferred from a route.
type Actor struct {
	Role      Role
	UserID    uuid.UUID // set for RoleFreelancer
	ProjectID uuid.UUID // set for RoleClient; scopes the session to one project
}

// Is reports whether the actor holds any of the given roles.
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
