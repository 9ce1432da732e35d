package access

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
)

// RoleSuperadmin is the role that, together with the superadmin principal type, grants
// cross-tenant access.
const RoleSuperadmin = "superadmin"

// MembershipStatusActive is the only status that authorizes tenant access.
const MembershipStatusActive = "active"

// Membership is the membership record attached to authorized tenant requests.
type Membership struct {
	ID        uuid.UUID
	UserID    string
	TenantID  uuid.UUID
	Status    string
	CreatedAt time.Time
}

// IsActive reports whether the membership authorizes tenant access.
func (m Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// RoleChecker answers role questions within an explicit permission scope.
type RoleChecker interface {
	HasRole(ctx context.Context, principalID, role string, scope *permission.ScopeID) (bool, error)
}

// MembershipFinder looks up an active membership, returning ErrNoMembership when none exists.
type MembershipFinder interface {
	ActiveMembership(ctx context.Context, principalID string, tenantID uuid.UUID) (Membership, error)
}

// Capabilities is everything the guards need from the RBAC and membership collaborators.
type Capabilities interface {
	RoleChecker
	MembershipFinder
}

type composite struct {
	RoleChecker
	MembershipFinder
}

// Compose joins separate collaborators into Capabilities.
func Compose(roles RoleChecker, memberships MembershipFinder) Capabilities {
	if roles == nil {
		panic("access: role checker is required")
	}
	if memberships == nil {
		panic("access: membership finder is required")
	}
	return composite{RoleChecker: roles, MembershipFinder: memberships}
}
