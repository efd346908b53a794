package domain

// Account roles.
const (
	RoleAdmin          = "ADMIN"
	RoleContentManager = "CONTENT_MANAGER"
	RoleUser           = "USER"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleContentManager, RoleUser:
		return true
	}
	return false
}

// Principal is the resolved identity of the caller: the subset of its
// Account that access decisions need. A zero Principal is never valid;
// resolution either yields a populated Principal or UnauthenticatedError.
type Principal struct {
	AccountID string
	Username  string
	Role      string
	Enabled   bool
}

// IsAdmin reports whether the principal carries the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanManageGrants reports whether the principal may create or revoke
// arbitrary grants (ADMIN or CONTENT_MANAGER).
func (p Principal) CanManageGrants() bool {
	return p.Role == RoleAdmin || p.Role == RoleContentManager
}
