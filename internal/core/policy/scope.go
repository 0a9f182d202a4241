package policy

import "github.com/utilityops/meter-api/internal/core/domain"

// ScopeKind tags the variant held by a Scope.
type ScopeKind int

const (
	// ScopeUnrestricted matches every record.
	ScopeUnrestricted ScopeKind = iota + 1
	// ScopeOwnedBy matches records owned by (or descended from) UserID.
	ScopeOwnedBy
	// ScopeRoleEquals matches users with Role, plus the user IncludeID when set.
	ScopeRoleEquals
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnrestricted:
		return "unrestricted"
	case ScopeOwnedBy:
		return "owned_by"
	case ScopeRoleEquals:
		return "role_equals"
	default:
		return "unknown"
	}
}

// Scope narrows the records a principal may see. The store compiles it into
// its own query language; the matchers below serve single-record checks.
type Scope struct {
	Kind      ScopeKind
	UserID    int64
	Role      domain.Role
	IncludeID int64
}

func Unrestricted() Scope { return Scope{Kind: ScopeUnrestricted} }

func OwnedBy(userID int64) Scope { return Scope{Kind: ScopeOwnedBy, UserID: userID} }

// RoleEquals matches users with role. A non-zero includeID also admits that
// user regardless of role.
func RoleEquals(role domain.Role, includeID int64) Scope {
	return Scope{Kind: ScopeRoleEquals, Role: role, IncludeID: includeID}
}

// MatchUser reports whether u is visible under the scope. For users,
// "owned by" means the user record itself.
func (s Scope) MatchUser(u domain.User) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeOwnedBy:
		return u.ID == s.UserID
	case ScopeRoleEquals:
		return u.Role == s.Role || (s.IncludeID != 0 && u.ID == s.IncludeID)
	}
	return false
}

// MatchLocation reports whether l is visible under the scope.
func (s Scope) MatchLocation(l domain.Location) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeOwnedBy:
		return l.OwnedBy(s.UserID)
	}
	return false
}

// MatchMeter reports whether m, installed at loc, is visible under the scope.
func (s Scope) MatchMeter(m domain.Meter, loc domain.Location) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeOwnedBy:
		return m.LocationID == loc.ID && loc.OwnedBy(s.UserID)
	}
	return false
}
