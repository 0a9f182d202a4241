// Package policy holds the capability table that decides which role may
// perform which action, and the visibility scope each grant carries.
//
// Every authorization decision in the service goes through Authorize. Adding
// a role or an action means editing the capabilities table only.
package policy

import (
	"fmt"

	"github.com/utilityops/meter-api/internal/core/domain"
)

// Action is an operation a principal may attempt.
type Action string

const (
	ListUsers         Action = "list_users"
	CreateUser        Action = "create_user"
	ReadUser          Action = "read_user"
	UpdateUserRole    Action = "update_user_role"
	UpdateUserProfile Action = "update_user_profile"
	DeleteUser        Action = "delete_user"
	ListLocations     Action = "list_locations"
	CreateLocation    Action = "create_location"
	ReadLocation      Action = "read_location"
	UpdateLocation    Action = "update_location"
	DeleteLocation    Action = "delete_location"
	ListMeters        Action = "list_meters"
	CreateMeter       Action = "create_meter"
	ReadMeter         Action = "read_meter"
	UpdateMeter       Action = "update_meter"
	DeleteMeter       Action = "delete_meter"
)

// Actions lists every action known to the policy.
var Actions = []Action{
	ListUsers, CreateUser, ReadUser, UpdateUserRole, UpdateUserProfile, DeleteUser,
	ListLocations, CreateLocation, ReadLocation, UpdateLocation, DeleteLocation,
	ListMeters, CreateMeter, ReadMeter, UpdateMeter, DeleteMeter,
}

// Access is the grant level stored in the capability table.
type Access int

const (
	// Deny is the zero value so missing table entries deny.
	Deny Access = iota
	// All grants the action over every record.
	All
	// Own grants the action over the principal's own records only.
	Own
	// SelfAndConsumers grants the action over the principal and all consumers.
	SelfAndConsumers
)

var capabilities = map[domain.Role]map[Action]Access{
	domain.RoleConsumer: {
		ListUsers:         Own,
		ReadUser:          Own,
		UpdateUserProfile: Own,
		ListLocations:     Own,
		ReadLocation:      Own,
		ListMeters:        Own,
		ReadMeter:         Own,
	},
	domain.RoleEmployee: {
		ListUsers:         SelfAndConsumers,
		ReadUser:          SelfAndConsumers,
		UpdateUserProfile: Own,
		ListLocations:     All,
		CreateLocation:    All,
		ReadLocation:      All,
		UpdateLocation:    All,
		DeleteLocation:    All,
		ListMeters:        All,
		CreateMeter:       All,
		ReadMeter:         All,
		UpdateMeter:       All,
	},
	domain.RoleAdmin: {
		ListUsers:         All,
		CreateUser:        All,
		ReadUser:          All,
		UpdateUserRole:    All,
		UpdateUserProfile: All,
		DeleteUser:        All,
		ListLocations:     All,
		CreateLocation:    All,
		ReadLocation:      All,
		UpdateLocation:    All,
		DeleteLocation:    All,
		ListMeters:        All,
		CreateMeter:       All,
		ReadMeter:         All,
		UpdateMeter:       All,
		DeleteMeter:       All,
	},
}

// Lookup returns the grant for (role, action). Unknown pairs deny.
func Lookup(role domain.Role, action Action) Access {
	return capabilities[role][action]
}

// Decision is the outcome of an allowed authorization.
type Decision struct {
	Action Action
	Access Access
	Scope  Scope
}

// Authorize decides whether p may perform action. On success the decision
// carries the scope that narrows listings and single-record reads.
func Authorize(p domain.Principal, action Action) (Decision, error) {
	access := Lookup(p.Role, action)
	if access == Deny {
		return Decision{}, fmt.Errorf("%s as %s: %w", action, p.Role, domain.ErrForbidden)
	}
	return Decision{Action: action, Access: access, Scope: scopeFor(p, access)}, nil
}

func scopeFor(p domain.Principal, access Access) Scope {
	switch access {
	case Own:
		return OwnedBy(p.UserID)
	case SelfAndConsumers:
		return RoleEquals(domain.RoleConsumer, p.UserID)
	default:
		return Unrestricted()
	}
}
