package user

import (
	"github.com/staffdeck/staffdeck/internal/types"
)

// Operation enumerates the actions the policy table covers.
type Operation string

const (
	OpList         Operation = "list"
	OpRead         Operation = "read"
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpDelete       Operation = "delete"
	OpChangeRole   Operation = "change-role"
	OpToggleActive Operation = "toggle-active"
)

// rule describes which targets one role may act on for one operation. The
// predicates are ORed: a target passing any of them is allowed. An operation
// with no target (list, create) is allowed by the rule's mere presence.
type rule struct {
	anyTarget  bool // any record
	userTarget bool // records whose role is User
	selfTarget bool // the requester's own record
}

// policy is the whole authorization model in one table. A missing
// (operation, role) entry means deny.
var policy = map[Operation]map[types.Role]rule{
	OpList: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {anyTarget: true}, // results narrowed by ListScope
	},
	OpRead: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {userTarget: true, selfTarget: true},
		types.RoleUser:      {selfTarget: true},
	},
	OpCreate: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {anyTarget: true},
	},
	OpUpdate: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {userTarget: true, selfTarget: true},
		types.RoleUser:      {selfTarget: true},
	},
	OpDelete: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {userTarget: true},
	},
	OpChangeRole: {
		types.RoleAdmin: {anyTarget: true},
	},
	OpToggleActive: {
		types.RoleAdmin:     {anyTarget: true},
		types.RoleModerator: {userTarget: true},
	},
}

// Authorize decides whether requester may execute op against target. Pass a
// nil target for collection-level operations (list, create). Existence of
// the target must be checked by the caller BEFORE authorization so that a
// missing record is 404 for every role. Returns types.ErrForbidden on deny.
func Authorize(requester types.Identity, op Operation, target *types.User) error {
	r, ok := policy[op][requester.Role]
	if !ok {
		return types.ErrForbidden
	}
	if target == nil {
		return nil
	}
	switch {
	case r.anyTarget:
		return nil
	case r.userTarget && target.Role == types.RoleUser:
		return nil
	case r.selfTarget && target.ID == requester.ID:
		return nil
	}
	return types.ErrForbidden
}

// ListScope returns the role narrowing applied to list results for the
// given requester role. nil means unrestricted. The scope is combined with
// (not replaced by) any caller-supplied filters.
func ListScope(role types.Role) ([]types.Role, error) {
	switch role {
	case types.RoleAdmin:
		return nil, nil
	case types.RoleModerator:
		return []types.Role{types.RoleModerator, types.RoleUser}, nil
	default:
		return nil, types.ErrForbidden
	}
}
