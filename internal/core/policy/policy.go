// Package policy holds the marketplace permission table. Every component that
// gates an operation consults CanPerform; there is no other source of truth
// for who may do what.
package policy

import (
	"fmt"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// Action is an operation subject to authorization.
type Action string

const (
	ActionViewCatalog      Action = "view_catalog"
	ActionAddToCart        Action = "add_to_cart"
	ActionSubmitProduct    Action = "submit_product"
	ActionViewOwnProducts  Action = "view_own_products"
	ActionApproveProduct   Action = "approve_product"
	ActionRejectProduct    Action = "reject_product"
	ActionViewPendingQueue Action = "view_pending_queue"
	ActionViewDashboard    Action = "view_dashboard"
	ActionViewHistory      Action = "view_moderation_history"
)

// Decision is the policy outcome.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

type rule int

const (
	deny rule = iota
	allow
	// ownerOnly allows the actor when the resource is theirs, or when no
	// specific resource is named (listing one's own products).
	ownerOnly
	// anyone also covers the unauthenticated session.
	anyone
)

var table = map[Action]map[domain.Role]rule{
	ActionViewCatalog: {
		domain.RoleNone: anyone,
	},
	ActionAddToCart: {
		domain.RoleCustomer: allow,
	},
	ActionSubmitProduct: {
		domain.RoleVendor: allow,
	},
	ActionViewOwnProducts: {
		domain.RoleVendor: ownerOnly,
		domain.RoleAdmin:  allow,
	},
	// Vendors are denied even for their own products: submitters never self-approve.
	ActionApproveProduct: {
		domain.RoleAdmin: allow,
	},
	ActionRejectProduct: {
		domain.RoleAdmin: allow,
	},
	ActionViewPendingQueue: {
		domain.RoleAdmin: allow,
	},
	ActionViewHistory: {
		domain.RoleAdmin: allow,
	},
	ActionViewDashboard: {
		domain.RoleCustomer: allow,
		domain.RoleVendor:   allow,
		domain.RoleAdmin:    allow,
	},
}

// CanPerform decides whether role may perform action. resourceOwnerID and
// actorID only matter for owner-scoped actions and may be empty otherwise.
// Unknown roles and unknown actions are denied.
func CanPerform(role domain.Role, action Action, resourceOwnerID, actorID string) Decision {
	rules, ok := table[action]
	if !ok {
		return Deny
	}
	if rules[domain.RoleNone] == anyone {
		return Allow
	}
	if !role.Valid() {
		return Deny
	}

	switch rules[role] {
	case allow:
		return Allow
	case ownerOnly:
		if actorID == "" {
			return Deny
		}
		if resourceOwnerID == "" || resourceOwnerID == actorID {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}

// Authorize is CanPerform for a session, returning a wrapped ErrUnauthorized on deny.
func Authorize(session *domain.Session, action Action, resourceOwnerID string) error {
	role := session.Role()
	if !session.Authenticated() {
		role = domain.RoleNone
	}
	if CanPerform(role, action, resourceOwnerID, session.ActorID()) == Deny {
		return fmt.Errorf("%w: role %s may not %s", domain.ErrUnauthorized, role, action)
	}
	return nil
}

// Roles allowed to perform action regardless of ownership, for route guards.
func Roles(action Action) []domain.Role {
	var out []domain.Role
	for _, r := range []domain.Role{domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin} {
		if rule, ok := table[action][r]; ok && rule != deny {
			out = append(out, r)
		}
	}
	return out
}
