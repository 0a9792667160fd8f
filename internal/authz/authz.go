// Package authz decides whether an actor may perform an action on a resource.
//
// Roles come from the identity layer (JWT claims). The aggregates query the policy
// once per operation after loading the resource, so ownership checks see the
// persisted owner rather than anything the caller claims.
package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleClient   Role = "client"
)

// ParseRole normalizes a claim value. Unknown roles are rejected.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleOperator, RoleClient:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Actor is the caller as seen by the core: an opaque user id plus a role.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// Privileged reports staff roles (admin, operator).
func (a Actor) Privileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleOperator
}

// SystemActor is used by background jobs such as pending-order expiry.
func SystemActor() Actor {
	return Actor{Role: RoleAdmin}
}

type Action string

const (
	ActionCatalogRead  Action = "catalog.read"
	ActionCatalogWrite Action = "catalog.write"
	ActionStockRestock Action = "stock.restock"

	ActionCartUse Action = "cart.use"

	ActionOrderCreate       Action = "order.create"
	ActionOrderRead         Action = "order.read"
	ActionOrderCancel       Action = "order.cancel"
	ActionOrderMutateLines  Action = "order.mutate_lines"
	ActionOrderRecompute    Action = "order.recompute_total"
	ActionOrderUpdateStatus Action = "order.update_status"

	ActionPaymentCreate   Action = "payment.create"
	ActionPaymentRead     Action = "payment.read"
	ActionPaymentComplete Action = "payment.complete"
	ActionPaymentCancel   Action = "payment.cancel"

	ActionShipmentCreate       Action = "shipment.create"
	ActionShipmentRead         Action = "shipment.read"
	ActionShipmentUpdateStatus Action = "shipment.update_status"
	ActionShipmentAssignTrack  Action = "shipment.assign_tracking"
)

// Resource identifies what is being acted on. OwnerUserID is uuid.Nil for
// resources without an owner (catalog entries).
type Resource struct {
	Kind        string
	ID          uuid.UUID
	OwnerUserID uuid.UUID
}

// ErrDenied is wrapped by every authorization failure.
var ErrDenied = errors.New("authz: permission denied")

type DeniedError struct {
	Actor    Actor
	Action   Action
	Resource Resource
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("role %q may not %s on %s %s", e.Actor.Role, e.Action, e.Resource.Kind, e.Resource.ID)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// Policy is the single authorization capability queried by the core.
type Policy interface {
	Authorize(actor Actor, action Action, resource Resource) error
}

type rule int

const (
	ruleAnyAuthenticated rule = iota
	ruleOwnerOrStaff
	ruleStaffOnly
)

var defaultRules = map[Action]rule{
	ActionCatalogRead:  ruleAnyAuthenticated,
	ActionCatalogWrite: ruleStaffOnly,
	ActionStockRestock: ruleStaffOnly,

	ActionCartUse: ruleOwnerOrStaff,

	ActionOrderCreate:       ruleAnyAuthenticated,
	ActionOrderRead:         ruleOwnerOrStaff,
	ActionOrderCancel:       ruleOwnerOrStaff,
	ActionOrderMutateLines:  ruleStaffOnly,
	ActionOrderRecompute:    ruleOwnerOrStaff,
	ActionOrderUpdateStatus: ruleStaffOnly,

	ActionPaymentCreate:   ruleOwnerOrStaff,
	ActionPaymentRead:     ruleOwnerOrStaff,
	ActionPaymentComplete: ruleStaffOnly,
	ActionPaymentCancel:   ruleOwnerOrStaff,

	ActionShipmentCreate:       ruleStaffOnly,
	ActionShipmentRead:         ruleOwnerOrStaff,
	ActionShipmentUpdateStatus: ruleStaffOnly,
	ActionShipmentAssignTrack:  ruleStaffOnly,
}

type rolePolicy struct {
	rules map[Action]rule
}

// NewRolePolicy returns the storefront policy: staff see and change everything,
// clients act on their own carts, orders and payments and read their own shipments.
func NewRolePolicy() Policy {
	return &rolePolicy{rules: defaultRules}
}

func (p *rolePolicy) Authorize(actor Actor, action Action, resource Resource) error {
	if _, err := ParseRole(string(actor.Role)); err != nil {
		return &DeniedError{Actor: actor, Action: action, Resource: resource}
	}
	r, ok := p.rules[action]
	if !ok {
		return &DeniedError{Actor: actor, Action: action, Resource: resource}
	}
	switch r {
	case ruleAnyAuthenticated:
		return nil
	case ruleStaffOnly:
		if actor.Privileged() {
			return nil
		}
	case ruleOwnerOrStaff:
		if actor.Privileged() {
			return nil
		}
		if actor.UserID != uuid.Nil && actor.UserID == resource.OwnerUserID {
			return nil
		}
	}
	return &DeniedError{Actor: actor, Action: action, Resource: resource}
}

// AllowAll is used by tests that exercise state logic without role concerns.
type AllowAll struct{}

func (AllowAll) Authorize(Actor, Action, Resource) error { return nil }
