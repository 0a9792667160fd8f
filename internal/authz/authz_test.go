package authz

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRolePolicy(t *testing.T) {
	p := NewRolePolicy()
	owner := uuid.New()
	other := uuid.New()

	client := Actor{UserID: owner, Role: RoleClient}
	stranger := Actor{UserID: other, Role: RoleClient}
	operator := Actor{UserID: other, Role: RoleOperator}

	order := Resource{Kind: "order", ID: uuid.New(), OwnerUserID: owner}

	cases := []struct {
		name    string
		actor   Actor
		action  Action
		res     Resource
		allowed bool
	}{
		{"owner reads order", client, ActionOrderRead, order, true},
		{"stranger reads order", stranger, ActionOrderRead, order, false},
		{"operator reads order", operator, ActionOrderRead, order, true},
		{"owner cancels order", client, ActionOrderCancel, order, true},
		{"client completes payment", client, ActionPaymentComplete, order, false},
		{"operator completes payment", operator, ActionPaymentComplete, order, true},
		{"client updates shipment", client, ActionShipmentUpdateStatus, order, false},
		{"client creates shipment", client, ActionShipmentCreate, order, false},
		{"client reads catalog", stranger, ActionCatalogRead, Resource{Kind: "product"}, true},
		{"client writes catalog", stranger, ActionCatalogWrite, Resource{Kind: "product"}, false},
		{"unknown role", Actor{UserID: owner, Role: "guest"}, ActionOrderRead, order, false},
		{"unknown action", operator, Action("order.delete"), order, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Authorize(tc.actor, tc.action, tc.res)
			if tc.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("expected denial")
				}
				if !errors.Is(err, ErrDenied) {
					t.Fatalf("denial should wrap ErrDenied, got %v", err)
				}
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Operator ")
	if err != nil || r != RoleOperator {
		t.Fatalf("ParseRole: got=%q err=%v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if !SystemActor().Privileged() {
		t.Fatalf("system actor must be privileged")
	}
}
