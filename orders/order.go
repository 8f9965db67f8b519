// Package orders places guest orders against a QR session and moves them through the
// kitchen-to-cashier workflow.
package orders

import (
	"time"

	"github.com/jrsteele09/masapp-server/users"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// transitions lists, for each status, the statuses an order may move to next.
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing: {StatusReady: true, StatusCancelled: true},
	StatusReady:     {StatusServed: true},
	StatusServed:    {StatusPaid: true},
	StatusPaid:      {},
	StatusCancelled: {},
}

// roleTargets lists the statuses each staff role may set. Admins may set any.
var roleTargets = map[users.Role]map[Status]bool{
	users.RoleKitchen: {StatusPreparing: true, StatusReady: true},
	users.RoleWaiter:  {StatusServed: true, StatusCancelled: true},
	users.RoleCashier: {StatusPaid: true},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// RoleMaySet reports whether role is allowed to put an order into status.
func RoleMaySet(role users.Role, status Status) bool {
	switch role {
	case users.RoleSuperAdmin, users.RoleRestaurantAdmin:
		return true
	}
	return roleTargets[role][status]
}

type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

type Order struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	TableNumber  int       `json:"tableNumber"`
	Items        []Item    `json:"items"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
