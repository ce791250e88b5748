// Package orderflow holds the order status state machine: the valid statuses,
// the named actions that move an order between them, and which roles may
// trigger each action.
package orderflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nirvaan-oms/api/internal/enum"
)

// Status is an order status as stored and sent on the wire.
type Status string

const (
	StatusReceived  Status = enum.OrderStatusReceived
	StatusSended    Status = enum.OrderStatusSended
	StatusInTransit Status = enum.OrderStatusInTransit
	StatusDelivered Status = enum.OrderStatusDelivered
	StatusReturned  Status = enum.OrderStatusReturned
)

// Role is the authenticated caller's role.
type Role string

const (
	RoleAdmin   Role = enum.UserRoleAdmin
	RoleCourier Role = enum.UserRoleCourier
)

// Action names a transition the UI exposes as a button.
type Action string

const (
	ActionSend    Action = "send"
	ActionUnsend  Action = "unsend"
	ActionTransit Action = "transit"
	ActionDeliver Action = "deliver"
	ActionReturn  Action = "return"
	ActionRestore Action = "restore"
)

var (
	ErrUnknownStatus        = errors.New("unknown status")
	ErrSameStatus           = errors.New("order is already in that status")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrRoleNotAllowed       = errors.New("role may not perform this transition")
)

type rule struct {
	action Action
	from   []Status
	to     Status
	roles  []Role
}

// Courier actions are also open to admins, who can drive the courier view.
var rules = []rule{
	{ActionSend, []Status{StatusReceived}, StatusSended, []Role{RoleAdmin}},
	{ActionUnsend, []Status{StatusSended}, StatusReceived, []Role{RoleAdmin}},
	{ActionTransit, []Status{StatusSended}, StatusInTransit, []Role{RoleCourier, RoleAdmin}},
	{ActionDeliver, []Status{StatusInTransit}, StatusDelivered, []Role{RoleCourier, RoleAdmin}},
	{ActionReturn, []Status{StatusSended, StatusInTransit}, StatusReturned, []Role{RoleCourier, RoleAdmin}},
	{ActionRestore, []Status{StatusReturned}, StatusDelivered, []Role{RoleAdmin}},
}

// Statuses lists every writable status in workflow order.
func Statuses() []Status {
	return []Status{StatusReceived, StatusSended, StatusInTransit, StatusDelivered, StatusReturned}
}

// CourierStatuses are the statuses visible in the courier portal.
func CourierStatuses() []Status {
	return []Status{StatusSended, StatusInTransit, StatusDelivered, StatusReturned}
}

// ParseStatus normalizes a wire value. "issued" is accepted as the admin
// label for sended. "conform" is rejected: it is a reporting bucket only.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == enum.OrderStatusIssued {
		return StatusSended, nil
	}
	st := Status(v)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the writable statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusSended, StatusInTransit, StatusDelivered, StatusReturned:
		return true
	}
	return false
}

// Terminal reports whether the normal forward flow ends at s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusReturned
}

// Transition is a resolved, permitted status change.
type Transition struct {
	Action Action
	From   Status
	To     Status
}

// Resolve finds the action that moves an order from current to target and
// checks role may perform it. Re-applying the current status returns
// ErrSameStatus so callers can treat it as a no-op.
func Resolve(role Role, current, target Status) (Transition, error) {
	if !target.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}
	if current == target {
		return Transition{}, ErrSameStatus
	}

	for _, r := range rules {
		if r.to != target || !containsStatus(r.from, current) {
			continue
		}
		if !containsRole(r.roles, role) {
			return Transition{}, fmt.Errorf("%w: %s cannot %s", ErrRoleNotAllowed, role, r.action)
		}
		return Transition{Action: r.action, From: current, To: target}, nil
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, current, target)
}

// Apply looks up action by name and returns the resulting transition. The
// role is checked first, so an action the caller may never take is refused
// even when the order already sits in its target status.
func Apply(role Role, current Status, action Action) (Transition, error) {
	for _, r := range rules {
		if r.action != action {
			continue
		}
		if !containsRole(r.roles, role) {
			return Transition{}, fmt.Errorf("%w: %s cannot %s", ErrRoleNotAllowed, role, action)
		}
		if r.to == current {
			return Transition{}, ErrSameStatus
		}
		if !containsStatus(r.from, current) {
			return Transition{}, fmt.Errorf("%w: cannot %s from %s", ErrTransitionNotAllowed, action, current)
		}
		return Transition{Action: action, From: current, To: r.to}, nil
	}
	return Transition{}, fmt.Errorf("%w: unknown action %q", ErrTransitionNotAllowed, action)
}

// Available lists the actions role may take on an order in current. This is
// what drives enabled buttons in each view.
func Available(role Role, current Status) []Action {
	var out []Action
	for _, r := range rules {
		if r.to != current && containsStatus(r.from, current) && containsRole(r.roles, role) {
			out = append(out, r.action)
		}
	}
	return out
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []Role, r Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
