// Package lifecycle encodes the order workflow of the Cleanup backend: which
// statuses exist, which named actions move an order between them, and which
// dashboard role may invoke each action.
//
// The backend is authoritative. These rules exist so the dashboard can decide
// which controls to offer and refuse submissions the backend would reject.
// Nothing here mutates an order; Next only predicts the status the backend is
// expected to report after a successful action.
//
//	received ──washed──> in_process ──ironed──> in_process ──packed──> processed (in_store) ──deliver──> delivered
//	    └──washed (already in_process) ─┘
package lifecycle

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cleanup/dashboard/internal/enum"
)

// Status is the backend's order status.
type Status string

const (
	StatusReceived  Status = enum.OrderStatusReceived
	StatusInProcess Status = enum.OrderStatusInProcess
	StatusProcessed Status = enum.OrderStatusProcessed
	StatusInStore   Status = enum.OrderStatusInStore
	StatusDelivered Status = enum.OrderStatusDelivered
)

// Valid reports whether s is a status the dashboard understands.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusInProcess, StatusProcessed, StatusInStore, StatusDelivered:
		return true
	}
	return false
}

// Canonical folds display synonyms onto one status. in_store and processed
// are the same underlying state.
func (s Status) Canonical() Status {
	if s == StatusInStore {
		return StatusProcessed
	}
	return s
}

// Terminal reports whether no further workflow action applies.
func (s Status) Terminal() bool {
	return s.Canonical() == StatusDelivered
}

// Action is a named lifecycle operation.
type Action string

const (
	ActionWashed                Action = enum.ActionWashed
	ActionIroned                Action = enum.ActionIroned
	ActionPacked                Action = enum.ActionPacked
	ActionDeliver               Action = enum.ActionDeliver
	ActionCreateDeliveryChallan Action = enum.ActionCreateDeliveryChallan
	ActionCreateRewash          Action = enum.ActionCreateRewash
	ActionCreateReturnChallan   Action = enum.ActionCreateReturnChallan
	ActionCreateOrder           Action = enum.ActionCreateOrder
	ActionEditOrder             Action = enum.ActionEditOrder
)

// IsStatusAction reports whether a is one of the processing-stage actions
// submitted through the order status endpoint.
func (a Action) IsStatusAction() bool {
	return a == ActionWashed || a == ActionIroned || a == ActionPacked
}

// Role is a dashboard user's role.
type Role string

const (
	RoleAdmin    Role = enum.RoleAdmin
	RoleManager  Role = enum.RoleManager
	RoleOperator Role = enum.RoleOperator
	RoleWasher   Role = enum.RoleWasher
	RoleIroner   Role = enum.RoleIroner
	RolePacker   Role = enum.RolePacker
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator, RoleWasher, RoleIroner, RolePacker:
		return true
	}
	return false
}

// Errors returned by lifecycle checks.
var (
	ErrForbidden              = errors.New("role may not perform this action")
	ErrInvalidTransition      = errors.New("action not allowed in current status")
	ErrFrozen                 = errors.New("order is linked to a delivery challan and can no longer be edited")
	ErrChallanLinked          = errors.New("order is already on a delivery challan")
	ErrPaymentModeRequired    = errors.New("payment mode is required to settle the outstanding balance")
	ErrInvalidPaymentMode     = errors.New("invalid payment mode")
	ErrRewashItems            = errors.New("rewash items must belong to the order")
	ErrRewashRequested        = errors.New("rewash already requested for the selected items")
	ErrReturnChallanEntries   = errors.New("return challan needs unique order codes with at least one bag each")
	ErrAlreadyOnReturnChallan = errors.New("order is already on a return challan")
)

// TransitionError reports an action attempted from a status that does not allow it.
type TransitionError struct {
	Action Action
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an order in status %s", e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// rule describes one action: who may perform it, from which canonical statuses
// (nil means any), and the resulting status ("" means unchanged).
type rule struct {
	performers []Role
	from       []Status
	to         Status
}

var rules = map[Action]rule{
	ActionWashed: {
		performers: []Role{RoleWasher},
		from:       []Status{StatusReceived, StatusInProcess},
		to:         StatusInProcess,
	},
	ActionIroned: {
		performers: []Role{RoleIroner},
		from:       []Status{StatusInProcess},
		to:         StatusInProcess,
	},
	ActionPacked: {
		performers: []Role{RolePacker},
		from:       []Status{StatusInProcess},
		to:         StatusProcessed,
	},
	ActionDeliver: {
		performers: []Role{RoleOperator},
		from:       []Status{StatusProcessed},
		to:         StatusDelivered,
	},
	ActionCreateDeliveryChallan: {
		performers: []Role{RoleOperator},
		from:       []Status{StatusProcessed},
	},
	ActionCreateRewash: {
		performers: []Role{RoleOperator},
	},
	ActionCreateReturnChallan: {
		performers: []Role{RolePacker},
	},
	ActionCreateOrder: {
		performers: []Role{RoleOperator},
	},
	ActionEditOrder: {
		performers: []Role{RoleOperator},
	},
}

// orderActions is the display order of actions offered on a single order.
var orderActions = []Action{
	ActionWashed,
	ActionIroned,
	ActionPacked,
	ActionEditOrder,
	ActionCreateDeliveryChallan,
	ActionDeliver,
	ActionCreateRewash,
	ActionCreateReturnChallan,
}

// CanPerform reports whether role may invoke action at all.
func CanPerform(role Role, action Action) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	return slices.Contains(r.performers, role)
}

// Next returns the status the backend is expected to move an order to when
// action succeeds from status.
func Next(status Status, action Action) (Status, error) {
	r, ok := rules[action]
	if !ok {
		return "", &TransitionError{Action: action, Status: status}
	}
	cur := status.Canonical()
	if r.from != nil && !slices.Contains(r.from, cur) {
		return "", &TransitionError{Action: action, Status: status}
	}
	if r.to == "" {
		return status, nil
	}
	return r.to, nil
}

// Check validates that role may perform action on o right now.
func Check(role Role, o Order, action Action) error {
	if !CanPerform(role, action) {
		return fmt.Errorf("%s %s: %w", role, action, ErrForbidden)
	}
	if _, err := Next(o.Status, action); err != nil {
		return err
	}

	switch action {
	case ActionEditOrder:
		return CanEdit(o)
	case ActionCreateDeliveryChallan:
		if o.DeliveryChallanID != nil {
			return ErrChallanLinked
		}
	case ActionCreateRewash:
		if len(o.rewashableItems()) == 0 {
			return ErrRewashRequested
		}
	case ActionCreateReturnChallan:
		if o.ReturnChallanID != nil {
			return ErrAlreadyOnReturnChallan
		}
	}
	return nil
}

// Available lists the actions role can take on o, in display order.
func Available(role Role, o Order) []Action {
	out := []Action{}
	for _, a := range orderActions {
		if Check(role, o, a) == nil {
			out = append(out, a)
		}
	}
	return out
}

// CanEdit enforces the freeze rule: once an order is handed to a factory on a
// delivery challan its remarks and line items are fixed.
func CanEdit(o Order) error {
	if o.DeliveryChallanID != nil {
		return ErrFrozen
	}
	return nil
}

// RequiresPaymentMode reports whether delivering o must settle a balance.
func RequiresPaymentMode(o Order) bool {
	return !o.Paid.Equal(o.Cost)
}

// ValidPaymentMode reports whether mode is accepted by the backend.
func ValidPaymentMode(mode string) bool {
	switch mode {
	case enum.PaymentModeCash, enum.PaymentModeCard, enum.PaymentModeUPI:
		return true
	}
	return false
}

// CheckDeliver validates an operator delivering o with the given payment mode.
// The mode may be empty only when the order is fully paid.
func CheckDeliver(role Role, o Order, mode string) error {
	if err := Check(role, o, ActionDeliver); err != nil {
		return err
	}
	if mode == "" {
		if RequiresPaymentMode(o) {
			return ErrPaymentModeRequired
		}
		return nil
	}
	if !ValidPaymentMode(mode) {
		return ErrInvalidPaymentMode
	}
	return nil
}

// CheckRewash validates a rewash request for the given item IDs of o.
func CheckRewash(role Role, o Order, itemIDs []int64) error {
	if !CanPerform(role, ActionCreateRewash) {
		return fmt.Errorf("%s %s: %w", role, ActionCreateRewash, ErrForbidden)
	}
	if len(itemIDs) == 0 {
		return ErrRewashItems
	}
	seen := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			return ErrRewashItems
		}
		seen[id] = true
		item, ok := o.item(id)
		if !ok {
			return ErrRewashItems
		}
		if item.RewashRequested {
			return ErrRewashRequested
		}
	}
	return nil
}

// ReturnEntry is one scanned order on a packer's return challan.
type ReturnEntry struct {
	Code string
	Bags int
}

// CheckReturnEntries validates the shape of a return challan.
func CheckReturnEntries(entries []ReturnEntry) error {
	if len(entries) == 0 {
		return ErrReturnChallanEntries
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Code == "" || e.Bags < 1 || seen[e.Code] {
			return ErrReturnChallanEntries
		}
		seen[e.Code] = true
	}
	return nil
}
