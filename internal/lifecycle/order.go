package lifecycle

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRewashLink is returned when a rewash child does not point back at its source.
var ErrRewashLink = errors.New("rewash order is not linked to its source order")

// Order is the dashboard's read-only projection of a backend order.
type Order struct {
	ID                int64
	Code              string
	StoreID           string
	Status            Status
	Cost              decimal.Decimal
	Paid              decimal.Decimal
	Discount          decimal.Decimal
	Count             int
	Remarks           string
	RewashParentID    *int64
	DeliveryChallanID *int64
	ReturnChallanID   *int64
	DueDate           *time.Time
	CreatedAt         time.Time
	Items             []OrderItem
}

// OrderItem is one priced garment line of an order.
type OrderItem struct {
	ID              int64
	ServiceID       string
	GarmentID       string
	Quantity        int
	Cost            decimal.Decimal
	RewashRequested bool
}

// Balance is what remains to be paid.
func (o Order) Balance() decimal.Decimal {
	return o.Cost.Sub(o.Paid)
}

// IsRewash reports whether o was created by a rewash request.
func (o Order) IsRewash() bool {
	return o.RewashParentID != nil
}

func (o Order) item(id int64) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return OrderItem{}, false
}

func (o Order) rewashableItems() []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if !it.RewashRequested {
			out = append(out, it)
		}
	}
	return out
}

// VerifyRewash checks the child order the backend created for a rewash of source.
// The child must reference source and restart the workflow at received.
func VerifyRewash(source, child Order) error {
	if child.RewashParentID == nil || *child.RewashParentID != source.ID {
		return ErrRewashLink
	}
	if child.Status.Canonical() != StatusReceived {
		return &TransitionError{Action: ActionCreateRewash, Status: child.Status}
	}
	return nil
}

// StatusEvent is one entry of an order's status timeline.
type StatusEvent struct {
	Action        Action
	PerformerID   int64
	PerformerName string
	CreatedAt     time.Time
}

// SortTimeline orders events by CreatedAt ascending, keeping the API order for ties.
func SortTimeline(events []StatusEvent) {
	slices.SortStableFunc(events, func(a, b StatusEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
