package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/pricing"
)

const dueDateLayout = "2006-01-02"

// OrderInput is the content of the order form, shared by create and edit.
type OrderInput struct {
	Items           []pricing.LineItem
	Speed           pricing.Speed
	Package         pricing.Package
	DiscountPercent float64
	Installment     pricing.Installment
	DueDate         string // YYYY-MM-DD, general speed only
	CustomerID      string
	Remarks         string
	Mode            string // payment mode for the amount due now
}

// OrderView is an order together with what the viewing role may do with it.
type OrderView struct {
	Order               lifecycle.Order
	Available           []lifecycle.Action
	Editable            bool
	RequiresPaymentMode bool
}

// OrderService prices, creates, edits and reads orders.
type OrderService struct {
	backend Backend
	catalog CatalogSource
	gens    *Generations
	rec     *recorder
}

func NewOrderService(backend Backend, catalog CatalogSource, journal JournalStore, notifier Notifier, inflight *Inflight) *OrderService {
	return &OrderService{
		backend: backend,
		catalog: catalog,
		gens:    NewGenerations(),
		rec:     &recorder{inflight: inflight, journal: journal, notifier: notifier},
	}
}

// Quote prices a prospective order without validating it as a submission.
func (s *OrderService) Quote(ctx context.Context, items []pricing.LineItem, mods pricing.Modifiers) (pricing.Result, error) {
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return pricing.Result{}, err
	}
	return pricing.Compute(items, mods, cat), nil
}

// List fetches a page of orders. A list fetch started later by the same user
// for the same store supersedes this one, which then returns ErrSuperseded.
func (s *OrderService) List(ctx context.Context, actor Actor, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error) {
	fctx, finish := s.gens.Start(ctx, "orders|"+store+"|"+actor.UserID.String())
	orders, page, err := s.backend.ListOrders(fctx, store, p)
	if ferr := finish(); ferr != nil {
		return nil, cleanup.Page{}, ferr
	}
	return orders, page, err
}

// Get fetches an order and the actions actor may take on it.
func (s *OrderService) Get(ctx context.Context, actor Actor, store, code string) (OrderView, error) {
	o, err := s.backend.GetOrder(ctx, store, code)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{
		Order:               o,
		Available:           lifecycle.Available(actor.Role, o),
		Editable:            lifecycle.Check(actor.Role, o, lifecycle.ActionEditOrder) == nil,
		RequiresPaymentMode: lifecycle.RequiresPaymentMode(o),
	}, nil
}

// Create validates and submits a new order.
func (s *OrderService) Create(ctx context.Context, actor Actor, store string, in OrderInput) (lifecycle.Order, error) {
	if !lifecycle.CanPerform(actor.Role, lifecycle.ActionCreateOrder) {
		return lifecycle.Order{}, fmt.Errorf("%s %s: %w", actor.Role, lifecycle.ActionCreateOrder, lifecycle.ErrForbidden)
	}
	payload, err := s.prepare(ctx, in)
	if err != nil {
		return lifecycle.Order{}, err
	}

	var created lifecycle.Order
	err = s.rec.run(ctx, actor, store, lifecycle.ActionCreateOrder, nil, func(ctx context.Context) ([]string, error) {
		o, err := s.backend.CreateOrder(ctx, store, payload)
		if err != nil {
			return nil, err
		}
		created = o
		return []string{o.Code}, nil
	})
	return created, err
}

// Update validates and submits an edit. Orders on a delivery challan are frozen.
func (s *OrderService) Update(ctx context.Context, actor Actor, store, code string, in OrderInput) (lifecycle.Order, error) {
	if !lifecycle.CanPerform(actor.Role, lifecycle.ActionEditOrder) {
		return lifecycle.Order{}, fmt.Errorf("%s %s: %w", actor.Role, lifecycle.ActionEditOrder, lifecycle.ErrForbidden)
	}
	payload, err := s.prepare(ctx, in)
	if err != nil {
		return lifecycle.Order{}, err
	}

	var updated lifecycle.Order
	err = s.rec.run(ctx, actor, store, lifecycle.ActionEditOrder, []string{code}, func(ctx context.Context) ([]string, error) {
		current, err := s.backend.GetOrder(ctx, store, code)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.Check(actor.Role, current, lifecycle.ActionEditOrder); err != nil {
			return nil, err
		}
		o, err := s.backend.UpdateOrder(ctx, store, code, payload)
		if err != nil {
			return nil, err
		}
		updated = o
		return nil, nil
	})
	return updated, err
}

// prepare validates the form and builds the backend payload from it.
func (s *OrderService) prepare(ctx context.Context, in OrderInput) (cleanup.OrderPayload, error) {
	if err := validateInput(in); err != nil {
		return cleanup.OrderPayload{}, err
	}

	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return cleanup.OrderPayload{}, err
	}
	res := pricing.Compute(in.Items, pricing.Modifiers{
		Speed:           in.Speed,
		Package:         in.Package,
		DiscountPercent: in.DiscountPercent,
		Installment:     in.Installment,
	}, cat)

	if res.Count == 0 {
		return cleanup.OrderPayload{}, fieldErr("items", ErrNoItems)
	}

	mode := ""
	if res.DueNow.IsPositive() {
		if in.Mode == "" {
			return cleanup.OrderPayload{}, fieldErr("mode", lifecycle.ErrPaymentModeRequired)
		}
		if !lifecycle.ValidPaymentMode(in.Mode) {
			return cleanup.OrderPayload{}, fieldErr("mode", lifecycle.ErrInvalidPaymentMode)
		}
		mode = in.Mode
	}

	return buildPayload(in, res, mode), nil
}

func validateInput(in OrderInput) error {
	if len(in.Items) == 0 {
		return fieldErr("items", ErrNoItems)
	}
	for _, it := range in.Items {
		if it.ServiceID != "" && it.GarmentID != "" && it.Quantity <= 0 {
			return fieldErr("items", ErrInvalidQuantity)
		}
	}
	if !in.Speed.Valid() {
		return fieldErr("speed", ErrInvalidSpeed)
	}
	if !in.Package.Valid() {
		return fieldErr("package", ErrInvalidPackage)
	}
	if in.DiscountPercent > 100 {
		return fieldErr("discount", ErrInvalidDiscount)
	}
	if in.Installment == "" {
		return fieldErr("installment", ErrInstallmentRequired)
	}
	if !in.Installment.Valid() {
		return fieldErr("installment", ErrInvalidInstallment)
	}
	if pricing.RequiresDueDate(in.Speed) {
		if in.DueDate == "" {
			return fieldErr("due_date", ErrDueDateRequired)
		}
		if _, err := time.Parse(dueDateLayout, in.DueDate); err != nil {
			return fieldErr("due_date", ErrInvalidDueDate)
		}
	}
	return nil
}

func buildPayload(in OrderInput, res pricing.Result, mode string) cleanup.OrderPayload {
	p := cleanup.OrderPayload{
		Speed:          int(in.Speed),
		Package:        string(in.Package),
		Discount:       res.DiscountPercent.StringFixed(2),
		Installment:    string(in.Installment),
		CustomerID:     in.CustomerID,
		Remarks:        in.Remarks,
		Cost:           res.NetCost.StringFixed(2),
		DiscountedCost: res.DiscountedCost.StringFixed(2),
		Paid:           res.DueNow.StringFixed(2),
		Mode:           mode,
	}
	if pricing.RequiresDueDate(in.Speed) {
		p.DueDate = in.DueDate
	}
	for _, line := range res.Lines {
		if !line.Included {
			continue
		}
		p.Items = append(p.Items, cleanup.OrderPayloadItem{
			ServiceID: line.ServiceID,
			GarmentID: line.GarmentID,
			Quantity:  line.Quantity,
		})
	}
	return p
}
