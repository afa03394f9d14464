package cleanup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/shopspring/decimal"
)

// id accepts both JSON numbers and strings and keeps the textual form.
type id string

func (i *id) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*i = id(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*i = id(n.String())
	return nil
}

// --- Catalog ---

type wireService struct {
	ID       *id           `json:"id"`
	Name     string        `json:"name"`
	Garments []wireGarment `json:"garments"`
}

type wireGarment struct {
	ID       *id              `json:"id"`
	Name     string           `json:"name"`
	PriceMax *decimal.Decimal `json:"price_max"`
}

func parseCatalog(op string, data json.RawMessage) (pricing.Catalog, error) {
	var services []wireService
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, &ParseError{Op: op, Reason: "services", Err: err}
	}

	cat := make(pricing.Catalog, len(services))
	for i, s := range services {
		if s.ID == nil || *s.ID == "" {
			return nil, &ParseError{Op: op, Reason: fmt.Sprintf("services[%d]: missing id", i)}
		}
		svc := pricing.Service{
			ID:       string(*s.ID),
			Name:     s.Name,
			Garments: make(map[string]pricing.Garment, len(s.Garments)),
		}
		for j, g := range s.Garments {
			if g.ID == nil || *g.ID == "" {
				return nil, &ParseError{Op: op, Reason: fmt.Sprintf("services[%d].garments[%d]: missing id", i, j)}
			}
			if g.PriceMax == nil || g.PriceMax.IsNegative() {
				return nil, &ParseError{Op: op, Reason: fmt.Sprintf("services[%d].garments[%d]: missing or negative price_max", i, j)}
			}
			svc.Garments[string(*g.ID)] = pricing.Garment{
				ID:       string(*g.ID),
				Name:     g.Name,
				PriceMax: *g.PriceMax,
			}
		}
		cat[svc.ID] = svc
	}
	return cat, nil
}

// --- Orders ---

type wireOrder struct {
	ID                *int64           `json:"id"`
	Code              *string          `json:"code"`
	StoreID           *id              `json:"store_id"`
	Status            *string          `json:"status"`
	Cost              *decimal.Decimal `json:"cost"`
	Paid              *decimal.Decimal `json:"paid"`
	Discount          *decimal.Decimal `json:"discount"`
	Count             int              `json:"count"`
	Remarks           string           `json:"remarks"`
	RewashParentID    *int64           `json:"rewash_parent_id"`
	DeliveryChallanID *int64           `json:"delivery_challan_id"`
	ReturnChallanID   *int64           `json:"return_challan_id"`
	DueDate           *string          `json:"due_date"`
	CreatedAt         *string          `json:"created_at"`
	Items             []wireOrderItem  `json:"items"`
}

type wireOrderItem struct {
	ID              *int64           `json:"id"`
	ServiceID       *id              `json:"service_id"`
	GarmentID       *id              `json:"garment_id"`
	Quantity        int              `json:"quantity"`
	Cost            *decimal.Decimal `json:"cost"`
	RewashRequested bool             `json:"rewash_requested"`
}

func parseOrder(op string, data json.RawMessage) (lifecycle.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(data, &w); err != nil {
		return lifecycle.Order{}, &ParseError{Op: op, Reason: "order", Err: err}
	}
	return w.toOrder(op)
}

func parseOrders(op string, data json.RawMessage) ([]lifecycle.Order, error) {
	var ws []wireOrder
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, &ParseError{Op: op, Reason: "orders", Err: err}
	}
	out := make([]lifecycle.Order, len(ws))
	for i, w := range ws {
		o, err := w.toOrder(fmt.Sprintf("%s[%d]", op, i))
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

func (w wireOrder) toOrder(op string) (lifecycle.Order, error) {
	switch {
	case w.ID == nil:
		return lifecycle.Order{}, &ParseError{Op: op, Reason: "missing id"}
	case w.Code == nil || *w.Code == "":
		return lifecycle.Order{}, &ParseError{Op: op, Reason: "missing code"}
	case w.Status == nil:
		return lifecycle.Order{}, &ParseError{Op: op, Reason: "missing status"}
	case !lifecycle.Status(*w.Status).Valid():
		return lifecycle.Order{}, &ParseError{Op: op, Reason: fmt.Sprintf("unknown status %q", *w.Status)}
	case w.Cost == nil:
		return lifecycle.Order{}, &ParseError{Op: op, Reason: "missing cost"}
	}

	o := lifecycle.Order{
		ID:                *w.ID,
		Code:              *w.Code,
		Status:            lifecycle.Status(*w.Status),
		Cost:              *w.Cost,
		Paid:              decimal.Zero,
		Discount:          decimal.Zero,
		Count:             w.Count,
		Remarks:           w.Remarks,
		RewashParentID:    w.RewashParentID,
		DeliveryChallanID: w.DeliveryChallanID,
		ReturnChallanID:   w.ReturnChallanID,
	}
	if w.StoreID != nil {
		o.StoreID = string(*w.StoreID)
	}
	if w.Paid != nil {
		o.Paid = *w.Paid
	}
	if w.Discount != nil {
		o.Discount = *w.Discount
	}
	if w.DueDate != nil && *w.DueDate != "" {
		t, err := parseTime(*w.DueDate)
		if err != nil {
			return lifecycle.Order{}, &ParseError{Op: op, Reason: "due_date", Err: err}
		}
		o.DueDate = &t
	}
	if w.CreatedAt != nil && *w.CreatedAt != "" {
		t, err := parseTime(*w.CreatedAt)
		if err != nil {
			return lifecycle.Order{}, &ParseError{Op: op, Reason: "created_at", Err: err}
		}
		o.CreatedAt = t
	}

	o.Items = make([]lifecycle.OrderItem, len(w.Items))
	for i, it := range w.Items {
		if it.ID == nil || it.ServiceID == nil || it.GarmentID == nil {
			return lifecycle.Order{}, &ParseError{Op: op, Reason: fmt.Sprintf("items[%d]: missing id, service_id or garment_id", i)}
		}
		item := lifecycle.OrderItem{
			ID:              *it.ID,
			ServiceID:       string(*it.ServiceID),
			GarmentID:       string(*it.GarmentID),
			Quantity:        it.Quantity,
			Cost:            decimal.Zero,
			RewashRequested: it.RewashRequested,
		}
		if it.Cost != nil {
			item.Cost = *it.Cost
		}
		o.Items[i] = item
	}
	return o, nil
}

// --- Timeline ---

type wireStatusEvent struct {
	Action        *string `json:"action"`
	PerformerID   *int64  `json:"performer_id"`
	PerformerName string  `json:"performer_name"`
	CreatedAt     *string `json:"created_at"`
}

func parseTimeline(op string, data json.RawMessage) ([]lifecycle.StatusEvent, error) {
	var ws []wireStatusEvent
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, &ParseError{Op: op, Reason: "status events", Err: err}
	}
	out := make([]lifecycle.StatusEvent, len(ws))
	for i, w := range ws {
		if w.Action == nil || *w.Action == "" || w.CreatedAt == nil {
			return nil, &ParseError{Op: op, Reason: fmt.Sprintf("events[%d]: missing action or created_at", i)}
		}
		t, err := parseTime(*w.CreatedAt)
		if err != nil {
			return nil, &ParseError{Op: op, Reason: fmt.Sprintf("events[%d].created_at", i), Err: err}
		}
		ev := lifecycle.StatusEvent{
			Action:        lifecycle.Action(*w.Action),
			PerformerName: w.PerformerName,
			CreatedAt:     t,
		}
		if w.PerformerID != nil {
			ev.PerformerID = *w.PerformerID
		}
		out[i] = ev
	}
	lifecycle.SortTimeline(out)
	return out, nil
}

// --- Challans ---

// Challan is a dispatch manifest returned by the backend.
type Challan struct {
	ID        int64
	Code      string
	FactoryID string
	Orders    []string
}

type wireChallan struct {
	ID        *int64   `json:"id"`
	Code      string   `json:"code"`
	FactoryID *id      `json:"factory_id"`
	Orders    []string `json:"orders"`
}

func parseChallan(op string, data json.RawMessage) (Challan, error) {
	var w wireChallan
	if err := json.Unmarshal(data, &w); err != nil {
		return Challan{}, &ParseError{Op: op, Reason: "challan", Err: err}
	}
	if w.ID == nil {
		return Challan{}, &ParseError{Op: op, Reason: "missing id"}
	}
	c := Challan{ID: *w.ID, Code: w.Code, Orders: w.Orders}
	if w.FactoryID != nil {
		c.FactoryID = string(*w.FactoryID)
	}
	return c, nil
}

// --- Pagination ---

// Page is the pagination metadata of a list response.
type Page struct {
	Current int `json:"current_page"`
	Last    int `json:"last_page"`
	Total   int `json:"total"`
}

func parsePage(op string, meta json.RawMessage) (Page, error) {
	var p Page
	if len(meta) == 0 || string(meta) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(meta, &p); err != nil {
		return Page{}, &ParseError{Op: op, Reason: "meta", Err: err}
	}
	return p, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
