package cleanup

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/pricing"
)

// OrderPayload is the body of order create and edit requests: the raw form
// inputs plus the amounts computed by the pricing engine.
type OrderPayload struct {
	Items          []OrderPayloadItem `json:"items"`
	Speed          int                `json:"speed"`
	Package        string             `json:"package"`
	Discount       string             `json:"discount"`
	Installment    string             `json:"installment"`
	DueDate        string             `json:"due_date,omitempty"`
	CustomerID     string             `json:"customer_id,omitempty"`
	Remarks        string             `json:"remarks,omitempty"`
	Cost           string             `json:"cost"`
	DiscountedCost string             `json:"discounted_cost"`
	Paid           string             `json:"paid"`
	Mode           string             `json:"mode,omitempty"`
}

// OrderPayloadItem is one line item of an OrderPayload.
type OrderPayloadItem struct {
	ServiceID string `json:"service_id"`
	GarmentID string `json:"garment_id"`
	Quantity  int    `json:"quantity"`
}

// ListOrdersParams filters an order list.
type ListOrdersParams struct {
	Search string
	Status string
	Page   int
}

// Catalog fetches the Service → Garment price list.
func (c *Client) Catalog(ctx context.Context) (pricing.Catalog, error) {
	const op = "get catalog"
	env, err := c.do(ctx, op, http.MethodGet, "/services", url.Values{"include": {"garments"}}, nil)
	if err != nil {
		return nil, err
	}
	return parseCatalog(op, env.Data)
}

// ListOrders fetches one page of a store's orders.
func (c *Client) ListOrders(ctx context.Context, store string, p ListOrdersParams) ([]lifecycle.Order, Page, error) {
	const op = "list orders"
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	env, err := c.do(ctx, op, http.MethodGet, storePath(store, "orders"), q, nil)
	if err != nil {
		return nil, Page{}, err
	}
	orders, err := parseOrders(op, env.Data)
	if err != nil {
		return nil, Page{}, err
	}
	page, err := parsePage(op, env.Meta)
	if err != nil {
		return nil, Page{}, err
	}
	return orders, page, nil
}

// GetOrder fetches one order by code.
func (c *Client) GetOrder(ctx context.Context, store, code string) (lifecycle.Order, error) {
	const op = "get order"
	env, err := c.do(ctx, op, http.MethodGet, storePath(store, "orders", url.PathEscape(code)), nil, nil)
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, store string, p OrderPayload) (lifecycle.Order, error) {
	const op = "create order"
	env, err := c.do(ctx, op, http.MethodPost, storePath(store, "orders"), nil, p)
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

// UpdateOrder replaces the contents of an existing order.
func (c *Client) UpdateOrder(ctx context.Context, store, code string, p OrderPayload) (lifecycle.Order, error) {
	const op = "update order"
	env, err := c.do(ctx, op, http.MethodPut, storePath(store, "orders", url.PathEscape(code)), nil, p)
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

type deliverBody struct {
	Mode string `json:"mode,omitempty"`
}

// DeliverOrder hands an order to the customer, settling any balance with mode.
func (c *Client) DeliverOrder(ctx context.Context, store, code, mode string) (lifecycle.Order, error) {
	const op = "deliver order"
	env, err := c.do(ctx, op, http.MethodPut, storePath(store, "orders", url.PathEscape(code), "deliver"), nil, deliverBody{Mode: mode})
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

type actionBody struct {
	Action string `json:"action"`
}

// PerformAction records a processing-stage action (washed, ironed, packed).
func (c *Client) PerformAction(ctx context.Context, code string, action lifecycle.Action) (lifecycle.Order, error) {
	const op = "order status"
	env, err := c.do(ctx, op, http.MethodPost, "/orders/"+url.PathEscape(code)+"/status", nil, actionBody{Action: string(action)})
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

// Timeline fetches the status events of an order.
func (c *Client) Timeline(ctx context.Context, orderID int64) ([]lifecycle.StatusEvent, error) {
	const op = "order timeline"
	env, err := c.do(ctx, op, http.MethodGet, "/orders/"+strconv.FormatInt(orderID, 10)+"/status", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseTimeline(op, env.Data)
}

type rewashBody struct {
	OrderID int64   `json:"order_id"`
	Items   []int64 `json:"items"`
}

// CreateRewash requests a rewash of the given items and returns the child order.
func (c *Client) CreateRewash(ctx context.Context, store string, orderID int64, items []int64) (lifecycle.Order, error) {
	const op = "create rewash"
	env, err := c.do(ctx, op, http.MethodPost, storePath(store, "orders", "rewash"), nil, rewashBody{OrderID: orderID, Items: items})
	if err != nil {
		return lifecycle.Order{}, err
	}
	return parseOrder(op, env.Data)
}

type challanBody struct {
	FactoryID string   `json:"factory_id"`
	Orders    []string `json:"orders"`
}

// CreateDeliveryChallan groups orders onto a challan sent to a factory.
func (c *Client) CreateDeliveryChallan(ctx context.Context, store, factoryID string, codes []string) (Challan, error) {
	const op = "create delivery challan"
	env, err := c.do(ctx, op, http.MethodPost, storePath(store, "challans"), nil, challanBody{FactoryID: factoryID, Orders: codes})
	if err != nil {
		return Challan{}, err
	}
	return parseChallan(op, env.Data)
}

type returnChallanBody struct {
	Orders []returnChallanEntry `json:"orders"`
}

type returnChallanEntry struct {
	Code string `json:"code"`
	Bags int    `json:"bags"`
}

// CreateReturnChallan bundles packed orders and their bag counts back to the store.
func (c *Client) CreateReturnChallan(ctx context.Context, store string, entries []lifecycle.ReturnEntry) (Challan, error) {
	const op = "create return challan"
	body := returnChallanBody{Orders: make([]returnChallanEntry, len(entries))}
	for i, e := range entries {
		body.Orders[i] = returnChallanEntry{Code: e.Code, Bags: e.Bags}
	}
	env, err := c.do(ctx, op, http.MethodPost, storePath(store, "return-challans"), nil, body)
	if err != nil {
		return Challan{}, err
	}
	return parseChallan(op, env.Data)
}
