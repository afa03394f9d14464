package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/enum"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/cleanup/dashboard/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Quote(ctx context.Context, items []pricing.LineItem, mods pricing.Modifiers) (pricing.Result, error)
	List(ctx context.Context, actor service.Actor, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error)
	Get(ctx context.Context, actor service.Actor, store, code string) (service.OrderView, error)
	Create(ctx context.Context, actor service.Actor, store string, in service.OrderInput) (lifecycle.Order, error)
	Update(ctx context.Context, actor service.Actor, store, code string, in service.OrderInput) (lifecycle.Order, error)
}

// OrderHandler handles order form and order read endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a store-scoped subrouter: /stores/{store}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{code}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleOperator))
		r.Post("/quote", h.Quote)
		r.Post("/", h.Create)
		r.Put("/{code}", h.Update)
	})
}

// --- Request / Response types ---

type orderFormRequest struct {
	Items       []orderFormItem `json:"items"`
	Speed       int             `json:"speed"`
	Package     string          `json:"package"`
	Discount    *float64        `json:"discount"`
	Installment string          `json:"installment"`
	DueDate     string          `json:"due_date"`
	CustomerID  string          `json:"customer_id"`
	Remarks     string          `json:"remarks"`
	Mode        string          `json:"mode"`
}

type orderFormItem struct {
	ServiceID string `json:"service_id"`
	GarmentID string `json:"garment_id"`
	Quantity  int    `json:"quantity"`
}

func (req orderFormRequest) lineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = pricing.LineItem{ServiceID: it.ServiceID, GarmentID: it.GarmentID, Quantity: it.Quantity}
	}
	return items
}

func (req orderFormRequest) modifiers() pricing.Modifiers {
	pkg := pricing.Package(req.Package)
	if pkg == "" {
		pkg = pricing.PackageExecutive
	}
	var discount float64
	if req.Discount != nil {
		discount = *req.Discount
	}
	return pricing.Modifiers{
		Speed:           pricing.Speed(req.Speed),
		Package:         pkg,
		DiscountPercent: discount,
		Installment:     pricing.Installment(req.Installment),
	}
}

func (req orderFormRequest) input() service.OrderInput {
	mods := req.modifiers()
	return service.OrderInput{
		Items:           req.lineItems(),
		Speed:           mods.Speed,
		Package:         mods.Package,
		DiscountPercent: mods.DiscountPercent,
		Installment:     mods.Installment,
		DueDate:         req.DueDate,
		CustomerID:      req.CustomerID,
		Remarks:         req.Remarks,
		Mode:            req.Mode,
	}
}

type quoteLineResponse struct {
	ServiceID string `json:"service_id"`
	GarmentID string `json:"garment_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
	Included  bool   `json:"included"`
}

type quoteResponse struct {
	Lines               []quoteLineResponse `json:"lines"`
	Count               int                 `json:"count"`
	GrossCost           string              `json:"gross_cost"`
	SpeedAdjustedCost   string              `json:"speed_adjusted_cost"`
	PackageAdjustedCost string              `json:"package_adjusted_cost"`
	DiscountPercent     string              `json:"discount_percent"`
	DiscountAmount      string              `json:"discount_amount"`
	DiscountedCost      string              `json:"discounted_cost"`
	CGST                string              `json:"cgst"`
	SGST                string              `json:"sgst"`
	NetCost             string              `json:"net_cost"`
	DueNow              string              `json:"due_now"`
	RequiresDueDate     bool                `json:"requires_due_date"`
}

type orderItemResponse struct {
	ID              int64  `json:"id"`
	ServiceID       string `json:"service_id"`
	GarmentID       string `json:"garment_id"`
	Quantity        int    `json:"quantity"`
	Cost            string `json:"cost"`
	RewashRequested bool   `json:"rewash_requested"`
}

type orderResponse struct {
	ID                int64               `json:"id"`
	Code              string              `json:"code"`
	StoreID           string              `json:"store_id"`
	Status            string              `json:"status"`
	Cost              string              `json:"cost"`
	Paid              string              `json:"paid"`
	Balance           string              `json:"balance"`
	Discount          string              `json:"discount"`
	Count             int                 `json:"count"`
	Remarks           string              `json:"remarks"`
	RewashParentID    *int64              `json:"rewash_parent_id"`
	DeliveryChallanID *int64              `json:"delivery_challan_id"`
	ReturnChallanID   *int64              `json:"return_challan_id"`
	DueDate           *string             `json:"due_date"`
	CreatedAt         *time.Time          `json:"created_at"`
	Items             []orderItemResponse `json:"items"`
}

type orderDetailResponse struct {
	orderResponse
	AvailableActions    []string `json:"available_actions"`
	Editable            bool     `json:"editable"`
	RequiresPaymentMode bool     `json:"requires_payment_mode"`
}

type orderListResponse struct {
	Orders      []orderResponse `json:"orders"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
	Total       int             `json:"total"`
}

// --- Handlers ---

// Quote handles POST /stores/{store}/orders/quote.
// It prices the form as it stands; nothing is validated or submitted.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req orderFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	mods := req.modifiers()
	res, err := h.svc.Quote(r.Context(), req.lineItems(), mods)
	if err != nil {
		writeServiceError(w, "quote order", err)
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(res, mods.Speed))
}

// List handles GET /stores/{store}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := cleanup.ListOrdersParams{Search: q.Get("search")}
	if s := q.Get("status"); s != "" {
		if !lifecycle.Status(s).Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
			return
		}
		params.Status = s
	}
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid page"})
			return
		}
		params.Page = page
	}

	orders, page, err := h.svc.List(r.Context(), actor, chi.URLParam(r, "store"), params)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := orderListResponse{
		Orders:      make([]orderResponse, len(orders)),
		CurrentPage: page.Current,
		LastPage:    page.Last,
		Total:       page.Total,
	}
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /stores/{store}/orders/{code}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "store"), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	actions := make([]string, len(view.Available))
	for i, a := range view.Available {
		actions[i] = string(a)
	}
	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse:       toOrderResponse(view.Order),
		AvailableActions:    actions,
		Editable:            view.Editable,
		RequiresPaymentMode: view.RequiresPaymentMode,
	})
}

// Create handles POST /stores/{store}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req orderFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	o, err := h.svc.Create(r.Context(), actor, chi.URLParam(r, "store"), req.input())
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// Update handles PUT /stores/{store}/orders/{code}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req orderFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	o, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "store"), chi.URLParam(r, "code"), req.input())
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// --- Helpers ---

func toQuoteResponse(res pricing.Result, speed pricing.Speed) quoteResponse {
	resp := quoteResponse{
		Lines:               make([]quoteLineResponse, len(res.Lines)),
		Count:               res.Count,
		GrossCost:           res.GrossCost.StringFixed(2),
		SpeedAdjustedCost:   res.SpeedAdjustedCost.StringFixed(2),
		PackageAdjustedCost: res.PackageAdjustedCost.StringFixed(2),
		DiscountPercent:     res.DiscountPercent.StringFixed(2),
		DiscountAmount:      res.DiscountAmount.StringFixed(2),
		DiscountedCost:      res.DiscountedCost.StringFixed(2),
		CGST:                res.CGST.StringFixed(2),
		SGST:                res.SGST.StringFixed(2),
		NetCost:             res.NetCost.StringFixed(2),
		DueNow:              res.DueNow.StringFixed(2),
		RequiresDueDate:     pricing.RequiresDueDate(speed),
	}
	for i, l := range res.Lines {
		resp.Lines[i] = quoteLineResponse{
			ServiceID: l.ServiceID,
			GarmentID: l.GarmentID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Total:     l.Total.StringFixed(2),
			Included:  l.Included,
		}
	}
	return resp
}

func toOrderResponse(o lifecycle.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		Code:              o.Code,
		StoreID:           o.StoreID,
		Status:            string(o.Status),
		Cost:              o.Cost.StringFixed(2),
		Paid:              o.Paid.StringFixed(2),
		Balance:           o.Balance().StringFixed(2),
		Discount:          o.Discount.StringFixed(2),
		Count:             o.Count,
		Remarks:           o.Remarks,
		RewashParentID:    o.RewashParentID,
		DeliveryChallanID: o.DeliveryChallanID,
		ReturnChallanID:   o.ReturnChallanID,
		Items:             make([]orderItemResponse, len(o.Items)),
	}
	if o.DueDate != nil {
		s := o.DueDate.Format("2006-01-02")
		resp.DueDate = &s
	}
	if !o.CreatedAt.IsZero() {
		t := o.CreatedAt
		resp.CreatedAt = &t
	}
	for i, it := range o.Items {
		resp.Items[i] = orderItemResponse{
			ID:              it.ID,
			ServiceID:       it.ServiceID,
			GarmentID:       it.GarmentID,
			Quantity:        it.Quantity,
			Cost:            it.Cost.StringFixed(2),
			RewashRequested: it.RewashRequested,
		}
	}
	return resp
}
