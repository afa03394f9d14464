package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/service"
	"github.com/go-chi/chi/v5"
)

// ActionServicer defines the service methods needed by lifecycle action handlers.
// Satisfied by *service.ActionService.
type ActionServicer interface {
	Perform(ctx context.Context, actor service.Actor, store, code string, action lifecycle.Action) (lifecycle.Order, error)
	Deliver(ctx context.Context, actor service.Actor, store, code, mode string) (lifecycle.Order, error)
	Rewash(ctx context.Context, actor service.Actor, store, code string, itemIDs []int64) (lifecycle.Order, error)
	CreateDeliveryChallan(ctx context.Context, actor service.Actor, store, factoryID string, codes []string) (cleanup.Challan, error)
	CreateReturnChallan(ctx context.Context, actor service.Actor, store string, entries []lifecycle.ReturnEntry) (cleanup.Challan, error)
	Timeline(ctx context.Context, store, code string) ([]lifecycle.StatusEvent, error)
}

// ActionHandler handles lifecycle actions on existing orders. Role checks
// happen in the service so that every rejection is journaled the same way.
type ActionHandler struct {
	svc ActionServicer
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(svc ActionServicer) *ActionHandler {
	return &ActionHandler{svc: svc}
}

// RegisterOrderRoutes registers per-order actions. Mounted at /stores/{store}/orders.
func (h *ActionHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{code}/status", h.Status)
	r.Put("/{code}/deliver", h.Deliver)
	r.Post("/{code}/rewash", h.Rewash)
	r.Get("/{code}/timeline", h.Timeline)
}

// RegisterStoreRoutes registers challan endpoints. Mounted at /stores/{store}.
func (h *ActionHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/challans", h.CreateDeliveryChallan)
	r.Post("/return-challans", h.CreateReturnChallan)
}

// --- Request / Response types ---

type statusRequest struct {
	Action string `json:"action"`
}

type deliverRequest struct {
	Mode string `json:"mode"`
}

type rewashRequest struct {
	Items []int64 `json:"items"`
}

type deliveryChallanRequest struct {
	FactoryID string   `json:"factory_id"`
	Orders    []string `json:"orders"`
}

type returnChallanRequest struct {
	Orders []returnChallanItem `json:"orders"`
}

type returnChallanItem struct {
	Code string `json:"code"`
	Bags int    `json:"bags"`
}

type challanResponse struct {
	ID        int64    `json:"id"`
	Code      string   `json:"code"`
	FactoryID string   `json:"factory_id,omitempty"`
	Orders    []string `json:"orders"`
}

type statusEventResponse struct {
	Action        string    `json:"action"`
	PerformerID   int64     `json:"performer_id"`
	PerformerName string    `json:"performer_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// --- Handlers ---

// Status handles POST /stores/{store}/orders/{code}/status.
// Stations scan an order code and submit washed, ironed or packed.
func (h *ActionHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	o, err := h.svc.Perform(r.Context(), actor, chi.URLParam(r, "store"), chi.URLParam(r, "code"), lifecycle.Action(req.Action))
	if err != nil {
		writeServiceError(w, "order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Deliver handles PUT /stores/{store}/orders/{code}/deliver.
func (h *ActionHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	// body is optional: a fully paid order needs no payment mode
	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	o, err := h.svc.Deliver(r.Context(), actor, chi.URLParam(r, "store"), chi.URLParam(r, "code"), req.Mode)
	if err != nil {
		writeServiceError(w, "deliver order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Rewash handles POST /stores/{store}/orders/{code}/rewash.
func (h *ActionHandler) Rewash(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req rewashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	child, err := h.svc.Rewash(r.Context(), actor, chi.URLParam(r, "store"), chi.URLParam(r, "code"), req.Items)
	if err != nil {
		writeServiceError(w, "create rewash", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(child))
}

// Timeline handles GET /stores/{store}/orders/{code}/timeline.
func (h *ActionHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Timeline(r.Context(), chi.URLParam(r, "store"), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, "order timeline", err)
		return
	}

	resp := make([]statusEventResponse, len(events))
	for i, ev := range events {
		resp[i] = statusEventResponse{
			Action:        string(ev.Action),
			PerformerID:   ev.PerformerID,
			PerformerName: ev.PerformerName,
			CreatedAt:     ev.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateDeliveryChallan handles POST /stores/{store}/challans.
func (h *ActionHandler) CreateDeliveryChallan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req deliveryChallanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	c, err := h.svc.CreateDeliveryChallan(r.Context(), actor, chi.URLParam(r, "store"), req.FactoryID, req.Orders)
	if err != nil {
		writeServiceError(w, "create delivery challan", err)
		return
	}

	writeJSON(w, http.StatusCreated, toChallanResponse(c))
}

// CreateReturnChallan handles POST /stores/{store}/return-challans.
func (h *ActionHandler) CreateReturnChallan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req returnChallanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	entries := make([]lifecycle.ReturnEntry, len(req.Orders))
	for i, o := range req.Orders {
		entries[i] = lifecycle.ReturnEntry{Code: o.Code, Bags: o.Bags}
	}

	c, err := h.svc.CreateReturnChallan(r.Context(), actor, chi.URLParam(r, "store"), entries)
	if err != nil {
		writeServiceError(w, "create return challan", err)
		return
	}

	writeJSON(w, http.StatusCreated, toChallanResponse(c))
}

func toChallanResponse(c cleanup.Challan) challanResponse {
	orders := c.Orders
	if orders == nil {
		orders = []string{}
	}
	return challanResponse{ID: c.ID, Code: c.Code, FactoryID: c.FactoryID, Orders: orders}
}
