package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/handler"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/cleanup/dashboard/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Mock service ---

type mockOrderService struct {
	quoteFn  func(ctx context.Context, items []pricing.LineItem, mods pricing.Modifiers) (pricing.Result, error)
	listFn   func(ctx context.Context, actor service.Actor, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error)
	getFn    func(ctx context.Context, actor service.Actor, store, code string) (service.OrderView, error)
	createFn func(ctx context.Context, actor service.Actor, store string, in service.OrderInput) (lifecycle.Order, error)
	updateFn func(ctx context.Context, actor service.Actor, store, code string, in service.OrderInput) (lifecycle.Order, error)
}

func (m *mockOrderService) Quote(ctx context.Context, items []pricing.LineItem, mods pricing.Modifiers) (pricing.Result, error) {
	if m.quoteFn != nil {
		return m.quoteFn(ctx, items, mods)
	}
	return pricing.Compute(items, mods, testCatalog()), nil
}

func (m *mockOrderService) List(ctx context.Context, actor service.Actor, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error) {
	if m.listFn != nil {
		return m.listFn(ctx, actor, store, p)
	}
	return nil, cleanup.Page{}, nil
}

func (m *mockOrderService) Get(ctx context.Context, actor service.Actor, store, code string) (service.OrderView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, actor, store, code)
	}
	return service.OrderView{}, errors.New("not implemented")
}

func (m *mockOrderService) Create(ctx context.Context, actor service.Actor, store string, in service.OrderInput) (lifecycle.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, store, in)
	}
	return lifecycle.Order{}, errors.New("not implemented")
}

func (m *mockOrderService) Update(ctx context.Context, actor service.Actor, store, code string, in service.OrderInput) (lifecycle.Order, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, store, code, in)
	}
	return lifecycle.Order{}, errors.New("not implemented")
}

// --- Helpers ---

func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/stores/{store}/orders", h.RegisterRoutes)
	return r
}

func sampleOrder(code string, status lifecycle.Status) lifecycle.Order {
	return lifecycle.Order{
		ID:      42,
		Code:    code,
		StoreID: "3",
		Status:  status,
		Cost:    decimal.RequireFromString("413.00"),
		Paid:    decimal.RequireFromString("206.50"),
		Count:   4,
		Items: []lifecycle.OrderItem{
			{ID: 1, ServiceID: "1", GarmentID: "10", Quantity: 3, Cost: decimal.NewFromInt(300)},
			{ID: 2, ServiceID: "1", GarmentID: "11", Quantity: 1, Cost: decimal.NewFromInt(50)},
		},
	}
}

func orderForm() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"service_id": "1", "garment_id": "10", "quantity": 3},
			{"service_id": "1", "garment_id": "11", "quantity": 1},
		},
		"speed":       0,
		"installment": "half",
		"due_date":    "2026-10-20",
		"mode":        "cash",
	}
}

// --- Quote ---

func TestOrderQuote(t *testing.T) {
	var gotMods pricing.Modifiers
	svc := &mockOrderService{
		quoteFn: func(_ context.Context, items []pricing.LineItem, mods pricing.Modifiers) (pricing.Result, error) {
			gotMods = mods
			return pricing.Compute(items, mods, testCatalog()), nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/stores/3/orders/quote", orderForm(), newUser("3", "operator"))
	expectStatus(t, rr, http.StatusOK)

	if gotMods.Package != pricing.PackageExecutive {
		t.Errorf("package: got %q, want executive default", gotMods.Package)
	}

	resp := decodeResponse(t, rr)
	want := map[string]interface{}{
		"gross_cost":        "350.00",
		"discounted_cost":   "350.00",
		"cgst":              "31.50",
		"sgst":              "31.50",
		"net_cost":          "413.00",
		"due_now":           "206.50",
		"count":             float64(4),
		"requires_due_date": true,
	}
	for k, v := range want {
		if resp[k] != v {
			t.Errorf("%s: got %v, want %v", k, resp[k], v)
		}
	}
}

func TestOrderQuote_ExcludedLines(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"service_id": "1", "garment_id": "10", "quantity": 1},
			{"service_id": "1", "garment_id": "99", "quantity": 2},
		},
		"speed":   1,
		"package": "economy",
	}
	rr := doAuthRequest(t, router, "POST", "/stores/3/orders/quote", body, newUser("3", "operator"))
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	lines := resp["lines"].([]interface{})
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	if lines[1].(map[string]interface{})["included"] != false {
		t.Error("unknown garment should not be included")
	}
	// 100 * 2 (one day) - 15% economy
	if resp["package_adjusted_cost"] != "170.00" {
		t.Errorf("package_adjusted_cost: got %v", resp["package_adjusted_cost"])
	}
	if resp["requires_due_date"] != false {
		t.Error("expedited speed should not require a due date")
	}
}

func TestOrderQuote_RoleGate(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})
	rr := doAuthRequest(t, router, "POST", "/stores/3/orders/quote", orderForm(), newUser("3", "washer"))
	expectStatus(t, rr, http.StatusForbidden)
}

func TestOrderQuote_CatalogUnavailable(t *testing.T) {
	svc := &mockOrderService{
		quoteFn: func(context.Context, []pricing.LineItem, pricing.Modifiers) (pricing.Result, error) {
			return pricing.Result{}, fmt.Errorf("refresh catalog: %w", &cleanup.TransportError{Op: "get catalog", Err: context.DeadlineExceeded})
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/stores/3/orders/quote", orderForm(), newUser("3", "operator"))
	expectStatus(t, rr, http.StatusBadGateway)
	if resp := decodeResponse(t, rr); resp["error"] != "could not reach server" {
		t.Errorf("error: got %v", resp["error"])
	}
}

// --- Create ---

func TestOrderCreate(t *testing.T) {
	user := newUser("3", "operator")
	var got service.OrderInput
	svc := &mockOrderService{
		createFn: func(_ context.Context, actor service.Actor, store string, in service.OrderInput) (lifecycle.Order, error) {
			if actor.UserID != user.ID || actor.Role != lifecycle.RoleOperator {
				t.Errorf("actor: got %+v", actor)
			}
			if store != "3" {
				t.Errorf("store: got %q", store)
			}
			got = in
			return sampleOrder("CL-100", lifecycle.StatusReceived), nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "POST", "/stores/3/orders", orderForm(), user)
	expectStatus(t, rr, http.StatusCreated)

	if len(got.Items) != 2 || got.Items[0].Quantity != 3 {
		t.Errorf("items: got %+v", got.Items)
	}
	if got.Installment != pricing.InstallmentHalf || got.DueDate != "2026-10-20" || got.Mode != "cash" {
		t.Errorf("input: got %+v", got)
	}

	resp := decodeResponse(t, rr)
	if resp["code"] != "CL-100" {
		t.Errorf("code: got %v", resp["code"])
	}
	if resp["balance"] != "206.50" {
		t.Errorf("balance: got %v", resp["balance"])
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})
	rr := doAuthRequest(t, router, "POST", "/stores/3/orders", "{not json", newUser("3", "operator"))
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestOrderCreate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "field validation",
			err:        &service.FieldError{Field: "due_date", Err: service.ErrDueDateRequired},
			wantStatus: http.StatusBadRequest,
			wantError:  service.ErrDueDateRequired.Error(),
			wantField:  "due_date",
		},
		{
			name:       "forbidden",
			err:        fmt.Errorf("operator create_order: %w", lifecycle.ErrForbidden),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "in flight",
			err:        service.ErrInFlight,
			wantStatus: http.StatusConflict,
			wantError:  service.ErrInFlight.Error(),
		},
		{
			name:       "backend validation",
			err:        &cleanup.RemoteError{StatusCode: 422, Message: "The given data was invalid.", Fields: map[string]string{"customer_id": "The selected customer id is invalid."}},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "The given data was invalid.",
			wantField:  "customer_id",
		},
		{
			name:       "backend failure",
			err:        &cleanup.RemoteError{StatusCode: 500, Message: "Server Error"},
			wantStatus: http.StatusBadGateway,
			wantError:  "Server Error",
		},
		{
			name:       "unreachable",
			err:        &cleanup.TransportError{Op: "create order", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantError:  "could not reach server",
		},
		{
			name:       "unexpected response",
			err:        &cleanup.ParseError{Op: "create order", Reason: "missing code"},
			wantStatus: http.StatusBadGateway,
			wantError:  "unexpected response from server",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				createFn: func(context.Context, service.Actor, string, service.OrderInput) (lifecycle.Order, error) {
					return lifecycle.Order{}, tt.err
				},
			}
			router := setupOrderRouter(svc)

			rr := doAuthRequest(t, router, "POST", "/stores/3/orders", orderForm(), newUser("3", "operator"))
			expectStatus(t, rr, tt.wantStatus)

			resp := decodeResponse(t, rr)
			if tt.wantError != "" && resp["error"] != tt.wantError {
				t.Errorf("error: got %v, want %q", resp["error"], tt.wantError)
			}
			if tt.wantField != "" {
				fields, _ := resp["fields"].(map[string]interface{})
				if _, ok := fields[tt.wantField]; !ok {
					t.Errorf("fields: got %v, want key %q", resp["fields"], tt.wantField)
				}
			}
		})
	}
}

// --- Update ---

func TestOrderUpdate(t *testing.T) {
	svc := &mockOrderService{
		updateFn: func(_ context.Context, _ service.Actor, store, code string, in service.OrderInput) (lifecycle.Order, error) {
			if store != "3" || code != "CL-7" {
				t.Errorf("target: got %s/%s", store, code)
			}
			if in.Remarks != "starch" {
				t.Errorf("remarks: got %q", in.Remarks)
			}
			return sampleOrder(code, lifecycle.StatusReceived), nil
		},
	}
	router := setupOrderRouter(svc)

	body := orderForm()
	body["remarks"] = "starch"
	rr := doAuthRequest(t, router, "PUT", "/stores/3/orders/CL-7", body, newUser("3", "operator"))
	expectStatus(t, rr, http.StatusOK)
}

func TestOrderUpdate_Frozen(t *testing.T) {
	svc := &mockOrderService{
		updateFn: func(context.Context, service.Actor, string, string, service.OrderInput) (lifecycle.Order, error) {
			return lifecycle.Order{}, lifecycle.ErrFrozen
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PUT", "/stores/3/orders/CL-7", orderForm(), newUser("3", "operator"))
	expectStatus(t, rr, http.StatusConflict)
}

// --- List / Get ---

func TestOrderList(t *testing.T) {
	var got cleanup.ListOrdersParams
	svc := &mockOrderService{
		listFn: func(_ context.Context, _ service.Actor, _ string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error) {
			got = p
			return []lifecycle.Order{sampleOrder("CL-1", lifecycle.StatusProcessed)}, cleanup.Page{Current: 2, Last: 5, Total: 90}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/stores/3/orders?status=processed&page=2&search=CL", nil, newUser("3", "washer"))
	expectStatus(t, rr, http.StatusOK)

	if got.Status != "processed" || got.Page != 2 || got.Search != "CL" {
		t.Errorf("params: got %+v", got)
	}
	resp := decodeResponse(t, rr)
	if resp["current_page"] != float64(2) || resp["last_page"] != float64(5) {
		t.Errorf("page: got %v/%v", resp["current_page"], resp["last_page"])
	}
	if orders := resp["orders"].([]interface{}); len(orders) != 1 {
		t.Errorf("orders: got %d", len(orders))
	}
}

func TestOrderList_BadQuery(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})
	for _, q := range []string{"status=lost", "page=0", "page=x"} {
		t.Run(q, func(t *testing.T) {
			rr := doAuthRequest(t, router, "GET", "/stores/3/orders?"+q, nil, newUser("3", "operator"))
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestOrderList_Superseded(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(context.Context, service.Actor, string, cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error) {
			return nil, cleanup.Page{}, service.ErrSuperseded
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/stores/3/orders", nil, newUser("3", "operator"))
	expectStatus(t, rr, http.StatusConflict)
}

func TestOrderGet(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(_ context.Context, _ service.Actor, _, code string) (service.OrderView, error) {
			return service.OrderView{
				Order:               sampleOrder(code, lifecycle.StatusProcessed),
				Available:           []lifecycle.Action{lifecycle.ActionCreateDeliveryChallan, lifecycle.ActionDeliver},
				Editable:            true,
				RequiresPaymentMode: true,
			}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/stores/3/orders/CL-5", nil, newUser("3", "operator"))
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["code"] != "CL-5" || resp["status"] != "processed" {
		t.Errorf("order: got %v %v", resp["code"], resp["status"])
	}
	actions := resp["available_actions"].([]interface{})
	if len(actions) != 2 || actions[1] != "deliver" {
		t.Errorf("available_actions: got %v", actions)
	}
	if resp["editable"] != true || resp["requires_payment_mode"] != true {
		t.Errorf("flags: got editable=%v requires_payment_mode=%v", resp["editable"], resp["requires_payment_mode"])
	}
	if resp["delivery_challan_id"] != nil {
		t.Errorf("delivery_challan_id: got %v, want null", resp["delivery_challan_id"])
	}
}

func TestOrderGet_RemoteNotFound(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(context.Context, service.Actor, string, string) (service.OrderView, error) {
			return service.OrderView{}, &cleanup.RemoteError{StatusCode: 404, Message: "Order not found"}
		},
	}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/stores/3/orders/CL-404", nil, newUser("3", "operator"))
	expectStatus(t, rr, http.StatusNotFound)
	if resp := decodeResponse(t, rr); resp["error"] != "Order not found" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestOrderRoutes_Unauthenticated(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	req := httptest.NewRequest("GET", "/stores/3/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	expectStatus(t, rr, http.StatusUnauthorized)
}
