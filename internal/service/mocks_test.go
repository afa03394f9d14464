package service

import (
	"context"
	"sync"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/database"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

type mockBackend struct {
	listOrdersFn            func(ctx context.Context, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error)
	getOrderFn              func(ctx context.Context, store, code string) (lifecycle.Order, error)
	createOrderFn           func(ctx context.Context, store string, p cleanup.OrderPayload) (lifecycle.Order, error)
	updateOrderFn           func(ctx context.Context, store, code string, p cleanup.OrderPayload) (lifecycle.Order, error)
	deliverOrderFn          func(ctx context.Context, store, code, mode string) (lifecycle.Order, error)
	performActionFn         func(ctx context.Context, code string, action lifecycle.Action) (lifecycle.Order, error)
	timelineFn              func(ctx context.Context, orderID int64) ([]lifecycle.StatusEvent, error)
	createRewashFn          func(ctx context.Context, store string, orderID int64, items []int64) (lifecycle.Order, error)
	createDeliveryChallanFn func(ctx context.Context, store, factoryID string, codes []string) (cleanup.Challan, error)
	createReturnChallanFn   func(ctx context.Context, store string, entries []lifecycle.ReturnEntry) (cleanup.Challan, error)
}

func (m *mockBackend) ListOrders(ctx context.Context, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error) {
	return m.listOrdersFn(ctx, store, p)
}
func (m *mockBackend) GetOrder(ctx context.Context, store, code string) (lifecycle.Order, error) {
	return m.getOrderFn(ctx, store, code)
}
func (m *mockBackend) CreateOrder(ctx context.Context, store string, p cleanup.OrderPayload) (lifecycle.Order, error) {
	return m.createOrderFn(ctx, store, p)
}
func (m *mockBackend) UpdateOrder(ctx context.Context, store, code string, p cleanup.OrderPayload) (lifecycle.Order, error) {
	return m.updateOrderFn(ctx, store, code, p)
}
func (m *mockBackend) DeliverOrder(ctx context.Context, store, code, mode string) (lifecycle.Order, error) {
	return m.deliverOrderFn(ctx, store, code, mode)
}
func (m *mockBackend) PerformAction(ctx context.Context, code string, action lifecycle.Action) (lifecycle.Order, error) {
	return m.performActionFn(ctx, code, action)
}
func (m *mockBackend) Timeline(ctx context.Context, orderID int64) ([]lifecycle.StatusEvent, error) {
	return m.timelineFn(ctx, orderID)
}
func (m *mockBackend) CreateRewash(ctx context.Context, store string, orderID int64, items []int64) (lifecycle.Order, error) {
	return m.createRewashFn(ctx, store, orderID, items)
}
func (m *mockBackend) CreateDeliveryChallan(ctx context.Context, store, factoryID string, codes []string) (cleanup.Challan, error) {
	return m.createDeliveryChallanFn(ctx, store, factoryID, codes)
}
func (m *mockBackend) CreateReturnChallan(ctx context.Context, store string, entries []lifecycle.ReturnEntry) (cleanup.Challan, error) {
	return m.createReturnChallanFn(ctx, store, entries)
}

type staticCatalog struct {
	cat pricing.Catalog
	err error
}

func (s staticCatalog) Get(ctx context.Context) (pricing.Catalog, error) { return s.cat, s.err }

type mockJournal struct {
	mu      sync.Mutex
	entries []database.CreateJournalEntryParams
	err     error
}

func (m *mockJournal) CreateJournalEntry(ctx context.Context, arg database.CreateJournalEntryParams) (database.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, arg)
	return database.JournalEntry{ID: uuid.New(), StoreID: arg.StoreID, OrderCode: arg.OrderCode}, m.err
}

type notification struct {
	store  string
	action string
	codes  []string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (m *mockNotifier) NotifyOrderChanged(storeID, action string, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification{store: storeID, action: action, codes: codes})
}

// --- Test helpers ---

var testCatalog = pricing.Catalog{
	"1": {ID: "1", Name: "Dry Clean", Garments: map[string]pricing.Garment{
		"7": {ID: "7", Name: "Shirt", PriceMax: decimal.NewFromInt(100)},
		"8": {ID: "8", Name: "Tie", PriceMax: decimal.NewFromInt(50)},
	}},
}

func actor(role lifecycle.Role) Actor {
	return Actor{UserID: uuid.New(), Role: role}
}

func ptr(v int64) *int64 { return &v }

func testOrder(code string, status lifecycle.Status) lifecycle.Order {
	return lifecycle.Order{
		ID:     42,
		Code:   code,
		Status: status,
		Cost:   decimal.NewFromInt(413),
		Paid:   decimal.NewFromInt(413),
		Items: []lifecycle.OrderItem{
			{ID: 1, ServiceID: "1", GarmentID: "7", Quantity: 3, Cost: decimal.NewFromInt(100)},
			{ID: 2, ServiceID: "1", GarmentID: "8", Quantity: 1, Cost: decimal.NewFromInt(50)},
		},
	}
}

func getOrderReturning(o lifecycle.Order) func(ctx context.Context, store, code string) (lifecycle.Order, error) {
	return func(ctx context.Context, store, code string) (lifecycle.Order, error) {
		o.Code = code
		return o, nil
	}
}
