// Package service orchestrates dashboard operations: it validates input with
// the pricing and lifecycle rules, makes exactly one mutating call to the
// Cleanup backend, journals the outcome and notifies connected dashboards.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/database"
	"github.com/cleanup/dashboard/internal/enum"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/google/uuid"
)

const journalTimeout = 5 * time.Second

// Backend is the part of the Cleanup API the services use.
// Satisfied by *cleanup.Client.
type Backend interface {
	ListOrders(ctx context.Context, store string, p cleanup.ListOrdersParams) ([]lifecycle.Order, cleanup.Page, error)
	GetOrder(ctx context.Context, store, code string) (lifecycle.Order, error)
	CreateOrder(ctx context.Context, store string, p cleanup.OrderPayload) (lifecycle.Order, error)
	UpdateOrder(ctx context.Context, store, code string, p cleanup.OrderPayload) (lifecycle.Order, error)
	DeliverOrder(ctx context.Context, store, code, mode string) (lifecycle.Order, error)
	PerformAction(ctx context.Context, code string, action lifecycle.Action) (lifecycle.Order, error)
	Timeline(ctx context.Context, orderID int64) ([]lifecycle.StatusEvent, error)
	CreateRewash(ctx context.Context, store string, orderID int64, items []int64) (lifecycle.Order, error)
	CreateDeliveryChallan(ctx context.Context, store, factoryID string, codes []string) (cleanup.Challan, error)
	CreateReturnChallan(ctx context.Context, store string, entries []lifecycle.ReturnEntry) (cleanup.Challan, error)
}

// CatalogSource provides the current price catalog.
// Satisfied by *catalog.Cache.
type CatalogSource interface {
	Get(ctx context.Context) (pricing.Catalog, error)
}

// JournalStore records action outcomes.
// Satisfied by *database.Queries.
type JournalStore interface {
	CreateJournalEntry(ctx context.Context, arg database.CreateJournalEntryParams) (database.JournalEntry, error)
}

// Notifier pushes refetch signals to dashboards of a store.
// Satisfied by *ws.Hub.
type Notifier interface {
	NotifyOrderChanged(storeID, action string, codes ...string)
}

// Actor is the authenticated dashboard user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   lifecycle.Role
}

// recorder wraps every mutation: in-flight guard, journal entry, notification.
type recorder struct {
	inflight *Inflight
	journal  JournalStore
	notifier Notifier
}

// run executes fn at most once concurrently per (action, store, codes). fn
// returns the codes it affected, which may differ from codes (a created order
// only has a code once the backend assigns it).
func (r *recorder) run(ctx context.Context, actor Actor, store string, action lifecycle.Action, codes []string, fn func(ctx context.Context) ([]string, error)) error {
	key := inflightKey(string(action), store, codes)
	if len(codes) == 0 {
		key += actor.UserID.String()
	}
	release, ok := r.inflight.Acquire(key)
	if !ok {
		return ErrInFlight
	}
	defer release()

	affected, err := fn(ctx)
	if len(affected) == 0 {
		affected = codes
	}
	r.record(ctx, actor, store, action, affected, err)

	if err == nil {
		r.notifier.NotifyOrderChanged(store, string(action), affected...)
	}
	return err
}

func (r *recorder) record(ctx context.Context, actor Actor, store string, action lifecycle.Action, codes []string, actionErr error) {
	outcome, message := enum.OutcomeOK, ""
	if actionErr != nil {
		outcome, message = enum.OutcomeRejected, actionErr.Error()
		if errors.Is(actionErr, cleanup.ErrUnreachable) {
			outcome = enum.OutcomeUnreachable
		}
	}

	// the action already happened; journal it even if the caller went away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	if len(codes) == 0 {
		codes = []string{""}
	}
	for _, code := range codes {
		_, err := r.journal.CreateJournalEntry(ctx, database.CreateJournalEntryParams{
			StoreID:     store,
			OrderCode:   code,
			Action:      string(action),
			PerformerID: actor.UserID,
			Role:        string(actor.Role),
			Outcome:     outcome,
			Message:     message,
		})
		if err != nil {
			log.Printf("ERROR: journal %s %s/%s: %v", action, store, code, err)
		}
	}
}
