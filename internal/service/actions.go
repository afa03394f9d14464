package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds the order lookups made while validating a challan.
const maxConcurrentFetches = 8

// ActionService performs lifecycle actions on existing orders.
type ActionService struct {
	backend Backend
	rec     *recorder
}

func NewActionService(backend Backend, journal JournalStore, notifier Notifier, inflight *Inflight) *ActionService {
	return &ActionService{
		backend: backend,
		rec:     &recorder{inflight: inflight, journal: journal, notifier: notifier},
	}
}

func forbidden(actor Actor, action lifecycle.Action) error {
	return fmt.Errorf("%s %s: %w", actor.Role, action, lifecycle.ErrForbidden)
}

// Perform records a processing-stage action (washed, ironed or packed) scanned
// at a station.
func (s *ActionService) Perform(ctx context.Context, actor Actor, store, code string, action lifecycle.Action) (lifecycle.Order, error) {
	if !action.IsStatusAction() {
		return lifecycle.Order{}, fieldErr("action", ErrNotStatusAction)
	}
	if !lifecycle.CanPerform(actor.Role, action) {
		return lifecycle.Order{}, forbidden(actor, action)
	}

	var result lifecycle.Order
	err := s.rec.run(ctx, actor, store, action, []string{code}, func(ctx context.Context) ([]string, error) {
		o, err := s.backend.GetOrder(ctx, store, code)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.Check(actor.Role, o, action); err != nil {
			return nil, err
		}
		result, err = s.backend.PerformAction(ctx, code, action)
		return nil, err
	})
	return result, err
}

// Deliver hands an order to the customer. mode settles any outstanding balance.
func (s *ActionService) Deliver(ctx context.Context, actor Actor, store, code, mode string) (lifecycle.Order, error) {
	if !lifecycle.CanPerform(actor.Role, lifecycle.ActionDeliver) {
		return lifecycle.Order{}, forbidden(actor, lifecycle.ActionDeliver)
	}

	var result lifecycle.Order
	err := s.rec.run(ctx, actor, store, lifecycle.ActionDeliver, []string{code}, func(ctx context.Context) ([]string, error) {
		o, err := s.backend.GetOrder(ctx, store, code)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.CheckDeliver(actor.Role, o, mode); err != nil {
			return nil, err
		}
		result, err = s.backend.DeliverOrder(ctx, store, code, mode)
		return nil, err
	})
	return result, err
}

// Rewash creates a child order re-processing the given items of code.
func (s *ActionService) Rewash(ctx context.Context, actor Actor, store, code string, itemIDs []int64) (lifecycle.Order, error) {
	if !lifecycle.CanPerform(actor.Role, lifecycle.ActionCreateRewash) {
		return lifecycle.Order{}, forbidden(actor, lifecycle.ActionCreateRewash)
	}

	var child lifecycle.Order
	err := s.rec.run(ctx, actor, store, lifecycle.ActionCreateRewash, []string{code}, func(ctx context.Context) ([]string, error) {
		source, err := s.backend.GetOrder(ctx, store, code)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.CheckRewash(actor.Role, source, itemIDs); err != nil {
			return nil, err
		}
		child, err = s.backend.CreateRewash(ctx, store, source.ID, itemIDs)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.VerifyRewash(source, child); err != nil {
			log.Printf("ERROR: rewash of %s returned %s: %v", code, child.Code, err)
			return []string{code, child.Code}, &cleanup.ParseError{Op: "create rewash", Reason: "unexpected rewash order", Err: err}
		}
		return []string{code, child.Code}, nil
	})
	return child, err
}

// CreateDeliveryChallan sends processed orders to a factory.
func (s *ActionService) CreateDeliveryChallan(ctx context.Context, actor Actor, store, factoryID string, codes []string) (cleanup.Challan, error) {
	const action = lifecycle.ActionCreateDeliveryChallan
	if !lifecycle.CanPerform(actor.Role, action) {
		return cleanup.Challan{}, forbidden(actor, action)
	}
	if factoryID == "" {
		return cleanup.Challan{}, fieldErr("factory_id", ErrFactoryRequired)
	}
	if !uniqueCodes(codes) {
		return cleanup.Challan{}, fieldErr("orders", ErrOrderCodes)
	}

	var challan cleanup.Challan
	err := s.rec.run(ctx, actor, store, action, codes, func(ctx context.Context) ([]string, error) {
		if err := s.checkEach(ctx, actor, store, codes, action); err != nil {
			return nil, err
		}
		var err error
		challan, err = s.backend.CreateDeliveryChallan(ctx, store, factoryID, codes)
		return nil, err
	})
	return challan, err
}

// CreateReturnChallan bundles orders and their bag counts back to the store.
func (s *ActionService) CreateReturnChallan(ctx context.Context, actor Actor, store string, entries []lifecycle.ReturnEntry) (cleanup.Challan, error) {
	const action = lifecycle.ActionCreateReturnChallan
	if !lifecycle.CanPerform(actor.Role, action) {
		return cleanup.Challan{}, forbidden(actor, action)
	}
	if err := lifecycle.CheckReturnEntries(entries); err != nil {
		return cleanup.Challan{}, fieldErr("orders", err)
	}

	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}

	var challan cleanup.Challan
	err := s.rec.run(ctx, actor, store, action, codes, func(ctx context.Context) ([]string, error) {
		if err := s.checkEach(ctx, actor, store, codes, action); err != nil {
			return nil, err
		}
		var err error
		challan, err = s.backend.CreateReturnChallan(ctx, store, entries)
		return nil, err
	})
	return challan, err
}

// Timeline returns the status events of an order, oldest first.
func (s *ActionService) Timeline(ctx context.Context, store, code string) ([]lifecycle.StatusEvent, error) {
	o, err := s.backend.GetOrder(ctx, store, code)
	if err != nil {
		return nil, err
	}
	return s.backend.Timeline(ctx, o.ID)
}

// checkEach fetches every order and checks action against it. The first
// failure cancels the remaining fetches.
func (s *ActionService) checkEach(ctx context.Context, actor Actor, store string, codes []string, action lifecycle.Action) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, code := range codes {
		g.Go(func() error {
			o, err := s.backend.GetOrder(ctx, store, code)
			if err != nil {
				return err
			}
			if err := lifecycle.Check(actor.Role, o, action); err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func uniqueCodes(codes []string) bool {
	if len(codes) == 0 {
		return false
	}
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}
