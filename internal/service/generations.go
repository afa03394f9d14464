package service

import (
	"context"
	"sync"
)

// Generations tracks the latest fetch per key. Starting a fetch cancels the
// previous one for the same key, and a fetch that finishes after being
// overtaken reports ErrSuperseded.
type Generations struct {
	mu      sync.Mutex
	seq     uint64
	latest  map[string]uint64
	cancels map[string]context.CancelFunc
}

func NewGenerations() *Generations {
	return &Generations{
		latest:  make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start begins a fetch for key. The returned finish func must be called once
// the fetch returns; it releases the context and reports ErrSuperseded when a
// newer fetch for key was started in the meantime.
func (g *Generations) Start(parent context.Context, key string) (context.Context, func() error) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if prev, ok := g.cancels[key]; ok {
		prev()
	}
	g.seq++
	gen := g.seq
	g.latest[key] = gen
	g.cancels[key] = cancel
	g.mu.Unlock()

	return ctx, func() error {
		cancel()
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.latest[key] != gen {
			return ErrSuperseded
		}
		delete(g.cancels, key)
		delete(g.latest, key)
		return nil
	}
}
