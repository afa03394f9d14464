package service

import (
	"slices"
	"strings"
	"sync"
)

// Inflight rejects a submission while an identical one is outstanding.
type Inflight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewInflight() *Inflight {
	return &Inflight{active: make(map[string]struct{})}
}

// Acquire marks key as in flight. It returns false if key already is; otherwise
// the caller must invoke release when the submission completes.
func (f *Inflight) Acquire(key string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, false
	}
	f.active[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.active, key)
		f.mu.Unlock()
	}, true
}

// inflightKey identifies a submission independent of the order the codes were given in.
func inflightKey(action, store string, codes []string) string {
	sorted := slices.Clone(codes)
	slices.Sort(sorted)
	return action + "|" + store + "|" + strings.Join(sorted, ",")
}
