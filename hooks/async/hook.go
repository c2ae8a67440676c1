// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:   10, // sample logs: ~every 10th self-heal
//	    DecodeFailEvery: 1,  // log every decode failure
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	kv, _ := mongokv.New(mongokv.Options{
//	    Backend:    mongo.New(mongo.Config{}),
//	    ConnString: "mongodb://localhost:27017",
//	    Hooks:      hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/mongokv"
)

// Hooks forwards events to inner on worker goroutines. Events are dropped
// when the queue is full or after Close.
type Hooks struct {
	inner   mongokv.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ mongokv.Hooks = (*Hooks)(nil)

func New(inner mongokv.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) TopologyProbed(t, s string)      { h.try(func() { h.inner.TopologyProbed(t, s) }) }
func (h *Hooks) ProbeFailed(t string, err error) { h.try(func() { h.inner.ProbeFailed(t, err) }) }
func (h *Hooks) DecodeFailed(k string, err error) {
	h.try(func() { h.inner.DecodeFailed(k, err) })
}
func (h *Hooks) HandleResolved(m mongokv.Mode, t string) {
	h.try(func() { h.inner.HandleResolved(m, t) })
}
func (h *Hooks) NearSelfHeal(k, r string) { h.try(func() { h.inner.NearSelfHeal(k, r) }) }
func (h *Hooks) NearSetRejected(k string) { h.try(func() { h.inner.NearSetRejected(k) }) }
func (h *Hooks) GenStoreError(k string, err error) {
	h.try(func() { h.inner.GenStoreError(k, err) })
}
