package mongokv

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/mongokv/genstore"
	"github.com/unkn0wn-root/mongokv/internal/util"
	"github.com/unkn0wn-root/mongokv/internal/wire"
	"github.com/unkn0wn-root/mongokv/provider"
)

// nearCache keeps stored payloads of point reads close to the process.
//
// An entry is framed with the key generation and collection epoch observed
// before the store was read. Writes bump the generation (RemoveAll bumps the
// epoch), so an entry filled from a read that raced a write is stamped with
// the old value and rejected on its next read.
type nearCache struct {
	p     provider.Provider
	gens  genstore.GenStore
	ttl   time.Duration
	sf    singleflight.Group
	log   Logger
	hooks Hooks
	m     *opMetrics
}

type fetched struct {
	payload []byte
	ok      bool
}

func newNearCache(p provider.Provider, gens genstore.GenStore, ttl time.Duration, log Logger, hooks Hooks, m *opMetrics) *nearCache {
	return &nearCache{p: p, gens: gens, ttl: ttl, log: log, hooks: hooks, m: m}
}

// load serves key from the provider when its frame is current, otherwise
// calls fetch once per (key, generation) and fills the provider.
// Provider and genstore failures degrade to a plain fetch.
//
// A shared fetch runs detached from the caller that started it, so one
// caller's cancellation fails only that caller; each caller waits on its own
// ctx.
func (n *nearCache) load(ctx context.Context, ns, key string, fetch func(context.Context) ([]byte, bool, error)) ([]byte, bool, error) {
	nk, ek := util.NearKey(ns, key), util.EpochKey(ns)
	gens, err := n.gens.SnapshotMany(ctx, []string{nk, ek})
	if err != nil {
		n.hooks.GenStoreError(nk, err)
		n.log.Warn("genstore snapshot failed", Fields{"key": nk, "err": err})
		return fetch(ctx)
	}
	gen, epoch := gens[nk], gens[ek]

	raw, hit, err := n.p.Get(ctx, nk)
	if err != nil {
		n.log.Debug("near get failed", Fields{"key": nk, "err": err})
	}
	if hit {
		e, derr := wire.Decode(raw)
		switch {
		case derr != nil:
			n.heal(ctx, nk, "corrupt")
		case e.Gen != gen || e.Epoch != epoch:
			n.heal(ctx, nk, "gen_mismatch")
		default:
			n.m.nearHits.Inc()
			return e.Payload, true, nil
		}
	}
	n.m.nearMisses.Inc()

	// readers that snapshotted a newer generation must not join a flight
	// started before the write
	flight := nk + "#" + strconv.FormatUint(gen, 10) + "." + strconv.FormatUint(epoch, 10)
	ch := n.sf.DoChan(flight, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		payload, ok, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if ok {
			n.fill(fctx, nk, ek, gen, epoch, payload)
		}
		return fetched{payload: payload, ok: ok}, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		f := r.Val.(fetched)
		return f.payload, f.ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// fill stores payload stamped with the generations observed before the
// fetch. It skips the write when a bump landed in between.
func (n *nearCache) fill(ctx context.Context, nk, ek string, gen, epoch uint64, payload []byte) {
	now, err := n.gens.SnapshotMany(ctx, []string{nk, ek})
	if err != nil {
		n.hooks.GenStoreError(nk, err)
		return
	}
	if now[nk] != gen || now[ek] != epoch {
		return
	}
	frame := wire.Encode(wire.Entry{Gen: gen, Epoch: epoch, Payload: payload})
	ok, err := n.p.Set(ctx, nk, frame, int64(len(frame)), n.ttl)
	if err != nil {
		n.log.Debug("near set failed", Fields{"key": nk, "err": err})
		return
	}
	if !ok {
		n.hooks.NearSetRejected(nk)
	}
}

func (n *nearCache) heal(ctx context.Context, nk, reason string) {
	_ = n.p.Del(ctx, nk)
	n.hooks.NearSelfHeal(nk, reason)
}

// invalidate runs after a successful write of key. The bump alone retires
// every copy; the Del frees the local slot early.
func (n *nearCache) invalidate(ctx context.Context, ns, key string) {
	nk := util.NearKey(ns, key)
	if _, err := n.gens.Bump(ctx, nk); err != nil {
		n.hooks.GenStoreError(nk, err)
		n.log.Error("genstore bump failed", Fields{"key": nk, "err": err})
	}
	if err := n.p.Del(ctx, nk); err != nil {
		n.log.Debug("near del failed", Fields{"key": nk, "err": err})
	}
}

// bumpEpoch retires every entry of ns at once.
func (n *nearCache) bumpEpoch(ctx context.Context, ns string) {
	ek := util.EpochKey(ns)
	if _, err := n.gens.Bump(ctx, ek); err != nil {
		n.hooks.GenStoreError(ek, err)
		n.log.Error("genstore bump failed", Fields{"key": ek, "err": err})
	}
}

func (n *nearCache) close(ctx context.Context) error {
	return errors.Join(n.gens.Close(ctx), n.p.Close(ctx))
}
