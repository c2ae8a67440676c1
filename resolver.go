package mongokv

import (
	"context"
	"errors"
	"sync"

	"github.com/unkn0wn-root/mongokv/internal/util"
	"github.com/unkn0wn-root/mongokv/store"
)

// Handle is a resolved collection bound to one consistency mode.
// It is read-only once resolved and safe for concurrent use.
type Handle struct {
	mode   Mode
	target string
	ns     string
	conn   store.Conn
	col    store.Collection
}

func (h *Handle) Mode() Mode                   { return h.mode }
func (h *Handle) Target() string               { return h.target }
func (h *Handle) Namespace() string            { return h.ns }
func (h *Handle) Collection() store.Collection { return h.col }

// Topology is a snapshot of the cached topology fact.
type Topology struct {
	Resolved   bool
	ReplicaSet bool
	SetName    string
}

// topology fact lifecycle: unresolved -> resolving -> resolved.
// resolving falls back to unresolved when the probe fails.
type topologyState uint8

const (
	stateUnresolved topologyState = iota
	stateResolving
	stateResolved
)

// resolver owns the cached handles and topology fact of one Client.
// mu is held across connect and probe so concurrent first callers wait for
// the one in flight instead of racing it.
type resolver struct {
	backend  store.Backend
	base     string
	database string
	log      Logger
	hooks    Hooks
	m        *opMetrics

	mu         sync.Mutex
	collection string
	state      topologyState
	replicaSet bool
	setName    string
	any        *Handle
	primary    *Handle
	closed     bool
}

func (r *resolver) resolve(ctx context.Context, mode Mode) (*Handle, error) {
	if mode == ModePrimary {
		return r.resolveForWrite(ctx)
	}
	return r.resolveAny(ctx)
}

func (r *resolver) resolveAny(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.anyLocked(ctx)
}

// resolveForWrite probes topology on first use. Standalone deployments share
// the Any handle; replica sets get a separate primary-only connection.
func (r *resolver) resolveForWrite(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.state == stateUnresolved {
		if err := r.probeLocked(ctx); err != nil {
			return nil, err
		}
	}
	if !r.replicaSet {
		return r.anyLocked(ctx)
	}
	if r.primary != nil {
		return r.primary, nil
	}
	h, err := r.connectLocked(ctx, ModePrimary, r.backend.PrimaryTarget(r.base))
	if err != nil {
		return nil, err
	}
	r.primary = h
	return h, nil
}

func (r *resolver) anyLocked(ctx context.Context) (*Handle, error) {
	if r.any != nil {
		return r.any, nil
	}
	h, err := r.connectLocked(ctx, ModeAny, r.base)
	if err != nil {
		return nil, err
	}
	r.any = h
	return h, nil
}

func (r *resolver) connectLocked(ctx context.Context, mode Mode, target string) (*Handle, error) {
	safe := util.RedactTarget(target)
	conn, err := r.backend.Connect(ctx, target)
	if err != nil {
		r.hooks.ProbeFailed(safe, err)
		r.log.Warn("connect failed", Fields{"mode": mode.String(), "target": safe, "err": err})
		return nil, err
	}
	h := &Handle{
		mode:   mode,
		target: target,
		ns:     util.Namespace(r.database, r.collection),
		conn:   conn,
		col:    conn.Collection(r.database, r.collection),
	}
	r.hooks.HandleResolved(mode, safe)
	r.log.Debug("handle resolved", Fields{"mode": mode.String(), "target": safe, "ns": h.ns})
	return h, nil
}

// probeLocked asks the store, over the Any connection, for its replica set name.
func (r *resolver) probeLocked(ctx context.Context) error {
	r.state = stateResolving
	h, err := r.anyLocked(ctx)
	if err != nil {
		r.state = stateUnresolved
		return err
	}
	r.m.probes.Inc()
	name, err := h.conn.ReplicaSetName(ctx)
	if err != nil {
		r.state = stateUnresolved
		safe := util.RedactTarget(h.target)
		r.hooks.ProbeFailed(safe, err)
		r.log.Warn("topology probe failed", Fields{"target": safe, "err": err})
		return err
	}
	r.replicaSet = name != ""
	r.setName = name
	r.state = stateResolved
	r.hooks.TopologyProbed(util.RedactTarget(h.target), name)
	r.log.Info("topology resolved", Fields{"replica_set": r.replicaSet, "set_name": name})
	return nil
}

func (r *resolver) topology() Topology {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Topology{Resolved: r.state == stateResolved, ReplicaSet: r.replicaSet, SetName: r.setName}
}

func (r *resolver) namespace() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return util.Namespace(r.database, r.collection)
}

// reset switches to collection and forgets handles and the topology fact.
// The dropped connections are closed after the lock is released.
func (r *resolver) reset(ctx context.Context, collection string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	conns := r.dropLocked()
	r.collection = collection
	r.mu.Unlock()
	return closeConns(ctx, conns)
}

func (r *resolver) close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	conns := r.dropLocked()
	r.mu.Unlock()
	return closeConns(ctx, conns)
}

func (r *resolver) dropLocked() []store.Conn {
	var conns []store.Conn
	if r.any != nil {
		conns = append(conns, r.any.conn)
	}
	if r.primary != nil && r.primary != r.any {
		conns = append(conns, r.primary.conn)
	}
	r.any, r.primary = nil, nil
	r.state = stateUnresolved
	r.replicaSet = false
	r.setName = ""
	return conns
}

func closeConns(ctx context.Context, conns []store.Conn) error {
	var errs []error
	for _, c := range conns {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
