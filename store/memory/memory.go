// Package memory is an in-process store.Backend.
//
// All connections made by one Backend share the same data, as if they were
// pointed at one deployment. The backend can report itself as a replica set,
// counts connects and topology probes, and accepts injected faults, which
// makes it the test double for the resolver as well as an embedded store.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/unkn0wn-root/mongokv/store"
)

type Backend struct {
	replicaSet string
	data       *xsync.MapOf[string, *collection]

	connects atomic.Int64
	probes   atomic.Int64

	mu         sync.RWMutex
	targets    []string
	connectErr error
	probeErr   error
	writeErr   error
}

var _ store.Backend = (*Backend)(nil)

type Option func(*Backend)

// WithReplicaSet makes probes report the given replica set name.
func WithReplicaSet(name string) Option {
	return func(b *Backend) { b.replicaSet = name }
}

func New(opts ...Option) *Backend {
	b := &Backend{data: xsync.NewMapOf[string, *collection]()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// FailConnect makes Connect and Ping fail with err until called with nil.
func (b *Backend) FailConnect(err error) { b.mu.Lock(); b.connectErr = err; b.mu.Unlock() }

// FailProbe makes ReplicaSetName fail with err until called with nil.
func (b *Backend) FailProbe(err error) { b.mu.Lock(); b.probeErr = err; b.mu.Unlock() }

// FailWrites makes Upsert, Delete and DeleteAll fail with a store.WriteError.
func (b *Backend) FailWrites(err error) { b.mu.Lock(); b.writeErr = err; b.mu.Unlock() }

// Connects returns how many connections were opened.
func (b *Backend) Connects() int64 { return b.connects.Load() }

// Probes returns how many topology probes were answered.
func (b *Backend) Probes() int64 { return b.probes.Load() }

// Targets returns the connection targets seen so far, in order.
func (b *Backend) Targets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.targets...)
}

func (b *Backend) fault(which *error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return *which
}

func (b *Backend) Connect(ctx context.Context, target string) (store.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	if err := b.fault(&b.connectErr); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", store.ErrUnavailable, target, err)
	}
	b.connects.Add(1)
	b.mu.Lock()
	b.targets = append(b.targets, target)
	b.mu.Unlock()
	return &conn{b: b, target: target}, nil
}

func (b *Backend) PrimaryTarget(base string) string {
	if strings.Contains(base, "?") {
		return base + "&readPreference=primary"
	}
	return base + "?readPreference=primary"
}

func (b *Backend) collection(database, name string) *collection {
	c, _ := b.data.LoadOrCompute(database+"."+name, func() *collection {
		return &collection{docs: xsync.NewMapOf[string, []byte]()}
	})
	return c
}

type conn struct {
	b      *Backend
	target string
	closed atomic.Bool
}

func (c *conn) live() error {
	if c.closed.Load() {
		return fmt.Errorf("%w: connection to %s closed", store.ErrUnavailable, c.target)
	}
	return nil
}

func (c *conn) Collection(database, name string) store.Collection {
	return &handle{conn: c, col: c.b.collection(database, name)}
}

func (c *conn) ReplicaSetName(ctx context.Context) (string, error) {
	if err := c.live(); err != nil {
		return "", err
	}
	if err := c.b.fault(&c.b.probeErr); err != nil {
		return "", fmt.Errorf("%w: hello: %w", store.ErrUnavailable, err)
	}
	c.b.probes.Add(1)
	return c.b.replicaSet, nil
}

func (c *conn) Ping(ctx context.Context) error {
	if err := c.live(); err != nil {
		return err
	}
	if err := c.b.fault(&c.b.connectErr); err != nil {
		return fmt.Errorf("%w: ping: %w", store.ErrUnavailable, err)
	}
	return nil
}

func (c *conn) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

type collection struct {
	docs *xsync.MapOf[string, []byte]
}

// handle binds a collection to the connection it was obtained from, so a
// closed connection stops serving requests.
type handle struct {
	conn *conn
	col  *collection
}

func (h *handle) Find(_ context.Context, key string) (store.Record, bool, error) {
	if err := h.conn.live(); err != nil {
		return store.Record{}, false, err
	}
	p, ok := h.col.docs.Load(key)
	if !ok {
		return store.Record{}, false, nil
	}
	return store.Record{Key: key, Payload: p}, true, nil
}

func (h *handle) FindMany(_ context.Context, keys []string) ([]store.Record, error) {
	if err := h.conn.live(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]store.Record, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if p, ok := h.col.docs.Load(k); ok {
			out = append(out, store.Record{Key: k, Payload: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (h *handle) Scan(_ context.Context, q store.Query) (store.Cursor, error) {
	if err := h.conn.live(); err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if q.Pattern != "" {
		var err error
		if re, err = regexp.Compile(q.Pattern); err != nil {
			return nil, err
		}
	}
	var out []store.Record
	h.col.docs.Range(func(k string, p []byte) bool {
		if re != nil && !re.MatchString(k) {
			return true
		}
		rec := store.Record{Key: k}
		if !q.KeysOnly {
			rec.Payload = p
		}
		out = append(out, rec)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return store.NewSliceCursor(out), nil
}

func (h *handle) writable() error {
	if err := h.conn.live(); err != nil {
		return err
	}
	if err := h.conn.b.fault(&h.conn.b.writeErr); err != nil {
		return &store.WriteError{Msg: err.Error(), Err: err}
	}
	return nil
}

func (h *handle) Upsert(_ context.Context, key string, payload []byte) error {
	if err := h.writable(); err != nil {
		return err
	}
	h.col.docs.Store(key, append([]byte(nil), payload...))
	return nil
}

func (h *handle) Delete(_ context.Context, key string) error {
	if err := h.writable(); err != nil {
		return err
	}
	h.col.docs.Delete(key)
	return nil
}

func (h *handle) DeleteAll(context.Context) error {
	if err := h.writable(); err != nil {
		return err
	}
	h.col.docs.Clear()
	return nil
}
