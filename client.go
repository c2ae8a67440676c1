package mongokv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unkn0wn-root/mongokv/codec"
	"github.com/unkn0wn-root/mongokv/compress"
	"github.com/unkn0wn-root/mongokv/genstore"
	"github.com/unkn0wn-root/mongokv/store"
)

// Client is a key-value client over one collection. It owns its handle cache
// and topology fact, so independently configured clients can coexist.
// A Client is safe for concurrent use.
type Client struct {
	res        *resolver
	collection string // base name, Prefix is prepended
	codec      codec.Codec
	compressor compress.Compressor // nil when compression is off
	near       *nearCache          // nil when disabled
	log        Logger
	hooks      Hooks
	m          *opMetrics
}

func New(opts Options) (*Client, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("mongokv: backend is required")
	}
	if opts.ConnString == "" {
		return nil, fmt.Errorf("mongokv: connection string is required")
	}

	c := &Client{
		collection: coalesce(opts.Collection, defaultCollection),
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
		m:          newOpMetrics(opts.Metrics),
	}

	c.codec = coalesce[codec.Codec](opts.Codec, codec.JSON{})
	if opts.Compression {
		c.compressor = coalesce[compress.Compressor](opts.Compressor, compress.Gzip{})
		c.codec = codec.Compressed{Inner: c.codec, Compressor: c.compressor}
	}

	c.res = &resolver{
		backend:    opts.Backend,
		base:       opts.ConnString,
		database:   coalesce(opts.Database, defaultDatabase),
		collection: opts.Prefix + c.collection,
		log:        c.log,
		hooks:      c.hooks,
		m:          c.m,
	}

	if opts.NearCache != nil {
		gens := opts.GenStore
		if gens == nil {
			gens = genstore.NewLocalGenStore(defaultGenSweep, defaultGenRetention)
		}
		c.near = newNearCache(opts.NearCache, gens, coalesce(opts.NearCacheTTL, defaultNearTTL), c.log, c.hooks, c.m)
	}
	return c, nil
}

// Close drops cached connections and releases the near cache.
func (c *Client) Close(ctx context.Context) error {
	err := c.res.close(ctx)
	if c.near != nil {
		err = errors.Join(err, c.near.close(ctx))
	}
	return err
}

// Reconfigure switches the client to prefix+Collection. It invalidates all
// cached handles and the topology fact; the next operation reconnects and, for
// writes, re-probes. Operations in flight on the old handles fail with
// ErrConnectivity. An empty prefix leaves the client unchanged.
func (c *Client) Reconfigure(ctx context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}
	err := c.res.reset(ctx, prefix+c.collection)
	if errors.Is(err, ErrClosed) {
		return opErr(opResolve, "", ErrClosed, nil)
	}
	c.log.Info("reconfigured", Fields{"ns": c.res.namespace()})
	return err
}

// Resolve returns the cached handle for mode, resolving it if needed.
func (c *Client) Resolve(ctx context.Context, mode Mode) (*Handle, error) {
	return c.handle(ctx, opResolve, "", mode)
}

// Topology reports the cached topology fact. It waits for a probe in flight.
func (c *Client) Topology() Topology { return c.res.topology() }

// Namespace is "<database>.<collection>" currently in use.
func (c *Client) Namespace() string { return c.res.namespace() }

// Metrics returns the set the client publishes to.
// Use metrics.RegisterSet or Set.WritePrometheus to expose it.
func (c *Client) Metrics() *metrics.Set { return c.m.set }

// Codec returns the effective codec, including compression.
func (c *Client) Codec() codec.Codec { return c.codec }

// Ping resolves the Any handle and pings the store through it.
func (c *Client) Ping(ctx context.Context) (err error) {
	defer c.m.track(opPing, time.Now(), &err)
	h, err := c.handle(ctx, opPing, "", ModeAny)
	if err != nil {
		return err
	}
	if err := h.conn.Ping(ctx); err != nil {
		return opErr(opPing, "", ErrConnectivity, err)
	}
	return nil
}

func (c *Client) handle(ctx context.Context, op, key string, mode Mode) (*Handle, error) {
	h, err := c.res.resolve(ctx, mode)
	if errors.Is(err, ErrClosed) {
		return nil, opErr(op, key, ErrClosed, nil)
	}
	if err != nil {
		return nil, opErr(op, key, ErrConnectivity, err)
	}
	return h, nil
}

func (c *Client) readErr(op, key string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return opErr(op, key, ErrConnectivity, err)
	}
	return opErr(op, key, ErrStore, err)
}

func (c *Client) writeErr(op, key string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return opErr(op, key, ErrConnectivity, err)
	}
	return opErr(op, key, ErrWrite, err)
}

func (c *Client) decodeErr(op, key string, err error) error {
	c.hooks.DecodeFailed(key, err)
	c.log.Debug("decode failed", Fields{"op": op, "key": key, "codec": c.codec.Name(), "err": err})
	return opErr(op, key, ErrDecode, err)
}

func checkKey(op, key string) error {
	if key == "" {
		return opErr(op, key, ErrInvalidKey, nil)
	}
	return nil
}
