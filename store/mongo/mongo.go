// Package mongo is the MongoDB store.Backend.
//
// Records are stored as {_id: <key>, Data: <binary>}, the document shape the
// key-value client has always used, so collections written by older clients
// stay readable.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/unkn0wn-root/mongokv/store"
)

const (
	fieldID   = "_id"
	fieldData = "Data"

	// CommandNotFound, returned by servers older than 4.4.2 for "hello".
	codeCommandNotFound = 59
)

type document struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"Data"`
}

type Config struct {
	AppName        string
	ConnectTimeout time.Duration // 0 => driver default; also bounds server selection
}

type Backend struct {
	cfg Config
}

var _ store.Backend = (*Backend)(nil)

func New(cfg Config) *Backend { return &Backend{cfg: cfg} }

// Connect creates a client for target and pings it, so an unreachable
// deployment fails here rather than on the first operation.
func (b *Backend) Connect(ctx context.Context, target string) (store.Conn, error) {
	opts := options.Client().ApplyURI(target)
	if b.cfg.AppName != "" {
		opts.SetAppName(b.cfg.AppName)
	}
	if b.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(b.cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(b.cfg.ConnectTimeout)
	}
	cl, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", store.ErrUnavailable, err)
	}
	if err := cl.Ping(ctx, nil); err != nil {
		_ = cl.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping: %w", store.ErrUnavailable, err)
	}
	return &conn{cl: cl}, nil
}

// PrimaryTarget forces readPreference=primary on the base URI.
func (b *Backend) PrimaryTarget(base string) string {
	return WithReadPreference(base, "primary")
}

// WithReadPreference returns uri with its read preference replaced by mode.
// Tag sets and max staleness are dropped since they are invalid for primary.
func WithReadPreference(uri, mode string) string {
	base, query, _ := strings.Cut(uri, "?")
	kept := make([]string, 0, 4)
	for _, kv := range strings.FieldsFunc(query, func(r rune) bool { return r == '&' || r == ';' }) {
		name, _, _ := strings.Cut(kv, "=")
		switch strings.ToLower(name) {
		case "readpreference", "readpreferencetags", "maxstalenessseconds":
			continue
		}
		kept = append(kept, kv)
	}
	kept = append(kept, "readPreference="+mode)

	// options must come after the "/" that ends the host list
	hosts := base
	if i := strings.Index(hosts, "://"); i >= 0 {
		hosts = hosts[i+3:]
	}
	if !strings.Contains(hosts, "/") {
		base += "/"
	}
	return base + "?" + strings.Join(kept, "&")
}

type conn struct {
	cl *driver.Client
}

func (c *conn) Collection(database, name string) store.Collection {
	return &collection{c: c.cl.Database(database).Collection(name)}
}

// ReplicaSetName runs "hello" (or legacy "isMaster") against admin.
func (c *conn) ReplicaSetName(ctx context.Context) (string, error) {
	var res struct {
		SetName string `bson:"setName"`
	}
	admin := c.cl.Database("admin")
	err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&res)
	var ce driver.CommandError
	if errors.As(err, &ce) && ce.Code == codeCommandNotFound {
		err = admin.RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}).Decode(&res)
	}
	if err != nil {
		return "", fmt.Errorf("%w: topology probe: %w", store.ErrUnavailable, err)
	}
	return res.SetName, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return classify(c.cl.Ping(ctx, nil), false)
}

func (c *conn) Close(ctx context.Context) error {
	err := c.cl.Disconnect(ctx)
	if errors.Is(err, driver.ErrClientDisconnected) {
		return nil
	}
	return err
}

type collection struct {
	c *driver.Collection
}

func byKey(key string) bson.D { return bson.D{{Key: fieldID, Value: key}} }

func (col *collection) Find(ctx context.Context, key string) (store.Record, bool, error) {
	var doc document
	err := col.c.FindOne(ctx, byKey(key)).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, classify(err, false)
	}
	return store.Record{Key: doc.ID, Payload: doc.Data}, true, nil
}

func (col *collection) FindMany(ctx context.Context, keys []string) ([]store.Record, error) {
	filter := bson.D{{Key: fieldID, Value: bson.D{{Key: "$in", Value: keys}}}}
	cur, err := col.c.Find(ctx, filter)
	if err != nil {
		return nil, classify(err, false)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, false)
	}
	out := make([]store.Record, len(docs))
	for i, d := range docs {
		out[i] = store.Record{Key: d.ID, Payload: d.Data}
	}
	return out, nil
}

func (col *collection) Scan(ctx context.Context, q store.Query) (store.Cursor, error) {
	filter := bson.D{}
	if q.Pattern != "" {
		filter = bson.D{{Key: fieldID, Value: primitive.Regex{Pattern: q.Pattern}}}
	}
	opts := options.Find()
	if q.KeysOnly {
		opts.SetProjection(bson.D{{Key: fieldID, Value: 1}})
	}
	cur, err := col.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err, false)
	}
	return &cursor{cur: cur}, nil
}

func (col *collection) Upsert(ctx context.Context, key string, payload []byte) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: fieldData, Value: payload}}}}
	_, err := col.c.UpdateOne(ctx, byKey(key), update, options.Update().SetUpsert(true))
	return classify(err, true)
}

func (col *collection) Delete(ctx context.Context, key string) error {
	_, err := col.c.DeleteOne(ctx, byKey(key))
	return classify(err, true)
}

func (col *collection) DeleteAll(ctx context.Context) error {
	_, err := col.c.DeleteMany(ctx, bson.D{})
	return classify(err, true)
}

type cursor struct {
	cur *driver.Cursor
	rec store.Record
	err error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var doc document
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.rec = store.Record{Key: doc.ID, Payload: doc.Data}
	return true
}

func (c *cursor) Record() store.Record { return c.rec }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return classify(c.cur.Err(), false)
}

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

// classify maps driver errors onto store.ErrUnavailable and store.WriteError.
func classify(err error, write bool) error {
	if err == nil {
		return nil
	}
	var sse topology.ServerSelectionError
	if driver.IsNetworkError(err) || driver.IsTimeout(err) ||
		errors.As(err, &sse) || errors.Is(err, driver.ErrClientDisconnected) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	if !write {
		return err
	}
	var we driver.WriteException
	if errors.As(err, &we) {
		return &store.WriteError{Msg: we.Error(), Err: err}
	}
	var ce driver.CommandError
	if errors.As(err, &ce) {
		return &store.WriteError{Msg: ce.Message, Err: err}
	}
	return &store.WriteError{Err: err}
}
