// Package store defines the document-store boundary used by mongokv.
//
// A Backend turns a connection target into a Conn; a Conn hands out named
// collections and answers the topology question (replica-set name, empty when
// standalone). Collections store Records keyed by a unique string.
//
// Implementations MUST be byte-for-byte transparent for payloads: Find must
// return exactly the bytes previously passed to Upsert for a key.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks network/timeout/server-selection failures. Backends
// wrap such errors with it so callers can tell them apart from write errors.
var ErrUnavailable = errors.New("store: unavailable")

// WriteError is a write-level failure reported by the store (constraint
// violation, write concern not satisfied, ...).
type WriteError struct {
	Msg string
	Err error
}

func (e *WriteError) Error() string {
	if e.Msg != "" {
		return "store write: " + e.Msg
	}
	return fmt.Sprintf("store write: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Record is the unit of storage. Payload is opaque.
type Record struct {
	Key     string
	Payload []byte
}

// Query selects records for Scan. An empty Pattern matches all keys;
// otherwise Pattern is a regular expression over the key.
// KeysOnly asks the store not to transfer payloads.
type Query struct {
	Pattern  string
	KeysOnly bool
}

// Backend establishes connections.
type Backend interface {
	// Connect opens a connection to target. It must not return a Conn that
	// cannot reach the store.
	Connect(ctx context.Context, target string) (Conn, error)
	// PrimaryTarget derives the primary-only variant of a base target.
	PrimaryTarget(base string) string
}

// Conn is one connection (pool) to the store.
type Conn interface {
	Collection(database, name string) Collection
	// ReplicaSetName returns the replica set name, "" if not a replica set.
	ReplicaSetName(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is a named collection inside a database. Safe for concurrent use.
type Collection interface {
	// Find returns (rec, true, nil) on hit and (Record{}, false, nil) on miss.
	Find(ctx context.Context, key string) (Record, bool, error)
	// FindMany returns the records present among keys, in store order.
	FindMany(ctx context.Context, keys []string) ([]Record, error)
	Scan(ctx context.Context, q Query) (Cursor, error)
	// Upsert creates the record or overwrites its payload.
	Upsert(ctx context.Context, key string, payload []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
}

// Cursor is a finite, single-pass sequence of records.
type Cursor interface {
	Next(ctx context.Context) bool
	Record() Record
	Err() error
	Close(ctx context.Context) error
}

// SliceCursor is a Cursor over an in-memory slice.
type SliceCursor struct {
	recs []Record
	pos  int
}

func NewSliceCursor(recs []Record) *SliceCursor { return &SliceCursor{recs: recs, pos: -1} }

func (c *SliceCursor) Next(context.Context) bool {
	if c.pos+1 >= len(c.recs) {
		c.pos = len(c.recs)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Record() Record {
	if c.pos < 0 || c.pos >= len(c.recs) {
		return Record{}
	}
	return c.recs[c.pos]
}

func (c *SliceCursor) Err() error                  { return nil }
func (c *SliceCursor) Close(context.Context) error { c.recs = nil; return nil }
