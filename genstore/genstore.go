// Package genstore tracks per-key write generations for the near cache.
//
// Every Add/Remove bumps the generation of its key and RemoveAll bumps the
// collection epoch; a near-cache entry is served only while both still match
// the values recorded when it was filled. LocalGenStore (default) keeps
// generations in-process; RedisGenStore shares them between processes so a
// write in one invalidates near-cache entries in all.
package genstore

import (
	"context"
	"time"
)

type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// SnapshotMany returns gens for many keys in one call; missing => 0.
	SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes entries not bumped within retention (no-op for Redis).
	Cleanup(retention time.Duration)
	Close(context.Context) error
}
