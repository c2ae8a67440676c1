package mongokv

import (
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unkn0wn-root/mongokv/codec"
	"github.com/unkn0wn-root/mongokv/compress"
	"github.com/unkn0wn-root/mongokv/genstore"
	"github.com/unkn0wn-root/mongokv/provider"
	"github.com/unkn0wn-root/mongokv/store"
)

// Mode is the consistency a handle is bound to.
type Mode uint8

const (
	// ModeAny may read from any node. Used for all ordinary reads.
	ModeAny Mode = iota
	// ModePrimary reads and writes through the primary only.
	ModePrimary
)

func (m Mode) String() string {
	if m == ModePrimary {
		return "primary"
	}
	return "any"
}

// Options configure a Client. Backend and ConnString are required.
type Options struct {
	// Required
	Backend    store.Backend // e.g. mongo.New(...) or memory.New()
	ConnString string        // base connection target for ModeAny

	Database   string // "" => "kvstore"
	Collection string // "" => "KeyValue"
	// Prefix is prepended to Collection (tenant/company key). Reconfigure
	// replaces it at runtime.
	Prefix string

	Codec       codec.Codec         // nil => codec.JSON
	Compression bool                // chain Codec through Compressor
	Compressor  compress.Compressor // nil => compress.Gzip when Compression is set

	Logger  Logger       // nil => NopLogger
	Hooks   Hooks        // nil => NopHooks
	Metrics *metrics.Set // nil => a private set, see Client.Metrics

	// Near cache for Get (ModeAny point reads). Disabled when NearCache is nil.
	NearCache    provider.Provider
	NearCacheTTL time.Duration     // 0 => 1m
	GenStore     genstore.GenStore // nil => in-process LocalGenStore
}
