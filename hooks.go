package mongokv

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
type Hooks interface {
	// Topology was probed on target. setName is "" for a standalone deployment.
	TopologyProbed(target, setName string)
	// Topology probe or connect failed; the resolver stays unresolved.
	ProbeFailed(target string, err error)
	// A handle was created (first use or after Reconfigure).
	HandleResolved(mode Mode, target string)
	// Stored bytes for key did not decode into the requested type.
	DecodeFailed(key string, err error)

	// A near-cache entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch"}
	NearSelfHeal(nearKey, reason string)
	// Provider returned ok=false on Set (backpressure/eviction).
	NearSetRejected(nearKey string)
	// GenStore failed to snapshot or bump; near cache is bypassed for the call.
	GenStoreError(nearKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) TopologyProbed(string, string) {}
func (NopHooks) ProbeFailed(string, error)     {}
func (NopHooks) HandleResolved(Mode, string)   {}
func (NopHooks) DecodeFailed(string, error)    {}
func (NopHooks) NearSelfHeal(string, string)   {}
func (NopHooks) NearSetRejected(string)        {}
func (NopHooks) GenStoreError(string, error)   {}
