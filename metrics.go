package mongokv

import (
	"time"

	"github.com/VictoriaMetrics/metrics"
)

const (
	opGet                = "get"
	opGetForWrite        = "get_for_write"
	opGetMany            = "get_many"
	opGetManyTyped       = "get_many_typed"
	opGetMatching        = "get_matching"
	opGetJSON            = "get_json"
	opAdd                = "add"
	opRemove             = "remove"
	opRemoveAll          = "remove_all"
	opListKeys           = "list_keys"
	opKeys               = "keys"
	opKeysMatching       = "keys_matching"
	opListKeysWithSize   = "list_keys_with_size"
	opSizeKb             = "size_kb"
	opDecompressedSizeKb = "decompressed_size_kb"
	opPing               = "ping"
	opResolve            = "resolve"
)

// opMetrics publishes per-operation counters and latency histograms:
//
//	mongokv_requests_total{op="get"}
//	mongokv_errors_total{op="get"}
//	mongokv_request_duration_seconds{op="get"}
//	mongokv_topology_probes_total
//	mongokv_near_hits_total / mongokv_near_misses_total
type opMetrics struct {
	set        *metrics.Set
	probes     *metrics.Counter
	nearHits   *metrics.Counter
	nearMisses *metrics.Counter
}

func newOpMetrics(set *metrics.Set) *opMetrics {
	if set == nil {
		set = metrics.NewSet()
	}
	return &opMetrics{
		set:        set,
		probes:     set.GetOrCreateCounter("mongokv_topology_probes_total"),
		nearHits:   set.GetOrCreateCounter("mongokv_near_hits_total"),
		nearMisses: set.GetOrCreateCounter("mongokv_near_misses_total"),
	}
}

// track is meant to be deferred with a pointer to the named error result.
func (m *opMetrics) track(op string, start time.Time, errp *error) {
	m.set.GetOrCreateCounter(`mongokv_requests_total{op="` + op + `"}`).Inc()
	m.set.GetOrCreateHistogram(`mongokv_request_duration_seconds{op="` + op + `"}`).UpdateDuration(start)
	if errp != nil && *errp != nil {
		m.set.GetOrCreateCounter(`mongokv_errors_total{op="` + op + `"}`).Inc()
	}
}
