// Package sloghooks logs mongokv hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/mongokv"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	DecodeFailEvery  uint64
	SetRejectedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	decodeFailCtr  atomic.Uint64
	setRejectedCtr atomic.Uint64
}

var _ mongokv.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) TopologyProbed(target, setName string) {
	if h.l == nil {
		return
	}
	h.l.Info("mongokv.topology_probed",
		"target", target,
		"replica_set", setName != "",
		"set_name", setName)
}

func (h *Hooks) ProbeFailed(target string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("mongokv.probe_failed",
		"target", target,
		"err", err)
}

func (h *Hooks) HandleResolved(mode mongokv.Mode, target string) {
	if h.l == nil {
		return
	}
	h.l.Debug("mongokv.handle_resolved",
		"mode", mode.String(),
		"target", target)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.DecodeFailEvery, &h.decodeFailCtr) {
		return
	}
	h.l.Warn("mongokv.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) NearSelfHeal(nearKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("mongokv.near_self_heal",
		"key", h.redact(nearKey),
		"reason", reason)
}

func (h *Hooks) NearSetRejected(nearKey string) {
	if h.l == nil || !sample(h.opts.SetRejectedEvery, &h.setRejectedCtr) {
		return
	}
	h.l.Warn("mongokv.near_set_rejected",
		"key", h.redact(nearKey))
}

func (h *Hooks) GenStoreError(nearKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("mongokv.genstore_error",
		"key", h.redact(nearKey),
		"err", err)
}
