package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/mongokv"
)

func TestRedactsAndSamples(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{SelfHealEvery: 2})

	h.NearSelfHeal("kv:db.c:secret", "corrupt")
	h.NearSelfHeal("kv:db.c:secret", "corrupt")
	out := buf.String()
	if n := strings.Count(out, "mongokv.near_self_heal"); n != 1 {
		t.Fatalf("self-heal lines=%d want 1 (sampled)\n%s", n, out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("key not redacted:\n%s", out)
	}

	buf.Reset()
	h.HandleResolved(mongokv.ModePrimary, "mongodb://h/?readPreference=primary")
	h.ProbeFailed("mongodb://h", errors.New("timeout"))
	out = buf.String()
	if !strings.Contains(out, "mode=primary") || !strings.Contains(out, "mongokv.probe_failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.DecodeFailed("k", errors.New("x"))
	h.TopologyProbed("t", "rs0")
}
