package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/mongokv"
	"github.com/unkn0wn-root/mongokv/config"
	"github.com/unkn0wn-root/mongokv/store"
	"github.com/unkn0wn-root/mongokv/store/memory"
)

func run(t *testing.T, be *memory.Backend, args ...string) (string, error) {
	t.Helper()
	out, _, err := runApp(t, be, args...)
	return out, err
}

func runApp(t *testing.T, be *memory.Backend, args ...string) (string, *app, error) {
	t.Helper()
	a := newApp(func(config.Config) store.Backend { return be })
	var out bytes.Buffer
	err := a.execute(
		append([]string{"--conn-string=mem://test", "--log-level=error"}, args...),
		func(cmd *cobra.Command) {
			cmd.SetOut(&out)
			cmd.SetErr(&out)
		},
	)
	return out.String(), a, err
}

func TestAddGetRemove(t *testing.T) {
	be := memory.New()

	_, err := run(t, be, "add", "user:1", `{"name":"Ana"}`)
	require.NoError(t, err)

	out, err := run(t, be, "get", "user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana"}`, strings.TrimSpace(out))

	out, err = run(t, be, "get", "--for-write", "user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana"}`, strings.TrimSpace(out))

	_, err = run(t, be, "rm", "user:1")
	require.NoError(t, err)
	_, err = run(t, be, "get", "user:1")
	assert.ErrorContains(t, err, "not found")
}

func TestAddPlainString(t *testing.T) {
	be := memory.New()
	_, err := run(t, be, "add", "greeting", "hello world")
	require.NoError(t, err)

	out, err := run(t, be, "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, `"hello world"`, strings.TrimSpace(out))
}

func TestKeysMatch(t *testing.T) {
	be := memory.New()
	for _, k := range []string{"user:1", "user:2", "order:1"} {
		_, err := run(t, be, "add", k, "1")
		require.NoError(t, err)
	}

	out, err := run(t, be, "keys", "--match", "^user:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, strings.Fields(out))

	out, err = run(t, be, "keys")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 3)

	_, err = run(t, be, "keys", "--match", "(")
	assert.Error(t, err)
}

func TestRemoveAllNeedsConfirmation(t *testing.T) {
	be := memory.New()
	_, err := run(t, be, "add", "k", "1")
	require.NoError(t, err)

	_, err = run(t, be, "rm-all")
	require.ErrorContains(t, err, "--yes")

	_, err = run(t, be, "rm-all", "--yes")
	require.NoError(t, err)
	out, err := run(t, be, "keys")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestTopology(t *testing.T) {
	out, err := run(t, memory.New(memory.WithReplicaSet("rs0")), "topology")
	require.NoError(t, err)
	assert.Contains(t, out, "replica set: true")
	assert.Contains(t, out, "set name:    rs0")
	assert.Contains(t, out, "write mode:  primary")

	out, err = run(t, memory.New(), "topology")
	require.NoError(t, err)
	assert.Contains(t, out, "replica set: false")
}

func TestSizeAndMetrics(t *testing.T) {
	be := memory.New()
	_, err := run(t, be, "--compression", "add", "blob", strings.Repeat("a", 8192))
	require.NoError(t, err)

	out, err := run(t, be, "--compression", "size", "--decompressed", "blob")
	require.NoError(t, err)
	assert.Equal(t, "8", strings.TrimSpace(out))

	out, err = run(t, be, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, `mongokv_requests_total{op="ping"} 1`)
}

func TestClientClosedAfterFailingCommand(t *testing.T) {
	be := memory.New()

	_, a, err := runApp(t, be, "get", "missing")
	require.ErrorContains(t, err, "not found")
	require.NotNil(t, a.kv)
	assert.ErrorIs(t, a.kv.Ping(context.Background()), mongokv.ErrClosed)

	_, a, err = runApp(t, be, "ping")
	require.NoError(t, err)
	assert.ErrorIs(t, a.kv.Ping(context.Background()), mongokv.ErrClosed)
}
