package mongokv

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/mongokv/store/memory"
)

func TestProbeRunsOnce(t *testing.T) {
	ctx := context.Background()
	be := memory.New(memory.WithReplicaSet("rs0"))
	c := newTestClient(t, be, nil)

	h1, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)
	h2, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.EqualValues(t, 1, be.Probes())
	assert.EqualValues(t, 2, be.Connects(), "one any-node and one primary connection")
}

func TestReadsDoNotProbe(t *testing.T) {
	ctx := context.Background()
	be := memory.New(memory.WithReplicaSet("rs0"))
	c := newTestClient(t, be, nil)

	_, _, err := Get[int](ctx, c, "k")
	require.NoError(t, err)
	_, err = c.ListKeys(ctx)
	require.NoError(t, err)

	assert.Zero(t, be.Probes())
	assert.False(t, c.Topology().Resolved)
}

func TestConcurrentFirstResolve(t *testing.T) {
	ctx := context.Background()
	be := memory.New(memory.WithReplicaSet("rs0"))
	c := newTestClient(t, be, nil)

	const n = 32
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			mode := ModePrimary
			if i%2 == 0 {
				mode = ModeAny
			}
			h, err := c.Resolve(ctx, mode)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, be.Probes())
	assert.EqualValues(t, 2, be.Connects())
	for i := 2; i < n; i++ {
		assert.Same(t, handles[i%2], handles[i])
	}
}

func TestReplicaSetHandlesDiffer(t *testing.T) {
	ctx := context.Background()
	be := memory.New(memory.WithReplicaSet("rs0"))
	c := newTestClient(t, be, nil)

	anyH, err := c.Resolve(ctx, ModeAny)
	require.NoError(t, err)
	primary, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)

	assert.NotSame(t, anyH, primary)
	assert.Equal(t, testTarget, anyH.Target())
	assert.Equal(t, testTarget+"?readPreference=primary", primary.Target())
	assert.Equal(t, anyH.Namespace(), primary.Namespace())
	assert.Equal(t, []string{testTarget, testTarget + "?readPreference=primary"}, be.Targets())
}

func TestStandaloneSharesHandle(t *testing.T) {
	ctx := context.Background()
	be := memory.New()
	c := newTestClient(t, be, nil)

	primary, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)
	anyH, err := c.Resolve(ctx, ModeAny)
	require.NoError(t, err)

	assert.Same(t, anyH, primary)
	assert.Equal(t, ModeAny, primary.Mode())
	assert.EqualValues(t, 1, be.Connects())

	top := c.Topology()
	assert.True(t, top.Resolved)
	assert.False(t, top.ReplicaSet)
	assert.Empty(t, top.SetName)
}

func TestReconfigureInvalidates(t *testing.T) {
	ctx := context.Background()
	be := memory.New(memory.WithReplicaSet("rs0"))
	c := newTestClient(t, be, nil)

	require.NoError(t, c.Add(ctx, "k", "tenant-less"))
	old, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)

	require.NoError(t, c.Reconfigure(ctx, "acme_"))
	assert.False(t, c.Topology().Resolved)
	assert.Equal(t, "kvstore.acme_KeyValue", c.Namespace())

	// old handles were closed
	_, _, err = old.Collection().Find(ctx, "k")
	require.Error(t, err)

	_, ok, err := Get[string](ctx, c, "k")
	require.NoError(t, err)
	assert.False(t, ok, "new collection is empty")

	require.NoError(t, c.Add(ctx, "k", "acme"))
	assert.EqualValues(t, 2, be.Probes(), "reconfigure forces one new probe")

	h, err := c.Resolve(ctx, ModePrimary)
	require.NoError(t, err)
	assert.NotSame(t, old, h)
	assert.Equal(t, "kvstore.acme_KeyValue", h.Namespace())
}

func TestReconfigureEmptyPrefixIsNoop(t *testing.T) {
	ctx := context.Background()
	be := memory.New()
	c := newTestClient(t, be, func(o *Options) { o.Prefix = "t1_" })

	h, err := c.Resolve(ctx, ModeAny)
	require.NoError(t, err)
	require.NoError(t, c.Reconfigure(ctx, ""))

	h2, err := c.Resolve(ctx, ModeAny)
	require.NoError(t, err)
	assert.Same(t, h, h2)
	assert.Equal(t, "kvstore.t1_KeyValue", c.Namespace())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "any", ModeAny.String())
	assert.Equal(t, "primary", ModePrimary.String())
}
