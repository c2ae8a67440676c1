package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/mongokv/store"
)

func TestConnectionsShareData(t *testing.T) {
	ctx := context.Background()
	b := New()

	c1, err := b.Connect(ctx, "mem://a")
	require.NoError(t, err)
	c2, err := b.Connect(ctx, b.PrimaryTarget("mem://a"))
	require.NoError(t, err)

	require.NoError(t, c1.Collection("db", "kv").Upsert(ctx, "k", []byte("v")))
	rec, ok, err := c2.Collection("db", "kv").Find(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), rec.Payload)

	assert.Equal(t, int64(2), b.Connects())
	assert.Equal(t, []string{"mem://a", "mem://a?readPreference=primary"}, b.Targets())
}

func TestScanPatternAndProjection(t *testing.T) {
	ctx := context.Background()
	b := New()
	c, err := b.Connect(ctx, "mem://")
	require.NoError(t, err)
	col := c.Collection("db", "kv")
	for _, k := range []string{"user:2", "order:1", "user:1"} {
		require.NoError(t, col.Upsert(ctx, k, []byte(k)))
	}

	cur, err := col.Scan(ctx, store.Query{Pattern: "^user:", KeysOnly: true})
	require.NoError(t, err)
	var keys []string
	for cur.Next(ctx) {
		assert.Nil(t, cur.Record().Payload)
		keys = append(keys, cur.Record().Key)
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close(ctx))
	assert.Equal(t, []string{"user:1", "user:2"}, keys)

	_, err = col.Scan(ctx, store.Query{Pattern: "("})
	assert.Error(t, err)
}

func TestFindManyDedupesAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	b := New()
	c, _ := b.Connect(ctx, "mem://")
	col := c.Collection("db", "kv")
	require.NoError(t, col.Upsert(ctx, "a", []byte("1")))

	recs, err := col.FindMany(ctx, []string{"a", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].Key)
}

func TestFaultsAndClosedConn(t *testing.T) {
	ctx := context.Background()
	b := New(WithReplicaSet("rs0"))
	boom := errors.New("boom")

	b.FailConnect(boom)
	_, err := b.Connect(ctx, "mem://")
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.ErrorIs(t, err, boom)
	b.FailConnect(nil)

	c, err := b.Connect(ctx, "mem://")
	require.NoError(t, err)
	name, err := c.ReplicaSetName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rs0", name)
	assert.Equal(t, int64(1), b.Probes())

	b.FailWrites(boom)
	err = c.Collection("db", "kv").Upsert(ctx, "k", nil)
	var we *store.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "boom", we.Msg)
	b.FailWrites(nil)

	require.NoError(t, c.Close(ctx))
	_, _, err = c.Collection("db", "kv").Find(ctx, "k")
	require.ErrorIs(t, err, store.ErrUnavailable)
}
