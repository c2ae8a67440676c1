package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/mongokv/store"
)

func TestWithReadPreference(t *testing.T) {
	cases := []struct{ in, want string }{
		{"mongodb://localhost:27017", "mongodb://localhost:27017/?readPreference=primary"},
		{"mongodb://localhost:27017/", "mongodb://localhost:27017/?readPreference=primary"},
		{"mongodb://a:1,b:2/kv?replicaSet=rs0", "mongodb://a:1,b:2/kv?replicaSet=rs0&readPreference=primary"},
		{
			"mongodb://a:1,b:2/?replicaSet=rs0&readPreference=secondary&readPreferenceTags=dc:ny&maxStalenessSeconds=120",
			"mongodb://a:1,b:2/?replicaSet=rs0&readPreference=primary",
		},
		{"mongodb+srv://cluster.example.net/?retryWrites=true;w=majority", "mongodb+srv://cluster.example.net/?retryWrites=true&w=majority&readPreference=primary"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, WithReadPreference(tc.in, "primary"), tc.in)
	}
	assert.Equal(t, "mongodb://h/?readPreference=primary", New(Config{}).PrimaryTarget("mongodb://h"))
}

// TestLiveRoundTrip runs against a real deployment when MONGOKV_TEST_URI is set.
func TestLiveRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGOKV_TEST_URI")
	if uri == "" {
		t.Skip("MONGOKV_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := New(Config{AppName: "mongokv-test", ConnectTimeout: 5 * time.Second})
	conn, err := b.Connect(ctx, uri)
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.ReplicaSetName(ctx)
	require.NoError(t, err)

	col := conn.Collection("mongokv_test", "kv")
	require.NoError(t, col.DeleteAll(ctx))
	require.NoError(t, col.Upsert(ctx, "user:1", []byte("a")))
	require.NoError(t, col.Upsert(ctx, "user:1", []byte("b")))
	require.NoError(t, col.Upsert(ctx, "order:1", []byte("c")))

	rec, ok, err := col.Find(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), rec.Payload)

	cur, err := col.Scan(ctx, store.Query{Pattern: "^user:", KeysOnly: true})
	require.NoError(t, err)
	var keys []string
	for cur.Next(ctx) {
		keys = append(keys, cur.Record().Key)
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close(ctx))
	assert.Equal(t, []string{"user:1"}, keys)

	require.NoError(t, col.Delete(ctx, "user:1"))
	require.NoError(t, col.Delete(ctx, "user:1"))
	_, ok, err = col.Find(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}
