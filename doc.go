// Package mongokv is a key-value client over one MongoDB collection.
//
// Every operation asks the client's resolver for a handle of the right
// consistency, issues one point or batch query against it and, for reads,
// pipes the stored bytes through the Codec.
//
// Components:
//   - Backend (store): connections, collections and the topology probe.
//     store/mongo talks to MongoDB; store/memory is an in-process double.
//   - Codec: value <-> []byte. Optionally chained through a Compressor.
//   - Resolver: caches one Any and one Primary handle per client and probes
//     for a replica set once, on the first write or read-for-write.
//   - Near cache (optional): Provider + GenStore in front of Get.
//
// Records:
//
//	{ _id: <key>, Data: <payload bytes> }
//
// Consistency:
//
//	v, ok, err := mongokv.Get[User](ctx, kv, "user:1")         // any node
//	v, ok, err  = mongokv.GetForWrite[User](ctx, kv, "user:1") // primary
//	err = kv.Add(ctx, "user:1", v)                              // primary
//
// Standalone deployments have no primary/secondary split; both modes share
// one connection there.
package mongokv
