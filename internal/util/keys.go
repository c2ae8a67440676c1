package util

import "strings"

// Namespace identifies one collection of one database: "<db>.<collection>".
func Namespace(database, collection string) string {
	return database + "." + collection
}

// NearKey is the near-cache (and generation) key for a record key.
func NearKey(ns, key string) string {
	var b strings.Builder
	b.Grow(3 + len(ns) + 1 + len(key))
	b.WriteString("kv:")
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// EpochKey is the generation key bumped when a whole collection is emptied.
// It cannot collide with a NearKey, which always starts with "kv:".
func EpochKey(ns string) string {
	return "epoch:" + ns
}
