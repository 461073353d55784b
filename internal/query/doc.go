// Package query is a keyed cache of remote-resource results shared by every
// screen in the app.
//
// Reads go through Subscribe: a subscriber registers interest in a key and a
// fetch runs only when no fresh entry exists. Concurrent subscribers to the
// same key join the single in-flight fetch and observe the same value.
// Entries linger for a cache time after the last subscriber leaves, then are
// evicted.
//
// Writes go through Mutate: the cache is patched optimistically before the
// network call, rolled back if the call fails, and the touched key is
// invalidated once the call settles so the next read refetches the
// authoritative state.
package query
