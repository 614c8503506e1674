package session

import (
	"hash/fnv"
	"sync"
)

// shardedLock serializes operations per key (here, session_id) across a
// fixed number of mutex shards, so unrelated sessions never contend on the
// same lock while same-session calls are strictly ordered (spec.md §4.6,
// §5's "session state transitions are serialized per session_id").
type shardedLock struct {
	shards []sync.Mutex
}

func newShardedLock(n int) *shardedLock {
	return &shardedLock{shards: make([]sync.Mutex, n)}
}

func (s *shardedLock) lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	idx := int(h.Sum32()) % len(s.shards)
	if idx < 0 {
		idx += len(s.shards)
	}
	m := &s.shards[idx]
	m.Lock()
	return m.Unlock
}
