package aggregate

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes work per key with a fixed pool of shard locks.
// Two distinct addresses may share a shard; that costs a little contention,
// never correctness.
type keyedMutex struct {
	shards []sync.Mutex
}

func newKeyedMutex(shards int) *keyedMutex {
	if shards <= 0 {
		shards = 64
	}
	return &keyedMutex{shards: make([]sync.Mutex, shards)}
}

func (m *keyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	shard := &m.shards[h.Sum32()%uint32(len(m.shards))]
	shard.Lock()
	return shard.Unlock
}
