// Package intern implements a process-wide, sharded string interning
// pool. Interning is a best-effort memory optimization, never a
// correctness requirement: callers may always use the returned string
// as if it were their own, uninterned copy.
package intern

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type shard struct {
	mu sync.RWMutex
	m  map[string]string
}

// Pool is a sharded concurrent string set, keyed by content hash so that
// reads and writes to unrelated keys never contend on the same lock.
type Pool struct {
	shards [shardCount]*shard
}

func New() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i] = &shard{m: make(map[string]string)}
	}
	return p
}

func (p *Pool) shardFor(s string) *shard {
	h := xxhash.Sum64String(s)
	return p.shards[h%shardCount]
}

// Intern returns the pool's canonical copy of s, storing s as the
// canonical copy the first time it is seen. Lookup-returns-owned-handle
// semantics are acceptable here because symbol lifetime spans the whole
// parse session.
func (p *Pool) Intern(s string) string {
	sh := p.shardFor(s)

	sh.mu.RLock()
	if v, ok := sh.m[s]; ok {
		sh.mu.RUnlock()
		return v
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[s]; ok {
		return v
	}
	sh.m[s] = s
	return s
}

func (p *Pool) Len() int {
	n := 0
	for _, sh := range p.shards {
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}

// global is the process-wide pool singleton referenced by default by
// parsers that don't have their own Pool wired in (e.g. through tests).
var global = New()

// Global returns the process-wide interning pool.
func Global() *Pool {
	return global
}
