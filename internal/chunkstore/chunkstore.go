// Package chunkstore implements the chunked, LRU-evicting, time-windowed
// cache over a pluggable chunk loader: ChunkedParsedLog keeps only a
// bounded number of TimeChunks resident, loading and evicting as queries
// move across the timeline. Concurrent queries landing on the same
// missing chunk share one load through singleflight.
package chunkstore

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/metrics"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// Loader fetches the entries for [start, end) on demand. Set once via
// SetChunkLoader.
type Loader func(ctx context.Context, start, end signal.Timestamp) (*signal.TimeChunk, error)

const (
	DefaultChunkDurationSeconds = 300.0
	DefaultMaxResidentChunks    = 5
)

type chunkEntry struct {
	key   time.Time
	chunk *signal.TimeChunk
}

// ChunkedParsedLog is the pluggable, bounded-memory log store.
type ChunkedParsedLog struct {
	mu sync.Mutex

	fullRange      *signal.TimeRange
	chunkDuration  time.Duration
	maxResident    int

	// lru is ordered least-recently-used (front) to most-recently-used
	// (back); elements are *chunkEntry.
	lru      *list.List
	index    map[time.Time]*list.Element
	loader   Loader
	sf       singleflight.Group

	allSignals    map[string]struct{}
	allDevices    map[string]struct{}
	totalEntries  int

	// loadErrCount and lastLoadErr record loader failures, which degrade
	// the affected window to empty rather than failing the query.
	loadErrCount int
	lastLoadErr  error
}

// New constructs a ChunkedParsedLog for fullRange, chunked into
// chunkDurationSeconds windows, keeping at most maxResidentChunks in
// memory at once.
func New(fullRange *signal.TimeRange, chunkDurationSeconds float64, maxResidentChunks int) *ChunkedParsedLog {
	if chunkDurationSeconds <= 0 {
		chunkDurationSeconds = DefaultChunkDurationSeconds
	}
	if maxResidentChunks <= 0 {
		maxResidentChunks = DefaultMaxResidentChunks
	}
	return &ChunkedParsedLog{
		fullRange:     fullRange,
		chunkDuration: time.Duration(chunkDurationSeconds * float64(time.Second)),
		maxResident:   maxResidentChunks,
		lru:           list.New(),
		index:         make(map[time.Time]*list.Element),
		allSignals:    make(map[string]struct{}),
		allDevices:    make(map[string]struct{}),
	}
}

// SetChunkLoader installs the on-demand chunk-loading callback.
func (c *ChunkedParsedLog) SetChunkLoader(loader Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loader = loader
}

// chunkKey rounds t down to the nearest chunk boundary relative to the
// full range's start.
func (c *ChunkedParsedLog) chunkKey(t signal.Timestamp) time.Time {
	if c.fullRange == nil {
		return t.Time
	}
	offset := t.Time.Sub(c.fullRange.Start.Time)
	idx := int64(offset / c.chunkDuration)
	return c.fullRange.Start.Time.Add(time.Duration(idx) * c.chunkDuration)
}

func (c *ChunkedParsedLog) overlappingChunkKeys(start, end signal.Timestamp) []time.Time {
	if c.fullRange == nil {
		return nil
	}
	if start.Before(c.fullRange.Start) {
		start = c.fullRange.Start
	}
	lastKey := c.chunkKey(c.fullRange.End)

	var keys []time.Time
	cur := c.chunkKey(start)
	for cur.Before(end.Time) && !cur.After(lastKey) {
		chunkEnd := cur.Add(c.chunkDuration)
		if chunkEnd.After(start.Time) {
			keys = append(keys, cur)
		}
		cur = cur.Add(c.chunkDuration)
	}
	return keys
}

// ensureChunkLoaded returns the chunk for key, loading it via the
// installed Loader if it isn't resident, and evicting the
// least-recently-used chunk(s) if the resident count then exceeds
// maxResident. Concurrent callers requesting the same key share one
// load via singleflight.
func (c *ChunkedParsedLog) ensureChunkLoaded(ctx context.Context, key time.Time) (*signal.TimeChunk, error) {
	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.lru.MoveToBack(el)
		chunk := el.Value.(*chunkEntry).chunk
		c.mu.Unlock()
		return chunk, nil
	}
	loader := c.loader
	c.mu.Unlock()

	if loader == nil {
		return nil, nil
	}

	v, err, _ := c.sf.Do(key.String(), func() (interface{}, error) {
		end := signal.NewTimestamp(key.Add(c.chunkDuration))
		return loader(ctx, signal.NewTimestamp(key), end)
	})
	if err != nil {
		return nil, err
	}
	chunk, _ := v.(*signal.TimeChunk)
	if chunk == nil {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		// Another goroutine inserted it while we waited on sf.Do; keep
		// the existing entry and just bump recency.
		c.lru.MoveToBack(el)
		return el.Value.(*chunkEntry).chunk, nil
	}
	el := c.lru.PushBack(&chunkEntry{key: key, chunk: chunk})
	c.index[key] = el

	for s := range chunk.Signals {
		c.allSignals[s] = struct{}{}
	}
	for d := range chunk.Devices {
		c.allDevices[d] = struct{}{}
	}
	c.totalEntries += chunk.EntryCount()

	c.evictLocked()
	metrics.ChunksResident.Set(float64(c.lru.Len()))
	return chunk, nil
}

func (c *ChunkedParsedLog) evictLocked() {
	for c.lru.Len() > c.maxResident {
		front := c.lru.Front()
		if front == nil {
			return
		}
		ce := front.Value.(*chunkEntry)
		delete(c.index, ce.key)
		c.lru.Remove(front)
		metrics.ChunksEvictedTotal.Inc()
	}
}

// GetEntriesInRange loads whatever chunks overlap [start, end), filters
// their entries to the window, and returns them sorted by timestamp. A
// chunk whose load fails is recorded (see LoadErrorCount) and skipped,
// degrading that slice of the window to empty rather than failing the
// whole query.
func (c *ChunkedParsedLog) GetEntriesInRange(ctx context.Context, start, end signal.Timestamp) ([]signal.LogEntry, error) {
	if c.fullRange == nil {
		return nil, nil
	}
	keys := c.overlappingChunkKeys(start, end)

	var entries []signal.LogEntry
	for _, key := range keys {
		chunk, err := c.ensureChunkLoaded(ctx, key)
		if err != nil {
			c.recordLoadError(err)
			continue
		}
		if chunk == nil {
			continue
		}
		for _, e := range chunk.Entries {
			if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
				entries = append(entries, e)
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

// PrefetchChunks loads (without returning) every chunk overlapping
// [start, end), for smooth panning ahead of an anticipated query. Load
// failures are recorded and skipped, same as GetEntriesInRange.
func (c *ChunkedParsedLog) PrefetchChunks(ctx context.Context, start, end signal.Timestamp) error {
	for _, key := range c.overlappingChunkKeys(start, end) {
		if _, err := c.ensureChunkLoaded(ctx, key); err != nil {
			c.recordLoadError(err)
		}
	}
	return nil
}

func (c *ChunkedParsedLog) recordLoadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadErrCount++
	c.lastLoadErr = err
}

// LoadErrorCount reports how many chunk loads have failed (and been
// served as empty) over this store's lifetime.
func (c *ChunkedParsedLog) LoadErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErrCount
}

// LastLoadError returns the most recent loader failure, or nil.
func (c *ChunkedParsedLog) LastLoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLoadErr
}

// ChunkDuration is the configured chunk width.
func (c *ChunkedParsedLog) ChunkDuration() time.Duration { return c.chunkDuration }

// InvalidateChunkAt drops the resident chunk containing t, if any, so
// the next query touching that window reloads it from the loader.
// Aggregated metadata is untouched. A no-op when the chunk isn't
// resident.
func (c *ChunkedParsedLog) InvalidateChunkAt(t signal.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.chunkKey(t)
	if el, ok := c.index[key]; ok {
		delete(c.index, key)
		c.lru.Remove(el)
		metrics.ChunksResident.Set(float64(c.lru.Len()))
	}
}

// ClearCache evicts every resident chunk without touching aggregated
// metadata (signals/devices/entry counts persist: they describe what
// has been seen, not what is currently in memory).
func (c *ChunkedParsedLog) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.index = make(map[time.Time]*list.Element)
}

func (c *ChunkedParsedLog) Signals() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.allSignals))
	for k := range c.allSignals {
		out[k] = struct{}{}
	}
	return out
}

func (c *ChunkedParsedLog) Devices() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.allDevices))
	for k := range c.allDevices {
		out[k] = struct{}{}
	}
	return out
}

func (c *ChunkedParsedLog) TimeRange() *signal.TimeRange { return c.fullRange }

func (c *ChunkedParsedLog) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalEntries
}

func (c *ChunkedParsedLog) ChunksInMemory() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
