// Package chunkmanager wires a registry.Registry-detected parser into a
// chunkstore.ChunkedParsedLog's Loader, and adds adjacent-chunk
// prefetching for smooth panning. Follow additionally watches a file
// being actively written and invalidates stale cached chunks as it
// grows.
package chunkmanager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/chunkstore"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/logstream"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/parser"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/registry"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// PrefetchChunksAhead is how many chunk-durations ahead (and behind)
// of a query to warm.
const PrefetchChunksAhead = 1

// Manager loads time-windowed chunks for one file on demand and keeps a
// ChunkedParsedLog populated via its Loader callback.
type Manager struct {
	filePath    string
	parser      parser.Parser
	chunked     *chunkstore.ChunkedParsedLog
	prefetchOn  bool
	log         *logrus.Entry
	stream      *logstream.StreamPosition
}

// New detects filePath's parser via reg and wires a chunk loader into
// chunked. Returns an error if no parser (including the registry
// default) claims the file.
func New(reg *registry.Registry, filePath string, chunked *chunkstore.ChunkedParsedLog, log *logrus.Entry) (*Manager, error) {
	p, err := reg.Detect(filePath)
	if err != nil {
		return nil, fmt.Errorf("chunkmanager: no parser found for %s: %w", filePath, err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Manager{filePath: filePath, parser: p, chunked: chunked, prefetchOn: true, log: log}
	chunked.SetChunkLoader(m.loadChunk)
	return m, nil
}

// loadChunk is the chunkstore.Loader: prefer the parser's specialized
// ParseTimeWindow, falling back to a full parse-then-filter.
func (m *Manager) loadChunk(ctx context.Context, start, end signal.Timestamp) (*signal.TimeChunk, error) {
	result := m.parser.ParseTimeWindow(ctx, m.filePath, start, end)
	if result.Success() && result.Data != nil {
		return signal.NewTimeChunk(start, end, result.Data.Entries), nil
	}
	return signal.NewTimeChunk(start, end, nil), nil
}

// GetEntriesInRange fetches entries and, if prefetching is enabled,
// warms PrefetchChunksAhead chunk-durations forward and backward of the
// query window.
func (m *Manager) GetEntriesInRange(ctx context.Context, start, end signal.Timestamp) ([]signal.LogEntry, error) {
	entries, err := m.chunked.GetEntriesInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if m.prefetchOn {
		m.prefetchAdjacent(ctx, start, end)
	}
	return entries, nil
}

func (m *Manager) prefetchAdjacent(ctx context.Context, start, end signal.Timestamp) {
	duration := m.chunked.ChunkDuration()
	full := m.chunked.TimeRange()

	for i := 1; i <= PrefetchChunksAhead; i++ {
		shift := time.Duration(i) * duration

		fStart := signal.NewTimestamp(start.Time.Add(shift))
		fEnd := signal.NewTimestamp(end.Time.Add(shift))
		if full == nil || fStart.Before(full.End) {
			_ = m.chunked.PrefetchChunks(ctx, fStart, fEnd)
		}

		bStart := signal.NewTimestamp(start.Time.Add(-shift))
		bEnd := signal.NewTimestamp(end.Time.Add(-shift))
		if full == nil || full.Start.Before(bEnd) {
			_ = m.chunked.PrefetchChunks(ctx, bStart, bEnd)
		}
	}
}

func (m *Manager) SetPrefetchEnabled(enabled bool) { m.prefetchOn = enabled }
func (m *Manager) ClearCache()                     { m.chunked.ClearCache() }
func (m *Manager) ChunksInMemory() int             { return m.chunked.ChunksInMemory() }

// journalFileName derives a stable sidecar filename for filePath's
// journal, keeping one journal per distinct watched file within dir.
func journalFileName(filePath string) string {
	name := strings.ReplaceAll(filepath.ToSlash(filePath), "/", "_")
	return name + ".journal.json"
}

// EnableJournal loads (or creates) a resumable seek-position journal for
// this manager's file under dir, so Follow can tell a genuine append
// apart from the file having been rotated or truncated out from under
// it. Call before Follow; a Manager with no journal enabled falls back
// to Follow's simple always-invalidate behavior.
func (m *Manager) EnableJournal(dir string) error {
	if dir == "" {
		return fmt.Errorf("chunkmanager: journal dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("chunkmanager: create journal dir %s: %w", dir, err)
	}
	journalPath := filepath.Join(dir, journalFileName(m.filePath))
	sp, err := logstream.LoadJournal(journalPath)
	if err != nil {
		return fmt.Errorf("chunkmanager: load journal for %s: %w", m.filePath, err)
	}
	if sp.Filename == "" {
		sp.Filename = m.filePath
	}
	m.stream = sp
	return nil
}

// observeGrowth reads whatever bytes have been appended to filePath
// since the journal's last recorded seek position, feeding them to the
// stream's trailing-hash tracker (logstream.StreamPosition.ObserveRead).
func (m *Manager) observeGrowth() {
	f, err := os.Open(m.filePath)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() <= m.stream.SeekPosition {
		return
	}
	if _, err := f.Seek(m.stream.SeekPosition, io.SeekStart); err != nil {
		return
	}
	buf := make([]byte, info.Size()-m.stream.SeekPosition)
	if _, err := io.ReadFull(f, buf); err != nil {
		return
	}
	m.stream.ObserveRead(buf, info.Size())
}

// handleGrowth is Follow's per-write-event reaction: with a journal
// enabled, it distinguishes a genuine append (only the tail chunk is
// stale, so just that one is invalidated) from a rotated/truncated/
// replaced file (same name, different content, so the whole cache is
// stale) via logstream.StreamPosition.IsSameStream. Without a journal
// there is no way to tell the two apart, so every write drops the
// whole cache.
func (m *Manager) handleGrowth() {
	if m.stream == nil {
		m.chunked.ClearCache()
		return
	}
	if !m.stream.IsSameStream() {
		m.log.WithField("file", m.filePath).Warn("file replaced or truncated, dropping full chunk cache")
		m.chunked.ClearCache()
		m.stream.Reset(m.filePath)
		return
	}
	m.observeGrowth()
	m.invalidateTailChunk()
	if err := m.stream.SaveJournal(); err != nil {
		m.log.WithError(err).Warn("failed to persist follow journal")
	}
}

// invalidateTailChunk drops only the chunk covering the end of the
// known time range, where appended lines land.
func (m *Manager) invalidateTailChunk() {
	full := m.chunked.TimeRange()
	if full == nil {
		m.chunked.ClearCache()
		return
	}
	m.chunked.InvalidateChunkAt(full.End)
}

// Follow watches filePath for writes and invalidates the chunk cache's
// most-recent chunk whenever the file grows, so a viewer polling
// GetEntriesInRange for the tail of an actively-written log picks up
// newly appended lines instead of serving a stale cached chunk. If
// EnableJournal was called first, growth is verified against the
// resumable journal instead of unconditionally dropping the whole
// cache on every write.
func (m *Manager) Follow(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("chunkmanager: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(m.filePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("chunkmanager: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != m.filePath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.log.WithField("file", m.filePath).Debug("detected write, checking stream position")
				m.handleGrowth()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.WithError(err).Warn("chunk follow watcher error")
		}
	}
}
