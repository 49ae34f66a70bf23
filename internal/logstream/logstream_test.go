package logstream

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJournalMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	sp, err := LoadJournal(filepath.Join(dir, "missing.journal"))
	require.NoError(t, err)
	assert.Equal(t, "", sp.Filename)
	assert.Equal(t, int64(0), sp.SeekPosition)
}

func TestSaveJournalSkipsUntilTailBufferFull(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "stream.journal")
	sp, err := LoadJournal(journalPath)
	require.NoError(t, err)
	sp.Filename = "input.log"

	sp.ObserveRead(bytes.Repeat([]byte("x"), 10), 10)
	require.NoError(t, sp.SaveJournal())
	_, statErr := os.Stat(journalPath)
	assert.True(t, os.IsNotExist(statErr), "journal should not be written below tailBufferLen")

	sp.ObserveRead(bytes.Repeat([]byte("y"), tailBufferLen), 10+tailBufferLen)
	require.NoError(t, sp.SaveJournal())
	_, statErr = os.Stat(journalPath)
	assert.NoError(t, statErr)
}

func TestRoundTripJournalAndIsSameStream(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "input.log")
	content := bytes.Repeat([]byte("a"), tailBufferLen+50)
	require.NoError(t, os.WriteFile(logPath, content, 0o644))

	journalPath := filepath.Join(dir, "stream.journal")
	sp, err := LoadJournal(journalPath)
	require.NoError(t, err)
	sp.Filename = logPath
	sp.ObserveRead(content, int64(len(content)))
	require.NoError(t, sp.SaveJournal())

	reloaded, err := LoadJournal(journalPath)
	require.NoError(t, err)
	assert.Equal(t, logPath, reloaded.Filename)
	assert.Equal(t, int64(len(content)), reloaded.SeekPosition)
	assert.True(t, reloaded.IsSameStream())
}

func TestIsSameStreamDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "input.log")
	content := bytes.Repeat([]byte("a"), tailBufferLen+50)
	require.NoError(t, os.WriteFile(logPath, content, 0o644))

	journalPath := filepath.Join(dir, "stream.journal")
	sp, err := LoadJournal(journalPath)
	require.NoError(t, err)
	sp.Filename = logPath
	sp.ObserveRead(content, int64(len(content)))
	require.NoError(t, sp.SaveJournal())

	// Truncate and rewrite with different trailing bytes.
	require.NoError(t, os.WriteFile(logPath, bytes.Repeat([]byte("b"), tailBufferLen+50), 0o644))

	reloaded, err := LoadJournal(journalPath)
	require.NoError(t, err)
	assert.False(t, reloaded.IsSameStream())
}

func TestResetClearsCursor(t *testing.T) {
	sp := &StreamPosition{Filename: "old.log", SeekPosition: 500, Hash: "deadbeef"}
	sp.Reset("new.log")
	assert.Equal(t, "new.log", sp.Filename)
	assert.Equal(t, int64(0), sp.SeekPosition)
	assert.Equal(t, "", sp.Hash)
}
