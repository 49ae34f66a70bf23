package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

func TestPLCDebugParseLineMatchesFastParseLine(t *testing.T) {
	line := "2024-01-15 10:30:45.123456 [INFO] [/AreaA/Line01/Robot-01@Main] [cat:Running] (boolean) : ON"

	lp := &plcDebugLineParser{}
	fastTuple, ok := lp.fastParseLine(line)
	require.True(t, ok)

	tuple, parseErr, ok2 := lp.ParseLine(line)
	require.True(t, ok2)
	require.Nil(t, parseErr)
	assert.Equal(t, "Robot-01", tuple.DeviceID)
	assert.Equal(t, "Running", tuple.SignalName)
	assert.Equal(t, signal.Boolean, tuple.SignalType)
	assert.Equal(t, fastTuple.DeviceID, tuple.DeviceID)
	assert.Equal(t, fastTuple.Value, tuple.Value)
}

func TestPLCDebugRejectsMalformedLine(t *testing.T) {
	lp := &plcDebugLineParser{}
	_, parseErr, ok := lp.ParseLine("this is not a plc debug line")
	assert.False(t, ok)
	assert.NotNil(t, parseErr)
}

func TestPLCTabFastParseLine(t *testing.T) {
	line := "2024-01-15 10:30:45.123456 [] /AreaA/Line01/Robot-01@Main\tRunning\tIN\t42\t\t\t\t2024-01-15 10:30:45.123456"
	lp := &plcTabLineParser{}
	tuple, ok := lp.fastParseLine(line)
	require.True(t, ok)
	assert.Equal(t, "Robot-01", tuple.DeviceID)
	assert.Equal(t, "Running", tuple.SignalName)
	assert.Equal(t, signal.Integer, tuple.SignalType)
	assert.Equal(t, int64(42), tuple.Value.Int)
}

func TestCSVSignalParserSimpleSplit(t *testing.T) {
	// No fractional seconds: csvSignalLineRE rejects the line, so the
	// simple-split fallback parses it.
	line := "2024-01-15 10:30:45,/AreaA/Line01/Robot-01@Main,Running,42"
	lp := &csvSignalLineParser{}
	tuple, parseErr, ok := lp.ParseLine(line)
	require.True(t, ok)
	require.Nil(t, parseErr)
	assert.Equal(t, "Robot-01", tuple.DeviceID)
	assert.Equal(t, signal.Integer, tuple.SignalType)
}

func TestPLCDebugParserEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	content := "2024-01-15 10:30:45.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n" +
		"2024-01-15 10:30:46.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : OFF\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPLCDebugParser(false, false)
	ok, err := p.CanParse(path)
	require.NoError(t, err)
	require.True(t, ok)

	result := p.Parse(context.Background(), path, Options{Workers: 1})
	require.True(t, result.Success())
	assert.Len(t, result.Data.Entries, 2)
	assert.True(t, result.Data.Entries[0].Timestamp.Before(result.Data.Entries[1].Timestamp))
	require.NotNil(t, result.ProcessingTimeSeconds)
	assert.GreaterOrEqual(t, *result.ProcessingTimeSeconds, 0.0)
}

func TestDefaultParserCanParseNonMatchingFormat(t *testing.T) {
	p := NewDefaultParser()
	dir := t.TempDir()
	path := filepath.Join(dir, "default.log")
	require.NoError(t, os.WriteFile(path, []byte("Robot-01 Running 10:30:45 ON boolean\n"), 0o644))
	ok, err := p.CanParse(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPLCDebugParserConcurrentMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	var content string
	for i := 0; i < 50; i++ {
		content += "2024-01-15 10:30:45.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPLCDebugParser(false, false)
	seq := p.Parse(context.Background(), path, Options{Workers: 1})
	conc := p.Parse(context.Background(), path, Options{Workers: 4})

	require.True(t, seq.Success())
	require.True(t, conc.Success())
	assert.Equal(t, len(seq.Data.Entries), len(conc.Data.Entries))
}

func TestPLCDebugParserTimeWindowFilters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	content := "2024-01-15 10:00:00.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n" +
		"2024-01-15 10:05:00.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : OFF\n" +
		"2024-01-15 10:10:00.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPLCDebugParser(false, false)
	tsStart, err := parseTestTimestamp("2024-01-15 10:01:00")
	require.NoError(t, err)
	tsEnd, err := parseTestTimestamp("2024-01-15 10:09:00")
	require.NoError(t, err)

	result := p.ParseTimeWindow(context.Background(), path, tsStart, tsEnd)
	require.True(t, result.Success())
	assert.Len(t, result.Data.Entries, 1)
}

func TestParseTimeWindowDegenerateWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	content := "2024-01-15 10:00:00.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPLCDebugParser(false, false)
	at, err := parseTestTimestamp("2024-01-15 10:00:00")
	require.NoError(t, err)

	result := p.ParseTimeWindow(context.Background(), path, at, at)
	require.True(t, result.Success())
	assert.Empty(t, result.Data.Entries)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Data.TimeRange)
	assert.Equal(t, at, result.Data.TimeRange.Start)
	assert.Equal(t, at, result.Data.TimeRange.End)
}

func TestPLCDebugParserStreaming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	content := "2024-01-15 10:00:00.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n" +
		"2024-01-15 10:00:01.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : OFF\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPLCDebugParser(false, false)
	out, errCh := p.ParseStreaming(context.Background(), path)

	var got []signal.LogEntry
	for e := range out {
		got = append(got, e)
	}
	require.NoError(t, <-errCh)
	assert.Len(t, got, 2)
}

func parseTestTimestamp(s string) (signal.Timestamp, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return signal.Timestamp{}, err
	}
	return signal.NewTimestamp(t), nil
}
