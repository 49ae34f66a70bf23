package batch

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// csvTestLineParser is a minimal "ts,device,signal,value" LineParser used
// only to exercise Pipeline.Run without importing internal/parser (which
// imports this package).
type csvTestLineParser struct{}

func (csvTestLineParser) Descriptor() Descriptor {
	return Descriptor{ParserName: "csv_test", FastPathKind: "csv_test"}
}

func (csvTestLineParser) ParseLine(line string) (LineTuple, *signal.ParseError, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return LineTuple{}, &signal.ParseError{Content: line, Reason: "expected 4 fields"}, false
	}
	n, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return LineTuple{}, &signal.ParseError{Content: line, Reason: "bad int"}, false
	}
	return LineTuple{
		DeviceID:      parts[1],
		SignalName:    parts[2],
		TimestampText: parts[0],
		Value:         signal.IntValue(n),
		SignalType:    signal.Integer,
	}, nil, true
}

func writeTempFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestPipelineRunThreadMode(t *testing.T) {
	path := writeTempFile(t,
		"2024-01-15 10:00:00.000000,D1,S1,1",
		"2024-01-15 10:00:01.000000,D1,S1,2",
		"2024-01-15 10:00:02.000000,D1,S1,3",
	)

	p := New()
	result := p.Run(context.Background(), path, csvTestLineParser{}, Options{Workers: 2, LinesPerBatch: 1})
	require.True(t, result.Success())
	assert.Len(t, result.Data.Entries, 3)
	assert.True(t, result.Data.Entries[0].Timestamp.Before(result.Data.Entries[1].Timestamp))
}

func TestPipelineRunReportsLineErrors(t *testing.T) {
	path := writeTempFile(t,
		"2024-01-15 10:00:00.000000,D1,S1,1",
		"not,enough,fields",
	)

	p := New()
	result := p.Run(context.Background(), path, csvTestLineParser{}, Options{Workers: 1, LinesPerBatch: 10})
	require.NotNil(t, result.Data)
	assert.Len(t, result.Data.Entries, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, uint64(2), result.Errors[0].Line)
}

func TestPipelineRunEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	p := New()
	result := p.Run(context.Background(), path, csvTestLineParser{}, Options{Workers: 1})
	assert.False(t, result.Success())
	assert.Nil(t, result.Data)
	assert.Empty(t, result.Errors)
}

func TestPipelineRunForceSortStillSortsAlreadyOrderedInput(t *testing.T) {
	path := writeTempFile(t,
		"2024-01-15 10:00:00.000000,D1,S1,1",
		"2024-01-15 10:00:01.000000,D1,S1,2",
	)

	p := New()
	result := p.Run(context.Background(), path, csvTestLineParser{}, Options{Workers: 1, ForceSort: true})
	require.True(t, result.Success())
	assert.Len(t, result.Data.Entries, 2)
	assert.True(t, result.Data.Entries[0].Timestamp.Before(result.Data.Entries[1].Timestamp))
}

func TestPipelineInternsDeviceAndSignal(t *testing.T) {
	path := writeTempFile(t, "2024-01-15 10:00:00.000000,D1,S1,1")

	calls := 0
	p := &Pipeline{Intern: func(s string) string {
		calls++
		return s
	}}
	result := p.Run(context.Background(), path, csvTestLineParser{}, Options{Workers: 1})
	require.True(t, result.Success())
	assert.GreaterOrEqual(t, calls, 2)
}
