package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

func TestMCSLogParseLineToEntriesMultiplexes(t *testing.T) {
	p := NewMCSLogParser(false)
	line := "2024-01-15 10:30:45.000000 [ADD=CMD-1, CARRIER-9] [Priority=5] [IsBoost=TRUE] [CarrierLoc=BayA]"
	entries := p.parseLineToEntries(line)
	require.Len(t, entries, 5)

	assert.Equal(t, "_Action", entries[0].signalName)
	assert.Equal(t, "CARRIER-9", entries[0].deviceID)
	assert.Equal(t, "ADD", entries[0].value.Text)

	assert.Equal(t, "_CommandID", entries[1].signalName)
	assert.Equal(t, "CMD-1", entries[1].value.Text)

	assert.Equal(t, "Priority", entries[2].signalName)
	assert.Equal(t, signal.Integer, entries[2].stype)
	assert.Equal(t, int64(5), entries[2].value.Int)

	assert.Equal(t, "IsBoost", entries[3].signalName)
	assert.Equal(t, signal.Boolean, entries[3].stype)
	assert.True(t, entries[3].value.Bool)

	assert.Equal(t, "CurrentLocation", entries[4].signalName, "CarrierLoc is normalized to CurrentLocation")
	assert.Equal(t, "BayA", entries[4].value.Text)
}

func TestMCSLogSignalNameNormalization(t *testing.T) {
	p := NewMCSLogParser(false)
	line := "2024-01-15 10:30:45.000000 [UPDATE=CARRIER-9] [CarrierLocation=BayB]"
	entries := p.parseLineToEntries(line)
	require.Len(t, entries, 2)
	assert.Equal(t, "CurrentLocation", entries[1].signalName)
}

func TestMCSLogParserIsSingleThreadedOnly(t *testing.T) {
	p := NewMCSLogParser(false)
	assert.True(t, p.SingleThreadedOnly())
	assert.Equal(t, "mcs_log", p.Name())
}

func TestMCSLogParserEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcs.log")
	content := "2024-01-15 10:30:45.000000 [ADD=CMD-1, CARRIER-9] [Priority=5]\n" +
		"2024-01-15 10:30:46.000000 [UPDATE=CARRIER-9] [Priority=6]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewMCSLogParser(false)
	result := p.Parse(context.Background(), path, Options{})
	require.True(t, result.Success())
	assert.GreaterOrEqual(t, len(result.Data.Entries), 4)
}
