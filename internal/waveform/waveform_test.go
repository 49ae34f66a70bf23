package waveform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

func ts(s string) signal.Timestamp {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return signal.NewTimestamp(t)
}

func TestGroupBySignalSortsWithinBucket(t *testing.T) {
	log := signal.NewParsedLog([]signal.LogEntry{
		{DeviceID: "D1", SignalName: "Running", Timestamp: ts("2024-01-15 10:00:02"), Value: signal.BoolValue(false), SignalType: signal.Boolean},
		{DeviceID: "D1", SignalName: "Running", Timestamp: ts("2024-01-15 10:00:01"), Value: signal.BoolValue(true), SignalType: signal.Boolean},
	})
	grouped := GroupBySignal(log)
	bucket := grouped["D1::Running"]
	require.Len(t, bucket, 2)
	assert.True(t, bucket[0].Timestamp.Before(bucket[1].Timestamp))
}

func TestComputeSignalStatesHalfOpenRuns(t *testing.T) {
	anchor := ts("2024-01-15 10:00:00")
	entries := []signal.LogEntry{
		{Timestamp: ts("2024-01-15 10:00:01"), Value: signal.BoolValue(true)},
		{Timestamp: ts("2024-01-15 10:00:05"), Value: signal.BoolValue(false)},
	}
	overallEnd := ts("2024-01-15 10:00:10")

	states := ComputeSignalStates(entries, overallEnd, anchor)
	require.Len(t, states, 2)

	assert.Equal(t, entries[0].Timestamp, states[0].Start)
	assert.Equal(t, entries[1].Timestamp, states[0].End)
	assert.Equal(t, 1.0, states[0].StartOffset)
	assert.Equal(t, 5.0, states[0].EndOffset)

	assert.Equal(t, entries[1].Timestamp, states[1].Start)
	assert.Equal(t, overallEnd, states[1].End)
	assert.Equal(t, 10.0, states[1].EndOffset)
}

func TestComputeSignalStatesEmpty(t *testing.T) {
	assert.Nil(t, ComputeSignalStates(nil, ts("2024-01-15 10:00:00"), ts("2024-01-15 10:00:00")))
}

func TestProcessSignalsForWaveformSortsByDeviceThenSignal(t *testing.T) {
	log := signal.NewParsedLog([]signal.LogEntry{
		{DeviceID: "D2", SignalName: "A", Timestamp: ts("2024-01-15 10:00:00"), Value: signal.BoolValue(true), SignalType: signal.Boolean},
		{DeviceID: "D1", SignalName: "B", Timestamp: ts("2024-01-15 10:00:01"), Value: signal.BoolValue(true), SignalType: signal.Boolean},
		{DeviceID: "D1", SignalName: "A", Timestamp: ts("2024-01-15 10:00:02"), Value: signal.BoolValue(true), SignalType: signal.Boolean},
	})
	out := ProcessSignalsForWaveform(log, false)
	require.Len(t, out, 3)
	assert.Equal(t, "D1", out[0].DeviceID)
	assert.Equal(t, "A", out[0].SignalName)
	assert.Equal(t, "D1", out[1].DeviceID)
	assert.Equal(t, "B", out[1].SignalName)
	assert.Equal(t, "D2", out[2].DeviceID)
}

func TestProcessSignalsForWaveformLazyDefersStates(t *testing.T) {
	log := signal.NewParsedLog([]signal.LogEntry{
		{DeviceID: "D1", SignalName: "Running", Timestamp: ts("2024-01-15 10:00:00"), Value: signal.BoolValue(true), SignalType: signal.Boolean},
		{DeviceID: "D1", SignalName: "Running", Timestamp: ts("2024-01-15 10:00:05"), Value: signal.BoolValue(false), SignalType: signal.Boolean},
	})
	out := ProcessSignalsForWaveform(log, true)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].States)
	require.Len(t, out[0].Entries(), 2)

	RefreshStates(out[0], log.TimeRange.End)
	assert.Len(t, out[0].States, 2)
}

func TestRefreshStatesSkipsPinned(t *testing.T) {
	anchor := ts("2024-01-15 10:00:00")
	sd := &signal.SignalData{TimeAnchor: anchor, Pinned: true}
	sd.SetEntries([]signal.LogEntry{{Timestamp: ts("2024-01-15 10:00:01"), Value: signal.BoolValue(true)}})
	sd.States = []signal.SignalState{{Start: anchor}}

	RefreshStates(sd, ts("2024-01-15 10:00:10"))
	assert.Len(t, sd.States, 1)
	assert.Equal(t, anchor, sd.States[0].Start)
}

func TestRefreshStatesRecomputesWhenNotPinned(t *testing.T) {
	anchor := ts("2024-01-15 10:00:00")
	sd := &signal.SignalData{TimeAnchor: anchor}
	sd.SetEntries([]signal.LogEntry{{Timestamp: ts("2024-01-15 10:00:01"), Value: signal.BoolValue(true)}})

	RefreshStates(sd, ts("2024-01-15 10:00:10"))
	require.Len(t, sd.States, 1)
	assert.Equal(t, 10.0, sd.States[0].EndOffset)
}
