// Package waveform reconstructs per-signal step-function state from
// point-in-time LogEntry events: group by (device, signal), build a
// half-open [start,end) SignalState run for each entry, and precompute
// offsets from a time anchor so consumers can binary-search states
// without repeated time.Time subtraction.
package waveform

import (
	"sort"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// GroupBySignal buckets entries by (device_id, signal_name), each bucket
// sorted by timestamp.
func GroupBySignal(log *signal.ParsedLog) map[string][]signal.LogEntry {
	grouped := make(map[string][]signal.LogEntry)
	if log == nil {
		return grouped
	}
	for _, e := range log.Entries {
		grouped[e.Key()] = append(grouped[e.Key()], e)
	}
	for k := range grouped {
		entries := grouped[k]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
		grouped[k] = entries
	}
	return grouped
}

// ComputeSignalStates turns one signal's sorted entries into half-open
// [start,end) SignalState runs, closing the last run at overallEnd, and
// stamps StartOffset/EndOffset as seconds since anchor so consumers can
// binary-search states by offset instead of by time.Time comparison.
func ComputeSignalStates(entries []signal.LogEntry, overallEnd, anchor signal.Timestamp) []signal.SignalState {
	if len(entries) == 0 {
		return nil
	}
	states := make([]signal.SignalState, 0, len(entries))
	for i, e := range entries {
		end := overallEnd
		if i < len(entries)-1 {
			end = entries[i+1].Timestamp
		}
		states = append(states, signal.SignalState{
			Start:       e.Timestamp,
			End:         end,
			Value:       e.Value,
			StartOffset: e.Timestamp.SecondsSince(anchor),
			EndOffset:   end.SecondsSince(anchor),
		})
	}
	return states
}

// ProcessSignalsForWaveform turns a full ParsedLog into one SignalData
// per (device, signal) pair, sorted by (device_id, signal_name) for
// stable display ordering. With lazy set, each SignalData keeps its
// entries but defers state computation until RefreshStates is called
// for it, so a consumer can materialize only the signals it displays.
func ProcessSignalsForWaveform(log *signal.ParsedLog, lazy bool) []*signal.SignalData {
	if log == nil || log.TimeRange == nil {
		return nil
	}
	grouped := GroupBySignal(log)
	anchor := log.TimeRange.Start

	out := make([]*signal.SignalData, 0, len(grouped))
	for key, entries := range grouped {
		if len(entries) == 0 {
			continue
		}
		first := entries[0]
		sd := &signal.SignalData{
			DeviceID:   first.DeviceID,
			SignalName: first.SignalName,
			Key:        key,
			SignalType: first.SignalType,
			TimeAnchor: anchor,
		}
		sd.SetEntries(entries)
		if !lazy {
			sd.States = ComputeSignalStates(entries, log.TimeRange.End, anchor)
		}
		out = append(out, sd)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeviceID != out[j].DeviceID {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].SignalName < out[j].SignalName
	})
	return out
}

// RefreshStates recomputes a SignalData's States from its retained
// entries against a (possibly updated) overall end time, used when a
// chunk store extends a signal's known time range without re-parsing.
// A Pinned SignalData is left untouched, preserving a caller's lease on
// its current states.
func RefreshStates(sd *signal.SignalData, overallEnd signal.Timestamp) {
	if sd == nil || sd.Pinned {
		return
	}
	sd.States = ComputeSignalStates(sd.Entries(), overallEnd, sd.TimeAnchor)
}
