package signal

import "sort"

// ParsedLog is an aggregate of entries plus derived metadata. Entries are
// monotonic non-decreasing by timestamp; Signals and Devices are derived
// sets built by NewParsedLog, never mutated directly by callers.
type ParsedLog struct {
	Entries   []LogEntry
	Signals   map[string]struct{}
	Devices   map[string]struct{}
	TimeRange *TimeRange
}

// NewParsedLog builds a ParsedLog from a slice of entries, sorting them by
// timestamp only if they are not already in order (chronology detection
// lives one layer up, in the parsers themselves; this constructor is the
// safety net for callers, e.g. merge, that can't guarantee order).
func NewParsedLog(entries []LogEntry) *ParsedLog {
	if len(entries) == 0 {
		return &ParsedLog{
			Signals: map[string]struct{}{},
			Devices: map[string]struct{}{},
		}
	}

	if !sort.SliceIsSorted(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	}) {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
	}

	signals := make(map[string]struct{}, len(entries)/4+1)
	devices := make(map[string]struct{}, len(entries)/8+1)
	for _, e := range entries {
		signals[e.Key()] = struct{}{}
		devices[e.DeviceID] = struct{}{}
	}

	return &ParsedLog{
		Entries: entries,
		Signals: signals,
		Devices: devices,
		TimeRange: &TimeRange{
			Start: entries[0].Timestamp,
			End:   entries[len(entries)-1].Timestamp,
		},
	}
}

// ParseResult is the sole return value of parse operations.
type ParseResult struct {
	Data                  *ParsedLog
	Errors                []ParseError
	ProcessingTimeSeconds *float64
}

func (r *ParseResult) Success() bool {
	return r != nil && r.Data != nil
}

func (r *ParseResult) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

func (r *ParseResult) ErrorCount() int {
	if r == nil {
		return 0
	}
	return len(r.Errors)
}
