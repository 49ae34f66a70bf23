// Package batch implements the concurrent line-batching pipeline shared
// by the single-entry-per-line formats: split a file into line batches,
// hand each batch to a worker pool (goroutines or re-exec'd processes),
// and merge per-batch tuples back into a single chronologically-ordered
// ParsedLog. Workers share no mutable state; a process worker rebuilds
// its line parser from a serialized Descriptor.
package batch

import (
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// LineTuple is the primitive-typed shape a worker returns per successfully
// parsed line. The timestamp stays a string across the worker boundary:
// the parent re-parses it once, which is cheaper than serializing a
// structured Timestamp out of a process worker and is symmetric with the
// thread-pool path so both backends share one merge routine.
type LineTuple struct {
	DeviceID      string
	SignalName    string
	TimestampText string
	Value         signal.Value
	SignalType    signal.SignalType
}

// Descriptor is the serializable description of a parser's
// line-matching rules, used to reconstruct an equivalent line parser
// inside a process worker that cannot share the parent's compiled
// regexes or closures.
type Descriptor struct {
	ParserName          string            `json:"parser_name"`
	FastPathKind        string            `json:"fast_path_kind"`
	RegexSource         string            `json:"regex_source"`
	DeviceIDRegexSource string            `json:"device_id_regex_source"`
	TypeMap             map[string]string `json:"type_map"`
	FloatEnabled        bool              `json:"float_enabled"`
	InferOnFailure      bool              `json:"infer_on_failure"`
	// PathAsDeviceID keeps the whole captured path as the device id when
	// the device-id regex finds no hyphen-numeric tail in it, instead of
	// failing the line (the csv_signal behavior).
	PathAsDeviceID bool `json:"path_as_device_id"`
}

// LineParser is implemented by the calling parser (internal/parser) so
// this package never needs to know a concrete log format's grammar.
type LineParser interface {
	// ParseLine parses one non-blank line. ok is false when the line
	// didn't match at all (a ParseError is returned in that case too).
	ParseLine(line string) (tuple LineTuple, parseErr *signal.ParseError, ok bool)

	// Descriptor serializes this line parser's rules for a process
	// worker to reconstruct independently.
	Descriptor() Descriptor
}

// BatchResult is what one worker batch produces. Signal and device sets
// are not tracked per batch: merge derives them once from the combined
// entries when it builds the ParsedLog.
type BatchResult struct {
	Entries    []LineTuple
	Errors     []signal.ParseError
	OutOfOrder bool
}

// Options configures a Pipeline.Run invocation.
type Options struct {
	Workers      int // 0 = auto (CPU count), 1 = caller should not use batch at all
	UseProcesses bool
	LinesPerBatch int // 0 = package default for the chosen engine
	// ForceSort skips the chronology-detection optimization and always
	// sorts the merged entries, regardless of whether any batch reported
	// disorder.
	ForceSort bool
}

const (
	DefaultReadBufferBytes     = 1 << 20 // 1 MiB
	DefaultSetFlushBatch       = 2000
	DefaultLinesPerBatchThread = 20_000
	DefaultLinesPerBatchProc   = 50_000
)
