// Package parser defines the pluggable parser contract and the concrete
// PLC log parsers that implement it. Where a parser has both a fast
// indexed-scan path and a regex fallback (plc_debug, plc_tab), the two
// must agree on output for any well-formed line.
package parser

import (
	"context"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// Options configures a full-file Parse call.
type Options struct {
	// Workers is the number of concurrent workers; 0 means auto (CPU
	// count), 1 means single-threaded.
	Workers int
	// UseProcesses selects the process-pool backend instead of the
	// default thread pool when Workers > 1.
	UseProcesses bool
	// DisableChronoDetection forces an unconditional post-parse sort.
	DisableChronoDetection bool
	// InferOnFailure lets value parsing fall back to raw text instead of
	// failing the line when the declared/inferred type doesn't parse.
	InferOnFailure bool
	// FloatEnabled turns on SignalType Float in type inference.
	FloatEnabled bool
	// OnProgress, if set, is invoked with (currentFileIndex, totalFiles,
	// filePath) tuples. A single-file Parse calls it once at completion;
	// multi-file drivers emit one event per file in completion order.
	OnProgress func(currentFileIndex, totalFiles int, filePath string)
}

// Parser is the contract every concrete log format implements.
type Parser interface {
	// Name is the stable identifier used by the registry and dispatch.
	Name() string

	// CanParse samples the first few non-blank lines of path and reports
	// whether this parser's format quick-check matches at least 60% of
	// them.
	CanParse(path string) (bool, error)

	// Parse performs a full parse of path.
	Parse(ctx context.Context, path string, opts Options) *signal.ParseResult

	// ParseStreaming yields entries as they are produced. The error
	// channel carries at most one terminal error. Both channels are closed
	// when the scan ends, the error channel first, so a receive on it
	// after the entry channel is drained never blocks.
	ParseStreaming(ctx context.Context, path string) (<-chan signal.LogEntry, <-chan error)

	// ParseTimeWindow performs a restricted parse. The default behavior
	// (see BaseTimeWindow) parses fully and filters; parsers with a
	// chronological-streaming specialization override this.
	ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult

	// SingleThreadedOnly reports whether this parser's Parse must never be
	// routed through the batch worker pool, because one input line can
	// expand into more than one LogEntry.
	SingleThreadedOnly() bool
}

// BaseTimeWindow is the default (inefficient but always-correct)
// ParseTimeWindow implementation: parse the whole file, then filter.
// Parsers without a specialized streaming implementation should delegate
// to this.
func BaseTimeWindow(ctx context.Context, p Parser, path string, start, end signal.Timestamp) *signal.ParseResult {
	if !start.Before(end) {
		return emptyWindowResult(start, end)
	}

	result := p.Parse(ctx, path, Options{})
	if !result.Success() {
		return result
	}

	filtered := make([]signal.LogEntry, 0, len(result.Data.Entries))
	for _, e := range result.Data.Entries {
		if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			filtered = append(filtered, e)
		}
	}

	data := signal.NewParsedLog(filtered)
	data.TimeRange = &signal.TimeRange{Start: start, End: end}
	return &signal.ParseResult{Data: data, Errors: result.Errors}
}

// emptyWindowResult is the degenerate start >= end window: an empty
// ParsedLog spanning exactly the requested range, no errors, no file
// access.
func emptyWindowResult(start, end signal.Timestamp) *signal.ParseResult {
	data := signal.NewParsedLog(nil)
	data.TimeRange = &signal.TimeRange{Start: start, End: end}
	return &signal.ParseResult{Data: data}
}
