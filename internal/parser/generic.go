package parser

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/intern"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// sampleSize and matchThreshold are the detection-sampling constants
// every concrete parser's CanParse shares.
const (
	sampleSize     = 10
	matchThreshold = 0.6
)

// engine is the shared scaffolding every single-entry-per-line concrete
// parser embeds: line-sampling detection, the single-threaded scan loop,
// and delegation into the batch pipeline for the concurrent case. Each
// concrete parser supplies its own batch.LineParser (fast path + regex
// fallback) and, where relevant, overrides ParseTimeWindow.
type engine struct {
	name         string
	lineParser   batch.LineParser
	matchLine    func(line string) bool
	intern       *intern.Pool
	singleThread bool
}

func newEngine(name string, lp batch.LineParser, matchLine func(string) bool, singleThread bool) *engine {
	return &engine{
		name:         name,
		lineParser:   lp,
		matchLine:    matchLine,
		intern:       intern.Global(),
		singleThread: singleThread,
	}
}

func (e *engine) Name() string              { return e.name }
func (e *engine) SingleThreadedOnly() bool  { return e.singleThread }

// CanParse samples up to sampleSize non-blank lines and requires at
// least matchThreshold of them to match the format's quick check.
func (e *engine) CanParse(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)

	checked, matched := 0, 0
	first := true
	for scanner.Scan() && checked < sampleSize {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		checked++
		if e.matchLine(line) {
			matched++
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return checked > 0 && float64(matched)/float64(checked) >= matchThreshold, nil
}

// Parse runs the single-threaded scan when Workers == 1 or the format
// forbids the worker pool, and the batch pipeline otherwise (Workers 0
// sizes the pool to the CPU count). Wall-clock
// timing is measured here and carried on the result; aggregation never
// sums per-file timings.
func (e *engine) Parse(ctx context.Context, path string, opts Options) *signal.ParseResult {
	started := time.Now()

	var result *signal.ParseResult
	if e.singleThread || opts.Workers == 1 {
		result = e.parseSequential(ctx, path, opts.DisableChronoDetection)
	} else {
		pipeline := &batch.Pipeline{Intern: e.intern.Intern}
		result = pipeline.Run(ctx, path, e.lineParser, batch.Options{
			Workers:      opts.Workers,
			UseProcesses: opts.UseProcesses,
			ForceSort:    opts.DisableChronoDetection,
		})
	}

	elapsed := time.Since(started).Seconds()
	result.ProcessingTimeSeconds = &elapsed
	if opts.OnProgress != nil {
		opts.OnProgress(1, 1, path)
	}
	return result
}

func (e *engine) parseSequential(ctx context.Context, path string, forceSort bool) *signal.ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: err.Error(), FilePath: path}}}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)

	var entries []signal.LogEntry
	var errs []signal.ParseError
	outOfOrder := forceSort
	var lastTS string
	lineNum := uint64(0)

	for scanner.Scan() {
		lineNum++
		if lineNum%4096 == 0 {
			select {
			case <-ctx.Done():
				return &signal.ParseResult{Errors: []signal.ParseError{{Reason: ctx.Err().Error(), FilePath: path}}}
			default:
			}
		}

		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		tuple, perr, ok := e.lineParser.ParseLine(line)
		if !ok {
			if perr != nil {
				perr.Line = lineNum
				perr.FilePath = path
				errs = append(errs, *perr)
			}
			continue
		}
		if lastTS != "" && tuple.TimestampText < lastTS {
			outOfOrder = true
		}
		lastTS = tuple.TimestampText

		ts, err := lexer.FastTimestamp(tuple.TimestampText)
		if err != nil {
			errs = append(errs, signal.ParseError{Line: lineNum, Content: line, Reason: "invalid timestamp", FilePath: path})
			continue
		}

		entries = append(entries, signal.LogEntry{
			DeviceID:   e.intern.Intern(tuple.DeviceID),
			SignalName: e.intern.Intern(tuple.SignalName),
			Timestamp:  ts,
			Value:      tuple.Value,
			SignalType: tuple.SignalType,
		})
	}
	if err := scanner.Err(); err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: err.Error(), FilePath: path}}}
	}

	if outOfOrder {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	}

	if len(entries) == 0 {
		return &signal.ParseResult{Errors: errs}
	}
	return &signal.ParseResult{Data: signal.NewParsedLog(entries), Errors: errs}
}

// ParseStreaming re-runs the sequential scan, emitting entries as they
// are produced; it does not collect errors into the return value the
// way Parse does; a terminal error (at most one) goes on errCh.
func (e *engine) ParseStreaming(ctx context.Context, path string) (<-chan signal.LogEntry, <-chan error) {
	out := make(chan signal.LogEntry, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- err
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)
		first := true
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}
			line := scanner.Text()
			if first {
				line = strings.TrimPrefix(line, "\uFEFF")
				first = false
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			tuple, _, ok := e.lineParser.ParseLine(line)
			if !ok {
				continue
			}
			ts, err := lexer.FastTimestamp(tuple.TimestampText)
			if err != nil {
				continue
			}
			select {
			case out <- signal.LogEntry{
				DeviceID:   e.intern.Intern(tuple.DeviceID),
				SignalName: e.intern.Intern(tuple.SignalName),
				Timestamp:  ts,
				Value:      tuple.Value,
				SignalType: tuple.SignalType,
			}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
