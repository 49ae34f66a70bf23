package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/alitto/pond"
	"golang.org/x/sync/errgroup"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// Pipeline drives the split-into-batches / fan-out / merge sequence
// shared by every single-entry-per-line format.
type Pipeline struct {
	Intern func(string) string
}

// New returns a Pipeline that interns neither device ids nor signal
// names (callers that care should set Intern).
func New() *Pipeline {
	return &Pipeline{Intern: func(s string) string { return s }}
}

// Run reads path line by line, batches lines, fans the batches out to a
// worker pool, and merges results back into a single ParsedLog. Workers
// <= 1 is rejected by callers before reaching here: single-threaded
// parsing should go through a plain sequential loop instead.
func (p *Pipeline) Run(ctx context.Context, path string, lp LineParser, opts Options) *signal.ParseResult {
	lines, err := readAllLines(path)
	if err != nil {
		return &signal.ParseResult{
			Errors: []signal.ParseError{{Line: 0, Reason: err.Error(), FilePath: path}},
		}
	}
	if len(lines) == 0 {
		return &signal.ParseResult{}
	}

	linesPerBatch := opts.LinesPerBatch
	if linesPerBatch <= 0 {
		if opts.UseProcesses {
			linesPerBatch = DefaultLinesPerBatchProc
		} else {
			linesPerBatch = DefaultLinesPerBatchThread
		}
	}

	type indexedBatch struct {
		index int
		lines []string
	}
	var batches []indexedBatch
	for start := 0; start < len(lines); start += linesPerBatch {
		end := start + linesPerBatch
		if end > len(lines) {
			end = len(lines)
		}
		batches = append(batches, indexedBatch{index: len(batches), lines: lines[start:end]})
	}

	results := make([]BatchResult, len(batches))

	if opts.UseProcesses {
		desc := lp.Descriptor()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workerCount(opts.Workers))
		for _, b := range batches {
			b := b
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				res, err := runProcessBatch(gctx, desc, b.lines, path, b.index*linesPerBatch)
				if err != nil {
					return err
				}
				results[b.index] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return &signal.ParseResult{
				Errors: []signal.ParseError{{Line: 0, Reason: err.Error(), FilePath: path}},
			}
		}
	} else {
		pool := pond.New(workerCount(opts.Workers), len(batches)+1)
		var wg sync.WaitGroup
		var firstErr error
		var mu sync.Mutex
		for _, b := range batches {
			b := b
			wg.Add(1)
			pool.Submit(func() {
				defer wg.Done()
				select {
				case <-ctx.Done():
					mu.Lock()
					if firstErr == nil {
						firstErr = ctx.Err()
					}
					mu.Unlock()
					return
				default:
				}
				results[b.index] = parseLineBatch(lp, b.lines, b.index*linesPerBatch)
			})
		}
		wg.Wait()
		pool.StopAndWait()
		if firstErr != nil {
			return &signal.ParseResult{
				Errors: []signal.ParseError{{Line: 0, Reason: firstErr.Error(), FilePath: path}},
			}
		}
	}

	return p.merge(path, results, opts.ForceSort)
}

func workerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// parseLineBatch runs one batch of lines through lp.ParseLine in-process
// (the thread-pool path: no serialization needed since memory is shared).
func parseLineBatch(lp LineParser, lines []string, lineOffset int) BatchResult {
	var res BatchResult
	var lastTS string
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tuple, perr, ok := lp.ParseLine(line)
		if !ok {
			if perr != nil {
				perr.Line = uint64(lineOffset + i + 1)
				res.Errors = append(res.Errors, *perr)
			}
			continue
		}
		if lastTS != "" && tuple.TimestampText < lastTS {
			res.OutOfOrder = true
		}
		lastTS = tuple.TimestampText
		res.Entries = append(res.Entries, tuple)
	}
	return res
}

// merge stitches per-batch results into one ParsedLog, converting each
// tuple's timestamp text to a structured Timestamp exactly once, and
// skips the post-hoc sort when no batch (and no inter-batch boundary)
// reported disorder.
func (p *Pipeline) merge(path string, batchResults []BatchResult, forceSort bool) *signal.ParseResult {
	var entries []signal.LogEntry
	var errs []signal.ParseError
	outOfOrder := forceSort
	var prevBatchLastTS string

	for _, br := range batchResults {
		if br.OutOfOrder {
			outOfOrder = true
		}
		errs = append(errs, br.Errors...)
		if len(br.Entries) > 0 && prevBatchLastTS != "" && br.Entries[0].TimestampText < prevBatchLastTS {
			outOfOrder = true
		}
		for _, t := range br.Entries {
			ts, err := lexer.FastTimestamp(t.TimestampText)
			if err != nil {
				errs = append(errs, signal.ParseError{
					Content:  t.TimestampText,
					Reason:   fmt.Sprintf("invalid timestamp %q: %v", t.TimestampText, err),
					FilePath: path,
				})
				continue
			}
			entries = append(entries, signal.LogEntry{
				DeviceID:   p.Intern(t.DeviceID),
				SignalName: p.Intern(t.SignalName),
				Timestamp:  ts,
				Value:      t.Value,
				SignalType: t.SignalType,
			})
		}
		if len(br.Entries) > 0 {
			prevBatchLastTS = br.Entries[len(br.Entries)-1].TimestampText
		}
	}

	if outOfOrder {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
	}

	if len(entries) == 0 {
		return &signal.ParseResult{Errors: errs}
	}

	return &signal.ParseResult{Data: signal.NewParsedLog(entries), Errors: errs}
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReaderSize(f, DefaultReadBufferBytes)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if len(lines) == 0 {
				line = strings.TrimPrefix(line, "\uFEFF")
			}
			lines = append(lines, line)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}
	return lines, nil
}
