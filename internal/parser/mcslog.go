package parser

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/intern"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// mcsLineRE recognizes both MCS/AMHS action-header formats:
//
//	[ACTION=CommandID, CarrierID] [Key=Value], ...   (full)
//	[ACTION=CarrierID] [Key=Value]                    (simplified)
var mcsLineRE = regexp.MustCompile(`^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s+\[(?P<action>ADD|UPDATE|REMOVE)=(?P<first_id>[^,\]]+)(?:,\s*(?P<second_id>[^\]]+))?\]\s*(?P<kvpairs>.*)?$`)

var mcsKVPairRE = regexp.MustCompile(`\[([^=\]]+)=([^\]]*)\]`)

var mcsBooleanKeys = map[string]struct{}{
	"IsBoost": {}, "IsMultiJob": {}, "IsMultipleDestination": {},
	"IsLocationGroupOrder": {}, "IsExecuteCommand": {},
}

var mcsIntegerKeys = map[string]struct{}{
	"Priority": {}, "AltCount": {}, "AltCount2": {}, "WaitCount": {}, "CirculationCount": {},
}

var mcsStateKeys = map[string]struct{}{
	"TransferState": {}, "TransferState2": {}, "TransferAbnormalState": {},
	"TransferAbnormalState2": {}, "ResultCode": {}, "ResultCode2": {}, "CommandType": {},
}

// mcsSignalNameMap normalizes alternative carrier-location signal names
// to the canonical CurrentLocation so downstream carrier tracking sees
// one signal regardless of which log variant produced it.
var mcsSignalNameMap = map[string]string{
	"CarrierLoc":     "CurrentLocation",
	"CarrierLocation": "CurrentLocation",
}

// mcsEntry is a single (device, signal, ts-text, value, type) tuple
// produced from one input line; an MCS line yields one or more of these
// (an _Action entry, an optional _CommandID entry, and one per
// [Key=Value] pair whose value is neither empty nor "None").
type mcsEntry struct {
	deviceID   string
	signalName string
	tsText     string
	value      signal.Value
	stype      signal.SignalType
}

// MCSLogParser parses the MCS/AMHS bracketed key-value format. It never
// goes through the worker pool: one input line expands into multiple
// LogEntry records, which the batch package's one-tuple-per-line
// contract can't represent.
type MCSLogParser struct {
	inferOnFailure bool
}

func NewMCSLogParser(inferOnFailure bool) *MCSLogParser {
	return &MCSLogParser{inferOnFailure: inferOnFailure}
}

func (p *MCSLogParser) Name() string               { return "mcs_log" }
func (p *MCSLogParser) SingleThreadedOnly() bool    { return true }

func (p *MCSLogParser) CanParse(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)
	checked, matched := 0, 0
	for scanner.Scan() && checked < sampleSize {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		checked++
		if mcsLineRE.MatchString(line) {
			matched++
		}
	}
	return checked > 0 && float64(matched)/float64(checked) >= matchThreshold, nil
}

func (p *MCSLogParser) parseLineToEntries(line string) []mcsEntry {
	m := mcsLineRE.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	names := mcsLineRE.SubexpNames()
	group := func(n string) string {
		for i, nm := range names {
			if nm == n {
				return m[i]
			}
		}
		return ""
	}

	tsText := group("ts")
	firstID := strings.TrimSpace(group("first_id"))
	secondID := strings.TrimSpace(group("second_id"))
	kvStr := group("kvpairs")

	var commandID, carrierID string
	if secondID != "" {
		commandID = firstID
		carrierID = secondID
	} else {
		carrierID = firstID
	}

	var entries []mcsEntry
	entries = append(entries, mcsEntry{
		deviceID: carrierID, signalName: "_Action", tsText: tsText,
		value: signal.TextValue(group("action")), stype: signal.String,
	})
	if commandID != "" {
		entries = append(entries, mcsEntry{
			deviceID: carrierID, signalName: "_CommandID", tsText: tsText,
			value: signal.TextValue(commandID), stype: signal.String,
		})
	}

	for _, kv := range mcsKVPairRE.FindAllStringSubmatch(kvStr, -1) {
		key := strings.TrimSpace(kv[1])
		value := strings.TrimSpace(kv[2])
		if key == "" {
			continue
		}
		if mapped, ok := mcsSignalNameMap[key]; ok {
			key = mapped
		}
		if value == "" || value == "None" {
			continue
		}
		stype := p.inferTypeForKey(key, value)
		val := p.parseValueForType(value, stype)
		entries = append(entries, mcsEntry{deviceID: carrierID, signalName: key, tsText: tsText, value: val, stype: stype})
	}
	return entries
}

func (p *MCSLogParser) inferTypeForKey(key, value string) signal.SignalType {
	if _, ok := mcsBooleanKeys[key]; ok {
		return signal.Boolean
	}
	if _, ok := mcsIntegerKeys[key]; ok {
		return signal.Integer
	}
	if _, ok := mcsStateKeys[key]; ok {
		return signal.String
	}
	upper := strings.ToUpper(value)
	if upper == "TRUE" || upper == "FALSE" {
		return signal.Boolean
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return signal.Integer
	}
	return signal.String
}

func (p *MCSLogParser) parseValueForType(value string, stype signal.SignalType) signal.Value {
	switch stype {
	case signal.Boolean:
		upper := strings.ToUpper(value)
		return signal.BoolValue(upper == "TRUE" || upper == "1" || upper == "YES" || upper == "ON")
	case signal.Integer:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return signal.TextValue(value)
		}
		return signal.IntValue(n)
	default:
		return signal.TextValue(value)
	}
}

func (p *MCSLogParser) Parse(ctx context.Context, path string, opts Options) *signal.ParseResult {
	started := time.Now()
	result := p.parse(ctx, path, opts)
	elapsed := time.Since(started).Seconds()
	result.ProcessingTimeSeconds = &elapsed
	if opts.OnProgress != nil {
		opts.OnProgress(1, 1, path)
	}
	return result
}

func (p *MCSLogParser) parse(ctx context.Context, path string, opts Options) *signal.ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: err.Error(), FilePath: path}}}
	}
	defer f.Close()

	pool := intern.Global()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)

	var entries []signal.LogEntry
	var errs []signal.ParseError
	outOfOrder := opts.DisableChronoDetection
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
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lineEntries := p.parseLineToEntries(line)
		if lineEntries == nil {
			continue
		}
		for _, le := range lineEntries {
			if lastTS != "" && le.tsText < lastTS {
				outOfOrder = true
			}
			lastTS = le.tsText

			ts, err := lexer.FastTimestamp(le.tsText)
			if err != nil {
				errs = append(errs, signal.ParseError{Line: lineNum, Content: line, Reason: "invalid timestamp", FilePath: path})
				continue
			}
			entries = append(entries, signal.LogEntry{
				DeviceID:   pool.Intern(le.deviceID),
				SignalName: pool.Intern(le.signalName),
				Timestamp:  ts,
				Value:      le.value,
				SignalType: le.stype,
			})
		}
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

func (p *MCSLogParser) ParseStreaming(ctx context.Context, path string) (<-chan signal.LogEntry, <-chan error) {
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

		pool := intern.Global()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			for _, le := range p.parseLineToEntries(line) {
				ts, err := lexer.FastTimestamp(le.tsText)
				if err != nil {
					continue
				}
				select {
				case out <- signal.LogEntry{
					DeviceID:   pool.Intern(le.deviceID),
					SignalName: pool.Intern(le.signalName),
					Timestamp:  ts,
					Value:      le.value,
					SignalType: le.stype,
				}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// ParseTimeWindow uses a consecutive-out-of-range heuristic instead of
// the full parse-then-filter BaseTimeWindow: once past the window with
// more than maxConsecutiveOutOfRange lines in a row, stop scanning.
// This assumes mostly-chronological input and is documented as a
// heuristic, not a guarantee.
func (p *MCSLogParser) ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult {
	const maxConsecutiveOutOfRange = 1000

	if !start.Before(end) {
		return emptyWindowResult(start, end)
	}

	f, err := os.Open(path)
	if err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: err.Error(), FilePath: path}}}
	}
	defer f.Close()

	pool := intern.Global()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, batch.DefaultReadBufferBytes), batch.DefaultReadBufferBytes)

	var entries []signal.LogEntry
	var errs []signal.ParseError
	seenStart := false
	consecutiveOutOfRange := 0
	lineNum := uint64(0)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lineEntries := p.parseLineToEntries(line)
		if lineEntries == nil {
			continue
		}
		firstTS, err := lexer.FastTimestamp(lineEntries[0].tsText)
		if err != nil {
			errs = append(errs, signal.ParseError{Line: lineNum, Content: line, Reason: "invalid timestamp", FilePath: path})
			continue
		}

		switch {
		case firstTS.Before(start):
			consecutiveOutOfRange = 0
			continue
		case !firstTS.Before(end):
			consecutiveOutOfRange++
			if seenStart && consecutiveOutOfRange > maxConsecutiveOutOfRange {
				goto done
			}
			continue
		default:
			seenStart = true
			consecutiveOutOfRange = 0
			for _, le := range lineEntries {
				ts, err := lexer.FastTimestamp(le.tsText)
				if err != nil {
					continue
				}
				entries = append(entries, signal.LogEntry{
					DeviceID:   pool.Intern(le.deviceID),
					SignalName: pool.Intern(le.signalName),
					Timestamp:  ts,
					Value:      le.value,
					SignalType: le.stype,
				})
			}
		}
	}
done:
	if err := scanner.Err(); err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: err.Error(), FilePath: path}}}
	}

	data := signal.NewParsedLog(entries)
	data.TimeRange = &signal.TimeRange{Start: start, End: end}
	return &signal.ParseResult{Data: data, Errors: errs}
}
