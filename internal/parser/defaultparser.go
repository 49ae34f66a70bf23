package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// defaultParserValidTypes are the only type tokens this format accepts;
// anything else fails the line. This format never infers a type from
// the value.
var defaultParserValidTypes = map[string]signal.SignalType{
	"boolean": signal.Boolean,
	"string":  signal.String,
	"integer": signal.Integer,
}

// dateCache stamps HH:MM:SS timestamps, which carry no date of their
// own, against the date the parser process started on. A log spanning
// midnight is misdated past the rollover; callers should avoid this
// format for multi-day data.
type dateCache struct {
	mu   sync.Mutex
	date string // "YYYY-MM-DD", computed once per process lifetime
}

func (d *dateCache) today() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.date == "" {
		d.date = time.Now().UTC().Format("2006-01-02")
	}
	return d.date
}

var globalDateCache = &dateCache{}

type defaultLineParser struct {
	dates *dateCache
}

func (p *defaultLineParser) Descriptor() batch.Descriptor {
	return batch.Descriptor{ParserName: "default", FastPathKind: "default"}
}

func (p *defaultLineParser) ParseLine(line string) (batch.LineTuple, *signal.ParseError, bool) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 5)
	if len(parts) < 5 {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "invalid format: expected at least 5 parts"}, false
	}

	deviceID, signalName, timeStr, valueStr, typeStr := parts[0], parts[1], parts[2], parts[3], parts[4]

	h, m, s, ok := parseHHMMSS(timeStr)
	if !ok {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: fmt.Sprintf("invalid time format: %s", timeStr)}, false
	}

	stype, ok := defaultParserValidTypes[strings.ToLower(strings.TrimSpace(typeStr))]
	if !ok {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: fmt.Sprintf("invalid type: %s", typeStr)}, false
	}

	val, err := parseDefaultValue(valueStr, stype)
	if err != nil {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: err.Error()}, false
	}

	tsText := fmt.Sprintf("%s %02d:%02d:%02d", p.dates.today(), h, m, s)

	return batch.LineTuple{
		DeviceID:      deviceID,
		SignalName:    signalName,
		TimestampText: tsText,
		Value:         val,
		SignalType:    stype,
	}, nil, true
}

func parseHHMMSS(s string) (h, m, sec int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if h, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, false
	}
	if m, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, false
	}
	if sec, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, false
	}
	if h > 23 || m > 59 || sec > 59 {
		return 0, 0, 0, false
	}
	return h, m, sec, true
}

func parseDefaultValue(raw string, stype signal.SignalType) (signal.Value, error) {
	switch stype {
	case signal.Boolean:
		lower := strings.ToLower(raw)
		switch lower {
		case "true", "1":
			return signal.BoolValue(true), nil
		case "false", "0":
			return signal.BoolValue(false), nil
		default:
			return signal.Value{}, fmt.Errorf("invalid boolean value: %s", raw)
		}
	case signal.Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return signal.Value{}, fmt.Errorf("invalid integer value: %s", raw)
		}
		return signal.IntValue(n), nil
	default:
		return signal.TextValue(raw), nil
	}
}

func defaultLineLooksValid(line string) bool {
	if len(line) < 20 {
		return false
	}
	var spacePositions []int
	for i := 0; i < len(line) && len(spacePositions) < 4; i++ {
		if line[i] == ' ' {
			spacePositions = append(spacePositions, i)
		}
	}
	if len(spacePositions) < 4 {
		return false
	}
	timeStr := line[spacePositions[1]+1 : spacePositions[2]]
	if _, _, _, ok := parseHHMMSS(timeStr); !ok {
		return false
	}
	typeStart := spacePositions[3] + 1
	typeEnd := strings.IndexByte(line[typeStart:], ' ')
	var typeStr string
	if typeEnd == -1 {
		typeStr = line[typeStart:]
	} else {
		typeStr = line[typeStart : typeStart+typeEnd]
	}
	_, ok := defaultParserValidTypes[strings.ToLower(strings.TrimSpace(typeStr))]
	return ok
}

// DefaultParser is the catch-all "DEVICE_ID SIGNAL_NAME HH:MM:SS value
// type" format, used as the registry's fallback when nothing else
// claims a file.
type DefaultParser struct {
	*engine
}

func NewDefaultParser() *DefaultParser {
	lp := &defaultLineParser{dates: globalDateCache}
	return &DefaultParser{
		engine: newEngine("default", lp, defaultLineLooksValid, false),
	}
}

func (p *DefaultParser) ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult {
	return BaseTimeWindow(ctx, p, path, start, end)
}
