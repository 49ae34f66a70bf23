package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// plcTabLineRE is the regex fallback for the tab-delimited format:
// "YYYY-MM-DD HH:MM:SS.fff [] path\tsignal\tdirection\tvalue\t...".
var plcTabLineRE = regexp.MustCompile(`^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s\[\]\s(?P<path>[^\t]+)\t(?P<signal>[^\t]+)\t(?P<direction>[^\t]*)\t(?P<value>[^\t]*)\t[^\t]*\t[^\t]*\t[^\t]*(?:\t[^\t]*)?\t\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+\s*$`)

type plcTabLineParser struct {
	floatEnabled   bool
	inferOnFailure bool
}

func (p *plcTabLineParser) Descriptor() batch.Descriptor {
	return batch.Descriptor{
		ParserName:     "plc_tab",
		FastPathKind:   "plc_tab",
		RegexSource:    plcTabLineRE.String(),
		FloatEnabled:   p.floatEnabled,
		InferOnFailure: p.inferOnFailure,
	}
}

func (p *plcTabLineParser) ParseLine(line string) (batch.LineTuple, *signal.ParseError, bool) {
	if t, ok := p.fastParseLine(line); ok {
		return t, nil, true
	}

	m := plcTabLineRE.FindStringSubmatch(line)
	if m == nil {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "line does not match PLC tab format"}, false
	}
	names := plcTabLineRE.SubexpNames()
	group := func(n string) string {
		for i, nm := range names {
			if nm == n {
				return m[i]
			}
		}
		return ""
	}

	tsStr := group("ts")
	path := group("path")
	signalName := group("signal")
	valueStr := group("value")

	deviceID := lexer.ExtractDeviceID(path)
	if deviceID == "" {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "device ID not found in path"}, false
	}

	stype := lexer.InferTypeFast(valueStr, p.floatEnabled)
	val, err := lexer.ParseValueFast(valueStr, stype, p.inferOnFailure)
	if err != nil {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: err.Error()}, false
	}

	return batch.LineTuple{
		DeviceID:      deviceID,
		SignalName:    signalName,
		TimestampText: tsStr,
		Value:         val,
		SignalType:    stype,
	}, nil, true
}

// fastParseLine splits on the " [] " marker and tabs directly, skipping
// the regex entirely for well-formed lines.
func (p *plcTabLineParser) fastParseLine(line string) (batch.LineTuple, bool) {
	if !strings.Contains(line, "\t") {
		return batch.LineTuple{}, false
	}
	markerIdx := strings.Index(line, " [] ")
	if markerIdx == -1 {
		return batch.LineTuple{}, false
	}

	tsStr := strings.TrimSpace(line[:markerIdx])
	if len(tsStr) < 19 {
		return batch.LineTuple{}, false
	}

	remainder := line[markerIdx+4:]
	parts := strings.Split(remainder, "\t")
	if len(parts) < 8 {
		return batch.LineTuple{}, false
	}

	path := strings.TrimSpace(parts[0])
	signalName := strings.TrimSpace(parts[1])
	valueStr := strings.TrimSpace(parts[3])

	if _, err := lexer.FastTimestamp(tsStr); err != nil {
		return batch.LineTuple{}, false
	}

	deviceID := lexer.ExtractDeviceID(path)
	if deviceID == "" {
		return batch.LineTuple{}, false
	}

	stype := lexer.InferTypeFast(valueStr, p.floatEnabled)
	val, err := lexer.ParseValueFast(valueStr, stype, p.inferOnFailure)
	if err != nil {
		return batch.LineTuple{}, false
	}

	return batch.LineTuple{
		DeviceID:      deviceID,
		SignalName:    signalName,
		TimestampText: tsStr,
		Value:         val,
		SignalType:    stype,
	}, true
}

// PLCTabParser parses the tab-delimited log format.
type PLCTabParser struct {
	*engine
}

func NewPLCTabParser(floatEnabled, inferOnFailure bool) *PLCTabParser {
	lp := &plcTabLineParser{floatEnabled: floatEnabled, inferOnFailure: inferOnFailure}
	return &PLCTabParser{
		engine: newEngine("plc_tab", lp, func(line string) bool { return plcTabLineRE.MatchString(line) }, false),
	}
}

func (p *PLCTabParser) ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult {
	return BaseTimeWindow(ctx, p, path, start, end)
}
