package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// csvSignalLineRE matches "Timestamp,Path,Signal,Value".
var csvSignalLineRE = regexp.MustCompile(`^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s*,\s*(?P<path>[^,]+)\s*,\s*(?P<signal>[^,]+)\s*,\s*(?P<value>.*?)\s*$`)

type csvSignalLineParser struct {
	floatEnabled   bool
	inferOnFailure bool
}

func (p *csvSignalLineParser) Descriptor() batch.Descriptor {
	return batch.Descriptor{
		ParserName:     "csv_signal",
		FastPathKind:   "csv_signal",
		RegexSource:    csvSignalLineRE.String(),
		FloatEnabled:   p.floatEnabled,
		InferOnFailure: p.inferOnFailure,
		PathAsDeviceID: true,
	}
}

func (p *csvSignalLineParser) ParseLine(line string) (batch.LineTuple, *signal.ParseError, bool) {
	m := csvSignalLineRE.FindStringSubmatch(line)
	if m != nil {
		names := csvSignalLineRE.SubexpNames()
		group := func(n string) string {
			for i, nm := range names {
				if nm == n {
					return m[i]
				}
			}
			return ""
		}
		return p.buildTuple(group("ts"), group("path"), group("signal"), group("value"), line)
	}

	// Simple-split fallback for CSV rows whose values themselves contain
	// no embedded commas.
	parts := strings.Split(line, ",")
	if len(parts) >= 4 {
		ts := strings.TrimSpace(parts[0])
		path := strings.TrimSpace(parts[1])
		signalName := strings.TrimSpace(parts[2])
		valueStr := strings.TrimSpace(strings.Join(parts[3:], ","))
		return p.buildTuple(ts, path, signalName, valueStr, line)
	}

	return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "line does not match CSV signal format"}, false
}

func (p *csvSignalLineParser) buildTuple(tsStr, path, signalName, valueStr, line string) (batch.LineTuple, *signal.ParseError, bool) {
	if _, err := lexer.FastTimestamp(tsStr); err != nil {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "invalid timestamp"}, false
	}

	deviceID := lexer.ExtractDeviceID(path)
	if deviceID == "" {
		deviceID = path
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

// CSVSignalParser parses "Timestamp,Path,Signal,Value" CSV logs.
type CSVSignalParser struct {
	*engine
}

func NewCSVSignalParser(floatEnabled, inferOnFailure bool) *CSVSignalParser {
	lp := &csvSignalLineParser{floatEnabled: floatEnabled, inferOnFailure: inferOnFailure}
	return &CSVSignalParser{
		engine: newEngine("csv_signal", lp, func(line string) bool { return csvSignalLineRE.MatchString(line) }, false),
	}
}

func (p *CSVSignalParser) ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult {
	return BaseTimeWindow(ctx, p, path, start, end)
}
