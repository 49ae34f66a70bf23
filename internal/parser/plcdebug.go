package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// plcDebugLineRE is the regex fallback for the bracket-delimited
// "plc_debug" format: "YYYY-MM-DD HH:MM:SS.fff [Level] [path] [cat:signal] (dtype) : value".
var plcDebugLineRE = regexp.MustCompile(`^(?P<ts>\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+\[[^\]]+\]\s+\[(?P<path>[^\]]+)\]\s+\[[^:\]]+:(?P<signal>[^\]]+)\]\s+\((?P<dtype>[^)]+)\)\s*:\s*(?P<value>.*)\s*$`)

// plcDebugLineParser implements the fast bracket-splitting scan plus the
// regex fallback.
type plcDebugLineParser struct {
	floatEnabled   bool
	inferOnFailure bool
}

func (p *plcDebugLineParser) Descriptor() batch.Descriptor {
	return batch.Descriptor{
		ParserName:   "plc_debug",
		FastPathKind: "plc_debug",
		RegexSource:  plcDebugLineRE.String(),
		FloatEnabled: p.floatEnabled,
		InferOnFailure: p.inferOnFailure,
	}
}

func (p *plcDebugLineParser) ParseLine(line string) (batch.LineTuple, *signal.ParseError, bool) {
	if t, ok := p.fastParseLine(line); ok {
		return t, nil, true
	}

	m := plcDebugLineRE.FindStringSubmatch(line)
	if m == nil {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "line does not match PLC debug format"}, false
	}
	names := plcDebugLineRE.SubexpNames()
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
	dtypeToken := strings.ToLower(group("dtype"))
	valueStr := group("value")

	deviceID := lexer.ExtractDeviceID(path)
	if deviceID == "" {
		return batch.LineTuple{}, &signal.ParseError{Content: line, Reason: "device ID not found in path"}, false
	}

	stype := declaredOrInferred(dtypeToken, valueStr, p.floatEnabled)
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

// fastParseLine is a single-pass bracket/paren scanner equivalent to the
// regex above, avoiding regex overhead on the hot path.
func (p *plcDebugLineParser) fastParseLine(line string) (batch.LineTuple, bool) {
	n := len(line)
	if n < 40 {
		return batch.LineTuple{}, false
	}

	var brackets [6]int
	bracketCount := 0
	var parenOpen, parenClose, colonAfterParen int
	colonInBracket3 := -1
	inBracket3 := false

	for i := 0; i < n; i++ {
		switch line[i] {
		case '[':
			if bracketCount < 3 {
				brackets[bracketCount*2] = i
				if bracketCount == 2 {
					inBracket3 = true
				}
			}
		case ']':
			if bracketCount < 3 {
				brackets[bracketCount*2+1] = i
				if inBracket3 {
					inBracket3 = false
				}
				bracketCount++
			}
		case '(':
			if bracketCount == 3 && parenOpen == 0 {
				parenOpen = i
			}
		case ')':
			if parenOpen > 0 && parenClose == 0 {
				parenClose = i
			}
		case ':':
			if inBracket3 && colonInBracket3 == -1 {
				colonInBracket3 = i
			}
			if parenClose > 0 && colonAfterParen == 0 && i > parenClose {
				colonAfterParen = i
			}
		}
	}

	if bracketCount < 3 || parenOpen == 0 || parenClose == 0 || colonAfterParen == 0 || colonInBracket3 == -1 {
		return batch.LineTuple{}, false
	}

	tsStr := strings.TrimSpace(line[:brackets[0]])
	path := line[brackets[2]+1 : brackets[3]]
	signalName := strings.TrimSpace(line[colonInBracket3+1 : brackets[5]])
	dtypeToken := strings.ToLower(strings.TrimSpace(line[parenOpen+1 : parenClose]))
	valueStr := strings.TrimSpace(line[colonAfterParen+1:])

	if _, err := lexer.FastTimestamp(tsStr); err != nil {
		return batch.LineTuple{}, false
	}

	deviceID := lexer.ExtractDeviceID(path)
	if deviceID == "" {
		return batch.LineTuple{}, false
	}

	stype := declaredOrInferred(dtypeToken, valueStr, p.floatEnabled)
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

// declaredOrInferred honors an explicit boolean/integer/string/float
// type token when recognized, falling back to fast inference otherwise.
func declaredOrInferred(token, raw string, floatEnabled bool) signal.SignalType {
	switch signal.SignalType(token) {
	case signal.Boolean, signal.Integer, signal.String:
		return signal.SignalType(token)
	case signal.Float:
		if floatEnabled {
			return signal.Float
		}
	}
	return lexer.InferTypeFast(raw, floatEnabled)
}

// PLCDebugParser parses the bracket-delimited debug log format.
type PLCDebugParser struct {
	*engine
	lp *plcDebugLineParser
}

func NewPLCDebugParser(floatEnabled, inferOnFailure bool) *PLCDebugParser {
	lp := &plcDebugLineParser{floatEnabled: floatEnabled, inferOnFailure: inferOnFailure}
	return &PLCDebugParser{
		engine: newEngine("plc_debug", lp, func(line string) bool { return plcDebugLineRE.MatchString(line) }, false),
		lp:     lp,
	}
}

func (p *PLCDebugParser) ParseTimeWindow(ctx context.Context, path string, start, end signal.Timestamp) *signal.ParseResult {
	return BaseTimeWindow(ctx, p, path, start, end)
}
