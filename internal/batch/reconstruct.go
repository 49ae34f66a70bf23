package batch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/lexer"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// regexLineParser reconstructs a line parser purely from a Descriptor's
// named-group regex. Process workers never get the parent's compiled
// fast-path closures (they live in a different address space), so they
// always run the regex path; this is slower than the in-process fast
// path but must be identical in output.
type regexLineParser struct {
	re           *regexp.Regexp
	deviceIDRE   *regexp.Regexp
	typeMap      map[string]signal.SignalType
	floatEnabled bool
	inferOnFail  bool
	desc         Descriptor
}

func reconstructLineParser(desc Descriptor) (LineParser, error) {
	re, err := regexp.Compile(desc.RegexSource)
	if err != nil {
		return nil, fmt.Errorf("compile regex: %w", err)
	}
	var deviceRE *regexp.Regexp
	if desc.DeviceIDRegexSource != "" {
		deviceRE, err = regexp.Compile(desc.DeviceIDRegexSource)
		if err != nil {
			return nil, fmt.Errorf("compile device id regex: %w", err)
		}
	}
	tm := make(map[string]signal.SignalType, len(desc.TypeMap))
	for k, v := range desc.TypeMap {
		tm[k] = signal.SignalType(v)
	}
	return &regexLineParser{
		re:           re,
		deviceIDRE:   deviceRE,
		typeMap:      tm,
		floatEnabled: desc.FloatEnabled,
		inferOnFail:  desc.InferOnFailure,
		desc:         desc,
	}, nil
}

func (r *regexLineParser) Descriptor() Descriptor { return r.desc }

// declaredType resolves a captured dtype token the same way the
// in-process parsers do: through the descriptor's type map first, then
// the standard token set. Empty means "no usable declaration, infer".
func (r *regexLineParser) declaredType(token string) signal.SignalType {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	if st, ok := r.typeMap[token]; ok {
		return st
	}
	switch signal.SignalType(token) {
	case signal.Boolean, signal.Integer, signal.String:
		return signal.SignalType(token)
	case signal.Float:
		if r.floatEnabled {
			return signal.Float
		}
	}
	return ""
}

func (r *regexLineParser) ParseLine(line string) (LineTuple, *signal.ParseError, bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return LineTuple{}, &signal.ParseError{Content: line, Reason: "line did not match expected format"}, false
	}
	names := r.re.SubexpNames()
	group := func(n string) string {
		for i, nm := range names {
			if nm == n && i < len(m) {
				return m[i]
			}
		}
		return ""
	}

	ts := group("ts")
	signalName := group("signal")
	rawValue := group("value")
	path := group("path")

	deviceID := group("device")
	if deviceID == "" && path != "" {
		if r.deviceIDRE != nil {
			if sub := r.deviceIDRE.FindStringSubmatch(path); sub != nil {
				deviceID = sub[1]
			}
		} else {
			deviceID = lexer.ExtractDeviceID(path)
		}
		if deviceID == "" {
			if r.desc.PathAsDeviceID {
				deviceID = path
			} else {
				return LineTuple{}, &signal.ParseError{Content: line, Reason: "device ID not found in path"}, false
			}
		}
	}

	stype := r.declaredType(group("dtype"))
	if stype == "" {
		stype = lexer.InferTypeFast(rawValue, r.floatEnabled)
	}
	val, err := lexer.ParseValueFast(rawValue, stype, r.inferOnFail)
	if err != nil {
		return LineTuple{}, &signal.ParseError{Content: line, Reason: err.Error()}, false
	}

	return LineTuple{
		DeviceID:      deviceID,
		SignalName:    signalName,
		TimestampText: ts,
		Value:         val,
		SignalType:    stype,
	}, nil, true
}
