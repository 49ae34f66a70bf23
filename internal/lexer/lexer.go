// Package lexer implements the fixed-format scanners every concrete
// parser shares: timestamp, integer, float, and boolean/type-token
// recognition. Cheap pre-check regexes gate the conversions, splitting
// "does this look right" from "convert it", so the common case never
// pays for a failed parse.
package lexer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidBoolean   = errors.New("invalid boolean value")
	ErrInvalidInteger   = errors.New("invalid integer value")
)

var (
	intRE = regexp.MustCompile(`^[+-]?(?:0[xX][0-9A-Fa-f_]+|0[bB][01_]+|0[oO][0-7_]+|\d[\d_,]*)$`)
	fltRE = regexp.MustCompile(`^[+-]?(?:\d[\d_,]*\.\d+|\.\d+|\d+\.)(?:[eE][+-]?\d+)?$|^[+-]?\d+(?:[eE][+-]?\d+)$`)

	// defaultDeviceIDRE is the default device-id extraction pattern: the
	// last hyphen-numeric tail of a path, before an optional "@suffix".
	defaultDeviceIDRE = regexp.MustCompile(`([A-Za-z0-9_-]+-\d+)(?:@[^\]]+)?$`)
)

// ExtractDeviceID pulls the device id out of a captured path segment
// using the default hyphen-numeric-tail rule (e.g.
// "/AreaA/Line01/Robot-01@Main" -> "Robot-01"). Parsers with a different
// device-id shape supply their own regex instead of calling this.
func ExtractDeviceID(path string) string {
	m := defaultDeviceIDRE.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	boolTrue  = map[string]struct{}{"ON": {}, "TRUE": {}, "1": {}, "YES": {}}
	boolFalse = map[string]struct{}{"OFF": {}, "FALSE": {}, "0": {}, "NO": {}}
)

// FastTimestamp parses "YYYY-MM-DD HH:MM:SS.ffffff" (fractional part
// optional, up to six digits, right-padded with zeros) by reading fixed
// offsets instead of going through time.Parse's layout matching.
func FastTimestamp(ts string) (signal.Timestamp, error) {
	if len(ts) < 19 {
		return signal.Timestamp{}, ErrInvalidTimestamp
	}
	year, ok1 := atoiRange(ts, 0, 4)
	month, ok2 := atoiRange(ts, 5, 7)
	day, ok3 := atoiRange(ts, 8, 10)
	hour, ok4 := atoiRange(ts, 11, 13)
	minute, ok5 := atoiRange(ts, 14, 16)
	second, ok6 := atoiRange(ts, 17, 19)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return signal.Timestamp{}, ErrInvalidTimestamp
	}
	if ts[4] != '-' || ts[7] != '-' || ts[10] != ' ' || ts[13] != ':' || ts[16] != ':' {
		return signal.Timestamp{}, ErrInvalidTimestamp
	}

	micro := 0
	if len(ts) > 19 {
		if ts[19] != '.' {
			return signal.Timestamp{}, ErrInvalidTimestamp
		}
		frac := ts[20:]
		if len(frac) > 6 {
			frac = frac[:6]
		}
		padded := frac + strings.Repeat("0", 6-len(frac))
		v, ok := atoiRange(padded, 0, 6)
		if !ok {
			return signal.Timestamp{}, ErrInvalidTimestamp
		}
		micro = v
	}

	t, err := buildTime(year, month, day, hour, minute, second, micro)
	if err != nil {
		return signal.Timestamp{}, ErrInvalidTimestamp
	}
	return signal.NewTimestamp(t), nil
}

// IsIntLike pre-checks whether raw looks like an integer literal
// (optional sign, optional 0x/0b/0o prefix, or decimal digits with
// underscore/comma grouping) without attempting conversion.
func IsIntLike(raw string) bool {
	return intRE.MatchString(raw)
}

// IsFloatLike pre-checks a float literal: fractional part and/or a
// scientific exponent.
func IsFloatLike(raw string) bool {
	return fltRE.MatchString(raw)
}

// ParseIntLike strips comma/underscore separators and honors hex/binary/
// octal prefixes.
func ParseIntLike(raw string) (int64, error) {
	t := strings.NewReplacer(",", "", "_", "").Replace(strings.TrimSpace(raw))
	base := 10
	neg := false
	switch {
	case strings.HasPrefix(t, "-"):
		neg = true
		t = t[1:]
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	}
	switch {
	case hasFoldPrefix(t, "0x"):
		base, t = 16, t[2:]
	case hasFoldPrefix(t, "0b"):
		base, t = 2, t[2:]
	case hasFoldPrefix(t, "0o"):
		base, t = 8, t[2:]
	}
	v, err := strconv.ParseInt(t, base, 64)
	if err != nil {
		return 0, ErrInvalidInteger
	}
	if neg {
		v = -v
	}
	return v, nil
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// ParseFloatLike strips comma/underscore separators and converts.
func ParseFloatLike(raw string) (float64, error) {
	t := strings.NewReplacer(",", "", "_", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, ErrInvalidValue
	}
	return v, nil
}

// InferTypeFast returns Boolean for ON|OFF|TRUE|FALSE|YES|NO|1|0 (case
// insensitive), Integer for int-like tokens, Float for float-like tokens
// when floatEnabled, else String.
func InferTypeFast(raw string, floatEnabled bool) signal.SignalType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return signal.String
	}
	u := strings.ToUpper(s)
	if _, ok := boolTrue[u]; ok {
		return signal.Boolean
	}
	if _, ok := boolFalse[u]; ok {
		return signal.Boolean
	}
	if IsIntLike(s) {
		return signal.Integer
	}
	if floatEnabled && IsFloatLike(s) {
		return signal.Float
	}
	return signal.String
}

// ParseValueFast enforces the declared/inferred type. On failure, if
// inferOk is true it falls back to the raw text unchanged; otherwise it
// returns the type's error: ErrInvalidBoolean, ErrInvalidInteger, or
// ErrInvalidValue for a float.
func ParseValueFast(raw string, stype signal.SignalType, inferOk bool) (signal.Value, error) {
	s := strings.TrimSpace(raw)
	switch stype {
	case signal.Boolean:
		u := strings.ToUpper(s)
		if _, ok := boolTrue[u]; ok {
			return signal.BoolValue(true), nil
		}
		if _, ok := boolFalse[u]; ok {
			return signal.BoolValue(false), nil
		}
		if inferOk {
			return signal.TextValue(s), nil
		}
		return signal.Value{}, ErrInvalidBoolean
	case signal.Integer:
		v, err := ParseIntLike(s)
		if err != nil {
			if inferOk {
				return signal.TextValue(s), nil
			}
			return signal.Value{}, err
		}
		return signal.IntValue(v), nil
	case signal.Float:
		v, err := ParseFloatLike(s)
		if err != nil {
			if inferOk {
				return signal.TextValue(s), nil
			}
			return signal.Value{}, err
		}
		return signal.FloatValue(v), nil
	default:
		return signal.TextValue(s), nil
	}
}

func atoiRange(s string, start, end int) (int, bool) {
	if end > len(s) {
		return 0, false
	}
	n := 0
	for i := start; i < end; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
