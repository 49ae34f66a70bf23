// Package signal defines the core data model shared by every layer of the
// ingestion engine: the typed event record produced by parsers, the
// aggregate log they build up into, and the reconstructed per-signal
// state history consumed by time-windowed queries.
package signal

import (
	"fmt"
	"time"
)

// SignalType discriminates the dynamic value a LogEntry carries.
type SignalType string

const (
	Boolean SignalType = "boolean"
	String  SignalType = "string"
	Integer SignalType = "integer"
	Float   SignalType = "float"
)

// Timestamp is a wall-clock instant with microsecond resolution. It wraps
// time.Time rather than aliasing it so the canonical text form
// (YYYY-MM-DD HH:MM:SS.ffffff) stays attached to the type.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t}
}

func (ts Timestamp) Before(other Timestamp) bool {
	return ts.Time.Before(other.Time)
}

func (ts Timestamp) After(other Timestamp) bool {
	return ts.Time.After(other.Time)
}

// SecondsSince returns the signed offset, in seconds, from anchor to ts.
func (ts Timestamp) SecondsSince(anchor Timestamp) float64 {
	return ts.Time.Sub(anchor.Time).Seconds()
}

func (ts Timestamp) String() string {
	return ts.Time.Format("2006-01-02 15:04:05.000000")
}

// Value is a tagged union over bool | int64 | float64 | text. Exactly one
// of the typed fields is meaningful; which one is determined by Type.
type Value struct {
	Type SignalType
	Bool bool
	Int  int64
	Flt  float64
	Text string
}

func BoolValue(b bool) Value    { return Value{Type: Boolean, Bool: b} }
func IntValue(i int64) Value    { return Value{Type: Integer, Int: i} }
func FloatValue(f float64) Value { return Value{Type: Float, Flt: f} }
func TextValue(s string) Value  { return Value{Type: String, Text: s} }

// Raw renders the value back to its textual form, the form in which
// internal/batch's process-worker wire tuples carry values.
func (v Value) Raw() string {
	switch v.Type {
	case Boolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case Integer:
		return fmt.Sprintf("%d", v.Int)
	case Float:
		return fmt.Sprintf("%g", v.Flt)
	default:
		return v.Text
	}
}

func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case Boolean:
		return v.Bool == other.Bool
	case Integer:
		return v.Int == other.Int
	case Float:
		return v.Flt == other.Flt
	default:
		return v.Text == other.Text
	}
}

// LogEntry is one parsed record. DeviceID and SignalName SHOULD be
// interned by the parser (see internal/intern) but interning is a memory
// hint, never a correctness requirement.
type LogEntry struct {
	DeviceID   string
	SignalName string
	Timestamp  Timestamp
	Value      Value
	SignalType SignalType
}

// Key renders the canonical signal key device_id::signal_name.
func (e LogEntry) Key() string {
	return e.DeviceID + "::" + e.SignalName
}

// ParseError is a diagnostic for one failed line. Line == 0 denotes a
// whole-file error (not found, read failure, no data) rather than a
// specific line.
type ParseError struct {
	Line     uint64
	Content  string
	Reason   string
	FilePath string
}

func (e ParseError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// TimeRange is an inclusive-inclusive (min, max) timestamp pair.
type TimeRange struct {
	Start Timestamp
	End   Timestamp
}
