package registry

import (
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/parser"
)

// registerBuiltins registers every concrete parser this module ships
// with, most structurally specific formats first so detection tries
// them in that order, "default" last as the catch-all.
func registerBuiltins(r *Registry, floatEnabled, inferOnFailure bool) {
	r.Register(parser.NewPLCDebugParser(floatEnabled, inferOnFailure), false)
	r.Register(parser.NewPLCTabParser(floatEnabled, inferOnFailure), false)
	r.Register(parser.NewMCSLogParser(inferOnFailure), false)
	r.Register(parser.NewCSVSignalParser(floatEnabled, inferOnFailure), false)
	r.Register(parser.NewDefaultParser(), true)
}

func builtinByName(name string, floatEnabled, inferOnFailure bool) (parser.Parser, bool) {
	switch name {
	case "plc_debug":
		return parser.NewPLCDebugParser(floatEnabled, inferOnFailure), true
	case "plc_tab":
		return parser.NewPLCTabParser(floatEnabled, inferOnFailure), true
	case "mcs_log":
		return parser.NewMCSLogParser(inferOnFailure), true
	case "csv_signal":
		return parser.NewCSVSignalParser(floatEnabled, inferOnFailure), true
	case "default":
		return parser.NewDefaultParser(), true
	default:
		return nil, false
	}
}
