package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParserDescriptor configures a registered parser's tunables (not its
// grammar: that stays Go code). Nothing here is evaluated as a
// predicate against log content; it only toggles existing parser
// behavior.
type ParserDescriptor struct {
	Name           string `yaml:"name"`
	Default        bool   `yaml:"default"`
	FloatEnabled   bool   `yaml:"float_enabled"`
	InferOnFailure bool   `yaml:"infer_on_failure"`
}

type descriptorFile struct {
	Parsers []ParserDescriptor `yaml:"parsers"`
}

// LoadDescriptors reads a YAML file listing which built-in parsers to
// enable and with what tunables, e.g.:
//
//	parsers:
//	  - name: plc_debug
//	    float_enabled: true
//	  - name: default
//	    default: true
func LoadDescriptors(path string) ([]ParserDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parser descriptor file: %w", err)
	}
	var df descriptorFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse parser descriptor file: %w", err)
	}
	return df.Parsers, nil
}

// BuildDefault constructs a Registry carrying every built-in parser with
// its stock tunables, with "default" as the fallback; the shape used
// when no descriptor file is supplied.
func BuildDefault(floatEnabled, inferOnFailure bool) *Registry {
	r := New()
	registerBuiltins(r, floatEnabled, inferOnFailure)
	return r
}

// BuildFromDescriptors constructs a Registry from a loaded descriptor
// list, registering only the named parsers (unknown names are skipped
// with no error, matching the spirit of a permissive config format).
func BuildFromDescriptors(descs []ParserDescriptor) *Registry {
	r := New()
	for _, d := range descs {
		p, ok := builtinByName(d.Name, d.FloatEnabled, d.InferOnFailure)
		if !ok {
			continue
		}
		r.Register(p, d.Default)
	}
	return r
}
