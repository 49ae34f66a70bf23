// Package registry is the parser lookup table: Register associates a
// name with a parser.Parser, Detect samples a file against every
// registered parser (skipping the default) to find its format, and
// Parse dispatches a file through whichever parser claims it, falling
// back to the registered default.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/parser"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// Registry holds every parser known to this process, in registration
// order, plus one designated default.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	parsers map[string]parser.Parser
	dflt    string
}

func New() *Registry {
	return &Registry{parsers: make(map[string]parser.Parser)}
}

// Register adds p under its own Name(). If isDefault is true, p becomes
// the fallback used when Detect finds no match.
func (r *Registry) Register(p parser.Parser, isDefault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.parsers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.parsers[name] = p
	if isDefault {
		r.dflt = name
	}
}

// Get returns the parser registered under name.
func (r *Registry) Get(name string) (parser.Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	return p, ok
}

// Names returns every registered parser name, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Detect samples path against every non-default parser in registration
// order, returning the first one whose CanParse reports true. If none
// match, it falls back to the registered default (if any).
func (r *Registry) Detect(path string) (parser.Parser, error) {
	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	parsers := make(map[string]parser.Parser, len(r.parsers))
	for k, v := range r.parsers {
		parsers[k] = v
	}
	dflt := r.dflt
	r.mu.RUnlock()

	for _, name := range order {
		if name == dflt {
			continue
		}
		p := parsers[name]
		ok, err := p.CanParse(path)
		if err != nil {
			continue
		}
		if ok {
			return p, nil
		}
	}
	if dflt != "" {
		return parsers[dflt], nil
	}
	return nil, fmt.Errorf("registry: no parser matched %s and no default is registered", path)
}

// Parse detects path's format and parses it.
func (r *Registry) Parse(ctx context.Context, path string, opts parser.Options) *signal.ParseResult {
	p, err := r.Detect(path)
	if err != nil {
		return &signal.ParseResult{Errors: []signal.ParseError{{Reason: "NoSuitableParser: " + err.Error(), FilePath: path}}}
	}
	return r.parseWith(ctx, p, path, opts)
}

// ParseNamed parses path with the parser registered under name if it is
// non-empty, else falls back to Detect. An unknown name is a whole-result
// ParserNameUnknown error, distinct from Detect's own NoSuitableParser
// when no parser's CanParse matches and there's no default.
func (r *Registry) ParseNamed(ctx context.Context, path, name string, opts parser.Options) *signal.ParseResult {
	if name == "" {
		return r.Parse(ctx, path, opts)
	}
	p, ok := r.Get(name)
	if !ok {
		return &signal.ParseResult{Errors: []signal.ParseError{
			{Reason: fmt.Sprintf("ParserNameUnknown: %q is not a registered parser", name), FilePath: path},
		}}
	}
	return r.parseWith(ctx, p, path, opts)
}

func (r *Registry) parseWith(ctx context.Context, p parser.Parser, path string, opts parser.Options) *signal.ParseResult {
	if p.SingleThreadedOnly() {
		opts.Workers = 1
	}
	return p.Parse(ctx, path, opts)
}
