// Package registry implements the three-tier symbol resolution used during
// transformation: block scope (a stack of frames tracking DECLARE nesting),
// package scope, and schema scope. Registration always targets the innermost
// block frame; resolution cascades outward so inner declarations shadow
// outer ones. All names are case-folded.
package registry

import (
	"log/slog"
	"strings"

	"github.com/sayiza/orapgsync/pkg/types"
)

// frame holds the symbols declared in one tier or block level.
type frame struct {
	typeDefs map[string]*types.InlineTypeDefinition
	vars     map[string]types.InferredType
}

func newFrame() *frame {
	return &frame{
		typeDefs: make(map[string]*types.InlineTypeDefinition),
		vars:     make(map[string]types.InferredType),
	}
}

// Registry resolves type and variable names through block, package and
// schema tiers. The zero value is not usable; construct with New.
type Registry struct {
	logger *slog.Logger
	blocks []*frame // innermost last
	pkg    *frame
	schema *frame
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for shadowing and ignore events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a registry with one open block frame and empty package and
// schema tiers.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: slog.New(slog.DiscardHandler),
		blocks: []*frame{newFrame()},
		pkg:    newFrame(),
		schema: newFrame(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PushBlock opens a new innermost block frame. Call on entering a nested
// DECLARE/BEGIN block.
func (r *Registry) PushBlock() {
	r.blocks = append(r.blocks, newFrame())
}

// PopBlock discards the innermost block frame. The outermost frame is never
// popped.
func (r *Registry) PopBlock() {
	if len(r.blocks) <= 1 {
		r.logger.Warn("pop on outermost block ignored")
		return
	}
	r.blocks = r.blocks[:len(r.blocks)-1]
}

// Depth returns the number of open block frames.
func (r *Registry) Depth() int {
	return len(r.blocks)
}

func (r *Registry) innermost() *frame {
	return r.blocks[len(r.blocks)-1]
}

// RegisterType records an inline type declaration in the innermost block
// frame. Empty names and nil definitions are silently ignored.
func (r *Registry) RegisterType(name string, def *types.InlineTypeDefinition) {
	key := fold(name)
	if key == "" || def == nil {
		r.logger.Debug("type registration ignored", "name", name)
		return
	}
	r.innermost().typeDefs[key] = def
}

// RegisterVariable records a variable declaration in the innermost block frame.
func (r *Registry) RegisterVariable(name string, t types.InferredType) {
	key := fold(name)
	if key == "" {
		return
	}
	r.innermost().vars[key] = t
}

// RegisterPackageType seeds the package tier, for types declared in the
// enclosing package spec or body.
func (r *Registry) RegisterPackageType(name string, def *types.InlineTypeDefinition) {
	key := fold(name)
	if key == "" || def == nil {
		return
	}
	r.pkg.typeDefs[key] = def
}

// RegisterPackageVariable seeds the package tier with a package-level variable.
func (r *Registry) RegisterPackageVariable(name string, t types.InferredType) {
	key := fold(name)
	if key == "" {
		return
	}
	r.pkg.vars[key] = t
}

// RegisterSchemaType seeds the schema tier, for types visible database-wide.
func (r *Registry) RegisterSchemaType(name string, def *types.InlineTypeDefinition) {
	key := fold(name)
	if key == "" || def == nil {
		return
	}
	r.schema.typeDefs[key] = def
}

// ResolveType looks a type name up through block frames innermost-first,
// then the package tier, then the schema tier.
func (r *Registry) ResolveType(name string) (*types.InlineTypeDefinition, bool) {
	key := fold(name)
	if key == "" {
		return nil, false
	}
	for i := len(r.blocks) - 1; i >= 0; i-- {
		if def, ok := r.blocks[i].typeDefs[key]; ok {
			return def, true
		}
	}
	if def, ok := r.pkg.typeDefs[key]; ok {
		return def, true
	}
	if def, ok := r.schema.typeDefs[key]; ok {
		return def, true
	}
	return nil, false
}

// ResolveVariable looks a variable name up through the same cascade.
func (r *Registry) ResolveVariable(name string) (types.InferredType, bool) {
	key := fold(name)
	if key == "" {
		return types.UnknownType, false
	}
	for i := len(r.blocks) - 1; i >= 0; i-- {
		if t, ok := r.blocks[i].vars[key]; ok {
			return t, true
		}
	}
	if t, ok := r.pkg.vars[key]; ok {
		return t, true
	}
	return types.UnknownType, false
}
