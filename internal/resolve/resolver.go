// Package resolve turns names written in Java source into the declarations
// or external type descriptors they denote. It covers import resolution,
// type qualification, the supertype walk used for assignability, and
// overload matching with primitive/boxed coercion.
//
// Nothing in this package treats an unresolved name as an error: lookups
// return nil and callers carry on without that edge.
package resolve

import (
	"errors"
	"log/slog"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/index"
	"github.com/mvp-joe/depsolver/internal/oracle"
)

const objectFQN = "java.lang.Object"

// Source is the in-corpus declaration lookup the resolver consults.
type Source interface {
	Type(fqn string) (*decl.TypeDecl, error)
	Package(pkg string) ([]*decl.CompilationUnit, error)
}

// Options configures a Resolver.
type Options struct {
	Logger *slog.Logger
	// OnMalformed is called when a lookup reaches a source file that failed
	// to parse. The lookup itself still returns nil.
	OnMalformed func(fqn string, err error)
}

// Resolver answers name, type and callable queries against the corpus and
// the type oracle. It keeps no per-solve state.
type Resolver struct {
	source      Source
	oracle      oracle.TypeOracle
	logger      *slog.Logger
	onMalformed func(string, error)
}

// New creates a Resolver.
func New(source Source, o oracle.TypeOracle, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source:      source,
		oracle:      o,
		logger:      logger,
		onMalformed: opts.OnMalformed,
	}
}

// SetMalformedHandler replaces the OnMalformed callback.
func (r *Resolver) SetMalformedHandler(fn func(fqn string, err error)) {
	r.onMalformed = fn
}

// Oracle returns the type oracle backing external lookups.
func (r *Resolver) Oracle() oracle.TypeOracle {
	return r.oracle
}

// Context is the lexical position a name is resolved from.
type Context struct {
	Unit   *decl.CompilationUnit
	Type   *decl.TypeDecl
	Method *decl.MethodDecl
}

// In returns the context of a declaration: its file, its enclosing type
// and, for callables, the callable itself.
func In(d decl.Declaration) Context {
	ctx := Context{Unit: d.CompilationUnit(), Type: d.Enclosing()}
	if m, ok := d.(*decl.MethodDecl); ok {
		ctx.Method = m
	}
	return ctx
}

// CompilationUnit returns the unit names are resolved against.
func (c Context) CompilationUnit() *decl.CompilationUnit {
	if c.Unit != nil {
		return c.Unit
	}
	if c.Type != nil {
		return c.Type.File
	}
	return nil
}

// IsTypeParam reports whether name is a type variable in scope.
func (c Context) IsTypeParam(name string) bool {
	if c.Method != nil && c.Method.IsTypeParam(name) {
		return true
	}
	return c.Type != nil && c.Type.IsTypeParam(name)
}

// SourceType returns the in-corpus type fqn, or nil.
func (r *Resolver) SourceType(fqn string) *decl.TypeDecl {
	if fqn == "" {
		return nil
	}
	t, err := r.source.Type(fqn)
	if err != nil {
		if errors.Is(err, index.ErrMalformedDeclaration) {
			r.logger.Debug("lookup reached malformed source", "fqn", fqn, "error", err)
			if r.onMalformed != nil {
				r.onMalformed(fqn, err)
			}
		}
		return nil
	}
	return t
}

// External returns the oracle descriptor for fqn.
func (r *Resolver) External(fqn string) (*oracle.TypeDescriptor, bool) {
	if fqn == "" || r.oracle == nil {
		return nil, false
	}
	return r.oracle.Resolve(fqn)
}

// Known reports whether fqn names a type the corpus or the oracle knows.
func (r *Resolver) Known(fqn string) bool {
	if fqn == "" {
		return false
	}
	if _, ok := r.External(fqn); ok {
		return true
	}
	return r.SourceType(fqn) != nil
}

// bindType binds a fully qualified type name. Source wins over the oracle.
func (r *Resolver) bindType(fqn string) *ImportBinding {
	if t := r.SourceType(fqn); t != nil {
		return &ImportBinding{FQN: t.FQN(), Type: t}
	}
	if td, ok := r.External(fqn); ok {
		return &ImportBinding{FQN: td.Name, External: td}
	}
	return nil
}
