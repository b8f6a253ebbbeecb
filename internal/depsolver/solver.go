// Package depsolver computes the transitive closure of declarations reachable
// from a set of target methods or types. Each reached declaration becomes a
// Node in a Registry; the members of each reached type accumulate in a Stub
// from which a reduced copy of the type can be emitted.
//
// A Solver is single-goroutine and keeps per-solve state; call Reset (or use
// SolveAll) between unrelated targets.
package depsolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/oracle"
	"github.com/mvp-joe/depsolver/internal/resolve"
)

var (
	// ErrMissingSource is returned under the abort policy when an explicit
	// import names a type neither the corpus nor the oracle knows.
	ErrMissingSource = errors.New("missing source")
	// ErrMalformedSource is returned when a solve reaches a file that
	// failed to parse. It wraps the index error.
	ErrMalformedSource = errors.New("malformed source")
	// ErrUnknownTarget is returned when a target type is not in the corpus.
	ErrUnknownTarget = errors.New("unknown target")
)

// MissingSourcePolicy decides what happens when a type cannot be found.
type MissingSourcePolicy string

const (
	MissingSourceLog   MissingSourcePolicy = "log"
	MissingSourceAbort MissingSourcePolicy = "abort"
)

// DefaultGetterMarkers are the annotations that mark a type as having
// generated accessors.
var DefaultGetterMarkers = []string{"Data", "Getter"}

// Options configures a Solver. BasePackage is the package prefix of the
// analyzed application: an import nothing knows is missing only inside it
// and external outside it. Empty treats every unknown import as missing.
type Options struct {
	Logger        *slog.Logger
	MissingSource MissingSourcePolicy
	GetterMarkers []string
	BasePackage   string
}

// Target names what a solve starts from: a method of a type, or with an
// empty Method every non-private method of the type.
type Target struct {
	Type   string `json:"type" yaml:"type"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
}

// ParseTarget parses "com.acme.Type" or "com.acme.Type#method".
func ParseTarget(s string) (Target, error) {
	typ, method, _ := strings.Cut(strings.TrimSpace(s), "#")
	if typ == "" {
		return Target{}, fmt.Errorf("empty target %q", s)
	}
	return Target{Type: typ, Method: method}, nil
}

func (t Target) String() string {
	if t.Method == "" {
		return t.Type
	}
	return t.Type + "#" + t.Method
}

// Fallback records a call site bound by an approximate strategy. ArgTypes
// holds the argument types after coercion and is set for coerced matches.
type Fallback struct {
	From     string           `json:"from" yaml:"from"`
	Call     string           `json:"call" yaml:"call"`
	Strategy resolve.Strategy `json:"strategy" yaml:"strategy"`
	Targets  []string         `json:"targets" yaml:"targets"`
	ArgTypes []string         `json:"arg_types,omitempty" yaml:"arg_types,omitempty"`
}

// Solver drives closure computation over the corpus.
type Solver struct {
	resolver *resolve.Resolver
	registry *Registry
	logger   *slog.Logger
	policy   MissingSourcePolicy
	markers  []string
	base     string

	// locals maps local names in the callable being visited to their
	// inferred types. A zero type is a known local of unknown type.
	locals    map[string]decl.TypeRef
	missing   map[string]bool
	external  map[string]bool
	fallbacks []Fallback
	failure   error
}

// New creates a Solver over an in-corpus source and a type oracle.
func New(source resolve.Source, o oracle.TypeOracle, opts Options) *Solver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.MissingSource
	if policy == "" {
		policy = MissingSourceLog
	}
	markers := opts.GetterMarkers
	if markers == nil {
		markers = DefaultGetterMarkers
	}
	s := &Solver{
		registry: NewRegistry(),
		logger:   logger,
		policy:   policy,
		markers:  markers,
		base:     opts.BasePackage,
		locals:   make(map[string]decl.TypeRef),
		missing:  make(map[string]bool),
		external: make(map[string]bool),
	}
	s.resolver = resolve.New(source, o, resolve.Options{Logger: logger, OnMalformed: s.malformed})
	return s
}

// Resolver returns the resolver the solver consults.
func (s *Solver) Resolver() *resolve.Resolver { return s.resolver }

// Registry returns the registry of the current solve.
func (s *Solver) Registry() *Registry { return s.registry }

// Reset clears every piece of per-solve state.
func (s *Solver) Reset() {
	s.registry.Reset()
	s.locals = make(map[string]decl.TypeRef)
	s.missing = make(map[string]bool)
	s.external = make(map[string]bool)
	s.fallbacks = nil
	s.failure = nil
}

func (s *Solver) malformed(fqn string, err error) {
	if s.failure == nil {
		s.failure = fmt.Errorf("%w: %s: %w", ErrMalformedSource, fqn, err)
	}
}

// Solve registers the targets and processes nodes until none are
// unvisited. It returns the closure accumulated so far, which includes
// anything reached by earlier calls since the last Reset.
func (s *Solver) Solve(ctx context.Context, targets ...decl.Declaration) (*Result, error) {
	for _, d := range targets {
		s.registry.CreateNode(d)
	}
	for {
		if s.failure != nil {
			return s.result(), s.failure
		}
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		n := s.registry.next()
		if n == nil {
			return s.result(), nil
		}
		s.visit(n)
	}
}

// SolveMethod solves from every non-private method called method on the
// type typeFQN.
func (s *Solver) SolveMethod(ctx context.Context, typeFQN, method string) (*Result, error) {
	t := s.resolver.SourceType(typeFQN)
	if t == nil {
		if s.failure != nil {
			return s.result(), s.failure
		}
		return s.result(), fmt.Errorf("%w: %s", ErrUnknownTarget, typeFQN)
	}
	var seeds []decl.Declaration
	for _, m := range t.Callables(method) {
		if !m.Modifiers.Has(decl.ModPrivate) {
			seeds = append(seeds, m)
		}
	}
	if len(seeds) == 0 {
		return s.result(), fmt.Errorf("%w: %s has no method %s", ErrUnknownTarget, typeFQN, method)
	}
	return s.Solve(ctx, seeds...)
}

// SolveType solves from every non-private method of typeFQN, or from the
// type itself when it declares none.
func (s *Solver) SolveType(ctx context.Context, typeFQN string) (*Result, error) {
	t := s.resolver.SourceType(typeFQN)
	if t == nil {
		if s.failure != nil {
			return s.result(), s.failure
		}
		return s.result(), fmt.Errorf("%w: %s", ErrUnknownTarget, typeFQN)
	}
	var seeds []decl.Declaration
	for _, m := range t.Methods {
		if !m.Modifiers.Has(decl.ModPrivate) {
			seeds = append(seeds, m)
		}
	}
	if len(seeds) == 0 {
		seeds = append(seeds, t)
	}
	return s.Solve(ctx, seeds...)
}

// SolveTarget dispatches to SolveMethod or SolveType.
func (s *Solver) SolveTarget(ctx context.Context, t Target) (*Result, error) {
	if t.Method == "" {
		return s.SolveType(ctx, t.Type)
	}
	return s.SolveMethod(ctx, t.Type, t.Method)
}

// Outcome is the result of one target of a batch.
type Outcome struct {
	Target Target
	Result *Result
	Err    error
}

// SolveAll solves each target independently, resetting between them. A
// failing target does not stop the batch. progress, when non-nil, is called
// after each target.
func (s *Solver) SolveAll(ctx context.Context, targets []Target, progress func(Outcome)) []Outcome {
	out := make([]Outcome, 0, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			out = append(out, Outcome{Target: t, Err: ctx.Err()})
			continue
		}
		s.Reset()
		res, err := s.SolveTarget(ctx, t)
		if err != nil {
			s.logger.Warn("target failed", "target", t.String(), "error", err)
		}
		o := Outcome{Target: t, Result: res, Err: err}
		out = append(out, o)
		if progress != nil {
			progress(o)
		}
	}
	s.Reset()
	return out
}

// visit processes one node. A node's body is processed at most once.
func (s *Solver) visit(n *Node) {
	n.visited = true
	clear(s.locals)
	s.expand(n)
	switch d := n.decl.(type) {
	case *decl.MethodDecl:
		s.visitCallable(n, d)
	case *decl.FieldDecl:
		s.visitField(n, d)
	case *decl.TypeDecl:
		s.visitType(n, d)
	}
}

// expand copies what every use of a type needs into its stub the first
// time any node of that type is visited: the type's annotations and
// supertypes, and those of its outer types.
func (s *Solver) expand(n *Node) {
	for t := n.Enclosing(); t != nil; t = t.Outer {
		stub, ok := s.registry.Stub(t.FQN())
		if !ok || stub.expanded {
			continue
		}
		stub.expanded = true
		s.annotations(n, stub, resolve.In(t), t.Annotations)
		for _, super := range t.Supertypes() {
			s.typeUseFor(n, stub, resolve.Context{Unit: t.File, Type: t.Outer}, super)
		}
	}
}

func (s *Solver) visitCallable(n *Node, m *decl.MethodDecl) {
	n.stub.AddCallable(m)
	ctx := resolve.In(m)
	s.annotations(n, n.stub, ctx, m.Annotations)
	for _, p := range m.Params {
		s.annotations(n, n.stub, ctx, p.Annotations)
		s.typeUse(n, p.Type)
		s.locals[p.Name] = s.resolver.Qualify(ctx, p.Type)
	}
	for _, t := range m.Throws {
		s.typeUse(n, t)
	}
	s.typeUse(n, m.ReturnType)
	s.statements(n, m.Body)
	if m.IsAbstract() {
		for _, o := range s.resolver.Overridden(m) {
			s.registry.CreateNode(o)
		}
	}
	if m.Constructor {
		s.initializers(n, m.Owner)
		if !delegates(m) {
			s.implicitSuper(m.Owner)
		}
	}
}

// delegates reports whether a constructor starts with this(...) or super(...).
func delegates(m *decl.MethodDecl) bool {
	if len(m.Body) == 0 || len(m.Body[0].Exprs) == 0 {
		return false
	}
	e := m.Body[0].Exprs[0]
	return e != nil && e.Kind == decl.ExprMethodCall && e.Name == decl.ConstructorName
}

// implicitSuper registers the no-argument constructor of an in-corpus
// superclass, which every constructor without an explicit call runs.
func (s *Solver) implicitSuper(t *decl.TypeDecl) {
	if t.Kind != decl.KindClass || len(t.Extends) == 0 {
		return
	}
	b := s.resolver.ResolveType(resolve.Context{Unit: t.File, Type: t.Outer}, t.Extends[0].Name)
	if b == nil || b.Type == nil {
		return
	}
	for _, c := range b.Type.Constructors {
		if len(c.Params) == 0 {
			s.registry.CreateNode(c)
		}
	}
}

func (s *Solver) visitField(n *Node, f *decl.FieldDecl) {
	n.stub.AddField(f)
	s.annotations(n, n.stub, resolve.In(f), f.Annotations)
	s.typeUse(n, f.Type)
	for _, init := range f.Initializers {
		if init != nil {
			s.eval(n, init)
		}
	}
}

func (s *Solver) visitType(n *Node, t *decl.TypeDecl) {
	if t.Kind == decl.KindRecord {
		for _, f := range t.Fields {
			if !f.Modifiers.Has(decl.ModStatic) {
				s.registry.CreateNode(f)
			}
		}
	}
	s.initializers(n, t)
}

func (s *Solver) initializers(n *Node, t *decl.TypeDecl) {
	s.statements(n, t.Initializers)
}

// statements walks statement trees, recording locals as they appear.
func (s *Solver) statements(n *Node, stmts []*decl.Stmt) {
	for _, st := range stmts {
		if st != nil {
			s.statement(n, st)
		}
	}
}

func (s *Solver) statement(n *Node, st *decl.Stmt) {
	// enhanced for: the element variable takes its type from the iterable
	if st.Kind == decl.StmtLoop && len(st.Locals) == 1 && st.Locals[0].Init == nil && len(st.Exprs) == 1 {
		iter := s.eval(n, st.Exprs[0])
		l := st.Locals[0]
		typ := s.typeUse(n, l.Type)
		if l.Type.IsZero() {
			typ = elementOf(iter.typ)
		}
		s.locals[l.Name] = typ
		s.statements(n, st.Children)
		return
	}
	for _, l := range st.Locals {
		typ := s.typeUse(n, l.Type)
		if l.Init != nil {
			v := s.eval(n, l.Init)
			if l.Type.IsZero() {
				typ = v.typ
			}
		}
		s.locals[l.Name] = typ
	}
	for _, e := range st.Exprs {
		if e != nil {
			s.eval(n, e)
		}
	}
	s.statements(n, st.Children)
}

// elementOf returns the element type produced by iterating over t.
func elementOf(t decl.TypeRef) decl.TypeRef {
	if t.IsArray() {
		return t.Component()
	}
	if len(t.Args) == 1 {
		return t.Args[0]
	}
	return decl.TypeRef{}
}

func (s *Solver) annotations(n *Node, stub *Stub, ctx resolve.Context, anns []decl.Annotation) {
	for _, a := range anns {
		s.typeUseFor(n, stub, ctx, decl.TypeRef{Name: a.Name})
		for _, p := range a.Values {
			if p.Value != nil {
				s.eval(n, p.Value)
			}
		}
	}
}

// reportMissing records an unresolvable import target.
func (s *Solver) reportMissing(n *Node, fqn string) {
	if s.missing[fqn] {
		return
	}
	s.missing[fqn] = true
	s.logger.Debug("missing source", "fqn", fqn, "from", n.Handle())
	if s.policy == MissingSourceAbort && s.failure == nil {
		s.failure = fmt.Errorf("%w: %s (imported by %s)", ErrMissingSource, fqn, n.Handle())
	}
}

func (s *Solver) recordFallback(n *Node, call string, st resolve.Strategy, targets []string) {
	s.logger.Debug("approximate call resolution", "from", n.Handle(), "call", call, "strategy", st)
	s.fallbacks = append(s.fallbacks, Fallback{From: n.Handle(), Call: call, Strategy: st, Targets: targets})
}

// recordCoercion keeps the argument types of a match that needed boxing or
// unboxing. Exact matches record nothing.
func (s *Solver) recordCoercion(n *Node, call string, m resolve.CallMatch) {
	if m.Strategy != resolve.StrategyCoerced {
		return
	}
	types := make([]string, len(m.ArgTypes))
	for i, t := range m.ArgTypes {
		types[i] = t.String()
	}
	s.logger.Debug("coerced call arguments", "from", n.Handle(), "call", call, "arg_types", types)
	s.fallbacks = append(s.fallbacks, Fallback{
		From:     n.Handle(),
		Call:     call,
		Strategy: m.Strategy,
		Targets:  []string{m.Callable.Handle()},
		ArgTypes: types,
	})
}

// Result is the closure accumulated by a solve.
type Result struct {
	Nodes     []*Node
	Stubs     []*Stub
	External  []string
	Missing   []string
	Fallbacks []Fallback
}

// Handles returns the handles of every node in discovery order.
func (r *Result) Handles() []string {
	out := make([]string, len(r.Nodes))
	for i, n := range r.Nodes {
		out[i] = n.Handle()
	}
	return out
}

// Contains reports whether a node with handle is in the closure.
func (r *Result) Contains(handle string) bool {
	for _, n := range r.Nodes {
		if n.Handle() == handle {
			return true
		}
	}
	return false
}

// Stub returns the stub for a type FQN.
func (r *Result) Stub(fqn string) *Stub {
	for _, st := range r.Stubs {
		if st.FQN == fqn {
			return st
		}
	}
	return nil
}

func (s *Solver) result() *Result {
	return &Result{
		Nodes:     append([]*Node(nil), s.registry.Nodes()...),
		Stubs:     s.registry.Stubs(),
		External:  sortedKeys(s.external),
		Missing:   sortedKeys(s.missing),
		Fallbacks: append([]Fallback(nil), s.fallbacks...),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
