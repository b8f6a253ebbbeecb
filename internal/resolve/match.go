package resolve

import (
	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/oracle"
)

// Strategy tags how a call site was tied to a declaration.
type Strategy string

const (
	// StrategyDeclared matched a declared signature by identity or assignability.
	StrategyDeclared Strategy = "declared"
	// StrategyCoerced matched only after primitive/boxed coercion of arguments.
	StrategyCoerced Strategy = "coerced"
	// StrategyGetterInference mapped getFoo() to field foo on a type carrying
	// a getter-generation marker. Approximate: the field is never checked
	// against an actual accessor.
	StrategyGetterInference Strategy = "getter_inference"
	// StrategyStaticImport bound the name through a static import.
	StrategyStaticImport Strategy = "static_import"
	// StrategyArityOnly took every method of that name and argument count.
	StrategyArityOnly Strategy = "arity_only"
)

// CallMatch is the outcome of overload matching.
type CallMatch struct {
	Callable *decl.MethodDecl
	// ArgTypes are the inferred argument types after coercion. A coerced
	// argument carries the parameter type it was converted to.
	ArgTypes []decl.TypeRef
	Strategy Strategy
}

// ExternalMatch is the outcome of matching against an oracle descriptor.
type ExternalMatch struct {
	Owner    *oracle.TypeDescriptor
	Method   oracle.MethodDescriptor
	ArgTypes []decl.TypeRef
	Strategy Strategy
}

type level int

const (
	levelExact level = iota
	levelAssignable
	levelCoerced
	levelNone
)

type signature struct {
	params  []decl.TypeRef
	varargs bool
}

// expand lines parameters up with n arguments, spreading a variadic tail.
func (s signature) expand(args []decl.TypeRef) ([]decl.TypeRef, bool) {
	n := len(args)
	if !s.varargs {
		return s.params, len(s.params) == n
	}
	fixed := len(s.params) - 1
	if n < fixed {
		return nil, false
	}
	if n == len(s.params) && (args[n-1].IsArray() || args[n-1].Name == "null") {
		return s.params, true
	}
	out := make([]decl.TypeRef, 0, n)
	out = append(out, s.params[:fixed]...)
	component := s.params[fixed].Component()
	for len(out) < n {
		out = append(out, component)
	}
	return out, true
}

// match runs the two passes over sigs. Pass one accepts identity and
// assignability, preferring signatures matched by identity alone; pass two
// admits primitive/boxed coercion and rewrites the coerced argument types.
// Earlier signatures win ties.
func (r *Resolver) match(sigs []signature, args []decl.TypeRef) (int, []decl.TypeRef, level) {
	best, bestLevel := -1, levelNone
	var bestArgs []decl.TypeRef
	for i, s := range sigs {
		params, ok := s.expand(args)
		if !ok {
			continue
		}
		out := append([]decl.TypeRef(nil), args...)
		worst := levelExact
		for j := range args {
			l, coerced := r.compare(args[j], params[j])
			if l == levelNone {
				worst = levelNone
				break
			}
			if l == levelCoerced {
				out[j] = coerced
			}
			worst = max(worst, l)
		}
		if worst < bestLevel {
			best, bestLevel, bestArgs = i, worst, out
		}
	}
	return best, bestArgs, bestLevel
}

func (r *Resolver) compare(arg, param decl.TypeRef) (level, decl.TypeRef) {
	if arg.IsZero() || param.IsZero() {
		return levelAssignable, arg
	}
	if arg.Name == param.Name && arg.Dims == param.Dims {
		return levelExact, arg
	}
	if r.Assignable(arg, param) {
		return levelAssignable, arg
	}
	if boxed, ok := Box(arg); ok {
		if boxed.Name == param.Name || r.Assignable(boxed, param) {
			return levelCoerced, param
		}
	}
	if param.IsPrimitive() {
		if prim, ok := Unbox(arg); ok && (prim.Name == param.Name || widens(prim.Name, param.Name)) {
			return levelCoerced, param
		}
	}
	return levelNone, arg
}

func strategyOf(l level) Strategy {
	if l == levelCoerced {
		return StrategyCoerced
	}
	return StrategyDeclared
}

// MatchCallable picks the candidate best matching the argument types.
// Argument types must be qualified; a zero type matches any parameter.
func (r *Resolver) MatchCallable(candidates []*decl.MethodDecl, args []decl.TypeRef) (CallMatch, bool) {
	sigs := make([]signature, len(candidates))
	for i, m := range candidates {
		sigs[i] = r.signatureOf(m)
	}
	i, coerced, l := r.match(sigs, args)
	if i < 0 {
		return CallMatch{}, false
	}
	return CallMatch{Callable: candidates[i], ArgTypes: coerced, Strategy: strategyOf(l)}, true
}

func (r *Resolver) signatureOf(m *decl.MethodDecl) signature {
	ctx := In(m)
	s := signature{params: make([]decl.TypeRef, len(m.Params))}
	for i, p := range m.Params {
		s.params[i] = r.Qualify(ctx, p.Type)
		if p.Varargs {
			s.varargs = true
		}
	}
	return s
}

type externalMethod struct {
	owner  *oracle.TypeDescriptor
	method oracle.MethodDescriptor
}

// externalMethods collects the methods called name on td and its external
// supertypes, nearest first. Constructors are never inherited.
func (r *Resolver) externalMethods(td *oracle.TypeDescriptor, name string) []externalMethod {
	var out []externalMethod
	if name == decl.ConstructorName {
		for _, m := range td.Constructors {
			out = append(out, externalMethod{td, m})
		}
		return out
	}
	for _, h := range r.Hierarchy(td.Name) {
		if h.External == nil {
			continue
		}
		for _, m := range h.External.MethodsByName(name) {
			out = append(out, externalMethod{h.External, m})
		}
	}
	return out
}

// MatchExternal matches a call on an external type.
func (r *Resolver) MatchExternal(td *oracle.TypeDescriptor, name string, args []decl.TypeRef) (ExternalMatch, bool) {
	methods := r.externalMethods(td, name)
	sigs := make([]signature, len(methods))
	for i, em := range methods {
		params := em.method.ParamTypes()
		s := signature{params: make([]decl.TypeRef, len(params)), varargs: em.method.Varargs()}
		for j, p := range params {
			s.params[j] = r.QualifyExternal(em.owner, p)
		}
		sigs[i] = s
	}
	i, coerced, l := r.match(sigs, args)
	if i < 0 {
		return ExternalMatch{}, false
	}
	return ExternalMatch{
		Owner:    methods[i].owner,
		Method:   methods[i].method,
		ArgTypes: coerced,
		Strategy: strategyOf(l),
	}, true
}

// Callables returns the callables called name visible on t: its own first,
// then those inherited from in-corpus supertypes. Constructors are never
// inherited.
func (r *Resolver) Callables(t *decl.TypeDecl, name string) []*decl.MethodDecl {
	if name == decl.ConstructorName {
		return t.Constructors
	}
	var out []*decl.MethodDecl
	for _, h := range r.Hierarchy(t.FQN()) {
		if h.Type != nil {
			out = append(out, h.Type.MethodsByName(name)...)
		}
	}
	return out
}

// FindField finds a field declared by t or an in-corpus supertype.
func (r *Resolver) FindField(t *decl.TypeDecl, name string) *decl.FieldDecl {
	if f := t.FieldByName(name); f != nil {
		return f
	}
	for _, h := range r.Hierarchy(t.FQN()) {
		if h.Type == nil {
			continue
		}
		if f := h.Type.FieldByName(name); f != nil {
			return f
		}
	}
	return nil
}

// ExternalField finds a field of td or its external supertypes.
func (r *Resolver) ExternalField(td *oracle.TypeDescriptor, name string) (oracle.FieldDescriptor, *oracle.TypeDescriptor, bool) {
	for _, h := range r.Hierarchy(td.Name) {
		if h.External == nil {
			continue
		}
		if f, ok := h.External.Field(name); ok {
			return f, h.External, true
		}
	}
	return oracle.FieldDescriptor{}, nil, false
}

// FindOverride finds the concrete implementation of m visible from the
// receiver type, searching the receiver before its supertypes.
func (r *Resolver) FindOverride(receiver *decl.TypeDecl, m *decl.MethodDecl) *decl.MethodDecl {
	want := m.Signature()
	for _, h := range r.Hierarchy(receiver.FQN()) {
		if h.Type == nil || h.Type == m.Owner {
			continue
		}
		for _, c := range h.Type.MethodsByName(m.Name) {
			if c != m && !c.IsAbstract() && c.Signature() == want {
				return c
			}
		}
	}
	return nil
}

// Overridden returns the in-corpus declarations m overrides or implements.
func (r *Resolver) Overridden(m *decl.MethodDecl) []*decl.MethodDecl {
	if m.Constructor || m.Owner == nil {
		return nil
	}
	want := m.Signature()
	var out []*decl.MethodDecl
	for _, h := range r.Hierarchy(m.Owner.FQN()) {
		if h.Type == nil || h.Type == m.Owner {
			continue
		}
		for _, c := range h.Type.MethodsByName(m.Name) {
			if c.Signature() == want {
				out = append(out, c)
			}
		}
	}
	return out
}

// ReturnType returns the qualified return type of m as seen on receiver,
// with the receiver's type arguments substituted for the owner's variables.
func (r *Resolver) ReturnType(m *decl.MethodDecl, receiver decl.TypeRef) decl.TypeRef {
	ref := m.ReturnType
	if ref.IsZero() || ref.Name == "void" {
		return decl.TypeRef{}
	}
	if !receiver.IsZero() && m.Owner != nil && len(m.Owner.TypeParams) > 0 {
		ref = Bind(ref, m.Owner.TypeParams, r.TypeArgsFor(receiver, m.Owner.FQN()))
	}
	return r.Qualify(In(m), ref)
}

// FieldType returns the qualified declared type of f as seen on receiver.
func (r *Resolver) FieldType(f *decl.FieldDecl, receiver decl.TypeRef) decl.TypeRef {
	ref := f.Type
	if !receiver.IsZero() && len(f.Owner.TypeParams) > 0 {
		ref = Bind(ref, f.Owner.TypeParams, r.TypeArgsFor(receiver, f.Owner.FQN()))
	}
	return r.Qualify(In(f), ref)
}

// ExternalReturnType returns the qualified return type of an external match
// as seen on receiver.
func (r *Resolver) ExternalReturnType(em ExternalMatch, receiver decl.TypeRef) decl.TypeRef {
	ref := em.Method.ReturnType()
	if ref.IsZero() || ref.Name == "void" {
		return decl.TypeRef{}
	}
	if !receiver.IsZero() && len(em.Owner.TypeParams) > 0 {
		if args := r.TypeArgsFor(receiver, em.Owner.Name); len(args) > 0 {
			return r.qualifyBound(em.Owner, ref, args)
		}
	}
	return r.QualifyExternal(em.Owner, ref)
}

// ExternalFieldType returns the qualified type of an external field.
func (r *Resolver) ExternalFieldType(owner *oracle.TypeDescriptor, f oracle.FieldDescriptor) decl.TypeRef {
	return r.QualifyExternal(owner, decl.ParseType(f.Type))
}

// qualifyBound qualifies ref inside td, substituting td's type variables
// with already-qualified args.
func (r *Resolver) qualifyBound(td *oracle.TypeDescriptor, ref decl.TypeRef, args []decl.TypeRef) decl.TypeRef {
	for i, p := range td.TypeParams {
		if p == ref.Name && i < len(args) && len(ref.Args) == 0 {
			out := args[i]
			out.Dims += ref.Dims
			return out
		}
	}
	out := r.QualifyExternal(td, decl.TypeRef{Name: ref.Name, Dims: ref.Dims})
	for _, a := range ref.Args {
		out.Args = append(out.Args, r.qualifyBound(td, a, args))
	}
	return out
}
