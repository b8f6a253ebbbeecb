package depsolver

import (
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/resolve"
)

// value is what evaluating an expression tells the caller: its inferred
// type, whether it named a type rather than a value, and the node of the
// declaration it finally reached.
type value struct {
	typ    decl.TypeRef
	isType bool
	node   *Node
}

var (
	booleanType = decl.TypeRef{Name: "boolean"}
	intType     = decl.TypeRef{Name: "int"}
	stringType  = decl.TypeRef{Name: "java.lang.String"}
)

// ResolveChain resolves a (possibly dotted) expression used inside n and
// returns the node of the declaration its last link denotes. Every
// declaration along the way is registered. A link that resolves to nothing
// ends the chain and yields nil.
func (s *Solver) ResolveChain(n *Node, e *decl.Expr) *Node {
	return s.eval(n, e).node
}

func (s *Solver) evalAll(n *Node, es []*decl.Expr) []decl.TypeRef {
	out := make([]decl.TypeRef, len(es))
	for i, e := range es {
		out[i] = s.eval(n, e).typ
	}
	return out
}

func (s *Solver) eval(n *Node, e *decl.Expr) value {
	if e == nil {
		return value{}
	}
	ctx := resolve.In(n.decl)
	switch e.Kind {
	case decl.ExprName:
		if e.Type != nil {
			return value{typ: s.typeUse(n, *e.Type), isType: true}
		}
		sym, ok := s.ResolveName(n, e.Name)
		if !ok {
			return value{}
		}
		return value{typ: sym.Type, isType: sym.Kind == SymbolType, node: sym.Node}

	case decl.ExprThis:
		return value{typ: decl.TypeRef{Name: n.Enclosing().FQN()}}

	case decl.ExprSuper:
		return value{typ: s.superclass(n.Enclosing())}

	case decl.ExprFieldAccess:
		return s.fieldAccess(n, e)

	case decl.ExprMethodCall:
		return s.call(n, e)

	case decl.ExprObjectCreate:
		return s.create(n, e)

	case decl.ExprLiteral:
		if e.Type == nil {
			return value{}
		}
		return value{typ: s.resolver.Qualify(ctx, *e.Type)}

	case decl.ExprConditional:
		// Both branches are evaluated, so whatever either one reaches is in
		// the closure. Overload matching needs one type; the first non-null
		// branch type stands for the union.
		vs := s.evalAll(n, e.Args)
		for _, t := range vs[min(1, len(vs)):] {
			if !t.IsZero() && t.Name != "null" {
				return value{typ: t}
			}
		}
		return value{}

	case decl.ExprArrayAccess:
		arr := s.eval(n, e.Scope)
		s.evalAll(n, e.Args)
		if !arr.typ.IsArray() {
			return value{}
		}
		return value{typ: arr.typ.Component()}

	case decl.ExprMethodRef:
		s.methodRef(n, e)
		return value{}

	case decl.ExprClassLiteral:
		if e.Type == nil {
			return value{}
		}
		t := s.typeUse(n, *e.Type)
		if boxed, ok := resolve.Box(t); ok {
			t = boxed
		}
		return value{typ: decl.TypeRef{Name: "java.lang.Class", Args: []decl.TypeRef{t}}}

	case decl.ExprCast:
		s.evalAll(n, e.Args)
		if e.Type == nil {
			return value{}
		}
		return value{typ: s.typeUse(n, *e.Type)}

	case decl.ExprInstanceOf:
		s.evalAll(n, e.Args)
		if e.Type != nil {
			s.typeUse(n, *e.Type)
		}
		return value{typ: booleanType}

	case decl.ExprBinary:
		vs := s.evalAll(n, e.Args)
		if len(vs) != 2 {
			return value{}
		}
		return value{typ: binaryType(e.Name, vs[0], vs[1])}

	case decl.ExprUnary:
		vs := s.evalAll(n, e.Args)
		if e.Name == "!" {
			return value{typ: booleanType}
		}
		if len(vs) == 1 {
			return value{typ: vs[0]}
		}
		return value{}

	case decl.ExprAssign:
		vs := s.evalAll(n, e.Args)
		if len(vs) > 0 {
			return value{typ: vs[0]}
		}
		return value{}

	case decl.ExprLambda:
		s.statements(n, e.Body)
		return value{}

	case decl.ExprAnnotation:
		s.typeUse(n, decl.TypeRef{Name: e.Name})
		for _, p := range e.Pairs {
			s.eval(n, p.Value)
		}
		return value{}

	case decl.ExprArrayCreation:
		s.evalAll(n, e.Args)
		if e.Type == nil {
			return value{}
		}
		return value{typ: s.typeUse(n, *e.Type)}

	case decl.ExprSwitch:
		s.evalAll(n, e.Args)
		s.statements(n, e.Body)
		return value{}
	}

	for _, c := range e.Children() {
		s.eval(n, c)
	}
	s.statements(n, e.Body)
	return value{}
}

// superclass returns the qualified direct superclass of t.
func (s *Solver) superclass(t *decl.TypeDecl) decl.TypeRef {
	refs := s.resolver.SupertypeRefs(t)
	switch {
	case t.Kind == decl.KindClass && len(t.Extends) > 0 && len(refs) > 0:
		return refs[0]
	case t.Kind == decl.KindEnum:
		return decl.TypeRef{Name: "java.lang.Enum", Args: []decl.TypeRef{{Name: t.FQN()}}}
	case t.Kind == decl.KindRecord:
		return decl.TypeRef{Name: "java.lang.Record"}
	}
	return decl.TypeRef{Name: "java.lang.Object"}
}

var numericRank = map[string]int{"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6}

func binaryType(op string, l, r decl.TypeRef) decl.TypeRef {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return booleanType
	case "+":
		if l.Name == stringType.Name && l.Dims == 0 || r.Name == stringType.Name && r.Dims == 0 {
			return stringType
		}
	case "<<", ">>", ">>>":
		return promote(l, intType)
	}
	if l.Name == "boolean" || r.Name == "boolean" {
		return booleanType
	}
	return promote(l, r)
}

// promote applies binary numeric promotion. Unknown operands yield zero.
func promote(l, r decl.TypeRef) decl.TypeRef {
	if p, ok := resolve.Unbox(l); ok {
		l = p
	}
	if p, ok := resolve.Unbox(r); ok {
		r = p
	}
	lr, lok := numericRank[l.Name]
	rr, rok := numericRank[r.Name]
	if !lok || !rok || l.Dims > 0 || r.Dims > 0 {
		return decl.TypeRef{}
	}
	switch {
	case max(lr, rr) <= numericRank["int"]:
		return intType
	case lr >= rr:
		return l
	}
	return r
}

// fieldAccess resolves scope.name: a field of a source or external type,
// a nested type, or the length of an array. A scope that resolves to
// nothing may be the leading part of a qualified type name.
func (s *Solver) fieldAccess(n *Node, e *decl.Expr) value {
	if dotted, ok := dottedName(e); ok && !s.isValueName(n, dotted) {
		if b := s.resolver.ResolveType(resolve.In(n.decl), dotted); b != nil && b.IsType() {
			s.use(n, n.stub, b)
			return value{typ: decl.TypeRef{Name: b.FQN}, isType: true, node: s.typeNode(b)}
		}
	}
	recv := s.eval(n, e.Scope)
	if recv.typ.IsZero() {
		s.logger.Debug("unresolved field receiver", "field", e.Name, "from", n.Handle())
		return value{}
	}
	if recv.typ.IsArray() {
		if e.Name == "length" {
			return value{typ: intType}
		}
		return value{}
	}
	if t := s.resolver.SourceType(recv.typ.Name); t != nil {
		if f := s.resolver.FindField(t, e.Name); f != nil {
			return value{typ: s.resolver.FieldType(f, recv.typ), node: s.registry.CreateNode(f)}
		}
		if typ, ok := s.inheritedExternalField(t, e.Name); ok {
			return value{typ: typ}
		}
	} else if td, ok := s.resolver.External(recv.typ.Name); ok {
		if f, owner, ok := s.resolver.ExternalField(td, e.Name); ok {
			s.external[owner.Name] = true
			return value{typ: s.resolver.ExternalFieldType(owner, f)}
		}
	}
	if recv.isType {
		if b := s.resolver.ResolveType(resolve.In(n.decl), recv.typ.Name+"."+e.Name); b != nil && b.IsType() {
			s.use(n, n.stub, b)
			return value{typ: decl.TypeRef{Name: b.FQN}, isType: true, node: s.typeNode(b)}
		}
	}
	s.logger.Debug("unresolved field", "field", e.Name, "receiver", recv.typ.String(), "from", n.Handle())
	return value{}
}

func (s *Solver) typeNode(b *resolve.ImportBinding) *Node {
	if b.Type == nil {
		return nil
	}
	node, _ := s.registry.Get(b.Type.Handle())
	return node
}

// dottedName renders a chain of names and field accesses such as
// java.util.List, reporting false for anything else.
func dottedName(e *decl.Expr) (string, bool) {
	var parts []string
	for cur := e; cur != nil; cur = cur.Scope {
		switch cur.Kind {
		case decl.ExprFieldAccess:
			parts = append(parts, cur.Name)
		case decl.ExprName:
			if cur.Type != nil {
				return "", false
			}
			parts = append(parts, cur.Name)
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return strings.Join(parts, "."), true
		default:
			return "", false
		}
	}
	return "", false
}

// isValueName reports whether the first segment of a dotted name is a
// local or a field visible from n, which shadows any package of that name.
func (s *Solver) isValueName(n *Node, dotted string) bool {
	first, _, _ := strings.Cut(dotted, ".")
	if _, ok := s.locals[first]; ok {
		return true
	}
	for t := n.Enclosing(); t != nil; t = t.Outer {
		if s.resolver.FindField(t, first) != nil {
			return true
		}
	}
	// only lower-case leading segments can be package names
	return first == "" || first[0] < 'a' || first[0] > 'z'
}

// call resolves a method call. Arguments are inferred first; the callee is
// then matched on the receiver's declared methods, on external
// supertypes, by getter inference, through static imports and finally by
// name and arity alone.
func (s *Solver) call(n *Node, e *decl.Expr) value {
	args := s.evalAll(n, e.Args)
	implicit := e.Scope == nil

	var receivers []decl.TypeRef
	switch {
	case e.Name == decl.ConstructorName:
		t := n.Enclosing()
		if e.Scope != nil && e.Scope.Kind == decl.ExprSuper {
			receivers = append(receivers, s.superclass(t))
		} else {
			receivers = append(receivers, decl.TypeRef{Name: t.FQN()})
		}
		implicit = false
	case implicit:
		for t := n.Enclosing(); t != nil; t = t.Outer {
			receivers = append(receivers, decl.TypeRef{Name: t.FQN()})
		}
	default:
		recv := s.eval(n, e.Scope)
		if recv.typ.IsZero() {
			s.logger.Debug("unresolved call receiver", "call", e.Name, "from", n.Handle())
			return value{}
		}
		receivers = append(receivers, recv.typ)
	}

	for _, recv := range receivers {
		if v, ok := s.callOn(n, e, recv, args); ok {
			return v
		}
	}
	if implicit {
		if v, ok := s.staticImportCall(n, e, args); ok {
			return v
		}
	}
	return s.arityOnly(n, e, receivers, args)
}

// callOn matches e against one receiver type. It reports false when the
// receiver offers nothing for the call.
func (s *Solver) callOn(n *Node, e *decl.Expr, recv decl.TypeRef, args []decl.TypeRef) (value, bool) {
	if recv.IsArray() {
		if e.Name == "clone" {
			return value{typ: recv}, true
		}
		recv = decl.TypeRef{Name: "java.lang.Object"}
	}
	if recv.IsPrimitive() {
		return value{}, false
	}
	if t := s.resolver.SourceType(recv.Name); t != nil {
		if m, ok := s.resolver.MatchCallable(s.resolver.Callables(t, e.Name), args); ok {
			s.recordCoercion(n, e.Name, m)
			node := s.registerCall(t, m.Callable)
			return value{typ: s.resolver.ReturnType(m.Callable, recv), node: node}, true
		}
		if e.Name == decl.ConstructorName {
			return value{}, false
		}
		for _, h := range s.resolver.Hierarchy(t.FQN()) {
			if h.External == nil {
				continue
			}
			if em, ok := s.resolver.MatchExternal(h.External, e.Name, args); ok {
				s.external[em.Owner.Name] = true
				return value{typ: s.resolver.ExternalReturnType(em, recv)}, true
			}
		}
		return s.getter(n, e, t, recv, args)
	}
	if td, ok := s.resolver.External(recv.Name); ok {
		if em, ok := s.resolver.MatchExternal(td, e.Name, args); ok {
			s.external[em.Owner.Name] = true
			return value{typ: s.resolver.ExternalReturnType(em, recv)}, true
		}
	}
	return value{}, false
}

// registerCall registers the chosen callable. An abstract method of a
// class also pulls in the concrete override visible from the receiver.
func (s *Solver) registerCall(receiver *decl.TypeDecl, m *decl.MethodDecl) *Node {
	node := s.registry.CreateNode(m)
	if m.IsAbstract() && m.Owner != nil && !m.Owner.IsInterface() {
		if o := s.resolver.FindOverride(receiver, m); o != nil {
			s.registry.CreateNode(o)
		}
	}
	return node
}

// getter maps getFoo() to the field foo when the field's type carries a
// getter-generation marker. The accessor itself is assumed, not checked.
func (s *Solver) getter(n *Node, e *decl.Expr, t *decl.TypeDecl, recv decl.TypeRef, args []decl.TypeRef) (value, bool) {
	suffix, ok := strings.CutPrefix(e.Name, "get")
	if !ok || suffix == "" || len(args) != 0 {
		return value{}, false
	}
	f := s.resolver.FindField(t, lowerFirst(suffix))
	if f == nil || !s.hasGetter(f) {
		return value{}, false
	}
	node := s.registry.CreateNode(f)
	s.recordFallback(n, e.Name, resolve.StrategyGetterInference, []string{f.Handle()})
	return value{typ: s.resolver.FieldType(f, recv), node: node}, true
}

func (s *Solver) hasGetter(f *decl.FieldDecl) bool {
	for _, m := range s.markers {
		if f.Owner.HasAnnotation(m) {
			return true
		}
		if _, ok := decl.FindAnnotation(f.Annotations, m); ok {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// staticImportCall binds an unqualified call through a static import.
func (s *Solver) staticImportCall(n *Node, e *decl.Expr, args []decl.TypeRef) (value, bool) {
	b := s.resolver.FindImport(resolve.In(n.decl).CompilationUnit(), e.Name)
	if b == nil || b.Member == "" {
		return value{}, false
	}
	switch {
	case len(b.Methods) > 0:
		targets := b.Methods
		if m, ok := s.resolver.MatchCallable(b.Methods, args); ok {
			s.recordCoercion(n, e.Name, m)
			targets = []*decl.MethodDecl{m.Callable}
		}
		var handles []string
		var first *Node
		for _, m := range targets {
			node := s.registry.CreateNode(m)
			if first == nil {
				first = node
			}
			handles = append(handles, m.Handle())
		}
		s.importFor(n.stub, b)
		s.recordFallback(n, e.Name, resolve.StrategyStaticImport, handles)
		return value{typ: s.resolver.ReturnType(targets[0], decl.TypeRef{}), node: first}, true
	case b.External != nil:
		em, ok := s.resolver.MatchExternal(b.External, e.Name, args)
		if !ok {
			return value{}, false
		}
		s.external[em.Owner.Name] = true
		s.importFor(n.stub, b)
		s.recordFallback(n, e.Name, resolve.StrategyStaticImport, []string{b.FQN + "#" + e.Name})
		return value{typ: s.resolver.ExternalReturnType(em, decl.TypeRef{})}, true
	}
	return value{}, false
}

// arityOnly registers every in-corpus callable of the receivers with the
// call's name and argument count. It is the last resort when no signature
// matched, usually because an argument type could not be inferred.
func (s *Solver) arityOnly(n *Node, e *decl.Expr, receivers []decl.TypeRef, args []decl.TypeRef) value {
	var (
		handles []string
		first   *decl.MethodDecl
		recv    decl.TypeRef
		node    *Node
	)
	for _, r := range receivers {
		t := s.resolver.SourceType(r.Name)
		if t == nil {
			continue
		}
		for _, m := range s.resolver.Callables(t, e.Name) {
			if !arityFits(m, len(args)) {
				continue
			}
			nd := s.registerCall(t, m)
			if first == nil {
				first, recv, node = m, r, nd
			}
			handles = append(handles, m.Handle())
		}
		if first != nil {
			break
		}
	}
	if first == nil {
		s.logger.Debug("unresolved call", "call", e.Name, "args", len(args), "from", n.Handle())
		return value{}
	}
	s.recordFallback(n, e.Name, resolve.StrategyArityOnly, handles)
	return value{typ: s.resolver.ReturnType(first, recv), node: node}
}

func arityFits(m *decl.MethodDecl, n int) bool {
	if len(m.Params) > 0 && m.Params[len(m.Params)-1].Varargs {
		return n >= len(m.Params)-1
	}
	return len(m.Params) == n
}

// create resolves an object creation: the created type, the matching
// constructor and the members of an anonymous body.
func (s *Solver) create(n *Node, e *decl.Expr) value {
	if e.Scope != nil {
		s.eval(n, e.Scope)
	}
	args := s.evalAll(n, e.Args)
	if e.Type == nil {
		return value{}
	}
	typ := s.typeUse(n, *e.Type)
	var node *Node
	if t := s.resolver.SourceType(typ.Name); t != nil && len(t.Constructors) > 0 {
		if m, ok := s.resolver.MatchCallable(t.Constructors, args); ok {
			s.recordCoercion(n, typ.Name, m)
			node = s.registry.CreateNode(m.Callable)
		} else {
			node = s.arityOnly(n, &decl.Expr{Kind: decl.ExprMethodCall, Name: decl.ConstructorName}, []decl.TypeRef{typ}, args).node
		}
	}
	s.statements(n, e.Body)
	return value{typ: typ, node: node}
}

// methodRef registers what Type::name, expr::name or Type::new refers to.
// Every overload of the name is taken since the target signature is not
// inferred.
func (s *Solver) methodRef(n *Node, e *decl.Expr) {
	recv := s.eval(n, e.Scope)
	if recv.typ.IsZero() || recv.typ.IsPrimitive() {
		return
	}
	name := e.Name
	if name == "new" {
		name = decl.ConstructorName
	}
	t := s.resolver.SourceType(recv.typ.Name)
	if t == nil {
		if td, ok := s.resolver.External(recv.typ.Name); ok {
			s.external[td.Name] = true
		}
		return
	}
	for _, m := range s.resolver.Callables(t, name) {
		s.registerCall(t, m)
	}
}
