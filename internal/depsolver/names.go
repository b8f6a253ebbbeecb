package depsolver

import (
	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/resolve"
)

// SymbolKind says what a resolved name denotes.
type SymbolKind string

const (
	SymbolLocal  SymbolKind = "local"
	SymbolField  SymbolKind = "field"
	SymbolStatic SymbolKind = "static_import"
	SymbolType   SymbolKind = "type"
)

// Symbol is what a bare name resolved to from inside a node.
type Symbol struct {
	Kind SymbolKind
	Name string
	// Type is the value type for locals and fields, and the named type
	// itself for type symbols. Zero when unknown.
	Type decl.TypeRef
	// Node is the declaration registered for the name, nil for locals
	// and external symbols.
	Node     *Node
	External bool
}

// ResolveName resolves a bare name used inside n. Locals win over fields
// of the enclosing and outer types, which win over statically imported
// fields, which win over type names. Whatever the name denotes is
// registered or imported as a side effect.
func (s *Solver) ResolveName(n *Node, name string) (Symbol, bool) {
	if typ, ok := s.locals[name]; ok {
		return Symbol{Kind: SymbolLocal, Name: name, Type: typ}, true
	}
	for t := n.Enclosing(); t != nil; t = t.Outer {
		receiver := decl.TypeRef{Name: t.FQN()}
		if f := s.resolver.FindField(t, name); f != nil {
			return Symbol{
				Kind: SymbolField,
				Name: name,
				Type: s.resolver.FieldType(f, receiver),
				Node: s.registry.CreateNode(f),
			}, true
		}
		if typ, ok := s.inheritedExternalField(t, name); ok {
			return Symbol{Kind: SymbolField, Name: name, Type: typ, External: true}, true
		}
	}

	ctx := resolve.In(n.decl)
	if b := s.resolver.FindImport(ctx.CompilationUnit(), name); b != nil && b.Member != "" {
		switch {
		case b.Field != nil:
			s.use(n, n.stub, b)
			return Symbol{
				Kind: SymbolStatic,
				Name: name,
				Type: s.resolver.FieldType(b.Field, decl.TypeRef{}),
				Node: s.registry.CreateNode(b.Field),
			}, true
		case b.External != nil:
			if f, owner, ok := s.resolver.ExternalField(b.External, b.Member); ok {
				s.use(n, n.stub, b)
				return Symbol{
					Kind:     SymbolStatic,
					Name:     name,
					Type:     s.resolver.ExternalFieldType(owner, f),
					External: true,
				}, true
			}
		}
	}

	b := s.resolver.ResolveType(ctx, name)
	if b == nil {
		s.logger.Debug("unresolved name", "name", name, "from", n.Handle())
		return Symbol{}, false
	}
	s.use(n, n.stub, b)
	if b.Dangling() {
		return Symbol{}, false
	}
	sym := Symbol{Kind: SymbolType, Name: name, Type: decl.TypeRef{Name: b.FQN}, External: b.IsExternal()}
	if b.Type != nil {
		sym.Node, _ = s.registry.Get(b.Type.Handle())
	}
	return sym, true
}

// inheritedExternalField looks name up on the external supertypes of t.
func (s *Solver) inheritedExternalField(t *decl.TypeDecl, name string) (decl.TypeRef, bool) {
	for _, h := range s.resolver.Hierarchy(t.FQN()) {
		if h.External == nil {
			continue
		}
		if f, owner, ok := s.resolver.ExternalField(h.External, name); ok {
			s.external[owner.Name] = true
			return s.resolver.ExternalFieldType(owner, f), true
		}
	}
	return decl.TypeRef{}, false
}

// typeUse registers or imports every type named by ref, generic arguments
// included, and returns ref qualified. ref is read in the node's context.
func (s *Solver) typeUse(n *Node, ref decl.TypeRef) decl.TypeRef {
	return s.typeUseFor(n, n.stub, resolve.In(n.decl), ref)
}

func (s *Solver) typeUseFor(n *Node, stub *Stub, ctx resolve.Context, ref decl.TypeRef) decl.TypeRef {
	if ref.IsZero() {
		return ref
	}
	for _, a := range ref.Args {
		s.typeUseFor(n, stub, ctx, a)
	}
	if decl.IsPrimitive(ref.Name) || ref.Name == "null" || ctx.IsTypeParam(ref.Name) {
		return s.resolver.Qualify(ctx, ref)
	}
	if b := s.resolver.ResolveType(ctx, ref.Name); b != nil {
		s.use(n, stub, b)
	} else {
		s.logger.Debug("unresolved type", "name", ref.Name, "from", n.Handle())
	}
	return s.resolver.Qualify(ctx, ref)
}

// use applies register-or-import to a binding: in-corpus declarations
// become nodes, external types are only imported, and explicit imports of
// unknown types are reported missing. An unknown import outside the base
// package is external.
func (s *Solver) use(n *Node, stub *Stub, b *resolve.ImportBinding) {
	switch {
	case b.Dangling() && decl.InPackage(b.FQN, s.base):
		s.reportMissing(n, b.FQN)
		return
	case b.Dangling():
		s.external[b.FQN] = true
	case b.Field != nil:
		s.registry.CreateNode(b.Field)
	case len(b.Methods) > 0:
		for _, m := range b.Methods {
			s.registry.CreateNode(m)
		}
	case b.Type != nil:
		s.registry.CreateNode(b.Type)
	case b.External != nil:
		s.external[b.FQN] = true
	}
	s.importFor(stub, b)
}

// importFor adds the import line a binding needs in stub. Names bound
// without an import declaration (same unit, same package, java.lang,
// fully qualified) need none.
func (s *Solver) importFor(stub *Stub, b *resolve.ImportBinding) {
	if !b.HasImport() {
		return
	}
	switch {
	case b.Import.Static:
		stub.AddImport(b.Import)
	case b.Import.Asterisk:
		stub.AddImport(decl.Import{Name: b.FQN})
	default:
		stub.AddImport(b.Import)
	}
}
