package resolve

import (
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/oracle"
)

// ImportBinding is what a simple name denotes after import resolution.
//
// A resolved binding sets exactly one of Type, Field, Methods or External.
// Member is non-empty when the binding came from a static import and names
// a field, methods or a member of an external type. A binding with none of
// them set is dangling: an explicit import whose target neither the corpus
// nor the oracle knows.
type ImportBinding struct {
	// Import is the declaration that brought the name into scope; zero for
	// same-package, nested and java.lang names.
	Import   decl.Import
	FQN      string // the bound type, or the owner of a static member
	Member   string
	Type     *decl.TypeDecl
	Field    *decl.FieldDecl
	Methods  []*decl.MethodDecl
	External *oracle.TypeDescriptor
}

// IsExternal reports whether the binding needs no further traversal.
func (b *ImportBinding) IsExternal() bool {
	return b != nil && b.External != nil
}

// IsType reports whether the binding denotes a type rather than a member.
func (b *ImportBinding) IsType() bool {
	return b != nil && b.Member == "" && (b.Type != nil || b.External != nil)
}

// Dangling reports whether the binding names nothing known.
func (b *ImportBinding) Dangling() bool {
	return b != nil && b.Type == nil && b.Field == nil && len(b.Methods) == 0 && b.External == nil
}

// HasImport reports whether the binding came from an import declaration.
func (b *ImportBinding) HasImport() bool {
	return b != nil && b.Import.Name != ""
}

// FindImport resolves name against the imports of cu. Single-type and
// static single imports are tried before on-demand imports. A dotted name
// such as "Map.Entry" binds its first segment and walks nested types.
func (r *Resolver) FindImport(cu *decl.CompilationUnit, name string) *ImportBinding {
	if cu == nil || name == "" {
		return nil
	}
	first, rest, _ := strings.Cut(name, ".")

	for _, imp := range cu.Imports {
		if imp.Asterisk || imp.SimpleName() != first {
			continue
		}
		if imp.Static {
			if b := r.staticMember(imp, decl.PackageOf(imp.Name), first); b != nil {
				return r.within(b, rest)
			}
			continue
		}
		if b := r.bindType(imp.Name); b != nil {
			b.Import = imp
			return r.within(b, rest)
		}
		return &ImportBinding{Import: imp, FQN: imp.Name}
	}

	for _, imp := range cu.Imports {
		if !imp.Asterisk {
			continue
		}
		var b *ImportBinding
		if imp.Static {
			b = r.staticMember(imp, imp.Name, first)
		} else {
			b = r.onDemand(imp, first)
		}
		if b != nil {
			return r.within(b, rest)
		}
	}
	return nil
}

// staticMember binds member of the type owner through a static import.
func (r *Resolver) staticMember(imp decl.Import, owner, member string) *ImportBinding {
	if t := r.SourceType(owner); t != nil {
		if f := r.FindField(t, member); f != nil {
			return &ImportBinding{Import: imp, FQN: owner, Member: member, Field: f}
		}
		if ms := r.Callables(t, member); len(ms) > 0 {
			return &ImportBinding{Import: imp, FQN: owner, Member: member, Methods: ms}
		}
		if n := t.NestedType(member); n != nil {
			return &ImportBinding{Import: imp, FQN: n.FQN(), Type: n}
		}
		return nil
	}
	if td, ok := r.External(owner); ok {
		if _, _, ok := r.ExternalField(td, member); ok {
			return &ImportBinding{Import: imp, FQN: owner, Member: member, External: td}
		}
		if len(r.externalMethods(td, member)) > 0 {
			return &ImportBinding{Import: imp, FQN: owner, Member: member, External: td}
		}
		if nested, ok := r.External(owner + "." + member); ok {
			return &ImportBinding{Import: imp, FQN: nested.Name, External: nested}
		}
	}
	return nil
}

// onDemand binds name through "import p.*". Every unit of an in-corpus
// package is a candidate; "import p.Outer.*" reaches nested types.
func (r *Resolver) onDemand(imp decl.Import, name string) *ImportBinding {
	units, err := r.source.Package(imp.Name)
	if err != nil {
		r.logger.Debug("package listing incomplete", "package", imp.Name, "error", err)
	}
	for _, u := range units {
		for _, t := range u.Types {
			if t.Name == name {
				return &ImportBinding{Import: imp, FQN: t.FQN(), Type: t}
			}
		}
	}
	if b := r.bindType(imp.Name + "." + name); b != nil {
		b.Import = imp
		return b
	}
	return nil
}

// within descends from a type binding into nested types named by rest.
func (r *Resolver) within(b *ImportBinding, rest string) *ImportBinding {
	if rest == "" {
		return b
	}
	if !b.IsType() {
		return nil
	}
	imp := b.Import
	for _, seg := range strings.Split(rest, ".") {
		switch {
		case b.Type != nil:
			n := r.memberType(b.Type, seg)
			if n == nil {
				return nil
			}
			b = &ImportBinding{FQN: n.FQN(), Type: n}
		case b.External != nil:
			td, ok := r.External(b.FQN + "." + seg)
			if !ok {
				return nil
			}
			b = &ImportBinding{FQN: td.Name, External: td}
		default:
			return nil
		}
	}
	b.Import = imp
	return b
}

// memberType finds a nested type declared by t or inherited from its
// in-corpus supertypes.
func (r *Resolver) memberType(t *decl.TypeDecl, name string) *decl.TypeDecl {
	for _, h := range r.Hierarchy(t.FQN()) {
		if h.Type == nil {
			continue
		}
		if n := h.Type.NestedType(name); n != nil {
			return n
		}
	}
	return nil
}

// ResolveType resolves a type name written in ctx. The search order is
// enclosing and nested types, types of the same unit, imports, the same
// package, the name taken as fully qualified, and finally java.lang.
// Type variables and primitives resolve to nil.
func (r *Resolver) ResolveType(ctx Context, name string) *ImportBinding {
	if name == "" || decl.IsPrimitive(name) || ctx.IsTypeParam(name) {
		return nil
	}
	first, rest, _ := strings.Cut(name, ".")
	if rest != "" && isLower(first) {
		if b := r.bindType(name); b != nil {
			return b
		}
	}

	for cur := ctx.Type; cur != nil; cur = cur.Outer {
		if cur.Name == first {
			return r.within(&ImportBinding{FQN: cur.FQN(), Type: cur}, rest)
		}
		if n := r.memberType(cur, first); n != nil {
			return r.within(&ImportBinding{FQN: n.FQN(), Type: n}, rest)
		}
	}

	cu := ctx.CompilationUnit()
	if cu != nil {
		for _, t := range cu.Types {
			if t.Name == first {
				return r.within(&ImportBinding{FQN: t.FQN(), Type: t}, rest)
			}
		}
	}

	if b := r.FindImport(cu, name); b != nil && (b.IsType() || b.Dangling()) {
		return b
	}

	if cu != nil && cu.Package != "" {
		if b := r.bindType(cu.Package + "." + first); b != nil {
			return r.within(b, rest)
		}
	}
	if rest != "" {
		if b := r.bindType(name); b != nil {
			return b
		}
	}
	if b := r.bindType("java.lang." + first); b != nil {
		return r.within(b, rest)
	}
	return nil
}

// Qualify rewrites a type reference written in ctx to fully qualified
// names, recursively through generic arguments. Type variables become
// Object; names nothing knows are left as written.
func (r *Resolver) Qualify(ctx Context, ref decl.TypeRef) decl.TypeRef {
	if ref.IsZero() || decl.IsPrimitive(ref.Name) || ref.Name == "null" {
		return ref
	}
	out := decl.TypeRef{Name: ref.Name, Dims: ref.Dims}
	if ctx.IsTypeParam(ref.Name) {
		out.Name = objectFQN
	} else if b := r.ResolveType(ctx, ref.Name); b != nil {
		out.Name = b.FQN
	}
	for _, a := range ref.Args {
		out.Args = append(out.Args, r.Qualify(ctx, a))
	}
	return out
}

// siblingPackages are searched for unqualified names inside descriptors.
var siblingPackages = []string{"java.lang", "java.util", "java.util.function", "java.util.stream", "java.io"}

// QualifyExternal rewrites a type written inside a descriptor. Names are
// looked up in the descriptor's package, as nested types of the
// descriptor, then in the core JDK packages.
func (r *Resolver) QualifyExternal(td *oracle.TypeDescriptor, ref decl.TypeRef) decl.TypeRef {
	if ref.IsZero() || decl.IsPrimitive(ref.Name) {
		return ref
	}
	out := decl.TypeRef{Name: ref.Name, Dims: ref.Dims}
	switch {
	case td.IsTypeParam(ref.Name):
		out.Name = objectFQN
	case strings.Contains(ref.Name, ".") && r.Known(ref.Name):
	default:
		for _, candidate := range externalCandidates(td, ref.Name) {
			if r.Known(candidate) {
				out.Name = candidate
				break
			}
		}
	}
	for _, a := range ref.Args {
		out.Args = append(out.Args, r.QualifyExternal(td, a))
	}
	return out
}

func externalCandidates(td *oracle.TypeDescriptor, name string) []string {
	out := []string{td.Package() + "." + name, td.Name + "." + name}
	for _, p := range siblingPackages {
		if p != td.Package() {
			out = append(out, p+"."+name)
		}
	}
	return out
}

func isLower(s string) bool {
	return s != "" && s[0] >= 'a' && s[0] <= 'z'
}
