// Package decl models the declarations of a parsed Java corpus: compilation
// units, types, fields and callables, together with the expression and
// statement forms that symbol resolution walks.
//
// Declarations are identified by stable handles rather than by structural
// equality. A handle is the enclosing type's fully qualified name for types,
// "Type#field" for fields and "Type#name(P1,P2)" for callables, with
// constructors named "<init>".
package decl

import "strings"

// DeclKind classifies a Declaration.
type DeclKind string

const (
	DeclType        DeclKind = "type"
	DeclField       DeclKind = "field"
	DeclMethod      DeclKind = "method"
	DeclConstructor DeclKind = "constructor"
)

// ConstructorName is the member name used in constructor handles.
const ConstructorName = "<init>"

// Declaration is a named type, field or callable drawn from the corpus.
type Declaration interface {
	// Handle is the stable identity of the declaration.
	Handle() string
	DeclKind() DeclKind
	SimpleName() string
	// Enclosing is the owning type; a type encloses itself.
	Enclosing() *TypeDecl
	CompilationUnit() *CompilationUnit
	Tags() []Annotation
}

// CompilationUnit is one parsed source file.
type CompilationUnit struct {
	Path    string
	Package string
	Imports []Import
	Types   []*TypeDecl
}

// PrimaryType returns the public top-level type, falling back to the type
// named after the file and finally the first declared type.
func (cu *CompilationUnit) PrimaryType() *TypeDecl {
	if cu == nil || len(cu.Types) == 0 {
		return nil
	}
	for _, t := range cu.Types {
		if t.Modifiers.Has(ModPublic) {
			return t
		}
	}
	base := cu.Path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".java")
	for _, t := range cu.Types {
		if t.Name == base {
			return t
		}
	}
	return cu.Types[0]
}

// FindType finds a top-level or nested type by (possibly dotted) simple name.
func (cu *CompilationUnit) FindType(name string) *TypeDecl {
	if cu == nil {
		return nil
	}
	parts := strings.Split(name, ".")
	for _, t := range cu.Types {
		if t.Name != parts[0] {
			continue
		}
		cur := t
		for _, p := range parts[1:] {
			cur = cur.NestedType(p)
			if cur == nil {
				break
			}
		}
		if cur != nil {
			return cur
		}
	}
	return nil
}

// AllTypes returns every type in the unit, nested types included, in source order.
func (cu *CompilationUnit) AllTypes() []*TypeDecl {
	var out []*TypeDecl
	var walk func(ts []*TypeDecl)
	walk = func(ts []*TypeDecl) {
		for _, t := range ts {
			out = append(out, t)
			walk(t.Nested)
		}
	}
	walk(cu.Types)
	return out
}

// TypeDecl is a class, interface, enum, record or annotation type.
type TypeDecl struct {
	Name         string
	Kind         TypeKind
	Modifiers    Modifiers
	TypeParams   []string
	Extends      []TypeRef
	Implements   []TypeRef
	Annotations  []Annotation
	Fields       []*FieldDecl
	Methods      []*MethodDecl
	Constructors []*MethodDecl
	Nested       []*TypeDecl
	Initializers []*Stmt // static and instance initializer blocks
	Outer        *TypeDecl
	File         *CompilationUnit
	Line         int
}

func (t *TypeDecl) Handle() string                    { return t.FQN() }
func (t *TypeDecl) DeclKind() DeclKind                { return DeclType }
func (t *TypeDecl) SimpleName() string                { return t.Name }
func (t *TypeDecl) Enclosing() *TypeDecl              { return t }
func (t *TypeDecl) CompilationUnit() *CompilationUnit { return t.File }
func (t *TypeDecl) Tags() []Annotation                { return t.Annotations }

// FQN returns the fully qualified name, with nested types joined by dots.
func (t *TypeDecl) FQN() string {
	if t.Outer != nil {
		return t.Outer.FQN() + "." + t.Name
	}
	if t.File != nil && t.File.Package != "" {
		return t.File.Package + "." + t.Name
	}
	return t.Name
}

// Package returns the package of the declaring compilation unit.
func (t *TypeDecl) Package() string {
	if t.File == nil {
		return ""
	}
	return t.File.Package
}

func (t *TypeDecl) IsInterface() bool {
	return t.Kind == KindInterface || t.Kind == KindAnnotation
}

// Supertypes returns extended then implemented types.
func (t *TypeDecl) Supertypes() []TypeRef {
	out := make([]TypeRef, 0, len(t.Extends)+len(t.Implements))
	out = append(out, t.Extends...)
	return append(out, t.Implements...)
}

// IsTypeParam reports whether name is a type variable of this type or an outer type.
func (t *TypeDecl) IsTypeParam(name string) bool {
	for cur := t; cur != nil; cur = cur.Outer {
		for _, p := range cur.TypeParams {
			if p == name {
				return true
			}
		}
	}
	return false
}

// FieldByName finds the field declaring a variable called name.
func (t *TypeDecl) FieldByName(name string) *FieldDecl {
	for _, f := range t.Fields {
		for _, n := range f.Names {
			if n == name {
				return f
			}
		}
	}
	return nil
}

// MethodsByName returns the methods called name in declaration order.
func (t *TypeDecl) MethodsByName(name string) []*MethodDecl {
	var out []*MethodDecl
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Callables returns constructors for ConstructorName, methods otherwise.
func (t *TypeDecl) Callables(name string) []*MethodDecl {
	if name == ConstructorName {
		return t.Constructors
	}
	return t.MethodsByName(name)
}

// NestedType returns the directly nested type called name.
func (t *TypeDecl) NestedType(name string) *TypeDecl {
	for _, n := range t.Nested {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// HasAnnotation reports whether the type carries an annotation with that simple name.
func (t *TypeDecl) HasAnnotation(name string) bool {
	_, ok := FindAnnotation(t.Annotations, name)
	return ok
}

// FieldDecl is a field declaration, possibly declaring several variables.
// Enum constants are modelled as static fields typed by their enum.
type FieldDecl struct {
	Names        []string
	Type         TypeRef
	Modifiers    Modifiers
	Annotations  []Annotation
	Initializers []*Expr // parallel to Names, nil entries when absent
	EnumConstant bool
	Owner        *TypeDecl
	Line         int
}

func (f *FieldDecl) Handle() string                    { return f.Owner.FQN() + "#" + f.SimpleName() }
func (f *FieldDecl) DeclKind() DeclKind                { return DeclField }
func (f *FieldDecl) Enclosing() *TypeDecl              { return f.Owner }
func (f *FieldDecl) CompilationUnit() *CompilationUnit { return f.Owner.File }
func (f *FieldDecl) Tags() []Annotation                { return f.Annotations }

func (f *FieldDecl) SimpleName() string {
	if len(f.Names) == 0 {
		return ""
	}
	return f.Names[0]
}

// Param is one formal parameter of a callable.
type Param struct {
	Name        string
	Type        TypeRef
	Varargs     bool
	Annotations []Annotation
}

// MethodDecl is a method or constructor.
type MethodDecl struct {
	Name        string
	Constructor bool
	TypeParams  []string
	Params      []Param
	ReturnType  TypeRef // zero for constructors
	Throws      []TypeRef
	Modifiers   Modifiers
	Annotations []Annotation
	Body        []*Stmt
	HasBody     bool
	Owner       *TypeDecl
	Line        int
}

func (m *MethodDecl) Handle() string                    { return m.Owner.FQN() + "#" + m.Signature() }
func (m *MethodDecl) Enclosing() *TypeDecl              { return m.Owner }
func (m *MethodDecl) CompilationUnit() *CompilationUnit { return m.Owner.File }
func (m *MethodDecl) Tags() []Annotation                { return m.Annotations }

func (m *MethodDecl) DeclKind() DeclKind {
	if m.Constructor {
		return DeclConstructor
	}
	return DeclMethod
}

func (m *MethodDecl) SimpleName() string {
	if m.Constructor {
		return ConstructorName
	}
	return m.Name
}

// Signature renders name and erased parameter types, e.g. "find(String,int[])".
func (m *MethodDecl) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.SimpleName())
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		if p.Varargs {
			sb.WriteString(p.Type.Component().Erasure())
			sb.WriteString("...")
			continue
		}
		sb.WriteString(p.Type.Erasure())
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsAbstract is true for methods declared abstract and for body-less
// interface methods.
func (m *MethodDecl) IsAbstract() bool {
	if m.Modifiers.Has(ModAbstract) {
		return true
	}
	return !m.Constructor && !m.HasBody && m.Owner != nil && m.Owner.IsInterface() &&
		!m.Modifiers.Has(ModDefault) && !m.Modifiers.Has(ModStatic)
}

// IsTypeParam reports whether name is a type variable visible in the method.
func (m *MethodDecl) IsTypeParam(name string) bool {
	for _, p := range m.TypeParams {
		if p == name {
			return true
		}
	}
	return m.Owner != nil && m.Owner.IsTypeParam(name)
}

// Link wires Owner/Outer/File back-references after construction.
// Parsers call it once per unit; tests building units by hand do the same.
func Link(cu *CompilationUnit) *CompilationUnit {
	var link func(t *TypeDecl, outer *TypeDecl)
	link = func(t *TypeDecl, outer *TypeDecl) {
		t.File = cu
		t.Outer = outer
		for _, f := range t.Fields {
			f.Owner = t
		}
		for _, m := range t.Methods {
			m.Owner = t
		}
		for _, c := range t.Constructors {
			c.Owner = t
			c.Constructor = true
			c.Name = t.Name
		}
		for _, n := range t.Nested {
			link(n, t)
		}
	}
	for _, t := range cu.Types {
		link(t, nil)
	}
	return cu
}
