package decl

import "strings"

// TypeKind distinguishes the flavours of type declaration.
type TypeKind string

const (
	KindClass      TypeKind = "class"
	KindInterface  TypeKind = "interface"
	KindEnum       TypeKind = "enum"
	KindRecord     TypeKind = "record"
	KindAnnotation TypeKind = "annotation"
)

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint16

const (
	ModPublic Modifiers = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModAbstract
	ModFinal
	ModDefault
)

// Has reports whether every bit in m2 is set.
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

// ParseModifier maps a source keyword to its modifier bit (0 if unknown).
func ParseModifier(keyword string) Modifiers {
	switch keyword {
	case "public":
		return ModPublic
	case "protected":
		return ModProtected
	case "private":
		return ModPrivate
	case "static":
		return ModStatic
	case "abstract":
		return ModAbstract
	case "final":
		return ModFinal
	case "default":
		return ModDefault
	}
	return 0
}

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

// IsPrimitive reports whether name is a primitive type keyword (void included).
func IsPrimitive(name string) bool {
	return primitives[name]
}

// TypeRef is a reference to a type as written at a use site.
type TypeRef struct {
	Name string    // simple ("List"), qualified ("java.util.List") or nested ("Map.Entry")
	Args []TypeRef // generic arguments, wildcards reduced to their bound
	Dims int       // array dimensions
}

// Ref builds a TypeRef; a trailing "[]" sequence on name becomes array dimensions.
func Ref(name string, args ...TypeRef) TypeRef {
	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSuffix(name, "[]")
		dims++
	}
	return TypeRef{Name: name, Args: args, Dims: dims}
}

// IsZero reports whether the reference is empty.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// IsArray reports whether the reference has array dimensions.
func (t TypeRef) IsArray() bool {
	return t.Dims > 0
}

// IsPrimitive reports whether the non-array element is a primitive.
func (t TypeRef) IsPrimitive() bool {
	return t.Dims == 0 && IsPrimitive(t.Name)
}

// Component returns the type one array dimension down.
func (t TypeRef) Component() TypeRef {
	if t.Dims == 0 {
		return t
	}
	c := t
	c.Dims--
	return c
}

// Element strips all array dimensions.
func (t TypeRef) Element() TypeRef {
	e := t
	e.Dims = 0
	return e
}

// Simple returns the last segment of the type name.
func (t TypeRef) Simple() string {
	return SimpleName(t.Name)
}

// Erasure renders the simple name plus array brackets, without generic arguments.
func (t TypeRef) Erasure() string {
	return t.Simple() + strings.Repeat("[]", t.Dims)
}

func (t TypeRef) String() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	sb.WriteString(strings.Repeat("[]", t.Dims))
	return sb.String()
}

// SimpleName returns the last dot-separated segment of name.
func SimpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// InPackage reports whether fqn lies in pkg or one of its subpackages.
// Every name lies in the empty package.
func InPackage(fqn, pkg string) bool {
	if pkg == "" {
		return true
	}
	return fqn == pkg || strings.HasPrefix(fqn, pkg+".")
}

// PackageOf returns everything before the last dot of a qualified name.
func PackageOf(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}

// MemberValue is one name=value pair of an annotation.
type MemberValue struct {
	Name  string
	Value *Expr
}

// Annotation is a metadata tag attached to a declaration or type use.
type Annotation struct {
	Name   string
	Values []MemberValue
}

// Simple returns the annotation's simple name.
func (a Annotation) Simple() string {
	return SimpleName(a.Name)
}

// FindAnnotation returns the first annotation whose simple name matches name.
func FindAnnotation(anns []Annotation, name string) (Annotation, bool) {
	name = SimpleName(name)
	for _, a := range anns {
		if a.Simple() == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// Import is one import declaration. Name never carries the trailing ".*".
type Import struct {
	Name     string
	Static   bool
	Asterisk bool
}

// SimpleName is the name an import binds (empty for on-demand imports).
func (i Import) SimpleName() string {
	if i.Asterisk {
		return ""
	}
	return SimpleName(i.Name)
}

func (i Import) String() string {
	var sb strings.Builder
	sb.WriteString("import ")
	if i.Static {
		sb.WriteString("static ")
	}
	sb.WriteString(i.Name)
	if i.Asterisk {
		sb.WriteString(".*")
	}
	sb.WriteByte(';')
	return sb.String()
}

// ParseType parses a written type such as "Map<String, List<Item>>[]".
// Wildcards reduce to their bound ("? extends T" yields T, "?" yields Object).
func ParseType(s string) TypeRef {
	ref, _ := parseType(strings.TrimSpace(s))
	return ref
}

func parseType(s string) (TypeRef, string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "?") {
		s = strings.TrimSpace(s[1:])
		switch {
		case strings.HasPrefix(s, "extends "):
			return parseType(s[len("extends "):])
		case strings.HasPrefix(s, "super "):
			_, rest := parseType(s[len("super "):])
			return Ref("Object"), rest
		}
		return Ref("Object"), s
	}

	end := strings.IndexAny(s, "<>,[")
	if end < 0 {
		end = len(s)
	}
	if dots := strings.Index(s, "..."); dots >= 0 && dots < end {
		end = dots
	}
	ref := TypeRef{Name: strings.TrimSpace(s[:end])}
	rest := s[end:]

	if strings.HasPrefix(rest, "<") {
		rest = rest[1:]
		for {
			var arg TypeRef
			arg, rest = parseType(rest)
			ref.Args = append(ref.Args, arg)
			rest = strings.TrimSpace(rest)
			if strings.HasPrefix(rest, ",") {
				rest = rest[1:]
				continue
			}
			if strings.HasPrefix(rest, ">") {
				rest = rest[1:]
			}
			break
		}
	}
	rest = strings.TrimSpace(rest)
	for strings.HasPrefix(rest, "[]") {
		ref.Dims++
		rest = strings.TrimSpace(rest[2:])
	}
	if strings.HasPrefix(rest, "...") {
		ref.Dims++
		rest = rest[3:]
	}
	return ref, rest
}
