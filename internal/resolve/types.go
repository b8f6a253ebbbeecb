package resolve

import (
	"github.com/mvp-joe/depsolver/internal/decl"
)

var boxes = map[string]string{
	"boolean": "java.lang.Boolean",
	"byte":    "java.lang.Byte",
	"char":    "java.lang.Character",
	"short":   "java.lang.Short",
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"float":   "java.lang.Float",
	"double":  "java.lang.Double",
}

var unboxes = func() map[string]string {
	m := make(map[string]string, 2*len(boxes))
	for prim, boxed := range boxes {
		m[boxed] = prim
		m[decl.SimpleName(boxed)] = prim
	}
	return m
}()

// widening lists the primitive widening conversions.
var widening = map[string][]string{
	"byte":  {"short", "int", "long", "float", "double"},
	"short": {"int", "long", "float", "double"},
	"char":  {"int", "long", "float", "double"},
	"int":   {"long", "float", "double"},
	"long":  {"float", "double"},
	"float": {"double"},
}

// Box returns the wrapper type of a primitive.
func Box(t decl.TypeRef) (decl.TypeRef, bool) {
	if !t.IsPrimitive() {
		return t, false
	}
	boxed, ok := boxes[t.Name]
	if !ok {
		return t, false
	}
	return decl.TypeRef{Name: boxed}, true
}

// Unbox returns the primitive of a wrapper type, qualified or not.
func Unbox(t decl.TypeRef) (decl.TypeRef, bool) {
	if t.IsArray() {
		return t, false
	}
	prim, ok := unboxes[t.Name]
	if !ok {
		return t, false
	}
	return decl.TypeRef{Name: prim}, true
}

func widens(from, to string) bool {
	for _, w := range widening[from] {
		if w == to {
			return true
		}
	}
	return false
}

// Assignable reports whether a value of type from may be passed where to is
// expected, without boxing. Both references should be qualified. Unknown
// types on either side match anything.
func (r *Resolver) Assignable(from, to decl.TypeRef) bool {
	if from.IsZero() || to.IsZero() {
		return true
	}
	if from.Name == "null" {
		return !to.IsPrimitive()
	}
	if to.Dims == 0 && to.Name == objectFQN {
		return !from.IsPrimitive()
	}
	if from.Dims != to.Dims {
		return false
	}
	if from.Dims > 0 {
		fe, te := from.Element(), to.Element()
		if fe.IsPrimitive() || te.IsPrimitive() {
			return fe.Name == te.Name
		}
		return r.Assignable(fe, te)
	}
	if from.IsPrimitive() || to.IsPrimitive() {
		if from.IsPrimitive() && to.IsPrimitive() {
			return from.Name == to.Name || widens(from.Name, to.Name)
		}
		return false
	}
	if from.Name == to.Name {
		return true
	}
	if !r.Known(from.Name) || !r.Known(to.Name) {
		return true
	}
	return r.IsSubtype(from.Name, to.Name)
}

// IsSubtype reports whether to appears in the supertype closure of from.
func (r *Resolver) IsSubtype(from, to string) bool {
	if from == to || to == objectFQN {
		return true
	}
	for _, h := range r.Hierarchy(from) {
		if h.FQN == to {
			return true
		}
	}
	return false
}

// Hierarchy returns fqn and its supertypes breadth first, each bound to
// its source declaration or external descriptor. Types nothing knows are
// skipped.
func (r *Resolver) Hierarchy(fqn string) []*ImportBinding {
	var out []*ImportBinding
	seen := make(map[string]bool)
	queue := []string{fqn}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == "" || seen[cur] {
			continue
		}
		seen[cur] = true
		b := r.bindType(cur)
		if b == nil {
			continue
		}
		out = append(out, b)
		queue = append(queue, r.supertypeNames(b)...)
	}
	return out
}

// SupertypeRefs returns the qualified supertypes of an in-corpus type, with
// the implicit superclass added for classes, enums and records.
func (r *Resolver) SupertypeRefs(t *decl.TypeDecl) []decl.TypeRef {
	ctx := Context{Unit: t.File, Type: t.Outer}
	var out []decl.TypeRef
	for _, s := range t.Supertypes() {
		q := r.Qualify(ctx, s)
		// the type's own variables are not visible from the outer context
		for i, a := range s.Args {
			if t.IsTypeParam(a.Name) && i < len(q.Args) {
				q.Args[i] = a
			}
		}
		out = append(out, q)
	}
	switch t.Kind {
	case decl.KindEnum:
		out = append(out, decl.TypeRef{Name: "java.lang.Enum", Args: []decl.TypeRef{{Name: t.FQN()}}})
	case decl.KindRecord:
		out = append(out, decl.TypeRef{Name: "java.lang.Record"})
	case decl.KindClass:
		if len(t.Extends) == 0 && t.FQN() != objectFQN {
			out = append(out, decl.TypeRef{Name: objectFQN})
		}
	}
	return out
}

func (r *Resolver) supertypeNames(b *ImportBinding) []string {
	var out []string
	switch {
	case b.Type != nil:
		for _, s := range r.SupertypeRefs(b.Type) {
			out = append(out, s.Name)
		}
	case b.External != nil:
		for _, s := range b.External.Supertypes() {
			out = append(out, r.QualifyExternal(b.External, decl.ParseType(s)).Name)
		}
	}
	return out
}

// Bind substitutes type variables in ref with the matching arguments.
func Bind(ref decl.TypeRef, params []string, args []decl.TypeRef) decl.TypeRef {
	if ref.IsZero() || len(params) == 0 || len(args) == 0 {
		return ref
	}
	for i, p := range params {
		if p == ref.Name && i < len(args) && len(ref.Args) == 0 {
			out := args[i]
			out.Dims += ref.Dims
			return out
		}
	}
	out := decl.TypeRef{Name: ref.Name, Dims: ref.Dims}
	for _, a := range ref.Args {
		out.Args = append(out.Args, Bind(a, params, args))
	}
	return out
}

// TypeArgsFor returns the type arguments the receiver type supplies to the
// type variables of owner, following in-corpus supertype declarations.
// For example a receiver OrderRepo declared "extends Repo<Order>" supplies
// [Order] to Repo.
func (r *Resolver) TypeArgsFor(receiver decl.TypeRef, owner string) []decl.TypeRef {
	seen := make(map[string]bool)
	var walk func(ref decl.TypeRef) []decl.TypeRef
	walk = func(ref decl.TypeRef) []decl.TypeRef {
		if ref.Name == owner {
			return ref.Args
		}
		if seen[ref.Name] {
			return nil
		}
		seen[ref.Name] = true
		t := r.SourceType(ref.Name)
		if t == nil {
			return r.externalTypeArgs(ref, owner, seen)
		}
		for _, s := range r.SupertypeRefs(t) {
			if args := walk(Bind(s, t.TypeParams, ref.Args)); args != nil {
				return args
			}
		}
		return nil
	}
	return walk(receiver)
}

func (r *Resolver) externalTypeArgs(ref decl.TypeRef, owner string, seen map[string]bool) []decl.TypeRef {
	td, ok := r.External(ref.Name)
	if !ok {
		return nil
	}
	for _, s := range td.Supertypes() {
		parsed := decl.ParseType(s)
		super := Bind(parsed, td.TypeParams, ref.Args)
		super.Name = r.QualifyExternal(td, decl.TypeRef{Name: parsed.Name}).Name
		// manifests often write generic supertypes raw; carry the arguments
		// across when the arity lines up
		if len(parsed.Args) == 0 {
			if sd, ok := r.External(super.Name); ok && len(sd.TypeParams) == len(td.TypeParams) {
				super.Args = ref.Args
			}
		}
		if super.Name == owner {
			return super.Args
		}
		if seen[super.Name] {
			continue
		}
		seen[super.Name] = true
		if args := r.externalTypeArgs(super, owner, seen); args != nil {
			return args
		}
	}
	return nil
}
