package depsolver

import (
	"sort"

	"github.com/mvp-joe/depsolver/internal/decl"
)

// Node wraps one declaration reached by a solve. Nodes are owned by a
// Registry and identified by the declaration's handle.
type Node struct {
	decl    decl.Declaration
	stub    *Stub
	visited bool
}

// Declaration returns the wrapped declaration.
func (n *Node) Declaration() decl.Declaration { return n.decl }

// Handle returns the wrapped declaration's handle.
func (n *Node) Handle() string { return n.decl.Handle() }

// Stub returns the destination container of the node's enclosing type.
func (n *Node) Stub() *Stub { return n.stub }

// Visited reports whether the node's declaration has been processed.
func (n *Node) Visited() bool { return n.visited }

// Enclosing returns the type the declaration belongs to.
func (n *Node) Enclosing() *decl.TypeDecl { return n.decl.Enclosing() }

// Stub is the minimal container synthesized for one reached type. It holds
// only the members and imports discovered as reachable, plus the type's
// supertype names and annotations copied on creation. A stub only grows.
type Stub struct {
	FQN         string
	Package     string
	Name        string
	Outer       string // FQN of the enclosing stub, empty for top-level types
	Kind        decl.TypeKind
	Extends     []string
	Implements  []string
	Annotations []decl.Annotation

	imports   []decl.Import
	importSet map[string]bool
	fields    []*decl.FieldDecl
	callables []*decl.MethodDecl
	members   map[string]bool
	nested    []string
	expanded  bool
	source    *decl.TypeDecl
}

func newStub(t *decl.TypeDecl) *Stub {
	s := &Stub{
		FQN:         t.FQN(),
		Package:     t.Package(),
		Name:        t.Name,
		Kind:        t.Kind,
		Annotations: append([]decl.Annotation(nil), t.Annotations...),
		importSet:   make(map[string]bool),
		members:     make(map[string]bool),
		source:      t,
	}
	if t.Outer != nil {
		s.Outer = t.Outer.FQN()
	}
	for _, e := range t.Extends {
		s.Extends = append(s.Extends, e.String())
	}
	for _, i := range t.Implements {
		s.Implements = append(s.Implements, i.String())
	}
	return s
}

// Source returns the type declaration the stub was derived from.
func (s *Stub) Source() *decl.TypeDecl { return s.source }

// AddImport records an import line. Imports of the stub's own package and
// duplicates are ignored. It reports whether the import was new.
func (s *Stub) AddImport(imp decl.Import) bool {
	if imp.Name == "" || (!imp.Static && !imp.Asterisk && decl.PackageOf(imp.Name) == s.Package) {
		return false
	}
	key := imp.String()
	if s.importSet[key] {
		return false
	}
	s.importSet[key] = true
	s.imports = append(s.imports, imp)
	return true
}

// AddField records a reached field.
func (s *Stub) AddField(f *decl.FieldDecl) bool {
	if s.members[f.Handle()] {
		return false
	}
	s.members[f.Handle()] = true
	s.fields = append(s.fields, f)
	return true
}

// AddCallable records a reached method or constructor.
func (s *Stub) AddCallable(m *decl.MethodDecl) bool {
	if s.members[m.Handle()] {
		return false
	}
	s.members[m.Handle()] = true
	s.callables = append(s.callables, m)
	return true
}

// Has reports whether the stub holds the member with that handle.
func (s *Stub) Has(handle string) bool { return s.members[handle] }

// Imports returns the import lines sorted as they would be written.
func (s *Stub) Imports() []decl.Import {
	out := append([]decl.Import(nil), s.imports...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Static != out[j].Static {
			return !out[i].Static
		}
		return out[i].String() < out[j].String()
	})
	return out
}

// Fields returns reached fields in discovery order.
func (s *Stub) Fields() []*decl.FieldDecl { return s.fields }

// Methods returns reached methods in discovery order.
func (s *Stub) Methods() []*decl.MethodDecl {
	var out []*decl.MethodDecl
	for _, m := range s.callables {
		if !m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Constructors returns reached constructors in discovery order.
func (s *Stub) Constructors() []*decl.MethodDecl {
	var out []*decl.MethodDecl
	for _, m := range s.callables {
		if m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Nested returns the FQNs of nested stubs.
func (s *Stub) Nested() []string { return s.nested }

// Registry holds at most one node per declaration handle and one stub per
// enclosing type. It is per solve; Reset clears it.
type Registry struct {
	nodes   map[string]*Node
	order   []*Node
	pending []*Node
	stubs   map[string]*Stub
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]*Node),
		stubs: make(map[string]*Stub),
	}
}

// CreateNode returns the node for d, creating it unvisited on first sight.
// A second call returns the same node untouched.
func (r *Registry) CreateNode(d decl.Declaration) *Node {
	h := d.Handle()
	if n, ok := r.nodes[h]; ok {
		return n
	}
	n := &Node{decl: d, stub: r.stubFor(d.Enclosing())}
	r.nodes[h] = n
	r.order = append(r.order, n)
	r.pending = append(r.pending, n)
	return n
}

func (r *Registry) stubFor(t *decl.TypeDecl) *Stub {
	fqn := t.FQN()
	if s, ok := r.stubs[fqn]; ok {
		return s
	}
	s := newStub(t)
	r.stubs[fqn] = s
	if t.Outer != nil {
		outer := r.stubFor(t.Outer)
		outer.nested = append(outer.nested, fqn)
	}
	return s
}

// Get returns the node registered for handle.
func (r *Registry) Get(handle string) (*Node, bool) {
	n, ok := r.nodes[handle]
	return n, ok
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }

// Nodes returns every node in discovery order.
func (r *Registry) Nodes() []*Node { return r.order }

// Stub returns the stub for a type FQN.
func (r *Registry) Stub(fqn string) (*Stub, bool) {
	s, ok := r.stubs[fqn]
	return s, ok
}

// Stubs returns every stub sorted by FQN.
func (r *Registry) Stubs() []*Stub {
	out := make([]*Stub, 0, len(r.stubs))
	for _, s := range r.stubs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN < out[j].FQN })
	return out
}

// next pops the oldest unvisited node, or nil when none remain.
func (r *Registry) next() *Node {
	for len(r.pending) > 0 {
		n := r.pending[0]
		r.pending = r.pending[1:]
		if !n.visited {
			return n
		}
	}
	return nil
}

// Reset drops every node and stub.
func (r *Registry) Reset() {
	r.nodes = make(map[string]*Node)
	r.stubs = make(map[string]*Stub)
	r.order = nil
	r.pending = nil
}
