package depsolver

import (
	"github.com/mvp-joe/depsolver/internal/decl"
)

// Report is the serializable form of a Result, consumed by the CLI output
// and by storage.
type Report struct {
	Targets   []Target     `json:"targets" yaml:"targets"`
	Nodes     []NodeReport `json:"nodes" yaml:"nodes"`
	Stubs     []StubReport `json:"stubs" yaml:"stubs"`
	External  []string     `json:"external,omitempty" yaml:"external,omitempty"`
	Missing   []string     `json:"missing,omitempty" yaml:"missing,omitempty"`
	Fallbacks []Fallback   `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}

// NodeReport is one reached declaration.
type NodeReport struct {
	Handle string        `json:"handle" yaml:"handle"`
	Kind   decl.DeclKind `json:"kind" yaml:"kind"`
	File   string        `json:"file,omitempty" yaml:"file,omitempty"`
}

// StubReport lists what a reduced copy of one type must contain.
type StubReport struct {
	FQN          string        `json:"fqn" yaml:"fqn"`
	Kind         decl.TypeKind `json:"kind" yaml:"kind"`
	Outer        string        `json:"outer,omitempty" yaml:"outer,omitempty"`
	Extends      []string      `json:"extends,omitempty" yaml:"extends,omitempty"`
	Implements   []string      `json:"implements,omitempty" yaml:"implements,omitempty"`
	Annotations  []string      `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Imports      []string      `json:"imports,omitempty" yaml:"imports,omitempty"`
	Fields       []string      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Constructors []string      `json:"constructors,omitempty" yaml:"constructors,omitempty"`
	Methods      []string      `json:"methods,omitempty" yaml:"methods,omitempty"`
	Nested       []string      `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// Report renders r for the given targets.
func (r *Result) Report(targets ...Target) *Report {
	rep := &Report{
		Targets:   targets,
		External:  r.External,
		Missing:   r.Missing,
		Fallbacks: r.Fallbacks,
	}
	for _, n := range r.Nodes {
		nr := NodeReport{Handle: n.Handle(), Kind: n.decl.DeclKind()}
		if cu := n.decl.CompilationUnit(); cu != nil {
			nr.File = cu.Path
		}
		rep.Nodes = append(rep.Nodes, nr)
	}
	for _, s := range r.Stubs {
		rep.Stubs = append(rep.Stubs, s.report())
	}
	return rep
}

func (s *Stub) report() StubReport {
	out := StubReport{
		FQN:        s.FQN,
		Kind:       s.Kind,
		Outer:      s.Outer,
		Extends:    s.Extends,
		Implements: s.Implements,
		Nested:     s.nested,
	}
	for _, a := range s.Annotations {
		out.Annotations = append(out.Annotations, a.Name)
	}
	for _, imp := range s.Imports() {
		out.Imports = append(out.Imports, imp.String())
	}
	for _, f := range s.fields {
		out.Fields = append(out.Fields, f.Names...)
	}
	for _, m := range s.Constructors() {
		out.Constructors = append(out.Constructors, m.Signature())
	}
	for _, m := range s.Methods() {
		out.Methods = append(out.Methods, m.Signature())
	}
	return out
}
