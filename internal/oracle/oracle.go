// Package oracle answers questions about types that have no source in the
// corpus: JDK classes and the contents of third-party archives. Descriptors
// are loaded from YAML manifests; a builtin manifest covers the common
// java.lang, java.util and java.io types.
package oracle

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mvp-joe/depsolver/internal/decl"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinManifest []byte

// TypeOracle resolves external types. It never produces graph nodes.
type TypeOracle interface {
	Resolve(fqn string) (*TypeDescriptor, bool)
}

// MethodDescriptor describes one method or constructor of an external type.
type MethodDescriptor struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params,omitempty"`
	Returns string   `yaml:"returns,omitempty"`
	Static  bool     `yaml:"static,omitempty"`
}

// ParamTypes parses the written parameter types.
func (m MethodDescriptor) ParamTypes() []decl.TypeRef {
	out := make([]decl.TypeRef, len(m.Params))
	for i, p := range m.Params {
		out[i] = decl.ParseType(p)
	}
	return out
}

// ReturnType parses the written return type; zero when absent.
func (m MethodDescriptor) ReturnType() decl.TypeRef {
	if m.Returns == "" {
		return decl.TypeRef{}
	}
	return decl.ParseType(m.Returns)
}

// Varargs reports whether the last parameter is variadic.
func (m MethodDescriptor) Varargs() bool {
	return len(m.Params) > 0 && strings.HasSuffix(m.Params[len(m.Params)-1], "...")
}

// FieldDescriptor describes one field of an external type.
type FieldDescriptor struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static,omitempty"`
}

// TypeDescriptor describes an external type.
type TypeDescriptor struct {
	Name         string             `yaml:"name"`
	Kind         decl.TypeKind      `yaml:"kind,omitempty"`
	TypeParams   []string           `yaml:"type_params,omitempty"`
	Super        string             `yaml:"super,omitempty"`
	Interfaces   []string           `yaml:"interfaces,omitempty"`
	Fields       []FieldDescriptor  `yaml:"fields,omitempty"`
	Methods      []MethodDescriptor `yaml:"methods,omitempty"`
	Constructors []MethodDescriptor `yaml:"constructors,omitempty"`
}

// Simple returns the simple name.
func (t *TypeDescriptor) Simple() string { return decl.SimpleName(t.Name) }

// Package returns the package part of the name.
func (t *TypeDescriptor) Package() string { return decl.PackageOf(t.Name) }

// IsInterface reports whether the descriptor is an interface or annotation.
func (t *TypeDescriptor) IsInterface() bool {
	return t.Kind == decl.KindInterface || t.Kind == decl.KindAnnotation
}

// IsTypeParam reports whether name is one of the type's variables.
func (t *TypeDescriptor) IsTypeParam(name string) bool {
	for _, p := range t.TypeParams {
		if p == name {
			return true
		}
	}
	return false
}

// Supertypes returns the superclass followed by interfaces, as FQNs.
func (t *TypeDescriptor) Supertypes() []string {
	var out []string
	if t.Super != "" {
		out = append(out, t.Super)
	}
	return append(out, t.Interfaces...)
}

// Field returns the named field.
func (t *TypeDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// MethodsByName returns the methods called name ("<init>" for constructors).
func (t *TypeDescriptor) MethodsByName(name string) []MethodDescriptor {
	if name == decl.ConstructorName {
		return t.Constructors
	}
	var out []MethodDescriptor
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Manifest is the on-disk shape of an archive index.
type Manifest struct {
	Types []TypeDescriptor `yaml:"types"`
}

// Oracle is a manifest-backed TypeOracle. Safe for concurrent use.
type Oracle struct {
	mu       sync.RWMutex
	types    map[string]*TypeDescriptor
	packages map[string][]string
}

// New creates an empty oracle.
func New() *Oracle {
	return &Oracle{
		types:    make(map[string]*TypeDescriptor),
		packages: make(map[string][]string),
	}
}

// NewWithBuiltins creates an oracle seeded with the builtin JDK manifest and
// then each archive manifest in order; later descriptors replace earlier ones.
func NewWithBuiltins(archives ...string) (*Oracle, error) {
	o := New()
	if err := o.LoadManifest(bytes.NewReader(builtinManifest)); err != nil {
		return nil, fmt.Errorf("failed to load builtin manifest: %w", err)
	}
	for _, path := range archives {
		if err := o.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// LoadFile loads one YAML manifest from disk.
func (o *Oracle) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive manifest %s: %w", path, err)
	}
	defer f.Close()
	if err := o.LoadManifest(f); err != nil {
		return fmt.Errorf("failed to load archive manifest %s: %w", path, err)
	}
	return nil
}

// LoadManifest decodes a YAML manifest and adds its descriptors.
func (o *Oracle) LoadManifest(r io.Reader) error {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
		return err
	}
	for _, t := range m.Types {
		if t.Name == "" {
			return fmt.Errorf("type descriptor without a name")
		}
		o.Add(t)
	}
	return nil
}

// Add registers a descriptor. Kind defaults to class, and Object is the
// implicit superclass of every class other than Object itself.
func (o *Oracle) Add(t TypeDescriptor) {
	if t.Kind == "" {
		t.Kind = decl.KindClass
	}
	if t.Super == "" && t.Kind == decl.KindClass && t.Name != "java.lang.Object" {
		t.Super = "java.lang.Object"
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.types[t.Name]; !exists {
		pkg := t.Package()
		o.packages[pkg] = append(o.packages[pkg], t.Name)
	}
	o.types[t.Name] = &t
}

// Resolve looks up a descriptor by fully qualified name.
func (o *Oracle) Resolve(fqn string) (*TypeDescriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.types[fqn]
	return t, ok
}

// Package returns the descriptors of a package sorted by name.
func (o *Oracle) Package(pkg string) []*TypeDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := append([]string(nil), o.packages[pkg]...)
	sort.Strings(names)
	out := make([]*TypeDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, o.types[n])
	}
	return out
}

// HasPackage reports whether any descriptor lives in pkg.
func (o *Oracle) HasPackage(pkg string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.packages[pkg]) > 0
}

// Len returns the number of known descriptors.
func (o *Oracle) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.types)
}
