package cycles

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/resolve"
)

var (
	componentTags = []string{"Component", "Service", "Repository", "Controller", "RestController", "Configuration"}
	injectTags    = []string{"Autowired", "Inject", "Resource"}
)

// Corpus lists every compilation unit of the analyzed sources.
type Corpus interface {
	All(ctx context.Context) ([]*decl.CompilationUnit, error)
}

// Builder derives the injection graph from component declarations.
type Builder struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
	base     string

	components map[string]*decl.TypeDecl
	produced   map[string]bool
}

// NewBuilder creates a Builder. A nil logger uses slog.Default.
func NewBuilder(r *resolve.Resolver, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{resolver: r, logger: logger}
}

// WithBasePackage limits components to classes in pkg or its subpackages.
func (b *Builder) WithBasePackage(pkg string) *Builder {
	b.base = pkg
	return b
}

// Build builds the injection graph of corpus with a default Builder.
func Build(ctx context.Context, corpus Corpus, r *resolve.Resolver) (*Graph, error) {
	return NewBuilder(r, nil).Build(ctx, corpus)
}

// Build scans corpus for component classes and adds one edge per injection
// point: annotated fields, constructor parameters, annotated setters and
// the parameters of factory methods on configuration classes. Injection
// points whose type is not a component are left out; an interface binds to
// its single implementing component.
func (b *Builder) Build(ctx context.Context, corpus Corpus) (*Graph, error) {
	units, err := corpus.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	b.components = make(map[string]*decl.TypeDecl)
	b.produced = make(map[string]bool)
	var configs []*decl.TypeDecl
	for _, u := range units {
		for _, t := range u.AllTypes() {
			if !hasAny(t.Annotations, componentTags) || !decl.InPackage(t.FQN(), b.base) {
				continue
			}
			b.components[t.FQN()] = t
			if t.HasAnnotation("Configuration") {
				configs = append(configs, t)
			}
		}
	}
	for _, cfg := range configs {
		for _, m := range cfg.Methods {
			if !hasAny(m.Annotations, []string{"Bean"}) {
				continue
			}
			if fqn := b.typeName(resolve.In(m), m.ReturnType); fqn != "" {
				b.produced[fqn] = true
			}
		}
	}

	g := NewGraph()
	for _, fqn := range sortedNames(b.components) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := g.AddComponent(fqn); err != nil {
			return nil, err
		}
		if err := b.addInjectionPoints(g, b.components[fqn]); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("injection graph built", "components", len(b.components), "produced", len(b.produced))
	return g, nil
}

func (b *Builder) addInjectionPoints(g *Graph, t *decl.TypeDecl) error {
	from := t.FQN()
	add := func(ctx resolve.Context, ref decl.TypeRef, kind InjectionKind, member string) error {
		to, ok := b.bind(ctx, ref)
		if !ok {
			return nil
		}
		return g.Add(BeanDependency{From: from, To: to, Kind: kind, Member: member})
	}

	for _, f := range t.Fields {
		if !hasAny(f.Annotations, injectTags) {
			continue
		}
		for _, name := range f.Names {
			if err := add(resolve.In(f), f.Type, Field, name); err != nil {
				return err
			}
		}
	}

	if ctor := injectedConstructor(t); ctor != nil {
		for _, p := range ctor.Params {
			if err := add(resolve.In(ctor), p.Type, Constructor, p.Name); err != nil {
				return err
			}
		}
	}

	for _, m := range t.Methods {
		switch {
		case hasAny(m.Annotations, injectTags) && strings.HasPrefix(m.Name, "set") && len(m.Params) == 1:
			if err := add(resolve.In(m), m.Params[0].Type, Setter, m.Name); err != nil {
				return err
			}
		case t.HasAnnotation("Configuration") && hasAny(m.Annotations, []string{"Bean"}):
			produced := b.typeName(resolve.In(m), m.ReturnType)
			if produced == "" {
				continue
			}
			if err := g.AddComponent(produced); err != nil {
				return err
			}
			for _, p := range m.Params {
				to, ok := b.bind(resolve.In(m), p.Type)
				if !ok {
					continue
				}
				if err := g.Add(BeanDependency{From: produced, To: to, Kind: FactoryMethod, Member: m.Name}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// injectedConstructor returns the annotated constructor, or the only one.
func injectedConstructor(t *decl.TypeDecl) *decl.MethodDecl {
	for _, c := range t.Constructors {
		if hasAny(c.Annotations, injectTags) {
			return c
		}
	}
	if len(t.Constructors) == 1 {
		return t.Constructors[0]
	}
	return nil
}

// bind maps an injection point's declared type to the component that
// satisfies it.
func (b *Builder) bind(ctx resolve.Context, ref decl.TypeRef) (string, bool) {
	fqn := b.typeName(ctx, ref)
	if fqn == "" {
		return "", false
	}
	if b.components[fqn] != nil || b.produced[fqn] {
		return fqn, true
	}
	if fqn == "java.lang.Object" {
		return "", false
	}
	var impls []string
	for _, c := range sortedNames(b.components) {
		if c != fqn && b.resolver.IsSubtype(c, fqn) {
			impls = append(impls, c)
		}
	}
	if len(impls) == 1 {
		return impls[0], true
	}
	if len(impls) > 1 {
		b.logger.Debug("ambiguous injection point", "type", fqn, "candidates", impls)
	}
	return "", false
}

func (b *Builder) typeName(ctx resolve.Context, ref decl.TypeRef) string {
	if ref.IsZero() || ref.IsPrimitive() || ref.IsArray() {
		return ""
	}
	binding := b.resolver.ResolveType(ctx, ref.Name)
	if binding == nil || !binding.IsType() {
		return ""
	}
	return binding.FQN
}

func hasAny(anns []decl.Annotation, names []string) bool {
	for _, n := range names {
		if _, ok := decl.FindAnnotation(anns, n); ok {
			return true
		}
	}
	return false
}

func sortedNames(m map[string]*decl.TypeDecl) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
