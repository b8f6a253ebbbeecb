// Package index provides the declaration index: lazy, memoized lookup of
// Java compilation units and declarations by fully qualified name.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/parsers"
)

var (
	// ErrNotFound means no source in the corpus declares the name.
	ErrNotFound = errors.New("declaration not found")
	// ErrMalformedDeclaration means the declaring source failed to parse.
	ErrMalformedDeclaration = errors.New("malformed declaration")
)

// DefaultCacheSize bounds the number of memoized compilation units.
const DefaultCacheSize = 10_000

// Options configures an Index.
type Options struct {
	// Roots are source directories laid out by package (src/main/java style).
	Roots []string
	// Ignore holds glob patterns, relative to each root, excluded from lookup.
	Ignore    []string
	CacheSize int
	Logger    *slog.Logger
}

// entry memoizes one parse outcome, successful or malformed.
type entry struct {
	unit *decl.CompilationUnit
	err  error
}

// Index lazily loads compilation units by FQN and caches them by path.
// It is safe for concurrent use.
type Index struct {
	discoveries []*Discovery
	parser      *parsers.JavaParser
	cache       otter.Cache[string, *entry]
	logger      *slog.Logger
}

// New creates an Index over the given roots.
func New(opts Options) (*Index, error) {
	if len(opts.Roots) == 0 {
		return nil, errors.New("index requires at least one source root")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := otter.MustBuilder[string, *entry](size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build unit cache: %w", err)
	}

	idx := &Index{
		parser: parsers.NewJavaParser(),
		cache:  cache,
		logger: logger,
	}
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		d, err := NewDiscovery(abs, opts.Ignore)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern: %w", err)
		}
		idx.discoveries = append(idx.discoveries, d)
	}
	return idx, nil
}

// Close releases the cache.
func (idx *Index) Close() {
	idx.cache.Close()
}

// Reset drops every memoized unit.
func (idx *Index) Reset() {
	idx.cache.Clear()
}

// InvalidatePath drops the memoized unit for one source file.
func (idx *Index) InvalidatePath(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	idx.cache.Delete(path)
}

// Invalidate drops the memoized unit that would declare fqn.
func (idx *Index) Invalidate(fqn string) {
	for _, path := range idx.candidatePaths(fqn) {
		idx.cache.Delete(path)
	}
}

// Owns reports whether path lies under a root and is not ignored.
func (idx *Index) Owns(path string) bool {
	for _, d := range idx.discoveries {
		if !d.Ignored(path) {
			return true
		}
	}
	return false
}

// Load parses the file at path, memoizing the outcome. A file that fails to
// parse yields ErrMalformedDeclaration on every call until invalidated.
func (idx *Index) Load(path string) (*decl.CompilationUnit, error) {
	if e, ok := idx.cache.Get(path); ok {
		return e.unit, e.err
	}

	unit, err := idx.parser.ParseFile(context.Background(), path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if errors.Is(err, parsers.ErrSyntax) {
			err = fmt.Errorf("%w: %w", ErrMalformedDeclaration, err)
			idx.logger.Warn("malformed source", "path", path, "error", err)
			idx.cache.Set(path, &entry{err: err})
			return nil, err
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	idx.logger.Debug("loaded compilation unit", "path", path, "types", len(unit.Types))
	idx.cache.Set(path, &entry{unit: unit})
	return unit, nil
}

// candidatePaths maps an FQN to the files that could declare it, longest
// prefix first so nested types resolve to their outer type's file.
func (idx *Index) candidatePaths(fqn string) []string {
	parts := strings.Split(fqn, ".")
	var out []string
	for n := len(parts); n >= 1; n-- {
		rel := filepath.FromSlash(strings.Join(parts[:n], "/") + ".java")
		for _, d := range idx.discoveries {
			out = append(out, filepath.Join(d.Root(), rel))
		}
	}
	return out
}

// lookup finds the unit and type declaring fqn.
func (idx *Index) lookup(fqn string) (*decl.CompilationUnit, *decl.TypeDecl, error) {
	parts := strings.Split(fqn, ".")
	var malformed error
	for n := len(parts); n >= 1; n-- {
		rel := strings.Join(parts[:n], "/") + ".java"
		for _, d := range idx.discoveries {
			if d.Ignored(rel) {
				continue
			}
			path := filepath.Join(d.Root(), filepath.FromSlash(rel))
			if _, err := os.Stat(path); err != nil {
				continue
			}
			unit, err := idx.Load(path)
			if err != nil {
				if errors.Is(err, ErrMalformedDeclaration) {
					malformed = err
				}
				continue
			}
			if unit.Package != strings.Join(parts[:n-1], ".") {
				continue
			}
			if t := unit.FindType(strings.Join(parts[n-1:], ".")); t != nil {
				return unit, t, nil
			}
		}
	}

	// Secondary top-level types live in a file named after another type.
	pkg, name := decl.PackageOf(fqn), decl.SimpleName(fqn)
	if pkg != "" {
		// malformed siblings are not this type's problem
		units, _ := idx.Package(pkg)
		for _, unit := range units {
			for _, t := range unit.Types {
				if t.Name == name {
					return unit, t, nil
				}
			}
		}
	}
	if malformed != nil {
		return nil, nil, malformed
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
}

// Unit returns the compilation unit declaring the type fqn.
func (idx *Index) Unit(fqn string) (*decl.CompilationUnit, error) {
	unit, _, err := idx.lookup(fqn)
	return unit, err
}

// Type returns the type declaration named fqn (nested types use dots).
func (idx *Index) Type(fqn string) (*decl.TypeDecl, error) {
	_, t, err := idx.lookup(fqn)
	return t, err
}

// Has reports whether the corpus declares the type fqn.
func (idx *Index) Has(fqn string) bool {
	_, err := idx.Type(fqn)
	return err == nil
}

// Get returns the declarations named by fqn: a type FQN yields the type;
// "pkg.Type#member" or "pkg.Type.member" yields every field, method or
// constructor ("<init>") of that name.
func (idx *Index) Get(fqn string) ([]decl.Declaration, error) {
	if typeName, member, ok := strings.Cut(fqn, "#"); ok {
		t, err := idx.Type(typeName)
		if err != nil {
			return nil, err
		}
		return members(t, member, fqn)
	}

	t, err := idx.Type(fqn)
	if err == nil {
		return []decl.Declaration{t}, nil
	}
	if errors.Is(err, ErrNotFound) {
		if owner, typeErr := idx.Type(decl.PackageOf(fqn)); typeErr == nil {
			return members(owner, decl.SimpleName(fqn), fqn)
		}
	}
	return nil, err
}

func members(t *decl.TypeDecl, name, fqn string) ([]decl.Declaration, error) {
	var out []decl.Declaration
	if f := t.FieldByName(name); f != nil {
		out = append(out, f)
	}
	for _, m := range t.Callables(name) {
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	return out, nil
}

// Package returns every compilation unit whose directory matches pkg, across
// roots, sorted by path. Malformed files are skipped; the first such error
// is returned alongside the units that did load.
func (idx *Index) Package(pkg string) ([]*decl.CompilationUnit, error) {
	var units []*decl.CompilationUnit
	var firstErr error
	for _, d := range idx.discoveries {
		files, err := d.PackageFiles(pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to list package %s: %w", pkg, err)
		}
		sort.Strings(files)
		for _, f := range files {
			unit, err := idx.Load(f)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if unit.Package == pkg {
				units = append(units, unit)
			}
		}
	}
	return units, firstErr
}

// All loads every discovered source under the roots. Malformed files are
// logged and skipped.
func (idx *Index) All(ctx context.Context) ([]*decl.CompilationUnit, error) {
	var units []*decl.CompilationUnit
	for _, d := range idx.discoveries {
		files, err := d.DiscoverFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover sources in %s: %w", d.Root(), err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			unit, err := idx.Load(f)
			if err != nil {
				idx.logger.Warn("skipping source", "path", f, "error", err)
				continue
			}
			units = append(units, unit)
		}
	}
	return units, nil
}

// Size returns the number of memoized units.
func (idx *Index) Size() int {
	return idx.cache.Size()
}
