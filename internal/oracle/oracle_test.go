package oracle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Oracle:
// - Builtin manifest resolves core java.lang and java.util types
// - Classes default to Object as superclass; interfaces do not
// - Methods and constructors are found by name, with parsed signatures
// - Archive manifests extend and override builtins
// - Malformed manifests and unnamed descriptors are rejected
// - Package listing is sorted

func TestBuiltins(t *testing.T) {
	t.Parallel()

	o, err := NewWithBuiltins()
	require.NoError(t, err)

	str, ok := o.Resolve("java.lang.String")
	require.True(t, ok)
	assert.Equal(t, "String", str.Simple())
	assert.Equal(t, "java.lang.Object", str.Super)
	assert.Contains(t, str.Supertypes(), "java.lang.CharSequence")

	substrings := str.MethodsByName("substring")
	require.Len(t, substrings, 2)
	assert.Equal(t, []decl.TypeRef{decl.Ref("int"), decl.Ref("int")}, substrings[1].ParamTypes())
	assert.Equal(t, "String", substrings[0].ReturnType().Name)

	format := str.MethodsByName("format")
	require.Len(t, format, 1)
	assert.True(t, format[0].Static)
	assert.True(t, format[0].Varargs())

	list, ok := o.Resolve("java.util.List")
	require.True(t, ok)
	assert.True(t, list.IsInterface())
	assert.Empty(t, list.Super)
	assert.True(t, list.IsTypeParam("E"))

	arrayList, ok := o.Resolve("java.util.ArrayList")
	require.True(t, ok)
	assert.Len(t, arrayList.MethodsByName(decl.ConstructorName), 3)

	out, ok := mustResolve(t, o, "java.lang.System").Field("out")
	require.True(t, ok)
	assert.Equal(t, "java.io.PrintStream", out.Type)

	object := mustResolve(t, o, "java.lang.Object")
	assert.Empty(t, object.Super)

	_, ok = o.Resolve("com.acme.Order")
	assert.False(t, ok)
}

func mustResolve(t *testing.T, o *Oracle, fqn string) *TypeDescriptor {
	t.Helper()
	td, ok := o.Resolve(fqn)
	require.True(t, ok, fqn)
	return td
}

func TestArchiveManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "spring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`types:
  - name: org.springframework.stereotype.Service
    kind: annotation
  - name: org.springframework.jdbc.core.JdbcTemplate
    methods:
      - {name: update, params: [String, "Object..."], returns: int}
  - name: java.lang.String
    methods:
      - {name: repeat, params: [int], returns: String}
`), 0o644))

	o, err := NewWithBuiltins(path)
	require.NoError(t, err)

	jdbc := mustResolve(t, o, "org.springframework.jdbc.core.JdbcTemplate")
	assert.Equal(t, decl.KindClass, jdbc.Kind)
	assert.Len(t, jdbc.MethodsByName("update"), 1)

	str := mustResolve(t, o, "java.lang.String")
	assert.Len(t, str.MethodsByName("repeat"), 1)
	assert.Empty(t, str.MethodsByName("substring"), "later manifests replace descriptors")

	assert.True(t, o.HasPackage("org.springframework.stereotype"))
	assert.False(t, o.HasPackage("org.springframework"))

	_, err = NewWithBuiltins(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadManifestErrors(t *testing.T) {
	t.Parallel()

	o := New()
	assert.Error(t, o.LoadManifest(strings.NewReader("types: [ {name: a")))
	assert.Error(t, o.LoadManifest(strings.NewReader("types:\n  - kind: class\n")))
	assert.NoError(t, o.LoadManifest(strings.NewReader("")))
	assert.Equal(t, 0, o.Len())
}

func TestPackage(t *testing.T) {
	t.Parallel()

	o := New()
	o.Add(TypeDescriptor{Name: "x.Zeta"})
	o.Add(TypeDescriptor{Name: "x.Alpha", Kind: decl.KindInterface})
	o.Add(TypeDescriptor{Name: "x.Alpha", Kind: decl.KindInterface})

	pkg := o.Package("x")
	require.Len(t, pkg, 2)
	assert.Equal(t, "x.Alpha", pkg[0].Name)
	assert.Equal(t, "x.Zeta", pkg[1].Name)
	assert.Equal(t, "java.lang.Object", pkg[1].Super)
}
