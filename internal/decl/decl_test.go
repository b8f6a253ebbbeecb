package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for decl:
// - Handles for types, nested types, fields, methods and constructors are stable
// - Link wires owners and outer types
// - PrimaryType prefers the public type, then the file-named type
// - FindType resolves dotted nested names
// - IsAbstract covers abstract classes and interface methods
// - TypeRef parses array suffixes and renders erasures
// - InPackage matches whole package segments only
// - ScopeChain unrolls calls and field accesses in source order

func sampleUnit() *CompilationUnit {
	return Link(&CompilationUnit{
		Path:    "src/com/acme/Order.java",
		Package: "com.acme",
		Types: []*TypeDecl{{
			Name:      "Order",
			Kind:      KindClass,
			Modifiers: ModPublic,
			Fields: []*FieldDecl{
				{Names: []string{"id", "code"}, Type: Ref("String")},
			},
			Methods: []*MethodDecl{
				{Name: "find", Params: []Param{{Name: "ids", Type: Ref("long[]")}, {Name: "q", Type: Ref("List", Ref("String"))}}, ReturnType: Ref("Order"), HasBody: true},
				{Name: "validate", Modifiers: ModAbstract},
			},
			Constructors: []*MethodDecl{
				{Params: []Param{{Name: "id", Type: Ref("String")}}, HasBody: true},
			},
			Nested: []*TypeDecl{{
				Name: "Line",
				Kind: KindInterface,
				Methods: []*MethodDecl{
					{Name: "total", ReturnType: Ref("int")},
					{Name: "label", ReturnType: Ref("String"), Modifiers: ModDefault, HasBody: true},
				},
			}},
		}},
	})
}

func TestHandles(t *testing.T) {
	t.Parallel()

	cu := sampleUnit()
	order := cu.Types[0]
	line := order.Nested[0]

	assert.Equal(t, "com.acme.Order", order.Handle())
	assert.Equal(t, "com.acme.Order.Line", line.Handle())
	assert.Equal(t, "com.acme.Order#id", order.Fields[0].Handle())
	assert.Equal(t, "com.acme.Order#find(long[],List)", order.Methods[0].Handle())
	assert.Equal(t, "com.acme.Order#<init>(String)", order.Constructors[0].Handle())
	assert.Equal(t, DeclConstructor, order.Constructors[0].DeclKind())
	assert.Equal(t, ConstructorName, order.Constructors[0].SimpleName())
}

func TestLink(t *testing.T) {
	t.Parallel()

	cu := sampleUnit()
	order := cu.Types[0]
	line := order.Nested[0]

	assert.Same(t, order, order.Fields[0].Owner)
	assert.Same(t, order, line.Outer)
	assert.Same(t, cu, line.File)
	assert.Same(t, line, line.Methods[0].Enclosing())
	assert.Same(t, order, order.Enclosing())
	assert.Equal(t, "Order", order.Constructors[0].Name)
}

func TestPrimaryTypeAndFindType(t *testing.T) {
	t.Parallel()

	cu := sampleUnit()
	assert.Equal(t, "Order", cu.PrimaryType().Name)

	nested := cu.FindType("Order.Line")
	require.NotNil(t, nested)
	assert.Equal(t, "Line", nested.Name)
	assert.Nil(t, cu.FindType("Order.Missing"))
	assert.Len(t, cu.AllTypes(), 2)

	pkgPrivate := Link(&CompilationUnit{
		Path:  "Helper.java",
		Types: []*TypeDecl{{Name: "Other"}, {Name: "Helper"}},
	})
	assert.Equal(t, "Helper", pkgPrivate.PrimaryType().Name)
}

func TestIsAbstract(t *testing.T) {
	t.Parallel()

	cu := sampleUnit()
	order := cu.Types[0]
	line := order.Nested[0]

	assert.False(t, order.Methods[0].IsAbstract())
	assert.True(t, order.Methods[1].IsAbstract())
	assert.True(t, line.Methods[0].IsAbstract())
	assert.False(t, line.Methods[1].IsAbstract())
}

func TestTypeRef(t *testing.T) {
	t.Parallel()

	r := Ref("java.util.List[][]", Ref("String"))
	assert.Equal(t, 2, r.Dims)
	assert.Equal(t, "java.util.List", r.Name)
	assert.Equal(t, "List[][]", r.Erasure())
	assert.Equal(t, "java.util.List<String>[][]", r.String())
	assert.Equal(t, 1, r.Component().Dims)
	assert.False(t, r.Element().IsArray())
	assert.True(t, Ref("int").IsPrimitive())
	assert.False(t, Ref("int[]").IsPrimitive())
	assert.Equal(t, "java.util", PackageOf("java.util.List"))
}

func TestFindAnnotation(t *testing.T) {
	t.Parallel()

	anns := []Annotation{{Name: "lombok.Data"}, {Name: "Getter"}}
	a, ok := FindAnnotation(anns, "Data")
	require.True(t, ok)
	assert.Equal(t, "lombok.Data", a.Name)
	_, ok = FindAnnotation(anns, "Setter")
	assert.False(t, ok)
}

func TestScopeChain(t *testing.T) {
	t.Parallel()

	// repo.find(id).items
	e := Field(Call(NameExpr("repo"), "find", NameExpr("id")), "items")
	chain := e.ScopeChain()
	require.Len(t, chain, 3)
	assert.Equal(t, ExprName, chain[0].Kind)
	assert.Equal(t, "repo", chain[0].Name)
	assert.Equal(t, "find", chain[1].Name)
	assert.Equal(t, "items", chain[2].Name)

	unqualified := Call(nil, "helper")
	assert.Len(t, unqualified.ScopeChain(), 1)
}

func TestImportString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "import static org.junit.Assert.*;", Import{Name: "org.junit.Assert", Static: true, Asterisk: true}.String())
	assert.Equal(t, "List", Import{Name: "java.util.List"}.SimpleName())
	assert.Empty(t, Import{Name: "java.util", Asterisk: true}.SimpleName())
}

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		dims int
	}{
		{"String", "String", 0},
		{"int[][]", "int[][]", 2},
		{"java.util.Map<K, java.util.List<V>>", "java.util.Map<K, java.util.List<V>>", 0},
		{"List<? extends Number>", "List<Number>", 0},
		{"Class<?>", "Class<Object>", 0},
		{"Comparator<? super T>", "Comparator<Object>", 0},
		{"Object...", "Object[]", 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseType(tt.in)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.dims, got.Dims)
		})
	}
}

func TestInPackage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fqn, pkg string
		want     bool
	}{
		{"com.shop.Cart", "", true},
		{"com.shop.Cart", "com.shop", true},
		{"com.shop.model.Item", "com.shop", true},
		{"com.shop", "com.shop", true},
		{"com.shopping.Cart", "com.shop", false},
		{"org.acme.Ghost", "com.shop", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InPackage(tt.fqn, tt.pkg), "%s in %q", tt.fqn, tt.pkg)
	}
}
