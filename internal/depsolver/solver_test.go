package depsolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/index"
	"github.com/mvp-joe/depsolver/internal/oracle"
	"github.com/mvp-joe/depsolver/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Solver:
// - A leaf method's closure is the method alone
// - Self and mutual recursion terminate with each callable visited once
// - Object creation reaches the matched constructor and the fields it
//   assigns, but not unrelated fields; imports land in the right stubs
// - Getter inference maps getSku() on a marked type to the sku field
// - Boxing coercion matches reserve(Integer) from an int argument and
//   records the coerced argument types
// - Static imports bind fields and methods and copy the import line
// - Call arguments pick overloads by inferred type: a conditional takes
//   its first non-null branch and evaluates both, an array access its
//   component type, a nested call its return type; method references
//   register every overload they name
// - Locals shadow fields of the same name
// - Generic receivers carry type arguments into call return types
// - Abstract methods pull in the override on the receiver's type
// - Missing sources are reported under the log policy and abort the
//   target under the abort policy
// - Unknown imports outside the base package are external, not missing
// - A malformed file fails only its target in SolveAll
// - Cancellation stops the solve between nodes

var shop = map[string]string{
	"com/shop/model/Item.java": `package com.shop.model;
import lombok.Data;
@Data
public class Item {
    private String sku;
    private int qty;
    private Money price;
    public Item(String sku, int qty) { this.sku = sku; this.qty = qty; }
    public int weight() { return qty * 2; }
}
`,
	"com/shop/model/Money.java": `package com.shop.model;
public class Money {
    private long cents;
    public Money(long cents) { this.cents = cents; }
    public long cents() { return cents; }
}
`,
	"com/shop/util/Text.java": `package com.shop.util;
public final class Text {
    public static final int WIDTH = 40;
    public static String pad(String s, int n) { return s; }
    public static String unused() { return ""; }
}
`,
	"com/shop/service/Cart.java": `package com.shop.service;
import com.shop.model.*;
import static com.shop.util.Text.pad;
import static com.shop.util.Text.WIDTH;
import java.util.List;
import java.util.ArrayList;
public class Cart {
    private List<Item> items = new ArrayList<>();
    private String label;
    private int count;
    public void add(String sku, int qty) { items.add(new Item(sku, qty)); }
    public String title() { return pad(label, WIDTH); }
    public String firstSku() { return items.get(0).getSku(); }
    public void reserve(Integer n) {}
    public void hold(int n) { reserve(n); }
    public int shadow(String label) { return label.length(); }
    public int countdown(int n) { return n <= 0 ? 0 : countdown(n - 1); }
    public boolean ping(int n) { return pong(n); }
    public boolean pong(int n) { return n > 0 && ping(n - 1); }
    private void secret() {}
}
`,
	"com/shop/service/Shape.java": `package com.shop.service;
public abstract class Shape {
    public abstract double area();
    public String describe() { return "shape " + area(); }
}
`,
	"com/shop/service/Square.java": `package com.shop.service;
public class Square extends Shape {
    private double side;
    public double area() { return side * side; }
    public double measure() { Square s = this; return s.area(); }
}
`,
	"com/shop/service/Ledger.java": `package com.shop.service;
import com.shop.model.Item;
import com.shop.model.Money;
import com.shop.util.Text;
import java.util.List;
public class Ledger {
    private Item item;
    private Money money;
    private Item[] shelf;
    private List<String> names;
    public void use(Item i) {}
    public void use(Money m) {}
    public void use(String s) {}
    public void either(boolean f) { use(f ? null : money); }
    public void both(boolean f) { use(f ? item : money); }
    public void first() { use(shelf[0]); }
    public void padAll() { names.forEach(Text::pad); }
    public void useAll() { names.forEach(this::use); }
    public void nested() { use(make()); }
    public void padded() { use(Text.pad("a", 1)); }
    public Money make() { return money; }
}
`,
	"com/shop/service/Legacy.java": `package com.shop.service;
import com.shop.gone.Ghost;
public class Legacy {
    public Object load() { return new Ghost(); }
}
`,
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, src := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func newSolver(t *testing.T, files map[string]string, opts Options) *Solver {
	t.Helper()
	idx, err := index.New(index.Options{Roots: []string{writeCorpus(t, files)}})
	require.NoError(t, err)
	t.Cleanup(idx.Close)
	o, err := oracle.NewWithBuiltins()
	require.NoError(t, err)
	o.Add(oracle.TypeDescriptor{Name: "lombok.Data", Kind: decl.KindAnnotation})
	return New(idx, o, opts)
}

func solveMethod(t *testing.T, s *Solver, typ, method string) *Result {
	t.Helper()
	res, err := s.SolveMethod(context.Background(), typ, method)
	require.NoError(t, err)
	return res
}

func TestSolver_LeafClosure(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.util.Text", "unused")

	assert.Equal(t, []string{"com.shop.util.Text#unused()"}, res.Handles())
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Fallbacks)
	for _, n := range res.Nodes {
		assert.True(t, n.Visited())
	}
}

func TestSolver_RecursionTerminates(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})

	res := solveMethod(t, s, "com.shop.service.Cart", "countdown")
	assert.Equal(t, []string{"com.shop.service.Cart#countdown(int)"}, res.Handles())

	s.Reset()
	res = solveMethod(t, s, "com.shop.service.Cart", "ping")
	assert.Equal(t, []string{
		"com.shop.service.Cart#ping(int)",
		"com.shop.service.Cart#pong(int)",
	}, res.Handles())
}

func TestSolver_ObjectCreation(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Cart", "add")

	assert.ElementsMatch(t, []string{
		"com.shop.service.Cart#add(String,int)",
		"com.shop.model.Item",
		"com.shop.model.Item#<init>(String,int)",
		"com.shop.service.Cart#items",
		"com.shop.model.Item#sku",
		"com.shop.model.Item#qty",
	}, res.Handles())
	assert.False(t, res.Contains("com.shop.model.Item#price"))
	assert.False(t, res.Contains("com.shop.model.Money"))
	assert.Contains(t, res.External, "java.util.List")
	assert.Contains(t, res.External, "java.util.ArrayList")
	assert.Contains(t, res.External, "lombok.Data")

	cart := res.Stub("com.shop.service.Cart")
	require.NotNil(t, cart)
	assert.Equal(t, []decl.Import{
		{Name: "com.shop.model.Item"},
		{Name: "java.util.ArrayList"},
		{Name: "java.util.List"},
	}, cart.Imports())
	assert.Len(t, cart.Fields(), 1)
	assert.Len(t, cart.Methods(), 1)

	item := res.Stub("com.shop.model.Item")
	require.NotNil(t, item)
	assert.Equal(t, []decl.Import{{Name: "lombok.Data"}}, item.Imports())
	assert.Len(t, item.Fields(), 2)
	assert.Len(t, item.Constructors(), 1)
	assert.Empty(t, item.Methods())

	rep := res.Report(Target{Type: "com.shop.service.Cart", Method: "add"})
	assert.Len(t, rep.Nodes, 6)
	assert.Len(t, rep.Stubs, 2)
}

func TestSolver_GetterInference(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Cart", "firstSku")

	assert.True(t, res.Contains("com.shop.model.Item#sku"))
	assert.False(t, res.Contains("com.shop.model.Item#qty"))
	require.Len(t, res.Fallbacks, 1)
	fb := res.Fallbacks[0]
	assert.Equal(t, resolve.StrategyGetterInference, fb.Strategy)
	assert.Equal(t, "com.shop.service.Cart#firstSku()", fb.From)
	assert.Equal(t, "getSku", fb.Call)
	assert.Equal(t, []string{"com.shop.model.Item#sku"}, fb.Targets)
}

func TestSolver_GetterInferenceNeedsMarker(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{GetterMarkers: []string{"Getter"}})
	res := solveMethod(t, s, "com.shop.service.Cart", "firstSku")

	assert.False(t, res.Contains("com.shop.model.Item#sku"))
	assert.Empty(t, res.Fallbacks)
}

func TestSolver_BoxingCoercion(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Cart", "hold")

	assert.Equal(t, []string{
		"com.shop.service.Cart#hold(int)",
		"com.shop.service.Cart#reserve(Integer)",
	}, res.Handles())
	require.Len(t, res.Fallbacks, 1)
	fb := res.Fallbacks[0]
	assert.Equal(t, resolve.StrategyCoerced, fb.Strategy)
	assert.Equal(t, "com.shop.service.Cart#hold(int)", fb.From)
	assert.Equal(t, "reserve", fb.Call)
	assert.Equal(t, []string{"com.shop.service.Cart#reserve(Integer)"}, fb.Targets)
	assert.Equal(t, []string{"java.lang.Integer"}, fb.ArgTypes)
}

func TestSolver_ArgumentInference(t *testing.T) {
	t.Parallel()

	const (
		useItem   = "com.shop.service.Ledger#use(Item)"
		useMoney  = "com.shop.service.Ledger#use(Money)"
		useString = "com.shop.service.Ledger#use(String)"
	)
	tests := []struct {
		name   string
		method string
		want   []string
		absent []string
	}{
		{
			name:   "conditional skips null branch",
			method: "either",
			want:   []string{useMoney, "com.shop.service.Ledger#money"},
			absent: []string{useItem, useString},
		},
		{
			name:   "conditional evaluates both branches",
			method: "both",
			want:   []string{useItem, "com.shop.service.Ledger#item", "com.shop.service.Ledger#money"},
			absent: []string{useMoney, useString},
		},
		{
			name:   "array access uses component type",
			method: "first",
			want:   []string{useItem, "com.shop.service.Ledger#shelf"},
			absent: []string{useMoney, useString},
		},
		{
			name:   "static method reference",
			method: "padAll",
			want:   []string{"com.shop.util.Text#pad(String,int)", "com.shop.service.Ledger#names"},
			absent: []string{"com.shop.util.Text#unused()"},
		},
		{
			name:   "bound method reference takes every overload",
			method: "useAll",
			want:   []string{useItem, useMoney, useString},
		},
		{
			name:   "nested call return type",
			method: "nested",
			want:   []string{"com.shop.service.Ledger#make()", useMoney},
			absent: []string{useItem, useString},
		},
		{
			name:   "nested static call return type",
			method: "padded",
			want:   []string{"com.shop.util.Text#pad(String,int)", useString},
			absent: []string{useItem, useMoney},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSolver(t, shop, Options{})
			res := solveMethod(t, s, "com.shop.service.Ledger", tt.method)
			for _, h := range tt.want {
				assert.True(t, res.Contains(h), "missing %s in %v", h, res.Handles())
			}
			for _, h := range tt.absent {
				assert.False(t, res.Contains(h), "unexpected %s in %v", h, res.Handles())
			}
		})
	}
}

func TestSolver_StaticImports(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Cart", "title")

	assert.True(t, res.Contains("com.shop.service.Cart#label"))
	assert.True(t, res.Contains("com.shop.util.Text#WIDTH"))
	assert.True(t, res.Contains("com.shop.util.Text#pad(String,int)"))
	assert.False(t, res.Contains("com.shop.util.Text#unused()"))

	cart := res.Stub("com.shop.service.Cart")
	require.NotNil(t, cart)
	assert.Equal(t, []decl.Import{
		{Name: "com.shop.util.Text.WIDTH", Static: true},
		{Name: "com.shop.util.Text.pad", Static: true},
	}, cart.Imports())

	require.Len(t, res.Fallbacks, 1)
	assert.Equal(t, resolve.StrategyStaticImport, res.Fallbacks[0].Strategy)
}

func TestSolver_LocalsShadowFields(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Cart", "shadow")

	assert.Equal(t, []string{"com.shop.service.Cart#shadow(String)"}, res.Handles())
	assert.Contains(t, res.External, "java.lang.String")
}

func TestSolver_ResolveNameOrder(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	cart := s.Resolver().SourceType("com.shop.service.Cart")
	require.NotNil(t, cart)
	n := s.Registry().CreateNode(cart.MethodsByName("add")[0])

	sym, ok := s.ResolveName(n, "items")
	require.True(t, ok)
	assert.Equal(t, SymbolField, sym.Kind)
	assert.Equal(t, "java.util.List<com.shop.model.Item>", sym.Type.String())
	require.NotNil(t, sym.Node)
	assert.Equal(t, "com.shop.service.Cart#items", sym.Node.Handle())

	s.locals["items"] = decl.TypeRef{Name: "int"}
	sym, ok = s.ResolveName(n, "items")
	require.True(t, ok)
	assert.Equal(t, SymbolLocal, sym.Kind)
	assert.Equal(t, "int", sym.Type.Name)

	sym, ok = s.ResolveName(n, "WIDTH")
	require.True(t, ok)
	assert.Equal(t, SymbolStatic, sym.Kind)
	assert.Equal(t, "int", sym.Type.Name)

	sym, ok = s.ResolveName(n, "Money")
	require.True(t, ok)
	assert.Equal(t, SymbolType, sym.Kind)
	assert.Equal(t, "com.shop.model.Money", sym.Type.Name)
	require.NotNil(t, sym.Node)

	_, ok = s.ResolveName(n, "nothingHere")
	assert.False(t, ok)
}

func TestSolver_GenericReturnTypes(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	cart := s.Resolver().SourceType("com.shop.service.Cart")
	require.NotNil(t, cart)
	n := s.Registry().CreateNode(cart.MethodsByName("firstSku")[0])

	get := decl.Call(decl.NameExpr("items"), "get", decl.Literal("int", "0"))
	v := s.eval(n, get)
	assert.Equal(t, "com.shop.model.Item", v.typ.Name)

	node := s.ResolveChain(n, decl.Field(decl.NameExpr("items"), "nope"))
	assert.Nil(t, node)

	node = s.ResolveChain(n, decl.Field(decl.This(), "label"))
	require.NotNil(t, node)
	assert.Equal(t, "com.shop.service.Cart#label", node.Handle())
}

func TestSolver_AbstractOverride(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res := solveMethod(t, s, "com.shop.service.Square", "measure")

	assert.True(t, res.Contains("com.shop.service.Square#area()"))
	assert.True(t, res.Contains("com.shop.service.Square#side"))
	assert.True(t, res.Contains("com.shop.service.Square"))
	// supertypes are registered when the subtype is first visited
	assert.True(t, res.Contains("com.shop.service.Shape"))
	assert.False(t, res.Contains("com.shop.service.Shape#area()"))
	sq := res.Stub("com.shop.service.Square")
	require.NotNil(t, sq)
	assert.Equal(t, []string{"Shape"}, sq.Extends)

	s.Reset()
	res = solveMethod(t, s, "com.shop.service.Shape", "describe")
	assert.True(t, res.Contains("com.shop.service.Shape#area()"))
	assert.False(t, res.Contains("com.shop.service.Square#area()"))

	s.Reset()
	square := s.Resolver().SourceType("com.shop.service.Square")
	shape := s.Resolver().SourceType("com.shop.service.Shape")
	require.NotNil(t, square)
	require.NotNil(t, shape)
	s.registerCall(square, shape.MethodsByName("area")[0])
	_, ok := s.Registry().Get("com.shop.service.Shape#area()")
	assert.True(t, ok)
	_, ok = s.Registry().Get("com.shop.service.Square#area()")
	assert.True(t, ok, "the override on the receiver is registered too")
}

func TestSolver_MissingSourcePolicy(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{MissingSource: MissingSourceLog})
	res, err := s.SolveMethod(context.Background(), "com.shop.service.Legacy", "load")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.shop.gone.Ghost"}, res.Missing)
	assert.True(t, res.Contains("com.shop.service.Legacy#load()"))

	s = newSolver(t, shop, Options{MissingSource: MissingSourceAbort})
	_, err = s.SolveMethod(context.Background(), "com.shop.service.Legacy", "load")
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestSolver_BasePackageScopesMissing(t *testing.T) {
	t.Parallel()

	inside := newSolver(t, shop, Options{MissingSource: MissingSourceAbort, BasePackage: "com.shop"})
	_, err := inside.SolveMethod(context.Background(), "com.shop.service.Legacy", "load")
	assert.ErrorIs(t, err, ErrMissingSource)

	outside := newSolver(t, shop, Options{MissingSource: MissingSourceAbort, BasePackage: "com.shop.service"})
	res, err := outside.SolveMethod(context.Background(), "com.shop.service.Legacy", "load")
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.Contains(t, res.External, "com.shop.gone.Ghost")
	legacy := res.Stub("com.shop.service.Legacy")
	require.NotNil(t, legacy)
	assert.Equal(t, []decl.Import{{Name: "com.shop.gone.Ghost"}}, legacy.Imports())
}

func TestSolver_UnknownTarget(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	_, err := s.SolveMethod(context.Background(), "com.shop.Nope", "x")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = s.SolveMethod(context.Background(), "com.shop.service.Cart", "secret")
	assert.ErrorIs(t, err, ErrUnknownTarget, "private methods are not seeds")
}

func TestSolver_SolveAllIsolatesMalformed(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"com/shop/broken/Broken.java": "package com.shop.broken; public class Broken { void x( { }",
		"com/shop/service/Uses.java": `package com.shop.service;
import com.shop.broken.Broken;
public class Uses {
    public void run() { Broken b = null; }
}
`,
		"com/shop/util/Text.java": shop["com/shop/util/Text.java"],
	}
	s := newSolver(t, files, Options{})

	var seen []string
	outcomes := s.SolveAll(context.Background(), []Target{
		{Type: "com.shop.service.Uses", Method: "run"},
		{Type: "com.shop.util.Text", Method: "unused"},
	}, func(o Outcome) { seen = append(seen, o.Target.String()) })

	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, ErrMalformedSource)
	assert.ErrorIs(t, outcomes[0].Err, index.ErrMalformedDeclaration)
	require.NoError(t, outcomes[1].Err)
	assert.Equal(t, []string{"com.shop.util.Text#unused()"}, outcomes[1].Result.Handles())
	assert.Equal(t, []string{"com.shop.service.Uses#run", "com.shop.util.Text#unused"}, seen)
	assert.Equal(t, 0, s.Registry().Len())
}

func TestSolver_SolveTypeSeedsMethods(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	res, err := s.SolveType(context.Background(), "com.shop.model.Money")
	require.NoError(t, err)
	assert.True(t, res.Contains("com.shop.model.Money#cents()"))
	assert.True(t, res.Contains("com.shop.model.Money#cents"))
	assert.False(t, res.Contains("com.shop.model.Money#<init>(long)"))
}

func TestSolver_Cancelled(t *testing.T) {
	t.Parallel()

	s := newSolver(t, shop, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SolveMethod(ctx, "com.shop.service.Cart", "add")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tg, err := ParseTarget("com.shop.service.Cart#add")
	require.NoError(t, err)
	assert.Equal(t, Target{Type: "com.shop.service.Cart", Method: "add"}, tg)

	tg, err = ParseTarget(" com.shop.model.Item ")
	require.NoError(t, err)
	assert.Equal(t, "com.shop.model.Item", tg.String())

	_, err = ParseTarget("#add")
	assert.Error(t, err)
}
