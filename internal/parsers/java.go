// Package parsers turns Java source files into decl compilation units using
// tree-sitter.
package parsers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// ErrSyntax is returned when tree-sitter reports error or missing nodes.
var ErrSyntax = errors.New("syntax error")

// JavaParser parses Java files into declaration models.
// It is safe for concurrent use; every call creates its own tree-sitter parser.
type JavaParser struct {
	language *sitter.Language
}

// NewJavaParser creates a new Java parser.
func NewJavaParser() *JavaParser {
	return &JavaParser{language: sitter.NewLanguage(java.Language())}
}

// ParseFile reads and parses a Java source file.
func (p *JavaParser) ParseFile(ctx context.Context, filePath string) (*decl.CompilationUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return p.Parse(filePath, source)
}

// Parse parses Java source. Files containing syntax errors yield ErrSyntax.
func (p *JavaParser) Parse(filePath string, source []byte) (*decl.CompilationUnit, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set java language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s: parser returned no tree", ErrSyntax, filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := lineOf(firstError(root))
		return nil, fmt.Errorf("%w: %s:%d", ErrSyntax, filePath, line)
	}

	u := &unitBuilder{source: source, cu: &decl.CompilationUnit{Path: filePath}}
	u.build(root)
	return decl.Link(u.cu), nil
}

// unitBuilder carries the source buffer while converting one tree.
type unitBuilder struct {
	source []byte
	cu     *decl.CompilationUnit
}

func (u *unitBuilder) text(n *sitter.Node) string {
	return extractNodeText(n, u.source)
}

func (u *unitBuilder) build(root *sitter.Node) {
	for _, child := range namedChildren(root) {
		switch child.Kind() {
		case "package_declaration":
			nameNode := findChildByType(child, "scoped_identifier")
			if nameNode == nil {
				nameNode = findChildByType(child, "identifier")
			}
			u.cu.Package = u.text(nameNode)
		case "import_declaration":
			u.cu.Imports = append(u.cu.Imports, u.importDecl(child))
		default:
			if t := u.typeDecl(child); t != nil {
				u.cu.Types = append(u.cu.Types, t)
			}
		}
	}
}

func (u *unitBuilder) importDecl(n *sitter.Node) decl.Import {
	imp := decl.Import{
		Static:   findChildByType(n, "static") != nil,
		Asterisk: findChildByType(n, "asterisk") != nil,
	}
	nameNode := findChildByType(n, "scoped_identifier")
	if nameNode == nil {
		nameNode = findChildByType(n, "identifier")
	}
	imp.Name = u.text(nameNode)
	return imp
}

// typeDecl converts any of the five type declaration forms; other nodes yield nil.
func (u *unitBuilder) typeDecl(n *sitter.Node) *decl.TypeDecl {
	var kind decl.TypeKind
	switch n.Kind() {
	case "class_declaration":
		kind = decl.KindClass
	case "interface_declaration":
		kind = decl.KindInterface
	case "enum_declaration":
		kind = decl.KindEnum
	case "record_declaration":
		kind = decl.KindRecord
	case "annotation_type_declaration":
		kind = decl.KindAnnotation
	default:
		return nil
	}

	t := &decl.TypeDecl{
		Name: u.text(n.ChildByFieldName("name")),
		Kind: kind,
		Line: lineOf(n),
	}
	t.Modifiers, t.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	t.TypeParams = u.typeParams(n.ChildByFieldName("type_parameters"))

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, c := range namedChildren(sc) {
			t.Extends = append(t.Extends, u.typeRef(c))
		}
	}
	if ext := findChildByType(n, "extends_interfaces"); ext != nil {
		t.Extends = append(t.Extends, u.typeList(findChildByType(ext, "type_list"))...)
	}
	if impl := n.ChildByFieldName("interfaces"); impl != nil {
		t.Implements = u.typeList(findChildByType(impl, "type_list"))
	}

	if kind == decl.KindRecord {
		u.recordComponents(t, n.ChildByFieldName("parameters"))
	}

	body := n.ChildByFieldName("body")
	switch kind {
	case decl.KindEnum:
		u.enumBody(t, body)
	default:
		u.members(t, body)
	}

	if kind == decl.KindRecord {
		u.recordImplicitMembers(t)
	}
	return t
}

// members converts the declarations of a class, interface or annotation body.
func (u *unitBuilder) members(t *decl.TypeDecl, body *sitter.Node) {
	for _, m := range namedChildren(body) {
		switch m.Kind() {
		case "field_declaration", "constant_declaration":
			t.Fields = append(t.Fields, u.fieldDecl(m, t))
		case "method_declaration":
			t.Methods = append(t.Methods, u.methodDecl(m, t))
		case "annotation_type_element_declaration":
			t.Methods = append(t.Methods, u.annotationElement(m))
		case "constructor_declaration":
			t.Constructors = append(t.Constructors, u.constructorDecl(m, t))
		case "compact_constructor_declaration":
			t.Constructors = append(t.Constructors, u.compactConstructor(m, t))
		case "static_initializer":
			t.Initializers = append(t.Initializers, u.blockStmt(findChildByType(m, "block"), t))
		case "block":
			t.Initializers = append(t.Initializers, u.blockStmt(m, t))
		default:
			if nested := u.typeDecl(m); nested != nil {
				t.Nested = append(t.Nested, nested)
			}
		}
	}
}

// enumBody turns constants into static fields typed by the enum, with an
// object creation initializer so the selected constructor is reachable.
func (u *unitBuilder) enumBody(t *decl.TypeDecl, body *sitter.Node) {
	for _, c := range namedChildren(body) {
		switch c.Kind() {
		case "enum_constant":
			args := u.arguments(c.ChildByFieldName("arguments"), t)
			init := decl.New(decl.Ref(t.Name), args...)
			if cb := c.ChildByFieldName("body"); cb != nil {
				init.Body = u.anonymousBody(cb, t)
			}
			_, anns := u.modifiers(findChildByType(c, "modifiers"))
			t.Fields = append(t.Fields, &decl.FieldDecl{
				Names:        []string{u.text(c.ChildByFieldName("name"))},
				Type:         decl.Ref(t.Name),
				Modifiers:    decl.ModPublic | decl.ModStatic | decl.ModFinal,
				Annotations:  anns,
				Initializers: []*decl.Expr{init},
				EnumConstant: true,
				Line:         lineOf(c),
			})
		case "enum_body_declarations":
			u.members(t, c)
		}
	}
}

func (u *unitBuilder) recordComponents(t *decl.TypeDecl, params *sitter.Node) {
	for _, p := range u.params(params) {
		t.Fields = append(t.Fields, &decl.FieldDecl{
			Names:        []string{p.Name},
			Type:         p.Type,
			Modifiers:    decl.ModPrivate | decl.ModFinal,
			Annotations:  p.Annotations,
			Initializers: []*decl.Expr{nil},
			Line:         t.Line,
		})
	}
}

// recordImplicitMembers adds accessors and the canonical constructor when
// the source does not declare them.
func (u *unitBuilder) recordImplicitMembers(t *decl.TypeDecl) {
	var params []decl.Param
	for _, f := range t.Fields {
		if f.Modifiers.Has(decl.ModStatic) {
			continue
		}
		name := f.SimpleName()
		params = append(params, decl.Param{Name: name, Type: f.Type})
		if len(t.MethodsByName(name)) > 0 {
			continue
		}
		t.Methods = append(t.Methods, &decl.MethodDecl{
			Name:       name,
			ReturnType: f.Type,
			Modifiers:  decl.ModPublic,
			Body:       []*decl.Stmt{decl.Return(decl.Field(decl.This(), name))},
			HasBody:    true,
			Line:       t.Line,
		})
	}
	for _, c := range t.Constructors {
		if len(c.Params) == len(params) {
			return
		}
	}
	t.Constructors = append(t.Constructors, &decl.MethodDecl{
		Params:    params,
		Modifiers: decl.ModPublic,
		HasBody:   true,
		Line:      t.Line,
	})
}

func (u *unitBuilder) fieldDecl(n *sitter.Node, owner *decl.TypeDecl) *decl.FieldDecl {
	f := &decl.FieldDecl{
		Type: u.typeRef(n.ChildByFieldName("type")),
		Line: lineOf(n),
	}
	f.Modifiers, f.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	if owner.IsInterface() {
		f.Modifiers |= decl.ModPublic | decl.ModStatic | decl.ModFinal
	}
	for _, d := range findChildrenByType(n, "variable_declarator") {
		f.Names = append(f.Names, u.text(d.ChildByFieldName("name")))
		var init *decl.Expr
		if v := d.ChildByFieldName("value"); v != nil {
			init = u.expr(v, owner)
		}
		f.Initializers = append(f.Initializers, init)
	}
	return f
}

func (u *unitBuilder) methodDecl(n *sitter.Node, owner *decl.TypeDecl) *decl.MethodDecl {
	m := &decl.MethodDecl{
		Name:       u.text(n.ChildByFieldName("name")),
		TypeParams: u.typeParams(n.ChildByFieldName("type_parameters")),
		Params:     u.params(n.ChildByFieldName("parameters")),
		ReturnType: u.typeRef(n.ChildByFieldName("type")),
		Throws:     u.throws(findChildByType(n, "throws")),
		Line:       lineOf(n),
	}
	if dims := n.ChildByFieldName("dimensions"); dims != nil {
		m.ReturnType.Dims += countDims(dims)
	}
	m.Modifiers, m.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	if body := n.ChildByFieldName("body"); body != nil {
		m.HasBody = true
		m.Body = u.statements(body, owner)
	}
	if owner.IsInterface() && !m.Modifiers.Has(decl.ModPrivate) {
		m.Modifiers |= decl.ModPublic
	}
	return m
}

func (u *unitBuilder) annotationElement(n *sitter.Node) *decl.MethodDecl {
	m := &decl.MethodDecl{
		Name:       u.text(n.ChildByFieldName("name")),
		ReturnType: u.typeRef(n.ChildByFieldName("type")),
		Line:       lineOf(n),
	}
	m.Modifiers, m.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	m.Modifiers |= decl.ModPublic
	return m
}

func (u *unitBuilder) constructorDecl(n *sitter.Node, owner *decl.TypeDecl) *decl.MethodDecl {
	c := &decl.MethodDecl{
		Constructor: true,
		TypeParams:  u.typeParams(n.ChildByFieldName("type_parameters")),
		Params:      u.params(n.ChildByFieldName("parameters")),
		Throws:      u.throws(findChildByType(n, "throws")),
		Line:        lineOf(n),
	}
	c.Modifiers, c.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	if body := n.ChildByFieldName("body"); body != nil {
		c.HasBody = true
		c.Body = u.statements(body, owner)
	}
	return c
}

// compactConstructor expands a record's compact canonical constructor to
// take every component.
func (u *unitBuilder) compactConstructor(n *sitter.Node, owner *decl.TypeDecl) *decl.MethodDecl {
	c := &decl.MethodDecl{Constructor: true, HasBody: true, Line: lineOf(n)}
	c.Modifiers, c.Annotations = u.modifiers(findChildByType(n, "modifiers"))
	for _, f := range owner.Fields {
		if !f.Modifiers.Has(decl.ModStatic) {
			c.Params = append(c.Params, decl.Param{Name: f.SimpleName(), Type: f.Type})
		}
	}
	c.Body = u.statements(n.ChildByFieldName("body"), owner)
	return c
}

func (u *unitBuilder) params(n *sitter.Node) []decl.Param {
	var out []decl.Param
	for _, p := range namedChildren(n) {
		switch p.Kind() {
		case "formal_parameter":
			param := decl.Param{
				Name: u.text(p.ChildByFieldName("name")),
				Type: u.typeRef(p.ChildByFieldName("type")),
			}
			if dims := p.ChildByFieldName("dimensions"); dims != nil {
				param.Type.Dims += countDims(dims)
			}
			_, param.Annotations = u.modifiers(findChildByType(p, "modifiers"))
			out = append(out, param)
		case "spread_parameter":
			param := decl.Param{Varargs: true}
			for _, c := range namedChildren(p) {
				switch c.Kind() {
				case "modifiers":
					_, param.Annotations = u.modifiers(c)
				case "variable_declarator":
					param.Name = u.text(c.ChildByFieldName("name"))
				case "annotation", "marker_annotation":
				default:
					param.Type = u.typeRef(c)
				}
			}
			param.Type.Dims++
			out = append(out, param)
		}
	}
	return out
}

func (u *unitBuilder) throws(n *sitter.Node) []decl.TypeRef {
	var out []decl.TypeRef
	for _, c := range namedChildren(n) {
		out = append(out, u.typeRef(c))
	}
	return out
}

func (u *unitBuilder) typeParams(n *sitter.Node) []string {
	var out []string
	for _, p := range findChildrenByType(n, "type_parameter") {
		if id := findChildByType(p, "type_identifier"); id != nil {
			out = append(out, u.text(id))
		} else if id := findChildByType(p, "identifier"); id != nil {
			out = append(out, u.text(id))
		}
	}
	return out
}

func (u *unitBuilder) typeList(n *sitter.Node) []decl.TypeRef {
	var out []decl.TypeRef
	for _, c := range namedChildren(n) {
		out = append(out, u.typeRef(c))
	}
	return out
}

// typeRef converts any type node to a TypeRef. Wildcards reduce to their
// bound, or Object when unbounded.
func (u *unitBuilder) typeRef(n *sitter.Node) decl.TypeRef {
	if n == nil {
		return decl.TypeRef{}
	}
	switch n.Kind() {
	case "type_identifier", "identifier", "integral_type", "floating_point_type", "boolean_type", "void_type":
		return decl.TypeRef{Name: u.text(n)}
	case "scoped_type_identifier", "scoped_identifier":
		var parts []string
		var args []decl.TypeRef
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "annotation", "marker_annotation":
				continue
			}
			r := u.typeRef(c)
			parts = append(parts, r.Name)
			args = r.Args
		}
		return decl.TypeRef{Name: strings.Join(parts, "."), Args: args}
	case "generic_type":
		var ref decl.TypeRef
		for _, c := range namedChildren(n) {
			if c.Kind() == "type_arguments" {
				for _, a := range namedChildren(c) {
					switch a.Kind() {
					case "annotation", "marker_annotation":
						continue
					}
					ref.Args = append(ref.Args, u.typeRef(a))
				}
				continue
			}
			ref.Name = u.typeRef(c).Name
		}
		return ref
	case "array_type":
		ref := u.typeRef(n.ChildByFieldName("element"))
		ref.Dims += countDims(n.ChildByFieldName("dimensions"))
		return ref
	case "wildcard":
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "annotation", "marker_annotation", "super":
				continue
			}
			return u.typeRef(c)
		}
		return decl.Ref("Object")
	case "annotated_type":
		children := namedChildren(n)
		if len(children) > 0 {
			return u.typeRef(children[len(children)-1])
		}
	}
	return decl.Ref(u.text(n))
}

// modifiers splits a modifiers node into keyword bits and annotations.
func (u *unitBuilder) modifiers(n *sitter.Node) (decl.Modifiers, []decl.Annotation) {
	var mods decl.Modifiers
	var anns []decl.Annotation
	if n == nil {
		return mods, anns
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		switch c.Kind() {
		case "annotation", "marker_annotation":
			anns = append(anns, u.annotation(c, nil))
		default:
			mods |= decl.ParseModifier(c.Kind())
		}
	}
	return mods, anns
}

func (u *unitBuilder) annotation(n *sitter.Node, owner *decl.TypeDecl) decl.Annotation {
	a := decl.Annotation{Name: u.text(n.ChildByFieldName("name"))}
	args := n.ChildByFieldName("arguments")
	for _, c := range namedChildren(args) {
		if c.Kind() == "element_value_pair" {
			a.Values = append(a.Values, decl.MemberValue{
				Name:  u.text(c.ChildByFieldName("key")),
				Value: u.expr(c.ChildByFieldName("value"), owner),
			})
			continue
		}
		a.Values = append(a.Values, decl.MemberValue{Name: "value", Value: u.expr(c, owner)})
	}
	return a
}
