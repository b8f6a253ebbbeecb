package parsers

import (
	"strings"

	"github.com/mvp-joe/depsolver/internal/decl"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// statements converts the statements of a block or constructor body.
func (u *unitBuilder) statements(block *sitter.Node, owner *decl.TypeDecl) []*decl.Stmt {
	var out []*decl.Stmt
	for _, c := range namedChildren(block) {
		if s := u.stmt(c, owner); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (u *unitBuilder) blockStmt(block *sitter.Node, owner *decl.TypeDecl) *decl.Stmt {
	return &decl.Stmt{Kind: decl.StmtBlock, Children: u.statements(block, owner), Line: lineOf(block)}
}

func (u *unitBuilder) stmt(n *sitter.Node, owner *decl.TypeDecl) *decl.Stmt {
	if n == nil {
		return nil
	}
	s := &decl.Stmt{Line: lineOf(n)}
	switch n.Kind() {
	case "local_variable_declaration":
		s.Kind = decl.StmtLocal
		s.Locals = u.declarators(n, owner)
	case "expression_statement":
		s.Kind = decl.StmtExpr
		s.Exprs = u.exprs(namedChildren(n), owner)
	case "return_statement":
		s.Kind = decl.StmtReturn
		s.Exprs = u.exprs(namedChildren(n), owner)
	case "throw_statement":
		s.Kind = decl.StmtThrow
		s.Exprs = u.exprs(namedChildren(n), owner)
	case "yield_statement", "assert_statement":
		s.Kind = decl.StmtExpr
		s.Exprs = u.exprs(namedChildren(n), owner)
	case "block":
		s.Kind = decl.StmtBlock
		s.Children = u.statements(n, owner)
	case "labeled_statement":
		for _, c := range namedChildren(n) {
			if c.Kind() != "identifier" {
				return u.stmt(c, owner)
			}
		}
		return nil
	case "if_statement":
		s.Kind = decl.StmtIf
		s.Exprs = u.exprs([]*sitter.Node{n.ChildByFieldName("condition")}, owner)
		s.Children = u.stmts(owner, n.ChildByFieldName("consequence"), n.ChildByFieldName("alternative"))
	case "while_statement", "do_statement":
		s.Kind = decl.StmtLoop
		s.Exprs = u.exprs([]*sitter.Node{n.ChildByFieldName("condition")}, owner)
		s.Children = u.stmts(owner, n.ChildByFieldName("body"))
	case "for_statement":
		s.Kind = decl.StmtLoop
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(uint(i))
			switch n.FieldNameForChild(uint32(i)) {
			case "init":
				if c.Kind() == "local_variable_declaration" {
					s.Locals = append(s.Locals, u.declarators(c, owner)...)
				} else if e := u.expr(c, owner); e != nil {
					s.Exprs = append(s.Exprs, e)
				}
			case "condition", "update":
				if e := u.expr(c, owner); e != nil {
					s.Exprs = append(s.Exprs, e)
				}
			}
		}
		s.Children = u.stmts(owner, n.ChildByFieldName("body"))
	case "enhanced_for_statement":
		s.Kind = decl.StmtLoop
		typ := u.localType(n.ChildByFieldName("type"))
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			typ.Dims += countDims(dims)
		}
		s.Locals = []decl.LocalVar{{Name: u.text(n.ChildByFieldName("name")), Type: typ}}
		s.Exprs = u.exprs([]*sitter.Node{n.ChildByFieldName("value")}, owner)
		s.Children = u.stmts(owner, n.ChildByFieldName("body"))
	case "try_statement", "try_with_resources_statement":
		s.Kind = decl.StmtTry
		if res := n.ChildByFieldName("resources"); res != nil {
			for _, r := range findChildrenByType(res, "resource") {
				if v := r.ChildByFieldName("value"); v != nil {
					s.Locals = append(s.Locals, decl.LocalVar{
						Name: u.text(r.ChildByFieldName("name")),
						Type: u.localType(r.ChildByFieldName("type")),
						Init: u.expr(v, owner),
					})
					continue
				}
				s.Exprs = append(s.Exprs, u.exprs(namedChildren(r), owner)...)
			}
		}
		s.Children = u.stmts(owner, n.ChildByFieldName("body"))
		for _, c := range findChildrenByType(n, "catch_clause") {
			s.Children = append(s.Children, u.catchClause(c, owner))
		}
		if fin := findChildByType(n, "finally_clause"); fin != nil {
			s.Children = append(s.Children, u.blockStmt(findChildByType(fin, "block"), owner))
		}
	case "switch_expression":
		s.Kind = decl.StmtSwitch
		s.Exprs = u.exprs([]*sitter.Node{n.ChildByFieldName("condition")}, owner)
		s.Children = u.switchBody(n.ChildByFieldName("body"), owner)
	case "synchronized_statement":
		s.Kind = decl.StmtBlock
		s.Exprs = u.exprs(findChildrenByType(n, "parenthesized_expression"), owner)
		s.Children = u.stmts(owner, n.ChildByFieldName("body"))
	case "explicit_constructor_invocation":
		s.Kind = decl.StmtExpr
		scope := &decl.Expr{Kind: decl.ExprSuper, Line: lineOf(n)}
		if c := n.ChildByFieldName("constructor"); c != nil && c.Kind() == "this" {
			scope.Kind = decl.ExprThis
		}
		s.Exprs = []*decl.Expr{{
			Kind:  decl.ExprMethodCall,
			Name:  decl.ConstructorName,
			Scope: scope,
			Args:  u.arguments(n.ChildByFieldName("arguments"), owner),
			Line:  lineOf(n),
		}}
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		s.Kind = decl.StmtLocalType
		if t := u.typeDecl(n); t != nil {
			s.Children = flattenType(t)
		}
	case "break_statement", "continue_statement", ";":
		return nil
	default:
		s.Kind = decl.StmtOther
		s.Exprs = u.exprs(namedChildren(n), owner)
	}
	return s
}

func (u *unitBuilder) stmts(owner *decl.TypeDecl, nodes ...*sitter.Node) []*decl.Stmt {
	var out []*decl.Stmt
	for _, n := range nodes {
		if s := u.stmt(n, owner); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// localType treats "var" as an inferred (zero) type.
func (u *unitBuilder) localType(n *sitter.Node) decl.TypeRef {
	ref := u.typeRef(n)
	if ref.Name == "var" && ref.Dims == 0 {
		return decl.TypeRef{}
	}
	return ref
}

func (u *unitBuilder) declarators(n *sitter.Node, owner *decl.TypeDecl) []decl.LocalVar {
	typ := u.localType(n.ChildByFieldName("type"))
	var out []decl.LocalVar
	for _, d := range findChildrenByType(n, "variable_declarator") {
		lv := decl.LocalVar{Name: u.text(d.ChildByFieldName("name")), Type: typ}
		if dims := d.ChildByFieldName("dimensions"); dims != nil {
			lv.Type.Dims += countDims(dims)
		}
		if v := d.ChildByFieldName("value"); v != nil {
			lv.Init = u.expr(v, owner)
		}
		out = append(out, lv)
	}
	return out
}

// catchClause declares the caught exception as a local typed by its first alternative.
func (u *unitBuilder) catchClause(n *sitter.Node, owner *decl.TypeDecl) *decl.Stmt {
	s := u.blockStmt(n.ChildByFieldName("body"), owner)
	if p := findChildByType(n, "catch_formal_parameter"); p != nil {
		var typ decl.TypeRef
		if ct := findChildByType(p, "catch_type"); ct != nil {
			if alts := namedChildren(ct); len(alts) > 0 {
				typ = u.typeRef(alts[0])
			}
		}
		s.Locals = []decl.LocalVar{{Name: u.text(p.ChildByFieldName("name")), Type: typ}}
	}
	return s
}

func (u *unitBuilder) switchBody(n *sitter.Node, owner *decl.TypeDecl) []*decl.Stmt {
	var out []*decl.Stmt
	for _, group := range namedChildren(n) {
		s := &decl.Stmt{Kind: decl.StmtBlock, Line: lineOf(group)}
		for _, c := range namedChildren(group) {
			if c.Kind() != "switch_label" {
				if st := u.stmt(c, owner); st != nil {
					s.Children = append(s.Children, st)
				}
				continue
			}
			for _, l := range namedChildren(c) {
				switch l.Kind() {
				case "pattern":
					s.Locals = append(s.Locals, u.patternLocals(l)...)
				case "guard":
					s.Exprs = append(s.Exprs, u.exprs(namedChildren(l), owner)...)
				default:
					if e := u.expr(l, owner); e != nil {
						s.Exprs = append(s.Exprs, e)
					}
				}
			}
		}
		out = append(out, s)
	}
	return out
}

func (u *unitBuilder) patternLocals(n *sitter.Node) []decl.LocalVar {
	var out []decl.LocalVar
	walkTree(n, func(c *sitter.Node) bool {
		if c.Kind() != "type_pattern" && c.Kind() != "record_pattern_component" {
			return true
		}
		var lv decl.LocalVar
		for _, part := range namedChildren(c) {
			if part.Kind() == "identifier" {
				lv.Name = u.text(part)
			} else if part.Kind() != "underscore_pattern" {
				lv.Type = u.localType(part)
			}
		}
		if lv.Name != "" {
			out = append(out, lv)
		}
		return false
	})
	return out
}

func (u *unitBuilder) exprs(nodes []*sitter.Node, owner *decl.TypeDecl) []*decl.Expr {
	var out []*decl.Expr
	for _, n := range nodes {
		if e := u.expr(n, owner); e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (u *unitBuilder) arguments(n *sitter.Node, owner *decl.TypeDecl) []*decl.Expr {
	return u.exprs(namedChildren(n), owner)
}

// expr converts an expression node; unsupported forms yield nil.
func (u *unitBuilder) expr(n *sitter.Node, owner *decl.TypeDecl) *decl.Expr {
	if n == nil {
		return nil
	}
	line := lineOf(n)
	switch n.Kind() {
	case "parenthesized_expression":
		children := namedChildren(n)
		if len(children) == 0 {
			return nil
		}
		return u.expr(children[0], owner)
	case "identifier":
		return &decl.Expr{Kind: decl.ExprName, Name: u.text(n), Line: line}
	case "this":
		return &decl.Expr{Kind: decl.ExprThis, Line: line}
	case "super":
		return &decl.Expr{Kind: decl.ExprSuper, Line: line}
	case "field_access":
		field := n.ChildByFieldName("field")
		if field != nil && field.Kind() == "this" {
			return &decl.Expr{Kind: decl.ExprThis, Line: line}
		}
		return &decl.Expr{
			Kind:  decl.ExprFieldAccess,
			Scope: u.expr(n.ChildByFieldName("object"), owner),
			Name:  u.text(field),
			Line:  line,
		}
	case "method_invocation":
		return &decl.Expr{
			Kind:  decl.ExprMethodCall,
			Scope: u.expr(n.ChildByFieldName("object"), owner),
			Name:  u.text(n.ChildByFieldName("name")),
			Args:  u.arguments(n.ChildByFieldName("arguments"), owner),
			Line:  line,
		}
	case "object_creation_expression":
		typ := u.typeRef(n.ChildByFieldName("type"))
		e := &decl.Expr{
			Kind: decl.ExprObjectCreate,
			Type: &typ,
			Args: u.arguments(n.ChildByFieldName("arguments"), owner),
			Line: line,
		}
		if body := findChildByType(n, "class_body"); body != nil {
			e.Body = u.anonymousBody(body, owner)
		}
		return e
	case "ternary_expression":
		return &decl.Expr{
			Kind: decl.ExprConditional,
			Args: []*decl.Expr{
				u.expr(n.ChildByFieldName("condition"), owner),
				u.expr(n.ChildByFieldName("consequence"), owner),
				u.expr(n.ChildByFieldName("alternative"), owner),
			},
			Line: line,
		}
	case "array_access":
		return &decl.Expr{
			Kind:  decl.ExprArrayAccess,
			Scope: u.expr(n.ChildByFieldName("array"), owner),
			Args:  u.exprs([]*sitter.Node{n.ChildByFieldName("index")}, owner),
			Line:  line,
		}
	case "method_reference":
		return u.methodRef(n, owner)
	case "class_literal":
		children := namedChildren(n)
		if len(children) == 0 {
			return nil
		}
		typ := u.typeRef(children[0])
		return &decl.Expr{Kind: decl.ExprClassLiteral, Type: &typ, Line: line}
	case "binary_expression", "assignment_expression":
		kind := decl.ExprBinary
		if n.Kind() == "assignment_expression" {
			kind = decl.ExprAssign
		}
		return &decl.Expr{
			Kind: kind,
			Name: u.text(n.ChildByFieldName("operator")),
			Args: u.exprs([]*sitter.Node{n.ChildByFieldName("left"), n.ChildByFieldName("right")}, owner),
			Line: line,
		}
	case "unary_expression":
		return &decl.Expr{
			Kind: decl.ExprUnary,
			Name: u.text(n.ChildByFieldName("operator")),
			Args: u.exprs([]*sitter.Node{n.ChildByFieldName("operand")}, owner),
			Line: line,
		}
	case "update_expression":
		return &decl.Expr{Kind: decl.ExprUnary, Args: u.exprs(namedChildren(n), owner), Line: line}
	case "cast_expression":
		typ := u.typeRef(n.ChildByFieldName("type"))
		return &decl.Expr{
			Kind: decl.ExprCast,
			Type: &typ,
			Args: u.exprs([]*sitter.Node{n.ChildByFieldName("value")}, owner),
			Line: line,
		}
	case "instanceof_expression":
		e := &decl.Expr{
			Kind: decl.ExprInstanceOf,
			Args: u.exprs([]*sitter.Node{n.ChildByFieldName("left")}, owner),
			Line: line,
		}
		if right := n.ChildByFieldName("right"); right != nil {
			typ := u.typeRef(right)
			e.Type = &typ
		}
		return e
	case "lambda_expression":
		return u.lambda(n, owner)
	case "switch_expression":
		return &decl.Expr{
			Kind: decl.ExprSwitch,
			Args: u.exprs([]*sitter.Node{n.ChildByFieldName("condition")}, owner),
			Body: u.switchBody(n.ChildByFieldName("body"), owner),
			Line: line,
		}
	case "array_creation_expression":
		typ := u.typeRef(n.ChildByFieldName("type"))
		e := &decl.Expr{Kind: decl.ExprArrayCreation, Line: line}
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "dimensions_expr":
				typ.Dims++
				e.Args = append(e.Args, u.exprs(namedChildren(c), owner)...)
			case "dimensions":
				typ.Dims += countDims(c)
			case "array_initializer":
				e.Args = append(e.Args, u.exprs(namedChildren(c), owner)...)
			}
		}
		e.Type = &typ
		return e
	case "array_initializer", "element_value_array_initializer":
		return &decl.Expr{Kind: decl.ExprArrayInit, Args: u.exprs(namedChildren(n), owner), Line: line}
	case "annotation", "marker_annotation":
		a := u.annotation(n, owner)
		return &decl.Expr{Kind: decl.ExprAnnotation, Name: a.Name, Pairs: a.Values, Line: line}
	case "template_expression":
		return u.literal("String", u.text(n), line)
	}
	if typ, ok := literalType(n.Kind(), u.text(n)); ok {
		return u.literal(typ, u.text(n), line)
	}
	return nil
}

func (u *unitBuilder) literal(typ, text string, line int) *decl.Expr {
	e := decl.Literal(typ, text)
	e.Line = line
	return e
}

// literalType maps a literal node kind to the Java type it denotes.
func literalType(kind, text string) (string, bool) {
	switch kind {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L") {
			return "long", true
		}
		return "int", true
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
			return "float", true
		}
		return "double", true
	case "true", "false":
		return "boolean", true
	case "character_literal":
		return "char", true
	case "string_literal", "text_block":
		return "String", true
	case "null_literal":
		return "null", true
	}
	return "", false
}

// methodRef keeps the target as a name (type targets use the type's name)
// and the referenced member; "new" references a constructor.
func (u *unitBuilder) methodRef(n *sitter.Node, owner *decl.TypeDecl) *decl.Expr {
	e := &decl.Expr{Kind: decl.ExprMethodRef, Line: lineOf(n)}
	count := int(n.ChildCount())
	if count == 0 {
		return nil
	}
	last := n.Child(uint(count - 1))
	switch last.Kind() {
	case "new":
		e.Name = "new"
	case "identifier":
		e.Name = u.text(last)
	}
	for _, c := range namedChildren(n) {
		if c.Equals(*last) || c.Kind() == "type_arguments" {
			continue
		}
		e.Scope = u.refTarget(c, owner)
		break
	}
	return e
}

func (u *unitBuilder) refTarget(c *sitter.Node, owner *decl.TypeDecl) *decl.Expr {
	switch c.Kind() {
	case "identifier", "field_access", "method_invocation", "this", "super", "parenthesized_expression",
		"object_creation_expression", "array_access":
		return u.expr(c, owner)
	}
	ref := u.typeRef(c)
	return &decl.Expr{Kind: decl.ExprName, Name: ref.Name, Type: &ref, Line: lineOf(c)}
}

// lambda declares its parameters as locals in a leading statement of Body.
func (u *unitBuilder) lambda(n *sitter.Node, owner *decl.TypeDecl) *decl.Expr {
	e := &decl.Expr{Kind: decl.ExprLambda, Line: lineOf(n)}
	params := &decl.Stmt{Kind: decl.StmtLocal, Line: lineOf(n)}
	if p := n.ChildByFieldName("parameters"); p != nil {
		switch p.Kind() {
		case "identifier":
			params.Locals = append(params.Locals, decl.LocalVar{Name: u.text(p)})
		case "inferred_parameters":
			for _, id := range findChildrenByType(p, "identifier") {
				params.Locals = append(params.Locals, decl.LocalVar{Name: u.text(id)})
			}
		case "formal_parameters":
			for _, fp := range u.params(p) {
				params.Locals = append(params.Locals, decl.LocalVar{Name: fp.Name, Type: fp.Type})
			}
		}
	}
	if len(params.Locals) > 0 {
		e.Body = append(e.Body, params)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return e
	}
	if body.Kind() == "block" {
		e.Body = append(e.Body, u.statements(body, owner)...)
	} else if be := u.expr(body, owner); be != nil {
		e.Body = append(e.Body, &decl.Stmt{Kind: decl.StmtReturn, Exprs: []*decl.Expr{be}, Line: lineOf(body)})
	}
	return e
}

// anonymousBody reduces an anonymous class body to statements.
func (u *unitBuilder) anonymousBody(body *sitter.Node, owner *decl.TypeDecl) []*decl.Stmt {
	tmp := &decl.TypeDecl{Name: "", Kind: decl.KindClass, Outer: owner}
	u.members(tmp, body)
	return flattenType(tmp)
}

// flattenType turns the members of a local or anonymous class into
// statements: methods become blocks declaring their parameters, fields
// become local declarations.
func flattenType(t *decl.TypeDecl) []*decl.Stmt {
	var out []*decl.Stmt
	for _, f := range t.Fields {
		s := &decl.Stmt{Kind: decl.StmtLocal, Line: f.Line}
		for i, name := range f.Names {
			var init *decl.Expr
			if i < len(f.Initializers) {
				init = f.Initializers[i]
			}
			s.Locals = append(s.Locals, decl.LocalVar{Name: name, Type: f.Type, Init: init})
		}
		out = append(out, s)
	}
	callables := append(append([]*decl.MethodDecl{}, t.Constructors...), t.Methods...)
	for _, m := range callables {
		s := &decl.Stmt{Kind: decl.StmtBlock, Children: m.Body, Line: m.Line}
		for _, p := range m.Params {
			s.Locals = append(s.Locals, decl.LocalVar{Name: p.Name, Type: p.Type})
		}
		out = append(out, s)
	}
	out = append(out, t.Initializers...)
	for _, n := range t.Nested {
		out = append(out, &decl.Stmt{Kind: decl.StmtLocalType, Children: flattenType(n), Line: n.Line})
	}
	return out
}
