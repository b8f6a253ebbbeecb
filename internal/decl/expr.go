package decl

// ExprKind identifies the syntactic form of an expression.
type ExprKind string

const (
	ExprName          ExprKind = "name"
	ExprFieldAccess   ExprKind = "field_access"
	ExprMethodCall    ExprKind = "method_call"
	ExprObjectCreate  ExprKind = "object_creation"
	ExprLiteral       ExprKind = "literal"
	ExprConditional   ExprKind = "conditional"
	ExprArrayAccess   ExprKind = "array_access"
	ExprMethodRef     ExprKind = "method_reference"
	ExprClassLiteral  ExprKind = "class_literal"
	ExprBinary        ExprKind = "binary"
	ExprUnary         ExprKind = "unary"
	ExprCast          ExprKind = "cast"
	ExprInstanceOf    ExprKind = "instanceof"
	ExprAssign        ExprKind = "assignment"
	ExprLambda        ExprKind = "lambda"
	ExprAnnotation    ExprKind = "annotation"
	ExprArrayInit     ExprKind = "array_initializer"
	ExprArrayCreation ExprKind = "array_creation"
	ExprThis          ExprKind = "this"
	ExprSuper         ExprKind = "super"
	ExprSwitch        ExprKind = "switch"
)

// Expr is a resolution-oriented expression tree.
//
// Field use by kind:
//   - Name: Name.
//   - FieldAccess: Scope, Name.
//   - MethodCall: Scope (nil for unqualified calls), Name, Args.
//   - ObjectCreate: Type, Args, Body (anonymous class members as statements).
//   - Literal: Type (the literal's type; "null" for the null literal), Name (source text).
//   - Conditional: Args = [condition, then, else].
//   - ArrayAccess: Scope (array), Args = [index].
//   - MethodRef: Scope (target, a Name for Type::m), Name (method or "new").
//   - ClassLiteral, Cast, InstanceOf, ArrayCreation: Type; Cast and InstanceOf operand in Args[0].
//   - Binary, Assign: Args = [left, right], Name = operator.
//   - Unary: Args = [operand], Name = operator.
//   - Lambda: Body.
//   - Annotation: Name, Pairs.
//   - ArrayInit, ArrayCreation: Args = elements or dimension expressions.
//   - Switch: Args = [selector], Body = case bodies.
type Expr struct {
	Kind  ExprKind
	Name  string
	Scope *Expr
	Args  []*Expr
	Type  *TypeRef
	Pairs []MemberValue
	Body  []*Stmt
	Line  int
}

// ScopeChain flattens a dotted access into source order, outermost qualifier
// first; a.b().c yields [a, b(), .c]. Only field accesses and method calls
// are unrolled.
func (e *Expr) ScopeChain() []*Expr {
	var chain []*Expr
	for cur := e; cur != nil; {
		chain = append(chain, cur)
		if cur.Kind != ExprFieldAccess && cur.Kind != ExprMethodCall {
			break
		}
		cur = cur.Scope
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Children returns every direct sub-expression, scope first.
func (e *Expr) Children() []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	if e.Scope != nil {
		out = append(out, e.Scope)
	}
	for _, a := range e.Args {
		if a != nil {
			out = append(out, a)
		}
	}
	for _, p := range e.Pairs {
		if p.Value != nil {
			out = append(out, p.Value)
		}
	}
	return out
}

// NameExpr builds a bare name.
func NameExpr(name string) *Expr { return &Expr{Kind: ExprName, Name: name} }

// Call builds a method call on scope (nil for an unqualified call).
func Call(scope *Expr, name string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprMethodCall, Scope: scope, Name: name, Args: args}
}

// Field builds a field access.
func Field(scope *Expr, name string) *Expr {
	return &Expr{Kind: ExprFieldAccess, Scope: scope, Name: name}
}

// Literal builds a literal of the given type.
func Literal(typ, text string) *Expr {
	ref := Ref(typ)
	return &Expr{Kind: ExprLiteral, Name: text, Type: &ref}
}

// New builds an object creation.
func New(typ TypeRef, args ...*Expr) *Expr {
	return &Expr{Kind: ExprObjectCreate, Type: &typ, Args: args}
}

// This builds a this reference.
func This() *Expr { return &Expr{Kind: ExprThis} }

// StmtKind classifies a statement.
type StmtKind string

const (
	StmtExpr      StmtKind = "expression"
	StmtLocal     StmtKind = "local"
	StmtReturn    StmtKind = "return"
	StmtBlock     StmtKind = "block"
	StmtIf        StmtKind = "if"
	StmtLoop      StmtKind = "loop"
	StmtTry       StmtKind = "try"
	StmtThrow     StmtKind = "throw"
	StmtSwitch    StmtKind = "switch"
	StmtLocalType StmtKind = "local_class"
	StmtOther     StmtKind = "other"
)

// LocalVar is one variable introduced by a local declaration, catch clause,
// enhanced for, lambda or try-with-resources.
type LocalVar struct {
	Name string
	Type TypeRef // zero when declared with var or inferred
	Init *Expr
}

// Stmt is a statement reduced to what resolution needs.
type Stmt struct {
	Kind     StmtKind
	Exprs    []*Expr
	Locals   []LocalVar
	Children []*Stmt
	Line     int
}

// ExprStmt wraps a single expression as a statement.
func ExprStmt(e *Expr) *Stmt { return &Stmt{Kind: StmtExpr, Exprs: []*Expr{e}} }

// Local declares a typed local variable with an optional initializer.
func Local(name string, typ TypeRef, init *Expr) *Stmt {
	return &Stmt{Kind: StmtLocal, Locals: []LocalVar{{Name: name, Type: typ, Init: init}}}
}

// Return wraps a returned expression.
func Return(e *Expr) *Stmt { return &Stmt{Kind: StmtReturn, Exprs: []*Expr{e}} }
