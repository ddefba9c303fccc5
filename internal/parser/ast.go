package parser

// Expr is an expression node.
type Expr interface {
	Accept(visitor ExprVisitor) interface{}
}

// Literal is a number, string, boolean, or nil constant.
type Literal struct {
	Value interface{}
	Line  int
}

func (l *Literal) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitLiteralExpr(l)
}

// Variable references a name: x
type Variable struct {
	Name string
	Line int
}

func (v *Variable) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitVariableExpr(v)
}

// This references the receiver inside a method body.
type This struct {
	Line int
}

func (t *This) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitThisExpr(t)
}

// Binary expression: a + b
type Binary struct {
	Left     Expr
	Operator string
	Right    Expr
	Line     int
}

func (b *Binary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitBinaryExpr(b)
}

// Logical expression with short-circuit evaluation: a and b, a or b
type Logical struct {
	Left     Expr
	Operator string
	Right    Expr
	Line     int
}

func (l *Logical) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitLogicalExpr(l)
}

// Unary expression: -x, !x
type Unary struct {
	Operator string
	Operand  Expr
	Line     int
}

func (u *Unary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitUnaryExpr(u)
}

// Call expression: callee(args...)
type Call struct {
	Callee Expr
	Args   []Expr
	Line   int
}

func (c *Call) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitCallExpr(c)
}

// Property access: object.name
type Property struct {
	Object Expr
	Name   string
	Line   int
}

func (p *Property) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitPropertyExpr(p)
}

// Index access: object[key]
type Index struct {
	Object Expr
	Key    Expr
	Line   int
}

func (i *Index) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitIndexExpr(i)
}

// Slice expression: object[start:end]. Start and End may be nil, meaning
// the beginning and the length of the object.
type Slice struct {
	Object Expr
	Start  Expr
	End    Expr
	Line   int
}

func (s *Slice) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitSliceExpr(s)
}

// Ternary expression: cond ? then : else
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
	Line int
}

func (t *Ternary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitTernaryExpr(t)
}

// ListExpr is a list literal: [1, 2, 3]
type ListExpr struct {
	Elements []Expr
	Line     int
}

func (l *ListExpr) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitListExpr(l)
}

// TableExpr is a table literal: {key: value, ...}. Keys and Values are
// parallel slices.
type TableExpr struct {
	Keys   []Expr
	Values []Expr
	Line   int
}

func (t *TableExpr) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitTableExpr(t)
}

// FunctionExpr is a function literal: fun (x) { ... }. Name is empty for
// anonymous functions.
type FunctionExpr struct {
	Name   string
	Params []string
	Body   []Stmt
	Line   int
}

func (f *FunctionExpr) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitFunctionExpr(f)
}

type ExprVisitor interface {
	VisitLiteralExpr(expr *Literal) interface{}
	VisitVariableExpr(expr *Variable) interface{}
	VisitThisExpr(expr *This) interface{}
	VisitBinaryExpr(expr *Binary) interface{}
	VisitLogicalExpr(expr *Logical) interface{}
	VisitUnaryExpr(expr *Unary) interface{}
	VisitCallExpr(expr *Call) interface{}
	VisitPropertyExpr(expr *Property) interface{}
	VisitIndexExpr(expr *Index) interface{}
	VisitSliceExpr(expr *Slice) interface{}
	VisitTernaryExpr(expr *Ternary) interface{}
	VisitListExpr(expr *ListExpr) interface{}
	VisitTableExpr(expr *TableExpr) interface{}
	VisitFunctionExpr(expr *FunctionExpr) interface{}
}
