package parser

// Stmt is a statement node.
type Stmt interface {
	Accept(visitor StmtVisitor) interface{}
}

// VarStmt declares a variable: var x = expr
type VarStmt struct {
	Name        string
	Initializer Expr
	Line        int
}

func (v *VarStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitVarStmt(v)
}

// AssignStmt writes to a variable, an index, or a property.
type AssignStmt struct {
	Target Expr
	Value  Expr
	Line   int
}

func (a *AssignStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitAssignStmt(a)
}

// ExpressionStmt wraps a raw expression as a statement.
type ExpressionStmt struct {
	Expr Expr
	Line int
}

func (e *ExpressionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitExpressionStmt(e)
}

// IfStmt with an optional else branch. An else-if chain nests another
// IfStmt as the sole else statement.
type IfStmt struct {
	Condition Expr
	Then      []Stmt
	Else      []Stmt
	Line      int
}

func (i *IfStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitIfStmt(i)
}

// WhileStmt loops while the condition is truthy.
type WhileStmt struct {
	Condition Expr
	Body      []Stmt
	Line      int
}

func (w *WhileStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitWhileStmt(w)
}

// ForStmt is the three-clause loop. Init, Condition, and Update may each
// be nil.
type ForStmt struct {
	Init      Stmt
	Condition Expr
	Update    Stmt
	Body      []Stmt
	Line      int
}

func (f *ForStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitForStmt(f)
}

// ForEachStmt iterates a container: for (var x in iterable) { ... }
type ForEachStmt struct {
	Variable string
	Iterable Expr
	Body     []Stmt
	Line     int
}

func (f *ForEachStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitForEachStmt(f)
}

// FunctionStmt declares a named function.
type FunctionStmt struct {
	Name   string
	Params []string
	Body   []Stmt
	Line   int
}

func (f *FunctionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitFunctionStmt(f)
}

// ClassStmt declares a class as a set of methods.
type ClassStmt struct {
	Name    string
	Methods []*FunctionStmt
	Line    int
}

func (c *ClassStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitClassStmt(c)
}

// ReturnStmt returns from the enclosing function; Value may be nil.
type ReturnStmt struct {
	Value Expr
	Line  int
}

func (r *ReturnStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitReturnStmt(r)
}

// ImportStmt binds a module: import a.b.c
type ImportStmt struct {
	Path string
	Line int
}

func (i *ImportStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitImportStmt(i)
}

// FromImportStmt binds selected symbols: from a.b import x, y
type FromImportStmt struct {
	Path    string
	Symbols []string
	Line    int
}

func (f *FromImportStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitFromImportStmt(f)
}

// ExportStmt exports a declaration: export var x = 1, export fun f() {}
type ExportStmt struct {
	Decl Stmt
	Line int
}

func (e *ExportStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitExportStmt(e)
}

// ExportExprStmt exports an already-bound name: export x
type ExportExprStmt struct {
	Value Expr
	Line  int
}

func (e *ExportExprStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitExportExprStmt(e)
}

type StmtVisitor interface {
	VisitVarStmt(stmt *VarStmt) interface{}
	VisitAssignStmt(stmt *AssignStmt) interface{}
	VisitExpressionStmt(stmt *ExpressionStmt) interface{}
	VisitIfStmt(stmt *IfStmt) interface{}
	VisitWhileStmt(stmt *WhileStmt) interface{}
	VisitForStmt(stmt *ForStmt) interface{}
	VisitForEachStmt(stmt *ForEachStmt) interface{}
	VisitFunctionStmt(stmt *FunctionStmt) interface{}
	VisitClassStmt(stmt *ClassStmt) interface{}
	VisitReturnStmt(stmt *ReturnStmt) interface{}
	VisitImportStmt(stmt *ImportStmt) interface{}
	VisitFromImportStmt(stmt *FromImportStmt) interface{}
	VisitExportStmt(stmt *ExportStmt) interface{}
	VisitExportExprStmt(stmt *ExportExprStmt) interface{}
}
