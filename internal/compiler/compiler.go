package compiler

import (
	"fmt"

	"rowan/internal/bytecode"
	"rowan/internal/errors"
	"rowan/internal/gc"
	"rowan/internal/parser"
	"rowan/internal/value"
)

// MaxRegisters is the number of registers addressable by the A field.
const MaxRegisters = 1 << bytecode.SizeA

type local struct {
	name  string
	depth int
	reg   int
}

type upvalue struct {
	index   int
	isLocal bool
}

// Compiler translates an AST into a register-based chunk in a single
// pass. Registers are handed out by a bump pointer; after every
// statement the pointer drops back to one past the highest local, so
// expression temporaries never outlive their statement.
type Compiler struct {
	gc     *gc.GC
	parent *Compiler
	fn     *value.Function
	chunk  *value.Chunk
	file        string
	strict      bool
	interactive bool

	freeReg    int
	lastReg    int
	scopeDepth int

	locals   []local
	upvalues []upvalue
	errs     []error
}

// New returns a compiler for a top-level script.
func New(g *gc.GC, file string) *Compiler {
	return &Compiler{gc: g, file: file}
}

// SetStrict makes assignment to an undeclared name a compile error.
func (c *Compiler) SetStrict(strict bool) {
	c.strict = strict
}

// SetInteractive lowers top-level var declarations to globals instead of
// locals, so definitions survive across separately compiled lines.
func (c *Compiler) SetInteractive(interactive bool) {
	c.interactive = interactive
}

// Errors returns every error recorded during compilation.
func (c *Compiler) Errors() []error {
	return c.errs
}

// Compile emits code for a whole script and returns its function. The
// script function takes no parameters and runs with register 0 as its
// frame base.
func (c *Compiler) Compile(stmts []parser.Stmt) (*value.Function, error) {
	fn := c.gc.NewFunction("<script>", nil)
	c.gc.PushTempRoot(fn)
	defer c.gc.PopTempRoot()

	c.fn = fn
	c.chunk = fn.Chunk
	c.freeReg = 0
	c.lastReg = 0

	for _, stmt := range stmts {
		stmt.Accept(c)
		c.resetFreeReg()
	}
	c.emitABC(bytecode.OpReturn, 0, 1, 0, 0)

	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}
	return fn, nil
}

// ---- emit helpers ----

func (c *Compiler) emit(inst bytecode.Instruction, line int) int {
	c.chunk.Write(inst, line)
	return len(c.chunk.Code) - 1
}

func (c *Compiler) emitABC(op bytecode.OpCode, a, b, bb int, line int) int {
	return c.emit(bytecode.CreateABC(op, a, b, bb), line)
}

func (c *Compiler) emitABx(op bytecode.OpCode, a, bx int, line int) int {
	return c.emit(bytecode.CreateABx(op, a, bx), line)
}

func (c *Compiler) emitAsBx(op bytecode.OpCode, a, sbx int, line int) int {
	return c.emit(bytecode.CreateAsBx(op, a, sbx), line)
}

func (c *Compiler) addConstant(v value.Value) int {
	return c.chunk.AddConstant(v)
}

func (c *Compiler) stringConstant(s string) int {
	obj := c.gc.NewString(s)
	return c.addConstant(value.Object(obj))
}

// emitJump writes a forward jump with a zero offset to be patched
// later.
func (c *Compiler) emitJump(line int) int {
	return c.emitAsBx(bytecode.OpJmp, 0, 0, line)
}

// patchJump points the jump at idx just past the current end of code.
func (c *Compiler) patchJump(idx int) {
	offset := len(c.chunk.Code) - idx - 1
	c.chunk.Code[idx] = bytecode.CreateAsBx(bytecode.OpJmp, 0, offset)
}

// ---- register allocation ----

func (c *Compiler) allocReg(line int) int {
	if c.freeReg >= MaxRegisters {
		c.errorf(line, "function uses too many registers")
		return MaxRegisters - 1
	}
	reg := c.freeReg
	c.freeReg++
	return reg
}

func (c *Compiler) freeRegs(n int) {
	c.freeReg -= n
	if c.freeReg < 0 {
		c.freeReg = 0
	}
}

// resetFreeReg drops every temporary, keeping registers that hold
// locals.
func (c *Compiler) resetFreeReg() {
	maxReg := -1
	for _, l := range c.locals {
		if l.reg > maxReg {
			maxReg = l.reg
		}
	}
	c.freeReg = maxReg + 1
}

// ---- scopes, locals, upvalues ----

func (c *Compiler) addLocal(name string, reg int) {
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth, reg: reg})
}

func (c *Compiler) popScope() {
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth == c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
	c.scopeDepth--
	c.resetFreeReg()
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].reg
		}
	}
	return -1
}

func (c *Compiler) resolveUpvalue(name string) int {
	if c.parent == nil {
		return -1
	}
	if reg := c.parent.resolveLocal(name); reg != -1 {
		return c.addUpvalue(reg, true)
	}
	if idx := c.parent.resolveUpvalue(name); idx != -1 {
		return c.addUpvalue(idx, false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index int, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	c.upvalues = append(c.upvalues, upvalue{index: index, isLocal: isLocal})
	return len(c.upvalues) - 1
}

func (c *Compiler) errorf(line int, format string, args ...interface{}) {
	c.errs = append(c.errs, errors.NewCompileError(fmt.Sprintf(format, args...), c.file, line))
}

// ---- statements ----

func (c *Compiler) VisitVarStmt(stmt *parser.VarStmt) interface{} {
	if stmt.Initializer != nil {
		stmt.Initializer.Accept(c)
	} else {
		reg := c.allocReg(stmt.Line)
		c.emitABC(bytecode.OpLoadNil, reg, 0, 0, stmt.Line)
		c.lastReg = reg
	}
	c.bindName(stmt.Name, c.lastReg, stmt.Line)
	return nil
}

// bindName declares a new name for the value in reg. Interactive
// top-level bindings become globals so later lines can still see them.
func (c *Compiler) bindName(name string, reg, line int) {
	if c.interactive && c.parent == nil && c.scopeDepth == 0 {
		c.emitABx(bytecode.OpSetGlobal, reg, c.stringConstant(name), line)
		return
	}
	c.addLocal(name, reg)
}

func (c *Compiler) VisitAssignStmt(stmt *parser.AssignStmt) interface{} {
	stmt.Value.Accept(c)
	valReg := c.lastReg

	// The target may compile more code, so park the value first.
	savedReg := c.allocReg(stmt.Line)
	c.emitABC(bytecode.OpMove, savedReg, valReg, 0, stmt.Line)

	switch target := stmt.Target.(type) {
	case *parser.Variable:
		if reg := c.resolveLocal(target.Name); reg != -1 {
			c.emitABC(bytecode.OpMove, reg, savedReg, 0, stmt.Line)
			c.lastReg = reg
		} else if idx := c.resolveUpvalue(target.Name); idx != -1 {
			c.emitABC(bytecode.OpSetUpval, savedReg, idx, 0, stmt.Line)
			c.lastReg = savedReg
		} else {
			if c.strict {
				c.errorf(stmt.Line, "undefined variable '%s' in strict mode", target.Name)
			}
			nameIdx := c.stringConstant(target.Name)
			c.emitABx(bytecode.OpSetGlobal, savedReg, nameIdx, stmt.Line)
		}
	case *parser.Property:
		target.Object.Accept(c)
		objReg := c.lastReg
		nameIdx := c.stringConstant(target.Name)
		keyReg := c.allocReg(stmt.Line)
		c.emitABx(bytecode.OpLoadK, keyReg, nameIdx, stmt.Line)
		c.emitABC(bytecode.OpSetTable, objReg, keyReg, savedReg, stmt.Line)
	case *parser.Index:
		target.Object.Accept(c)
		objReg := c.lastReg
		target.Key.Accept(c)
		keyReg := c.lastReg
		c.emitABC(bytecode.OpSetTable, objReg, keyReg, savedReg, stmt.Line)
	default:
		c.errorf(stmt.Line, "invalid assignment target")
	}
	c.freeRegs(1)
	return nil
}

func (c *Compiler) VisitExpressionStmt(stmt *parser.ExpressionStmt) interface{} {
	stmt.Expr.Accept(c)
	return nil
}

func (c *Compiler) VisitIfStmt(stmt *parser.IfStmt) interface{} {
	stmt.Condition.Accept(c)
	condReg := c.lastReg

	// Skip the jump when the condition is truthy.
	c.emitABC(bytecode.OpTest, condReg, 0, 1, stmt.Line)
	elseJump := c.emitJump(stmt.Line)

	for _, s := range stmt.Then {
		s.Accept(c)
		c.resetFreeReg()
	}
	endJump := c.emitJump(stmt.Line)

	c.patchJump(elseJump)
	for _, s := range stmt.Else {
		s.Accept(c)
		c.resetFreeReg()
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) VisitWhileStmt(stmt *parser.WhileStmt) interface{} {
	loopStart := len(c.chunk.Code)

	stmt.Condition.Accept(c)
	condReg := c.lastReg
	c.emitABC(bytecode.OpTest, condReg, 0, 1, stmt.Line)
	exitJump := c.emitJump(stmt.Line)

	for _, s := range stmt.Body {
		s.Accept(c)
		c.resetFreeReg()
	}

	offset := loopStart - len(c.chunk.Code) - 1
	c.emitAsBx(bytecode.OpJmp, 0, offset, stmt.Line)
	c.patchJump(exitJump)
	return nil
}

func (c *Compiler) VisitForStmt(stmt *parser.ForStmt) interface{} {
	c.scopeDepth++

	if stmt.Init != nil {
		stmt.Init.Accept(c)
	}

	loopStart := len(c.chunk.Code)

	exitJump := -1
	if stmt.Condition != nil {
		stmt.Condition.Accept(c)
		condReg := c.lastReg
		c.emitABC(bytecode.OpTest, condReg, 0, 1, stmt.Line)
		exitJump = c.emitJump(stmt.Line)
	}

	for _, s := range stmt.Body {
		s.Accept(c)
		c.resetFreeReg()
	}

	if stmt.Update != nil {
		stmt.Update.Accept(c)
	}

	offset := loopStart - len(c.chunk.Code) - 1
	c.emitAsBx(bytecode.OpJmp, 0, offset, stmt.Line)

	if exitJump != -1 {
		c.patchJump(exitJump)
	}
	c.popScope()
	return nil
}

// VisitForEachStmt lays out the iteration state in five consecutive
// registers: the iterable, the last key, the next key, the next value,
// and the iterator object. TFORCALL advances the iterator, TFORLOOP
// commits the key and jumps back while the next key is not nil.
func (c *Compiler) VisitForEachStmt(stmt *parser.ForEachStmt) interface{} {
	c.scopeDepth++

	stmt.Iterable.Accept(c)
	iterableReg := c.lastReg

	base := c.allocReg(stmt.Line)
	c.emitABC(bytecode.OpMove, base, iterableReg, 0, stmt.Line)

	lastKey := c.allocReg(stmt.Line)
	nextKey := c.allocReg(stmt.Line)
	c.allocReg(stmt.Line) // next value
	iterReg := c.allocReg(stmt.Line)

	c.emitABC(bytecode.OpLoadNil, lastKey, 3, 0, stmt.Line)
	c.emitABC(bytecode.OpGetIter, iterReg, base, 0, stmt.Line)

	userReg := c.allocReg(stmt.Line)
	c.addLocal(stmt.Variable, userReg)

	loopStart := len(c.chunk.Code)
	c.emitABC(bytecode.OpTForCall, base+2, base, 0, stmt.Line)

	nilReg := c.allocReg(stmt.Line)
	c.emitABC(bytecode.OpLoadNil, nilReg, 0, 0, stmt.Line)
	isEnd := c.allocReg(stmt.Line)
	c.emitABC(bytecode.OpEq, isEnd, nextKey, nilReg, stmt.Line)

	// Skip the exit jump while the next key is not nil.
	c.emitABC(bytecode.OpTest, isEnd, 0, 0, stmt.Line)
	exitJump := c.emitJump(stmt.Line)

	c.emitABC(bytecode.OpMove, userReg, nextKey, 0, stmt.Line)

	for _, s := range stmt.Body {
		s.Accept(c)
		c.resetFreeReg()
	}

	offset := loopStart - len(c.chunk.Code) - 1
	c.emitAsBx(bytecode.OpTForLoop, base, offset, stmt.Line)
	c.patchJump(exitJump)
	c.popScope()
	return nil
}

func (c *Compiler) VisitFunctionStmt(stmt *parser.FunctionStmt) interface{} {
	inner := c.compileFunction(stmt.Name, stmt.Params, stmt.Body, stmt.Line, false)
	reg := c.emitClosure(inner, stmt.Line)

	nameIdx := c.stringConstant(stmt.Name)
	c.emitABx(bytecode.OpSetGlobal, reg, nameIdx, stmt.Line)
	c.lastReg = reg
	return nil
}

func (c *Compiler) VisitClassStmt(stmt *parser.ClassStmt) interface{} {
	class := c.gc.NewClass(stmt.Name)
	c.gc.PushTempRoot(class)

	for _, method := range stmt.Methods {
		inner := c.compileFunction(method.Name, method.Params, method.Body, method.Line, true)
		class.Methods[method.Name] = inner.fn
		c.gc.PopTempRoot()
	}

	reg := c.allocReg(stmt.Line)
	classIdx := c.addConstant(value.Object(class))
	c.emitABx(bytecode.OpLoadK, reg, classIdx, stmt.Line)
	c.gc.PopTempRoot()

	nameIdx := c.stringConstant(stmt.Name)
	c.emitABx(bytecode.OpSetGlobal, reg, nameIdx, stmt.Line)
	c.lastReg = reg
	return nil
}

func (c *Compiler) VisitReturnStmt(stmt *parser.ReturnStmt) interface{} {
	if stmt.Value != nil {
		stmt.Value.Accept(c)
		c.emitABC(bytecode.OpReturn, c.lastReg, 2, 0, stmt.Line)
	} else {
		c.emitABC(bytecode.OpReturn, 0, 1, 0, stmt.Line)
	}
	return nil
}

func (c *Compiler) VisitImportStmt(stmt *parser.ImportStmt) interface{} {
	nameIdx := c.stringConstant(stmt.Path)
	reg := c.allocReg(stmt.Line)
	c.emitABx(bytecode.OpImport, reg, nameIdx, stmt.Line)

	c.bindName(stmt.Path, reg, stmt.Line)
	c.lastReg = reg
	return nil
}

func (c *Compiler) VisitFromImportStmt(stmt *parser.FromImportStmt) interface{} {
	nameIdx := c.stringConstant(stmt.Path)
	modReg := c.allocReg(stmt.Line)
	c.emitABx(bytecode.OpImport, modReg, nameIdx, stmt.Line)

	for _, symbol := range stmt.Symbols {
		symIdx := c.stringConstant(symbol)
		keyReg := c.allocReg(stmt.Line)
		c.emitABx(bytecode.OpLoadK, keyReg, symIdx, stmt.Line)

		valReg := c.allocReg(stmt.Line)
		c.emitABC(bytecode.OpGetTable, valReg, modReg, keyReg, stmt.Line)

		c.bindName(symbol, valReg, stmt.Line)
	}
	c.lastReg = modReg
	return nil
}

func (c *Compiler) VisitExportStmt(stmt *parser.ExportStmt) interface{} {
	stmt.Decl.Accept(c)
	valReg := c.lastReg

	var name string
	switch decl := stmt.Decl.(type) {
	case *parser.VarStmt:
		name = decl.Name
	case *parser.FunctionStmt:
		name = decl.Name
	case *parser.ClassStmt:
		name = decl.Name
	}

	if name != "" {
		nameIdx := c.stringConstant(name)
		c.emitABx(bytecode.OpExport, valReg, nameIdx, stmt.Line)
	}
	return nil
}

func (c *Compiler) VisitExportExprStmt(stmt *parser.ExportExprStmt) interface{} {
	stmt.Value.Accept(c)
	valReg := c.lastReg

	var name string
	switch e := stmt.Value.(type) {
	case *parser.Variable:
		name = e.Name
	case *parser.Property:
		name = e.Name
	}

	if name != "" {
		nameIdx := c.stringConstant(name)
		c.emitABx(bytecode.OpExport, valReg, nameIdx, stmt.Line)
	}
	return nil
}

// ---- functions and closures ----

// compileFunction builds a nested function body in its own compiler.
// Methods compile without a parent link, so their free names resolve
// as globals rather than captures, and register 1 is the receiver.
func (c *Compiler) compileFunction(name string, params []string, body []parser.Stmt, line int, isMethod bool) *Compiler {
	fn := c.gc.NewFunction(name, params)
	c.gc.PushTempRoot(fn)

	inner := &Compiler{
		gc:     c.gc,
		fn:     fn,
		chunk:  fn.Chunk,
		file:   c.file,
		strict: c.strict,
	}
	if !isMethod {
		inner.parent = c
	}

	inner.allocReg(line) // register 0 holds the callee
	if isMethod {
		inner.addLocal("this", inner.allocReg(line))
	}
	for _, p := range params {
		inner.addLocal(p, inner.allocReg(line))
	}

	for _, s := range body {
		s.Accept(inner)
		inner.resetFreeReg()
	}

	if isMethod && name == "init" {
		// Constructors return the receiver.
		inner.emitABC(bytecode.OpReturn, 1, 2, 0, line)
	} else {
		inner.emitABC(bytecode.OpReturn, 0, 1, 0, line)
	}

	fn.UpvalCount = len(inner.upvalues)
	c.errs = append(c.errs, inner.errs...)
	return inner
}

// emitClosure materializes a closure from a compiled template. Capture
// metadata follows the CLOSURE instruction, one word per upvalue.
func (c *Compiler) emitClosure(inner *Compiler, line int) int {
	reg := c.allocReg(line)
	fnIdx := c.addConstant(value.Object(inner.fn))
	c.gc.PopTempRoot()

	c.emitABx(bytecode.OpClosure, reg, fnIdx, line)
	for _, uv := range inner.upvalues {
		if uv.isLocal {
			c.emit(bytecode.CreateABC(bytecode.OpMove, 0, uv.index, 0), line)
		} else {
			c.emit(bytecode.CreateABC(bytecode.OpGetUpval, 0, uv.index, 0), line)
		}
	}
	c.lastReg = reg
	return reg
}

// ---- expressions ----

func (c *Compiler) VisitLiteralExpr(expr *parser.Literal) interface{} {
	reg := c.allocReg(expr.Line)
	switch v := expr.Value.(type) {
	case nil:
		c.emitABC(bytecode.OpLoadNil, reg, 0, 0, expr.Line)
	case bool:
		b := 0
		if v {
			b = 1
		}
		c.emitABC(bytecode.OpLoadBool, reg, b, 0, expr.Line)
	case float64:
		idx := c.addConstant(value.Number(v))
		c.emitABx(bytecode.OpLoadK, reg, idx, expr.Line)
	case string:
		idx := c.stringConstant(v)
		c.emitABx(bytecode.OpLoadK, reg, idx, expr.Line)
	default:
		c.errorf(expr.Line, "unsupported literal %T", expr.Value)
	}
	c.lastReg = reg
	return nil
}

func (c *Compiler) VisitVariableExpr(expr *parser.Variable) interface{} {
	if reg := c.resolveLocal(expr.Name); reg != -1 {
		dest := c.allocReg(expr.Line)
		c.emitABC(bytecode.OpMove, dest, reg, 0, expr.Line)
		c.lastReg = dest
		return nil
	}
	if idx := c.resolveUpvalue(expr.Name); idx != -1 {
		dest := c.allocReg(expr.Line)
		c.emitABC(bytecode.OpGetUpval, dest, idx, 0, expr.Line)
		c.lastReg = dest
		return nil
	}
	dest := c.allocReg(expr.Line)
	nameIdx := c.stringConstant(expr.Name)
	c.emitABx(bytecode.OpGetGlobal, dest, nameIdx, expr.Line)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitThisExpr(expr *parser.This) interface{} {
	reg := c.resolveLocal("this")
	if reg == -1 {
		c.errorf(expr.Line, "cannot use 'this' outside of a class method")
		c.lastReg = 0
		return nil
	}
	dest := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpMove, dest, reg, 0, expr.Line)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitBinaryExpr(expr *parser.Binary) interface{} {
	expr.Left.Accept(c)
	leftReg := c.lastReg
	expr.Right.Accept(c)
	rightReg := c.lastReg

	c.freeRegs(2)
	dest := c.allocReg(expr.Line)

	var op bytecode.OpCode
	swap := false
	invert := false
	switch expr.Operator {
	case "+":
		op = bytecode.OpAdd
	case "-":
		op = bytecode.OpSub
	case "*":
		op = bytecode.OpMul
	case "/":
		op = bytecode.OpDiv
	case "%":
		op = bytecode.OpMod
	case "^":
		op = bytecode.OpPow
	case "<":
		op = bytecode.OpLt
	case "<=":
		op = bytecode.OpLe
	case ">":
		op = bytecode.OpLt
		swap = true
	case ">=":
		op = bytecode.OpLe
		swap = true
	case "==":
		op = bytecode.OpEq
	case "!=":
		op = bytecode.OpEq
		invert = true
	default:
		c.errorf(expr.Line, "unknown binary operator '%s'", expr.Operator)
		c.lastReg = dest
		return nil
	}

	if swap {
		c.emitABC(op, dest, rightReg, leftReg, expr.Line)
	} else {
		c.emitABC(op, dest, leftReg, rightReg, expr.Line)
	}
	if invert {
		c.emitABC(bytecode.OpNot, dest, dest, 0, expr.Line)
	}
	c.lastReg = dest
	return nil
}

// VisitLogicalExpr short-circuits: the result register holds the left
// operand and is overwritten by the right operand only when the left
// does not decide the answer.
func (c *Compiler) VisitLogicalExpr(expr *parser.Logical) interface{} {
	expr.Left.Accept(c)
	leftReg := c.lastReg

	dest := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpMove, dest, leftReg, 0, expr.Line)

	skipWhen := 0
	if expr.Operator == "and" {
		skipWhen = 1
	}
	c.emitABC(bytecode.OpTest, dest, 0, skipWhen, expr.Line)
	endJump := c.emitJump(expr.Line)

	expr.Right.Accept(c)
	c.emitABC(bytecode.OpMove, dest, c.lastReg, 0, expr.Line)

	c.patchJump(endJump)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitUnaryExpr(expr *parser.Unary) interface{} {
	expr.Operand.Accept(c)
	operandReg := c.lastReg

	dest := c.allocReg(expr.Line)
	switch expr.Operator {
	case "-":
		c.emitABC(bytecode.OpUnm, dest, operandReg, 0, expr.Line)
	case "!":
		c.emitABC(bytecode.OpNot, dest, operandReg, 0, expr.Line)
	default:
		c.errorf(expr.Line, "unknown unary operator '%s'", expr.Operator)
	}
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitCallExpr(expr *parser.Call) interface{} {
	if ident, ok := expr.Callee.(*parser.Variable); ok && ident.Name == "print" {
		c.compilePrint(expr)
		return nil
	}

	if prop, ok := expr.Callee.(*parser.Property); ok {
		c.compileMethodCall(prop, expr)
		return nil
	}

	expr.Callee.Accept(c)
	calleeReg := c.lastReg

	for i, arg := range expr.Args {
		arg.Accept(c)
		c.emitABC(bytecode.OpMove, calleeReg+1+i, c.lastReg, 0, expr.Line)
	}

	c.emitABC(bytecode.OpCall, calleeReg, len(expr.Args)+1, 1, expr.Line)
	c.lastReg = calleeReg
	return nil
}

// compileMethodCall keeps the receiver in the slot right after the
// callee so the callee sees it as register 1.
func (c *Compiler) compileMethodCall(prop *parser.Property, expr *parser.Call) {
	prop.Object.Accept(c)
	objReg := c.lastReg

	calleeReg := c.allocReg(expr.Line)

	nameIdx := c.stringConstant(prop.Name)
	keyReg := c.allocReg(expr.Line)
	c.emitABx(bytecode.OpLoadK, keyReg, nameIdx, expr.Line)
	c.emitABC(bytecode.OpGetTable, calleeReg, objReg, keyReg, expr.Line)

	c.emitABC(bytecode.OpMove, calleeReg+1, objReg, 0, expr.Line)

	for i, arg := range expr.Args {
		arg.Accept(c)
		c.emitABC(bytecode.OpMove, calleeReg+2+i, c.lastReg, 0, expr.Line)
	}

	c.emitABC(bytecode.OpCall, calleeReg, len(expr.Args)+2, 1, expr.Line)
	c.lastReg = calleeReg
}

func (c *Compiler) compilePrint(expr *parser.Call) {
	base := c.allocReg(expr.Line)
	argCount := len(expr.Args)
	for i := 1; i < argCount; i++ {
		c.allocReg(expr.Line)
	}

	for i, arg := range expr.Args {
		arg.Accept(c)
		c.emitABC(bytecode.OpMove, base+i, c.lastReg, 0, expr.Line)
	}
	c.emitABC(bytecode.OpPrint, base, argCount, 0, expr.Line)
	c.freeRegs(argCount)

	reg := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpLoadNil, reg, 0, 0, expr.Line)
	c.lastReg = reg
}

func (c *Compiler) VisitPropertyExpr(expr *parser.Property) interface{} {
	expr.Object.Accept(c)
	objReg := c.lastReg

	nameIdx := c.stringConstant(expr.Name)

	dest := c.allocReg(expr.Line)
	keyReg := c.allocReg(expr.Line)
	c.emitABx(bytecode.OpLoadK, keyReg, nameIdx, expr.Line)

	c.emitABC(bytecode.OpGetTable, dest, objReg, keyReg, expr.Line)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitIndexExpr(expr *parser.Index) interface{} {
	expr.Object.Accept(c)
	objReg := c.lastReg

	expr.Key.Accept(c)
	keyReg := c.lastReg

	dest := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpGetTable, dest, objReg, keyReg, expr.Line)
	c.lastReg = dest
	return nil
}

// VisitSliceExpr places the bounds in two consecutive registers
// starting at B; a missing start defaults to zero and a missing end to
// the object length.
func (c *Compiler) VisitSliceExpr(expr *parser.Slice) interface{} {
	expr.Object.Accept(c)
	objReg := c.lastReg

	base := c.allocReg(expr.Line)
	c.allocReg(expr.Line) // slot for the end bound

	if expr.Start != nil {
		expr.Start.Accept(c)
		c.emitABC(bytecode.OpMove, base, c.lastReg, 0, expr.Line)
	} else {
		zeroIdx := c.addConstant(value.Number(0))
		c.emitABx(bytecode.OpLoadK, base, zeroIdx, expr.Line)
	}

	if expr.End != nil {
		expr.End.Accept(c)
		c.emitABC(bytecode.OpMove, base+1, c.lastReg, 0, expr.Line)
	} else {
		c.emitABC(bytecode.OpLen, base+1, objReg, 0, expr.Line)
	}

	dest := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpSlice, dest, objReg, base, expr.Line)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitTernaryExpr(expr *parser.Ternary) interface{} {
	expr.Cond.Accept(c)
	condReg := c.lastReg

	c.emitABC(bytecode.OpTest, condReg, 0, 1, expr.Line)
	elseJump := c.emitJump(expr.Line)

	expr.Then.Accept(c)
	dest := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpMove, dest, c.lastReg, 0, expr.Line)
	endJump := c.emitJump(expr.Line)

	c.patchJump(elseJump)
	expr.Else.Accept(c)
	c.emitABC(bytecode.OpMove, dest, c.lastReg, 0, expr.Line)

	c.patchJump(endJump)
	c.lastReg = dest
	return nil
}

func (c *Compiler) VisitListExpr(expr *parser.ListExpr) interface{} {
	listReg := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpNewList, listReg, 0, 0, expr.Line)

	for i, element := range expr.Elements {
		keyReg := c.allocReg(expr.Line)
		idx := c.addConstant(value.Number(float64(i)))
		c.emitABx(bytecode.OpLoadK, keyReg, idx, expr.Line)

		element.Accept(c)
		c.emitABC(bytecode.OpSetTable, listReg, keyReg, c.lastReg, expr.Line)
	}
	c.lastReg = listReg
	return nil
}

func (c *Compiler) VisitTableExpr(expr *parser.TableExpr) interface{} {
	tableReg := c.allocReg(expr.Line)
	c.emitABC(bytecode.OpNewTable, tableReg, 0, 0, expr.Line)

	for i := range expr.Keys {
		expr.Keys[i].Accept(c)
		keyReg := c.lastReg

		expr.Values[i].Accept(c)
		valReg := c.lastReg

		c.emitABC(bytecode.OpSetTable, tableReg, keyReg, valReg, expr.Line)
	}
	c.lastReg = tableReg
	return nil
}

func (c *Compiler) VisitFunctionExpr(expr *parser.FunctionExpr) interface{} {
	name := expr.Name
	if name == "" {
		name = "anonymous"
	}
	inner := c.compileFunction(name, expr.Params, expr.Body, expr.Line, false)
	c.emitClosure(inner, expr.Line)
	return nil
}
