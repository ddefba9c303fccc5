package vm

import (
	"fmt"
	"math"
	"strings"

	"rowan/internal/bytecode"
	"rowan/internal/errors"
	"rowan/internal/gc"
	"rowan/internal/value"
)

// windowSize is the register window reserved for each call frame.
const windowSize = 256

// CallFrame is one activation record. destReg names the register in the
// caller's window that receives the return value.
type CallFrame struct {
	fn      *value.Function
	chunk   *value.Chunk
	ip      int
	base    int
	destReg int
}

// ModuleLoader resolves an import path to a module value. A nil return with
// no error means the module was not found.
type ModuleLoader func(path string) (value.Value, error)

// VM executes compiled chunks over a register stack.
type VM struct {
	gc      *gc.GC
	globals map[string]value.Value

	loader        ModuleLoader
	moduleCache   map[string]value.Value
	currentModule *value.Module

	stack    []value.Value
	stackTop int
	frames   []CallFrame

	out func(string)
}

// New creates a VM with the len native bound as a global and registers it
// as a GC root source.
func New(g *gc.GC) *VM {
	v := &VM{
		gc:          g,
		globals:     make(map[string]value.Value),
		moduleCache: make(map[string]value.Value),
		stack:       make([]value.Value, 4*windowSize),
		out:         func(s string) { fmt.Print(s) },
	}
	g.AddRootSource(v)
	v.RegisterNative("len", 1, func(args []value.Value) (value.Value, error) {
		a := args[0]
		switch {
		case a.IsString():
			return value.Number(float64(len(a.AsString()))), nil
		case a.IsList():
			return value.Number(float64(len(a.AsList().Elems))), nil
		case a.IsTable():
			return value.Number(float64(a.AsTable().Len())), nil
		default:
			return value.Nil(), fmt.Errorf("len expects a string, list, or table, got %s", a.TypeName())
		}
	})
	return v
}

// SetModuleLoader installs the callback consulted by IMPORT.
func (v *VM) SetModuleLoader(l ModuleLoader) { v.loader = l }

// SetOutput redirects print output, mainly for tests and the REPL.
func (v *VM) SetOutput(fn func(string)) { v.out = fn }

// Print writes through the VM's output sink, for natives that print.
func (v *VM) Print(s string) { v.out(s) }

// GC exposes the collector shared with the compiler and loader.
func (v *VM) GC() *gc.GC { return v.gc }

// RegisterNative binds a host function as a global. Arity -1 accepts any
// argument count.
func (v *VM) RegisterNative(name string, arity int, fn func([]value.Value) (value.Value, error)) {
	n := v.gc.NewNative(name, arity, fn)
	v.globals[name] = value.Object(n)
}

// RegisterGlobal binds an arbitrary value as a global.
func (v *VM) RegisterGlobal(name string, val value.Value) {
	v.globals[name] = val
}

// Global reads a global by name.
func (v *VM) Global(name string) (value.Value, bool) {
	val, ok := v.globals[name]
	return val, ok
}

// CachedModule returns a previously imported module, if any.
func (v *VM) CachedModule(path string) (value.Value, bool) {
	m, ok := v.moduleCache[path]
	return m, ok
}

// CacheModule records a loaded module for reuse by later imports.
func (v *VM) CacheModule(path string, m value.Value) {
	v.moduleCache[path] = m
}

// MarkRoots reports every value reachable from the VM to the collector.
func (v *VM) MarkRoots(m value.Marker) {
	for i := 0; i < v.stackTop && i < len(v.stack); i++ {
		m.MarkValue(v.stack[i])
	}
	for _, g := range v.globals {
		m.MarkValue(g)
	}
	for _, mod := range v.moduleCache {
		m.MarkValue(mod)
	}
	if v.currentModule != nil {
		m.MarkObject(v.currentModule)
	}
	for i := range v.frames {
		f := &v.frames[i]
		if f.fn != nil {
			m.MarkObject(f.fn)
		}
		if f.chunk != nil {
			for _, k := range f.chunk.Constants {
				m.MarkValue(k)
			}
		}
	}
}

// Interpret runs fn's chunk to completion in the context of module, which
// may be nil for top-level scripts.
func (v *VM) Interpret(fn *value.Function, module *value.Module) (value.Value, error) {
	savedModule := v.currentModule
	if module != nil {
		v.currentModule = module
	}

	baseFrame := len(v.frames)
	frameBase := v.stackTop
	v.frames = append(v.frames, CallFrame{fn: fn, chunk: fn.Chunk, base: frameBase})
	v.stackTop = frameBase + windowSize
	v.ensureStack()

	result, err := v.run(baseFrame)

	v.frames = v.frames[:baseFrame]
	v.stackTop = frameBase
	v.currentModule = savedModule
	return result, err
}

func (v *VM) ensureStack() {
	for v.stackTop+windowSize >= len(v.stack) {
		v.stack = append(v.stack, make([]value.Value, len(v.stack))...)
	}
}

// pushFrame activates fn with its window at base. destReg is resolved
// against the caller's window on return.
func (v *VM) pushFrame(fn *value.Function, base, destReg int) {
	v.frames = append(v.frames, CallFrame{fn: fn, chunk: fn.Chunk, base: base, destReg: destReg})
	if base+windowSize > v.stackTop {
		v.stackTop = base + windowSize
	}
	v.ensureStack()
}

// callValue begins a script-level call at the window starting at calleeAbs.
// Arguments already sit above the callee register.
func (v *VM) callValue(frame *CallFrame, a, argCount int, line int) error {
	calleeAbs := frame.base + a
	callee := v.stack[calleeAbs]

	switch {
	case callee.IsNative():
		n := callee.AsNative()
		// math.sqrt(x) arrives with the module seated as a receiver
		// argument. Drop it when the callee came from that module.
		if argCount > 0 && v.stack[calleeAbs+1].IsModule() {
			if exp, ok := v.stack[calleeAbs+1].AsModule().Exports[n.Name]; ok && exp.IsNative() && exp.AsNative() == n {
				copy(v.stack[calleeAbs+1:calleeAbs+argCount], v.stack[calleeAbs+2:calleeAbs+1+argCount])
				argCount--
			}
		}
		if n.Arity >= 0 && argCount != n.Arity {
			return v.runtimeError(line, "%s expects %d arguments, got %d", n.Name, n.Arity, argCount)
		}
		args := make([]value.Value, argCount)
		copy(args, v.stack[calleeAbs+1:calleeAbs+1+argCount])
		res, err := n.Fn(args)
		if err != nil {
			return v.wrapNativeError(err, line)
		}
		v.stack[calleeAbs] = res
		return nil

	case callee.IsFunction():
		fn := callee.AsFunction()
		// Module-qualified calls pass the module as a spurious first
		// argument. Strip it so m.f(x) and f(x) see the same frame.
		if argCount > len(fn.Params) && argCount > 0 && v.stack[calleeAbs+1].IsModule() {
			copy(v.stack[calleeAbs+1:calleeAbs+argCount], v.stack[calleeAbs+2:calleeAbs+1+argCount])
		}
		v.pushFrame(fn, calleeAbs, a)
		return nil

	case callee.IsClass():
		class := callee.AsClass()
		inst := v.gc.NewInstance(class)
		if init := class.FindMethod("init"); init != nil {
			if argCount != len(init.Params) {
				return v.runtimeError(line, "%s.init expects %d arguments, got %d", class.Name, len(init.Params), argCount)
			}
			// Shift arguments up one slot and seat the receiver.
			for i := argCount; i >= 1; i-- {
				v.stack[calleeAbs+i+1] = v.stack[calleeAbs+i]
			}
			v.stack[calleeAbs+1] = value.Object(inst)
			v.pushFrame(init, calleeAbs, a)
			return nil
		}
		if argCount != 0 {
			return v.runtimeError(line, "%s takes no arguments, got %d", class.Name, argCount)
		}
		v.stack[calleeAbs] = value.Object(inst)
		return nil

	default:
		return v.runtimeError(line, "Attempt to call a %s value.", callee.TypeName())
	}
}

// callOverload invokes a unary or binary metamethod in a fresh window at
// the top of the stack. destReg is relative to the calling frame's window.
func (v *VM) callOverload(method *value.Function, receiver value.Value, args []value.Value, destReg int) {
	callBase := v.stackTop
	v.ensureStack()
	v.stack[callBase] = value.Object(method)
	v.stack[callBase+1] = receiver
	for i, arg := range args {
		v.stack[callBase+2+i] = arg
	}
	v.frames = append(v.frames, CallFrame{fn: method, chunk: method.Chunk, base: callBase, destReg: destReg})
	v.stackTop = callBase + windowSize
	v.ensureStack()
}

func (v *VM) findOverload(val value.Value, name string) (*value.Function, bool) {
	if !val.IsInstance() {
		return nil, false
	}
	m := val.AsInstance().Class.FindMethod(name)
	return m, m != nil
}

func (v *VM) run(baseFrame int) (value.Value, error) {
	for {
		frame := &v.frames[len(v.frames)-1]
		chunk := frame.chunk
		if frame.ip >= len(chunk.Code) {
			// Fell off the end without RETURN.
			dest := frame.destReg
			v.stackTop = frame.base
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == baseFrame {
				return value.Nil(), nil
			}
			caller := &v.frames[len(v.frames)-1]
			v.stack[caller.base+dest] = value.Nil()
			v.stackTop = caller.base + windowSize
			continue
		}

		inst := chunk.Code[frame.ip]
		line := chunk.Lines[frame.ip]
		frame.ip++

		op := inst.OpCode()
		a := inst.A()
		regs := v.stack[frame.base:]

		switch op {
		case bytecode.OpMove:
			regs[a] = regs[inst.B()]

		case bytecode.OpLoadK:
			regs[a] = chunk.Constants[inst.Bx()]

		case bytecode.OpLoadBool:
			regs[a] = value.Bool(inst.B() != 0)
			if inst.C() != 0 {
				frame.ip++
			}

		case bytecode.OpLoadNil:
			for i := a; i <= a+inst.B(); i++ {
				regs[i] = value.Nil()
			}

		case bytecode.OpAdd:
			lhs, rhs := regs[inst.B()], regs[inst.C()]
			switch {
			case lhs.IsNumber() && rhs.IsNumber():
				regs[a] = value.Number(lhs.AsNumber() + rhs.AsNumber())
			default:
				if m, ok := v.findOverload(lhs, "__add__"); ok {
					v.callOverload(m, lhs, []value.Value{rhs}, a)
					continue
				}
				if lhs.IsString() || rhs.IsString() {
					s := v.gc.NewString(lhs.ToString() + rhs.ToString())
					regs[a] = value.Object(s)
					break
				}
				return value.Nil(), v.runtimeError(line, "Cannot add %s and %s.", lhs.TypeName(), rhs.TypeName())
			}

		case bytecode.OpSub:
			res, done, err := v.arith(frame, a, inst.B(), inst.C(), line, "__sub__", "subtract",
				func(x, y float64) (float64, error) { return x - y, nil })
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpMul:
			res, done, err := v.arith(frame, a, inst.B(), inst.C(), line, "__mul__", "multiply",
				func(x, y float64) (float64, error) { return x * y, nil })
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpDiv:
			res, done, err := v.arith(frame, a, inst.B(), inst.C(), line, "__div__", "divide",
				func(x, y float64) (float64, error) {
					if y == 0 {
						return 0, errDivZero
					}
					return x / y, nil
				})
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpMod:
			res, done, err := v.arith(frame, a, inst.B(), inst.C(), line, "__mod__", "take modulo of",
				func(x, y float64) (float64, error) {
					if y == 0 {
						return 0, errModZero
					}
					return math.Mod(x, y), nil
				})
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpPow:
			res, done, err := v.arith(frame, a, inst.B(), inst.C(), line, "__pow__", "exponentiate",
				func(x, y float64) (float64, error) { return math.Pow(x, y), nil })
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpUnm:
			operand := regs[inst.B()]
			if operand.IsNumber() {
				regs[a] = value.Number(-operand.AsNumber())
				break
			}
			if m, ok := v.findOverload(operand, "__neg__"); ok {
				v.callOverload(m, operand, nil, a)
				continue
			}
			return value.Nil(), v.runtimeError(line, "Cannot negate a %s.", operand.TypeName())

		case bytecode.OpNot:
			operand := regs[inst.B()]
			if m, ok := v.findOverload(operand, "__not__"); ok {
				v.callOverload(m, operand, nil, a)
				continue
			}
			regs[a] = value.Bool(!operand.Truthy())

		case bytecode.OpLen:
			operand := regs[inst.B()]
			switch {
			case operand.IsString():
				regs[a] = value.Number(float64(len(operand.AsString())))
			case operand.IsList():
				regs[a] = value.Number(float64(len(operand.AsList().Elems)))
			case operand.IsTable():
				regs[a] = value.Number(float64(operand.AsTable().Len()))
			default:
				regs[a] = value.Number(0)
			}

		case bytecode.OpConcat:
			s := v.gc.NewString(regs[inst.B()].ToString() + regs[inst.C()].ToString())
			regs[a] = value.Object(s)

		case bytecode.OpJmp:
			frame.ip += inst.SBx()

		case bytecode.OpEq:
			lhs, rhs := regs[inst.B()], regs[inst.C()]
			if m, ok := v.findOverload(lhs, "__eq__"); ok {
				v.callOverload(m, lhs, []value.Value{rhs}, a)
				continue
			}
			regs[a] = value.Bool(value.Equal(lhs, rhs))

		case bytecode.OpLt:
			res, done, err := v.compare(frame, a, inst.B(), inst.C(), line, "__lt__", func(c int) bool { return c < 0 })
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpLe:
			res, done, err := v.compare(frame, a, inst.B(), inst.C(), line, "__le__", func(c int) bool { return c <= 0 })
			if err != nil {
				return value.Nil(), err
			}
			if !done {
				continue
			}
			regs[a] = res

		case bytecode.OpTest:
			if regs[a].Truthy() == (inst.C() != 0) {
				frame.ip++
			}

		case bytecode.OpCall:
			if err := v.callValue(frame, a, inst.B()-1, line); err != nil {
				return value.Nil(), err
			}

		case bytecode.OpReturn:
			var result value.Value
			if inst.B() > 1 {
				result = regs[a]
			} else {
				result = value.Nil()
			}
			dest := frame.destReg
			v.stackTop = frame.base
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == baseFrame {
				return result, nil
			}
			caller := &v.frames[len(v.frames)-1]
			v.stack[caller.base+dest] = result
			// The callee's window started inside the caller's; keep the
			// caller's whole window below stackTop so later overload calls
			// and GC root scans cover its live registers.
			v.stackTop = caller.base + windowSize

		case bytecode.OpGetGlobal:
			name := chunk.Constants[inst.Bx()].AsString()
			if g, ok := v.globals[name]; ok {
				regs[a] = g
			} else {
				regs[a] = value.Nil()
			}

		case bytecode.OpSetGlobal:
			name := chunk.Constants[inst.Bx()].AsString()
			v.globals[name] = regs[a]

		case bytecode.OpGetUpval:
			if frame.fn != nil && inst.B() < len(frame.fn.Upvalues) {
				regs[a] = frame.fn.Upvalues[inst.B()]
			} else {
				regs[a] = value.Nil()
			}

		case bytecode.OpSetUpval:
			if frame.fn != nil && inst.B() < len(frame.fn.Upvalues) {
				frame.fn.Upvalues[inst.B()] = regs[a]
				v.gc.WriteBarrier(frame.fn, regs[a])
			}

		case bytecode.OpClosure:
			tmpl := chunk.Constants[inst.Bx()].AsFunction()
			fn := v.gc.CloneFunction(tmpl)
			fn.Module = v.currentModule
			fn.Upvalues = make([]value.Value, tmpl.UpvalCount)
			for i := 0; i < tmpl.UpvalCount; i++ {
				capture := chunk.Code[frame.ip]
				frame.ip++
				if capture.OpCode() == bytecode.OpMove {
					fn.Upvalues[i] = v.stack[frame.base+capture.B()]
				} else if frame.fn != nil && capture.B() < len(frame.fn.Upvalues) {
					fn.Upvalues[i] = frame.fn.Upvalues[capture.B()]
				} else {
					fn.Upvalues[i] = value.Nil()
				}
				v.gc.WriteBarrier(fn, fn.Upvalues[i])
			}
			regs[a] = value.Object(fn)

		case bytecode.OpNewList:
			regs[a] = value.Object(v.gc.NewList())

		case bytecode.OpNewTable:
			regs[a] = value.Object(v.gc.NewTable())

		case bytecode.OpGetTable:
			obj, key := regs[inst.B()], regs[inst.C()]
			res, err := v.index(obj, key, line)
			if err != nil {
				return value.Nil(), err
			}
			regs[a] = res

		case bytecode.OpSetTable:
			obj, key, val := regs[a], regs[inst.B()], regs[inst.C()]
			if err := v.setIndex(obj, key, val, line); err != nil {
				return value.Nil(), err
			}

		case bytecode.OpImport:
			path := chunk.Constants[inst.Bx()].AsString()
			if cached, ok := v.moduleCache[path]; ok {
				regs[a] = cached
				break
			}
			if v.loader == nil {
				return value.Nil(), v.runtimeError(line, "No module loader installed for import %q.", path)
			}
			// The loader may reenter the VM to run the module's top
			// level, growing the stack. Address registers absolutely.
			base := frame.base
			mod, err := v.loader(path)
			if err != nil {
				if e, ok := err.(*errors.Error); ok {
					return value.Nil(), e
				}
				return value.Nil(), v.runtimeError(line, "import %q: %v", path, err)
			}
			if mod.IsNil() {
				return value.Nil(), v.runtimeError(line, "Module %q not found.", path)
			}
			v.moduleCache[path] = mod
			v.stack[base+a] = mod

		case bytecode.OpExport:
			if v.currentModule != nil {
				name := chunk.Constants[inst.Bx()].AsString()
				v.currentModule.Exports[name] = regs[a]
				v.gc.WriteBarrier(v.currentModule, regs[a])
			}

		case bytecode.OpGetIter:
			iterable := regs[inst.B()]
			if iterable.IsInstance() {
				inst2 := iterable.AsInstance()
				if inst2.Class.FindMethod("next") == nil {
					if m := inst2.Class.FindMethod("iterator"); m != nil {
						// The produced object lands in the iterator slot;
						// TFORCALL checks it for a next method.
						v.callOverload(m, iterable, nil, a)
						continue
					}
				}
			}
			regs[a] = iterable

		case bytecode.OpTForCall:
			dest, base := a, inst.B()
			iter := regs[base+4]
			lastKey := regs[base+1]
			switch {
			case iter.IsInstance():
				m := iter.AsInstance().Class.FindMethod("next")
				if m == nil {
					return value.Nil(), v.runtimeError(line, "Iterator object has no next method.")
				}
				v.callOverload(m, iter, nil, dest)
				continue
			case iter.IsTable():
				key, val, ok := iter.AsTable().NextAfter(lastKey)
				if ok {
					regs[dest] = key
					regs[dest+1] = val
				} else {
					regs[dest] = value.Nil()
				}
			case iter.IsList():
				elems := iter.AsList().Elems
				idx := 0
				if lastKey.IsNumber() {
					idx = int(lastKey.AsNumber()) + 1
				}
				if idx < len(elems) {
					regs[dest] = value.Number(float64(idx))
					regs[dest+1] = elems[idx]
				} else {
					regs[dest] = value.Nil()
				}
			case iter.IsString():
				s := iter.AsString()
				idx := 0
				if lastKey.IsNumber() {
					idx = int(lastKey.AsNumber()) + 1
				}
				if idx < len(s) {
					regs[dest] = value.Number(float64(idx))
					regs[dest+1] = value.Object(v.gc.NewString(s[idx : idx+1]))
				} else {
					regs[dest] = value.Nil()
				}
			default:
				return value.Nil(), v.runtimeError(line, "Cannot iterate a %s value.", iter.TypeName())
			}

		case bytecode.OpTForLoop:
			if !regs[a+2].IsNil() {
				regs[a+1] = regs[a+2]
				frame.ip += inst.SBx()
			}

		case bytecode.OpSlice:
			obj := regs[inst.B()]
			start, end := regs[inst.C()], regs[inst.C()+1]
			res, err := v.slice(obj, start, end, line)
			if err != nil {
				return value.Nil(), err
			}
			regs[a] = res

		case bytecode.OpPrint:
			parts := make([]string, inst.B())
			for i := 0; i < inst.B(); i++ {
				parts[i] = regs[a+i].ToString()
			}
			v.out(strings.Join(parts, " ") + "\n")

		default:
			return value.Nil(), v.runtimeError(line, "Unknown opcode %s.", op)
		}
	}
}

var (
	errDivZero = fmt.Errorf("Division by zero.")
	errModZero = fmt.Errorf("Modulo by zero.")
)

// arith applies a numeric binary operator, dispatching to an instance
// overload when the left operand provides one. done is false when an
// overload frame was pushed and the result arrives later.
func (v *VM) arith(frame *CallFrame, a, b, c, line int, overload, verb string, op func(x, y float64) (float64, error)) (value.Value, bool, error) {
	regs := v.stack[frame.base:]
	lhs, rhs := regs[b], regs[c]
	if lhs.IsNumber() && rhs.IsNumber() {
		n, err := op(lhs.AsNumber(), rhs.AsNumber())
		if err != nil {
			return value.Nil(), true, v.runtimeError(line, "%s", err.Error())
		}
		return value.Number(n), true, nil
	}
	if m, ok := v.findOverload(lhs, overload); ok {
		v.callOverload(m, lhs, []value.Value{rhs}, a)
		return value.Nil(), false, nil
	}
	return value.Nil(), true, v.runtimeError(line, "Cannot %s %s and %s.", verb, lhs.TypeName(), rhs.TypeName())
}

// compare evaluates an ordering operator with overload dispatch.
func (v *VM) compare(frame *CallFrame, a, b, c, line int, overload string, accept func(int) bool) (value.Value, bool, error) {
	regs := v.stack[frame.base:]
	lhs, rhs := regs[b], regs[c]
	if m, ok := v.findOverload(lhs, overload); ok {
		v.callOverload(m, lhs, []value.Value{rhs}, a)
		return value.Nil(), false, nil
	}
	switch {
	case lhs.IsNumber() && rhs.IsNumber(), lhs.IsString() && rhs.IsString():
		return value.Bool(accept(value.Compare(lhs, rhs))), true, nil
	}
	return value.Nil(), true, v.runtimeError(line, "Cannot compare %s and %s.", lhs.TypeName(), rhs.TypeName())
}

// index implements R[A] = obj[key] for every indexable kind.
func (v *VM) index(obj, key value.Value, line int) (value.Value, error) {
	switch {
	case obj.IsTable():
		if res, ok := obj.AsTable().Get(key); ok {
			return res, nil
		}
		return value.Nil(), nil

	case obj.IsList():
		if !key.IsNumber() {
			return value.Nil(), v.runtimeError(line, "List index must be a number, got %s.", key.TypeName())
		}
		elems := obj.AsList().Elems
		idx := normalizeIndex(int(key.AsNumber()), len(elems))
		if idx < 0 || idx >= len(elems) {
			return value.Nil(), nil
		}
		return elems[idx], nil

	case obj.IsString():
		if !key.IsNumber() {
			return value.Nil(), v.runtimeError(line, "String index must be a number, got %s.", key.TypeName())
		}
		s := obj.AsString()
		idx := normalizeIndex(int(key.AsNumber()), len(s))
		if idx < 0 || idx >= len(s) {
			return value.Nil(), nil
		}
		return value.Object(v.gc.NewString(s[idx : idx+1])), nil

	case obj.IsInstance():
		if !key.IsString() {
			return value.Nil(), v.runtimeError(line, "Instance field name must be a string.")
		}
		inst := obj.AsInstance()
		name := key.AsString()
		if f, ok := inst.Fields[name]; ok {
			return f, nil
		}
		if m := inst.Class.FindMethod(name); m != nil {
			return value.Object(m), nil
		}
		return value.Nil(), nil

	case obj.IsModule():
		if !key.IsString() {
			return value.Nil(), v.runtimeError(line, "Module member name must be a string.")
		}
		if res, ok := obj.AsModule().Exports[key.AsString()]; ok {
			return res, nil
		}
		return value.Nil(), v.runtimeError(line, "Module %s has no member %q.", obj.AsModule().Name, key.AsString())

	case obj.IsClass():
		if key.IsString() {
			if m := obj.AsClass().FindMethod(key.AsString()); m != nil {
				return value.Object(m), nil
			}
		}
		return value.Nil(), nil

	default:
		return value.Nil(), v.runtimeError(line, "Attempt to index a %s value.", obj.TypeName())
	}
}

// setIndex implements obj[key] = val.
func (v *VM) setIndex(obj, key, val value.Value, line int) error {
	switch {
	case obj.IsTable():
		t := obj.AsTable()
		t.Set(key, val)
		v.gc.WriteBarrier(t, key)
		v.gc.WriteBarrier(t, val)
		return nil

	case obj.IsList():
		if !key.IsNumber() {
			return v.runtimeError(line, "List index must be a number, got %s.", key.TypeName())
		}
		l := obj.AsList()
		idx := normalizeIndex(int(key.AsNumber()), len(l.Elems))
		switch {
		case idx >= 0 && idx < len(l.Elems):
			l.Elems[idx] = val
		case idx == len(l.Elems):
			l.Elems = append(l.Elems, val)
		default:
			return v.runtimeError(line, "List index %d out of range for length %d.", int(key.AsNumber()), len(l.Elems))
		}
		v.gc.WriteBarrier(l, val)
		return nil

	case obj.IsInstance():
		if !key.IsString() {
			return v.runtimeError(line, "Instance field name must be a string.")
		}
		inst := obj.AsInstance()
		inst.Set(key.AsString(), val)
		v.gc.WriteBarrier(inst, val)
		return nil

	default:
		return v.runtimeError(line, "Cannot assign into a %s value.", obj.TypeName())
	}
}

// slice implements obj[start:end] with negative-index normalization and
// clamping.
func (v *VM) slice(obj, start, end value.Value, line int) (value.Value, error) {
	if !start.IsNumber() || !end.IsNumber() {
		return value.Nil(), v.runtimeError(line, "Slice bounds must be numbers.")
	}

	bounds := func(length int) (int, int) {
		s, e := int(start.AsNumber()), int(end.AsNumber())
		if s < 0 {
			s += length
		}
		if e < 0 {
			e += length
		}
		if s < 0 {
			s = 0
		}
		if e > length {
			e = length
		}
		return s, e
	}

	switch {
	case obj.IsList():
		elems := obj.AsList().Elems
		s, e := bounds(len(elems))
		out := v.gc.NewList()
		if s < e {
			out.Elems = append(out.Elems, elems[s:e]...)
		}
		return value.Object(out), nil

	case obj.IsString():
		str := obj.AsString()
		s, e := bounds(len(str))
		if s >= e {
			return value.Object(v.gc.NewString("")), nil
		}
		return value.Object(v.gc.NewString(str[s:e])), nil

	default:
		return value.Nil(), v.runtimeError(line, "Cannot slice a %s value.", obj.TypeName())
	}
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return idx + length
	}
	return idx
}

// runtimeError builds an error with the current script-level call stack.
func (v *VM) runtimeError(line int, format string, args ...interface{}) error {
	e := errors.NewRuntimeError(fmt.Sprintf(format, args...), line)
	v.attachStack(e, line)
	return e
}

func (v *VM) wrapNativeError(err error, line int) error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	e := errors.NewRuntimeError(err.Error(), line)
	v.attachStack(e, line)
	return e
}

func (v *VM) attachStack(e *errors.Error, line int) {
	for i := 0; i < len(v.frames); i++ {
		f := &v.frames[i]
		name := "<script>"
		if f.fn != nil && f.fn.Name != "" {
			name = f.fn.Name
		}
		frameLine := line
		if i < len(v.frames)-1 && f.chunk != nil && f.ip > 0 && f.ip-1 < len(f.chunk.Lines) {
			frameLine = f.chunk.Lines[f.ip-1]
		}
		e.PushFrame(name, frameLine)
	}
}
