package value

import "strconv"

// Kind discriminates the immediate variants of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is the tagged runtime value: nil, boolean, IEEE-754 double, or a
// reference to a heap object.
type Value struct {
	kind Kind
	b    bool
	n    float64
	o    Obj
}

func Nil() Value              { return Value{kind: KindNil} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(n float64) Value  { return Value{kind: KindNumber, n: n} }
func Object(o Obj) Value      { return Value{kind: KindObject, o: o} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) AsBool() bool    { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObject() Obj   { return v.o }

func (v Value) objKind() (ObjKind, bool) {
	if v.kind != KindObject {
		return 0, false
	}
	return v.o.Header().Kind, true
}

func (v Value) IsString() bool   { k, ok := v.objKind(); return ok && k == ObjString }
func (v Value) IsList() bool     { k, ok := v.objKind(); return ok && k == ObjList }
func (v Value) IsTable() bool    { k, ok := v.objKind(); return ok && k == ObjTable }
func (v Value) IsFunction() bool { k, ok := v.objKind(); return ok && k == ObjFunction }
func (v Value) IsNative() bool   { k, ok := v.objKind(); return ok && k == ObjNative }
func (v Value) IsClass() bool    { k, ok := v.objKind(); return ok && k == ObjClass }
func (v Value) IsInstance() bool { k, ok := v.objKind(); return ok && k == ObjInstance }
func (v Value) IsModule() bool   { k, ok := v.objKind(); return ok && k == ObjModule }

func (v Value) AsString() string      { return v.o.(*String).Str }
func (v Value) AsStringObj() *String  { return v.o.(*String) }
func (v Value) AsList() *List         { return v.o.(*List) }
func (v Value) AsTable() *Table       { return v.o.(*Table) }
func (v Value) AsFunction() *Function { return v.o.(*Function) }
func (v Value) AsNative() *Native     { return v.o.(*Native) }
func (v Value) AsClass() *Class       { return v.o.(*Class) }
func (v Value) AsInstance() *Instance { return v.o.(*Instance) }
func (v Value) AsModule() *Module     { return v.o.(*Module) }

// Truthy reports the Language's truthiness: nil and false are falsey,
// everything else (including 0 and "") is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal compares two values: IEEE equality on numbers, byte equality on
// strings, identity on all other objects.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	default:
		if a.IsString() && b.IsString() {
			return a.AsString() == b.AsString()
		}
		return a.o == b.o
	}
}

func typeRank(v Value) int {
	switch v.kind {
	case KindNil:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 2
	}
	switch v.o.Header().Kind {
	case ObjString:
		return 3
	case ObjList:
		return 4
	case ObjTable:
		return 5
	case ObjFunction:
		return 6
	case ObjNative:
		return 7
	case ObjClass:
		return 8
	case ObjInstance:
		return 9
	default:
		return 10
	}
}

// Compare implements the total order over values used for table keys:
// type rank first, then natural order within numbers, strings and bools,
// allocation order (identity) for everything else.
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNil:
		return 0
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		default:
			return 0
		}
	}
	if a.IsString() {
		sa, sb := a.AsString(), b.AsString()
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	}
	sa, sb := a.o.Header().Seq, b.o.Header().Seq
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// ToString renders a value the way print and string concatenation see it.
// Integer-valued numbers render without a fractional part.
func (v Value) ToString() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	}
	switch o := v.o.(type) {
	case *String:
		return o.Str
	case *List:
		s := "["
		for i, e := range o.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.ToString()
		}
		return s + "]"
	case *Table:
		s := "{"
		for i, e := range o.entries {
			if i > 0 {
				s += ", "
			}
			s += e.key.ToString() + ": " + e.val.ToString()
		}
		return s + "}"
	case *Function:
		if o.Name == "" {
			return "<fn>"
		}
		return "<fn " + o.Name + ">"
	case *Native:
		return "<native fn " + o.Name + ">"
	case *Class:
		return "<class " + o.Name + ">"
	case *Instance:
		return "<" + o.Class.Name + " instance>"
	case *Module:
		return "<module " + o.Name + ">"
	}
	return "<object>"
}

// TypeName is the name reported by the type() native.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	}
	switch v.o.Header().Kind {
	case ObjString:
		return "string"
	case ObjList:
		return "list"
	case ObjTable:
		return "table"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjModule:
		return "module"
	}
	return "object"
}
