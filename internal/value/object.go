package value

// ObjKind identifies the variant of a heap object.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjList
	ObjTable
	ObjFunction
	ObjNative
	ObjClass
	ObjInstance
	ObjModule
)

// Generation of a heap object.
type Generation uint8

const (
	GenYoung Generation = iota
	GenOld
)

// Header carries the GC metadata shared by every heap object: the mark
// bit, the generation, the accounted size, an allocation sequence number
// (used for identity ordering) and the intrusive generation-list link.
type objHeader struct {
	Kind   ObjKind
	Marked bool
	Gen    Generation
	Bytes  int
	Seq    uint64
	Next   Obj
}

func (h *objHeader) Header() *objHeader { return h }

// Marker is the tracing interface handed to MarkChildren; the collector
// implements it.
type Marker interface {
	MarkValue(v Value)
	MarkObject(o Obj)
}

// Obj is implemented by every heap object variant.
type Obj interface {
	Header() *objHeader
	MarkChildren(m Marker)
}

type (
	// String is an immutable byte sequence.
	String struct {
		objHeader
		Str  string
		Hash uint64
	}

	// List is an ordered sequence of values.
	List struct {
		objHeader
		Elems []Value
	}

	// Function is a compiled function. The zero-upvalue template lives in
	// a constant pool; CLOSURE stamps a copy with captured upvalue slots.
	Function struct {
		objHeader
		Name       string
		Params     []string
		Chunk      *Chunk
		UpvalCount int
		Upvalues   []Value
		Module     *Module
	}

	// Native is a host function callable from the Language.
	Native struct {
		objHeader
		Name  string
		Arity int // -1 means variadic
		Fn    func(args []Value) (Value, error)
	}

	// Class holds the shared method table; instances reference it.
	Class struct {
		objHeader
		Name    string
		Methods map[string]*Function
	}

	// Instance of a Class. Fields are created on first write.
	Instance struct {
		objHeader
		Class  *Class
		Fields map[string]Value
	}

	// Module is a named export table produced by the loader.
	Module struct {
		objHeader
		Name    string
		Path    string
		Exports map[string]Value
		Loaded  bool
	}
)

func (s *String) MarkChildren(m Marker) {}

func (l *List) MarkChildren(m Marker) {
	for _, e := range l.Elems {
		m.MarkValue(e)
	}
}

func (t *Table) MarkChildren(m Marker) {
	for _, e := range t.entries {
		m.MarkValue(e.key)
		m.MarkValue(e.val)
	}
}

func (f *Function) MarkChildren(m Marker) {
	if f.Chunk != nil {
		for _, c := range f.Chunk.Constants {
			m.MarkValue(c)
		}
	}
	for _, u := range f.Upvalues {
		m.MarkValue(u)
	}
	if f.Module != nil {
		m.MarkObject(f.Module)
	}
}

func (n *Native) MarkChildren(m Marker) {}

func (c *Class) MarkChildren(m Marker) {
	for _, fn := range c.Methods {
		m.MarkObject(fn)
	}
}

func (i *Instance) MarkChildren(m Marker) {
	m.MarkObject(i.Class)
	for _, v := range i.Fields {
		m.MarkValue(v)
	}
}

func (mo *Module) MarkChildren(m Marker) {
	for _, v := range mo.Exports {
		m.MarkValue(v)
	}
}

// FindMethod looks a method up in the class's shared table.
func (c *Class) FindMethod(name string) *Function {
	if c == nil {
		return nil
	}
	return c.Methods[name]
}

// Get reads an instance field; missing fields read as nil.
func (i *Instance) Get(name string) Value {
	if v, ok := i.Fields[name]; ok {
		return v
	}
	return Nil()
}

// Set writes an instance field, creating it on first write.
func (i *Instance) Set(name string, v Value) {
	if i.Fields == nil {
		i.Fields = make(map[string]Value)
	}
	i.Fields[name] = v
}

// HashString is FNV-1a over the string bytes.
func HashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
