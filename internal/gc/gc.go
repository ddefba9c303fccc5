package gc

import (
	"unsafe"

	"github.com/tliron/commonlog"

	"rowan/internal/value"
)

var log = commonlog.GetLogger("rowan.gc")

// DefaultThreshold is the initial allocation budget before the first
// collection cycle.
const DefaultThreshold = 1 << 20

// majorEvery is the number of minor cycles between full collections.
const majorEvery = 4

// RootSource is implemented by owners of GC roots (the VM, the loader).
type RootSource interface {
	MarkRoots(m value.Marker)
}

// GC is a generational mark-sweep collector. Objects are born Young,
// survivors of a cycle are promoted to Old. Marking is iterative over an
// explicit gray stack.
type GC struct {
	young value.Obj
	old   value.Obj

	bytesAllocated int
	nextGC         int
	initial        int
	seq            uint64
	sinceMajor     int
	minor          bool

	gray       []value.Obj
	remembered []value.Obj
	tempRoots  []value.Obj
	roots      []RootSource
}

func New() *GC {
	return &GC{
		nextGC:  DefaultThreshold,
		initial: DefaultThreshold,
	}
}

// SetThreshold overrides the initial collection threshold.
func (g *GC) SetThreshold(n int) {
	if n > 0 {
		g.initial = n
		g.nextGC = n
	}
}

// AddRootSource registers a provider of roots consulted at every cycle.
func (g *GC) AddRootSource(r RootSource) {
	g.roots = append(g.roots, r)
}

// track links a fresh object into the Young list and charges its size.
// The fresh object is temp-rooted across any collection it triggers.
func (g *GC) track(o value.Obj, bytes int) {
	h := o.Header()
	h.Bytes = bytes
	h.Gen = value.GenYoung
	g.seq++
	h.Seq = g.seq
	h.Next = g.young
	g.young = o
	g.bytesAllocated += bytes

	if g.bytesAllocated > g.nextGC {
		g.PushTempRoot(o)
		if g.sinceMajor >= majorEvery {
			g.Collect()
		} else {
			g.CollectMinor()
		}
		g.PopTempRoot()
	}
}

func (g *GC) NewString(s string) *value.String {
	o := &value.String{Str: s, Hash: value.HashString(s)}
	o.Kind = value.ObjString
	g.track(o, int(unsafe.Sizeof(*o))+len(s))
	return o
}

func (g *GC) NewList() *value.List {
	o := &value.List{}
	o.Kind = value.ObjList
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewListWith(elems []value.Value) *value.List {
	o := g.NewList()
	o.Elems = elems
	return o
}

func (g *GC) NewTable() *value.Table {
	o := &value.Table{}
	o.Kind = value.ObjTable
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewFunction(name string, params []string) *value.Function {
	o := &value.Function{Name: name, Params: params, Chunk: &value.Chunk{}}
	o.Kind = value.ObjFunction
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

// CloneFunction stamps a closure from a compiled template: the Chunk is
// shared, the upvalue slots are fresh.
func (g *GC) CloneFunction(tmpl *value.Function) *value.Function {
	o := &value.Function{
		Name:       tmpl.Name,
		Params:     tmpl.Params,
		Chunk:      tmpl.Chunk,
		UpvalCount: tmpl.UpvalCount,
		Upvalues:   make([]value.Value, 0, tmpl.UpvalCount),
	}
	o.Kind = value.ObjFunction
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewNative(name string, arity int, fn func([]value.Value) (value.Value, error)) *value.Native {
	o := &value.Native{Name: name, Arity: arity, Fn: fn}
	o.Kind = value.ObjNative
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewClass(name string) *value.Class {
	o := &value.Class{Name: name, Methods: make(map[string]*value.Function)}
	o.Kind = value.ObjClass
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewInstance(class *value.Class) *value.Instance {
	o := &value.Instance{Class: class, Fields: make(map[string]value.Value)}
	o.Kind = value.ObjInstance
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

func (g *GC) NewModule(name, path string) *value.Module {
	o := &value.Module{Name: name, Path: path, Exports: make(map[string]value.Value)}
	o.Kind = value.ObjModule
	g.track(o, int(unsafe.Sizeof(*o)))
	return o
}

// MarkObject marks an object and queues it for child tracing. During a
// minor cycle the Old generation is treated as live and is not traced;
// Young objects held only by Old parents are reached through the
// remembered set instead.
func (g *GC) MarkObject(o value.Obj) {
	if o == nil {
		return
	}
	h := o.Header()
	if g.minor && h.Gen == value.GenOld {
		return
	}
	if h.Marked {
		return
	}
	h.Marked = true
	g.gray = append(g.gray, o)
}

// MarkValue marks the object behind a value, if any.
func (g *GC) MarkValue(v value.Value) {
	if v.IsObject() {
		g.MarkObject(v.AsObject())
	}
}

// WriteBarrier records an Old parent that received a Young child.
func (g *GC) WriteBarrier(parent value.Obj, child value.Value) {
	if parent == nil || parent.Header().Gen != value.GenOld {
		return
	}
	if child.IsObject() && child.AsObject().Header().Gen == value.GenYoung {
		g.remembered = append(g.remembered, parent)
	}
}

// PushTempRoot protects an object across allocations; pop in LIFO order.
func (g *GC) PushTempRoot(o value.Obj) {
	g.tempRoots = append(g.tempRoots, o)
}

func (g *GC) PopTempRoot() {
	g.tempRoots = g.tempRoots[:len(g.tempRoots)-1]
}

// Collect runs a full mark-sweep cycle over both generations.
func (g *GC) Collect() {
	g.minor = false
	g.sinceMajor = 0
	g.cycle("full")
}

// CollectMinor sweeps only the Young generation. The Old generation is
// assumed live; its edges into Young come from the remembered set.
func (g *GC) CollectMinor() {
	g.minor = true
	g.sinceMajor++
	g.cycle("minor")
	g.minor = false
}

func (g *GC) cycle(kind string) {
	before := g.bytesAllocated

	g.mark()
	var freed, promoted int
	if !g.minor {
		freed = g.sweepOld()
	}
	f, p := g.sweepYoung()
	freed += f
	promoted = p

	g.remembered = g.remembered[:0]
	g.nextGC = 2 * g.bytesAllocated
	if g.nextGC < g.initial {
		g.nextGC = g.initial
	}

	log.Debugf("%s cycle: %d bytes -> %d, freed %d objects, promoted %d, next at %d",
		kind, before, g.bytesAllocated, freed, promoted, g.nextGC)
}

func (g *GC) mark() {
	for _, r := range g.roots {
		r.MarkRoots(g)
	}
	for _, o := range g.tempRoots {
		g.MarkObject(o)
	}
	if g.minor {
		for _, parent := range g.remembered {
			parent.MarkChildren(g)
		}
	}
	for len(g.gray) > 0 {
		o := g.gray[len(g.gray)-1]
		g.gray = g.gray[:len(g.gray)-1]
		o.MarkChildren(g)
	}
}

// sweepOld unmarks survivors and drops the rest.
func (g *GC) sweepOld() (freed int) {
	var kept value.Obj
	for o := g.old; o != nil; {
		next := o.Header().Next
		if o.Header().Marked {
			o.Header().Marked = false
			o.Header().Next = kept
			kept = o
		} else {
			g.bytesAllocated -= o.Header().Bytes
			freed++
		}
		o = next
	}
	g.old = kept
	return freed
}

// sweepYoung promotes survivors onto the Old list.
func (g *GC) sweepYoung() (freed, promoted int) {
	for o := g.young; o != nil; {
		next := o.Header().Next
		if o.Header().Marked {
			o.Header().Marked = false
			o.Header().Gen = value.GenOld
			o.Header().Next = g.old
			g.old = o
			promoted++
		} else {
			g.bytesAllocated -= o.Header().Bytes
			freed++
		}
		o = next
	}
	g.young = nil
	return freed, promoted
}

// ObjectCount walks both generation lists.
func (g *GC) ObjectCount() int {
	n := 0
	for o := g.young; o != nil; o = o.Header().Next {
		n++
	}
	for o := g.old; o != nil; o = o.Header().Next {
		n++
	}
	return n
}

// BytesAllocated is the accounted live-heap size.
func (g *GC) BytesAllocated() int { return g.bytesAllocated }
