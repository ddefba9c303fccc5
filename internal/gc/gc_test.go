package gc

import (
	"testing"

	"rowan/internal/value"
)

// rootList is a RootSource backed by a plain slice.
type rootList struct {
	objs []value.Obj
}

func (r *rootList) MarkRoots(m value.Marker) {
	for _, o := range r.objs {
		m.MarkObject(o)
	}
}

func TestRootedObjectSurvivesCollect(t *testing.T) {
	g := New()
	roots := &rootList{}
	g.AddRootSource(roots)

	s := g.NewString("keep")
	roots.objs = append(roots.objs, s)
	g.NewString("garbage one")
	g.NewString("garbage two")

	g.Collect()

	if got := g.ObjectCount(); got != 1 {
		t.Fatalf("ObjectCount = %d, want 1", got)
	}
	if s.Str != "keep" {
		t.Fatalf("survivor corrupted: %q", s.Str)
	}
}

func TestUnrootedObjectsFreed(t *testing.T) {
	g := New()
	g.NewString("a")
	g.NewList()
	g.NewTable()

	g.Collect()

	if got := g.ObjectCount(); got != 0 {
		t.Fatalf("ObjectCount = %d, want 0", got)
	}
	if got := g.BytesAllocated(); got != 0 {
		t.Fatalf("BytesAllocated = %d, want 0", got)
	}
}

func TestTempRootProtects(t *testing.T) {
	g := New()
	s := g.NewString("pinned")
	g.PushTempRoot(s)
	g.Collect()
	if got := g.ObjectCount(); got != 1 {
		t.Fatalf("ObjectCount = %d, want 1", got)
	}

	g.PopTempRoot()
	g.Collect()
	if got := g.ObjectCount(); got != 0 {
		t.Fatalf("ObjectCount after pop = %d, want 0", got)
	}
}

func TestChildrenTracedThroughContainers(t *testing.T) {
	g := New()
	roots := &rootList{}
	g.AddRootSource(roots)

	l := g.NewList()
	roots.objs = append(roots.objs, l)
	elem := g.NewString("inside")
	l.Elems = append(l.Elems, value.Object(elem))

	g.Collect()

	if got := g.ObjectCount(); got != 2 {
		t.Fatalf("ObjectCount = %d, want 2", got)
	}
	if !l.Elems[0].IsString() || l.Elems[0].AsString() != "inside" {
		t.Fatalf("element lost: %v", l.Elems[0])
	}
}

func TestSurvivorsPromotedToOld(t *testing.T) {
	g := New()
	s := g.NewString("x")
	g.PushTempRoot(s)
	defer g.PopTempRoot()

	if s.Header().Gen != value.GenYoung {
		t.Fatal("fresh object should be young")
	}
	g.Collect()
	if s.Header().Gen != value.GenOld {
		t.Fatal("survivor should be promoted to old")
	}
}

func TestMinorCycleLeavesOldAlone(t *testing.T) {
	g := New()
	old := g.NewString("elder")
	g.PushTempRoot(old)
	g.Collect()
	g.PopTempRoot()

	// old is now unrooted and in the old generation; a minor cycle must
	// not free it.
	g.NewString("young garbage")
	g.CollectMinor()

	if got := g.ObjectCount(); got != 1 {
		t.Fatalf("ObjectCount = %d, want 1", got)
	}

	// A full cycle does reclaim it.
	g.Collect()
	if got := g.ObjectCount(); got != 0 {
		t.Fatalf("ObjectCount after full = %d, want 0", got)
	}
}

func TestWriteBarrierKeepsYoungChildAlive(t *testing.T) {
	g := New()
	roots := &rootList{}
	g.AddRootSource(roots)

	parent := g.NewList()
	roots.objs = append(roots.objs, parent)
	g.Collect()
	if parent.Header().Gen != value.GenOld {
		t.Fatal("parent should be old after a full cycle")
	}

	child := g.NewString("newborn")
	parent.Elems = append(parent.Elems, value.Object(child))
	g.WriteBarrier(parent, value.Object(child))

	g.CollectMinor()

	if got := g.ObjectCount(); got != 2 {
		t.Fatalf("ObjectCount = %d, want 2", got)
	}
	if child.Header().Gen != value.GenOld {
		t.Fatal("surviving child should be promoted")
	}
	if parent.Elems[0].AsString() != "newborn" {
		t.Fatalf("child corrupted: %v", parent.Elems[0])
	}
}

func TestWriteBarrierIgnoresYoungParent(t *testing.T) {
	g := New()
	parent := g.NewList()
	child := g.NewString("c")
	g.WriteBarrier(parent, value.Object(child))
	if len(g.remembered) != 0 {
		t.Fatal("young parent must not enter the remembered set")
	}
}

func TestAllocationTriggersCollection(t *testing.T) {
	g := New()
	g.SetThreshold(1)

	s := g.NewString("first")
	g.PushTempRoot(s)
	for i := 0; i < 16; i++ {
		g.NewList()
	}
	if got := g.ObjectCount(); got >= 17 {
		t.Fatalf("ObjectCount = %d after 17 allocations, want triggered cycles to reclaim some", got)
	}
	g.Collect()
	g.PopTempRoot()

	if s.Str != "first" {
		t.Fatalf("rooted object corrupted: %q", s.Str)
	}
	if got := g.ObjectCount(); got != 1 {
		t.Fatalf("ObjectCount = %d, want 1", got)
	}
}

func TestFullCycleEveryFourMinors(t *testing.T) {
	g := New()
	g.SetThreshold(1)

	// Promote an object, drop the root, then allocate enough to drive
	// several cycles. The periodic full cycle must reclaim it.
	elder := g.NewString("doomed")
	g.PushTempRoot(elder)
	g.Collect()
	g.PopTempRoot()

	for i := 0; i < 32; i++ {
		g.NewList()
	}
	for o := g.old; o != nil; o = o.Header().Next {
		if o == value.Obj(elder) {
			t.Fatal("promoted object survived the periodic full cycle")
		}
	}
	g.Collect()

	if got := g.ObjectCount(); got != 0 {
		t.Fatalf("ObjectCount = %d, want 0", got)
	}
}

func TestBytesAccounting(t *testing.T) {
	g := New()
	if g.BytesAllocated() != 0 {
		t.Fatal("fresh heap should account zero bytes")
	}
	s := g.NewString("abcdef")
	if g.BytesAllocated() <= len("abcdef") {
		t.Fatalf("BytesAllocated = %d, want string header plus payload", g.BytesAllocated())
	}
	g.PushTempRoot(s)
	before := g.BytesAllocated()
	g.NewString("transient")
	g.Collect()
	g.PopTempRoot()
	if g.BytesAllocated() != before {
		t.Fatalf("BytesAllocated = %d, want %d after reclaiming garbage", g.BytesAllocated(), before)
	}
}

func TestAllocationSequenceIsMonotonic(t *testing.T) {
	g := New()
	a := g.NewList()
	b := g.NewList()
	if a.Header().Seq >= b.Header().Seq {
		t.Fatalf("seq not monotonic: %d then %d", a.Header().Seq, b.Header().Seq)
	}
}

func TestCloneFunctionSharesChunk(t *testing.T) {
	g := New()
	tmpl := g.NewFunction("f", []string{"x"})
	tmpl.UpvalCount = 2

	clone := g.CloneFunction(tmpl)
	if clone.Chunk != tmpl.Chunk {
		t.Fatal("clone must share the template chunk")
	}
	if clone.UpvalCount != 2 || len(clone.Upvalues) != 0 || cap(clone.Upvalues) != 2 {
		t.Fatalf("upvalue slots wrong: count=%d len=%d cap=%d",
			clone.UpvalCount, len(clone.Upvalues), cap(clone.Upvalues))
	}
	if clone.Name != "f" || len(clone.Params) != 1 {
		t.Fatalf("template metadata not copied: %q %v", clone.Name, clone.Params)
	}
}

func TestConstructorsSetKinds(t *testing.T) {
	g := New()
	cases := []struct {
		obj  value.Obj
		kind value.ObjKind
	}{
		{g.NewString("s"), value.ObjString},
		{g.NewList(), value.ObjList},
		{g.NewTable(), value.ObjTable},
		{g.NewFunction("f", nil), value.ObjFunction},
		{g.NewNative("n", 0, nil), value.ObjNative},
		{g.NewClass("C"), value.ObjClass},
		{g.NewModule("m", "m.rn"), value.ObjModule},
	}
	for _, c := range cases {
		if c.obj.Header().Kind != c.kind {
			t.Fatalf("kind = %d, want %d", c.obj.Header().Kind, c.kind)
		}
		if c.obj.Header().Gen != value.GenYoung {
			t.Fatal("fresh objects must be young")
		}
	}
}
