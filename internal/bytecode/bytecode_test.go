package bytecode

import "testing"

func TestABCRoundTrip(t *testing.T) {
	cases := []struct{ a, b, c int }{
		{0, 0, 0},
		{1, 2, 3},
		{MaxA, MaxB, MaxC},
		{MaxA, 0, MaxC},
	}
	for _, tc := range cases {
		i := CreateABC(OpAdd, tc.a, tc.b, tc.c)
		if i.OpCode() != OpAdd {
			t.Fatalf("op = %v", i.OpCode())
		}
		if i.A() != tc.a || i.B() != tc.b || i.C() != tc.c {
			t.Fatalf("roundtrip %v -> A=%d B=%d C=%d", tc, i.A(), i.B(), i.C())
		}
	}
}

func TestABxRoundTrip(t *testing.T) {
	for _, bx := range []int{0, 1, 255, MaxBx} {
		i := CreateABx(OpLoadK, MaxA, bx)
		if i.OpCode() != OpLoadK || i.A() != MaxA || i.Bx() != bx {
			t.Fatalf("bx=%d -> op=%v A=%d Bx=%d", bx, i.OpCode(), i.A(), i.Bx())
		}
	}
}

func TestAsBxRoundTrip(t *testing.T) {
	for _, sbx := range []int{0, 1, -1, 100, -100, BiasSBx - 1, -BiasSBx} {
		i := CreateAsBx(OpJmp, 0, sbx)
		if i.OpCode() != OpJmp || i.SBx() != sbx {
			t.Fatalf("sbx=%d -> op=%v SBx=%d", sbx, i.OpCode(), i.SBx())
		}
	}
}

func TestFieldsDoNotOverlap(t *testing.T) {
	i := CreateABC(OpMove, MaxA, 0, 0)
	if i.B() != 0 || i.C() != 0 {
		t.Fatalf("A bled into B/C: B=%d C=%d", i.B(), i.C())
	}
	i = CreateABC(OpMove, 0, MaxB, 0)
	if i.A() != 0 || i.C() != 0 {
		t.Fatalf("B bled into A/C: A=%d C=%d", i.A(), i.C())
	}
	i = CreateABC(OpMove, 0, 0, MaxC)
	if i.A() != 0 || i.B() != 0 {
		t.Fatalf("C bled into A/B: A=%d B=%d", i.A(), i.B())
	}
}

func TestOpCodeString(t *testing.T) {
	cases := []struct {
		op   OpCode
		want string
	}{
		{OpMove, "MOVE"},
		{OpLoadK, "LOADK"},
		{OpSetGlobal, "SETGLOBAL"},
		{OpTForLoop, "TFORLOOP"},
		{OpPrint, "PRINT"},
	}
	for _, c := range cases {
		if got := c.op.String(); got != c.want {
			t.Fatalf("String(%d) = %q, want %q", c.op, got, c.want)
		}
	}
	if got := OpCode(63).String(); got != "OP(63)" {
		t.Fatalf("unknown op = %q", got)
	}
}

func TestBiasCoversJumpRange(t *testing.T) {
	// A jump offset must reach both directions across the 18-bit field.
	if BiasSBx != 1<<17 {
		t.Fatalf("bias = %d", BiasSBx)
	}
	back := CreateAsBx(OpJmp, 0, -BiasSBx)
	fwd := CreateAsBx(OpJmp, 0, MaxBx-BiasSBx)
	if back.SBx() != -BiasSBx || fwd.SBx() != MaxBx-BiasSBx {
		t.Fatalf("extremes: back=%d fwd=%d", back.SBx(), fwd.SBx())
	}
}
