package bytecode

import "fmt"

// OpCode identifies a VM instruction.
type OpCode uint8

const (
	OpMove      OpCode = iota // R[A] = R[B]
	OpLoadK                   // R[A] = K[Bx]
	OpLoadBool                // R[A] = bool(B); if C != 0 skip next instruction
	OpLoadNil                 // R[A..A+B] = nil
	OpAdd                     // R[A] = R[B] + R[C]
	OpSub                     // R[A] = R[B] - R[C]
	OpMul                     // R[A] = R[B] * R[C]
	OpDiv                     // R[A] = R[B] / R[C]
	OpMod                     // R[A] = R[B] % R[C]
	OpPow                     // R[A] = R[B] ^ R[C]
	OpUnm                     // R[A] = -R[B]
	OpNot                     // R[A] = !R[B]
	OpLen                     // R[A] = len(R[B])
	OpConcat                  // R[A] = R[B] .. R[C]
	OpJmp                     // pc += sBx
	OpEq                      // R[A] = R[B] == R[C]
	OpLt                      // R[A] = R[B] < R[C]
	OpLe                      // R[A] = R[B] <= R[C]
	OpTest                    // if truthy(R[A]) == bool(C) then pc++
	OpTestSet                 // if truthy(R[B]) == bool(C) then R[A] = R[B] else pc++
	OpCall                    // R[A] = R[A](R[A+1..A+B-1]); C is not read by the VM
	OpTailCall                // reserved
	OpReturn                  // return R[A] if B > 1, else nil
	OpGetGlobal               // R[A] = globals[K[Bx]]
	OpSetGlobal               // globals[K[Bx]] = R[A]
	OpGetUpval                // R[A] = U[B]
	OpSetUpval                // U[B] = R[A]
	OpClosure                 // R[A] = closure(K[Bx]); followed by capture words
	OpNewList                 // R[A] = [] (elements follow as SETTABLE)
	OpNewTable                // R[A] = {} (entries follow as SETTABLE)
	OpSelf                    // reserved
	OpGetTable                // R[A] = R[B][R[C]]
	OpSetTable                // R[A][R[B]] = R[C]
	OpForLoop                 // reserved
	OpForPrep                 // reserved
	OpTForCall                // R[A], R[A+1] = next(iterator at R[B+4])
	OpTForLoop                // if R[A+2] != nil then R[A+1] = R[A+2]; pc += sBx
	OpImport                  // R[A] = import(K[Bx])
	OpExport                  // exports[K[Bx]] = R[A]
	OpGetIter                 // R[A] = iterator(R[B])
	OpSlice                   // R[A] = R[B][R[C] : R[C+1]]
	OpPrint                   // print R[A..A+B-1]
)

// Instruction is a 32-bit encoded VM instruction.
//
// Layout (LSB to MSB): op:6 | A:8 | C:9 | B:9. Bx occupies the C and B
// fields as one 18-bit unsigned operand; sBx is Bx with an excess bias.
type Instruction uint32

const (
	SizeOp = 6
	SizeA  = 8
	SizeC  = 9
	SizeB  = 9
	SizeBx = SizeC + SizeB

	PosOp = 0
	PosA  = PosOp + SizeOp
	PosC  = PosA + SizeA
	PosB  = PosC + SizeC
	PosBx = PosC

	MaxA  = 1<<SizeA - 1
	MaxB  = 1<<SizeB - 1
	MaxC  = 1<<SizeC - 1
	MaxBx = 1<<SizeBx - 1

	// BiasSBx converts between signed jump offsets and the unsigned Bx field.
	BiasSBx = 1 << (SizeBx - 1)
)

func CreateABC(op OpCode, a, b, c int) Instruction {
	return Instruction(op)<<PosOp |
		Instruction(a)<<PosA |
		Instruction(c)<<PosC |
		Instruction(b)<<PosB
}

func CreateABx(op OpCode, a, bx int) Instruction {
	return Instruction(op)<<PosOp |
		Instruction(a)<<PosA |
		Instruction(bx)<<PosBx
}

func CreateAsBx(op OpCode, a, sbx int) Instruction {
	return CreateABx(op, a, sbx+BiasSBx)
}

func (i Instruction) OpCode() OpCode {
	return OpCode(i >> PosOp & (1<<SizeOp - 1))
}

func (i Instruction) A() int {
	return int(i >> PosA & (1<<SizeA - 1))
}

func (i Instruction) B() int {
	return int(i >> PosB & (1<<SizeB - 1))
}

func (i Instruction) C() int {
	return int(i >> PosC & (1<<SizeC - 1))
}

func (i Instruction) Bx() int {
	return int(i >> PosBx & (1<<SizeBx - 1))
}

func (i Instruction) SBx() int {
	return i.Bx() - BiasSBx
}

var opNames = [...]string{
	OpMove:      "MOVE",
	OpLoadK:     "LOADK",
	OpLoadBool:  "LOADBOOL",
	OpLoadNil:   "LOADNIL",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpMod:       "MOD",
	OpPow:       "POW",
	OpUnm:       "UNM",
	OpNot:       "NOT",
	OpLen:       "LEN",
	OpConcat:    "CONCAT",
	OpJmp:       "JMP",
	OpEq:        "EQ",
	OpLt:        "LT",
	OpLe:        "LE",
	OpTest:      "TEST",
	OpTestSet:   "TESTSET",
	OpCall:      "CALL",
	OpTailCall:  "TAILCALL",
	OpReturn:    "RETURN",
	OpGetGlobal: "GETGLOBAL",
	OpSetGlobal: "SETGLOBAL",
	OpGetUpval:  "GETUPVAL",
	OpSetUpval:  "SETUPVAL",
	OpClosure:   "CLOSURE",
	OpNewList:   "NEWLIST",
	OpNewTable:  "NEWTABLE",
	OpSelf:      "SELF",
	OpGetTable:  "GETTABLE",
	OpSetTable:  "SETTABLE",
	OpForLoop:   "FORLOOP",
	OpForPrep:   "FORPREP",
	OpTForCall:  "TFORCALL",
	OpTForLoop:  "TFORLOOP",
	OpImport:    "IMPORT",
	OpExport:    "EXPORT",
	OpGetIter:   "GETITER",
	OpSlice:     "SLICE",
	OpPrint:     "PRINT",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OP(%d)", uint8(op))
}
