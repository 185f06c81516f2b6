package arm64

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

type (
	Op uint8

	Cond uint8

	OperandKind uint8

	IndexMode uint8

	// Operand is one of register, vector register, immediate,
	// memory reference, register list, condition or label.
	Operand struct {
		Kind OperandKind

		Reg  Reg
		Size uint8 // register access size in bits
		Arr  Arrangement

		Imm   int64
		Shift uint8 // LSL amount of an immediate

		Off   int32
		Index IndexMode

		Cond  Cond
		Label int
	}

	// Instr is a machine instruction.
	// The first Out args are the registers it writes.
	Instr struct {
		Op   Op
		Out  int8
		Args []Operand

		// Origin is the IR value the instruction was selected for, -1 if none.
		Origin int32
	}
)

const (
	OpInvalid Op = iota
	OpLabel      // pseudo: block label

	OpMOVZ
	OpMOVN
	OpMOVK
	OpMOV
	OpMOVI
	OpDUP
	OpLD1R
	OpLDR
	OpLDRB
	OpLDRH
	OpADD
	OpSUB
	OpSUBS
	OpTST
	OpCSEL
	OpEOR
	OpSTP
	OpLDP
	OpB
	OpBCond
	OpCBZ
	OpCBNZ
	OpRET
)

const (
	KindNone OperandKind = iota
	KindReg
	KindVec
	KindImm
	KindMem
	KindList
	KindCond
	KindLabel
)

const (
	IndexNone IndexMode = iota
	IndexPre
	IndexPost
)

const (
	EQ Cond = iota
	NE
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpLabel:   "label",
	OpMOVZ:    "movz",
	OpMOVN:    "movn",
	OpMOVK:    "movk",
	OpMOV:     "mov",
	OpMOVI:    "movi",
	OpDUP:     "dup",
	OpLD1R:    "ld1r",
	OpLDR:     "ldr",
	OpLDRB:    "ldrb",
	OpLDRH:    "ldrh",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSUBS:    "subs",
	OpTST:     "tst",
	OpCSEL:    "csel",
	OpEOR:     "eor",
	OpSTP:     "stp",
	OpLDP:     "ldp",
	OpB:       "b",
	OpBCond:   "b",
	OpCBZ:     "cbz",
	OpCBNZ:    "cbnz",
	OpRET:     "ret",
}

var condNames = [...]string{
	EQ: "eq",
	NE: "ne",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}

	return "op" + strconv.Itoa(int(op))
}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}

	return "?"
}

func (c Cond) Invert() Cond {
	return c ^ 1
}

// R is a general purpose or scalar SIMD register operand of size bits.
func R(r Reg, size int) Operand {
	return Operand{Kind: KindReg, Reg: r, Size: uint8(size)}
}

func V(r Reg, a Arrangement) Operand {
	return Operand{Kind: KindVec, Reg: r, Arr: a}
}

func Imm(v int64) Operand {
	return Operand{Kind: KindImm, Imm: v}
}

func ImmShift(v int64, shift int) Operand {
	return Operand{Kind: KindImm, Imm: v, Shift: uint8(shift)}
}

func Mem(base Reg, off int32) Operand {
	return Operand{Kind: KindMem, Reg: base, Off: off}
}

func MemPre(base Reg, off int32) Operand {
	return Operand{Kind: KindMem, Reg: base, Off: off, Index: IndexPre}
}

func MemPost(base Reg, off int32) Operand {
	return Operand{Kind: KindMem, Reg: base, Off: off, Index: IndexPost}
}

func List(r Reg, a Arrangement) Operand {
	return Operand{Kind: KindList, Reg: r, Arr: a}
}

func C(c Cond) Operand {
	return Operand{Kind: KindCond, Cond: c}
}

func L(label int) Operand {
	return Operand{Kind: KindLabel, Label: label}
}

func (o Operand) IsReg() bool {
	return o.Kind == KindReg || o.Kind == KindVec || o.Kind == KindList
}

func (o Operand) AppendText(b []byte) []byte {
	switch o.Kind {
	case KindReg:
		return append(b, o.Reg.Name(int(o.Size))...)
	case KindVec:
		return hfmt.Appendf(b, "%s.%v", o.Reg.Name(0), o.Arr)
	case KindImm:
		b = hfmt.Appendf(b, "#%d", o.Imm)

		if o.Shift != 0 {
			b = hfmt.Appendf(b, ", LSL #%d", o.Shift)
		}

		return b
	case KindMem:
		base := o.Reg.Name(64)

		switch {
		case o.Index == IndexPre:
			return hfmt.Appendf(b, "[%s, #%d]!", base, o.Off)
		case o.Index == IndexPost:
			return hfmt.Appendf(b, "[%s], #%d", base, o.Off)
		case o.Off != 0:
			return hfmt.Appendf(b, "[%s, #%d]", base, o.Off)
		default:
			return hfmt.Appendf(b, "[%s]", base)
		}
	case KindList:
		return hfmt.Appendf(b, "{ %s.%v }", o.Reg.Name(0), o.Arr)
	case KindCond:
		return append(b, o.Cond.String()...)
	case KindLabel:
		return hfmt.Appendf(b, "block%d", o.Label)
	default:
		return append(b, '?')
	}
}

func (o Operand) String() string {
	return string(o.AppendText(nil))
}

// Mnemonic is the instruction name as printed, b.ne for conditional branches.
func (x Instr) Mnemonic() string {
	if x.Op == OpBCond && len(x.Args) != 0 {
		return "b." + x.Args[0].Cond.String()
	}

	return x.Op.String()
}

// Defs returns the registers the instruction writes.
func (x Instr) Defs() []Reg {
	var r []Reg

	for _, a := range x.Args[:x.Out] {
		if a.IsReg() {
			r = append(r, a.Reg)
		}
	}

	return r
}

func (x Instr) AppendText(b []byte) []byte {
	if x.Op == OpLabel {
		return hfmt.Appendf(b, "block%d:", x.Args[0].Label)
	}

	b = append(b, '\t')
	b = append(b, x.Mnemonic()...)

	args := x.Args
	if x.Op == OpBCond {
		args = args[1:]
	}

	for i, a := range args {
		if i == 0 {
			b = append(b, '\t')
		} else {
			b = append(b, ", "...)
		}

		b = a.AppendText(b)
	}

	return b
}

func (x Instr) String() string {
	return string(x.AppendText(nil))
}
