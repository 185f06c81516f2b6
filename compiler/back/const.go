package back

import (
	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

type movStep struct {
	Op    arm64.Op
	Imm   uint16
	Shift int
}

// movSeq splits v into 16-bit windows of a size-bit register.
// The first window that differs from the fill pattern is set with movz
// (or movn when 0xffff windows outnumber zero ones),
// every other differing window is inserted with movk.
func movSeq(v uint64, size int) []movStep {
	n := size / 16

	var zeros, ones int

	for i := 0; i < n; i++ {
		switch uint16(v >> (16 * i)) {
		case 0:
			zeros++
		case 0xffff:
			ones++
		}
	}

	inv := ones > zeros

	var fill uint16
	if inv {
		fill = 0xffff
	}

	var seq []movStep

	for i := 0; i < n; i++ {
		h := uint16(v >> (16 * i))

		switch {
		case h == fill:
			continue
		case len(seq) != 0:
			seq = append(seq, movStep{Op: arm64.OpMOVK, Imm: h, Shift: 16 * i})
		case inv:
			seq = append(seq, movStep{Op: arm64.OpMOVN, Imm: ^h, Shift: 16 * i})
		default:
			seq = append(seq, movStep{Op: arm64.OpMOVZ, Imm: h, Shift: 16 * i})
		}
	}

	if len(seq) == 0 {
		op := arm64.OpMOVZ
		if inv {
			op = arm64.OpMOVN
		}

		seq = append(seq, movStep{Op: op})
	}

	return seq
}

func emitMovSeq(buf *arm64.Buffer, rd arm64.Reg, v uint64, size int) {
	for _, s := range movSeq(v, size) {
		imm := arm64.ImmShift(int64(s.Imm), s.Shift)

		buf.Emit(s.Op, 1, arm64.R(rd, size), imm)
	}
}

// regSize is the GP register view holding a value of width bits.
func regSize(width int) int {
	if width > 32 {
		return 64
	}

	return 32
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}

	return 1<<width - 1
}

// constBits is the bit pattern of an iconst or bconst.
// true is 1 for b1 and all ones for wider booleans.
func constBits(x ir.Instr, t tp.Type) uint64 {
	switch x := x.(type) {
	case ir.Iconst:
		return x.Imm & mask(t.Width())
	case ir.Bconst:
		switch {
		case !x.Val:
			return 0
		case t.Width() == 1:
			return 1
		default:
			return mask(t.Width())
		}
	default:
		panic(x)
	}
}

// allOnesBool reports whether v is a true boolean wide enough to fill a lane.
func (c *funContext) allOnesBool(v ir.Value) bool {
	x, ok := c.Exprs[v].(ir.Bconst)
	if !ok || !x.Val {
		return false
	}

	t, ok := c.EType[v].(tp.Bool)

	return ok && t.Bits >= 8
}

func (c *funContext) lowerConst(id ir.Value, x ir.Instr) error {
	t := c.EType[id]

	switch x.(type) {
	case ir.Iconst:
		if _, ok := t.(tp.Int); !ok {
			return unsupported(c.Func, id)
		}
	case ir.Bconst:
		if _, ok := t.(tp.Bool); !ok {
			return unsupported(c.Func, id)
		}
	}

	if !tp.Valid(t) {
		return unsupported(c.Func, id)
	}

	v := constBits(x, t)

	// splats of true booleans fill the vector directly
	needReg := !c.uses.All(id, func(u ir.Value) bool {
		_, ok := c.Exprs[u].(ir.Splat)
		return ok && c.allOnesBool(id)
	})

	if !needReg {
		c.cache.Put(id, ImmLoc(v))
		return nil
	}

	rd, err := c.gp.alloc(id)
	if err != nil {
		return err
	}

	emitMovSeq(c.buf, rd, v, regSize(t.Width()))

	c.cache.Put(id, RegLoc(rd))

	return nil
}
