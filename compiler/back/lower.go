package back

// Lowering of the data instructions.
// Fusion decisions look at the def-use table of the whole function,
// never at block positions.

import (
	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

// lowerIreduce makes the result an alias of the operand.
// Consumers only ever read the low bits.
func (c *funContext) lowerIreduce(id ir.Value, x ir.Ireduce) error {
	to, ok := c.EType[id].(tp.Int)
	if !ok || !tp.Valid(to) {
		return unsupported(c.Func, id)
	}

	from, ok := c.EType[x.X].(tp.Int)
	if !ok {
		return mismatch(c.Func, id, "operand %v is %v, want integer", x.X, c.EType[x.X])
	}

	if to.Bits >= from.Bits {
		return mismatch(c.Func, id, "%v is not narrower than %v", to, from)
	}

	r, err := c.reg(id, x.X)
	if err != nil {
		return err
	}

	c.cache.Put(id, RegLoc(r))

	return nil
}

// fusedLoad reports whether v is a load whose only consumer is a splat.
// Such loads are lowered together with the splat as ld1r.
func (c *funContext) fusedLoad(v ir.Value) bool {
	if _, ok := c.Exprs[v].(ir.Load); !ok {
		return false
	}

	u, ok := c.uses.Sole(v)
	if !ok {
		return false
	}

	_, ok = c.Exprs[u].(ir.Splat)

	return ok
}

func (c *funContext) lowerSplat(id ir.Value, x ir.Splat) error {
	vt, ok := c.EType[id].(tp.Vec)
	if !ok {
		return mismatch(c.Func, id, "result %v is not a vector", c.EType[id])
	}

	if !tp.Valid(vt) {
		return unsupported(c.Func, id)
	}

	if et := c.EType[x.X]; et != vt.Elem {
		return mismatch(c.Func, id, "operand %v is %v, lanes are %v", x.X, et, vt.Elem)
	}

	if l, ok := c.cache.splat(x.X, vt, c.dominatesCur); ok {
		c.cache.Put(id, l)
		return nil
	}

	rd, err := c.vec.alloc(id)
	if err != nil {
		return err
	}

	elem := vt.Elem.Width()
	arr := arm64.ArrangementFor(int(vt.Lanes), elem)

	switch {
	case c.allOnesBool(x.X):
		c.buf.Emit(arm64.OpMOVI, 1, arm64.V(rd, arr.Bytes()), arm64.Imm(0xff))
	case c.fusedLoad(x.X):
		ld := c.Exprs[x.X].(ir.Load)

		base, err := c.address(x.X, ld)
		if err != nil {
			return err
		}

		c.buf.Emit(arm64.OpLD1R, 1, arm64.List(rd, arr), arm64.Mem(base, 0))
	default:
		rs, err := c.reg(id, x.X)
		if err != nil {
			return err
		}

		c.buf.Emit(arm64.OpDUP, 1, arm64.V(rd, arr), arm64.R(rs, regSize(elem)))
	}

	l := RegLoc(rd)

	c.cache.Put(id, l)
	c.cache.putSplat(x.X, vt, c.cur, l)

	return nil
}

// address computes ptr+offset of ld into a register usable as [base].
func (c *funContext) address(id ir.Value, ld ir.Load) (arm64.Reg, error) {
	if pt := c.EType[ld.Ptr]; pt != tp.I64 {
		return arm64.NoReg, mismatch(c.Func, id, "pointer %v is %v, want i64", ld.Ptr, pt)
	}

	base, err := c.reg(id, ld.Ptr)
	if err != nil {
		return arm64.NoReg, err
	}

	off := int64(ld.Offset)

	switch {
	case off == 0:
		return base, nil
	case off > 0 && off < 4096:
		c.buf.Emit(arm64.OpADD, 1, arm64.R(scratch0, 64), arm64.R(base, 64), arm64.Imm(off))
	case off < 0 && off > -4096:
		c.buf.Emit(arm64.OpSUB, 1, arm64.R(scratch0, 64), arm64.R(base, 64), arm64.Imm(-off))
	default:
		emitMovSeq(c.buf, scratch1, uint64(off), 64)
		c.buf.Emit(arm64.OpADD, 1, arm64.R(scratch0, 64), arm64.R(base, 64), arm64.R(scratch1, 64))
	}

	return scratch0, nil
}

func (c *funContext) lowerLoad(id ir.Value, x ir.Load) error {
	if c.fusedLoad(id) {
		return nil
	}

	t := c.EType[id]
	if !tp.Valid(t) {
		return unsupported(c.Func, id)
	}

	var op arm64.Op
	var size, access int

	switch t := t.(type) {
	case tp.Int, tp.Bool:
		access = t.Size() * 8
		size = regSize(access)

		switch access {
		case 8:
			op = arm64.OpLDRB
		case 16:
			op = arm64.OpLDRH
		default:
			op = arm64.OpLDR
		}
	case tp.Vec:
		op = arm64.OpLDR
		access = t.Width()
		size = access
	}

	pool := &c.gp
	if _, ok := t.(tp.Vec); ok {
		pool = &c.vec
	}

	rd, err := pool.alloc(id)
	if err != nil {
		return err
	}

	mem, err := c.memOperand(id, x, access/8)
	if err != nil {
		return err
	}

	c.buf.Emit(op, 1, arm64.R(rd, size), mem)

	c.cache.Put(id, RegLoc(rd))

	return nil
}

// memOperand uses the scaled unsigned offset form when it fits,
// otherwise computes the address first.
func (c *funContext) memOperand(id ir.Value, x ir.Load, scale int) (arm64.Operand, error) {
	off := int64(x.Offset)

	if off >= 0 && off%int64(scale) == 0 && off/int64(scale) < 4096 {
		if pt := c.EType[x.Ptr]; pt != tp.I64 {
			return arm64.Operand{}, mismatch(c.Func, id, "pointer %v is %v, want i64", x.Ptr, pt)
		}

		base, err := c.reg(id, x.Ptr)
		if err != nil {
			return arm64.Operand{}, err
		}

		return arm64.Mem(base, int32(off)), nil
	}

	base, err := c.address(id, x)
	if err != nil {
		return arm64.Operand{}, err
	}

	return arm64.Mem(base, 0), nil
}
