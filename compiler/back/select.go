package back

import (
	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

// lowerSelect is always flags plus csel, never a branch.
//
//	subs wzr, wc, wzr
//	csel wd, wx, wy, ne
func (c *funContext) lowerSelect(id ir.Value, x ir.Select) error {
	t := c.EType[id]
	if !tp.IsScalar(t) || !tp.Valid(t) {
		return unsupported(c.Func, id)
	}

	if c.EType[x.X] != t || c.EType[x.Y] != t {
		return mismatch(c.Func, id, "operands %v, %v differ from %v", c.EType[x.X], c.EType[x.Y], t)
	}

	ct := c.EType[x.Cond]
	if !tp.IsScalar(ct) {
		return mismatch(c.Func, id, "condition %v is %v, want scalar", x.Cond, ct)
	}

	rc, err := c.reg(id, x.Cond)
	if err != nil {
		return err
	}

	rn, err := c.reg(id, x.X)
	if err != nil {
		return err
	}

	rm, err := c.reg(id, x.Y)
	if err != nil {
		return err
	}

	rd, err := c.gp.alloc(id)
	if err != nil {
		return err
	}

	c.testNotZero(rc, ct.Width())

	size := regSize(t.Width())

	c.buf.Emit(arm64.OpCSEL, 1, arm64.R(rd, size), arm64.R(rn, size), arm64.R(rm, size), arm64.C(arm64.NE))

	c.cache.Put(id, RegLoc(rd))

	return nil
}

// testNotZero sets flags so that ne holds iff the low width bits of r are not zero.
// Bits above a narrow value are not defined, so they are masked off.
func (c *funContext) testNotZero(r arm64.Reg, width int) {
	switch width {
	case 32, 64:
		c.buf.Emit(arm64.OpSUBS, 0, arm64.R(arm64.ZR, width), arm64.R(r, width), arm64.R(arm64.ZR, width))
	default:
		c.buf.Emit(arm64.OpTST, 0, arm64.R(r, 32), arm64.Imm(int64(mask(width))))
	}
}

// lowerBrif branches to Then when the condition is not zero.
// If Then is laid out next the test is inverted and falls through.
func (c *funContext) lowerBrif(id ir.Value, x ir.Brif) error {
	ct := c.EType[x.Cond]
	if !tp.IsScalar(ct) {
		return mismatch(c.Func, id, "condition %v is %v, want scalar", x.Cond, ct)
	}

	rc, err := c.reg(id, x.Cond)
	if err != nil {
		return err
	}

	w := ct.Width()

	if x.Then == c.next() {
		els := arm64.L(int(x.Else))

		switch w {
		case 32, 64:
			c.buf.Emit(arm64.OpCBZ, 0, arm64.R(rc, w), els)
		default:
			c.testNotZero(rc, w)
			c.buf.Emit(arm64.OpBCond, 0, arm64.C(arm64.EQ), els)
		}

		return nil
	}

	then := arm64.L(int(x.Then))

	switch w {
	case 32, 64:
		c.buf.Emit(arm64.OpCBNZ, 0, arm64.R(rc, w), then)
	default:
		c.testNotZero(rc, w)
		c.buf.Emit(arm64.OpBCond, 0, arm64.C(arm64.NE), then)
	}

	c.branchTo(x.Else)

	return nil
}
