package back

import (
	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

// frameSize is the saved fp/lr pair. Nothing is spilled.
const frameSize = 16

type abi struct {
	params []arm64.Reg
	rets   []arm64.Reg
}

// bindSignature assigns params and returns, left to right,
// to x0..x7 for scalars and v0..v7 for vectors.
func bindSignature(f *ir.Func) (a abi, err error) {
	a.params, err = bindRegs(f, "param", f.Sig.In)
	if err != nil {
		return a, err
	}

	a.rets, err = bindRegs(f, "return", f.Sig.Out)
	if err != nil {
		return a, err
	}

	return a, nil
}

func bindRegs(f *ir.Func, what string, ts []tp.Type) ([]arm64.Reg, error) {
	regs := make([]arm64.Reg, len(ts))

	var gp, vec int

	for i, t := range ts {
		if t == nil || !tp.Valid(t) {
			return nil, signature(f, "%s %d: unsupported type %v", what, i, t)
		}

		if _, ok := t.(tp.Vec); ok {
			if vec == len(argVec) {
				return nil, signature(f, "%s %d: more than %d vector %ss", what, i, len(argVec), what)
			}

			regs[i] = argVec[vec]
			vec++

			continue
		}

		if gp == len(argGP) {
			return nil, signature(f, "%s %d: more than %d scalar %ss", what, i, len(argGP), what)
		}

		regs[i] = argGP[gp]
		gp++
	}

	return regs, nil
}

// bindParams puts entry block params into the cache.
func (c *funContext) bindParams() error {
	ps := c.Params()

	if len(ps) != len(c.Sig.In) {
		return signature(c.Func, "entry block has %d params, signature %d", len(ps), len(c.Sig.In))
	}

	for i, id := range ps {
		if c.EType[id] != c.Sig.In[i] {
			return signature(c.Func, "param %d: type %v, signature %v", i, c.EType[id], c.Sig.In[i])
		}

		c.cache.Put(id, RegLoc(c.abi.params[i]))
	}

	return nil
}

func (c *funContext) prologue() {
	c.buf.SetOrigin(-1)

	c.buf.Emit(arm64.OpSTP, 0, arm64.R(arm64.FP, 64), arm64.R(arm64.LR, 64), arm64.MemPre(arm64.SP, -frameSize))
	c.buf.Emit(arm64.OpMOV, 1, arm64.R(arm64.FP, 64), arm64.R(arm64.SP, 64))
}

func (c *funContext) epilogue() {
	c.buf.Emit(arm64.OpMOV, 1, arm64.R(arm64.SP, 64), arm64.R(arm64.FP, 64))
	c.buf.Emit(arm64.OpLDP, 2, arm64.R(arm64.FP, 64), arm64.R(arm64.LR, 64), arm64.MemPost(arm64.SP, frameSize))
}

func (c *funContext) lowerReturn(id ir.Value, x ir.Return) error {
	if len(x.Values) != len(c.Sig.Out) {
		return signature(c.Func, "%v: returns %d values, signature %d", id, len(x.Values), len(c.Sig.Out))
	}

	moves := make([][2]arm64.Reg, 0, len(x.Values))

	for i, v := range x.Values {
		if c.EType[v] != c.Sig.Out[i] {
			return signature(c.Func, "%v: return %d: type %v, signature %v", id, i, c.EType[v], c.Sig.Out[i])
		}

		r, err := c.reg(id, v)
		if err != nil {
			return err
		}

		moves = append(moves, [2]arm64.Reg{c.abi.rets[i], r})
	}

	c.permutate(moves)

	c.epilogue()
	c.buf.Emit(arm64.OpRET, 0)

	return nil
}

// permutate emits moves {dst, src} as if they all happened at once.
// Dsts are distinct. Cycles are broken by swapping with eor.
func (c *funContext) permutate(l [][2]arm64.Reg) {
	l = dropNoops(l)

	for len(l) != 0 {
		i := 0

		for i < len(l) && isRead(l, l[i][0]) {
			i++
		}

		if i < len(l) {
			c.move(l[i][0], l[i][1])
			l = append(l[:i], l[i+1:]...)

			continue
		}

		d, s := l[0][0], l[0][1]
		c.swap(d, s)

		l = l[1:]

		for j := range l {
			switch l[j][1] {
			case d:
				l[j][1] = s
			case s:
				l[j][1] = d
			}
		}

		l = dropNoops(l)
	}
}

func (c *funContext) move(d, s arm64.Reg) {
	if d.IsVec() {
		c.buf.Emit(arm64.OpMOV, 1, arm64.V(d, arm64.Arr16B), arm64.V(s, arm64.Arr16B))
		return
	}

	c.buf.Emit(arm64.OpMOV, 1, arm64.R(d, 64), arm64.R(s, 64))
}

func (c *funContext) swap(x, y arm64.Reg) {
	op := func(r arm64.Reg) arm64.Operand {
		if r.IsVec() {
			return arm64.V(r, arm64.Arr16B)
		}

		return arm64.R(r, 64)
	}

	c.buf.Emit(arm64.OpEOR, 1, op(x), op(x), op(y))
	c.buf.Emit(arm64.OpEOR, 1, op(y), op(x), op(y))
	c.buf.Emit(arm64.OpEOR, 1, op(x), op(x), op(y))
}

func isRead(l [][2]arm64.Reg, r arm64.Reg) bool {
	for _, m := range l {
		if m[1] == r {
			return true
		}
	}

	return false
}

func dropNoops(l [][2]arm64.Reg) [][2]arm64.Reg {
	j := 0

	for _, m := range l {
		if m[0] == m[1] {
			continue
		}

		l[j] = m
		j++
	}

	return l[:j]
}
