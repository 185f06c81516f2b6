package back

import (
	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
)

type regPool struct {
	bank string
	regs []arm64.Reg
	next int
}

var (
	argGP  = [...]arm64.Reg{arm64.X0, arm64.X1, arm64.X2, arm64.X3, arm64.X4, arm64.X5, arm64.X6, arm64.X7}
	argVec = [...]arm64.Reg{arm64.V0, arm64.V1, arm64.V2, arm64.V3, arm64.V4, arm64.V5, arm64.V6, arm64.V7}

	tempGP = [...]arm64.Reg{
		arm64.X8, arm64.X9, arm64.X10, arm64.X11,
		arm64.X12, arm64.X13, arm64.X14, arm64.X15,
	}

	tempVec = [...]arm64.Reg{
		arm64.V16, arm64.V17, arm64.V18, arm64.V19, arm64.V20, arm64.V21, arm64.V22, arm64.V23,
		arm64.V24, arm64.V25, arm64.V26, arm64.V27, arm64.V28, arm64.V29, arm64.V30, arm64.V31,
	}
)

const (
	// scratch registers for address arithmetic, never cached
	scratch0 = arm64.X16
	scratch1 = arm64.X17
)

func newPool(bank string, regs []arm64.Reg) regPool {
	return regPool{bank: bank, regs: regs}
}

// alloc hands out the next register. Registers are never reused:
// a lowered value keeps its register for the rest of the function.
func (p *regPool) alloc(v ir.Value) (arm64.Reg, error) {
	if p.next == len(p.regs) {
		return arm64.NoReg, &ExhaustedError{Value: v, Bank: p.bank}
	}

	r := p.regs[p.next]
	p.next++

	return r, nil
}
