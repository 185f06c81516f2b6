package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/isel/compiler/set"
)

// Verify checks structural invariants:
// every value is placed exactly once, every block ends with exactly one terminator,
// and in reachable blocks every operand is defined by a dominating block
// or earlier in the same block.
func Verify(f *Func) error {
	if len(f.Exprs) != len(f.EType) {
		return errors.New("exprs/types length mismatch: %d != %d", len(f.Exprs), len(f.EType))
	}

	if len(f.Blocks) == 0 {
		return errors.New("no entry block")
	}

	placed := set.MakeBits[Value](len(f.Exprs))

	defBlock := make([]BlockID, len(f.Exprs))
	defPos := make([]int, len(f.Exprs))

	place := func(id Value, bid BlockID, pos int) error {
		if id < 0 || int(id) >= len(f.Exprs) {
			return errors.New("value out of range: %v", id)
		}

		if placed.IsSet(id) {
			return errors.New("value placed twice: %v", id)
		}

		placed.Set(id)
		defBlock[id] = bid
		defPos[id] = pos

		return nil
	}

	for bid, bp := range f.Blocks {
		bid := BlockID(bid)

		if bid != Entry && len(bp.Params) != 0 {
			return errors.New("%v: params on non-entry block", bid)
		}

		for _, id := range bp.Params {
			if err := place(id, bid, -1); err != nil {
				return errors.Wrap(err, "%v", bid)
			}

			if _, ok := f.Exprs[id].(Param); !ok {
				return errors.New("%v: param %v is %v", bid, id, f.Op(id))
			}
		}

		if len(bp.Code) == 0 {
			return errors.New("%v: empty block", bid)
		}

		for i, id := range bp.Code {
			if err := place(id, bid, i); err != nil {
				return errors.Wrap(err, "%v", bid)
			}

			x := f.Exprs[id]
			if x == nil {
				return errors.New("%v: nil instruction", id)
			}

			last := i == len(bp.Code)-1

			if op := x.Opcode(); op.IsTerminator() != last {
				if last {
					return errors.New("%v: block does not end with a terminator: %v", bid, op)
				}

				return errors.New("%v: terminator %v in the middle of block", id, op)
			}

			if _, ok := x.(Param); ok {
				return errors.New("%v: param in block code", id)
			}

			for _, a := range x.Args() {
				if a < 0 || int(a) >= len(f.Exprs) {
					return errors.New("%v: operand out of range: %v", id, a)
				}

				if f.EType[a] == nil {
					return errors.New("%v: operand %v has no value", id, a)
				}
			}

			for _, s := range Successors(x) {
				if s <= Entry || int(s) >= len(f.Blocks) {
					return errors.New("%v: bad successor: %v", id, s)
				}
			}
		}
	}

	dom := Dominators(f)

	for bid, bp := range f.Blocks {
		bid := BlockID(bid)

		// unreachable blocks are never lowered
		if !dom.Reachable(bid) {
			continue
		}

		for i, id := range bp.Code {
			for _, a := range f.Exprs[id].Args() {
				if !placed.IsSet(a) {
					return errors.New("%v: operand %v is not placed in any block", id, a)
				}

				db := defBlock[a]

				switch {
				case db == bid && defPos[a] < i:
				case db == bid:
					return errors.New("%v: operand %v used before definition", id, a)
				case !dom.Dominates(db, bid):
					return errors.New("%v: operand %v defined in %v which does not dominate %v", id, a, db, bid)
				}
			}
		}
	}

	return nil
}
