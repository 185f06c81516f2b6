package back

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/set"
	"github.com/slowlang/isel/compiler/tp"
)

type (
	// Loc is where a lowered value lives: a register or an immediate
	// that was never materialized.
	Loc struct {
		Reg   arm64.Reg
		Imm   uint64
		IsImm bool
	}

	// Cache maps lowered values to their locations.
	// Entries are written once and live until the function is done.
	Cache struct {
		locs []Loc
		have set.Bits[ir.Value]

		splats map[splatKey][]splatLoc
	}

	splatKey struct {
		X ir.Value
		T tp.Vec
	}

	// splatLoc is a lowered splat and the block it was lowered in.
	splatLoc struct {
		Block ir.BlockID
		Loc   Loc
	}
)

func RegLoc(r arm64.Reg) Loc { return Loc{Reg: r} }

func ImmLoc(v uint64) Loc { return Loc{Reg: arm64.NoReg, Imm: v, IsImm: true} }

func NewCache(n int) *Cache {
	return &Cache{
		locs: make([]Loc, n),
		have: set.MakeBits[ir.Value](n),
	}
}

func (c *Cache) Has(v ir.Value) bool {
	return c.have.IsSet(v)
}

func (c *Cache) Get(v ir.Value) (Loc, bool) {
	if !c.have.IsSet(v) {
		return Loc{}, false
	}

	return c.locs[v], true
}

// Put records v's location. Writing a value twice is a bug.
func (c *Cache) Put(v ir.Value, l Loc) {
	if c.have.IsSet(v) {
		panic("value lowered twice: " + v.String())
	}

	c.have.Set(v)
	c.locs[v] = l
}

// Len is the number of lowered values.
func (c *Cache) Len() int {
	return c.have.Size()
}

// splat finds an earlier splat of x to t whose block satisfies avail.
// A register written in a block that does not dominate the current one
// may be undefined there.
func (c *Cache) splat(x ir.Value, t tp.Vec, avail func(ir.BlockID) bool) (Loc, bool) {
	for _, s := range c.splats[splatKey{X: x, T: t}] {
		if avail(s.Block) {
			return s.Loc, true
		}
	}

	return Loc{}, false
}

func (c *Cache) putSplat(x ir.Value, t tp.Vec, b ir.BlockID, l Loc) {
	if c.splats == nil {
		c.splats = make(map[splatKey][]splatLoc)
	}

	k := splatKey{X: x, T: t}

	c.splats[k] = append(c.splats[k], splatLoc{Block: b, Loc: l})
}

func (l Loc) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Map, 1)

	if l.IsImm {
		b = e.AppendString(b, "imm")
		b = e.AppendString(b, strconv.FormatUint(l.Imm, 10))
	} else {
		b = e.AppendString(b, "reg")
		b = e.AppendString(b, l.Reg.String())
	}

	return b
}

func (l Loc) String() string {
	if l.IsImm {
		return "#" + strconv.FormatUint(l.Imm, 10)
	}

	return l.Reg.String()
}
