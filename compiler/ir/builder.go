package ir

import "github.com/slowlang/isel/compiler/tp"

// Builder appends instructions to the current block of a function.
// It does no type checking: that is the backend's job.
type Builder struct {
	f   *Func
	cur BlockID
}

// NewBuilder creates a function with an entry block
// whose params are typed after sig.In.
func NewBuilder(name string, sig Signature) *Builder {
	f := &Func{
		Name: name,
		Sig:  sig,
	}

	f.Blocks = append(f.Blocks, Block{})

	for i, t := range sig.In {
		id := f.alloc(Param{Block: Entry, N: i}, t)
		f.Blocks[Entry].Params = append(f.Blocks[Entry].Params, id)
	}

	return &Builder{f: f}
}

func (b *Builder) Func() *Func { return b.f }

func (b *Builder) Param(i int) Value {
	return b.f.Blocks[Entry].Params[i]
}

// Block creates a new empty block. The current block is not changed.
func (b *Builder) Block() BlockID {
	id := BlockID(len(b.f.Blocks))
	b.f.Blocks = append(b.f.Blocks, Block{})

	return id
}

func (b *Builder) SetBlock(id BlockID) {
	b.cur = id
}

func (b *Builder) Current() BlockID { return b.cur }

func (b *Builder) Add(x Instr, t tp.Type) Value {
	id := b.f.alloc(x, t)

	bp := &b.f.Blocks[b.cur]
	bp.Code = append(bp.Code, id)

	return id
}

func (b *Builder) Iconst(t tp.Type, imm uint64) Value {
	return b.Add(Iconst{Imm: imm}, t)
}

func (b *Builder) Bconst(t tp.Type, v bool) Value {
	return b.Add(Bconst{Val: v}, t)
}

func (b *Builder) Ireduce(t tp.Type, x Value) Value {
	return b.Add(Ireduce{X: x}, t)
}

func (b *Builder) Splat(t tp.Type, x Value) Value {
	return b.Add(Splat{X: x}, t)
}

func (b *Builder) Load(t tp.Type, ptr Value, off int32) Value {
	return b.Add(Load{Ptr: ptr, Offset: off}, t)
}

// Select result type is the type of x.
func (b *Builder) Select(c, x, y Value) Value {
	var t tp.Type
	if x >= 0 && int(x) < len(b.f.EType) {
		t = b.f.EType[x]
	}

	return b.Add(Select{Cond: c, X: x, Y: y}, t)
}

func (b *Builder) Return(vals ...Value) Value {
	return b.Add(Return{Values: vals}, nil)
}

func (b *Builder) Jump(dest BlockID) Value {
	return b.Add(Jump{Dest: dest}, nil)
}

func (b *Builder) Brif(c Value, then, els BlockID) Value {
	return b.Add(Brif{Cond: c, Then: then, Else: els}, nil)
}
