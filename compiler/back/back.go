package back

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/df"
	"github.com/slowlang/isel/compiler/ir"
)

type (
	// Compiler lowers functions. It keeps no per-function state
	// and may be used from several goroutines.
	Compiler struct {
		Config
	}

	// Result is the lowered function handed to the encoder.
	Result struct {
		Name string
		Code []arm64.Instr

		// Params and Rets are the convention registers
		// of the declared params and return values.
		Params []arm64.Reg
		Rets   []arm64.Reg

		comments bool
	}

	funContext struct {
		*ir.Func

		uses  *df.Uses
		cache *Cache
		buf   *arm64.Buffer
		abi   abi
		dom   *ir.Dom

		gp, vec regPool

		layout []ir.BlockID
		pos    int // index in layout of the block being lowered
		cur    ir.BlockID
	}
)

func New(cfg Config) *Compiler {
	return &Compiler{Config: cfg}
}

// CompileFunc lowers f. On error no code is returned.
func (c *Compiler) CompileFunc(ctx context.Context, f *ir.Func) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", f.Name, "in", len(f.Sig.In), "out", len(f.Sig.Out))
	defer tr.Finish("err", &err)

	if !c.SkipVerify {
		err = ir.Verify(f)
		if err != nil {
			return nil, errors.Wrap(err, "verify")
		}
	}

	if tr.If("dump_func_before") {
		for bid, bp := range f.Blocks {
			for i, id := range bp.Code {
				x := f.Exprs[id]

				tr.Printw("code before", "block", bid, "i", i, "id", id, "op", x.Opcode().String(), "tp", f.EType[id], "typ", tlog.NextAsType, x, "val", x)
			}
		}
	}

	a, err := bindSignature(f)
	if err != nil {
		return nil, err
	}

	fc := &funContext{
		Func:  f,
		uses:  df.Build(f),
		cache: NewCache(len(f.Exprs)),
		buf:   arm64.NewBuffer(),
		abi:   a,
		dom:   ir.Dominators(f),
		gp:    newPool("general purpose", tempGP[:]),
		vec:   newPool("vector", tempVec[:]),
	}

	fc.layout = blockLayout(f, fc.dom)

	err = fc.bindParams()
	if err != nil {
		return nil, err
	}

	fc.prologue()

	for i, bid := range fc.layout {
		fc.pos = i
		fc.cur = bid

		err = fc.lowerBlock(ctx, bid)
		if err != nil {
			return nil, errors.Wrap(err, "%v", bid)
		}
	}

	if tr.If("dump_code") {
		for i, x := range fc.buf.Code {
			tr.Printw("code", "i", i, "instr", x.String(), "origin", x.Origin)
		}
	}

	tr.V("stats").Printw("lowered", "values", fc.cache.Len(), "instrs", fc.buf.Len(), "gp", fc.gp.next, "vec", fc.vec.next)

	return &Result{
		Name:     f.Name,
		Code:     fc.buf.Code,
		Params:   a.params,
		Rets:     a.rets,
		comments: c.Comments,
	}, nil
}

// blockLayout lists blocks reachable from the entry.
// A block comes after its dominators, otherwise the lowest id goes first.
func blockLayout(f *ir.Func, dom *ir.Dom) []ir.BlockID {
	kids := make([][]ir.BlockID, len(f.Blocks))

	for bid := range f.Blocks {
		bid := ir.BlockID(bid)

		if bid == ir.Entry || !dom.Reachable(bid) {
			continue
		}

		p := dom.Idom(bid)
		kids[p] = append(kids[p], bid)
	}

	q := heap.Heap[ir.BlockID]{Less: func(d []ir.BlockID, i, j int) bool { return d[i] < d[j] }}
	q.Push(ir.Entry)

	var l []ir.BlockID

	for q.Len() != 0 {
		bid := q.Pop()
		l = append(l, bid)

		for _, k := range kids[bid] {
			q.Push(k)
		}
	}

	return l
}

func (c *funContext) dominatesCur(b ir.BlockID) bool {
	return c.dom.Dominates(b, c.cur)
}

func (c *funContext) lowerBlock(ctx context.Context, bid ir.BlockID) (err error) {
	tr := tlog.SpanFromContext(ctx)

	if bid != ir.Entry {
		c.buf.SetOrigin(-1)
		c.buf.Label(int(bid))
	}

	for _, id := range c.Blocks[bid].Code {
		if c.cache.Has(id) {
			continue
		}

		c.buf.SetOrigin(int(id))

		err = c.lowerInstr(id)
		if err != nil {
			return err
		}

		if tr.If("isel") {
			l, _ := c.cache.Get(id)
			tr.Printw("lowered", "id", id, "op", c.Op(id).String(), "tp", c.EType[id], "loc", l, "code", c.buf.Len())
		}
	}

	return nil
}

func (c *funContext) lowerInstr(id ir.Value) error {
	switch x := c.Exprs[id].(type) {
	case ir.Iconst, ir.Bconst:
		return c.lowerConst(id, x)
	case ir.Ireduce:
		return c.lowerIreduce(id, x)
	case ir.Splat:
		return c.lowerSplat(id, x)
	case ir.Load:
		return c.lowerLoad(id, x)
	case ir.Select:
		return c.lowerSelect(id, x)
	case ir.Return:
		return c.lowerReturn(id, x)
	case ir.Jump:
		c.branchTo(x.Dest)
		return nil
	case ir.Brif:
		return c.lowerBrif(id, x)
	default:
		return unsupported(c.Func, id)
	}
}

// reg returns the register holding operand v of instruction id.
func (c *funContext) reg(id, v ir.Value) (arm64.Reg, error) {
	l, ok := c.cache.Get(v)
	if !ok {
		return arm64.NoReg, mismatch(c.Func, id, "operand %v is not lowered on this path", v)
	}

	if l.IsImm {
		return arm64.NoReg, mismatch(c.Func, id, "operand %v is not materialized", v)
	}

	return l.Reg, nil
}

// next is the block laid out after the current one.
func (c *funContext) next() ir.BlockID {
	if c.pos+1 < len(c.layout) {
		return c.layout[c.pos+1]
	}

	return -1
}

func (c *funContext) branchTo(dest ir.BlockID) {
	if dest == c.next() {
		return
	}

	c.buf.Emit(arm64.OpB, 0, arm64.L(int(dest)))
}

func (r *Result) Mnemonics() []string {
	buf := arm64.Buffer{Code: r.Code}

	return buf.Mnemonics()
}

// AppendText renders the function as assembly text.
func (r *Result) AppendText(b []byte) []byte {
	b = hfmt.Appendf(b, ".global %v\n.align 4\n%v:\n", r.Name, r.Name)

	buf := arm64.Buffer{Code: r.Code}

	return buf.AppendText(b, r.comments)
}

func (r *Result) String() string {
	return string(r.AppendText(nil))
}
