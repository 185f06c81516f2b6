package back

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

var (
	i32x4 = tp.Vec{Lanes: 4, Elem: tp.I32}
	i64x2 = tp.Vec{Lanes: 2, Elem: tp.I64}
	i16x8 = tp.Vec{Lanes: 8, Elem: tp.I16}
)

var (
	prologue = []string{
		"stp fp, lr, [sp, #-16]!",
		"mov fp, sp",
	}

	epilogue = []string{
		"mov sp, fp",
		"ldp fp, lr, [sp], #16",
		"ret",
	}
)

func sig(in []tp.Type, out ...tp.Type) ir.Signature {
	return ir.Signature{In: in, Out: out}
}

func compile(t *testing.T, f *ir.Func) *Result {
	t.Helper()

	res, err := New(Config{}).CompileFunc(context.Background(), f)
	require.NoError(t, err)

	return res
}

func lines(r *Result) []string {
	l := make([]string, 0, len(r.Code))

	for _, x := range r.Code {
		l = append(l, strings.ReplaceAll(strings.TrimSpace(x.String()), "\t", " "))
	}

	return l
}

func join(parts ...[]string) []string {
	var r []string

	for _, p := range parts {
		r = append(r, p...)
	}

	return r
}

func count(r *Result, op arm64.Op) (n int) {
	for _, x := range r.Code {
		if x.Op == op {
			n++
		}
	}

	return n
}

func TestSmoke(t *testing.T) {
	b := ir.NewBuilder("main", sig(nil))
	b.Return()

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, epilogue), lines(res))
	assert.Empty(t, res.Rets)

	t.Logf("result:\n%s", res)
}

func TestExampleConstSplat64(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil, i64x2))

	c := b.Iconst(tp.I64, 0x0001000000000001)
	s := b.Splat(i64x2, c)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"movz x8, #1",
		"movk x8, #1, LSL #48",
		"dup v16.2d, x8",
		"mov v0.16b, v16.16b",
	}, epilogue), lines(res))

	assert.Equal(t, []arm64.Reg{arm64.V0}, res.Rets)
}

func TestExampleReducedConstSplat(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil, i16x8))

	c := b.Iconst(tp.I32, 42679)
	r := b.Ireduce(tp.I16, c)
	s := b.Splat(i16x8, r)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"movz w8, #42679",
		"dup v16.8h, w8",
		"mov v0.16b, v16.16b",
	}, epilogue), lines(res))

	assert.Zero(t, count(res, arm64.OpLD1R))
}

func TestExampleTwoLoadSplats(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64, tp.I64}, i32x4, i32x4))

	l0 := b.Load(tp.I32, b.Param(0), 0)
	l1 := b.Load(tp.I32, b.Param(1), 0)
	s0 := b.Splat(i32x4, l0)
	s1 := b.Splat(i32x4, l1)
	b.Return(s0, s1)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"ld1r { v16.4s }, [x0]",
		"ld1r { v17.4s }, [x1]",
		"mov v0.16b, v16.16b",
		"mov v1.16b, v17.16b",
	}, epilogue), lines(res))

	assert.Zero(t, count(res, arm64.OpLDR))
	assert.Zero(t, count(res, arm64.OpDUP))
}

func TestLoadSplatFusedWithOffset(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}, i16x8))

	l := b.Load(tp.I16, b.Param(0), 16)
	s := b.Splat(i16x8, l)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"add x16, x0, #16",
		"ld1r { v16.8h }, [x16]",
		"mov v0.16b, v16.16b",
	}, epilogue), lines(res))
}

func TestLoadSplatMultiUse(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}, i32x4, tp.I32))

	l := b.Load(tp.I32, b.Param(0), 0)
	s := b.Splat(i32x4, l)
	b.Return(s, l)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"ldr w8, [x0]",
		"dup v16.4s, w8",
		"mov v0.16b, v16.16b",
		"mov x0, x8",
	}, epilogue), lines(res))

	assert.Zero(t, count(res, arm64.OpLD1R))
}

func TestLoadSplatFusionIsGlobal(t *testing.T) {
	// the second consumer lives in another block
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64, tp.I32}, tp.I64))

	l := b.Load(tp.I64, b.Param(0), 0)
	_ = b.Splat(i64x2, l)

	next := b.Block()
	b.Jump(next)

	b.SetBlock(next)
	b.Return(l)

	res := compile(t, b.Func())

	assert.Equal(t, 1, count(res, arm64.OpLDR))
	assert.Equal(t, 1, count(res, arm64.OpDUP))
	assert.Zero(t, count(res, arm64.OpLD1R))
	assert.Zero(t, count(res, arm64.OpB), "jump to the next block falls through")
}

func TestSplatValueReuse(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil, i32x4, i32x4))

	c := b.Iconst(tp.I32, 7)
	s0 := b.Splat(i32x4, c)
	s1 := b.Splat(i32x4, c)
	b.Return(s0, s1)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"movz w8, #7",
		"dup v16.4s, w8",
		"mov v0.16b, v16.16b",
		"mov v1.16b, v16.16b",
	}, epilogue), lines(res))
}

func TestSplatInBothBranches(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32, tp.I32}, i32x4))

	then := b.Block()
	els := b.Block()

	b.Brif(b.Param(1), then, els)

	b.SetBlock(then)
	b.Return(b.Splat(i32x4, b.Param(0)))

	b.SetBlock(els)
	b.Return(b.Splat(i32x4, b.Param(0)))

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"cbz w1, block2",
		"block1:",
		"dup v16.4s, w0",
		"mov v0.16b, v16.16b",
	}, epilogue, []string{
		"block2:",
		"dup v17.4s, w0",
		"mov v0.16b, v17.16b",
	}, epilogue), lines(res))
}

func TestSplatReusedFromDominator(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32, tp.I32}, i32x4))

	then := b.Block()
	els := b.Block()

	s := b.Splat(i32x4, b.Param(0))
	b.Brif(b.Param(1), then, els)

	b.SetBlock(then)
	b.Return(b.Splat(i32x4, b.Param(0)))

	b.SetBlock(els)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"dup v16.4s, w0",
		"cbz w1, block2",
		"block1:",
		"mov v0.16b, v16.16b",
	}, epilogue, []string{
		"block2:",
		"mov v0.16b, v16.16b",
	}, epilogue), lines(res))
}

func TestLayoutFollowsDominators(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil, tp.I32))

	b1 := b.Block()
	b2 := b.Block()

	b.Jump(b2)

	b.SetBlock(b2)
	c := b.Iconst(tp.I32, 7)
	b.Jump(b1)

	b.SetBlock(b1)
	b.Return(c)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"block2:",
		"movz w8, #7",
		"block1:",
		"mov x0, x8",
	}, epilogue), lines(res))
}

func TestUseBeforeLoweringIsTyped(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32}, tp.I32))

	then := b.Block()
	els := b.Block()

	b.Brif(b.Param(0), then, els)

	b.SetBlock(els)
	c := b.Iconst(tp.I32, 7)
	b.Return(c)

	b.SetBlock(then)
	b.Return(c)

	f := b.Func()

	_, err := New(Config{}).CompileFunc(context.Background(), f)
	require.Error(t, err, "rejected by verify")

	res, err := New(Config{SkipVerify: true}).CompileFunc(context.Background(), f)
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrTypeMismatch)

	var te *TypeMismatchError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ir.OpReturn, te.Op)
	assert.Contains(t, te.Reason, "not lowered")
}

func TestSplatEqualConstantsNotReused(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil, i32x4, i32x4))

	c0 := b.Iconst(tp.I32, 7)
	c1 := b.Iconst(tp.I32, 7)
	s0 := b.Splat(i32x4, c0)
	s1 := b.Splat(i32x4, c1)
	b.Return(s0, s1)

	res := compile(t, b.Func())

	assert.Equal(t, 2, count(res, arm64.OpMOVZ))
	assert.Equal(t, 2, count(res, arm64.OpDUP))
}

func TestSplatReusedLoad(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}, i32x4, i32x4))

	l := b.Load(tp.I32, b.Param(0), 4)
	s0 := b.Splat(i32x4, l)
	s1 := b.Splat(i32x4, l)
	b.Return(s0, s1)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"ldr w8, [x0, #4]",
		"dup v16.4s, w8",
		"mov v0.16b, v16.16b",
		"mov v1.16b, v16.16b",
	}, epilogue), lines(res))
}

func TestSplatTrueBool(t *testing.T) {
	for _, tc := range []struct {
		lane tp.Bool
		vt   tp.Vec
		want string
	}{
		{tp.B8, tp.Vec{Lanes: 16, Elem: tp.B8}, "movi v16.16b, #255"},
		{tp.B16, tp.Vec{Lanes: 8, Elem: tp.B16}, "movi v16.16b, #255"},
		{tp.B32, tp.Vec{Lanes: 4, Elem: tp.B32}, "movi v16.16b, #255"},
		{tp.B64, tp.Vec{Lanes: 2, Elem: tp.B64}, "movi v16.16b, #255"},
		{tp.B16, tp.Vec{Lanes: 4, Elem: tp.B16}, "movi v16.8b, #255"},
	} {
		b := ir.NewBuilder("f", sig(nil, tc.vt))

		c := b.Bconst(tc.lane, true)
		s := b.Splat(tc.vt, c)
		b.Return(s)

		res := compile(t, b.Func())

		assert.Equal(t, join(prologue, []string{
			tc.want,
			"mov v0.16b, v16.16b",
		}, epilogue), lines(res), tc.vt.String())
	}
}

func TestSplatTrueBoolOtherUser(t *testing.T) {
	b8x16 := tp.Vec{Lanes: 16, Elem: tp.B8}

	b := ir.NewBuilder("f", sig(nil, b8x16, tp.B8))

	c := b.Bconst(tp.B8, true)
	s := b.Splat(b8x16, c)
	b.Return(s, c)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"movz w8, #255",
		"movi v16.16b, #255",
		"mov v0.16b, v16.16b",
		"mov x0, x8",
	}, epilogue), lines(res))
}

func TestSplatFalseBool(t *testing.T) {
	b32x4 := tp.Vec{Lanes: 4, Elem: tp.B32}

	b := ir.NewBuilder("f", sig(nil, b32x4))

	c := b.Bconst(tp.B32, false)
	s := b.Splat(b32x4, c)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, []string{"movz", "dup"}, res.Mnemonics()[2:4])
}

func TestPlainLoads(t *testing.T) {
	for _, tc := range []struct {
		t    tp.Type
		off  int32
		want []string
	}{
		{tp.I8, 3, []string{"ldrb w8, [x0, #3]"}},
		{tp.I16, 2, []string{"ldrh w8, [x0, #2]"}},
		{tp.B1, 0, []string{"ldrb w8, [x0]"}},
		{tp.I64, 8, []string{"ldr x8, [x0, #8]"}},
		{tp.I64, 4, []string{"add x16, x0, #4", "ldr x8, [x16]"}},
		{tp.I32, -4, []string{"sub x16, x0, #4", "ldr w8, [x16]"}},
		{tp.I32, 0x10000, []string{"movz x17, #1, LSL #16", "add x16, x0, x17", "ldr w8, [x16]"}},
		{i32x4, 32, []string{"ldr q16, [x0, #32]"}},
		{tp.Vec{Lanes: 2, Elem: tp.I32}, 0, []string{"ldr d16, [x0]"}},
	} {
		b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}, tc.t))

		l := b.Load(tc.t, b.Param(0), tc.off)
		b.Return(l)

		res := compile(t, b.Func())

		got := lines(res)
		got = got[len(prologue) : len(prologue)+len(tc.want)]

		assert.Equal(t, tc.want, got, "%v%+d", tc.t, tc.off)
	}
}

func TestDeadValues(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}))

	b.Iconst(tp.I64, 100)
	b.Load(tp.I32, b.Param(0), 0)
	b.Return()

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{"ldr w8, [x0]"}, epilogue), lines(res))
}

func TestDeterminism(t *testing.T) {
	build := func() *ir.Func {
		b := ir.NewBuilder("f", sig([]tp.Type{tp.I64, tp.I32}, i32x4, i32x4, tp.I32))

		l0 := b.Load(tp.I32, b.Param(0), 0)
		l1 := b.Load(tp.I32, b.Param(0), 4)
		c := b.Iconst(tp.I32, 0xdeadbeef)
		s0 := b.Splat(i32x4, l0)
		s1 := b.Splat(i32x4, l1)
		sel := b.Select(b.Param(1), c, l1)
		b.Return(s0, s1, sel)

		return b.Func()
	}

	c := New(Config{})

	r0, err := c.CompileFunc(context.Background(), build())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		r1, err := c.CompileFunc(context.Background(), build())
		require.NoError(t, err)

		require.Equal(t, r0.Code, r1.Code)
	}
}

func TestResultText(t *testing.T) {
	b := ir.NewBuilder("splat", sig(nil, i64x2))

	c := b.Iconst(tp.I64, 1)
	s := b.Splat(i64x2, c)
	b.Return(s)

	res, err := New(Config{Comments: true}).CompileFunc(context.Background(), b.Func())
	require.NoError(t, err)

	assert.Equal(t, `.global splat
.align 4
splat:
	stp	fp, lr, [sp, #-16]!
	mov	fp, sp
	movz	x8, #1	// v0
	dup	v16.2d, x8	// v1
	mov	v0.16b, v16.16b	// v2
	mov	sp, fp	// v2
	ldp	fp, lr, [sp], #16	// v2
	ret	// v2
`, res.String())
}
