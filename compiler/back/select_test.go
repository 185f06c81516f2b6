package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/isel/compiler/asm/arm64"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

func TestSelect(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32, tp.I64, tp.I64}, tp.I64))

	s := b.Select(b.Param(0), b.Param(1), b.Param(2))
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"subs wzr, w0, wzr",
		"csel x8, x1, x2, ne",
		"mov x0, x8",
	}, epilogue), lines(res))

	assert.Zero(t, count(res, arm64.OpB))
	assert.Zero(t, count(res, arm64.OpBCond))
	assert.Zero(t, count(res, arm64.OpCBNZ))
	assert.Zero(t, count(res, arm64.OpCBZ))
}

func TestSelectNarrowCondition(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.B8, tp.I16, tp.I16}, tp.I16))

	s := b.Select(b.Param(0), b.Param(1), b.Param(2))
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"tst w0, #255",
		"csel w8, w1, w2, ne",
		"mov x0, x8",
	}, epilogue), lines(res))
}

func TestSelectConstants(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I64}, tp.I32))

	x := b.Iconst(tp.I32, 1)
	y := b.Iconst(tp.I32, 2)
	s := b.Select(b.Param(0), x, y)
	b.Return(s)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"movz w8, #1",
		"movz w9, #2",
		"subs xzr, x0, xzr",
		"csel w10, w8, w9, ne",
		"mov x0, x10",
	}, epilogue), lines(res))
}

func TestSelectVectorUnsupported(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32, i32x4, i32x4}, i32x4))

	s := b.Select(b.Param(0), b.Param(1), b.Param(2))
	b.Return(s)

	res, err := New(Config{}).CompileFunc(context.Background(), b.Func())
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrUnsupported)

	var ue *UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ir.OpSelect, ue.Op)
	assert.Equal(t, s, ue.Value)
}

func TestSelectOperandMismatch(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32, tp.I64, tp.I32}, tp.I64))

	s := b.Select(b.Param(0), b.Param(1), b.Param(2))
	b.Return(s)

	_, err := New(Config{}).CompileFunc(context.Background(), b.Func())
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBrif(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.I32}, tp.I32))

	then := b.Block()
	els := b.Block()

	b.Brif(b.Param(0), then, els)

	b.SetBlock(then)
	b.Return(b.Param(0))

	b.SetBlock(els)
	c := b.Iconst(tp.I32, 5)
	b.Return(c)

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"cbz w0, block2",
		"block1:",
	}, epilogue, []string{
		"block2:",
		"movz w8, #5",
		"mov x0, x8",
	}, epilogue), lines(res))
}

func TestBrifNarrowCondition(t *testing.T) {
	b := ir.NewBuilder("f", sig([]tp.Type{tp.B1}))

	then := b.Block()
	els := b.Block()

	b.Brif(b.Param(0), els, then)

	b.SetBlock(then)
	b.Return()

	b.SetBlock(els)
	b.Return()

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, []string{
		"tst w0, #1",
		"b.ne block2",
		"block1:",
	}, epilogue, []string{
		"block2:",
	}, epilogue), lines(res))

	assert.Equal(t, []string{"stp", "mov", "tst", "b.ne", "mov", "ldp", "ret", "mov", "ldp", "ret"}, res.Mnemonics())
}

func TestUnreachableBlockSkipped(t *testing.T) {
	b := ir.NewBuilder("f", sig(nil))

	dead := b.Block()
	b.Return()

	b.SetBlock(dead)
	b.Iconst(tp.I64, 1)
	b.Return()

	res := compile(t, b.Func())

	assert.Equal(t, join(prologue, epilogue), lines(res))
}
