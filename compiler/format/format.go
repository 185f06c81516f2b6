package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/isel/compiler/ir"
)

// Format appends the text form of x to b.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Func:
		return formatFunc(ctx, b, x, d)
	case []*ir.Func:
		return formatFuncs(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatFuncs(ctx context.Context, b []byte, fs []*ir.Func, d int) (_ []byte, err error) {
	for i, f := range fs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ir.Func, d int) (_ []byte, err error) {
	b = app(b, d, "function %%%v(", f.Name)

	for i, t := range f.Sig.In {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v", t)
	}

	b = append(b, ')')

	if len(f.Sig.Out) != 0 {
		b = append(b, " -> "...)

		for i, t := range f.Sig.Out {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%v", t)
		}
	}

	b = append(b, " {\n"...)

	for bid := range f.Blocks {
		b, err = formatBlock(ctx, b, f, ir.BlockID(bid), d)
		if err != nil {
			return nil, errors.Wrap(err, "block%d", bid)
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, f *ir.Func, bid ir.BlockID, d int) (_ []byte, err error) {
	bp := &f.Blocks[bid]

	if bid != ir.Entry {
		b = append(b, '\n')
	}

	b = app(b, d, "%v", bid)

	if len(bp.Params) != 0 {
		b = append(b, '(')

		for i, id := range bp.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%v: %v", id, f.EType[id])
		}

		b = append(b, ')')
	}

	b = append(b, ":\n"...)

	for _, id := range bp.Code {
		b, err = formatInstr(ctx, b, f, id, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "%v", id)
		}
	}

	return b, nil
}

func formatInstr(ctx context.Context, b []byte, f *ir.Func, id ir.Value, d int) ([]byte, error) {
	x := f.Exprs[id]
	t := f.EType[id]

	if t != nil {
		b = app(b, d, "%v = %v.%v", id, x.Opcode(), t)
	} else {
		b = app(b, d, "%v", x.Opcode())
	}

	switch x := x.(type) {
	case ir.Iconst:
		b = app(b, 0, " %#x", x.Imm)
	case ir.Bconst:
		b = app(b, 0, " %v", x.Val)
	case ir.Ireduce:
		b = app(b, 0, " %v", x.X)
	case ir.Splat:
		b = app(b, 0, " %v", x.X)
	case ir.Load:
		b = app(b, 0, " %v", x.Ptr)

		if x.Offset != 0 {
			b = app(b, 0, "%+d", x.Offset)
		}
	case ir.Select:
		b = app(b, 0, " %v, %v, %v", x.Cond, x.X, x.Y)
	case ir.Return:
		for i, v := range x.Values {
			if i == 0 {
				b = append(b, ' ')
			} else {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%v", v)
		}
	case ir.Jump:
		b = app(b, 0, " %v", x.Dest)
	case ir.Brif:
		b = app(b, 0, " %v, %v, %v", x.Cond, x.Then, x.Else)
	default:
		return nil, errors.New("unsupported instruction: %T", x)
	}

	b = append(b, '\n')

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
