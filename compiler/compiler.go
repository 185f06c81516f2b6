package compiler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/isel/compiler/back"
	"github.com/slowlang/isel/compiler/format"
	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/load"
)

// Output is the outcome of lowering one function.
type Output struct {
	Result *back.Result
	Err    error
}

// CompileAll lowers fs concurrently. Functions share nothing,
// a failed one does not stop the others.
// Outputs are in the order of fs.
func CompileAll(ctx context.Context, c *back.Compiler, fs []*ir.Func) []Output {
	out := make([]Output, len(fs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, f := range fs {
		i, f := i, f

		g.Go(func() error {
			out[i].Result, out[i].Err = c.CompileFunc(ctx, f)

			return nil
		})
	}

	_ = g.Wait()

	return out
}

// CompileFile lowers every function of a fixture file into assembly text.
func CompileFile(ctx context.Context, cfg back.Config, name string) (text []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile file", "name", name)
	defer tr.Finish("err", &err)

	fs, err := load.File(name)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	tr.Printw("loaded", "funcs", len(fs))

	out := CompileAll(ctx, back.New(cfg), fs)

	for i, o := range out {
		if o.Err != nil {
			return nil, errors.Wrap(o.Err, "func %v", fs[i].Name)
		}

		if i != 0 {
			text = append(text, '\n')
		}

		text = o.Result.AppendText(text)
	}

	return text, nil
}

// DumpFile renders the IR of a fixture file.
func DumpFile(ctx context.Context, name string) ([]byte, error) {
	fs, err := load.File(name)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	return format.Format(ctx, nil, fs)
}
