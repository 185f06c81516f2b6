package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/isel/compiler"
	"github.com/slowlang/isel/compiler/back"
)

func main() {
	lowerCmd := &cli.Command{
		Name:        "lower",
		Description: "lower fixture functions to arm64 assembly",
		Action:      lowerAct,
		Args:        cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print fixture functions as ir text",
		Action:      dumpAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "isel",
		Description: "isel is an arm64 instruction selector for simd ir",
		Commands: []*cli.Command{
			lowerCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func lowerAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg := back.ConfigFromEnv()

	for _, a := range c.Args {
		text, err := compiler.CompileFile(ctx, cfg, a)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		_, err = os.Stdout.Write(text)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := compiler.DumpFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "dump %v", a)
		}

		_, err = os.Stdout.Write(text)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}
