package load

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

// Fixture format, one function per yaml document:
//
//	name: splat
//	params:
//	  - {name: p, type: i64}
//	returns: [i32x4]
//	blocks:
//	  - name: entry
//	    code:
//	      - {def: x, op: load, type: i32, args: [p], offset: 4}
//	      - {def: s, op: splat, type: i32x4, args: [x]}
//	      - {op: return, args: [s]}
//
// The first block is the entry. Blocks may also be referred to as blockN.
type (
	funcDoc struct {
		Name    string     `yaml:"name"`
		Params  []paramDoc `yaml:"params"`
		Returns []string   `yaml:"returns"`
		Blocks  []blockDoc `yaml:"blocks"`
	}

	paramDoc struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}

	blockDoc struct {
		Name string     `yaml:"name"`
		Code []instrDoc `yaml:"code"`
	}

	instrDoc struct {
		Def    string   `yaml:"def"`
		Op     string   `yaml:"op"`
		Type   string   `yaml:"type"`
		Imm    string   `yaml:"imm"`
		Val    bool     `yaml:"val"`
		Args   []string `yaml:"args"`
		Offset int32    `yaml:"offset"`

		Dest string `yaml:"dest"`
		Then string `yaml:"then"`
		Else string `yaml:"else"`
	}

	builder struct {
		*ir.Builder

		vals   map[string]ir.Value
		blocks map[string]ir.BlockID
	}
)

// return takes any number of args
var arity = map[string]int{
	"iconst":  0,
	"bconst":  0,
	"ireduce": 1,
	"splat":   1,
	"load":    1,
	"select":  3,
	"jump":    0,
	"brif":    1,
}

func File(name string) ([]*ir.Func, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	fs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return fs, nil
}

// Parse decodes every yaml document in data.
func Parse(data []byte) (fs []*ir.Func, err error) {
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)

	for i := 0; ; i++ {
		var doc funcDoc

		err = d.Decode(&doc)
		if err == io.EOF {
			return fs, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode doc %d", i)
		}

		f, err := build(&doc)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", doc.Name)
		}

		fs = append(fs, f)
	}
}

func build(doc *funcDoc) (*ir.Func, error) {
	if doc.Name == "" {
		return nil, errors.New("no name")
	}

	if len(doc.Blocks) == 0 {
		return nil, errors.New("no blocks")
	}

	var sig ir.Signature

	for i, p := range doc.Params {
		t, err := tp.Parse(p.Type)
		if err != nil {
			return nil, errors.Wrap(err, "param %d", i)
		}

		sig.In = append(sig.In, t)
	}

	for i, r := range doc.Returns {
		t, err := tp.Parse(r)
		if err != nil {
			return nil, errors.Wrap(err, "return %d", i)
		}

		sig.Out = append(sig.Out, t)
	}

	b := &builder{
		Builder: ir.NewBuilder(doc.Name, sig),
		vals:    map[string]ir.Value{},
		blocks:  map[string]ir.BlockID{},
	}

	for i, p := range doc.Params {
		if p.Name == "" {
			continue
		}

		if err := b.def(p.Name, b.Param(i)); err != nil {
			return nil, err
		}
	}

	for i, bd := range doc.Blocks {
		bid := ir.Entry
		if i != 0 {
			bid = b.Block()
		}

		b.blocks[bid.String()] = bid

		if bd.Name == "" {
			continue
		}

		if _, ok := b.blocks[bd.Name]; ok && bd.Name != bid.String() {
			return nil, errors.New("block %q redefined", bd.Name)
		}

		b.blocks[bd.Name] = bid
	}

	for i, bd := range doc.Blocks {
		b.SetBlock(ir.BlockID(i))

		for j, x := range bd.Code {
			err := b.instr(&x)
			if err != nil {
				return nil, errors.Wrap(err, "block %d: instr %d (%v)", i, j, x.Op)
			}
		}
	}

	return b.Func(), nil
}

func (b *builder) instr(x *instrDoc) (err error) {
	var t tp.Type

	if x.Type != "" {
		t, err = tp.Parse(x.Type)
		if err != nil {
			return err
		}
	}

	args := make([]ir.Value, len(x.Args))

	for i, a := range x.Args {
		args[i], err = b.val(a)
		if err != nil {
			return err
		}
	}

	if n, ok := arity[x.Op]; ok && n != len(args) {
		return errors.New("%v takes %d args, got %d", x.Op, n, len(args))
	}

	var v ir.Value = ir.Nil

	switch x.Op {
	case "iconst":
		imm, err := parseImm(x.Imm)
		if err != nil {
			return errors.Wrap(err, "imm")
		}

		v = b.Iconst(t, imm)
	case "bconst":
		v = b.Bconst(t, x.Val)
	case "ireduce":
		v = b.Ireduce(t, args[0])
	case "splat":
		v = b.Splat(t, args[0])
	case "load":
		v = b.Load(t, args[0], x.Offset)
	case "select":
		if t != nil {
			v = b.Add(ir.Select{Cond: args[0], X: args[1], Y: args[2]}, t)
		} else {
			v = b.Select(args[0], args[1], args[2])
		}
	case "return":
		b.Return(args...)
	case "jump":
		dest, err := b.block(x.Dest)
		if err != nil {
			return err
		}

		b.Jump(dest)
	case "brif":
		then, err := b.block(x.Then)
		if err != nil {
			return err
		}

		els, err := b.block(x.Else)
		if err != nil {
			return err
		}

		b.Brif(args[0], then, els)
	default:
		return errors.New("unknown op: %q", x.Op)
	}

	if v == ir.Nil || x.Def == "" {
		return nil
	}

	return b.def(x.Def, v)
}

func (b *builder) def(name string, v ir.Value) error {
	if _, ok := b.vals[name]; ok {
		return errors.New("value %q redefined", name)
	}

	b.vals[name] = v

	return nil
}

func (b *builder) val(name string) (ir.Value, error) {
	v, ok := b.vals[name]
	if !ok {
		return ir.Nil, errors.New("undefined value: %q", name)
	}

	return v, nil
}

func (b *builder) block(name string) (ir.BlockID, error) {
	bid, ok := b.blocks[name]
	if !ok {
		return 0, errors.New("undefined block: %q", name)
	}

	return bid, nil
}

// parseImm accepts decimal, 0x and negative values.
// Negative values are taken in two's complement.
func parseImm(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("missing")
	}

	if s[0] == '-' {
		v, err := strconv.ParseInt(s, 0, 64)
		return uint64(v), err
	}

	return strconv.ParseUint(s, 0, 64)
}
