package ir

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/isel/compiler/tp"
)

type (
	// Value is a dense function-local id.
	// Every instruction owns one, terminators included;
	// results of terminators have nil type.
	Value int

	BlockID int

	Opcode uint8

	Instr interface {
		Opcode() Opcode
		Args() []Value
	}

	Signature struct {
		In  []tp.Type
		Out []tp.Type
	}

	Func struct {
		Name string
		Sig  Signature

		Blocks []Block

		Exprs []Instr
		EType []tp.Type
	}

	Block struct {
		Params []Value
		Code   []Value
	}

	Param struct {
		Block BlockID
		N     int
	}

	Iconst struct {
		Imm uint64
	}

	Bconst struct {
		Val bool
	}

	// Ireduce narrows X to a smaller integer type.
	Ireduce struct {
		X Value
	}

	// Splat replicates scalar X into every lane.
	Splat struct {
		X Value
	}

	Load struct {
		Ptr    Value
		Offset int32
	}

	// Select is Cond != 0 ? X : Y.
	Select struct {
		Cond Value
		X, Y Value
	}

	Return struct {
		Values []Value
	}

	Jump struct {
		Dest BlockID
	}

	Brif struct {
		Cond       Value
		Then, Else BlockID
	}
)

const (
	OpInvalid Opcode = iota
	OpParam
	OpIconst
	OpBconst
	OpIreduce
	OpSplat
	OpLoad
	OpSelect
	OpReturn
	OpJump
	OpBrif
)

const (
	Nil   Value   = -1
	Entry BlockID = 0
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpParam:   "param",
	OpIconst:  "iconst",
	OpBconst:  "bconst",
	OpIreduce: "ireduce",
	OpSplat:   "splat",
	OpLoad:    "load",
	OpSelect:  "select",
	OpReturn:  "return",
	OpJump:    "jump",
	OpBrif:    "brif",
}

func (Param) Opcode() Opcode   { return OpParam }
func (Iconst) Opcode() Opcode  { return OpIconst }
func (Bconst) Opcode() Opcode  { return OpBconst }
func (Ireduce) Opcode() Opcode { return OpIreduce }
func (Splat) Opcode() Opcode   { return OpSplat }
func (Load) Opcode() Opcode    { return OpLoad }
func (Select) Opcode() Opcode  { return OpSelect }
func (Return) Opcode() Opcode  { return OpReturn }
func (Jump) Opcode() Opcode    { return OpJump }
func (Brif) Opcode() Opcode    { return OpBrif }

func (Param) Args() []Value     { return nil }
func (Iconst) Args() []Value    { return nil }
func (Bconst) Args() []Value    { return nil }
func (x Ireduce) Args() []Value { return []Value{x.X} }
func (x Splat) Args() []Value   { return []Value{x.X} }
func (x Load) Args() []Value    { return []Value{x.Ptr} }
func (x Select) Args() []Value  { return []Value{x.Cond, x.X, x.Y} }
func (x Return) Args() []Value  { return x.Values }
func (Jump) Args() []Value      { return nil }
func (x Brif) Args() []Value    { return []Value{x.Cond} }

// Successors returns the blocks a terminator may transfer control to.
func Successors(x Instr) []BlockID {
	switch x := x.(type) {
	case Jump:
		return []BlockID{x.Dest}
	case Brif:
		return []BlockID{x.Then, x.Else}
	default:
		return nil
	}
}

func (op Opcode) IsTerminator() bool {
	return op == OpReturn || op == OpJump || op == OpBrif
}

func (op Opcode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}

	return "op" + strconv.Itoa(int(op))
}

func (v Value) String() string {
	if v == Nil {
		return "nil"
	}

	return "v" + strconv.Itoa(int(v))
}

func (b BlockID) String() string {
	return "block" + strconv.Itoa(int(b))
}

func (v Value) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendInt(b, int(v))
}

// Type returns the type of v, nil for terminators.
func (f *Func) Type(v Value) tp.Type {
	return f.EType[v]
}

func (f *Func) Instr(v Value) Instr {
	return f.Exprs[v]
}

func (f *Func) Op(v Value) Opcode {
	return f.Exprs[v].Opcode()
}

// Succs returns the successors of block b named by its terminator.
func (f *Func) Succs(b BlockID) []BlockID {
	code := f.Blocks[b].Code
	if len(code) == 0 {
		return nil
	}

	return Successors(f.Exprs[code[len(code)-1]])
}

func (f *Func) Params() []Value {
	return f.Blocks[Entry].Params
}

func (f *Func) alloc(x Instr, t tp.Type) Value {
	id := Value(len(f.Exprs))

	f.Exprs = append(f.Exprs, x)
	f.EType = append(f.EType, t)

	return id
}
