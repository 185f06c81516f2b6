package arm64

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Buffer is the ordered instruction sequence of one function.
// It is not safe for concurrent use.
type Buffer struct {
	Code []Instr

	origin int32
}

func NewBuffer() *Buffer {
	return &Buffer{origin: -1}
}

// SetOrigin stamps following instructions with the IR value id.
func (b *Buffer) SetOrigin(v int) {
	b.origin = int32(v)
}

func (b *Buffer) Emit(op Op, out int, args ...Operand) {
	x := Instr{
		Op:     op,
		Out:    int8(out),
		Args:   args,
		Origin: b.origin,
	}

	if tlog.If("emit") {
		tlog.Printw("emit", "i", len(b.Code), "instr", x.String(), "origin", x.Origin, "from", loc.Caller(1))
	}

	b.Code = append(b.Code, x)
}

func (b *Buffer) Label(l int) {
	b.Emit(OpLabel, 0, L(l))
}

func (b *Buffer) Len() int { return len(b.Code) }

// Mnemonics lists instruction names in order, labels excluded.
func (b *Buffer) Mnemonics() []string {
	r := make([]string, 0, len(b.Code))

	for _, x := range b.Code {
		if x.Op == OpLabel {
			continue
		}

		r = append(r, x.Mnemonic())
	}

	return r
}

// AppendText renders the code one instruction per line.
// With comments each instruction is annotated with its IR origin.
func (b *Buffer) AppendText(dst []byte, comments bool) []byte {
	for _, x := range b.Code {
		dst = x.AppendText(dst)

		if comments && x.Origin >= 0 && x.Op != OpLabel {
			dst = hfmt.Appendf(dst, "\t// v%d", x.Origin)
		}

		dst = append(dst, '\n')
	}

	return dst
}
