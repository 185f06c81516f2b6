package arm64

import "tlog.app/go/tlog/tlwire"

type (
	// Reg is a physical register.
	// 0..30 are general purpose, 32..63 are SIMD&FP, then SP and ZR.
	Reg uint8

	Arrangement uint8
)

const (
	X0 Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
)

const (
	V0 Reg = 32 + iota
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9
	V10
	V11
	V12
	V13
	V14
	V15
	V16
	V17
	V18
	V19
	V20
	V21
	V22
	V23
	V24
	V25
	V26
	V27
	V28
	V29
	V30
	V31
)

const (
	SP Reg = 64 + iota
	ZR

	FP = X29
	LR = X30

	NoReg Reg = 0xff
)

const (
	ArrNone Arrangement = iota
	Arr8B
	Arr16B
	Arr4H
	Arr8H
	Arr2S
	Arr4S
	Arr1D
	Arr2D
)

var xNames = [...]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "fp", "lr",
}

var wNames = [...]string{
	"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7",
	"w8", "w9", "w10", "w11", "w12", "w13", "w14", "w15",
	"w16", "w17", "w18", "w19", "w20", "w21", "w22", "w23",
	"w24", "w25", "w26", "w27", "w28", "w29", "w30",
}

var vNums = [...]string{
	"0", "1", "2", "3", "4", "5", "6", "7",
	"8", "9", "10", "11", "12", "13", "14", "15",
	"16", "17", "18", "19", "20", "21", "22", "23",
	"24", "25", "26", "27", "28", "29", "30", "31",
}

var arrNames = [...]string{
	ArrNone: "",
	Arr8B:   "8b",
	Arr16B:  "16b",
	Arr4H:   "4h",
	Arr8H:   "8h",
	Arr2S:   "2s",
	Arr4S:   "4s",
	Arr1D:   "1d",
	Arr2D:   "2d",
}

func (r Reg) IsGP() bool  { return r <= X30 }
func (r Reg) IsVec() bool { return r >= V0 && r <= V31 }

// Num is the register number used in the encoding.
func (r Reg) Num() int {
	switch {
	case r.IsGP():
		return int(r)
	case r.IsVec():
		return int(r - V0)
	case r == SP, r == ZR:
		return 31
	default:
		panic(r)
	}
}

// Name returns the register name for an access of the given size in bits.
// For vector registers the size selects the scalar view: b, h, s, d, q.
func (r Reg) Name(size int) string {
	switch {
	case r.IsGP():
		if size == 64 {
			return xNames[r]
		}

		return wNames[r]
	case r.IsVec():
		var p string

		switch size {
		case 8:
			p = "b"
		case 16:
			p = "h"
		case 32:
			p = "s"
		case 64:
			p = "d"
		case 128:
			p = "q"
		default:
			p = "v"
		}

		return p + vNums[r-V0]
	case r == SP:
		if size == 64 {
			return "sp"
		}

		return "wsp"
	case r == ZR:
		if size == 64 {
			return "xzr"
		}

		return "wzr"
	default:
		return "?"
	}
}

func (r Reg) String() string {
	return r.Name(64)
}

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, r.String())
}

// ArrangementFor picks the arrangement of a vector
// of lanes elements each elem bits wide.
func ArrangementFor(lanes, elem int) Arrangement {
	switch lanes * elem {
	case 64:
		switch elem {
		case 8:
			return Arr8B
		case 16:
			return Arr4H
		case 32:
			return Arr2S
		case 64:
			return Arr1D
		}
	case 128:
		switch elem {
		case 8:
			return Arr16B
		case 16:
			return Arr8H
		case 32:
			return Arr4S
		case 64:
			return Arr2D
		}
	}

	return ArrNone
}

// Bytes form of the arrangement: 8b for 64-bit vectors, 16b for 128-bit.
func (a Arrangement) Bytes() Arrangement {
	if a.Width() == 64 {
		return Arr8B
	}

	return Arr16B
}

func (a Arrangement) Width() int {
	switch a {
	case Arr8B, Arr4H, Arr2S, Arr1D:
		return 64
	case Arr16B, Arr8H, Arr4S, Arr2D:
		return 128
	default:
		return 0
	}
}

// Elem is the lane size in bits.
func (a Arrangement) Elem() int {
	switch a {
	case Arr8B, Arr16B:
		return 8
	case Arr4H, Arr8H:
		return 16
	case Arr2S, Arr4S:
		return 32
	case Arr1D, Arr2D:
		return 64
	default:
		return 0
	}
}

func (a Arrangement) String() string {
	if int(a) < len(arrNames) {
		return arrNames[a]
	}

	return "?"
}
