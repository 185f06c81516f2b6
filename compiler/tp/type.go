package tp

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

type (
	Type interface {
		Size() int
		Width() int
		String() string
	}

	Int struct {
		Bits int16
	}

	Bool struct {
		Bits int16
	}

	// Vec is a SIMD vector of Lanes elements of type Elem.
	// Elem is Int or Bool.
	Vec struct {
		Lanes int16
		Elem  Type
	}
)

var (
	I8  = Int{Bits: 8}
	I16 = Int{Bits: 16}
	I32 = Int{Bits: 32}
	I64 = Int{Bits: 64}

	B1  = Bool{Bits: 1}
	B8  = Bool{Bits: 8}
	B16 = Bool{Bits: 16}
	B32 = Bool{Bits: 32}
	B64 = Bool{Bits: 64}
)

func (x Int) Size() int  { return int(x.Bits) / 8 }
func (x Int) Width() int { return int(x.Bits) }

func (x Int) String() string { return "i" + strconv.Itoa(int(x.Bits)) }

func (x Bool) Size() int {
	if x.Bits < 8 {
		return 1
	}

	return int(x.Bits) / 8
}

func (x Bool) Width() int { return int(x.Bits) }

func (x Bool) String() string { return "b" + strconv.Itoa(int(x.Bits)) }

func (x Vec) Size() int  { return x.Width() / 8 }
func (x Vec) Width() int { return int(x.Lanes) * x.Elem.Width() }

func (x Vec) String() string { return x.Elem.String() + "x" + strconv.Itoa(int(x.Lanes)) }

// IsScalar reports whether t is an Int or a Bool.
func IsScalar(t Type) bool {
	switch t.(type) {
	case Int, Bool:
		return true
	default:
		return false
	}
}

// Valid reports whether t is one of the types the backend knows about.
func Valid(t Type) bool {
	switch t := t.(type) {
	case Int:
		switch t.Bits {
		case 8, 16, 32, 64:
			return true
		}
	case Bool:
		switch t.Bits {
		case 1, 8, 16, 32, 64:
			return true
		}
	case Vec:
		if !IsScalar(t.Elem) || !Valid(t.Elem) || t.Elem.Width() < 8 {
			return false
		}

		w := t.Width()

		return w == 64 || w == 128
	}

	return false
}

// Parse parses type names like i32, b8, i16x8.
func Parse(s string) (Type, error) {
	elem, lanes, vec := strings.Cut(s, "x")

	if len(elem) < 2 {
		return nil, errors.New("bad type: %q", s)
	}

	bits, err := strconv.ParseInt(elem[1:], 10, 16)
	if err != nil {
		return nil, errors.Wrap(err, "bad type: %q", s)
	}

	var t Type

	switch elem[0] {
	case 'i':
		t = Int{Bits: int16(bits)}
	case 'b':
		t = Bool{Bits: int16(bits)}
	default:
		return nil, errors.New("bad type: %q", s)
	}

	if vec {
		n, err := strconv.ParseInt(lanes, 10, 16)
		if err != nil {
			return nil, errors.Wrap(err, "bad lanes: %q", s)
		}

		t = Vec{Lanes: int16(n), Elem: t}
	}

	if !Valid(t) {
		return nil, errors.New("unsupported type: %v", s)
	}

	return t, nil
}
