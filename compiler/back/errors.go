package back

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/isel/compiler/ir"
	"github.com/slowlang/isel/compiler/tp"
)

type (
	// UnsupportedError means no pattern matches the opcode and type.
	UnsupportedError struct {
		Op    ir.Opcode
		Value ir.Value
		Type  tp.Type
	}

	// TypeMismatchError means operand widths or lanes violate
	// the instruction preconditions.
	TypeMismatchError struct {
		Op     ir.Opcode
		Value  ir.Value
		Reason string
	}

	// SignatureError means params or returns do not agree with the signature
	// or do not fit the calling convention.
	SignatureError struct {
		Func   string
		Reason string
	}

	ExhaustedError struct {
		Value ir.Value
		Bank  string
	}
)

var (
	ErrUnsupported  = errors.New("unsupported operation")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrSignature    = errors.New("signature violation")
	ErrExhausted    = errors.New("registers exhausted")
)

func (e *UnsupportedError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("unsupported operation: %v (%v)", e.Op, e.Value)
	}

	return fmt.Sprintf("unsupported operation: %v.%v (%v)", e.Op, e.Type, e.Value)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %v (%v): %s", e.Op, e.Value, e.Reason)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature violation: %s: %s", e.Func, e.Reason)
}

func (e *SignatureError) Unwrap() error { return ErrSignature }

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s registers exhausted at %v", e.Bank, e.Value)
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

func unsupported(f *ir.Func, id ir.Value) error {
	return &UnsupportedError{Op: f.Op(id), Value: id, Type: f.EType[id]}
}

func mismatch(f *ir.Func, id ir.Value, format string, args ...any) error {
	return &TypeMismatchError{Op: f.Op(id), Value: id, Reason: fmt.Sprintf(format, args...)}
}

func signature(f *ir.Func, format string, args ...any) error {
	return &SignatureError{Func: f.Name, Reason: fmt.Sprintf(format, args...)}
}
