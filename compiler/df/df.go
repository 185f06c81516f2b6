package df

import "github.com/slowlang/isel/compiler/ir"

type (
	Value = ir.Value

	// Uses is the def-use table of one function.
	// Consumers are listed once per instruction, in layout order.
	Uses struct {
		users [][]Value
	}
)

// Build walks every block of f once.
// Unreachable blocks count too: fusion is decided on the whole function.
func Build(f *ir.Func) *Uses {
	u := &Uses{
		users: make([][]Value, len(f.Exprs)),
	}

	for _, bp := range f.Blocks {
		for _, id := range bp.Code {
			for _, a := range f.Exprs[id].Args() {
				l := u.users[a]

				if n := len(l); n != 0 && l[n-1] == id {
					continue
				}

				u.users[a] = append(l, id)
			}
		}
	}

	return u
}

// Count is the number of instructions consuming v.
func (u *Uses) Count(v Value) int {
	return len(u.users[v])
}

func (u *Uses) Users(v Value) []Value {
	return u.users[v]
}

// Sole returns the only consumer of v.
func (u *Uses) Sole(v Value) (Value, bool) {
	if len(u.users[v]) != 1 {
		return ir.Nil, false
	}

	return u.users[v][0], true
}

// All reports whether every consumer of v satisfies f.
// It is true for unused values.
func (u *Uses) All(v Value, f func(user Value) bool) bool {
	for _, x := range u.users[v] {
		if !f(x) {
			return false
		}
	}

	return true
}
