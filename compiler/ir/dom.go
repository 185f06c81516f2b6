package ir

import "github.com/slowlang/isel/compiler/set"

// Dom is the dominator tree of the blocks reachable from the entry.
type Dom struct {
	idom []BlockID // NoBlock for unreachable blocks
	rpo  []int     // reverse postorder number, -1 if unreachable
}

const NoBlock BlockID = -1

// Dominators builds the tree with the Cooper, Harvey, Kennedy iteration
// over reverse postorder. Successors out of range are ignored.
func Dominators(f *Func) *Dom {
	n := len(f.Blocks)

	d := &Dom{
		idom: make([]BlockID, n),
		rpo:  make([]int, n),
	}

	for i := range d.idom {
		d.idom[i] = NoBlock
		d.rpo[i] = -1
	}

	if n == 0 {
		return d
	}

	valid := func(b BlockID) bool { return b >= 0 && int(b) < n }

	seen := set.MakeBits[BlockID](n)
	post := make([]BlockID, 0, n)

	var walk func(b BlockID)
	walk = func(b BlockID) {
		seen.Set(b)

		for _, s := range f.Succs(b) {
			if !valid(s) || seen.IsSet(s) {
				continue
			}

			walk(s)
		}

		post = append(post, b)
	}

	walk(Entry)

	order := make([]BlockID, len(post))

	for i, b := range post {
		j := len(post) - 1 - i

		order[j] = b
		d.rpo[b] = j
	}

	preds := make([][]BlockID, n)

	for _, b := range order {
		for _, s := range f.Succs(b) {
			if valid(s) {
				preds[s] = append(preds[s], b)
			}
		}
	}

	d.idom[Entry] = Entry

	for changed := true; changed; {
		changed = false

		for _, b := range order[1:] {
			nw := NoBlock

			for _, p := range preds[b] {
				switch {
				case d.idom[p] == NoBlock:
				case nw == NoBlock:
					nw = p
				default:
					nw = d.intersect(p, nw)
				}
			}

			if nw != d.idom[b] {
				d.idom[b] = nw
				changed = true
			}
		}
	}

	return d
}

func (d *Dom) intersect(a, b BlockID) BlockID {
	for a != b {
		for d.rpo[a] > d.rpo[b] {
			a = d.idom[a]
		}

		for d.rpo[b] > d.rpo[a] {
			b = d.idom[b]
		}
	}

	return a
}

func (d *Dom) Reachable(b BlockID) bool {
	return b >= 0 && int(b) < len(d.rpo) && d.rpo[b] >= 0
}

// Idom is the immediate dominator of b. Entry is its own.
func (d *Dom) Idom(b BlockID) BlockID {
	if !d.Reachable(b) {
		return NoBlock
	}

	return d.idom[b]
}

// Dominates reports whether every path from the entry to b goes through a.
// A block dominates itself.
func (d *Dom) Dominates(a, b BlockID) bool {
	if !d.Reachable(a) || !d.Reachable(b) {
		return false
	}

	for {
		if a == b {
			return true
		}

		if b == Entry {
			return false
		}

		b = d.idom[b]
	}
}
