package weight

import (
	"sort"
)

// WDLevel maps the node IDs of one depth to their distributions.
type WDLevel[D Distribution[D]] map[int]D

// IDs lists the node IDs of the level, ascending.
func (l WDLevel[D]) IDs() []int {
	out := make([]int, 0, len(l))
	for id := range l {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Sum adds the distributions of every node.
func (l WDLevel[D]) Sum() D {
	var acc D
	for _, id := range l.IDs() {
		acc = acc.Plus(l[id])
	}
	return acc
}

// LEW is the lowest LEW over the level's nodes.
func (l WDLevel[D]) LEW() (int, bool) {
	return l.lowest(func(d D) (int, bool) { return d.LEW() })
}

// NTLEW is the lowest NT-LEW over the level's nodes.
func (l WDLevel[D]) NTLEW() (int, bool) {
	return l.lowest(func(d D) (int, bool) { return d.NTLEW() })
}

func (l WDLevel[D]) lowest(get func(D) (int, bool)) (int, bool) {
	best, found := 0, false
	for _, d := range l {
		if w, ok := get(d); ok && (!found || w < best) {
			best, found = w, true
		}
	}
	return best, found
}

// Arena caches whole levels of distributions by depth. Once frozen it is
// read-only and may be shared between goroutines.
type Arena[D Distribution[D]] struct {
	levels map[int]WDLevel[D]
	frozen bool
}

// NewArena returns an empty, writable arena.
func NewArena[D Distribution[D]]() *Arena[D] {
	return &Arena[D]{levels: make(map[int]WDLevel[D])}
}

// Put stores lvl at depth. It panics on a frozen arena.
func (a *Arena[D]) Put(depth int, lvl WDLevel[D]) {
	if a.frozen {
		panic("weight: Put on a frozen arena")
	}
	a.levels[depth] = lvl
}

// Freeze forbids further writes.
func (a *Arena[D]) Freeze() {
	a.frozen = true
}

// Frozen reports whether Freeze was called.
func (a *Arena[D]) Frozen() bool {
	return a.frozen
}

// Level returns the level stored at depth.
func (a *Arena[D]) Level(depth int) (WDLevel[D], bool) {
	l, ok := a.levels[depth]
	return l, ok
}

// Get returns the distribution of node id at depth.
func (a *Arena[D]) Get(depth, id int) (D, bool) {
	d, ok := a.levels[depth][id]
	return d, ok
}

// Depths lists the stored depths, ascending.
func (a *Arena[D]) Depths() []int {
	out := make([]int, 0, len(a.levels))
	for d := range a.levels {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
