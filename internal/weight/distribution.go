// Package weight computes per-node path-weight distributions over the active
// area of a shard. The weight of a path is the number of active cohorts on it:
// cohorts in which the path takes at least one 1-edge.
package weight

import (
	"math/bits"
	"sort"
)

// MaxWeight bounds every distribution; weights live in [0, MaxWeight).
const MaxWeight = 128

// Distribution is the capability set shared by every distribution variant.
// Implementations are values; methods never mutate the receiver.
type Distribution[D any] interface {
	// Incremented shifts every weight by one.
	Incremented() D
	// Plus is the pointwise sum.
	Plus(o D) D
	// ExistingWeights lists the weights present, ascending.
	ExistingWeights() []int
	// LEW returns the lowest existing weight.
	LEW() (int, bool)
	// NTLEW returns the lowest existing non-zero weight.
	NTLEW() (int, bool)
	// ContainsTrivialLEW reports whether weight 0 is present.
	ContainsTrivialLEW() bool
}

// Convolvable distributions can be combined along a path: the weights of the
// two halves add up.
type Convolvable[D any] interface {
	Distribution[D]
	Convolve(o D) D
}

// Trivial builds the distribution of the empty path ending at node endID.
type Trivial[D any] func(endID int) D

// Presence records which weights exist, one bit per weight.
type Presence struct {
	Lo, Hi uint64
}

// TrivialPresence has only weight 0.
func TrivialPresence(int) Presence {
	return Presence{Lo: 1}
}

// Has reports whether weight w is present.
func (p Presence) Has(w int) bool {
	switch {
	case w < 0 || w >= MaxWeight:
		return false
	case w < 64:
		return p.Lo&(1<<uint(w)) != 0
	default:
		return p.Hi&(1<<uint(w-64)) != 0
	}
}

func (p Presence) Incremented() Presence {
	return Presence{Lo: p.Lo << 1, Hi: p.Hi<<1 | p.Lo>>63}
}

func (p Presence) Plus(o Presence) Presence {
	return Presence{Lo: p.Lo | o.Lo, Hi: p.Hi | o.Hi}
}

func (p Presence) Convolve(o Presence) Presence {
	var out Presence
	for _, w := range o.ExistingWeights() {
		out = out.Plus(p.shift(w))
	}
	return out
}

func (p Presence) shift(n int) Presence {
	switch {
	case n == 0:
		return p
	case n >= MaxWeight:
		return Presence{}
	case n >= 64:
		return Presence{Hi: p.Lo << uint(n-64)}
	default:
		return Presence{Lo: p.Lo << uint(n), Hi: p.Hi<<uint(n) | p.Lo>>uint(64-n)}
	}
}

func (p Presence) ExistingWeights() []int {
	out := make([]int, 0, bits.OnesCount64(p.Lo)+bits.OnesCount64(p.Hi))
	for w, word := range [2]uint64{p.Lo, p.Hi} {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}

func (p Presence) LEW() (int, bool) {
	switch {
	case p.Lo != 0:
		return bits.TrailingZeros64(p.Lo), true
	case p.Hi != 0:
		return 64 + bits.TrailingZeros64(p.Hi), true
	}
	return 0, false
}

func (p Presence) NTLEW() (int, bool) {
	return Presence{Lo: p.Lo &^ 1, Hi: p.Hi}.LEW()
}

func (p Presence) ContainsTrivialLEW() bool {
	return p.Lo&1 == 1
}

// Counted holds a path count per weight. Overflowed is sticky: once a sum
// wrapped, every distribution derived from it carries the flag.
type Counted struct {
	Counts     []uint64
	Overflowed bool
}

// TrivialCounted has one path of weight 0.
func TrivialCounted(int) Counted {
	return Counted{Counts: []uint64{1}}
}

// PathsForWeight returns the number of paths of weight w.
func (c Counted) PathsForWeight(w int) uint64 {
	if w < 0 || w >= len(c.Counts) {
		return 0
	}
	return c.Counts[w]
}

// TotalPaths sums all counts; the flag is set if the sum or any input wrapped.
func (c Counted) TotalPaths() (uint64, bool) {
	var total uint64
	overflow := c.Overflowed
	for _, n := range c.Counts {
		var carry uint64
		total, carry = bits.Add64(total, n, 0)
		overflow = overflow || carry != 0
	}
	return total, overflow
}

func (c Counted) Incremented() Counted {
	if len(c.Counts) == 0 {
		return Counted{Overflowed: c.Overflowed}
	}
	n := len(c.Counts) + 1
	overflow := c.Overflowed
	if n > MaxWeight {
		n = MaxWeight
		overflow = overflow || c.Counts[MaxWeight-1] != 0
	}
	out := make([]uint64, n)
	copy(out[1:], c.Counts)
	return Counted{Counts: out, Overflowed: overflow}
}

func (c Counted) Plus(o Counted) Counted {
	long, short := c.Counts, o.Counts
	if len(short) > len(long) {
		long, short = short, long
	}
	out := make([]uint64, len(long))
	copy(out, long)
	overflow := c.Overflowed || o.Overflowed
	for w, n := range short {
		var carry uint64
		out[w], carry = bits.Add64(out[w], n, 0)
		overflow = overflow || carry != 0
	}
	return Counted{Counts: out, Overflowed: overflow}
}

func (c Counted) Convolve(o Counted) Counted {
	overflow := c.Overflowed || o.Overflowed
	if len(c.Counts) == 0 || len(o.Counts) == 0 {
		return Counted{Overflowed: overflow}
	}
	n := len(c.Counts) + len(o.Counts) - 1
	if n > MaxWeight {
		n = MaxWeight
	}
	out := make([]uint64, n)
	for i, a := range c.Counts {
		if a == 0 {
			continue
		}
		for j, b := range o.Counts {
			if b == 0 {
				continue
			}
			if i+j >= MaxWeight {
				overflow = true
				continue
			}
			hi, lo := bits.Mul64(a, b)
			var carry uint64
			out[i+j], carry = bits.Add64(out[i+j], lo, 0)
			overflow = overflow || hi != 0 || carry != 0
		}
	}
	return Counted{Counts: out, Overflowed: overflow}
}

func (c Counted) ExistingWeights() []int {
	out := make([]int, 0, len(c.Counts))
	for w, n := range c.Counts {
		if n != 0 {
			out = append(out, w)
		}
	}
	return out
}

func (c Counted) LEW() (int, bool) {
	for w, n := range c.Counts {
		if n != 0 {
			return w, true
		}
	}
	return 0, false
}

func (c Counted) NTLEW() (int, bool) {
	for w := 1; w < len(c.Counts); w++ {
		if c.Counts[w] != 0 {
			return w, true
		}
	}
	return 0, false
}

func (c Counted) ContainsTrivialLEW() bool {
	return c.PathsForWeight(0) != 0
}

// Presence drops the counts.
func (c Counted) Presence() Presence {
	var p Presence
	for _, w := range c.ExistingWeights() {
		p = p.Plus(Presence{Lo: 1}.shift(w))
	}
	return p
}

// EndNode keeps a counted distribution per end node.
type EndNode struct {
	ByEnd map[int]Counted
}

// TrivialEndNode has one path of weight 0 ending at endID.
func TrivialEndNode(endID int) EndNode {
	return EndNode{ByEnd: map[int]Counted{endID: TrivialCounted(endID)}}
}

// Ends lists the end node IDs, ascending.
func (e EndNode) Ends() []int {
	out := make([]int, 0, len(e.ByEnd))
	for id := range e.ByEnd {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Sub returns the distribution of the paths ending at endID.
func (e EndNode) Sub(endID int) Counted {
	return e.ByEnd[endID]
}

// PathsForWeightInID counts the paths of weight w ending at endID.
func (e EndNode) PathsForWeightInID(endID, w int) uint64 {
	return e.ByEnd[endID].PathsForWeight(w)
}

// PathsForWeight counts the paths of weight w over all end nodes.
func (e EndNode) PathsForWeight(w int) uint64 {
	return e.Merged().PathsForWeight(w)
}

// Merged sums the per-end distributions.
func (e EndNode) Merged() Counted {
	var out Counted
	for _, id := range e.Ends() {
		out = out.Plus(e.ByEnd[id])
	}
	return out
}

// TotalPaths sums over every end node.
func (e EndNode) TotalPaths() (uint64, bool) {
	return e.Merged().TotalPaths()
}

func (e EndNode) Incremented() EndNode {
	if len(e.ByEnd) == 0 {
		return e
	}
	out := make(map[int]Counted, len(e.ByEnd))
	for id, c := range e.ByEnd {
		out[id] = c.Incremented()
	}
	return EndNode{ByEnd: out}
}

func (e EndNode) Plus(o EndNode) EndNode {
	out := make(map[int]Counted, len(e.ByEnd)+len(o.ByEnd))
	for id, c := range e.ByEnd {
		out[id] = c
	}
	for id, c := range o.ByEnd {
		if prev, ok := out[id]; ok {
			out[id] = prev.Plus(c)
		} else {
			out[id] = c
		}
	}
	return EndNode{ByEnd: out}
}

func (e EndNode) ExistingWeights() []int {
	return e.Merged().ExistingWeights()
}

func (e EndNode) LEW() (int, bool) {
	return e.Merged().LEW()
}

func (e EndNode) NTLEW() (int, bool) {
	return e.Merged().NTLEW()
}

func (e EndNode) ContainsTrivialLEW() bool {
	for _, c := range e.ByEnd {
		if c.ContainsTrivialLEW() {
			return true
		}
	}
	return false
}
