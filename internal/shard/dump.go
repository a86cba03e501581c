package shard

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
)

// Dump writes sys in the newline-free shard dump format:
//
//	nvar;nshards;[shard|shard|...]
//
// A shard is its level records joined by ';', top-most first, and a level
// record is (lhs,[(id;e0,e1);...]). The LHS is written in gf2 hex. Children
// are named by node ID: the sink is 0 and an absent edge is "-". The sink
// level carries no record, so a shard of depth 0 is the empty string.
func Dump(w io.Writer, sys *System) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d;%d;[", sys.NVar(), len(sys.Shards))
	sys.Each(func(i int, s *Shard) bool {
		if i > 0 {
			bw.WriteByte('|')
		}
		writeShard(bw, s)
		return true
	})
	bw.WriteByte(']')
	return bw.Flush()
}

// DumpShard is Dump for a single-shard system.
func DumpShard(w io.Writer, s *Shard) error {
	sys := NewSystem(s.NVar())
	sys.Shards = []*Shard{s}
	return Dump(w, sys)
}

func writeShard(bw *bufio.Writer, s *Shard) {
	for d := 0; d < s.Depth(); d++ {
		if d > 0 {
			bw.WriteByte(';')
		}
		lvl := s.Levels[d]
		next := s.Levels[d+1]
		fmt.Fprintf(bw, "(%s,[", gf2.Hex(lvl.LHS, s.nvar))
		for i, n := range lvl.Nodes {
			if i > 0 {
				bw.WriteByte(';')
			}
			fmt.Fprintf(bw, "(%d;%s,%s)", n.ID, childID(next, n.Edges[0]), childID(next, n.Edges[1]))
		}
		bw.WriteString("])")
	}
}

func childID(next *Level, e int32) string {
	if e == None {
		return "-"
	}
	return strconv.Itoa(next.Nodes[e].ID)
}

// Parse reads a dump written by Dump. Node IDs are preserved.
func Parse(r io.Reader) (*System, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	p := &dumpParser{src: strings.TrimSpace(string(raw))}
	return p.system()
}

type dumpParser struct {
	src string
	pos int
}

func (p *dumpParser) fail(format string, args ...interface{}) error {
	return newError(KindMalformedDump, "parse", 0, "offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *dumpParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *dumpParser) expect(c byte) error {
	if p.peek() != c {
		return p.fail("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *dumpParser) token() string {
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte(";,()[]|", p.src[p.pos]) < 0 {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *dumpParser) number() (int, error) {
	tok := p.token()
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, p.fail("expected integer, found %q", tok)
	}
	return n, nil
}

func (p *dumpParser) system() (*System, error) {
	nvar, err := p.number()
	if err != nil {
		return nil, err
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	nshards, err := p.number()
	if err != nil {
		return nil, err
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	if err := p.expect('['); err != nil {
		return nil, err
	}
	sys := NewSystem(nvar)
	for nshards > 0 {
		s, err := p.shard(nvar)
		if err != nil {
			return nil, err
		}
		sys.Shards = append(sys.Shards, s)
		if p.peek() != '|' {
			break
		}
		p.pos++
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, p.fail("trailing data")
	}
	if len(sys.Shards) != nshards {
		return nil, p.fail("header announces %d shards, found %d", nshards, len(sys.Shards))
	}
	return sys, nil
}

type rawNode struct {
	id     int
	e0, e1 string
}

func (p *dumpParser) shard(nvar int) (*Shard, error) {
	var lhs []string
	var levels [][]rawNode
	for p.peek() == '(' {
		l, nodes, err := p.level()
		if err != nil {
			return nil, err
		}
		lhs = append(lhs, l)
		levels = append(levels, nodes)
		if p.peek() != ';' {
			break
		}
		p.pos++
		if p.peek() != '(' {
			return nil, p.fail("expected level record after ';'")
		}
	}
	return p.build(nvar, lhs, levels)
}

func (p *dumpParser) level() (string, []rawNode, error) {
	if err := p.expect('('); err != nil {
		return "", nil, err
	}
	l := p.token()
	if err := p.expect(','); err != nil {
		return "", nil, err
	}
	if err := p.expect('['); err != nil {
		return "", nil, err
	}
	var nodes []rawNode
	for p.peek() != ']' {
		if len(nodes) > 0 {
			if err := p.expect(';'); err != nil {
				return "", nil, err
			}
		}
		n, err := p.node()
		if err != nil {
			return "", nil, err
		}
		nodes = append(nodes, n)
	}
	p.pos++
	if err := p.expect(')'); err != nil {
		return "", nil, err
	}
	return l, nodes, nil
}

func (p *dumpParser) node() (rawNode, error) {
	var n rawNode
	if err := p.expect('('); err != nil {
		return n, err
	}
	id, err := p.number()
	if err != nil {
		return n, err
	}
	n.id = id
	if err := p.expect(';'); err != nil {
		return n, err
	}
	n.e0 = p.token()
	if err := p.expect(','); err != nil {
		return n, err
	}
	n.e1 = p.token()
	if err := p.expect(')'); err != nil {
		return n, err
	}
	return n, nil
}

func (p *dumpParser) build(nvar int, lhs []string, levels [][]rawNode) (*Shard, error) {
	s := New(nvar)
	built := make([]*Level, len(levels)+1)
	built[len(levels)] = s.Levels[0]
	maxID := SinkID

	// index maps of the level below, filled bottom-up
	below := map[int]int32{SinkID: 0}
	for d := len(levels) - 1; d >= 0; d-- {
		vec, err := gf2.ParseHex(lhs[d], nvar)
		if err != nil {
			return nil, p.fail("level %d: %v", d, err)
		}
		lvl := &Level{LHS: vec, Nodes: make([]Node, len(levels[d]))}
		current := make(map[int]int32, len(levels[d]))
		for i, rn := range levels[d] {
			if rn.id == SinkID {
				return nil, p.fail("level %d: node id %d is reserved for the sink", d, SinkID)
			}
			e0, err := resolveChild(rn.e0, below)
			if err != nil {
				return nil, p.fail("level %d node %d: %v", d, rn.id, err)
			}
			e1, err := resolveChild(rn.e1, below)
			if err != nil {
				return nil, p.fail("level %d node %d: %v", d, rn.id, err)
			}
			lvl.Nodes[i] = Node{ID: rn.id, Edges: [2]int32{e0, e1}}
			current[rn.id] = int32(i)
			if rn.id > maxID {
				maxID = rn.id
			}
		}
		built[d] = lvl
		below = current
	}
	if len(levels) > 0 && len(levels[0]) != 1 {
		return nil, p.fail("source level holds %d nodes", len(levels[0]))
	}
	s.Levels = built
	s.nextID = maxID + 1
	return s, nil
}

func resolveChild(tok string, index map[int]int32) (int32, error) {
	if tok == "-" {
		return None, nil
	}
	id, err := strconv.Atoi(tok)
	if err != nil {
		return None, fmt.Errorf("bad child %q", tok)
	}
	idx, ok := index[id]
	if !ok {
		return None, fmt.Errorf("child %d not found on next level", id)
	}
	return idx, nil
}
