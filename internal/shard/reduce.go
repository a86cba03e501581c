package shard

// Reduce restores the shard invariants after a local rewrite: dead ends are
// removed bottom-up, orphans top-down, and isomorphic nodes merged bottom-up.
// Levels strictly below fromDepth+1 are assumed reduced already; pass
// Depth()-1 for a full pass. Reduce is idempotent on a reduced shard.
func (s *Shard) Reduce(fromDepth int) error {
	if fromDepth > s.Depth()-1 {
		fromDepth = s.Depth() - 1
	}
	if fromDepth < 0 {
		return nil
	}
	if err := s.removeDeadEnds(fromDepth); err != nil {
		return err
	}
	s.removeOrphans()
	s.mergeIsomorphic(fromDepth)
	return nil
}

func (s *Shard) removeDeadEnds(from int) error {
	for d := from; d >= 0; d-- {
		lvl := s.Levels[d]
		keep := make([]bool, len(lvl.Nodes))
		dropped := false
		for i, n := range lvl.Nodes {
			keep[i] = !n.IsDeadEnd()
			dropped = dropped || !keep[i]
		}
		if !dropped {
			continue
		}
		if d == 0 {
			return newError(KindEmptyShard, "reduce", 0, "source has no path to sink")
		}
		s.compact(d, keep)
	}
	return nil
}

func (s *Shard) removeOrphans() {
	for d := 1; d <= s.Depth(); d++ {
		referenced := make([]bool, len(s.Levels[d].Nodes))
		for _, n := range s.Levels[d-1].Nodes {
			for _, e := range n.Edges {
				if e != None {
					referenced[e] = true
				}
			}
		}
		s.compact(d, referenced)
	}
}

func (s *Shard) mergeIsomorphic(from int) {
	for d := from; d >= 1; d-- {
		lvl := s.Levels[d]
		seen := make(map[[2]int32]int32, len(lvl.Nodes))
		remap := make([]int32, len(lvl.Nodes))
		nodes := lvl.Nodes[:0:0]
		merged := false
		for i, n := range lvl.Nodes {
			if j, ok := seen[n.Edges]; ok {
				remap[i] = j
				merged = true
				continue
			}
			idx := int32(len(nodes))
			seen[n.Edges] = idx
			remap[i] = idx
			nodes = append(nodes, n)
		}
		if !merged {
			continue
		}
		lvl.Nodes = nodes
		s.remapParents(d, remap)
	}
}

// compact drops the nodes of depth d whose keep flag is false. Parent edges
// into dropped nodes become absent.
func (s *Shard) compact(d int, keep []bool) {
	lvl := s.Levels[d]
	remap := make([]int32, len(lvl.Nodes))
	nodes := make([]Node, 0, len(lvl.Nodes))
	changed := false
	for i, n := range lvl.Nodes {
		if !keep[i] {
			remap[i] = None
			changed = true
			continue
		}
		remap[i] = int32(len(nodes))
		nodes = append(nodes, n)
	}
	if !changed {
		return
	}
	lvl.Nodes = nodes
	s.remapParents(d, remap)
}

func (s *Shard) remapParents(d int, remap []int32) {
	if d == 0 {
		return
	}
	parents := s.Levels[d-1].Nodes
	for i := range parents {
		for b, e := range parents[i].Edges {
			if e != None {
				parents[i].Edges[b] = remap[e]
			}
		}
	}
}

// IsReduced reports whether the shard satisfies all structural invariants:
// no dead ends, no orphans and no isomorphic nodes on any level.
func (s *Shard) IsReduced() bool {
	if len(s.Levels[0].Nodes) != 1 || len(s.Levels[s.Depth()].Nodes) != 1 {
		return false
	}
	for d := 0; d <= s.Depth(); d++ {
		lvl := s.Levels[d]
		seen := make(map[[2]int32]bool, len(lvl.Nodes))
		for _, n := range lvl.Nodes {
			if d < s.Depth() && n.IsDeadEnd() {
				return false
			}
			if seen[n.Edges] {
				return false
			}
			seen[n.Edges] = true
		}
		if d == 0 {
			continue
		}
		referenced := make([]bool, len(lvl.Nodes))
		for _, p := range s.Levels[d-1].Nodes {
			for _, e := range p.Edges {
				if e != None {
					referenced[e] = true
				}
			}
		}
		for _, r := range referenced {
			if !r {
				return false
			}
		}
	}
	return true
}
