package librarian

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func TestLibrarian_WritesTraceLines(t *testing.T) {
	var trace, prune bytes.Buffer
	lib := New(Options{Trace: &trace, Prune: &prune, RunID: "run-1", Buffer: 1})

	lib.Log(MasterLayoutMD{Round: 0, Size: 12, Depth: 8})
	lib.Log(PruneRecord{Round: 1, Pos: 2, Iteration: 0, Depth: 5, Width: 9, Deleted: 3, SizeBefore: 40, SizeAfter: 31})
	lib.Log(SessEstimate{Alpha: 4, Beta: 9, SubDistribution: []uint64{0, 0, 3}})
	require.NoError(t, lib.Close())

	var kinds []string
	sc := bufio.NewScanner(&trace)
	for sc.Scan() {
		var line struct {
			Run    string                 `json:"run"`
			Kind   string                 `json:"kind"`
			Record map[string]interface{} `json:"record"`
		}
		require.NoError(t, sonnet.Unmarshal(sc.Bytes(), &line))
		assert.Equal(t, "run-1", line.Run)
		assert.NotEmpty(t, line.Record)
		kinds = append(kinds, line.Kind)
	}
	assert.Equal(t, []string{"master_layout", "prune", "sess_estimate"}, kinds)

	lines := strings.Split(strings.TrimSpace(prune.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "deleted 3, size 40 -> 31")
}

func TestLibrarian_NilDropsRecords(t *testing.T) {
	var lib *Librarian
	lib.Log(PruneRecord{})
	assert.NoError(t, lib.Close())
}

func TestLibrarian_CloseTwice(t *testing.T) {
	lib := New(Options{})
	lib.Log(ResultSection{Pass: "extracted"})
	require.NoError(t, lib.Close())
	assert.NoError(t, lib.Close())
}
