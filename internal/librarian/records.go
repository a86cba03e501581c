// Package librarian forwards structured records from the solver and the hull
// search to their sinks without blocking on I/O in the hot path.
package librarian

// Record is a structured log record. Kind names the record type in the
// trace stream.
type Record interface {
	Kind() string
}

// MasterLayoutMD describes Master after a round.
type MasterLayoutMD struct {
	Round       int    `json:"round"`
	Size        int    `json:"size"`
	Depth       int    `json:"depth"`
	Widths      []int  `json:"widths"`
	AreaStart   int    `json:"area_start"`
	AreaEnd     int    `json:"area_end"`
	Step        int    `json:"step"`
	Absorptions int    `json:"absorptions"`
	Layout      string `json:"layout"`
}

func (MasterLayoutMD) Kind() string { return "master_layout" }

// PruneRecord is one iteration of the pruning loop.
type PruneRecord struct {
	Round       int `json:"round"`
	Pos         int `json:"pos"`
	Iteration   int `json:"iteration"`
	Depth       int `json:"depth"`
	Width       int `json:"width"`
	SecondWidth int `json:"second_width"`
	Threshold   int `json:"threshold_lew"`
	Candidates  int `json:"candidates"`
	Deleted     int `json:"deleted"`
	SizeBefore  int `json:"size_before"`
	SizeAfter   int `json:"size_after"`
}

func (PruneRecord) Kind() string { return "prune" }

// PreSessEstimateMD summarises the α level before the SESS ranking.
type PreSessEstimateMD struct {
	AlphaDepth      int     `json:"alpha_depth"`
	BetaDepth       int     `json:"beta_depth"`
	AlphaWidth      int     `json:"alpha_width"`
	BetaWidth       int     `json:"beta_width"`
	AlphaLevelNTLEW int     `json:"alpha_level_nt_lew"`
	Buckets         [3]int  `json:"buckets"`
	K               float64 `json:"k"`
}

func (PreSessEstimateMD) Kind() string { return "pre_sess_estimate" }

// SessEstimate is one ranked α→β connection.
type SessEstimate struct {
	Rank              int      `json:"rank"`
	Alpha             int      `json:"alpha"`
	Beta              int      `json:"beta"`
	Log2Estimate      float64  `json:"log2_estimate"`
	Score             float64  `json:"score"`
	SubDistribution   []uint64 `json:"sub_distribution"`
	BetaSegmentWeight int      `json:"beta_segment_weight"`
	HullDistribution  []uint64 `json:"hull_distribution,omitempty"`
}

func (SessEstimate) Kind() string { return "sess_estimate" }

// ResultSection is the outcome of one aggregation pass.
type ResultSection struct {
	Pass         string         `json:"pass"`
	Mode         string         `json:"mode"`
	HullLog2P    float64        `json:"hull_log2p"`
	Bins         map[int]uint64 `json:"bins"`
	PathsTotal   uint64         `json:"paths_total"`
	PathsSkipped uint64         `json:"paths_skipped"`
	Truncated    bool           `json:"truncated"`
	Overflowed   bool           `json:"overflowed"`
	ExampleTrail string         `json:"example_trail,omitempty"`
}

func (ResultSection) Kind() string { return "result_section" }

// AlphaBetaInnerPaths records the α-path, β-path and first inner path of a
// pass as hex bit strings.
type AlphaBetaInnerPaths struct {
	Pass  string `json:"pass"`
	Alpha string `json:"alpha"`
	Inner string `json:"inner"`
	Beta  string `json:"beta"`
}

func (AlphaBetaInnerPaths) Kind() string { return "alpha_beta_inner_paths" }
