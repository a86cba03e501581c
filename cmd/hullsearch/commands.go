package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/crhs-hull/pkg/crhshull"
)

// options holds the flags shared by every search subcommand.
type options struct {
	limit      int
	limitExp   int
	rounds     int
	outDir     string
	inDir      string
	silent     bool
	configPath string
	catalog    string
	metrics    bool
	workers    int
	logFile    string

	logger *logrus.Entry
	logOut io.Closer
}

func (o *options) close() {
	if o.logOut != nil {
		o.logOut.Close()
	}
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	root := &cobra.Command{
		Use:   "hullsearch",
		Short: "Estimate differential and linear hulls with CRHS equations",
		Long: `hullsearch builds the CRHS equation system of a block cipher, solves it
into a single Master shard within a memory budget, ranks the α→β
connections of the result and sums the probabilities of the hull.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	searches := []struct {
		mode  crhshull.Mode
		short string
	}{
		{crhshull.ModeDifferential, "Aggregate the differential hull of the best connection"},
		{crhshull.ModeLinear, "Aggregate the linear hull of the best connection"},
		{crhshull.ModeConnections, "Rank the α→β connections of the differential Master without aggregating"},
	}
	for _, s := range searches {
		mode := s.mode
		cmd := &cobra.Command{
			Use:   string(mode) + " <cipher>",
			Short: s.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSearch(cmd, opts, mode, args[0])
			},
		}
		addSearchFlags(cmd, opts)
		root.AddCommand(cmd)
	}

	var runsCatalog string
	runsCmd := &cobra.Command{
		Use:   "runs [cipher]",
		Short: "List the runs recorded in a catalog, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipherName := ""
			if len(args) == 1 {
				cipherName = args[0]
			}
			return listRuns(cmd, runsCatalog, cipherName)
		},
	}
	runsCmd.Flags().StringVar(&runsCatalog, "catalog", "hullsearch.db", "SQLite catalog to read")
	root.AddCommand(runsCmd, newCiphersCmd())
	return root, opts
}

func addSearchFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.IntVar(&opts.limit, "limit", 0, "Soft limit on the Master size (overrides the config)")
	f.IntVar(&opts.limitExp, "limit-exp", 0, "Soft limit as a power of two (overrides --limit)")
	f.IntVar(&opts.rounds, "rounds", 0, "Number of rounds to analyse")
	f.StringVar(&opts.outDir, "out", ".", "Directory for the artefacts of the run")
	f.StringVar(&opts.inDir, "in", "", "Directory holding a solved Master to reuse")
	f.BoolVar(&opts.silent, "silent", false, "Disable logging and progress bars")
	f.StringVar(&opts.configPath, "config", "", "YAML file overriding the default configuration")
	f.StringVar(&opts.catalog, "catalog", "", "SQLite catalog to record the run in")
	f.BoolVar(&opts.metrics, "metrics", false, "Write a Prometheus textfile with the solver counters")
	f.IntVar(&opts.workers, "workers", 0, "Trail-pricing workers (0 = one per CPU)")
	f.StringVar(&opts.logFile, "log-file", "", "Write JSON logs to this file instead of stderr")
	_ = cmd.MarkFlagRequired("rounds")
}
