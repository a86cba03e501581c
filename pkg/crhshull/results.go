package crhshull

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/hull"
)

// writeResults renders the connection table and the hull passes of r.
func writeResults(path string, r *Report, nvar int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results: %w", err)
	}
	if err := renderResults(f, r, nvar); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	return f.Close()
}

func renderResults(w io.Writer, r *Report, nvar int) error {
	fmt.Fprintf(w, "run %s\ncipher %s, %d rounds, %s\n", r.RunID, r.Cipher, r.Rounds, r.Mode)
	fmt.Fprintf(w, "master size %d (reused: %v)\n", r.MasterSize, r.Reused)

	est := r.Estimate
	fmt.Fprintf(w, "\nalpha level: lightest non-trivial weight %d, K %.4f, buckets %v\n", est.L0, est.K, est.Buckets)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\talpha\tbeta\tlightest\tscore\tlog2 estimate\tbeta segment")
	for i, c := range est.Connections {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.6g\t%.4f\t%d\n",
			i+1, c.AlphaID, c.BetaID, c.Lightest, c.Score, c.Log2Estimate, c.BetaSegmentWeight)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, res := range r.Results {
		fmt.Fprintf(w, "\npass %s (%s, %s)\n", res.Pass, res.Mode, res.Status)
		if !res.Found {
			fmt.Fprintln(w, "  no trail with non-zero probability")
		} else {
			fmt.Fprintf(w, "  hull weight -log2 p = %.6f\n", res.HullLog2P)
		}
		fmt.Fprintf(w, "  paths %d, skipped %d, overflowed %v\n", res.Bins.Total, res.Bins.Skipped, res.Bins.Overflowed)
		if res.Best != nil {
			fmt.Fprintf(w, "  best trail %s exponent %d\n", gf2.Hex(res.Best.X, nvar), res.Best.Exponent)
			fmt.Fprintf(w, "    alpha %s inner %s beta %s\n", res.Best.Alpha.Hex(), res.Best.Inner.Hex(), res.Best.Beta.Hex())
		}
		writeBins(w, res.Bins)
	}
	return nil
}

func writeBins(w io.Writer, b hull.Bins) {
	for _, e := range b.Exponents() {
		fmt.Fprintf(w, "    %8d  %d\n", e, b.Counts[e])
	}
}
