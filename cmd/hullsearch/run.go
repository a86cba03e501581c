package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/crhs-hull/internal/catalog"
	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/logging"
	"github.com/mahdiidarabi/crhs-hull/internal/progress"
	"github.com/mahdiidarabi/crhs-hull/pkg/crhshull"
)

func runSearch(cmd *cobra.Command, opts *options, mode crhshull.Mode, cipherName string) error {
	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := setupLogger(opts, cfg); err != nil {
		return err
	}

	bars := progress.Silent()
	if !opts.silent {
		bars = progress.NewMPB(cmd.ErrOrStderr())
	}
	client := crhshull.NewClient().
		WithConfig(cfg).
		WithLogger(opts.logger).
		WithProgress(bars).
		WithMetrics(opts.metrics).
		WithWorkers(opts.workers)

	if opts.catalog != "" {
		cat, err := catalog.Open(opts.catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		client = client.WithCatalog(cat)
	}

	report, err := client.Run(cmd.Context(), crhshull.Request{
		Cipher: cipherName,
		Mode:   mode,
		Rounds: opts.rounds,
		OutDir: opts.outDir,
		InDir:  opts.inDir,
		RunID:  uuid.NewString(),
	})
	bars.Wait()
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// buildConfig loads --config and applies the limit flags over it.
func buildConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("limit") {
		cfg.SoftLimit = opts.limit
	}
	if cmd.Flags().Changed("limit-exp") {
		cfg.SoftLimit = config.SoftLimitFromExp(opts.limitExp)
	}
	if opts.rounds < 2 {
		return cfg, fmt.Errorf("--rounds must be at least 2, got %d", opts.rounds)
	}
	return cfg, cfg.Validate()
}

// setupLogger sets opts.logger. A log file stays open until opts.close.
func setupLogger(opts *options, cfg config.Config) error {
	switch {
	case opts.silent:
		opts.logger = logging.Discard()
	case opts.logFile == "":
		opts.logger = logging.NewLogger(logging.Options{Level: cfg.LogLevel})
	default:
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("unable to log to file: %w", err)
		}
		opts.logger = logging.NewLogger(logging.Options{Level: cfg.LogLevel, JSON: true, Out: f})
		opts.logOut = f
	}
	return nil
}

func printReport(w io.Writer, r *crhshull.Report) {
	fmt.Fprintf(w, "\n[+] %s, %d rounds, %s (run %s)\n", r.Cipher, r.Rounds, r.Mode, r.RunID)
	fmt.Fprintf(w, "    Master size: %d", r.MasterSize)
	if r.Reused {
		fmt.Fprint(w, " (reused)")
	}
	fmt.Fprintln(w)
	if len(r.Estimate.Connections) > 0 {
		best := r.Estimate.Best()
		fmt.Fprintf(w, "    Connections: %d, best α %d → β %d, estimate 2^%.2f\n",
			len(r.Estimate.Connections), best.AlphaID, best.BetaID, best.Log2Estimate)
	}
	for _, res := range r.Results {
		if !res.Found {
			fmt.Fprintf(w, "    %s: no trail found\n", res.Pass)
			continue
		}
		fmt.Fprintf(w, "    %s: hull weight %.4f over %d paths (%s)\n", res.Pass, res.HullLog2P, res.Bins.Total, res.Status)
	}
	fmt.Fprintf(w, "    Results: %s\n", r.Files.Results)
}

func listRuns(cmd *cobra.Command, path, cipherName string) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer cat.Close()
	runs, err := cat.List(cmd.Context(), cipherName)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-12s r%-3d lim %-8d size %-8d conn %-5d", r.FinishedAt.Format("2006-01-02 15:04:05"),
			r.ID, r.Cipher+"/"+r.Mode, r.Rounds, r.SoftLimit, r.MasterSize, r.Connections)
		if r.ExtractedLog2.Valid {
			fmt.Fprintf(w, " extracted %.4f", r.ExtractedLog2.Float64)
		}
		if r.ConstructedLog2.Valid {
			fmt.Fprintf(w, " constructed %.4f", r.ConstructedLog2.Float64)
		}
		if r.Truncated {
			fmt.Fprint(w, " truncated")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func newCiphersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ciphers",
		Short: "List the built-in ciphers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range cipher.Names() {
				c, err := cipher.Lookup(name)
				if err != nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s block %d, %d rounds\n", name, c.BlockSize(0), c.NrOfRounds())
			}
		},
	}
}
