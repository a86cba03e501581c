// Package crhshull searches differential and linear hulls of SPN block
// ciphers with compressed right-hand side (CRHS) equations.
//
// A run joins the S-box shards of every round into one Master shard,
// absorbing linear dependencies as they appear and pruning the widest
// levels whenever Master outgrows its budget. The solved Master is ranked
// for its most promising α→β connection, and the inner paths of that
// connection are enumerated and priced to estimate the hull.
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/crhs-hull/pkg/crhshull"
//
//	// Create a client with default settings
//	client := crhshull.NewClient()
//
//	report, err := client.Run(ctx, crhshull.Request{
//	    Cipher: "present",
//	    Mode:   crhshull.ModeDifferential,
//	    Rounds: 4,
//	    OutDir: "out",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("hull weight: %.2f\n", report.Results[0].HullLog2P)
//
// # Customization
//
// The memory budget and the aggregation knobs live in Config; any subset
// may be loaded from YAML with LoadConfig:
//
//	cfg := crhshull.DefaultConfig()
//	cfg.SoftLimit = crhshull.SoftLimitFromExp(20)
//	cfg.PruneVariant = crhshull.PruneV2
//
//	client := crhshull.NewClient().
//	    WithConfig(cfg).
//	    WithWorkers(8).
//	    WithMetrics(true)
//
// # Reusing a Master
//
// Every run dumps its solved Master with a fingerprint of the settings it
// depends on. A later run given the same directory as Request.InDir loads
// that Master instead of solving again, as long as the fingerprints match:
//
//	report, err := client.Run(ctx, crhshull.Request{
//	    Cipher: "present",
//	    Mode:   crhshull.ModeConnections,
//	    Rounds: 4,
//	    OutDir: "out",
//	    InDir:  "out",
//	})
//
// # Custom Ciphers
//
// Implement Cipher, or build an SPN with NewSPN, and pass it with
// WithCipher:
//
//	toy, _ := crhshull.NewSPN("toy8", 6, sbox, 4, perm)
//	client := crhshull.NewClient().WithCipher(toy)
package crhshull
