package crhshull

import (
	"io"

	"github.com/mahdiidarabi/crhs-hull/internal/catalog"
	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/hull"
	"github.com/mahdiidarabi/crhs-hull/internal/metrics"
	"github.com/mahdiidarabi/crhs-hull/internal/progress"
)

// Config is the full set of solver and hull-search knobs.
type Config = config.Config

// Prune variants and enumeration modes accepted by Config.
const (
	PruneV2 = config.PruneV2
	PruneV3 = config.PruneV3

	EnumTargeted     = config.EnumTargeted
	EnumSemiTargeted = config.EnumSemiTargeted
	EnumUnbounded    = config.EnumUnbounded
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// SoftLimitFromExp converts a base-2 exponent to a soft limit.
func SoftLimitFromExp(exp int) int {
	return config.SoftLimitFromExp(exp)
}

// Cipher is the view of a block cipher the search needs.
type Cipher = cipher.Cipher

// Analysis selects the base table a Cipher hands out.
type Analysis = cipher.Mode

const (
	Differential = cipher.Differential
	Linear       = cipher.Linear
)

// BaseTable is a DDT or adjusted LAT with precomputed exponents.
type BaseTable = cipher.BaseTable

// SPN is a substitution-permutation network with one S-box and a bit
// permutation.
type SPN = cipher.SPN

// NewSPN builds an SPN whose state is len(perm) bits wide. perm[i] is the
// destination of bit i.
func NewSPN(name string, rounds int, sbox []int, sboxBits int, perm []int) (*SPN, error) {
	return cipher.NewSPN(name, rounds, sbox, sboxBits, perm)
}

// NewDDT returns the difference distribution table of sbox.
func NewDDT(sbox []int, inBits, outBits int) *BaseTable {
	return cipher.NewDDT(sbox, inBits, outBits)
}

// NewLAT returns the adjusted linear approximation table of sbox.
func NewLAT(sbox []int, inBits, outBits int) *BaseTable {
	return cipher.NewLAT(sbox, inBits, outBits)
}

// LookupCipher returns a built-in cipher.
func LookupCipher(name string) (Cipher, error) {
	return cipher.Lookup(name)
}

// CipherNames lists the built-in ciphers.
func CipherNames() []string {
	return cipher.Names()
}

// Catalog is a SQLite database of finished runs.
type Catalog = catalog.Catalog

// CatalogRun is one catalog row.
type CatalogRun = catalog.Run

// OpenCatalog opens or creates the catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	return catalog.Open(path)
}

// ProgressFactory draws the progress bars of a run.
type ProgressFactory = progress.Factory

// ProgressBar is one bar of a ProgressFactory.
type ProgressBar = progress.Bar

// SilentProgress draws nothing.
func SilentProgress() ProgressFactory {
	return progress.Silent()
}

// NewProgressBars draws bars on out.
func NewProgressBars(out io.Writer) ProgressFactory {
	return progress.NewMPB(out)
}

// Hull results.
type (
	Estimate   = hull.Estimate
	Connection = hull.Connection
	Result     = hull.Result
	Pass       = hull.Pass
	Bins       = hull.Bins
	Trail      = hull.Trail
	EnumStatus = hull.EnumStatus
	Metrics    = metrics.Metrics
)

const (
	PassExtracted   = hull.PassExtracted
	PassConstructed = hull.PassConstructed

	Exhausted    = hull.Exhausted
	LimitReached = hull.LimitReached
)

// ErrOnlyTrivialHull is returned when the Master holds no non-trivial α→β
// path.
var ErrOnlyTrivialHull = hull.ErrOnlyTrivialHull
