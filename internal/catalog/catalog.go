// Package catalog keeps one SQLite row per finished hull search.
package catalog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	goerrors "github.com/go-errors/errors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/sha3"

	"github.com/mahdiidarabi/crhs-hull/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	cipher           TEXT NOT NULL,
	mode             TEXT NOT NULL,
	rounds           INTEGER NOT NULL,
	soft_limit       INTEGER NOT NULL,
	fingerprint      TEXT NOT NULL,
	master_size      INTEGER NOT NULL,
	connections      INTEGER NOT NULL,
	extracted_log2   REAL,
	constructed_log2 REAL,
	truncated        INTEGER NOT NULL,
	finished_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_cipher ON runs (cipher, rounds, mode);
`

// Run is one catalog row. The hull weights are null for runs that stop
// after the connection table.
type Run struct {
	ID              string
	Cipher          string
	Mode            string
	Rounds          int
	SoftLimit       int
	Fingerprint     string
	MasterSize      int
	Connections     int
	ExtractedLog2   sql.NullFloat64
	ConstructedLog2 sql.NullFloat64
	Truncated       bool
	FinishedAt      time.Time
}

// Catalog is an open results database.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerrors.WrapPrefix(err, "open catalog "+path, 0)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, goerrors.WrapPrefix(err, "open catalog "+path, 0)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, goerrors.WrapPrefix(err, "create catalog schema", 0)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record inserts r, replacing a row with the same ID.
func (c *Catalog) Record(ctx context.Context, r Run) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, cipher, mode, rounds, soft_limit, fingerprint, master_size,
			connections, extracted_log2, constructed_log2, truncated, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Cipher, r.Mode, r.Rounds, r.SoftLimit, r.Fingerprint, r.MasterSize,
		r.Connections, r.ExtractedLog2, r.ConstructedLog2, r.Truncated, r.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return goerrors.WrapPrefix(err, "record run "+r.ID, 0)
	}
	return nil
}

// List returns the runs of cipher, newest first. An empty cipher lists
// every run.
func (c *Catalog) List(ctx context.Context, cipher string) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, cipher, mode, rounds, soft_limit, fingerprint, master_size, connections,
			extracted_log2, constructed_log2, truncated, finished_at
		FROM runs
		WHERE ? = '' OR cipher = ?
		ORDER BY finished_at DESC, id`, cipher, cipher)
	if err != nil {
		return nil, goerrors.WrapPrefix(err, "list runs", 0)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished string
		if err := rows.Scan(&r.ID, &r.Cipher, &r.Mode, &r.Rounds, &r.SoftLimit, &r.Fingerprint,
			&r.MasterSize, &r.Connections, &r.ExtractedLog2, &r.ConstructedLog2, &r.Truncated, &finished); err != nil {
			return nil, goerrors.WrapPrefix(err, "scan run", 0)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, goerrors.WrapPrefix(err, "parse finished_at of "+r.ID, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Fingerprint identifies the inputs a solved Master depends on, so a shard
// dump can be reused only by a run that would rebuild the same Master.
func Fingerprint(cipher, mode string, rounds int, cfg config.Config) string {
	key := fmt.Sprintf("crhs-master/v1|%s|%s|r%d|soft=%d|hard=%d|prune=%s",
		cipher, mode, rounds, cfg.SoftLimit, cfg.HardLimitExp, cfg.PruneVariant)
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
