package record

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSink snapshots entries into a table via an idempotent insert,
// generalizing the same "SETNX marker, then apply" shape RedisSink uses
// into a single statement ON CONFLICT clause: a duplicate (fq_path,
// commit_id) pair is a no-op, and a fresh commit_id for an existing
// fq_path inserts another row. Existing rows are never updated, whatever
// their engine_time.
//
// Expected schema (created by the caller, not this package; wiring a real
// *sql.DB and running this migration is left to the deployment):
//
//	CREATE TABLE ts_snapshots (
//	    fq_path      TEXT NOT NULL,
//	    commit_id    TEXT NOT NULL,
//	    engine_time  BIGINT NOT NULL,
//	    value        BYTEA NOT NULL,
//	    PRIMARY KEY (fq_path, commit_id)
//	);
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink builds a PostgresSink over an already-open db.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

const postgresUpsertSnapshot = `
INSERT INTO ts_snapshots (fq_path, commit_id, engine_time, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (fq_path, commit_id) DO NOTHING
`

func (p *PostgresSink) CommitBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record postgres: begin: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, postgresUpsertSnapshot, e.FQPath, e.CommitID, e.At, e.Encoded); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record postgres: fq_path=%s commit=%s: %w", e.FQPath, e.CommitID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record postgres: commit: %w", err)
	}
	return nil
}
