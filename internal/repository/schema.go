package repository

import (
	"context"

	"github.com/fomo-labs/docproof/internal/common"
)

// Schema is portable across sqlite and postgres: TEXT primary keys,
// TIMESTAMP columns, no driver-specific types. Timestamps are stored as
// RFC 3339 UTC strings written by the repositories themselves.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_cache (
		fingerprint TEXT NOT NULL,
		engine      TEXT NOT NULL,
		result      TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		ttl_seconds INTEGER NOT NULL,
		PRIMARY KEY (fingerprint, engine)
	)`,
	`CREATE TABLE IF NOT EXISTS document_proofs (
		proof_id       TEXT PRIMARY KEY,
		content_hash   TEXT NOT NULL UNIQUE,
		issued_at      TEXT NOT NULL,
		status         TEXT NOT NULL,
		tx_ref         TEXT,
		explorer_link  TEXT,
		wallet_address TEXT,
		anchored_at    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_proofs_status ON document_proofs (status)`,
	`CREATE TABLE IF NOT EXISTS form_submissions (
		id            TEXT PRIMARY KEY,
		template_id   TEXT NOT NULL,
		artifact_path TEXT,
		fields_json   TEXT NOT NULL,
		proof_id      TEXT,
		created_at    TEXT NOT NULL
	)`,
}

// Migrate applies the schema idempotently.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return common.WrapError(err, "apply schema")
		}
	}
	d.log.Info("db.migrate.ok", "statements", len(schema))
	return nil
}
