package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/proof"
)

// ledgerRepository implements proof.Ledger on SQL. Duplicate content hashes
// are detected inside a transaction before insert so the violation surfaces
// as the domain error rather than a driver-specific constraint failure.
type ledgerRepository struct {
	db  *DB
	log *slog.Logger
}

func NewLedgerRepository(db *DB) proof.Ledger {
	return &ledgerRepository{db: db, log: db.log}
}

func (r *ledgerRepository) Insert(ctx context.Context, rec *proof.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("LEDGER_TX", "begin transaction", common.ErrLedgerUnavailable)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, r.db.rebind(
		`SELECT proof_id FROM document_proofs WHERE content_hash = ?`), rec.ContentHash).Scan(&existing)
	switch {
	case err == nil:
		r.log.Warn("ledger.insert.duplicate_hash",
			"content_hash", rec.ContentHash, "existing_proof_id", existing)
		return common.NewAppError("DUP_HASH", "content hash already issued", common.ErrIntegrityViolation)
	case !errors.Is(err, sql.ErrNoRows):
		return common.NewAppError("LEDGER_READ", "check content hash", common.ErrLedgerUnavailable)
	}

	_, err = tx.ExecContext(ctx, r.db.rebind(
		`INSERT INTO document_proofs
		   (proof_id, content_hash, issued_at, status, tx_ref, explorer_link, wallet_address, anchored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ProofID, rec.ContentHash, rec.IssuedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Status), nullable(rec.TxRef), nullable(rec.ExplorerLink),
		nullable(rec.WalletAddress), nullableTime(rec.AnchoredAt))
	if err != nil {
		return common.NewAppError("LEDGER_WRITE", "insert proof", common.ErrLedgerUnavailable)
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("LEDGER_TX", "commit transaction", common.ErrLedgerUnavailable)
	}
	return nil
}

func (r *ledgerRepository) LookupByHash(ctx context.Context, contentHash string) (*proof.Record, error) {
	return r.lookup(ctx, `content_hash = ?`, contentHash)
}

func (r *ledgerRepository) LookupByID(ctx context.Context, proofID string) (*proof.Record, error) {
	return r.lookup(ctx, `proof_id = ?`, proofID)
}

func (r *ledgerRepository) lookup(ctx context.Context, where string, arg string) (*proof.Record, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT proof_id, content_hash, issued_at, status, tx_ref, explorer_link, wallet_address, anchored_at
		 FROM document_proofs WHERE `+where), arg)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.NewAppError("LEDGER_READ", "lookup proof", common.ErrLedgerUnavailable)
	}
	return rec, nil
}

func (r *ledgerRepository) MarkAnchored(ctx context.Context, proofID, txRef, explorerLink string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE document_proofs SET status = ?, tx_ref = ?, explorer_link = ?, anchored_at = ?
		 WHERE proof_id = ?`),
		string(constants.ProofStatusAnchored), txRef, explorerLink,
		at.UTC().Format(time.RFC3339Nano), proofID)
	if err != nil {
		return common.NewAppError("LEDGER_WRITE", "mark anchored", common.ErrLedgerUnavailable)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	r.log.Info("ledger.anchored", "proof_id", proofID, "tx_ref", txRef)
	return nil
}

func (r *ledgerRepository) ListUnanchored(ctx context.Context) ([]*proof.Record, error) {
	return r.list(ctx,
		`SELECT proof_id, content_hash, issued_at, status, tx_ref, explorer_link, wallet_address, anchored_at
		 FROM document_proofs WHERE status = ? ORDER BY issued_at`,
		string(constants.ProofStatusIssued))
}

func (r *ledgerRepository) ListAll(ctx context.Context) ([]*proof.Record, error) {
	return r.list(ctx,
		`SELECT proof_id, content_hash, issued_at, status, tx_ref, explorer_link, wallet_address, anchored_at
		 FROM document_proofs ORDER BY issued_at`)
}

func (r *ledgerRepository) list(ctx context.Context, query string, args ...any) ([]*proof.Record, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.NewAppError("LEDGER_READ", "list proofs", common.ErrLedgerUnavailable)
	}
	defer rows.Close()

	var recs []*proof.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, common.NewAppError("LEDGER_READ", "scan proof row", common.ErrLedgerUnavailable)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("LEDGER_READ", "iterate proofs", common.ErrLedgerUnavailable)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*proof.Record, error) {
	var rec proof.Record
	var issuedAt, status string
	var txRef, explorerLink, wallet, anchoredAt sql.NullString
	if err := row.Scan(&rec.ProofID, &rec.ContentHash, &issuedAt, &status,
		&txRef, &explorerLink, &wallet, &anchoredAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, issuedAt)
	if err != nil {
		return nil, err
	}
	rec.IssuedAt = t
	rec.Status = constants.ProofStatus(status)
	rec.TxRef = txRef.String
	rec.ExplorerLink = explorerLink.String
	rec.WalletAddress = wallet.String
	if anchoredAt.Valid && anchoredAt.String != "" {
		at, err := time.Parse(time.RFC3339Nano, anchoredAt.String)
		if err != nil {
			return nil, err
		}
		rec.AnchoredAt = &at
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
