package anchor

import (
	"context"
	"log/slog"
	"time"

	"github.com/fomo-labs/docproof/internal/proof"
)

// Worker reconciles issued-but-unanchored proofs against the anchoring
// service. It is idempotent and safe to run repeatedly; proofs whose
// transactions have not confirmed yet are simply picked up next round.
type Worker struct {
	ledger proof.Ledger
	client *Client
	log    *slog.Logger
}

func NewWorker(ledger proof.Ledger, client *Client, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{ledger: ledger, client: client, log: logger}
}

// RunOnce walks unanchored proofs. Records without a transaction reference
// are submitted; records with one are checked for confirmation and marked
// anchored when finalized. Per-record failures are logged and skipped so
// one bad record never starves the rest.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	recs, err := w.ledger.ListUnanchored(ctx)
	if err != nil {
		return 0, err
	}

	anchored := 0
	for _, rec := range recs {
		select {
		case <-ctx.Done():
			return anchored, ctx.Err()
		default:
		}

		txRef := rec.TxRef
		if txRef == "" {
			receipt, err := w.client.Anchor(ctx, rec.ContentHash, rec.ProofID)
			if err != nil {
				w.log.Warn("anchor.worker.submit_failed", "proof_id", rec.ProofID, "error", err)
				continue
			}
			txRef = receipt.TxRef
		}

		ok, err := w.client.Confirmed(ctx, txRef)
		if err != nil {
			w.log.Warn("anchor.worker.status_failed", "proof_id", rec.ProofID, "tx_ref", txRef, "error", err)
			continue
		}
		if !ok {
			w.log.Debug("anchor.worker.pending", "proof_id", rec.ProofID, "tx_ref", txRef)
			continue
		}

		link := ExplorerLink(txRef, w.client.cfg.Cluster)
		if err := w.ledger.MarkAnchored(ctx, rec.ProofID, txRef, link, time.Now().UTC()); err != nil {
			w.log.Warn("anchor.worker.mark_failed", "proof_id", rec.ProofID, "error", err)
			continue
		}
		anchored++
	}

	w.log.Info("anchor.worker.done", "scanned", len(recs), "anchored", anchored)
	return anchored, nil
}
