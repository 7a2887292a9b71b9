package proof

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
)

// Stamper produces the final artifact bytes with the given proof id
// embedded. The id must be minted before the bytes exist because the
// content hash covers the embedded id itself.
type Stamper interface {
	Stamp(ctx context.Context, proofID string) ([]byte, error)
}

// StampFunc adapts a plain function to Stamper.
type StampFunc func(ctx context.Context, proofID string) ([]byte, error)

func (f StampFunc) Stamp(ctx context.Context, proofID string) ([]byte, error) {
	return f(ctx, proofID)
}

// Issuer mints proof records against a ledger.
type Issuer struct {
	ledger        Ledger
	walletAddress string
	now           func() time.Time
	log           *slog.Logger
}

func NewIssuer(ledger Ledger, walletAddress string, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		ledger:        ledger,
		walletAddress: walletAddress,
		now:           time.Now,
		log:           logger,
	}
}

// Issue mints a fresh proof id, has the stamper embed it into the artifact,
// hashes the stamped bytes and records the binding on the ledger. Returns
// the record together with the final artifact bytes. A ledger rejection
// leaves no artifact: the caller must not distribute bytes whose proof did
// not commit.
func (i *Issuer) Issue(ctx context.Context, stamper Stamper) (*Record, []byte, error) {
	proofID := uuid.New().String()

	artifact, err := stamper.Stamp(ctx, proofID)
	if err != nil {
		i.log.Error("proof.issue.stamp_failed", "proof_id", proofID, "error", err)
		return nil, nil, common.WrapError(err, "stamp artifact")
	}

	rec, err := i.record(ctx, proofID, artifact)
	if err != nil {
		return nil, nil, err
	}
	return rec, artifact, nil
}

// IssueBytes records a proof for artifact bytes that already exist and
// cannot carry an embedded id. Verification for such artifacts can only
// ever be exact-match.
func (i *Issuer) IssueBytes(ctx context.Context, artifact []byte) (*Record, error) {
	return i.record(ctx, uuid.New().String(), artifact)
}

func (i *Issuer) record(ctx context.Context, proofID string, artifact []byte) (*Record, error) {
	rec := &Record{
		ProofID:       proofID,
		ContentHash:   ContentHash(artifact),
		IssuedAt:      i.now().UTC(),
		Status:        constants.ProofStatusIssued,
		WalletAddress: i.walletAddress,
	}

	if err := i.ledger.Insert(ctx, rec); err != nil {
		i.log.Error("proof.issue.ledger_insert_failed",
			"proof_id", proofID, "content_hash", rec.ContentHash, "error", err)
		return nil, err
	}

	i.log.Info("proof.issue.ok",
		"proof_id", proofID,
		"content_hash", rec.ContentHash,
		"artifact_bytes", len(artifact),
	)
	return rec, nil
}
