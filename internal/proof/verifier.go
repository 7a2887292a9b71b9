package proof

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fomo-labs/docproof/internal/common"
)

// MetadataReader extracts the embedded proof id from artifact bytes.
// Returning an error means the artifact carries no readable id; the
// verifier treats that as "no embedded id", not as a failure.
type MetadataReader func(artifact []byte) (string, error)

// Verifier resolves artifact bytes against the ledger.
type Verifier struct {
	ledger   Ledger
	readMeta MetadataReader
	log      *slog.Logger
}

func NewVerifier(ledger Ledger, readMeta MetadataReader, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{ledger: ledger, readMeta: readMeta, log: logger}
}

// Verify classifies an artifact in two tiers. Tier one hashes the exact
// bytes and looks the hash up; a hit is ExactMatch. Tier two reads the
// embedded proof id and looks that up; a hit is FallbackMatch, meaning the
// document descends from a registered issue but its bytes were altered.
// Otherwise NoMatch. Ledger unavailability is an error, never NoMatch:
// "we could not check" must stay distinguishable from "we checked and it
// is not there".
func (v *Verifier) Verify(ctx context.Context, artifact []byte) (*VerificationResult, error) {
	hash := ContentHash(artifact)

	rec, err := v.ledger.LookupByHash(ctx, hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		v.log.Error("proof.verify.ledger_error", "content_hash", hash, "error", err)
		return nil, common.NewAppError("LEDGER_LOOKUP", "ledger lookup failed", common.ErrLedgerUnavailable)
	}
	if rec != nil {
		v.log.Info("proof.verify.exact_match", "proof_id", rec.ProofID, "content_hash", hash)
		return &VerificationResult{Kind: ExactMatch, Record: rec}, nil
	}

	proofID, err := v.readMeta(artifact)
	if err != nil || proofID == "" {
		v.log.Info("proof.verify.no_match", "content_hash", hash, "metadata_error", err)
		return &VerificationResult{Kind: NoMatch}, nil
	}

	rec, err = v.ledger.LookupByID(ctx, proofID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		v.log.Error("proof.verify.ledger_error", "proof_id", proofID, "error", err)
		return nil, common.NewAppError("LEDGER_LOOKUP", "ledger lookup failed", common.ErrLedgerUnavailable)
	}
	if rec != nil {
		v.log.Info("proof.verify.fallback_match", "proof_id", rec.ProofID, "content_hash", hash)
		return &VerificationResult{Kind: FallbackMatch, Record: rec}, nil
	}

	v.log.Info("proof.verify.no_match", "content_hash", hash, "orphan_proof_id", proofID)
	return &VerificationResult{Kind: NoMatch}, nil
}

// VerifyHash resolves a bare content hash, for callers who hold a hash but
// not the artifact. Only exact matches are possible on this path.
func (v *Verifier) VerifyHash(ctx context.Context, hash string) (*VerificationResult, error) {
	normalized := NormalizeHash(hash)
	if normalized == "" {
		return nil, common.NewAppError("BAD_HASH", "not a sha-256 hex digest", common.ErrInvalidInput)
	}

	rec, err := v.ledger.LookupByHash(ctx, normalized)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &VerificationResult{Kind: NoMatch}, nil
		}
		return nil, common.NewAppError("LEDGER_LOOKUP", "ledger lookup failed", common.ErrLedgerUnavailable)
	}
	return &VerificationResult{Kind: ExactMatch, Record: rec}, nil
}
