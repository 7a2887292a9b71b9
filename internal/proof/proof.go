package proof

import (
	"context"
	"time"

	"github.com/fomo-labs/docproof/constants"
)

// Record is one issued proof: a minted identifier bound to the content hash
// of the exact artifact bytes it was embedded into.
type Record struct {
	ProofID       string
	ContentHash   string
	IssuedAt      time.Time
	Status        constants.ProofStatus
	TxRef         string
	ExplorerLink  string
	WalletAddress string
	AnchoredAt    *time.Time
}

// MatchKind classifies a verification outcome.
type MatchKind string

const (
	// ExactMatch: the artifact's content hash is on the ledger; the bytes
	// are identical to what was issued.
	ExactMatch MatchKind = "EXACT_MATCH"
	// FallbackMatch: the hash is unknown but the embedded proof id resolves
	// to a ledger record. The document is a registered issue whose bytes
	// were altered in transit (re-save, metadata rewrite, tampering).
	FallbackMatch MatchKind = "FALLBACK_MATCH"
	// NoMatch: neither hash nor embedded id resolves.
	NoMatch MatchKind = "NO_MATCH"
)

// VerificationResult carries the classification and, for the two positive
// kinds, the ledger record it resolved to.
type VerificationResult struct {
	Kind   MatchKind
	Record *Record
}

// Ledger is the persistence contract for proof records. Implementations
// must enforce content-hash uniqueness, surface duplicate inserts as
// common.ErrIntegrityViolation, and report missing rows from the Lookup
// methods as common.ErrNotFound.
type Ledger interface {
	Insert(ctx context.Context, rec *Record) error
	LookupByHash(ctx context.Context, contentHash string) (*Record, error)
	LookupByID(ctx context.Context, proofID string) (*Record, error)
	MarkAnchored(ctx context.Context, proofID, txRef, explorerLink string, at time.Time) error
	ListUnanchored(ctx context.Context) ([]*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)
}
