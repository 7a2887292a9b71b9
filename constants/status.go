package constants

// ProofStatus is the canonical status for rows in document_proofs.
type ProofStatus string

// Lifecycle is monotonic: ISSUED -> ANCHORED. There is no way back.
const (
	ProofStatusIssued   ProofStatus = "ISSUED"   // recorded locally, anchoring not yet confirmed
	ProofStatusAnchored ProofStatus = "ANCHORED" // anchoring transaction confirmed
)
