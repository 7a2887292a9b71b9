package proof

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/internal/common"
)

type memLedger struct {
	mu     sync.Mutex
	byID   map[string]*Record
	byHash map[string]*Record
	fail   error
}

func newMemLedger() *memLedger {
	return &memLedger{byID: map[string]*Record{}, byHash: map[string]*Record{}}
}

func (m *memLedger) Insert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.byHash[rec.ContentHash]; ok {
		return common.NewAppError("DUP_HASH", "content hash already issued", common.ErrIntegrityViolation)
	}
	cp := *rec
	m.byID[rec.ProofID] = &cp
	m.byHash[rec.ContentHash] = &cp
	return nil
}

func (m *memLedger) LookupByHash(_ context.Context, hash string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	rec, ok := m.byHash[hash]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memLedger) LookupByID(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	rec, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memLedger) MarkAnchored(_ context.Context, id, txRef, link string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	rec.TxRef, rec.ExplorerLink, rec.AnchoredAt = txRef, link, &at
	return nil
}

func (m *memLedger) ListUnanchored(_ context.Context) ([]*Record, error) { return nil, nil }
func (m *memLedger) ListAll(_ context.Context) ([]*Record, error)       { return nil, nil }

// stampWith embeds the proof id into deterministic fake artifact bytes the
// way a real generator embeds it into document metadata.
func stampWith(body string) StampFunc {
	return func(_ context.Context, proofID string) ([]byte, error) {
		return []byte(fmt.Sprintf("%%FAKE\n%s\nproof:%s\n", body, proofID)), nil
	}
}

// readFakeMeta parses the proof id back out of stampWith artifacts.
func readFakeMeta(artifact []byte) (string, error) {
	for _, line := range strings.Split(string(artifact), "\n") {
		if id, ok := strings.CutPrefix(line, "proof:"); ok {
			return id, nil
		}
	}
	return "", errors.New("no embedded id")
}

func TestIssueBindsIDToHash(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "wallet123", nil)

	rec, artifact, err := issuer.Issue(context.Background(), stampWith("doc"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.ContentHash != ContentHash(artifact) {
		t.Error("record hash does not cover the stamped bytes")
	}
	if _, err := uuid.Parse(rec.ProofID); err != nil {
		t.Errorf("proof id %q is not a uuid", rec.ProofID)
	}
	if !strings.Contains(string(artifact), rec.ProofID) {
		t.Error("proof id not embedded in artifact")
	}
	if rec.Status != "ISSUED" || rec.WalletAddress != "wallet123" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestIssueStampFailure(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "", nil)

	_, _, err := issuer.Issue(context.Background(), StampFunc(
		func(context.Context, string) ([]byte, error) { return nil, errors.New("render failed") },
	))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ledger.byID) != 0 {
		t.Error("failed stamp must not leave a ledger record")
	}
}

func TestIssueBytesDuplicateHash(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "", nil)
	artifact := []byte("same bytes twice")

	if _, err := issuer.IssueBytes(context.Background(), artifact); err != nil {
		t.Fatal(err)
	}
	_, err := issuer.IssueBytes(context.Background(), artifact)
	if !errors.Is(err, common.ErrIntegrityViolation) {
		t.Fatalf("err = %v, want ErrIntegrityViolation", err)
	}
}

func TestVerifyExactMatch(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "", nil)
	rec, artifact, err := issuer.Issue(context.Background(), stampWith("doc"))
	if err != nil {
		t.Fatal(err)
	}

	v := NewVerifier(ledger, readFakeMeta, nil)
	res, err := v.Verify(context.Background(), artifact)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ExactMatch {
		t.Fatalf("kind = %s, want ExactMatch", res.Kind)
	}
	if res.Record.ProofID != rec.ProofID {
		t.Error("wrong record resolved")
	}
}

func TestVerifyFallbackMatch(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "", nil)
	rec, artifact, err := issuer.Issue(context.Background(), stampWith("doc"))
	if err != nil {
		t.Fatal(err)
	}

	// altered bytes, same embedded id: a re-saved or tampered copy
	altered := append([]byte("PREFIX"), artifact...)

	v := NewVerifier(ledger, readFakeMeta, nil)
	res, err := v.Verify(context.Background(), altered)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != FallbackMatch {
		t.Fatalf("kind = %s, want FallbackMatch", res.Kind)
	}
	if res.Record.ProofID != rec.ProofID {
		t.Error("wrong record resolved")
	}
}

func TestVerifyNoMatch(t *testing.T) {
	v := NewVerifier(newMemLedger(), readFakeMeta, nil)

	res, err := v.Verify(context.Background(), []byte("never issued, no metadata"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoMatch || res.Record != nil {
		t.Fatalf("result = %+v, want bare NoMatch", res)
	}
}

func TestVerifyOrphanEmbeddedID(t *testing.T) {
	v := NewVerifier(newMemLedger(), readFakeMeta, nil)

	// carries a well-formed id that no ledger row backs
	res, err := v.Verify(context.Background(), []byte("proof:"+uuid.New().String()+"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoMatch {
		t.Fatalf("kind = %s, want NoMatch", res.Kind)
	}
}

func TestVerifyLedgerUnavailable(t *testing.T) {
	ledger := newMemLedger()
	ledger.fail = errors.New("connection refused")
	v := NewVerifier(ledger, readFakeMeta, nil)

	_, err := v.Verify(context.Background(), []byte("anything"))
	if !errors.Is(err, common.ErrLedgerUnavailable) {
		t.Fatalf("err = %v, want ErrLedgerUnavailable (never NoMatch)", err)
	}
}

func TestVerifyHash(t *testing.T) {
	ledger := newMemLedger()
	issuer := NewIssuer(ledger, "", nil)
	rec, err := issuer.IssueBytes(context.Background(), []byte("raw artifact"))
	if err != nil {
		t.Fatal(err)
	}

	v := NewVerifier(ledger, readFakeMeta, nil)

	res, err := v.VerifyHash(context.Background(), strings.ToUpper(rec.ContentHash))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ExactMatch {
		t.Fatalf("kind = %s, want ExactMatch for case-insensitive hash", res.Kind)
	}

	res, err = v.VerifyHash(context.Background(), ContentHash([]byte("other")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoMatch {
		t.Fatalf("kind = %s, want NoMatch", res.Kind)
	}

	if _, err := v.VerifyHash(context.Background(), "zz-not-a-hash"); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNormalizeHash(t *testing.T) {
	h := ContentHash([]byte("x"))
	if NormalizeHash("  "+strings.ToUpper(h)+" ") != h {
		t.Error("normalize should trim and lowercase")
	}
	if NormalizeHash(h[:10]) != "" {
		t.Error("short input should be rejected")
	}
	if NormalizeHash(strings.Repeat("g", 64)) != "" {
		t.Error("non-hex input should be rejected")
	}
}
