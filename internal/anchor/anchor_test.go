package anchor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/proof"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(common.AnchorConfig{
		Endpoint:      srv.URL,
		Cluster:       "devnet",
		WalletAddress: "wallet123",
		Timeout:       5 * time.Second,
	}, nil)
}

func TestAnchorSubmits(t *testing.T) {
	var got anchorRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anchor" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(anchorResponse{Signature: "sig123"})
	}))

	receipt, err := c.Anchor(context.Background(), "hash123", "proof123")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.TxRef != "sig123" {
		t.Errorf("tx_ref = %s", receipt.TxRef)
	}
	if receipt.ExplorerLink != "https://explorer.solana.com/tx/sig123?cluster=devnet" {
		t.Errorf("explorer_link = %s", receipt.ExplorerLink)
	}
	if got.ContentHash != "hash123" || got.ProofID != "proof123" || got.WalletAddress != "wallet123" || got.Cluster != "devnet" {
		t.Errorf("request = %+v", got)
	}
}

func TestAnchorServiceError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of lamports", http.StatusServiceUnavailable)
	}))
	if _, err := c.Anchor(context.Background(), "h", "p"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnchorNoEndpoint(t *testing.T) {
	c := NewClient(common.AnchorConfig{}, nil)
	if _, err := c.Anchor(context.Background(), "h", "p"); err == nil {
		t.Fatal("expected error when endpoint unset")
	}
}

func TestConfirmed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Signature string `json:"signature"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(statusResponse{Confirmed: req.Signature == "done"})
	}))

	ok, err := c.Confirmed(context.Background(), "done")
	if err != nil || !ok {
		t.Fatalf("got (%v, %v), want confirmed", ok, err)
	}
	ok, err = c.Confirmed(context.Background(), "pending")
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want unconfirmed", ok, err)
	}
}

type workerLedger struct {
	mu   sync.Mutex
	recs map[string]*proof.Record
}

func (l *workerLedger) Insert(_ context.Context, rec *proof.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *rec
	l.recs[rec.ProofID] = &cp
	return nil
}

func (l *workerLedger) LookupByHash(context.Context, string) (*proof.Record, error) {
	return nil, common.ErrNotFound
}

func (l *workerLedger) LookupByID(_ context.Context, id string) (*proof.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.recs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

func (l *workerLedger) MarkAnchored(_ context.Context, id, txRef, link string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.recs[id]
	if !ok {
		return common.ErrNotFound
	}
	rec.Status = constants.ProofStatusAnchored
	rec.TxRef, rec.ExplorerLink, rec.AnchoredAt = txRef, link, &at
	return nil
}

func (l *workerLedger) ListUnanchored(context.Context) ([]*proof.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*proof.Record
	for _, rec := range l.recs {
		if rec.Status == constants.ProofStatusIssued {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *workerLedger) ListAll(context.Context) ([]*proof.Record, error) { return nil, nil }

func TestWorkerAnchorsPending(t *testing.T) {
	confirmed := map[string]bool{}
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/anchor":
			var req anchorRequest
			json.NewDecoder(r.Body).Decode(&req)
			sig := "sig-" + req.ProofID
			confirmed[sig] = true
			json.NewEncoder(w).Encode(anchorResponse{Signature: sig})
		case "/status":
			var req struct {
				Signature string `json:"signature"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(statusResponse{Confirmed: confirmed[req.Signature]})
		}
	}))

	ledger := &workerLedger{recs: map[string]*proof.Record{}}
	a := &proof.Record{ProofID: uuid.New().String(), ContentHash: "h1", Status: constants.ProofStatusIssued}
	b := &proof.Record{ProofID: uuid.New().String(), ContentHash: "h2", Status: constants.ProofStatusIssued, TxRef: "unconfirmed-sig"}
	ledger.Insert(context.Background(), a)
	ledger.Insert(context.Background(), b)

	w := NewWorker(ledger, c, nil)
	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("anchored = %d, want 1 (fresh submit confirms, stale tx stays pending)", n)
	}

	got, _ := ledger.LookupByID(context.Background(), a.ProofID)
	if got.Status != constants.ProofStatusAnchored || got.TxRef != "sig-"+a.ProofID {
		t.Errorf("record a = %+v", got)
	}
	if got.AnchoredAt == nil || got.ExplorerLink == "" {
		t.Errorf("record a missing anchor metadata: %+v", got)
	}

	got, _ = ledger.LookupByID(context.Background(), b.ProofID)
	if got.Status != constants.ProofStatusIssued {
		t.Errorf("record b should remain pending: %+v", got)
	}
}
