package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/proof"
	"github.com/fomo-labs/docproof/internal/repository"
)

type fakeLedger struct {
	recs []*proof.Record
}

func (f *fakeLedger) Insert(context.Context, *proof.Record) error { return nil }
func (f *fakeLedger) LookupByHash(context.Context, string) (*proof.Record, error) {
	return nil, common.ErrNotFound
}
func (f *fakeLedger) LookupByID(context.Context, string) (*proof.Record, error) {
	return nil, common.ErrNotFound
}
func (f *fakeLedger) MarkAnchored(context.Context, string, string, string, time.Time) error {
	return nil
}
func (f *fakeLedger) ListUnanchored(context.Context) ([]*proof.Record, error) { return nil, nil }
func (f *fakeLedger) ListAll(context.Context) ([]*proof.Record, error)        { return f.recs, nil }

type fakeSubmissions struct {
	subs []*repository.Submission
}

func (f *fakeSubmissions) Insert(context.Context, *repository.Submission) error { return nil }
func (f *fakeSubmissions) Get(context.Context, string) (*repository.Submission, error) {
	return nil, common.ErrNotFound
}
func (f *fakeSubmissions) List(_ context.Context, templateID string) ([]*repository.Submission, error) {
	if templateID == "" {
		return f.subs, nil
	}
	var out []*repository.Submission
	for _, s := range f.subs {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestProofsXLSX(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{recs: []*proof.Record{
		{
			ProofID:      "p1",
			ContentHash:  "hash1",
			IssuedAt:     at,
			Status:       constants.ProofStatusAnchored,
			TxRef:        "sig1",
			ExplorerLink: "https://explorer.solana.com/tx/sig1?cluster=devnet",
			AnchoredAt:   &at,
		},
		{ProofID: "p2", ContentHash: "hash2", IssuedAt: at, Status: constants.ProofStatusIssued},
	}}

	svc := NewService(ledger, &fakeSubmissions{}, nil)
	b, err := svc.ProofsXLSX(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "Proof ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "p1" || rows[1][3] != "ANCHORED" || rows[1][4] != "sig1" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][0] != "p2" || rows[2][3] != "ISSUED" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestSubmissionsXLSX(t *testing.T) {
	subs := &fakeSubmissions{subs: []*repository.Submission{
		{
			ID:         uuid.New().String(),
			TemplateID: "kyc_v1",
			Fields:     map[string]string{"name": "Jane Example", "idNumber": "123"},
			ProofID:    "p1",
			CreatedAt:  time.Now(),
		},
		{
			ID:         uuid.New().String(),
			TemplateID: "kyc_v1",
			Fields:     map[string]string{"name": "Ram Example", "address": "12 Hill Road"},
			CreatedAt:  time.Now(),
		},
	}}

	svc := NewService(&fakeLedger{}, subs, nil)
	b, err := svc.SubmissionsXLSX(context.Background(), "kyc_v1")
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	// field columns are sorted: address, idNumber, name
	want := []string{"Submission ID", "Template", "Created At", "Proof ID", "Artifact", "address", "idNumber", "name"}
	for i, h := range want {
		if rows[0][i] != h {
			t.Fatalf("header = %v, want %v", rows[0], want)
		}
	}
	if rows[1][7] != "Jane Example" || rows[2][5] != "12 Hill Road" {
		t.Errorf("rows = %v", rows[1:])
	}
}

func TestSubmissionsXLSXEmpty(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeSubmissions{}, nil)
	b, err := svc.SubmissionsXLSX(context.Background(), "none")
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
}
