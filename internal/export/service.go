package export

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/proof"
	"github.com/fomo-labs/docproof/internal/repository"
)

// Service renders ledger and submission data as XLSX workbooks for
// operators and auditors.
type Service struct {
	ledger      proof.Ledger
	submissions repository.SubmissionRepository
	log         *slog.Logger
}

func NewService(ledger proof.Ledger, submissions repository.SubmissionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, submissions: submissions, log: logger}
}

var proofHeader = []string{
	"Proof ID", "Content Hash", "Issued At", "Status",
	"Tx Ref", "Explorer Link", "Wallet Address", "Anchored At",
}

// ProofsXLSX exports every ledger record, one row per proof.
func (s *Service) ProofsXLSX(ctx context.Context) ([]byte, error) {
	recs, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := writeRow(f, sheet, 1, toCells(proofHeader)); err != nil {
		return nil, err
	}
	for i, rec := range recs {
		anchoredAt := ""
		if rec.AnchoredAt != nil {
			anchoredAt = rec.AnchoredAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			rec.ProofID, rec.ContentHash, rec.IssuedAt.UTC().Format(time.RFC3339),
			string(rec.Status), rec.TxRef, rec.ExplorerLink, rec.WalletAddress, anchoredAt,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	s.log.Info("export.proofs_ok", "rows", len(recs))
	return workbookBytes(f)
}

// SubmissionsXLSX exports submissions for one template (or all templates
// when templateID is empty). Field columns are the union of field ids
// across the exported rows, sorted for a stable layout.
func (s *Service) SubmissionsXLSX(ctx context.Context, templateID string) ([]byte, error) {
	subs, err := s.submissions.List(ctx, templateID)
	if err != nil {
		return nil, err
	}

	fieldIDs := map[string]struct{}{}
	for _, sub := range subs {
		for id := range sub.Fields {
			fieldIDs[id] = struct{}{}
		}
	}
	columns := make([]string, 0, len(fieldIDs))
	for id := range fieldIDs {
		columns = append(columns, id)
	}
	sort.Strings(columns)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := append([]string{"Submission ID", "Template", "Created At", "Proof ID", "Artifact"}, columns...)
	if err := writeRow(f, sheet, 1, toCells(header)); err != nil {
		return nil, err
	}
	for i, sub := range subs {
		row := []any{
			sub.ID, sub.TemplateID, sub.CreatedAt.UTC().Format(time.RFC3339),
			sub.ProofID, sub.ArtifactPath,
		}
		for _, id := range columns {
			row = append(row, sub.Fields[id])
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	s.log.Info("export.submissions_ok", "template", templateID, "rows", len(subs))
	return workbookBytes(f)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return common.WrapError(err, "resolve cell")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return common.WrapError(err, "set cell")
		}
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, common.WrapError(err, "write workbook")
	}
	return buf.Bytes(), nil
}
