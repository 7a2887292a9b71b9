package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fomo-labs/docproof/internal/common"
)

// Submission is one completed form: the values that went onto the artifact
// plus the proof that was issued for it.
type Submission struct {
	ID           string
	TemplateID   string
	ArtifactPath string
	Fields       map[string]string
	ProofID      string
	CreatedAt    time.Time
}

type SubmissionRepository interface {
	Insert(ctx context.Context, sub *Submission) error
	Get(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context, templateID string) ([]*Submission, error)
}

type submissionRepository struct {
	db  *DB
	now func() time.Time
}

func NewSubmissionRepository(db *DB) SubmissionRepository {
	return &submissionRepository{db: db, now: time.Now}
}

// Insert assigns the id and creation time when absent.
func (r *submissionRepository) Insert(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = r.now().UTC()
	}
	fieldsJSON, err := json.Marshal(sub.Fields)
	if err != nil {
		return common.WrapError(err, "encode submission fields")
	}

	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO form_submissions (id, template_id, artifact_path, fields_json, proof_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		sub.ID, sub.TemplateID, nullable(sub.ArtifactPath), string(fieldsJSON),
		nullable(sub.ProofID), sub.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return common.WrapError(err, "insert submission")
	}
	return nil
}

func (r *submissionRepository) Get(ctx context.Context, id string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, template_id, artifact_path, fields_json, proof_id, created_at
		 FROM form_submissions WHERE id = ?`), id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "get submission")
	}
	return sub, nil
}

// List returns submissions newest first, optionally filtered by template.
func (r *submissionRepository) List(ctx context.Context, templateID string) ([]*Submission, error) {
	query := `SELECT id, template_id, artifact_path, fields_json, proof_id, created_at
	          FROM form_submissions`
	var args []any
	if templateID != "" {
		query += ` WHERE template_id = ?`
		args = append(args, templateID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.WrapError(err, "list submissions")
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan submission")
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var sub Submission
	var artifactPath, proofID sql.NullString
	var fieldsJSON, createdAt string
	if err := row.Scan(&sub.ID, &sub.TemplateID, &artifactPath, &fieldsJSON, &proofID, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &sub.Fields); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	sub.ArtifactPath = artifactPath.String
	sub.ProofID = proofID.String
	sub.CreatedAt = t
	return &sub, nil
}
