package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// DocumentRepository is the pgx-backed store for documents, their pipeline
// artifacts, and the append-only audit log.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	yuki_document_id TEXT NOT NULL DEFAULT '',
	yuki_booking_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS extraction_results (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	fields JSONB NOT NULL,
	overall_confidence DOUBLE PRECISION NOT NULL,
	provider TEXT NOT NULL,
	is_current BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_results_document
	ON extraction_results(document_id) WHERE is_current;

CREATE TABLE IF NOT EXISTS validation_results (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	verdicts JSONB NOT NULL,
	passed BOOLEAN NOT NULL,
	validated_by TEXT NOT NULL,
	is_current BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_validation_results_document
	ON validation_results(document_id) WHERE is_current;

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	remote_document_id TEXT NOT NULL DEFAULT '',
	remote_booking_id TEXT NOT NULL DEFAULT '',
	success BOOLEAN NOT NULL,
	retryable BOOLEAN NOT NULL,
	error_detail TEXT NOT NULL DEFAULT '',
	is_current BOOLEAN NOT NULL DEFAULT TRUE,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_document
	ON submissions(document_id) WHERE is_current;

CREATE UNIQUE INDEX IF NOT EXISTS uniq_submissions_success
	ON submissions(document_id) WHERE success;

CREATE TABLE IF NOT EXISTS audit_log (
	document_id TEXT NOT NULL REFERENCES documents(id),
	seq BIGINT NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	actor TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (document_id, seq)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, file_size, status, error_message, yuki_document_id, yuki_booking_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, doc.FileSize,
		string(doc.Status), doc.Error, doc.YukiDocumentID, doc.YukiBookingID,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	// Seed the audit trail with the initial status.
	_, err = tx.ExecContext(ctx, `
INSERT INTO audit_log (document_id, seq, from_status, to_status, actor, detail, occurred_at)
VALUES ($1, 1, '', $2, $3, '', $4)
`, doc.ID, string(doc.Status), domain.ActorAPI, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	return nil
}

const documentColumns = `id, filename, mime_type, storage_path, file_size, status, error_message, yuki_document_id, yuki_booking_id, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.Document, error) {
	var doc domain.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &doc.FileSize,
		&status, &doc.Error, &doc.YukiDocumentID, &doc.YukiBookingID,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	if !domain.ValidStatus(doc.Status) {
		return nil, fmt.Errorf("document %s has unknown status %q", doc.ID, status)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if doc.Extraction, err = r.currentExtraction(ctx, id); err != nil {
		return nil, err
	}
	if doc.Validation, err = r.currentValidation(ctx, id); err != nil {
		return nil, err
	}
	if doc.Submission, err = r.currentSubmission(ctx, id); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, offset, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY created_at DESC
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func (r *DocumentRepository) ListBetween(ctx context.Context, from, to *time.Time) ([]domain.Document, error) {
	lo, hi := time.Time{}, time.Now().UTC().Add(24*time.Hour)
	if from != nil {
		lo = *from
	}
	if to != nil {
		hi = *to
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at ASC
`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("list documents between: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].Extraction, err = r.currentExtraction(ctx, docs[i].ID); err != nil {
			return nil, err
		}
		if docs[i].Validation, err = r.currentValidation(ctx, docs[i].ID); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// TransitionStatus performs a compare-and-swap on the document status and
// appends the audit entry in the same transaction. A swap that matches zero
// rows is resolved by re-reading the stored status: a missing row maps to
// ErrDocumentNotFound, an in-progress status to ErrConcurrencyConflict, and
// anything else to ErrInvalidStateTransition.
func (r *DocumentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actor, detail string) error {
	if !domain.CanTransition(from, to) {
		return domain.WrapError(domain.ErrInvalidStateTransition, "transition status",
			fmt.Errorf("%s -> %s", from, to))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	errMessage := ""
	if to == domain.StatusSubmitFailed || to == domain.StatusRejected {
		errMessage = detail
	}

	res, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $3, error_message = $4, updated_at = $5
WHERE id = $1 AND status = $2
`, id, string(from), string(to), errMessage, now)
	if err != nil {
		return fmt.Errorf("cas status update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cas rows affected: %w", err)
	}
	if affected == 0 {
		return r.resolveTransitionFailure(ctx, tx, id, from, to)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO audit_log (document_id, seq, from_status, to_status, actor, detail, occurred_at)
SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6
FROM audit_log
WHERE document_id = $1
`, id, string(from), string(to), actor, detail, now)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) resolveTransitionFailure(ctx context.Context, tx *sql.Tx, id string, from, to domain.DocumentStatus) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrDocumentNotFound, "transition status", fmt.Errorf("id %s", id))
	}
	if err != nil {
		return fmt.Errorf("read status after cas miss: %w", err)
	}
	if domain.IsInProgress(domain.DocumentStatus(current)) {
		return domain.WrapError(domain.ErrConcurrencyConflict, "transition status",
			fmt.Errorf("document is %s", current))
	}
	return domain.WrapError(domain.ErrInvalidStateTransition, "transition status",
		fmt.Errorf("expected %s, document is %s", from, current))
}

func (r *DocumentRepository) SaveExtraction(ctx context.Context, result *domain.ExtractionResult) error {
	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save extraction tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE extraction_results SET is_current = FALSE WHERE document_id = $1 AND is_current
`, result.DocumentID); err != nil {
		return fmt.Errorf("supersede extraction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO extraction_results (id, document_id, fields, overall_confidence, provider, is_current, created_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6)
`, result.ID, result.DocumentID, fieldsJSON, result.Overall, result.Provider, result.CreatedAt); err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save extraction tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SaveValidation(ctx context.Context, result *domain.ValidationResult) error {
	verdictsJSON, err := json.Marshal(result.Verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save validation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE validation_results SET is_current = FALSE WHERE document_id = $1 AND is_current
`, result.DocumentID); err != nil {
		return fmt.Errorf("supersede validation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO validation_results (id, document_id, verdicts, passed, validated_by, is_current, created_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6)
`, result.ID, result.DocumentID, verdictsJSON, result.Passed, result.ValidatedBy, result.CreatedAt); err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save validation tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SaveSubmission(ctx context.Context, result *domain.SubmissionResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save submission tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE submissions SET is_current = FALSE WHERE document_id = $1 AND is_current
`, result.DocumentID); err != nil {
		return fmt.Errorf("supersede submission: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO submissions (id, document_id, remote_document_id, remote_booking_id, success, retryable, error_detail, is_current, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
`, result.ID, result.DocumentID, result.RemoteDocumentID, result.RemoteBookingID,
		result.Success, result.Retryable, result.ErrorDetail, result.SubmittedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	// Remote identifiers stick to the document even across a partial failure
	// so a retry can resume at the booking step.
	if result.RemoteDocumentID != "" {
		if _, err := tx.ExecContext(ctx, `
UPDATE documents SET yuki_document_id = $2, yuki_booking_id = $3, updated_at = $4 WHERE id = $1
`, result.DocumentID, result.RemoteDocumentID, result.RemoteBookingID, time.Now().UTC()); err != nil {
			return fmt.Errorf("record remote ids: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save submission tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) LatestSuccessfulSubmission(ctx context.Context, documentID string) (*domain.SubmissionResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, remote_document_id, remote_booking_id, success, retryable, error_detail, submitted_at
FROM submissions
WHERE document_id = $1 AND success
ORDER BY submitted_at DESC
LIMIT 1
`, documentID)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	return sub, nil
}

func (r *DocumentRepository) AuditTrail(ctx context.Context, documentID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, seq, from_status, to_status, actor, detail, occurred_at
FROM audit_log
WHERE document_id = $1
ORDER BY seq ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var from, to string
		if err := rows.Scan(&e.DocumentID, &e.Seq, &from, &to, &e.Actor, &e.Detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.FromStatus = domain.DocumentStatus(from)
		e.ToStatus = domain.DocumentStatus(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (r *DocumentRepository) currentExtraction(ctx context.Context, documentID string) (*domain.ExtractionResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, fields, overall_confidence, provider, created_at
FROM extraction_results
WHERE document_id = $1 AND is_current
`, documentID)

	var res domain.ExtractionResult
	var fieldsRaw []byte
	err := row.Scan(&res.ID, &res.DocumentID, &fieldsRaw, &res.Overall, &res.Provider, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan extraction: %w", err)
	}
	if err := json.Unmarshal(fieldsRaw, &res.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &res, nil
}

func (r *DocumentRepository) currentValidation(ctx context.Context, documentID string) (*domain.ValidationResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, verdicts, passed, validated_by, created_at
FROM validation_results
WHERE document_id = $1 AND is_current
`, documentID)

	var res domain.ValidationResult
	var verdictsRaw []byte
	err := row.Scan(&res.ID, &res.DocumentID, &verdictsRaw, &res.Passed, &res.ValidatedBy, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan validation: %w", err)
	}
	if err := json.Unmarshal(verdictsRaw, &res.Verdicts); err != nil {
		return nil, fmt.Errorf("unmarshal verdicts: %w", err)
	}
	return &res, nil
}

func (r *DocumentRepository) currentSubmission(ctx context.Context, documentID string) (*domain.SubmissionResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, remote_document_id, remote_booking_id, success, retryable, error_detail, submitted_at
FROM submissions
WHERE document_id = $1 AND is_current
`, documentID)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	return sub, nil
}

func scanSubmission(row interface{ Scan(...any) error }) (*domain.SubmissionResult, error) {
	var sub domain.SubmissionResult
	err := row.Scan(
		&sub.ID, &sub.DocumentID, &sub.RemoteDocumentID, &sub.RemoteBookingID,
		&sub.Success, &sub.Retryable, &sub.ErrorDetail, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
