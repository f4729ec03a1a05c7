package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

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
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	format TEXT NOT NULL,
	content_text TEXT,
	extraction_warnings JSONB NOT NULL DEFAULT '[]'::jsonb,
	predicted_category TEXT,
	confidence_score DOUBLE PRECISION,
	all_scores JSONB,
	inference_seconds DOUBLE PRECISION,
	backend_key TEXT,
	backend_name TEXT,
	model_id TEXT,
	token_count INTEGER,
	chunks_processed INTEGER,
	was_chunked BOOLEAN NOT NULL DEFAULT FALSE,
	is_classified BOOLEAN NOT NULL DEFAULT FALSE,
	classified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_predicted_category ON documents(predicted_category);
CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC);
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
	warningsJSON, err := json.Marshal(warningsOrEmpty(doc.ExtractionWarnings))
	if err != nil {
		return fmt.Errorf("marshal extraction warnings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, original_filename, storage_path, file_size, format, content_text, extraction_warnings,
	is_classified, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.OriginalFilename, doc.StoragePath, doc.FileSize, string(doc.Format),
		nullString(doc.ContentText), warningsJSON, doc.IsClassified, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `
id, original_filename, storage_path, file_size, format, content_text, extraction_warnings,
predicted_category, confidence_score, all_scores, inference_seconds,
backend_key, backend_name, model_id, token_count, chunks_processed, was_chunked,
is_classified, classified_at, created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+documentColumns+` FROM documents ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRowAffected(res, "delete document", id)
}

// ApplyClassification replaces the whole classification column group in one
// statement, so a re-classification either fully applies or not at all.
func (r *DocumentRepository) ApplyClassification(ctx context.Context, id string, result domain.ClassificationResult) error {
	scoresJSON, err := json.Marshal(result.AllScores)
	if err != nil {
		return fmt.Errorf("marshal all scores: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET predicted_category = $2, confidence_score = $3, all_scores = $4, inference_seconds = $5,
	backend_key = $6, backend_name = $7, model_id = $8,
	token_count = $9, chunks_processed = $10, was_chunked = $11,
	is_classified = TRUE, classified_at = $12, updated_at = $12
WHERE id = $1
`,
		id, result.PredictedCategory, result.ConfidenceScore, scoresJSON, result.InferenceSeconds,
		result.BackendKey, result.BackendName, result.ModelID,
		result.TokenCount, result.ChunksProcessed, result.WasChunked,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("apply classification: %w", err)
	}
	return requireRowAffected(res, "apply classification", id)
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		format       string
		contentText  sql.NullString
		warningsRaw  []byte
		category     sql.NullString
		confidence   sql.NullFloat64
		scoresRaw    []byte
		inference    sql.NullFloat64
		backendKey   sql.NullString
		backendName  sql.NullString
		modelID      sql.NullString
		tokenCount   sql.NullInt64
		chunks       sql.NullInt64
		classifiedAt sql.NullTime
	)

	err := row.Scan(
		&doc.ID, &doc.OriginalFilename, &doc.StoragePath, &doc.FileSize, &format, &contentText, &warningsRaw,
		&category, &confidence, &scoresRaw, &inference,
		&backendKey, &backendName, &modelID, &tokenCount, &chunks, &doc.WasChunked,
		&doc.IsClassified, &classifiedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Format = domain.Format(format)
	doc.ContentText = contentText.String
	if len(warningsRaw) > 0 {
		if err := json.Unmarshal(warningsRaw, &doc.ExtractionWarnings); err != nil {
			return nil, fmt.Errorf("unmarshal extraction warnings: %w", err)
		}
	}
	doc.PredictedCategory = category.String
	doc.ConfidenceScore = confidence.Float64
	if len(scoresRaw) > 0 {
		if err := json.Unmarshal(scoresRaw, &doc.AllScores); err != nil {
			return nil, fmt.Errorf("unmarshal all scores: %w", err)
		}
	}
	doc.InferenceSeconds = inference.Float64
	doc.BackendKey = backendKey.String
	doc.BackendName = backendName.String
	doc.ModelID = modelID.String
	doc.TokenCount = int(tokenCount.Int64)
	doc.ChunksProcessed = int(chunks.Int64)
	if classifiedAt.Valid {
		t := classifiedAt.Time
		doc.ClassifiedAt = &t
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func warningsOrEmpty(warnings []string) []string {
	if warnings == nil {
		return []string{}
	}
	return warnings
}
