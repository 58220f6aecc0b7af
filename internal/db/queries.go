package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// DefaultListLimit bounds history listings.
const DefaultListLimit = 20

const quizColumns = `id, document_id, source_kind, source_ref, title, topic, difficulty, questions, created_at`

// GetDocumentByHash retrieves a document by its content hash. It returns
// nil when no document matches.
func (db *DB) GetDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	var doc Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, file_name, file_hash, file_type, created_at
		 FROM documents WHERE file_hash = $1`,
		hash,
	).Scan(&doc.ID, &doc.FileName, &doc.FileHash, &doc.FileType, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}
	return &doc, nil
}

// CreateDocument creates a document record, or returns the existing one
// with the same hash.
func (db *DB) CreateDocument(ctx context.Context, fileName, fileHash, fileType string) (*Document, error) {
	var doc Document
	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, file_name, file_hash, file_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (file_hash) DO UPDATE SET file_name = documents.file_name
		 RETURNING id, file_name, file_hash, file_type, created_at`,
		uuid.New(), fileName, fileHash, fileType,
	).Scan(&doc.ID, &doc.FileName, &doc.FileHash, &doc.FileType, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return &doc, nil
}

// InsertQuiz stores q. A zero ID is replaced with a new one.
func (db *DB) InsertQuiz(ctx context.Context, q *Quiz) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO quizzes (id, document_id, source_kind, source_ref, title, topic, difficulty, questions, topic_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.DocumentID, q.SourceKind, q.SourceRef, q.Title, q.Topic, q.Difficulty, questions, q.TopicEmbedding,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}
	return nil
}

// ListQuizzes returns the most recent quizzes first.
func (db *DB) ListQuizzes(ctx context.Context, limit int) ([]*Quiz, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []*Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// SimilarQuizzes finds the stored quizzes whose topic is closest to
// embedding by cosine distance.
func (db *DB) SimilarQuizzes(ctx context.Context, embedding []float32, limit int) ([]*Quiz, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+quizColumns+`, topic_embedding <=> $1
		 FROM quizzes
		 WHERE topic_embedding IS NOT NULL
		 ORDER BY topic_embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []*Quiz
	for rows.Next() {
		var distance float64
		q, err := scanQuiz(rows, &distance)
		if err != nil {
			return nil, err
		}
		q.Distance = &distance
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// InsertSummary stores s. A zero ID is replaced with a new one.
func (db *DB) InsertSummary(ctx context.Context, s *Summary) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO summaries (id, document_id, source_kind, source_ref, title, method, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.DocumentID, s.SourceKind, s.SourceRef, s.Title, s.Method, s.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// ListSummaries returns the most recent summaries first.
func (db *DB) ListSummaries(ctx context.Context, limit int) ([]*Summary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, source_kind, source_ref, title, method, summary, created_at
		 FROM summaries ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SourceKind, &s.SourceRef,
			&s.Title, &s.Method, &s.Summary, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func scanQuiz(row pgx.Row, extra ...any) (*Quiz, error) {
	var (
		q         Quiz
		questions []byte
	)
	dest := append([]any{&q.ID, &q.DocumentID, &q.SourceKind, &q.SourceRef,
		&q.Title, &q.Topic, &q.Difficulty, &questions, &q.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan quiz: %w", err)
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions of quiz %s: %w", q.ID, err)
	}
	return &q, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
