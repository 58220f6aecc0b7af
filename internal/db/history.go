package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
)

// RecordQuiz stores a generated quiz. Quizzes over uploaded documents are
// linked to the document row for their content hash.
func (db *DB) RecordQuiz(ctx context.Context, rec quiz.Record) error {
	q := &Quiz{
		SourceKind: rec.SourceKind,
		SourceRef:  rec.SourceRef,
		Title:      rec.Title,
		Topic:      rec.Topic,
		Difficulty: rec.Difficulty,
		Questions:  rec.Questions,
	}
	if len(rec.TopicVector) > 0 {
		q.TopicEmbedding = pgvectorOf(rec.TopicVector)
	}

	docID, err := db.documentFor(ctx, rec.SourceKind, rec.SourceRef, rec.Title)
	if err != nil {
		return err
	}
	q.DocumentID = docID
	return db.InsertQuiz(ctx, q)
}

// RecordSummary stores a generated summary.
func (db *DB) RecordSummary(ctx context.Context, rec summarize.Record) error {
	docID, err := db.documentFor(ctx, rec.SourceKind, rec.SourceRef, rec.Title)
	if err != nil {
		return err
	}
	return db.InsertSummary(ctx, &Summary{
		DocumentID: docID,
		SourceKind: rec.SourceKind,
		SourceRef:  rec.SourceRef,
		Title:      rec.Title,
		Method:     rec.Method,
		Summary:    rec.Summary,
	})
}

func (db *DB) documentFor(ctx context.Context, kind, hash, name string) (*uuid.UUID, error) {
	if kind != quiz.SourcePDF || hash == "" {
		return nil, nil
	}
	doc, err := db.GetDocumentByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		if doc, err = db.CreateDocument(ctx, name, hash, kind); err != nil {
			return nil, err
		}
	}
	return &doc.ID, nil
}

func pgvectorOf(v []float32) *pgvector.Vector {
	vec := pgvector.NewVector(v)
	return &vec
}
