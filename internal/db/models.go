package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/RSinthu/QuizGenerator/internal/quiz"
)

// Document is an uploaded file, identified by its content hash.
type Document struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"file_name"`
	FileHash  string    `json:"file_hash"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Quiz is a stored quiz.
type Quiz struct {
	ID             uuid.UUID        `json:"id"`
	DocumentID     *uuid.UUID       `json:"document_id,omitempty"`
	SourceKind     string           `json:"source_kind"`
	SourceRef      string           `json:"source_ref"`
	Title          string           `json:"title"`
	Topic          string           `json:"topic"`
	Difficulty     string           `json:"difficulty"`
	Questions      []quiz.Question  `json:"questions"`
	TopicEmbedding *pgvector.Vector `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
	// Distance is set by similarity searches.
	Distance *float64 `json:"distance,omitempty"`
}

// Summary is a stored summary.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	SourceKind string     `json:"source_kind"`
	SourceRef  string     `json:"source_ref"`
	Title      string     `json:"title"`
	Method     string     `json:"method"`
	Summary    string     `json:"summary"`
	CreatedAt  time.Time  `json:"created_at"`
}
