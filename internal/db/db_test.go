package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
)

func TestSchema(t *testing.T) {
	assert.Contains(t, schema, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS quizzes")
	assert.Contains(t, schema, "topic_embedding vector(512)")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS summaries")
	assert.NotContains(t, schema, "DROP ")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, 100, clampLimit(1000))
}

func TestNewBadConnString(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "failed to parse connection string")
}

// TestHistoryRoundTrip runs against a real database when
// QUIZGEN_TEST_DATABASE_URL is set.
func TestHistoryRoundTrip(t *testing.T) {
	url := os.Getenv("QUIZGEN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("QUIZGEN_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := New(ctx, url)
	require.NoError(t, err)
	defer db.Close()

	emb := embeddings.NewHashEmbedder(embeddings.DefaultDimension, embeddings.DefaultMaxTokens)
	vec, err := emb.EmbedText(ctx, "cell biology")
	require.NoError(t, err)

	hash := "test-" + t.Name()
	questions := []quiz.Question{{ID: 1, Question: "q?", Options: []string{"a", "b"}, Correct: 1, Difficulty: quiz.Easy}}
	require.NoError(t, db.RecordQuiz(ctx, quiz.Record{
		SourceKind:  quiz.SourcePDF,
		SourceRef:   hash,
		Title:       "bio.pdf",
		Topic:       "cell biology",
		Difficulty:  quiz.Easy,
		Questions:   questions,
		TopicVector: vec,
	}))
	require.NoError(t, db.RecordSummary(ctx, summarize.Record{
		SourceKind: "pdf", SourceRef: hash, Title: "bio.pdf", Method: summarize.MethodStuff, Summary: "cells",
	}))

	doc, err := db.GetDocumentByHash(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "bio.pdf", doc.FileName)

	recent, err := db.ListQuizzes(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, questions, recent[0].Questions)

	similar, err := db.SimilarQuizzes(ctx, vec, 1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	require.NotNil(t, similar[0].Distance)
	assert.InDelta(t, 0, *similar[0].Distance, 1e-4)

	summaries, err := db.ListSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, doc.ID, *summaries[0].DocumentID)
}
