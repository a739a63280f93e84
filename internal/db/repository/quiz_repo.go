package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gokatarajesh/quiz-results/internal/quiz"
)

const (
	quizByIDSQL = `SELECT document, status FROM quizzes WHERE id = $1`

	upsertQuizSQL = `INSERT INTO quizzes (id, status, document, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status, document = EXCLUDED.document, updated_at = now()`
)

// QuizRepository reads the authoring service's quiz documents.
type QuizRepository struct {
	db DBTX
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository(db DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// Get loads one quiz. The status column wins over any status in the document.
func (r *QuizRepository) Get(ctx context.Context, quizID string) (quiz.Quiz, error) {
	var (
		doc    []byte
		status string
	)
	if err := r.db.QueryRow(ctx, quizByIDSQL, quizID).Scan(&doc, &status); err != nil {
		if isNoRows(err) {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}

	var q quiz.Quiz
	if err := json.Unmarshal(doc, &q); err != nil {
		return quiz.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	q.ID = quizID
	q.Status = status
	return q, nil
}

// Upsert writes a quiz document. Used by the seed command and tests.
func (r *QuizRepository) Upsert(ctx context.Context, q quiz.Quiz) error {
	status := q.Status
	if status == "" {
		status = quiz.StatusApproved
	}
	doc, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	if _, err := r.db.Exec(ctx, upsertQuizSQL, q.ID, status, doc); err != nil {
		return fmt.Errorf("upsert quiz %s: %w", q.ID, err)
	}
	return nil
}
