package quiz

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when the authoring service has no quiz for an id.
var ErrNotFound = errors.New("quiz not found")

// Moderation states as written by the authoring service.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Quiz is the read-only view of an authored quiz document.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Status          string     `json:"status,omitempty"`
	AuthorID        string     `json:"author_id,omitempty"`
	Questions       []Question `json:"questions"`
}

// Question carries a stable id assigned at creation time; position is never used as identity.
type Question struct {
	ID            string   `json:"id"`
	Order         int      `json:"order"`
	Text          string   `json:"text"`
	Points        int      `json:"points"`
	PenaltyPoints float64  `json:"penalty_points,omitempty"`
	Answers       []Answer `json:"answers"`
}

// Answer is a single selectable option.
type Answer struct {
	ID      string `json:"id"`
	Order   int    `json:"order"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Repository loads quizzes by id.
type Repository interface {
	Get(ctx context.Context, quizID string) (Quiz, error)
}

// DisplayTitle falls back to a generic label for untitled quizzes.
func (q Quiz) DisplayTitle() string {
	if q.Title == "" {
		return "Untitled Quiz"
	}
	return q.Title
}

// CorrectAnswerIDs returns the ids flagged correct, in authoring order.
func (q Question) CorrectAnswerIDs() []string {
	ids := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// HasQuestion reports whether a question id belongs to the quiz.
func (q Quiz) HasQuestion(questionID string) bool {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return true
		}
	}
	return false
}

// Authoring documents carry ids under "_id"; the cache and seed files use "id".

func (q *Quiz) UnmarshalJSON(data []byte) error {
	type plain Quiz
	doc := struct {
		*plain
		DocID string `json:"_id"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.DocID != "" {
		q.ID = doc.DocID
	}
	return nil
}

func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	doc := struct {
		*plain
		DocID string `json:"_id"`
	}{plain: (*plain)(q)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.DocID != "" {
		q.ID = doc.DocID
	}
	return nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	type plain Answer
	doc := struct {
		*plain
		DocID string `json:"_id"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.DocID != "" {
		a.ID = doc.DocID
	}
	return nil
}
