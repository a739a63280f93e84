package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gokatarajesh/quiz-results/internal/ranking"
	"github.com/gokatarajesh/quiz-results/internal/scoring"
)

// ErrNotFound is returned when no attempt result exists for an id.
var ErrNotFound = errors.New("result not found")

// AttemptResult is one scored attempt. It is written once and never updated.
type AttemptResult struct {
	ID             string                    `json:"id"`
	QuizID         string                    `json:"quiz_id"`
	QuizTitle      string                    `json:"quiz_title"`
	PlayerID       string                    `json:"user_id"`
	Score          float64                   `json:"score"`
	MaxScore       int                       `json:"max_score"`
	ElapsedSeconds int                       `json:"time_spent_seconds"`
	Breakdown      []scoring.QuestionOutcome `json:"submitted_answers"`
	// RankedPosition is the rank at time of write. It is not kept current as
	// later attempts arrive; order queries recompute from scores.
	RankedPosition int       `json:"ranked_position"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Standing projects the fields used for ordering.
func (r AttemptResult) Standing() ranking.Standing {
	return ranking.Standing{
		ID:             r.ID,
		Score:          r.Score,
		ElapsedSeconds: r.ElapsedSeconds,
		SubmittedAt:    r.SubmittedAt,
	}
}

// Percentage is score over max score, 0 when the quiz is worth nothing.
func (r AttemptResult) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return scoring.Round2(r.Score / float64(r.MaxScore) * 100)
}

// Store persists attempt results.
//
// Save is insert-only and idempotent on ID: saving an id that already exists
// keeps the first record and reports created=false.
type Store interface {
	ranking.OutrankCounter

	Save(ctx context.Context, result AttemptResult) (created bool, err error)
	ByID(ctx context.Context, id string) (AttemptResult, error)
	// ByQuiz returns every attempt on the quiz, best first.
	ByQuiz(ctx context.Context, quizID string) ([]AttemptResult, error)
	// ByPlayer returns a player's attempts, newest first.
	ByPlayer(ctx context.Context, playerID string) ([]AttemptResult, error)
	Ping(ctx context.Context) error
}

// PersistenceError marks a failed write to the result store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist result (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SortByStanding orders results best first using the deterministic tie-break.
func SortByStanding(list []AttemptResult) {
	sort.SliceStable(list, func(i, j int) bool {
		return ranking.Less(list[i].Standing(), list[j].Standing())
	})
}

// SortByRecency orders results newest first.
func SortByRecency(list []AttemptResult) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].SubmittedAt.After(list[j].SubmittedAt)
		}
		return list[i].ID > list[j].ID
	})
}
