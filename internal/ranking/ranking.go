package ranking

import (
	"context"
	"fmt"
	"time"
)

// Standing is the part of an attempt that decides its order.
type Standing struct {
	ID             string
	Score          float64
	ElapsedSeconds int
	SubmittedAt    time.Time
}

// Outranks reports whether a beats b: higher score, or equal score in less time.
func Outranks(a, b Standing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ElapsedSeconds < b.ElapsedSeconds
}

// Less is the deterministic display order. It extends Outranks with
// earliest submission and then id, so ties never reorder between queries.
func Less(a, b Standing) bool {
	if Outranks(a, b) {
		return true
	}
	if Outranks(b, a) {
		return false
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// Position is 1 + the number of existing standings that outrank the candidate.
// Attempts with identical score and elapsed time share a position.
func Position(candidate Standing, existing []Standing) int {
	pos := 1
	for _, s := range existing {
		if Outranks(s, candidate) {
			pos++
		}
	}
	return pos
}

// OutrankCounter counts stored attempts on a quiz that strictly beat (score, elapsed).
type OutrankCounter interface {
	CountOutranking(ctx context.Context, quizID string, score float64, elapsedSeconds int) (int, error)
}

// Calculator ranks a new attempt against every stored attempt for the quiz.
type Calculator struct {
	counter OutrankCounter
}

// NewCalculator builds a Calculator over a store.
func NewCalculator(counter OutrankCounter) *Calculator {
	return &Calculator{counter: counter}
}

// Rank returns the position a new attempt takes at this moment. The value is
// a snapshot; later attempts do not update it.
func (c *Calculator) Rank(ctx context.Context, quizID string, score float64, elapsedSeconds int) (int, error) {
	n, err := c.counter.CountOutranking(ctx, quizID, score, elapsedSeconds)
	if err != nil {
		return 0, fmt.Errorf("count outranking attempts: %w", err)
	}
	return n + 1, nil
}
