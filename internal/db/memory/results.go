// Package memory holds process-local stores used for tests and the
// single-instance "memory" storage driver.
package memory

import (
	"context"
	"sync"

	"github.com/gokatarajesh/quiz-results/internal/ranking"
	"github.com/gokatarajesh/quiz-results/internal/results"
)

// ResultStore keeps attempt results in a map guarded by a RWMutex.
type ResultStore struct {
	mu     sync.RWMutex
	byID   map[string]results.AttemptResult
	byQuiz map[string][]string
}

var _ results.Store = (*ResultStore)(nil)

func NewResultStore() *ResultStore {
	return &ResultStore{
		byID:   make(map[string]results.AttemptResult),
		byQuiz: make(map[string][]string),
	}
}

// Save inserts the result unless its id is already present.
func (s *ResultStore) Save(_ context.Context, r results.AttemptResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return false, nil
	}
	s.byID[r.ID] = r
	s.byQuiz[r.QuizID] = append(s.byQuiz[r.QuizID], r.ID)
	return true, nil
}

func (s *ResultStore) ByID(_ context.Context, id string) (results.AttemptResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return results.AttemptResult{}, results.ErrNotFound
	}
	return r, nil
}

func (s *ResultStore) ByQuiz(_ context.Context, quizID string) ([]results.AttemptResult, error) {
	s.mu.RLock()
	ids := s.byQuiz[quizID]
	out := make([]results.AttemptResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	s.mu.RUnlock()

	results.SortByStanding(out)
	return out, nil
}

func (s *ResultStore) ByPlayer(_ context.Context, playerID string) ([]results.AttemptResult, error) {
	s.mu.RLock()
	out := make([]results.AttemptResult, 0)
	for _, r := range s.byID {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	results.SortByRecency(out)
	return out, nil
}

// CountOutranking implements ranking.OutrankCounter.
func (s *ResultStore) CountOutranking(_ context.Context, quizID string, score float64, elapsedSeconds int) (int, error) {
	candidate := ranking.Standing{Score: score, ElapsedSeconds: elapsedSeconds}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, id := range s.byQuiz[quizID] {
		if ranking.Outranks(s.byID[id].Standing(), candidate) {
			n++
		}
	}
	return n, nil
}

func (s *ResultStore) Ping(context.Context) error { return nil }
