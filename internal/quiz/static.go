package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Static serves quizzes from memory. Used for local runs without the authoring database.
type Static struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
}

// NewStatic builds a repository from a fixed set of quizzes.
func NewStatic(quizzes ...Quiz) *Static {
	s := &Static{quizzes: make(map[string]Quiz, len(quizzes))}
	for _, q := range quizzes {
		s.quizzes[q.ID] = q
	}
	return s
}

// LoadStaticFile reads a JSON array of quiz documents.
func LoadStaticFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz seed: %w", err)
	}
	var quizzes []Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return nil, fmt.Errorf("decode quiz seed: %w", err)
	}
	return NewStatic(quizzes...), nil
}

// Get implements Repository.
func (s *Static) Get(_ context.Context, quizID string) (Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

// Put adds or replaces a quiz.
func (s *Static) Put(q Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
}

// All returns every quiz ordered by id.
func (s *Static) All() []Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
