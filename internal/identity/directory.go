package identity

import (
	"context"
	"fmt"
	"sync"
)

// Directory resolves player ids to display names. Lookups never fail: an
// unknown or unreachable player gets Fallback(id).
type Directory interface {
	DisplayNames(ctx context.Context, playerIDs []string) map[string]string
}

// Fallback is the name shown when no profile can be found.
func Fallback(playerID string) string {
	return fmt.Sprintf("User %s", playerID)
}

// Static is a fixed name table.
type Static struct {
	mu    sync.RWMutex
	names map[string]string
}

var _ Directory = (*Static)(nil)

func NewStatic(names map[string]string) *Static {
	s := &Static{names: make(map[string]string, len(names))}
	for id, name := range names {
		s.names[id] = name
	}
	return s
}

func (s *Static) DisplayNames(_ context.Context, playerIDs []string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(playerIDs))
	for _, id := range playerIDs {
		if name, ok := s.names[id]; ok && name != "" {
			out[id] = name
			continue
		}
		out[id] = Fallback(id)
	}
	return out
}

func (s *Static) Set(playerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[playerID] = name
}
