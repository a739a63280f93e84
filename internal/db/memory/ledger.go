package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gokatarajesh/quiz-results/internal/submission"
)

// Ledger is an in-process submission ledger.
type Ledger struct {
	mu   sync.Mutex
	rows map[string]submission.Submission
	now  func() time.Time
}

var _ submission.Ledger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		rows: make(map[string]submission.Submission),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) Create(_ context.Context, sub submission.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.rows[sub.ID]; exists {
		return fmt.Errorf("submission %s already exists", sub.ID)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = l.now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}
	if sub.Status == "" {
		sub.Status = submission.StatusReceived
	}
	l.rows[sub.ID] = sub
	return nil
}

func (l *Ledger) Get(_ context.Context, id string) (submission.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.rows[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, nil
}

func (l *Ledger) Claim(_ context.Context, id string, staleBefore time.Time) (submission.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.rows[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	switch {
	case sub.Status == submission.StatusReceived:
	case sub.Status == submission.StatusScoring && sub.UpdatedAt.Before(staleBefore):
	default:
		return submission.Submission{}, submission.ErrNotClaimable
	}

	sub.Status = submission.StatusScoring
	sub.UpdatedAt = l.now()
	l.rows[id] = sub
	return sub, nil
}

func (l *Ledger) MarkPersisted(_ context.Context, id, resultID string) error {
	return l.transition(id, submission.StatusScoring, func(sub *submission.Submission) {
		sub.Status = submission.StatusPersisted
		sub.ResultID = resultID
	})
}

func (l *Ledger) MarkNotified(_ context.Context, id string) error {
	return l.transition(id, submission.StatusPersisted, func(sub *submission.Submission) {
		sub.Status = submission.StatusNotified
	})
}

func (l *Ledger) MarkFailed(_ context.Context, id, reason string) error {
	return l.transition(id, submission.StatusScoring, func(sub *submission.Submission) {
		sub.Status = submission.StatusFailed
		sub.FailureReason = reason
	})
}

func (l *Ledger) transition(id string, from submission.Status, apply func(*submission.Submission)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.rows[id]
	if !ok {
		return submission.ErrNotFound
	}
	if sub.Status != from {
		return submission.ErrStateChanged
	}
	apply(&sub)
	sub.UpdatedAt = l.now()
	l.rows[id] = sub
	return nil
}

// ListStale returns RECEIVED or SCORING ids untouched since before, oldest first.
func (l *Ledger) ListStale(_ context.Context, before time.Time, limit int) ([]string, error) {
	l.mu.Lock()
	stale := make([]submission.Submission, 0)
	for _, sub := range l.rows {
		if sub.Status != submission.StatusReceived && sub.Status != submission.StatusScoring {
			continue
		}
		if sub.UpdatedAt.Before(before) {
			stale = append(stale, sub)
		}
	}
	l.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].UpdatedAt.Equal(stale[j].UpdatedAt) {
			return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
		}
		return stale[i].ID < stale[j].ID
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}

	ids := make([]string, len(stale))
	for i, sub := range stale {
		ids[i] = sub.ID
	}
	return ids, nil
}

func (l *Ledger) ListByPlayer(_ context.Context, playerID string, limit int) ([]submission.Submission, error) {
	l.mu.Lock()
	out := make([]submission.Submission, 0)
	for _, sub := range l.rows {
		if sub.PlayerID == playerID {
			out = append(out, sub)
		}
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
