package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gokatarajesh/quiz-results/internal/ranking"
	"github.com/gokatarajesh/quiz-results/internal/results"
)

// Limits applied to leaderboard queries.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is one player's best attempt on a quiz. It is derived on every query.
type Entry struct {
	Rank             int       `json:"rank"`
	PlayerID         string    `json:"user_id"`
	DisplayName      string    `json:"user_name,omitempty"`
	ResultID         string    `json:"result_id"`
	Score            float64   `json:"score"`
	MaxScore         int       `json:"max_score"`
	Percentage       float64   `json:"percentage"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Attempts         int       `json:"attempts"`
}

// Source lists every attempt on a quiz.
type Source interface {
	ByQuiz(ctx context.Context, quizID string) ([]results.AttemptResult, error)
}

// Aggregator builds per-quiz leaderboards straight from the result store.
// Nothing is cached, so two instances never disagree.
type Aggregator struct {
	source Source
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Top returns at most limit entries, one per player, best first.
func (a *Aggregator) Top(ctx context.Context, quizID string, limit int) ([]Entry, error) {
	attempts, err := a.source.ByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load attempts for quiz %s: %w", quizID, err)
	}
	return Aggregate(attempts, ClampLimit(limit)), nil
}

// Aggregate keeps each player's best attempt, orders them and truncates to limit.
// A limit of zero or less returns every player.
func Aggregate(attempts []results.AttemptResult, limit int) []Entry {
	best := make(map[string]results.AttemptResult, len(attempts))
	counts := make(map[string]int, len(attempts))
	for _, r := range attempts {
		counts[r.PlayerID]++
		cur, ok := best[r.PlayerID]
		if !ok || ranking.Less(r.Standing(), cur.Standing()) {
			best[r.PlayerID] = r
		}
	}

	picked := make([]results.AttemptResult, 0, len(best))
	for _, r := range best {
		picked = append(picked, r)
	}
	sort.Slice(picked, func(i, j int) bool {
		return ranking.Less(picked[i].Standing(), picked[j].Standing())
	})

	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}

	entries := make([]Entry, len(picked))
	for i, r := range picked {
		entries[i] = Entry{
			Rank:             i + 1,
			PlayerID:         r.PlayerID,
			ResultID:         r.ID,
			Score:            r.Score,
			MaxScore:         r.MaxScore,
			Percentage:       r.Percentage(),
			TimeSpentSeconds: r.ElapsedSeconds,
			SubmittedAt:      r.SubmittedAt,
			Attempts:         counts[r.PlayerID],
		}
	}
	return entries
}
