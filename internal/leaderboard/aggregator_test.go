package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-results/internal/db/memory"
	"github.com/gokatarajesh/quiz-results/internal/results"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func attempt(id, player string, score float64, elapsed int, at time.Time) results.AttemptResult {
	return results.AttemptResult{
		ID:             id,
		QuizID:         "q",
		PlayerID:       player,
		Score:          score,
		MaxScore:       100,
		ElapsedSeconds: elapsed,
		SubmittedAt:    at,
	}
}

func players(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PlayerID
	}
	return out
}

func TestAggregateKeepsPersonalBest(t *testing.T) {
	entries := Aggregate([]results.AttemptResult{
		attempt("r1", "ana", 60, 100, t0),
		attempt("r2", "ana", 90, 200, t0.Add(time.Minute)),
		attempt("r3", "bo", 70, 50, t0),
	}, 10)

	require.Len(t, entries, 2)
	assert.Equal(t, []string{"ana", "bo"}, players(entries))
	assert.Equal(t, 90.0, entries[0].Score)
	assert.Equal(t, "r2", entries[0].ResultID)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 90.0, entries[0].Percentage)
}

func TestAggregateBestIsNotMostRecent(t *testing.T) {
	entries := Aggregate([]results.AttemptResult{
		attempt("r1", "ana", 90, 100, t0),
		attempt("r2", "ana", 40, 10, t0.Add(time.Hour)),
	}, 10)

	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ResultID)
}

func TestAggregateTieBreaks(t *testing.T) {
	entries := Aggregate([]results.AttemptResult{
		attempt("slow", "a", 80, 120, t0),
		attempt("fast", "b", 80, 90, t0.Add(time.Hour)),
		attempt("late", "c", 80, 120, t0.Add(time.Minute)),
		attempt("z-early", "d", 80, 120, t0),
	}, 10)

	assert.Equal(t, []string{"b", "a", "d", "c"}, players(entries))
}

func TestAggregateIsDeterministic(t *testing.T) {
	var list []results.AttemptResult
	for i := 0; i < 30; i++ {
		list = append(list, attempt(fmt.Sprintf("r%02d", i), fmt.Sprintf("p%d", i%7), float64(i%3), 60, t0))
	}
	first := Aggregate(list, 5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(list, 5))
	}
	assert.Len(t, first, 5)
}

func TestAggregatePlayerBestChoiceIsStable(t *testing.T) {
	// Same score and time: earliest submission wins regardless of input order.
	a := attempt("r1", "ana", 50, 60, t0.Add(time.Minute))
	b := attempt("r2", "ana", 50, 60, t0)
	assert.Equal(t, "r2", Aggregate([]results.AttemptResult{a, b}, 10)[0].ResultID)
	assert.Equal(t, "r2", Aggregate([]results.AttemptResult{b, a}, 10)[0].ResultID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-4))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}

func TestAggregatorTopReadsStoreEveryCall(t *testing.T) {
	ctx := context.Background()
	store := memory.NewResultStore()
	agg := NewAggregator(store)

	_, err := store.Save(ctx, attempt("r1", "ana", 10, 60, t0))
	require.NoError(t, err)
	entries, err := agg.Top(ctx, "q", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.Save(ctx, attempt("r2", "bo", 20, 60, t0))
	require.NoError(t, err)
	entries, err = agg.Top(ctx, "q", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bo", "ana"}, players(entries))

	empty, err := agg.Top(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

type failingSource struct{}

func (failingSource) ByQuiz(context.Context, string) ([]results.AttemptResult, error) {
	return nil, errors.New("db down")
}

func TestAggregatorTopPropagatesErrors(t *testing.T) {
	_, err := NewAggregator(failingSource{}).Top(context.Background(), "q", 10)
	assert.Error(t, err)
}
