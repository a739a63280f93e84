package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/quiz-results/internal/results"
	"github.com/gokatarajesh/quiz-results/internal/scoring"
)

const resultColumns = `id, quiz_id, quiz_title, player_id, score, max_score,
	time_spent_seconds, breakdown, ranked_position, submitted_at`

// standingOrder mirrors ranking.Less. COLLATE "C" keeps id comparison bytewise.
const standingOrder = `score DESC, time_spent_seconds ASC, submitted_at ASC, id COLLATE "C" ASC`

const (
	insertResultSQL = `INSERT INTO attempt_results (` + resultColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

	resultByIDSQL = `SELECT ` + resultColumns + ` FROM attempt_results WHERE id = $1`

	resultsByQuizSQL = `SELECT ` + resultColumns + ` FROM attempt_results
WHERE quiz_id = $1 ORDER BY ` + standingOrder

	resultsByPlayerSQL = `SELECT ` + resultColumns + ` FROM attempt_results
WHERE player_id = $1 ORDER BY submitted_at DESC, id COLLATE "C" DESC`

	countOutrankingSQL = `SELECT count(*) FROM attempt_results
WHERE quiz_id = $1 AND (score > $2 OR (score = $2 AND time_spent_seconds < $3))`
)

// ResultRepository stores attempt results in the attempt_results table.
type ResultRepository struct {
	db DBTX
}

var _ results.Store = (*ResultRepository)(nil)

// NewResultRepository wraps a pool or transaction.
func NewResultRepository(db DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save inserts the result; an existing id is left untouched and created is false.
func (r *ResultRepository) Save(ctx context.Context, res results.AttemptResult) (bool, error) {
	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return false, fmt.Errorf("encode breakdown: %w", err)
	}

	tag, err := r.db.Exec(ctx, insertResultSQL,
		res.ID, res.QuizID, res.QuizTitle, res.PlayerID, res.Score, res.MaxScore,
		res.ElapsedSeconds, breakdown, res.RankedPosition, pgTime(res.SubmittedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert attempt result: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ResultRepository) ByID(ctx context.Context, id string) (results.AttemptResult, error) {
	res, err := scanResult(r.db.QueryRow(ctx, resultByIDSQL, id))
	if err != nil {
		if isNoRows(err) {
			return results.AttemptResult{}, results.ErrNotFound
		}
		return results.AttemptResult{}, fmt.Errorf("get attempt result: %w", err)
	}
	return res, nil
}

func (r *ResultRepository) ByQuiz(ctx context.Context, quizID string) ([]results.AttemptResult, error) {
	return r.list(ctx, resultsByQuizSQL, quizID)
}

func (r *ResultRepository) ByPlayer(ctx context.Context, playerID string) ([]results.AttemptResult, error) {
	return r.list(ctx, resultsByPlayerSQL, playerID)
}

func (r *ResultRepository) CountOutranking(ctx context.Context, quizID string, score float64, elapsedSeconds int) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countOutrankingSQL, quizID, score, elapsedSeconds).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outranking: %w", err)
	}
	return n, nil
}

func (r *ResultRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ResultRepository) list(ctx context.Context, sql string, arg string) ([]results.AttemptResult, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query attempt results: %w", err)
	}
	defer rows.Close()

	out := make([]results.AttemptResult, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt result: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt results: %w", err)
	}
	return out, nil
}

func scanResult(row pgx.Row) (results.AttemptResult, error) {
	var (
		res       results.AttemptResult
		breakdown []byte
	)
	err := row.Scan(
		&res.ID, &res.QuizID, &res.QuizTitle, &res.PlayerID, &res.Score, &res.MaxScore,
		&res.ElapsedSeconds, &breakdown, &res.RankedPosition, &res.SubmittedAt,
	)
	if err != nil {
		return results.AttemptResult{}, err
	}
	if len(breakdown) > 0 {
		var outcomes []scoring.QuestionOutcome
		if err := json.Unmarshal(breakdown, &outcomes); err != nil {
			return results.AttemptResult{}, fmt.Errorf("decode breakdown: %w", err)
		}
		res.Breakdown = outcomes
	}
	res.SubmittedAt = res.SubmittedAt.UTC()
	return res, nil
}
