package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/quiz-results/internal/submission"
)

const submissionColumns = `id, quiz_id, player_id, payload, status,
	COALESCE(result_id, ''), COALESCE(failure_reason, ''), created_at, updated_at`

const (
	insertSubmissionSQL = `INSERT INTO submissions
	(id, quiz_id, player_id, payload, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	submissionByIDSQL = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	claimSubmissionSQL = `UPDATE submissions
SET status = 'SCORING', updated_at = $3
WHERE id = $1
  AND (status = 'RECEIVED' OR (status = 'SCORING' AND updated_at < $2))
RETURNING ` + submissionColumns

	submissionExistsSQL = `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`

	markPersistedSQL = `UPDATE submissions SET status = 'PERSISTED', result_id = $2, updated_at = $3
WHERE id = $1 AND status = 'SCORING'`
	markNotifiedSQL = `UPDATE submissions SET status = 'NOTIFIED', updated_at = $2
WHERE id = $1 AND status = 'PERSISTED'`
	markFailedSQL = `UPDATE submissions SET status = 'FAILED', failure_reason = $2, updated_at = $3
WHERE id = $1 AND status = 'SCORING'`

	staleSubmissionsSQL = `SELECT id FROM submissions
WHERE status IN ('RECEIVED', 'SCORING') AND updated_at < $1
ORDER BY updated_at ASC, id COLLATE "C" ASC
LIMIT $2`

	submissionsByPlayerSQL = `SELECT ` + submissionColumns + ` FROM submissions
WHERE player_id = $1
ORDER BY created_at DESC, id COLLATE "C" DESC
LIMIT $2`
)

// SubmissionRepository is the Postgres submission ledger.
type SubmissionRepository struct {
	db  DBTX
	now func() time.Time
}

var _ submission.Ledger = (*SubmissionRepository)(nil)

func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SubmissionRepository) Create(ctx context.Context, sub submission.Submission) error {
	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = r.now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}
	if sub.Status == "" {
		sub.Status = submission.StatusReceived
	}

	_, err = r.db.Exec(ctx, insertSubmissionSQL,
		sub.ID, sub.QuizID, sub.PlayerID, payload, string(sub.Status),
		pgTime(sub.CreatedAt), pgTime(sub.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id string) (submission.Submission, error) {
	sub, err := scanSubmission(r.db.QueryRow(ctx, submissionByIDSQL, id))
	if err != nil {
		if isNoRows(err) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// Claim is a single conditional UPDATE so two workers never both win.
func (r *SubmissionRepository) Claim(ctx context.Context, id string, staleBefore time.Time) (submission.Submission, error) {
	sub, err := scanSubmission(r.db.QueryRow(ctx, claimSubmissionSQL, id, pgTime(staleBefore), pgTime(r.now())))
	if err == nil {
		return sub, nil
	}
	if !isNoRows(err) {
		return submission.Submission{}, fmt.Errorf("claim submission: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, submissionExistsSQL, id).Scan(&exists); err != nil {
		return submission.Submission{}, fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return submission.Submission{}, submission.ErrNotFound
	}
	return submission.Submission{}, submission.ErrNotClaimable
}

func (r *SubmissionRepository) MarkPersisted(ctx context.Context, id, resultID string) error {
	return r.update(ctx, markPersistedSQL, id, resultID, pgTime(r.now()))
}

func (r *SubmissionRepository) MarkNotified(ctx context.Context, id string) error {
	return r.update(ctx, markNotifiedSQL, id, pgTime(r.now()))
}

func (r *SubmissionRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.update(ctx, markFailedSQL, id, reason, pgTime(r.now()))
}

// update runs a guarded transition. Zero rows means the id is unknown or the
// row is no longer in the state the statement expects.
func (r *SubmissionRepository) update(ctx context.Context, sql, id string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, sql, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, submissionExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return submission.ErrNotFound
	}
	return submission.ErrStateChanged
}

func (r *SubmissionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, staleSubmissionsSQL, pgTime(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale submissions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan stale submissions: %w", err)
	}
	return ids, nil
}

func (r *SubmissionRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]submission.Submission, error) {
	rows, err := r.db.Query(ctx, submissionsByPlayerSQL, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list player submissions: %w", err)
	}
	defer rows.Close()

	out := make([]submission.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (submission.Submission, error) {
	var (
		sub     submission.Submission
		payload []byte
		status  string
	)
	err := row.Scan(
		&sub.ID, &sub.QuizID, &sub.PlayerID, &payload, &status,
		&sub.ResultID, &sub.FailureReason, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return submission.Submission{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &sub.Payload); err != nil {
			return submission.Submission{}, fmt.Errorf("decode payload: %w", err)
		}
	}
	sub.Status = submission.Status(status)
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return sub, nil
}
