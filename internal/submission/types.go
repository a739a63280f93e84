package submission

import (
	"context"
	"errors"
	"time"

	"github.com/gokatarajesh/quiz-results/internal/scoring"
)

// Status is the lifecycle state of a submission.
type Status string

// RECEIVED -> SCORING -> PERSISTED -> NOTIFIED, with FAILED reachable from SCORING or PERSISTED.
const (
	StatusReceived  Status = "RECEIVED"
	StatusScoring   Status = "SCORING"
	StatusPersisted Status = "PERSISTED"
	StatusNotified  Status = "NOTIFIED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusNotified || s == StatusFailed
}

var (
	// ErrNotFound is returned when a submission id is unknown.
	ErrNotFound = errors.New("submission not found")
	// ErrNotClaimable means another worker owns the submission or it already finished.
	ErrNotClaimable = errors.New("submission not claimable")
	// ErrStateChanged means the row left the state a transition expects,
	// usually because a stale claim was taken over by another worker.
	ErrStateChanged = errors.New("submission state changed")
)

// AnswerInput is one entry of the submitted answers list.
type AnswerInput struct {
	QuestionID string   `json:"question_id"`
	AnswerIDs  []string `json:"answer_ids"`
}

// Payload is the raw player input kept until the attempt is scored.
type Payload struct {
	Answers          []AnswerInput `json:"answers"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
}

// Selections converts the payload into scoring input.
func (p Payload) Selections() []scoring.Selection {
	out := make([]scoring.Selection, 0, len(p.Answers))
	for _, a := range p.Answers {
		out = append(out, scoring.Selection{QuestionID: a.QuestionID, AnswerIDs: a.AnswerIDs})
	}
	return out
}

// Submission is the durable ledger row for one accepted attempt.
type Submission struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quiz_id"`
	PlayerID      string    `json:"player_id"`
	Payload       Payload   `json:"-"`
	Status        Status    `json:"status"`
	ResultID      string    `json:"result_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Ledger records submission state so an accepted attempt survives a worker crash.
type Ledger interface {
	Create(ctx context.Context, sub Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	// Claim moves RECEIVED to SCORING, or takes over a SCORING row idle since before staleBefore.
	// Returns ErrNotClaimable when neither applies.
	Claim(ctx context.Context, id string, staleBefore time.Time) (Submission, error)
	// MarkPersisted and MarkFailed apply only to SCORING rows, MarkNotified
	// only to PERSISTED rows. Otherwise they return ErrStateChanged.
	MarkPersisted(ctx context.Context, id, resultID string) error
	MarkNotified(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	// ListStale returns ids of RECEIVED or SCORING rows not touched since before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
	// ListByPlayer returns a player's submissions, newest first.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Submission, error)
}

// Queue hands submission ids to workers.
type Queue interface {
	Enqueue(ctx context.Context, submissionID string) error
	// Dequeue blocks up to timeout; ok is false when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (id string, ok bool, err error)
}

// Receipt is returned to the player when a submission is accepted. It never carries a score.
type Receipt struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Message      string `json:"message"`
}

// ValidationError describes a malformed submission.
type ValidationError struct {
	Field   string
	Message string
	// Index points at the offending entry of answers, when there is one.
	Index *int
}

func (e *ValidationError) Error() string {
	return e.Message
}
