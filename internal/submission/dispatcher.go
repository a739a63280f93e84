package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/metrics"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
)

const (
	acceptedStatus  = "submitted"
	acceptedMessage = "Quiz submitted successfully. Results will be processed shortly."

	maxAnswers = 1000

	// DefaultHistoryLimit bounds the submission history listing.
	DefaultHistoryLimit = 50
)

// ErrUnavailable means the submission could not be durably recorded.
var ErrUnavailable = errors.New("submission intake unavailable")

// Request is the submit body. Pointer and nil-slice fields distinguish
// "missing" from "empty".
type Request struct {
	QuizID           string        `json:"-"`
	Answers          []AnswerInput `json:"answers"`
	TimeSpentSeconds *int          `json:"time_spent_seconds"`
}

// Validate checks the request shape without consulting the quiz.
func (r Request) Validate() error {
	if r.QuizID == "" {
		return &ValidationError{Field: "quiz_id", Message: "quiz_id is required"}
	}
	if r.Answers == nil {
		return &ValidationError{Field: "answers", Message: "answers is required"}
	}
	if len(r.Answers) > maxAnswers {
		return &ValidationError{Field: "answers", Message: fmt.Sprintf("answers may hold at most %d entries", maxAnswers)}
	}
	for i, a := range r.Answers {
		i := i
		if a.QuestionID == "" {
			return &ValidationError{Field: "answers.question_id", Message: "question_id is required", Index: &i}
		}
		if a.AnswerIDs == nil {
			return &ValidationError{Field: "answers.answer_ids", Message: "answer_ids is required", Index: &i}
		}
	}
	if r.TimeSpentSeconds == nil {
		return &ValidationError{Field: "time_spent_seconds", Message: "time_spent_seconds is required"}
	}
	if *r.TimeSpentSeconds < 0 {
		return &ValidationError{Field: "time_spent_seconds", Message: "time_spent_seconds must not be negative"}
	}
	return nil
}

// Dispatcher accepts submissions: validate, record RECEIVED, enqueue, acknowledge.
// It never scores; the caller gets a Receipt before any work happens.
type Dispatcher struct {
	quizzes quiz.Repository
	ledger  Ledger
	queue   Queue
	metrics *metrics.Recorder
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(quizzes quiz.Repository, ledger Ledger, queue Queue, rec *metrics.Recorder, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		quizzes: quizzes,
		ledger:  ledger,
		queue:   queue,
		metrics: rec,
		logger:  logger.With().Str("component", "submission_dispatcher").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Submit records the attempt and returns once it is durable.
//
// A failed enqueue after the ledger write still returns a Receipt: the row is
// RECEIVED and the sweeper will push it again.
func (d *Dispatcher) Submit(ctx context.Context, playerID string, req Request) (Receipt, error) {
	if playerID == "" {
		d.metrics.SubmissionRejected("unauthenticated")
		return Receipt{}, &ValidationError{Field: "user_id", Message: "player id is required"}
	}
	if err := req.Validate(); err != nil {
		d.metrics.SubmissionRejected("validation")
		return Receipt{}, err
	}

	q, err := d.quizzes.Get(ctx, req.QuizID)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			d.metrics.SubmissionRejected("quiz_not_found")
			return Receipt{}, err
		}
		d.metrics.SubmissionRejected("unavailable")
		return Receipt{}, fmt.Errorf("%w: load quiz: %v", ErrUnavailable, err)
	}
	if q.Status != "" && q.Status != quiz.StatusApproved {
		d.metrics.SubmissionRejected("quiz_not_found")
		return Receipt{}, quiz.ErrNotFound
	}

	now := d.now()
	sub := Submission{
		ID:       d.newID(),
		QuizID:   q.ID,
		PlayerID: playerID,
		Payload: Payload{
			Answers:          req.Answers,
			TimeSpentSeconds: *req.TimeSpentSeconds,
		},
		Status:    StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.ledger.Create(ctx, sub); err != nil {
		d.metrics.SubmissionRejected("unavailable")
		return Receipt{}, fmt.Errorf("%w: record submission: %v", ErrUnavailable, err)
	}
	d.metrics.SubmissionAccepted()

	log := d.logger.With().
		Str("submission_id", sub.ID).
		Str("quiz_id", sub.QuizID).
		Str("player_id", playerID).
		Logger()

	if err := d.queue.Enqueue(ctx, sub.ID); err != nil {
		d.metrics.EnqueueFailed()
		log.Warn().Err(err).Msg("enqueue failed; sweeper will retry")
	} else {
		log.Info().Int("answers", len(req.Answers)).Msg("submission accepted")
	}

	return Receipt{
		Status:       acceptedStatus,
		SubmissionID: sub.ID,
		Message:      acceptedMessage,
	}, nil
}

// Status returns the ledger row for a submission owned by playerID.
func (d *Dispatcher) Status(ctx context.Context, playerID, submissionID string) (Submission, error) {
	sub, err := d.ledger.Get(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.PlayerID != playerID {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

// History lists the player's recent submissions, pending and failed included.
func (d *Dispatcher) History(ctx context.Context, playerID string, limit int) ([]Submission, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return d.ledger.ListByPlayer(ctx, playerID, limit)
}
