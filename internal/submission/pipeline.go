package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/metrics"
	"github.com/gokatarajesh/quiz-results/internal/notify"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	"github.com/gokatarajesh/quiz-results/internal/ranking"
	"github.com/gokatarajesh/quiz-results/internal/results"
	"github.com/gokatarajesh/quiz-results/internal/scoring"
)

// DefaultStaleAfter is how long a SCORING row may sit before another worker takes it over.
const DefaultStaleAfter = 2 * time.Minute

// Pipeline turns one claimed submission into a stored AttemptResult:
// load quiz, score, rank, persist, notify.
type Pipeline struct {
	ledger     Ledger
	quizzes    quiz.Repository
	store      results.Store
	ranker     *ranking.Calculator
	notifier   notify.Notifier
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewPipeline builds a Pipeline. A nil notifier disables notifications.
func NewPipeline(ledger Ledger, quizzes quiz.Repository, store results.Store, notifier notify.Notifier, rec *metrics.Recorder, staleAfter time.Duration, logger zerolog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Pipeline{
		ledger:     ledger,
		quizzes:    quizzes,
		store:      store,
		ranker:     ranking.NewCalculator(store),
		notifier:   notifier,
		metrics:    rec,
		logger:     logger.With().Str("component", "submission_pipeline").Logger(),
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the pipeline for id. A submission another worker holds, or one
// already finished, is skipped without error. Returned errors are for logging;
// the ledger already reflects the outcome.
func (p *Pipeline) Process(ctx context.Context, id string) error {
	start := time.Now()

	sub, err := p.ledger.Claim(ctx, id, p.now().Add(-p.staleAfter))
	if errors.Is(err, ErrNotClaimable) {
		p.logger.Debug().Str("submission_id", id).Msg("submission already claimed or finished")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim submission %s: %w", id, err)
	}

	log := p.logger.With().
		Str("submission_id", sub.ID).
		Str("quiz_id", sub.QuizID).
		Str("player_id", sub.PlayerID).
		Logger()

	q, err := p.quizzes.Get(ctx, sub.QuizID)
	if err != nil {
		reason := "quiz unavailable"
		if errors.Is(err, quiz.ErrNotFound) {
			reason = "quiz not found"
		}
		p.fail(ctx, log, sub.ID, reason, err, start)
		return fmt.Errorf("load quiz: %w", err)
	}

	outcome := scoring.Score(q, scoring.NewAnswers(sub.Payload.Selections()))
	if len(outcome.Degenerate) > 0 {
		p.metrics.DegenerateQuestions(len(outcome.Degenerate))
		log.Warn().Strs("question_ids", outcome.Degenerate).Msg("questions without a correct answer scored as zero")
	}
	if len(outcome.BadIDs) > 0 {
		log.Warn().Strs("question_ids", outcome.BadIDs).Msg("quiz has empty or repeated question ids")
	}

	rank, err := p.ranker.Rank(ctx, q.ID, outcome.TotalScore, sub.Payload.TimeSpentSeconds)
	if err != nil {
		perr := &results.PersistenceError{Op: "rank", Err: err}
		p.fail(ctx, log, sub.ID, "result store unavailable", perr, start)
		return perr
	}

	result := results.AttemptResult{
		ID:             sub.ID,
		QuizID:         q.ID,
		QuizTitle:      q.DisplayTitle(),
		PlayerID:       sub.PlayerID,
		Score:          outcome.TotalScore,
		MaxScore:       outcome.MaxScore,
		ElapsedSeconds: sub.Payload.TimeSpentSeconds,
		Breakdown:      outcome.Breakdown,
		RankedPosition: rank,
		SubmittedAt:    sub.CreatedAt,
	}

	created, err := p.store.Save(ctx, result)
	if err != nil {
		perr := &results.PersistenceError{Op: "save", Err: err}
		p.fail(ctx, log, sub.ID, "result store unavailable", perr, start)
		return perr
	}
	canNotify := true
	if !created {
		// Redelivery after a crash between save and ledger update. The stored
		// row wins; notify with its values or not at all.
		stored, err := p.store.ByID(ctx, result.ID)
		if err != nil {
			log.Error().Err(err).Msg("stored result unreadable, notification skipped")
			canNotify = false
		} else {
			result = stored
		}
		log.Info().Msg("result already stored")
	}

	if err := p.ledger.MarkPersisted(ctx, sub.ID, result.ID); err != nil {
		if errors.Is(err, ErrStateChanged) {
			log.Info().Msg("submission taken over by another worker")
			return nil
		}
		log.Error().Err(err).Msg("mark persisted failed")
	}

	log.Info().
		Float64("score", result.Score).
		Int("max_score", result.MaxScore).
		Int("rank", result.RankedPosition).
		Msg("result persisted")

	status := StatusPersisted
	switch {
	case !canNotify:
	case p.notify(ctx, log, result) != nil:
		p.metrics.NotificationFailed()
	default:
		if err := p.ledger.MarkNotified(ctx, sub.ID); err != nil {
			log.Error().Err(err).Msg("mark notified failed")
		} else {
			status = StatusNotified
		}
	}

	p.metrics.PipelineFinished(string(status), time.Since(start))
	return nil
}

func (p *Pipeline) notify(ctx context.Context, log zerolog.Logger, result results.AttemptResult) error {
	err := p.notifier.Notify(ctx, notify.Message{
		PlayerID:  result.PlayerID,
		QuizID:    result.QuizID,
		QuizTitle: result.QuizTitle,
		ResultID:  result.ID,
		Score:     result.Score,
		MaxScore:  result.MaxScore,
		Rank:      result.RankedPosition,
	})
	if err != nil {
		log.Warn().Err(err).Msg("result notification failed")
	}
	return err
}

func (p *Pipeline) fail(ctx context.Context, log zerolog.Logger, id, reason string, cause error, start time.Time) {
	log.Error().Err(cause).Str("reason", reason).Msg("submission failed")
	if err := p.ledger.MarkFailed(ctx, id, reason); err != nil {
		if errors.Is(err, ErrStateChanged) {
			log.Info().Msg("submission taken over by another worker")
		} else {
			log.Error().Err(err).Msg("mark failed failed")
		}
	}
	p.metrics.PipelineFinished(string(StatusFailed), time.Since(start))
}
