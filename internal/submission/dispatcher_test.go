package submission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-results/internal/db/memory"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	"github.com/gokatarajesh/quiz-results/internal/submission"
)

func TestSubmitRecordsReceivedAndEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	receipt, err := f.disp.Submit(ctx, "42", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "submitted", receipt.Status)
	assert.NotEmpty(t, receipt.SubmissionID)
	assert.NotEmpty(t, receipt.Message)

	sub, err := f.ledger.Get(ctx, receipt.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusReceived, sub.Status)
	assert.Equal(t, "42", sub.PlayerID)
	assert.Equal(t, "q1", sub.QuizID)
	assert.Equal(t, 120, sub.Payload.TimeSpentSeconds)
	assert.Len(t, sub.Payload.Answers, 2)

	id, ok, err := f.queue.Dequeue(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, receipt.SubmissionID, id)

	// Nothing scored yet.
	all, err := f.store.ByQuiz(ctx, "q1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(r *submission.Request)
		field string
		index *int
	}{
		{"missing quiz id", func(r *submission.Request) { r.QuizID = "" }, "quiz_id", nil},
		{"missing answers", func(r *submission.Request) { r.Answers = nil }, "answers", nil},
		{"missing time", func(r *submission.Request) { r.TimeSpentSeconds = nil }, "time_spent_seconds", nil},
		{"negative time", func(r *submission.Request) { r.TimeSpentSeconds = intPtr(-1) }, "time_spent_seconds", nil},
		{"empty question id", func(r *submission.Request) { r.Answers[1].QuestionID = "" }, "answers.question_id", intPtr(1)},
		{"missing answer ids", func(r *submission.Request) { r.Answers[0].AnswerIDs = nil }, "answers.answer_ids", intPtr(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tc.edit(&req)

			_, err := f.disp.Submit(context.Background(), "42", req)
			var verr *submission.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.index, verr.Index)

			_, ok, _ := f.queue.Dequeue(context.Background(), time.Millisecond)
			assert.False(t, ok, "rejected submissions are never enqueued")
		})
	}
}

func TestSubmitAllowsEmptyAnswers(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Answers = []submission.AnswerInput{}

	_, err := f.disp.Submit(context.Background(), "42", req)
	assert.NoError(t, err)
}

func TestSubmitRequiresPlayer(t *testing.T) {
	_, err := newFixture().disp.Submit(context.Background(), "", validRequest())
	var verr *submission.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSubmitUnknownOrUnpublishedQuiz(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.QuizID = "missing"
	_, err := f.disp.Submit(context.Background(), "42", req)
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	pending := capitalsQuiz()
	pending.ID = "draft"
	pending.Status = quiz.StatusPending
	f.quizzes.Put(pending)
	req.QuizID = "draft"
	_, err = f.disp.Submit(context.Background(), "42", req)
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestSubmitLedgerFailureIsUnavailable(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Create", mock.Anything, mock.AnythingOfType("submission.Submission")).Return(errors.New("db down"))
	queue := &mockQueue{}

	disp := submission.NewDispatcher(quiz.NewStatic(capitalsQuiz()), ledger, queue, nil, zerolog.Nop())
	_, err := disp.Submit(context.Background(), "42", validRequest())

	assert.ErrorIs(t, err, submission.ErrUnavailable)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	ledger.AssertExpectations(t)
}

func TestSubmitEnqueueFailureStillAccepted(t *testing.T) {
	ledger := memory.NewLedger()
	queue := &mockQueue{}
	queue.On("Enqueue", mock.Anything, mock.AnythingOfType("string")).Return(errors.New("redis down"))

	disp := submission.NewDispatcher(quiz.NewStatic(capitalsQuiz()), ledger, queue, nil, zerolog.Nop())
	receipt, err := disp.Submit(context.Background(), "42", validRequest())
	require.NoError(t, err)

	sub, err := ledger.Get(context.Background(), receipt.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusReceived, sub.Status)
	queue.AssertExpectations(t)
}

func TestStatusIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	receipt, err := f.disp.Submit(ctx, "42", validRequest())
	require.NoError(t, err)

	sub, err := f.disp.Status(ctx, "42", receipt.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusReceived, sub.Status)

	_, err = f.disp.Status(ctx, "99", receipt.SubmissionID)
	assert.ErrorIs(t, err, submission.ErrNotFound)

	_, err = f.disp.Status(ctx, "42", "nope")
	assert.ErrorIs(t, err, submission.ErrNotFound)
}
