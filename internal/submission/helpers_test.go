package submission_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/gokatarajesh/quiz-results/internal/db/memory"
	"github.com/gokatarajesh/quiz-results/internal/notify"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	"github.com/gokatarajesh/quiz-results/internal/submission"
)

func capitalsQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:              "q1",
		Title:           "Capitals",
		DurationSeconds: 600,
		Status:          quiz.StatusApproved,
		Questions: []quiz.Question{
			{
				ID:     "qa",
				Points: 10,
				Answers: []quiz.Answer{
					{ID: "a1", Correct: true},
					{ID: "a2", Correct: true},
					{ID: "a3"},
				},
			},
			{
				ID:            "qb",
				Points:        5,
				PenaltyPoints: 1,
				Answers: []quiz.Answer{
					{ID: "b1", Correct: true},
					{ID: "b2"},
				},
			},
		},
	}
}

func intPtr(v int) *int { return &v }

func validRequest() submission.Request {
	return submission.Request{
		QuizID: "q1",
		Answers: []submission.AnswerInput{
			{QuestionID: "qa", AnswerIDs: []string{"a1"}},
			{QuestionID: "qb", AnswerIDs: []string{"b1"}},
		},
		TimeSpentSeconds: intPtr(120),
	}
}

type fixture struct {
	quizzes  *quiz.Static
	ledger   *memory.Ledger
	store    *memory.ResultStore
	queue    *submission.ChanQueue
	notifier *recordingNotifier
	disp     *submission.Dispatcher
	pipe     *submission.Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		quizzes:  quiz.NewStatic(capitalsQuiz()),
		ledger:   memory.NewLedger(),
		store:    memory.NewResultStore(),
		queue:    submission.NewChanQueue(64),
		notifier: &recordingNotifier{},
	}
	f.disp = submission.NewDispatcher(f.quizzes, f.ledger, f.queue, nil, zerolog.Nop())
	f.pipe = submission.NewPipeline(f.ledger, f.quizzes, f.store, f.notifier, nil, time.Minute, zerolog.Nop())
	return f
}

// drain processes everything currently queued.
func (f *fixture) drain(ctx context.Context) error {
	for {
		id, ok, err := f.queue.Dequeue(ctx, 10*time.Millisecond)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := f.pipe.Process(ctx, id); err != nil {
			return err
		}
	}
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Message
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
	return r.err
}

func (r *recordingNotifier) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.got...)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Create(ctx context.Context, sub submission.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockLedger) Get(ctx context.Context, id string) (submission.Submission, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(submission.Submission), args.Error(1)
}

func (m *mockLedger) Claim(ctx context.Context, id string, staleBefore time.Time) (submission.Submission, error) {
	args := m.Called(ctx, id, staleBefore)
	return args.Get(0).(submission.Submission), args.Error(1)
}

func (m *mockLedger) MarkPersisted(ctx context.Context, id, resultID string) error {
	return m.Called(ctx, id, resultID).Error(0)
}

func (m *mockLedger) MarkNotified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockLedger) MarkFailed(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockLedger) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockLedger) ListByPlayer(ctx context.Context, playerID string, limit int) ([]submission.Submission, error) {
	args := m.Called(ctx, playerID, limit)
	return args.Get(0).([]submission.Submission), args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	args := m.Called(ctx, timeout)
	return args.String(0), args.Bool(1), args.Error(2)
}
