package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/ui"
)

type fakeBackend struct {
	mu           sync.Mutex
	questions    []model.Question
	questionsErr error
	startErr     error
	submitErr    error
	submitGate   chan struct{} // when non-nil, Submit blocks until closed

	questionCalls int
	startCalls    int
	submitCalls   int
	lastExamID    int
	lastAnswers   []model.Answer
}

func (f *fakeBackend) Questions(ctx context.Context, token string, examID int) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionCalls++
	return f.questions, f.questionsErr
}

func (f *fakeBackend) StartExam(ctx context.Context, token string, examID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startErr
}

func (f *fakeBackend) SubmitExam(ctx context.Context, token string, examID int, answers []model.Answer) error {
	f.mu.Lock()
	f.submitCalls++
	f.lastExamID = examID
	f.lastAnswers = answers
	gate := f.submitGate
	err := f.submitErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

type fakeCapture struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeCapture) Start(ctx context.Context, token string, userID, examID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

type fakeStore struct {
	mu      sync.Mutex
	sess    *model.Session
	cleared int
}

func (f *fakeStore) Current() *model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return nil
	}
	out := *f.sess
	return &out
}

func (f *fakeStore) ClearActiveExam() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	if f.sess != nil {
		f.sess.ActiveExamID = 0
	}
	return nil
}

type recordPanel struct {
	mu         sync.Mutex
	fails      []ui.ErrCode
	highlights [][]int
}

func (p *recordPanel) Info(string) {}

func (p *recordPanel) Fail(code ui.ErrCode, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fails = append(p.fails, code)
}

func (p *recordPanel) Indicator(model.IndicatorState) {}

func (p *recordPanel) HighlightQuestions(nums []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highlights = append(p.highlights, nums)
}

func (p *recordPanel) failed(code ui.ErrCode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.fails {
		if c == code {
			return true
		}
	}
	return false
}

func threeQuestions() []model.Question {
	return []model.Question{
		{Question: "q1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d"},
		{Question: "q2", OptionA: "a", OptionB: "b"},
		{Question: "q3", OptionA: "a", OptionB: "b", OptionC: "c"},
	}
}

func activeSession() *model.Session {
	return &model.Session{
		UserID: 3, Username: "amira", Role: model.RoleStudent,
		Token: "tok", ActiveExamID: 7,
	}
}

func newTestController(backend *fakeBackend, capture *fakeCapture, store *fakeStore, panel *recordPanel) *Controller {
	return NewController(backend, capture, store, panel, zerolog.Nop())
}

func TestBeginMissingPrerequisites(t *testing.T) {
	tests := []struct {
		name string
		sess *model.Session
	}{
		{"no session", nil},
		{"no token", &model.Session{UserID: 3, Role: model.RoleStudent, ActiveExamID: 7}},
		{"no subject", &model.Session{Role: model.RoleStudent, Token: "tok", ActiveExamID: 7}},
		{"no selected exam", &model.Session{UserID: 3, Role: model.RoleStudent, Token: "tok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{questions: threeQuestions()}
			capture := &fakeCapture{}
			panel := &recordPanel{}
			ctrl := newTestController(backend, capture, &fakeStore{sess: tt.sess}, panel)

			err := ctrl.Begin(context.Background())
			require.ErrorIs(t, err, ErrAborted)
			assert.Equal(t, StateAborted, ctrl.State())
			assert.True(t, panel.failed(ui.ErrMissingExamSession))
			assert.Equal(t, 0, backend.questionCalls, "no network on aborted entry")
			assert.Equal(t, 0, capture.starts, "capture never started")
		})
	}
}

func TestBeginLoadFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions(), questionsErr: errors.New("boom")}
	capture := &fakeCapture{}
	panel := &recordPanel{}
	ctrl := newTestController(backend, capture, &fakeStore{sess: activeSession()}, panel)

	err := ctrl.Begin(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, ctrl.State(), "failed load returns to idle for reload")
	assert.True(t, panel.failed(ui.ErrQuestionsUnavailable))
	assert.Equal(t, 0, capture.starts)

	// The user reloads and the backend recovers.
	backend.mu.Lock()
	backend.questionsErr = nil
	backend.mu.Unlock()
	require.NoError(t, ctrl.Begin(context.Background()))
	assert.Equal(t, StateAnswering, ctrl.State())
	assert.Equal(t, 1, capture.starts)
}

func TestBeginStartExamFailureDoesNotBlock(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions(), startErr: errors.New("conflict")}
	capture := &fakeCapture{}
	ctrl := newTestController(backend, capture, &fakeStore{sess: activeSession()}, &recordPanel{})

	require.NoError(t, ctrl.Begin(context.Background()))
	assert.Equal(t, StateAnswering, ctrl.State())
	assert.Equal(t, 1, capture.starts)
}

func TestSelectAnswer(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions()}
	ctrl := newTestController(backend, &fakeCapture{}, &fakeStore{sess: activeSession()}, &recordPanel{})
	require.NoError(t, ctrl.Begin(context.Background()))

	require.NoError(t, ctrl.SelectAnswer(1, "A"))
	require.NoError(t, ctrl.SelectAnswer(1, "D"), "reselection overwrites")
	got, ok := ctrl.Answer(1)
	require.True(t, ok)
	assert.Equal(t, "D", got)

	assert.ErrorIs(t, ctrl.SelectAnswer(0, "A"), ErrBadSelection)
	assert.ErrorIs(t, ctrl.SelectAnswer(4, "A"), ErrBadSelection)
	assert.ErrorIs(t, ctrl.SelectAnswer(2, "C"), ErrBadSelection, "question 2 only offers A and B")
	assert.ErrorIs(t, ctrl.SelectAnswer(1, "E"), ErrBadSelection)
}

func TestSelectAnswerOutsideAnswering(t *testing.T) {
	ctrl := newTestController(&fakeBackend{}, &fakeCapture{}, &fakeStore{}, &recordPanel{})
	assert.ErrorIs(t, ctrl.SelectAnswer(1, "A"), ErrWrongState)
}

func TestSubmitIncompleteMakesNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions()}
	panel := &recordPanel{}
	ctrl := newTestController(backend, &fakeCapture{}, &fakeStore{sess: activeSession()}, panel)
	require.NoError(t, ctrl.Begin(context.Background()))

	require.NoError(t, ctrl.SelectAnswer(2, "B"))
	err := ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrIncomplete)

	assert.Equal(t, 0, backend.submitCalls)
	assert.True(t, panel.failed(ui.ErrIncompleteAnswers))
	require.Len(t, panel.highlights, 1)
	assert.Equal(t, []int{1, 3}, panel.highlights[0])
	assert.Equal(t, StateAnswering, ctrl.State())
}

func TestSubmitSuccess(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions()}
	capture := &fakeCapture{}
	store := &fakeStore{sess: activeSession()}
	ctrl := newTestController(backend, capture, store, &recordPanel{})
	require.NoError(t, ctrl.Begin(context.Background()))

	require.NoError(t, ctrl.SelectAnswer(1, "B"))
	require.NoError(t, ctrl.SelectAnswer(2, "A"))
	require.NoError(t, ctrl.SelectAnswer(3, "C"))
	require.NoError(t, ctrl.Submit(context.Background()))

	assert.Equal(t, StateSubmitted, ctrl.State())
	assert.Equal(t, 1, backend.submitCalls)
	assert.Equal(t, 7, backend.lastExamID)
	assert.Equal(t, []model.Answer{
		{QuestionNumber: 1, SelectedOption: "B"},
		{QuestionNumber: 2, SelectedOption: "A"},
		{QuestionNumber: 3, SelectedOption: "C"},
	}, backend.lastAnswers, "answers are ordered by question number")

	assert.Equal(t, 1, capture.stops, "capture torn down on success")
	assert.Equal(t, 1, store.cleared, "exam selection cleared")

	// A submitted attempt cannot be submitted again.
	err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrWrongState)
	assert.Equal(t, 1, backend.submitCalls)
}

func TestSubmitFailureIsResubmittable(t *testing.T) {
	backend := &fakeBackend{questions: threeQuestions(), submitErr: errors.New("500")}
	capture := &fakeCapture{}
	store := &fakeStore{sess: activeSession()}
	panel := &recordPanel{}
	ctrl := newTestController(backend, capture, store, panel)
	require.NoError(t, ctrl.Begin(context.Background()))

	for i := 1; i <= 3; i++ {
		require.NoError(t, ctrl.SelectAnswer(i, "A"))
	}

	require.Error(t, ctrl.Submit(context.Background()))
	assert.Equal(t, StateAnswering, ctrl.State())
	assert.True(t, panel.failed(ui.ErrSubmitFailed))
	assert.Equal(t, 0, capture.stops, "capture keeps running while resubmittable")
	assert.Equal(t, 0, store.cleared)

	backend.mu.Lock()
	backend.submitErr = nil
	backend.mu.Unlock()
	require.NoError(t, ctrl.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, ctrl.State())
	assert.Equal(t, 2, backend.submitCalls)
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{questions: threeQuestions(), submitGate: gate}
	ctrl := newTestController(backend, &fakeCapture{}, &fakeStore{sess: activeSession()}, &recordPanel{})
	require.NoError(t, ctrl.Begin(context.Background()))
	for i := 1; i <= 3; i++ {
		require.NoError(t, ctrl.SelectAnswer(i, "A"))
	}

	first := make(chan error, 1)
	go func() { first <- ctrl.Submit(context.Background()) }()

	// Wait until the first submission is on the wire.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.submitCalls == 1
	}, 2*time.Second, 5*time.Millisecond)

	err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(gate)
	require.NoError(t, <-first)
	assert.Equal(t, 1, backend.submitCalls, "exactly one submission reached the network")
}

func TestAbortSafeInAnyState(t *testing.T) {
	capture := &fakeCapture{}
	ctrl := newTestController(&fakeBackend{}, capture, &fakeStore{}, &recordPanel{})

	ctrl.Abort()
	ctrl.Abort()
	assert.Equal(t, 2, capture.stops)
}
