// Package exam drives one student attempt from entry to submission: load
// the questions, track answer selections, gate the single submission, and
// tear down proctoring capture when the attempt ends.
package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// State is the attempt lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateAnswering  State = "answering"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateAborted    State = "aborted"
)

// Controller errors.
var (
	// ErrAborted means the session prerequisites (credential, subject,
	// selected exam) were missing on entry.
	ErrAborted = errors.New("missing exam session prerequisites")
	// ErrIncomplete means at least one question has no selected option;
	// nothing was sent to the network.
	ErrIncomplete = errors.New("not every question is answered")
	// ErrSubmitInFlight means a submission is already on the wire.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrBadSelection means the selection does not name a question or an
	// option the question offers.
	ErrBadSelection = errors.New("invalid question or option")
	// ErrWrongState means the operation is not legal in the current state.
	ErrWrongState = errors.New("operation not allowed in current state")
)

// Backend is the slice of the API client the controller needs.
type Backend interface {
	Questions(ctx context.Context, token string, examID int) ([]model.Question, error)
	StartExam(ctx context.Context, token string, examID int) error
	SubmitExam(ctx context.Context, token string, examID int, answers []model.Answer) error
}

// Capture is the proctoring scheduler surface the controller drives. Stop
// must be idempotent.
type Capture interface {
	Start(ctx context.Context, token string, userID, examID int)
	Stop()
}

// SessionStore is what the controller needs from the session layer.
type SessionStore interface {
	Current() *model.Session
	ClearActiveExam() error
}

// Controller is the state machine for one attempt. It exclusively owns the
// question list and the answer map.
type Controller struct {
	backend Backend
	capture Capture
	store   SessionStore
	panel   ui.Panel
	log     zerolog.Logger

	mu        sync.Mutex
	state     State
	examID    int
	userID    int
	token     string
	questions []model.Question
	answers   map[int]string // 1-based question number → option label
	inFlight  bool
}

// NewController creates an idle controller.
func NewController(backend Backend, capture Capture, store SessionStore, panel ui.Panel, log zerolog.Logger) *Controller {
	return &Controller{
		backend: backend,
		capture: capture,
		store:   store,
		panel:   panel,
		log:     log.With().Str("component", "exam_controller").Logger(),
		state:   StateIdle,
		answers: make(map[int]string),
	}
}

// Begin runs entry and loading: verify prerequisites, fetch the questions,
// record the attempt start, and hand the media feed to the capture
// scheduler. On missing prerequisites the controller aborts and the caller
// routes back to exam selection.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: begin from %s", ErrWrongState, c.state)
	}

	sess := c.store.Current()
	if sess == nil || sess.Token == "" || sess.UserID == 0 || !sess.HasActiveExam() {
		c.state = StateAborted
		c.mu.Unlock()
		c.panel.Fail(ui.ErrMissingExamSession, "")
		return ErrAborted
	}

	c.state = StateLoading
	c.examID = sess.ActiveExamID
	c.userID = sess.UserID
	c.token = sess.Token
	c.mu.Unlock()

	questions, err := c.backend.Questions(ctx, c.token, c.examID)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		// Visible message, no automatic retry; the user may reload.
		c.panel.Fail(ui.ErrQuestionsUnavailable, api.Detail(err))
		return fmt.Errorf("load questions: %w", err)
	}

	c.mu.Lock()
	c.questions = questions
	c.state = StateAnswering
	c.mu.Unlock()

	// Best-effort: a failure to record the start never blocks the exam.
	if err := c.backend.StartExam(ctx, c.token, c.examID); err != nil {
		c.log.Warn().Err(err).Int("exam_id", c.examID).Msg("Failed to record exam start")
	}

	c.capture.Start(ctx, c.token, c.userID, c.examID)
	c.log.Info().Int("exam_id", c.examID).Int("questions", len(questions)).Msg("Attempt started")
	return nil
}

// SelectAnswer records the option for the 1-based question number,
// overwriting any prior selection. No validation of completeness happens
// until submission.
func (c *Controller) SelectAnswer(questionNumber int, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAnswering {
		return fmt.Errorf("%w: select in %s", ErrWrongState, c.state)
	}
	if questionNumber < 1 || questionNumber > len(c.questions) {
		return fmt.Errorf("%w: question %d", ErrBadSelection, questionNumber)
	}

	q := c.questions[questionNumber-1]
	valid := false
	for _, label := range q.OptionLabels() {
		if label == option {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: option %q for question %d", ErrBadSelection, option, questionNumber)
	}

	c.answers[questionNumber] = option
	return nil
}

// Submit performs the single idempotent submission. Re-entry while a
// submission is on the wire is rejected without a second network call.
// Incomplete answers are rejected locally with per-question markers and no
// network call at all. On success capture stops, the media feed is
// released, and the exam selection is cleared; on failure the attempt
// returns to answering and may be resubmitted.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	if c.state != StateAnswering {
		c.mu.Unlock()
		return fmt.Errorf("%w: submit from %s", ErrWrongState, c.state)
	}

	missing := c.missingLocked()
	if len(missing) > 0 {
		c.mu.Unlock()
		c.panel.HighlightQuestions(missing)
		c.panel.Fail(ui.ErrIncompleteAnswers, "")
		return ErrIncomplete
	}

	answers := make([]model.Answer, len(c.questions))
	for i := range c.questions {
		answers[i] = model.Answer{
			QuestionNumber: i + 1,
			SelectedOption: c.answers[i+1],
		}
	}

	c.inFlight = true
	c.state = StateSubmitting
	examID, token := c.examID, c.token
	c.mu.Unlock()

	err := c.backend.SubmitExam(ctx, token, examID, answers)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.state = StateAnswering
		c.mu.Unlock()
		c.panel.Fail(ui.ErrSubmitFailed, api.Detail(err))
		return fmt.Errorf("submit exam: %w", err)
	}
	c.state = StateSubmitted
	c.mu.Unlock()

	// Teardown before anything else: capture must be fully cancelled and
	// the media feed released before the page navigates away.
	c.capture.Stop()
	if err := c.store.ClearActiveExam(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear exam selection")
	}

	c.panel.Info("Answers submitted successfully.")
	c.log.Info().Int("exam_id", examID).Msg("Attempt submitted")
	return nil
}

// Abort tears down capture on error paths and navigation away. Safe to
// call in any state, any number of times.
func (c *Controller) Abort() {
	c.capture.Stop()
}

// State returns the current lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Questions returns the loaded question list.
func (c *Controller) Questions() []model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions
}

// Answer returns the recorded option for a question, if any.
func (c *Controller) Answer(questionNumber int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opt, ok := c.answers[questionNumber]
	return opt, ok
}

// missingLocked lists 1-based question numbers lacking a selection.
func (c *Controller) missingLocked() []int {
	var missing []int
	for i := 1; i <= len(c.questions); i++ {
		if _, ok := c.answers[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}
