package page

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/capture"
	"github.com/examtrace/proctor-agent/internal/config"
	"github.com/examtrace/proctor-agent/internal/exam"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/ingest"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/schedule"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// ExamPage hosts one proctored attempt: it brings up the extension ingest
// endpoint, hands the media feed to the capture scheduler, and drives the
// attempt state machine from user commands.
type ExamPage struct {
	cfg    *config.Config
	client *api.Client
	store  *session.Store
	jnl    *journal.Journal
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewExamPage creates the exam page controller.
func NewExamPage(
	cfg *config.Config,
	client *api.Client,
	store *session.Store,
	jnl *journal.Journal,
	panel ui.Panel,
	input Input,
	log zerolog.Logger,
) *ExamPage {
	return &ExamPage{
		cfg:    cfg,
		client: client,
		store:  store,
		jnl:    jnl,
		panel:  panel,
		input:  input,
		log:    log.With().Str("page", "exam").Logger(),
	}
}

// Run executes the attempt. Capture teardown is guaranteed on every exit
// path: submission, logout, load failure, and plain navigation away all
// converge on the controller's idempotent Abort plus the ingest shutdown
// below.
func (p *ExamPage) Run(ctx context.Context) (guard.Page, error) {
	feed := ingest.NewFeed()
	srv := ingest.NewServer(feed, p.cfg.IngestAddr, p.cfg.AllowedOrigins, p.log)
	if err := srv.Start(); err != nil {
		// No extension feed is possible; the attempt proceeds unproctored
		// with a visible unavailable state.
		p.log.Error().Err(err).Msg("Ingest endpoint failed to start")
		p.panel.Fail(ui.ErrProctoringUnavailable, err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.log.Warn().Err(err).Msg("Ingest shutdown error")
		}
	}()

	sched := capture.NewScheduler(
		p.client, feed, p.jnl, p.panel, schedule.WallClock{}, p.log,
		p.cfg.FrameInterval, p.cfg.ScreenInterval,
	)
	ctrl := exam.NewController(p.client, sched, p.store, p.panel, p.log)
	defer ctrl.Abort()

	if err := ctrl.Begin(ctx); err != nil {
		if errors.Is(err, exam.ErrAborted) {
			// Back to exam selection; the guard takes it from there.
			return guard.PageStudentHome, nil
		}
		// Load failure: message is already on the panel, nothing retries
		// automatically. Offer reload or a way out.
		return p.failedLoadLoop()
	}

	p.renderQuestions(ctrl.Questions())

	for {
		line, err := p.input.ReadLine("exam> ")
		if err != nil {
			return guard.PageExam, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "answer":
			p.handleAnswer(ctrl, fields[1:])
		case "submit":
			if err := ctrl.Submit(ctx); err != nil {
				// Validation and submission failures are on the panel; the
				// attempt stays resubmittable.
				continue
			}
			// Submitted: capture is already stopped and the selection
			// cleared. The reference flow ends the session here.
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "questions":
			p.renderQuestions(ctrl.Questions())
		case "logout":
			ctrl.Abort()
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "quit":
			return guard.PageExam, ErrQuit
		default:
			p.panel.Info("commands: answer <n> <A-D> | submit | questions | logout | quit")
		}
	}
}

func (p *ExamPage) handleAnswer(ctrl *exam.Controller, args []string) {
	if len(args) != 2 {
		p.panel.Info("usage: answer <question-number> <option>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		p.panel.Info("Invalid question number.")
		return
	}
	option := strings.ToUpper(args[1])
	if err := ctrl.SelectAnswer(n, option); err != nil {
		p.panel.Info(fmt.Sprintf("Cannot record answer: %v", err))
	}
}

func (p *ExamPage) renderQuestions(questions []model.Question) {
	for i, q := range questions {
		p.panel.Info(fmt.Sprintf("Q%d: %s", i+1, q.Question))
		for _, label := range q.OptionLabels() {
			p.panel.Info(fmt.Sprintf("  %s. %s", label, optionText(q, label)))
		}
	}
}

func optionText(q model.Question, label string) string {
	switch label {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// failedLoadLoop waits for the user after a question-load failure.
func (p *ExamPage) failedLoadLoop() (guard.Page, error) {
	for {
		line, err := p.input.ReadLine("exam> ")
		if err != nil {
			return guard.PageExam, err
		}
		switch strings.TrimSpace(line) {
		case "reload":
			return guard.PageExam, nil
		case "back":
			return guard.PageStudentHome, nil
		case "logout":
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "quit":
			return guard.PageExam, ErrQuit
		default:
			p.panel.Info("commands: reload | back | logout | quit")
		}
	}
}
