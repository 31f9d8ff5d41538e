package page

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// StudentHome lists the exams available to the student and records the
// selection that moves them to the proctored exam page.
type StudentHome struct {
	client *api.Client
	store  *session.Store
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewStudentHome creates the student home controller.
func NewStudentHome(client *api.Client, store *session.Store, panel ui.Panel, input Input, log zerolog.Logger) *StudentHome {
	return &StudentHome{
		client: client,
		store:  store,
		panel:  panel,
		input:  input,
		log:    log.With().Str("page", "student_home").Logger(),
	}
}

// Run loads the available exams and handles selection. A failed listing is
// a visible message with no automatic retry; the user may reload.
func (p *StudentHome) Run(ctx context.Context) (guard.Page, error) {
	sess := p.store.Current()
	p.panel.Info(fmt.Sprintf("Signed in as %s", sess.Username))

	exams, err := p.client.AvailableExams(ctx, sess.Token)
	if err != nil {
		if api.IsUnauthorized(err) {
			return p.expire()
		}
		p.panel.Fail(ui.ErrExamsUnavailable, api.Detail(err))
	} else if len(exams) == 0 {
		p.panel.Info("No exams available.")
	} else {
		for _, exam := range exams {
			desc := exam.Description
			if desc == "" {
				desc = "No description provided."
			}
			p.panel.Info(fmt.Sprintf("[%d] %s - %s", exam.ID, exam.Title, desc))
		}
	}

	for {
		line, err := p.input.ReadLine("student> ")
		if err != nil {
			return guard.PageStudentHome, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			if len(fields) != 2 {
				p.panel.Info("usage: start <exam-id>")
				continue
			}
			examID, err := strconv.Atoi(fields[1])
			if err != nil || examID <= 0 {
				p.panel.Info("Invalid exam ID.")
				continue
			}
			if err := p.store.SetActiveExam(examID); err != nil {
				p.panel.Fail(ui.ErrMissingExamSession, "")
				continue
			}
			return guard.PageExam, nil
		case "reload":
			return guard.PageStudentHome, nil
		case "logout":
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "quit":
			return guard.PageStudentHome, ErrQuit
		default:
			p.panel.Info("commands: start <exam-id> | reload | logout | quit")
		}
	}
}

// expire clears the session after the backend rejected the credential.
func (p *StudentHome) expire() (guard.Page, error) {
	p.panel.Fail(ui.ErrSessionExpired, "")
	if err := p.store.Clear(); err != nil {
		p.log.Warn().Err(err).Msg("Failed to clear session")
	}
	return guard.PageLogin, nil
}
