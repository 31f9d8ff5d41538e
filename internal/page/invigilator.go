package page

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/config"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/monitor"
	"github.com/examtrace/proctor-agent/internal/schedule"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// InvigilatorHome runs the live monitoring panel: active students and
// flagged detections on independent poll cadences, with filter-by-exam and
// a per-student live view.
type InvigilatorHome struct {
	cfg    *config.Config
	client *api.Client
	store  *session.Store
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewInvigilatorHome creates the invigilator controller.
func NewInvigilatorHome(
	cfg *config.Config,
	client *api.Client,
	store *session.Store,
	panel ui.Panel,
	input Input,
	log zerolog.Logger,
) *InvigilatorHome {
	return &InvigilatorHome{
		cfg:    cfg,
		client: client,
		store:  store,
		panel:  panel,
		input:  input,
		log:    log.With().Str("page", "invigilator").Logger(),
	}
}

// Run starts both polls for the page's lifetime and handles panel actions.
func (p *InvigilatorHome) Run(ctx context.Context) (guard.Page, error) {
	sess := p.store.Current()
	p.panel.Info(fmt.Sprintf("Welcome, %s", sess.Username))

	poller := monitor.NewPoller(
		p.client, sess.Token, schedule.WallClock{}, p.log,
		p.cfg.PollInterval, p.renderView,
	)
	poller.Start(ctx)
	defer poller.Stop()

	for {
		line, err := p.input.ReadLine("invigilator> ")
		if err != nil {
			return guard.PageInvigilatorHome, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "monitor":
			if len(fields) != 2 {
				p.panel.Info("usage: monitor <exam-id>")
				continue
			}
			examID, err := strconv.Atoi(fields[1])
			if err != nil || examID <= 0 {
				p.panel.Info("Invalid exam ID.")
				continue
			}
			poller.Monitor(examID)
		case "clear":
			poller.ClearFilter()
		case "view":
			p.handleLiveView(ctx, poller, fields[1:])
		case "students":
			p.renderRoster(ctx, sess.Token)
		case "logout":
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "quit":
			return guard.PageInvigilatorHome, ErrQuit
		default:
			p.panel.Info("commands: monitor <exam-id> | clear | view <user-id> <exam-id> | students | logout | quit")
		}
	}
}

// renderView draws the merged panel after every poll. Each half reports
// its own failure inline; an empty student list names the active filter so
// "nobody matches" and "nobody is testing" read differently.
func (p *InvigilatorHome) renderView(view model.MonitoringView) {
	if view.StudentsErr != nil {
		p.panel.Fail(ui.ErrStudentsFetchFailed, view.StudentsErr.Error())
	} else {
		visible := view.VisibleStudents()
		if len(visible) == 0 {
			if view.FilterExamID > 0 {
				p.panel.Info(fmt.Sprintf("No students currently taking exam %d.", view.FilterExamID))
			} else {
				p.panel.Info("No students currently taking exams.")
			}
		}
		for _, s := range visible {
			p.panel.Info(fmt.Sprintf("active: %s (user %d) on exam %d", s.Username, s.UserID, s.ExamID))
		}
	}

	if view.DetectionsErr != nil {
		p.panel.Fail(ui.ErrDetectionsFetchFailed, view.DetectionsErr.Error())
		return
	}
	for _, d := range view.Flagged {
		p.panel.Info(fmt.Sprintf("flagged: user %d exam %d: %s at %s", d.UserID, d.ExamID, d.MovementType, d.Timestamp))
	}
}

// handleLiveView is the drill-through into one student's attempt.
func (p *InvigilatorHome) handleLiveView(ctx context.Context, poller *monitor.Poller, args []string) {
	if len(args) != 2 {
		p.panel.Info("usage: view <user-id> <exam-id>")
		return
	}
	userID, err1 := strconv.Atoi(args[0])
	examID, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		p.panel.Info("Invalid user or exam ID.")
		return
	}

	frame, detections, err := poller.LiveView(ctx, userID, examID)
	if err != nil {
		p.panel.Fail(ui.ErrLiveViewUnavailable, err.Error())
		return
	}
	if frame != nil && frame.FrameImagePath != "" {
		p.panel.Info(fmt.Sprintf("last frame: %s at %s (%s)", frame.FrameImagePath, frame.Timestamp, frame.MovementType))
	} else {
		p.panel.Info("No recent frames captured.")
	}
	if len(detections) == 0 {
		p.panel.Info("No unusual detections.")
		return
	}
	for _, d := range detections {
		p.panel.Info(fmt.Sprintf("[%s] %s", d.Timestamp, d.MovementType))
	}
}

// renderRoster lists directory users with the student role.
func (p *InvigilatorHome) renderRoster(ctx context.Context, token string) {
	users, err := p.client.ListUsers(ctx, token)
	if err != nil {
		p.panel.Fail(ui.ErrDirectoryUnavailable, api.Detail(err))
		return
	}
	total := 0
	for _, u := range users {
		if model.NormalizeRole(u.Role) != model.RoleStudent {
			continue
		}
		total++
		p.panel.Info(fmt.Sprintf("student %d: %s", u.ID, u.Username))
	}
	p.panel.Info(fmt.Sprintf("%d student(s) registered", total))
}
