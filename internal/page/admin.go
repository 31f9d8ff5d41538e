package page

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/report"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// AdminDashboard lists the user directory and exports activity reports.
type AdminDashboard struct {
	client *api.Client
	store  *session.Store
	jnl    *journal.Journal
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewAdminDashboard creates the admin controller.
func NewAdminDashboard(
	client *api.Client,
	store *session.Store,
	jnl *journal.Journal,
	panel ui.Panel,
	input Input,
	log zerolog.Logger,
) *AdminDashboard {
	return &AdminDashboard{
		client: client,
		store:  store,
		jnl:    jnl,
		panel:  panel,
		input:  input,
		log:    log.With().Str("page", "admin").Logger(),
	}
}

// Run shows the directory and handles admin actions. A 401 anywhere means
// the credential has expired and the whole session is destroyed.
func (p *AdminDashboard) Run(ctx context.Context) (guard.Page, error) {
	sess := p.store.Current()
	p.panel.Info(fmt.Sprintf("Signed in as %s", sess.Username))

	if next, done := p.renderDirectory(ctx, sess.Token); done {
		return next, nil
	}

	for {
		line, err := p.input.ReadLine("admin> ")
		if err != nil {
			return guard.PageAdminDashboard, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "users":
			if next, done := p.renderDirectory(ctx, sess.Token); done {
				return next, nil
			}
		case "delete":
			if len(fields) != 2 {
				p.panel.Info("usage: delete <user-id>")
				continue
			}
			p.deleteUser(ctx, sess.Token, fields[1])
		case "report":
			if len(fields) != 2 {
				p.panel.Info("usage: report <path.xlsx>")
				continue
			}
			p.exportReport(ctx, sess.Token, fields[1])
		case "csv":
			if len(fields) != 2 {
				p.panel.Info("usage: csv <path.csv>")
				continue
			}
			p.exportCSV(ctx, sess.Token, fields[1])
		case "logout":
			if err := p.store.Clear(); err != nil {
				p.log.Warn().Err(err).Msg("Failed to clear session")
			}
			return guard.PageLogin, nil
		case "quit":
			return guard.PageAdminDashboard, ErrQuit
		default:
			p.panel.Info("commands: users | delete <user-id> | report <path.xlsx> | csv <path.csv> | logout | quit")
		}
	}
}

// renderDirectory lists all users. done is true when the session expired
// and navigation must leave the page.
func (p *AdminDashboard) renderDirectory(ctx context.Context, token string) (guard.Page, bool) {
	users, err := p.client.ListUsers(ctx, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			p.panel.Fail(ui.ErrSessionExpired, "")
			if clearErr := p.store.Clear(); clearErr != nil {
				p.log.Warn().Err(clearErr).Msg("Failed to clear session")
			}
			return guard.PageLogin, true
		}
		p.panel.Fail(ui.ErrDirectoryUnavailable, api.Detail(err))
		return guard.PageAdminDashboard, false
	}
	for _, u := range users {
		p.panel.Info(fmt.Sprintf("user %d: %s (%s)", u.ID, u.Username, u.Role))
	}
	return guard.PageAdminDashboard, false
}

// deleteUser removes one directory entry.
func (p *AdminDashboard) deleteUser(ctx context.Context, token, rawID string) {
	userID, err := strconv.Atoi(rawID)
	if err != nil || userID <= 0 {
		p.panel.Info("Invalid user ID.")
		return
	}
	if err := p.client.DeleteUser(ctx, token, userID); err != nil {
		p.panel.Fail(ui.ErrDirectoryUnavailable, api.Detail(err))
		return
	}
	p.panel.Info(fmt.Sprintf("User %d deleted.", userID))
}

// exportReport writes the XLSX workbook of students, detections, and local
// capture summaries.
func (p *AdminDashboard) exportReport(ctx context.Context, token, path string) {
	users, err := p.client.ListUsers(ctx, token)
	if err != nil {
		p.panel.Fail(ui.ErrDirectoryUnavailable, api.Detail(err))
		return
	}
	detections, err := p.client.UnusualDetections(ctx, token)
	if err != nil {
		p.panel.Fail(ui.ErrDetectionsFetchFailed, api.Detail(err))
		return
	}

	summaries := p.summarize(detections)
	exporter := report.NewExporter(p.log)
	if err := exporter.WriteXLSX(path, users, detections, summaries); err != nil {
		p.panel.Info(fmt.Sprintf("Report export failed: %v", err))
		return
	}
	p.panel.Info(fmt.Sprintf("Report written to %s", path))
}

// exportCSV writes the flat detection table.
func (p *AdminDashboard) exportCSV(ctx context.Context, token, path string) {
	detections, err := p.client.UnusualDetections(ctx, token)
	if err != nil {
		p.panel.Fail(ui.ErrDetectionsFetchFailed, api.Detail(err))
		return
	}

	f, err := os.Create(path)
	if err != nil {
		p.panel.Info(fmt.Sprintf("CSV export failed: %v", err))
		return
	}
	defer f.Close()

	exporter := report.NewExporter(p.log)
	if err := exporter.WriteCSV(f, detections); err != nil {
		p.panel.Info(fmt.Sprintf("CSV export failed: %v", err))
		return
	}
	p.panel.Info(fmt.Sprintf("CSV written to %s", path))
}

// summarize pulls the local journal aggregate for every exam seen in the
// detection feed. Nil journal means no local capture history.
func (p *AdminDashboard) summarize(detections []model.Detection) map[int]journal.Summary {
	if p.jnl == nil {
		return nil
	}
	summaries := make(map[int]journal.Summary)
	for _, d := range detections {
		if _, seen := summaries[d.ExamID]; seen {
			continue
		}
		s, err := p.jnl.Summarize(d.ExamID)
		if err != nil {
			p.log.Warn().Err(err).Int("exam_id", d.ExamID).Msg("Journal summary failed")
			continue
		}
		summaries[d.ExamID] = s
	}
	return summaries
}
