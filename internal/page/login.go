package page

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// LoginPage collects credentials, authenticates, and persists the session.
type LoginPage struct {
	client *api.Client
	store  *session.Store
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewLoginPage creates the login controller.
func NewLoginPage(client *api.Client, store *session.Store, panel ui.Panel, input Input, log zerolog.Logger) *LoginPage {
	return &LoginPage{
		client: client,
		store:  store,
		panel:  panel,
		input:  input,
		log:    log.With().Str("page", "login").Logger(),
	}
}

// Run prompts for credentials and logs in. A rejected login stays on the
// page; a response with an unrecognized role clears everything, since a
// session the agent cannot route is worse than none.
func (p *LoginPage) Run(ctx context.Context) (guard.Page, error) {
	username, err := p.input.ReadLine("username: ")
	if err != nil {
		return guard.PageLogin, err
	}
	if username == "quit" {
		return guard.PageLogin, ErrQuit
	}
	password, err := p.input.ReadLine("password: ")
	if err != nil {
		return guard.PageLogin, err
	}

	if username == "" || password == "" {
		p.panel.Fail(ui.ErrInvalidCredentials, "username and password are required")
		return guard.PageLogin, nil
	}

	resp, err := p.client.Login(ctx, username, password)
	if err != nil {
		p.panel.Fail(ui.ErrInvalidCredentials, api.Detail(err))
		return guard.PageLogin, nil
	}

	role := model.NormalizeRole(resp.Role)
	if !role.Valid() {
		if clearErr := p.store.Clear(); clearErr != nil {
			p.log.Warn().Err(clearErr).Msg("Failed to clear session")
		}
		p.panel.Fail(ui.ErrRoleUnknown, resp.Role)
		return guard.PageLogin, nil
	}

	// A fresh student session never starts with a stale exam selection.
	if err := p.store.Set(model.Session{
		UserID:   resp.ID,
		Username: username,
		Role:     role,
		Token:    resp.AccessToken,
	}); err != nil {
		p.panel.Fail(ui.ErrInvalidCredentials, "could not persist session")
		return guard.PageLogin, err
	}

	p.log.Info().Str("role", string(role)).Msg("Login succeeded")
	switch role {
	case model.RoleAdmin:
		return guard.PageAdminDashboard, nil
	case model.RoleInvigilator:
		return guard.PageInvigilatorHome, nil
	default:
		return guard.PageStudentHome, nil
	}
}
