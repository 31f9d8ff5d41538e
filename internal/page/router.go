// Package page holds one authoritative controller per role page: login,
// student home, the proctored exam page, the invigilator panel, and the
// admin dashboard. The router runs the navigation guard before every page,
// so no controller ever sees a missing or mismatched credential.
package page

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/config"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// ErrQuit is returned by a controller when the user asked to leave the
// agent entirely.
var ErrQuit = errors.New("quit")

// Controller runs one page and names the page to go to next.
type Controller interface {
	Run(ctx context.Context) (guard.Page, error)
}

// Router owns page-to-page navigation.
type Router struct {
	cfg    *config.Config
	client *api.Client
	store  *session.Store
	jnl    *journal.Journal // may be nil
	panel  ui.Panel
	input  Input
	log    zerolog.Logger
}

// NewRouter wires the shared collaborators every page needs.
func NewRouter(
	cfg *config.Config,
	client *api.Client,
	store *session.Store,
	jnl *journal.Journal,
	panel ui.Panel,
	input Input,
	log zerolog.Logger,
) *Router {
	return &Router{
		cfg:    cfg,
		client: client,
		store:  store,
		jnl:    jnl,
		panel:  panel,
		input:  input,
		log:    log.With().Str("component", "router").Logger(),
	}
}

// Run loops pages until the user quits or the context ends. Every load runs
// the guard synchronously first; only after its verdict does a controller
// get to touch the network.
func (r *Router) Run(ctx context.Context, start guard.Page) error {
	current := start
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		decision := guard.Check(current, r.store.Current())
		if decision.ClearSession {
			if err := r.store.Clear(); err != nil {
				r.log.Warn().Err(err).Msg("Failed to clear session")
			}
		}
		if decision.ClearActiveExam {
			if err := r.store.ClearActiveExam(); err != nil {
				r.log.Warn().Err(err).Msg("Failed to clear exam selection")
			}
		}
		if decision.Action == guard.Redirect {
			r.log.Debug().
				Str("from", string(current)).
				Str("to", string(decision.Target)).
				Msg("Guard redirect")
			current = decision.Target
			continue
		}

		next, err := r.controllerFor(current).Run(ctx)
		if err != nil {
			if errors.Is(err, ErrQuit) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			// Page-level errors were already surfaced on the panel; keep
			// navigating.
			r.log.Debug().Err(err).Str("page", string(current)).Msg("Page ended with error")
		}
		current = next
	}
}

func (r *Router) controllerFor(p guard.Page) Controller {
	switch p {
	case guard.PageStudentHome:
		return NewStudentHome(r.client, r.store, r.panel, r.input, r.log)
	case guard.PageExam:
		return NewExamPage(r.cfg, r.client, r.store, r.jnl, r.panel, r.input, r.log)
	case guard.PageInvigilatorHome:
		return NewInvigilatorHome(r.cfg, r.client, r.store, r.panel, r.input, r.log)
	case guard.PageAdminDashboard:
		return NewAdminDashboard(r.client, r.store, r.jnl, r.panel, r.input, r.log)
	default:
		return NewLoginPage(r.client, r.store, r.panel, r.input, r.log)
	}
}
