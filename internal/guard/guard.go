// Package guard decides, before anything else on a page runs, whether the
// user belongs there. It is the only component that handles missing or
// mismatched credentials; page controllers never see those states.
package guard

import (
	"github.com/examtrace/proctor-agent/internal/model"
)

// Page identifies one of the agent's role-specific pages.
type Page string

const (
	PageLogin           Page = "login"
	PageAdminDashboard  Page = "dashboard"
	PageStudentHome     Page = "student"
	PageInvigilatorHome Page = "invigilator"
	PageExam            Page = "exam"
)

// homePage maps each role to its landing page.
func homePage(role model.Role) Page {
	switch role {
	case model.RoleAdmin:
		return PageAdminDashboard
	case model.RoleStudent:
		return PageStudentHome
	case model.RoleInvigilator:
		return PageInvigilatorHome
	}
	return PageLogin
}

// Action is the guard's verdict for a page load.
type Action int

const (
	// Stay means the page may proceed.
	Stay Action = iota
	// Redirect means control must move to Decision.Target before any
	// network call happens.
	Redirect
)

// Decision is the outcome of a guard check.
type Decision struct {
	Action Action
	Target Page
	// ClearActiveExam is set when entering the student home must drop a
	// stale exam selection left by a prior attempt.
	ClearActiveExam bool
	// ClearSession is set when the stored credential must be destroyed
	// (unauthenticated redirects keep nothing behind).
	ClearSession bool
}

// Check computes the redirect decision for loading page with the given
// session (nil when logged out). It is pure and synchronous: no network,
// no I/O, so it always completes before a page can flash unauthorized
// content.
//
// The exam page is exempt from auto-redirect once entered, so a proctored
// attempt in progress is never interrupted by routing.
func Check(page Page, sess *model.Session) Decision {
	if page == PageExam {
		// Prerequisite checks (credential, active exam) belong to the exam
		// controller, which aborts to exam selection itself.
		return Decision{Action: Stay}
	}

	if sess == nil {
		if page == PageLogin {
			return Decision{Action: Stay}
		}
		return Decision{Action: Redirect, Target: PageLogin}
	}

	if !sess.Role.Valid() {
		return Decision{Action: Redirect, Target: PageLogin, ClearSession: true}
	}

	home := homePage(sess.Role)
	if page == home {
		return Decision{
			Action:          Stay,
			ClearActiveExam: sess.Role == model.RoleStudent && sess.HasActiveExam(),
		}
	}

	// Logged in on the wrong page (including login): go home. The session
	// is preserved; only a student's stale exam selection is dropped.
	return Decision{
		Action:          Redirect,
		Target:          home,
		ClearActiveExam: sess.Role == model.RoleStudent && sess.HasActiveExam(),
	}
}
