// Package monitor drives the invigilator's live panel: two decoupled polls
// (active students, flagged detections) merged into one view, with a
// transient filter-by-exam and a per-student drill-through.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/schedule"
)

// Backend is the slice of the API client the poller needs.
type Backend interface {
	ActiveStudents(ctx context.Context, token string) ([]model.ActiveStudent, error)
	UnusualDetections(ctx context.Context, token string) ([]model.Detection, error)
	LatestFrame(ctx context.Context, token string, userID, examID int) (*model.LatestFrame, error)
}

// Poller owns the MonitoringView. Each poll rebuilds its half of the view
// wholesale; only the exam filter carries across ticks, and only explicit
// invigilator action mutates it.
type Poller struct {
	backend  Backend
	token    string
	log      zerolog.Logger
	onUpdate func(model.MonitoringView)

	studentsTask   *schedule.Task
	detectionsTask *schedule.Task

	mu   sync.Mutex
	view model.MonitoringView
}

// NewPoller creates a Poller. onUpdate is invoked after every completed
// poll with a snapshot of the merged view; it may be nil.
func NewPoller(
	backend Backend,
	token string,
	clock schedule.Clock,
	log zerolog.Logger,
	interval time.Duration,
	onUpdate func(model.MonitoringView),
) *Poller {
	p := &Poller{
		backend:  backend,
		token:    token,
		log:      log.With().Str("component", "monitor_poller").Logger(),
		onUpdate: onUpdate,
	}
	p.studentsTask = schedule.NewTask("active_students", interval, clock, p.log, p.pollStudents)
	p.detectionsTask = schedule.NewTask("unusual_detections", interval, clock, p.log, p.pollDetections)
	return p
}

// Start begins both polls. They run and fail independently; a broken
// students fetch never blocks the detections panel, and vice versa.
func (p *Poller) Start(ctx context.Context) {
	p.studentsTask.Start(ctx)
	p.detectionsTask.Start(ctx)
}

// Stop cancels both polls. Idempotent.
func (p *Poller) Stop() {
	p.studentsTask.Stop()
	p.detectionsTask.Stop()
}

// Monitor filters the student panel to one exam and refreshes it
// immediately rather than waiting for the next tick.
func (p *Poller) Monitor(examID int) {
	p.mu.Lock()
	p.view.FilterExamID = examID
	p.mu.Unlock()
	p.studentsTask.Fire()
}

// ClearFilter restores the unfiltered student panel, refreshing
// immediately.
func (p *Poller) ClearFilter() {
	p.mu.Lock()
	p.view.FilterExamID = 0
	p.mu.Unlock()
	p.studentsTask.Fire()
}

// View returns a snapshot of the merged panel state.
func (p *Poller) View() model.MonitoringView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// LiveView is the drill-through for one student's attempt: the most recent
// evidence frame plus the detections scoped to (subject, exam). The two
// fetches fail independently; a missing frame does not hide detections.
func (p *Poller) LiveView(ctx context.Context, userID, examID int) (*model.LatestFrame, []model.Detection, error) {
	frame, frameErr := p.backend.LatestFrame(ctx, p.token, userID, examID)

	all, err := p.backend.UnusualDetections(ctx, p.token)
	if err != nil {
		return frame, nil, err
	}

	scoped := make([]model.Detection, 0, len(all))
	for _, d := range all {
		if d.UserID == userID && d.ExamID == examID {
			scoped = append(scoped, d)
		}
	}

	if frameErr != nil {
		p.log.Warn().Err(frameErr).Int("user_id", userID).Msg("Latest frame unavailable")
		return nil, scoped, nil
	}
	return frame, scoped, nil
}

func (p *Poller) pollStudents(ctx context.Context) {
	students, err := p.backend.ActiveStudents(ctx, p.token)

	p.mu.Lock()
	if err != nil {
		p.log.Warn().Err(err).Msg("Active students poll failed")
		p.view.StudentsErr = err
	} else {
		p.view.ActiveStudents = students
		p.view.StudentsErr = nil
	}
	snapshot := p.view
	p.mu.Unlock()

	p.notify(snapshot)
}

func (p *Poller) pollDetections(ctx context.Context) {
	detections, err := p.backend.UnusualDetections(ctx, p.token)

	p.mu.Lock()
	if err != nil {
		p.log.Warn().Err(err).Msg("Detections poll failed")
		p.view.DetectionsErr = err
	} else {
		p.view.Flagged = detections
		p.view.DetectionsErr = nil
	}
	snapshot := p.view
	p.mu.Unlock()

	p.notify(snapshot)
}

func (p *Poller) notify(snapshot model.MonitoringView) {
	if p.onUpdate != nil {
		p.onUpdate(snapshot)
	}
}
