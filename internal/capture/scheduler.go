// Package capture owns the proctoring evidence pipeline during an attempt:
// two independent repeating uploads (camera frames, screen context) that
// run from the moment the student reaches the questions until submission
// or logout tears them down.
package capture

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/ingest"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/schedule"
	"github.com/examtrace/proctor-agent/internal/ui"
)

// A frame older than this is treated as no feed at all: the extension has
// stopped posting and uploading the stale image would be evidence of
// nothing.
const maxFrameAge = 15 * time.Second

// Uploader is the slice of the backend client the scheduler needs.
type Uploader interface {
	UploadFrame(ctx context.Context, token string, userID, examID int, frame []byte) (*model.Verdict, error)
	LogScreen(ctx context.Context, userID, examID int, sc model.ScreenContext) error
}

// Scheduler drives the two evidence channels. The camera/context feed is
// exclusively owned by the scheduler for the attempt's duration; nothing
// else reads or closes it.
type Scheduler struct {
	uploader Uploader
	feed     *ingest.Feed
	jnl      *journal.Journal // optional; nil disables the local audit trail
	panel    ui.Panel
	log      zerolog.Logger

	frameTask  *schedule.Task
	screenTask *schedule.Task

	token  string
	userID int
	examID int

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler builds a Scheduler with the given cadences.
func NewScheduler(
	up Uploader,
	feed *ingest.Feed,
	jnl *journal.Journal,
	panel ui.Panel,
	clock schedule.Clock,
	log zerolog.Logger,
	frameEvery, screenEvery time.Duration,
) *Scheduler {
	s := &Scheduler{
		uploader: up,
		feed:     feed,
		jnl:      jnl,
		panel:    panel,
		log:      log.With().Str("component", "capture_scheduler").Logger(),
	}
	s.frameTask = schedule.NewTask("frame_capture", frameEvery, clock, s.log, s.frameTick)
	s.screenTask = schedule.NewTask("screen_metadata", screenEvery, clock, s.log, s.screenTick)
	return s
}

// Start begins both repeating uploads for the given attempt. If no camera
// feed has arrived yet, the student sees "proctoring unavailable" but the
// exam proceeds; capture recovers on its own once frames appear.
func (s *Scheduler) Start(ctx context.Context, token string, userID, examID int) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.token = token
	s.userID = userID
	s.examID = examID
	s.mu.Unlock()

	if _, _, ok := s.feed.LatestFrame(); !ok {
		s.panel.Fail(ui.ErrProctoringUnavailable, "")
		s.panel.Indicator(model.IndicatorUnavailable)
	}

	s.frameTask.Start(ctx)
	s.screenTask.Start(ctx)
	s.log.Info().Int("exam_id", examID).Msg("Capture started")
}

// Stop cancels both repeating uploads and releases the media feed. It is
// idempotent: logout, successful submission, and navigation away all call
// it, in any order. Tasks are fully stopped (not merely flagged) before
// the feed is closed, so no tick can fire against a released stream.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasStarted := s.started
	s.mu.Unlock()

	if wasStarted {
		s.frameTask.Stop()
		s.screenTask.Stop()
	}
	s.feed.Close()
	s.log.Info().Msg("Capture stopped")
}

// Running reports whether capture is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// frameTick samples the newest camera frame and uploads it. Failures
// degrade the indicator but never stop the cadence; transient network
// trouble must not block the exam.
func (s *Scheduler) frameTick(ctx context.Context) {
	tick := model.NewCaptureTick(model.TickFrame, s.userID, s.examID)

	frame, at, ok := s.feed.LatestFrame()
	if !ok || time.Since(at) > maxFrameAge {
		s.panel.Indicator(model.IndicatorUnavailable)
		s.record(tick, journal.OutcomeSkipped, nil)
		return
	}

	verdict, err := s.uploader.UploadFrame(ctx, s.token, s.userID, s.examID, frame)
	if err != nil {
		s.log.Warn().Err(err).Msg("Frame upload failed")
		s.panel.Indicator(model.IndicatorDegraded)
		s.record(tick, journal.OutcomeFailed, nil)
		return
	}

	if verdict.Count > 0 {
		s.panel.Indicator(model.IndicatorAlert)
	} else {
		s.panel.Indicator(model.IndicatorClear)
	}
	s.record(tick, journal.OutcomeOK, verdict)
}

// screenTick uploads the newest tab-context sample. This channel is
// advisory: failures are logged and nothing is shown to the student.
func (s *Scheduler) screenTick(ctx context.Context) {
	tick := model.NewCaptureTick(model.TickScreen, s.userID, s.examID)

	sc, _, ok := s.feed.LatestContext()
	if !ok {
		// No extension sample yet; report the agent's own identity so the
		// backend still sees a heartbeat on this channel.
		sc = model.ScreenContext{AppName: agentIdentity()}
	}

	if err := s.uploader.LogScreen(ctx, s.userID, s.examID, sc); err != nil {
		s.log.Debug().Err(err).Msg("Screen metadata upload failed")
		s.record(tick, journal.OutcomeFailed, nil)
		return
	}
	s.record(tick, journal.OutcomeOK, nil)
}

func (s *Scheduler) record(tick model.CaptureTick, outcome journal.Outcome, verdict *model.Verdict) {
	if s.jnl == nil {
		return
	}
	e := journal.Entry{
		TickID:     tick.ID.String(),
		Kind:       string(tick.Kind),
		UserID:     tick.UserID,
		ExamID:     tick.ExamID,
		CapturedAt: tick.CapturedAt,
		Outcome:    outcome,
	}
	if verdict != nil {
		e.SuspiciousCount = verdict.Count
		e.MovementType = verdict.MovementType
	}
	if err := s.jnl.Record(e); err != nil {
		s.log.Warn().Err(err).Msg("Journal write failed")
	}
}

// agentIdentity is the user-agent analog reported on the advisory channel.
func agentIdentity() string {
	return fmt.Sprintf("proctor-agent (%s; %s)", runtime.GOOS, runtime.GOARCH)
}
