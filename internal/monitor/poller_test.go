package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/schedule"
)

type fakeMonitorBackend struct {
	mu            sync.Mutex
	students      []model.ActiveStudent
	studentsErr   error
	detections    []model.Detection
	detectionsErr error
	frame         *model.LatestFrame
	frameErr      error

	studentCalls   int
	detectionCalls int
}

func (f *fakeMonitorBackend) ActiveStudents(ctx context.Context, token string) ([]model.ActiveStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studentCalls++
	return f.students, f.studentsErr
}

func (f *fakeMonitorBackend) UnusualDetections(ctx context.Context, token string) ([]model.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectionCalls++
	return f.detections, f.detectionsErr
}

func (f *fakeMonitorBackend) LatestFrame(ctx context.Context, token string, userID, examID int) (*model.LatestFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.frameErr
}

// updates collects view snapshots and lets tests wait for poll completion.
type updates struct {
	ch chan model.MonitoringView
}

func newUpdates() *updates {
	return &updates{ch: make(chan model.MonitoringView, 32)}
}

func (u *updates) onUpdate(v model.MonitoringView) {
	u.ch <- v
}

func (u *updates) next(t *testing.T) model.MonitoringView {
	t.Helper()
	select {
	case v := <-u.ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no view update")
		return model.MonitoringView{}
	}
}

func twoStudents() []model.ActiveStudent {
	return []model.ActiveStudent{
		{UserID: 3, Username: "amira", ExamID: 7},
		{UserID: 4, Username: "budi", ExamID: 9},
	}
}

func TestPollerMergesBothPanels(t *testing.T) {
	backend := &fakeMonitorBackend{
		students:   twoStudents(),
		detections: []model.Detection{{UserID: 3, ExamID: 7, MovementType: "looking_away"}},
	}
	u := newUpdates()
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Second, u.onUpdate)

	p.Start(context.Background())
	defer p.Stop()

	// Both immediate polls complete; after the second snapshot the view
	// carries both halves.
	u.next(t)
	u.next(t)

	view := p.View()
	assert.Len(t, view.ActiveStudents, 2)
	assert.Len(t, view.Flagged, 1)
	assert.NoError(t, view.StudentsErr)
	assert.NoError(t, view.DetectionsErr)
}

func TestPollerFailuresAreIndependent(t *testing.T) {
	backend := &fakeMonitorBackend{
		students:      twoStudents(),
		detectionsErr: errors.New("503"),
	}
	u := newUpdates()
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Second, u.onUpdate)

	p.Start(context.Background())
	defer p.Stop()
	u.next(t)
	u.next(t)

	view := p.View()
	assert.Len(t, view.ActiveStudents, 2, "students panel unaffected by detections failure")
	assert.Error(t, view.DetectionsErr)
	assert.NoError(t, view.StudentsErr)
}

func TestPollerKeepsStaleDataOnFailure(t *testing.T) {
	clock := schedule.NewManualClock()
	backend := &fakeMonitorBackend{students: twoStudents()}
	u := newUpdates()
	p := NewPoller(backend, "tok", clock, zerolog.Nop(), time.Second, u.onUpdate)

	p.Start(context.Background())
	defer p.Stop()
	u.next(t)
	u.next(t)

	// The backend goes down; the next tick fails both polls.
	backend.mu.Lock()
	backend.studentsErr = errors.New("timeout")
	backend.detectionsErr = errors.New("timeout")
	backend.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	clock.Tick()
	u.next(t)
	u.next(t)

	view := p.View()
	assert.Error(t, view.StudentsErr)
	assert.Len(t, view.ActiveStudents, 2, "last good data stays on the panel")

	// Recovery clears the error.
	backend.mu.Lock()
	backend.studentsErr = nil
	backend.detectionsErr = nil
	backend.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	clock.Tick()
	u.next(t)
	u.next(t)
	assert.NoError(t, p.View().StudentsErr)
}

func TestMonitorFiltersAndRefreshesImmediately(t *testing.T) {
	backend := &fakeMonitorBackend{students: twoStudents()}
	u := newUpdates()
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Hour, u.onUpdate)

	p.Start(context.Background())
	defer p.Stop()
	u.next(t)
	u.next(t)
	// Let the initial runs fully return so the fired refresh is not
	// swallowed by the in-flight guard.
	time.Sleep(20 * time.Millisecond)

	backend.mu.Lock()
	before := backend.studentCalls
	backend.mu.Unlock()

	// No clock tick: Monitor itself forces the refresh.
	p.Monitor(7)
	u.next(t)

	backend.mu.Lock()
	after := backend.studentCalls
	backend.mu.Unlock()
	assert.Greater(t, after, before, "filter change refreshes without waiting for the tick")

	view := p.View()
	assert.Equal(t, 7, view.FilterExamID)
	visible := view.VisibleStudents()
	require.Len(t, visible, 1)
	assert.Equal(t, "amira", visible[0].Username)

	time.Sleep(20 * time.Millisecond)
	p.ClearFilter()
	u.next(t)
	cleared := p.View()
	assert.Len(t, cleared.VisibleStudents(), 2)
}

func TestFilterSurvivesPollRebuild(t *testing.T) {
	clock := schedule.NewManualClock()
	backend := &fakeMonitorBackend{students: twoStudents()}
	u := newUpdates()
	p := NewPoller(backend, "tok", clock, zerolog.Nop(), time.Second, u.onUpdate)

	p.Start(context.Background())
	defer p.Stop()
	u.next(t)
	u.next(t)
	time.Sleep(20 * time.Millisecond)

	p.Monitor(9)
	u.next(t)
	time.Sleep(20 * time.Millisecond)

	clock.Tick()
	u.next(t)
	u.next(t)

	view := p.View()
	assert.Equal(t, 9, view.FilterExamID, "only invigilator action mutates the filter")
	visible := view.VisibleStudents()
	require.Len(t, visible, 1)
	assert.Equal(t, "budi", visible[0].Username)
}

func TestLiveView(t *testing.T) {
	backend := &fakeMonitorBackend{
		frame: &model.LatestFrame{FrameImagePath: "/frames/3.jpg", MovementType: "normal"},
		detections: []model.Detection{
			{UserID: 3, ExamID: 7, MovementType: "looking_away"},
			{UserID: 3, ExamID: 9, MovementType: "looking_away"},
			{UserID: 4, ExamID: 7, MovementType: "absent"},
		},
	}
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Second, nil)

	frame, detections, err := p.LiveView(context.Background(), 3, 7)
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, "/frames/3.jpg", frame.FrameImagePath)
	require.Len(t, detections, 1, "detections scoped to subject and exam")
	assert.Equal(t, "looking_away", detections[0].MovementType)
}

func TestLiveViewFrameFailureStillShowsDetections(t *testing.T) {
	backend := &fakeMonitorBackend{
		frameErr:   errors.New("404"),
		detections: []model.Detection{{UserID: 3, ExamID: 7, MovementType: "absent"}},
	}
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Second, nil)

	frame, detections, err := p.LiveView(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.Nil(t, frame)
	assert.Len(t, detections, 1)
}

func TestLiveViewDetectionsFailure(t *testing.T) {
	backend := &fakeMonitorBackend{detectionsErr: errors.New("500")}
	p := NewPoller(backend, "tok", schedule.NewManualClock(), zerolog.Nop(), time.Second, nil)

	_, _, err := p.LiveView(context.Background(), 3, 7)
	assert.Error(t, err)
}
