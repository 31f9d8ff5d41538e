package ingest

import (
	"sync"
	"time"

	"github.com/examtrace/proctor-agent/internal/model"
)

// Feed holds the most recent camera frame and tab context posted by the
// companion browser extension. It is the agent's media stream: the capture
// scheduler samples it on its own cadence and never blocks on the
// extension. Only the latest sample is kept; evidence history lives on the
// backend and in the local journal.
type Feed struct {
	mu sync.RWMutex

	frame   []byte
	frameAt time.Time

	context   model.ScreenContext
	contextAt time.Time

	closed bool
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{}
}

// PutFrame stores a camera frame. Writes after Close are dropped, so a
// torn-down scheduler can never observe a frame newer than its teardown.
func (f *Feed) PutFrame(jpeg []byte, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.frame = jpeg
	f.frameAt = at
}

// LatestFrame returns the newest frame and its capture time. ok is false
// when no frame has arrived yet.
func (f *Feed) LatestFrame() (jpeg []byte, at time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.frame == nil {
		return nil, time.Time{}, false
	}
	return f.frame, f.frameAt, true
}

// PutContext stores a tab-context sample.
func (f *Feed) PutContext(sc model.ScreenContext, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.context = sc
	f.contextAt = at
}

// LatestContext returns the newest context sample. ok is false when none
// has arrived yet.
func (f *Feed) LatestContext() (sc model.ScreenContext, at time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.contextAt.IsZero() {
		return model.ScreenContext{}, time.Time{}, false
	}
	return f.context, f.contextAt, true
}

// Close releases the held samples and rejects further writes. Idempotent.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.frame = nil
	f.frameAt = time.Time{}
	f.context = model.ScreenContext{}
	f.contextAt = time.Time{}
}
