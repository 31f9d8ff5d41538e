package model

import (
	"time"

	"github.com/google/uuid"
)

// TickKind distinguishes the two evidence channels.
type TickKind string

const (
	TickFrame  TickKind = "frame"
	TickScreen TickKind = "screen"
)

// CaptureTick is one unit of proctoring work: a single camera frame or
// screen-context sample tagged with the attempt it belongs to. It is not
// persisted beyond the local journal; the network layer consumes it and the
// response only updates the status indicator.
type CaptureTick struct {
	ID         uuid.UUID
	Kind       TickKind
	UserID     int
	ExamID     int
	CapturedAt time.Time
}

// NewCaptureTick tags a fresh tick for the given attempt.
func NewCaptureTick(kind TickKind, userID, examID int) CaptureTick {
	return CaptureTick{
		ID:         uuid.New(),
		Kind:       kind,
		UserID:     userID,
		ExamID:     examID,
		CapturedAt: time.Now(),
	}
}

// Verdict is the backend's per-frame classification of uploaded evidence.
type Verdict struct {
	Count        int    `json:"count"`
	MovementType string `json:"movement_type"`
}

// ScreenContext is the non-visual context sample uploaded on the advisory
// channel: active tab title and the reporting client identity.
type ScreenContext struct {
	AppName  string `json:"app_name"`
	TabTitle string `json:"tab_title"`
}

// IndicatorState is the student-visible proctoring status.
type IndicatorState string

const (
	// IndicatorClear means the last verdict reported no suspicious activity.
	IndicatorClear IndicatorState = "clear"
	// IndicatorAlert means the last verdict flagged suspicious activity.
	IndicatorAlert IndicatorState = "alert"
	// IndicatorDegraded means the last upload failed; capture continues.
	IndicatorDegraded IndicatorState = "degraded"
	// IndicatorUnavailable means no camera feed could be acquired at all.
	IndicatorUnavailable IndicatorState = "unavailable"
)
