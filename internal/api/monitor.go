package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/examtrace/proctor-agent/internal/model"
)

// ActiveStudents fetches the set of students currently mid-attempt.
func (c *Client) ActiveStudents(ctx context.Context, token string) ([]model.ActiveStudent, error) {
	var out []model.ActiveStudent
	if err := c.doJSON(ctx, http.MethodGet, "/monitor/active-students", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnusualDetections fetches recent flagged anomaly events.
func (c *Client) UnusualDetections(ctx context.Context, token string) ([]model.Detection, error) {
	var out []model.Detection
	if err := c.doJSON(ctx, http.MethodGet, "/monitor/unusual-detections", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestFrame fetches the most recent evidence frame recorded for one
// student's attempt, for the per-student live view.
func (c *Client) LatestFrame(ctx context.Context, token string, userID, examID int) (*model.LatestFrame, error) {
	var out model.LatestFrame
	path := fmt.Sprintf("/monitor/latest-frame?user_id=%d&exam_id=%d", userID, examID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
