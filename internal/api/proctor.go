package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/examtrace/proctor-agent/internal/model"
)

// UploadFrame posts one camera frame as multipart form data and returns the
// backend's verdict for it.
func (c *Client) UploadFrame(ctx context.Context, token string, userID, examID int, frame []byte) (*model.Verdict, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("user_id", strconv.Itoa(userID)); err != nil {
		return nil, fmt.Errorf("write user_id: %w", err)
	}
	if err := writer.WriteField("exam_id", strconv.Itoa(examID)); err != nil {
		return nil, fmt.Errorf("write exam_id: %w", err)
	}
	part, err := writer.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create frame part: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/feed", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /video/feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var verdict model.Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &verdict, nil
}

// LogScreen uploads one screen/context metadata sample. This channel is
// advisory and requires no auth header on the reference backend.
func (c *Client) LogScreen(ctx context.Context, userID, examID int, sc model.ScreenContext) error {
	payload := struct {
		UserID   int    `json:"user_id"`
		ExamID   int    `json:"exam_id"`
		AppName  string `json:"app_name"`
		TabTitle string `json:"tab_title"`
	}{userID, examID, sc.AppName, sc.TabTitle}

	return c.doJSON(ctx, http.MethodPost, "/log/screen", "", payload, nil)
}
