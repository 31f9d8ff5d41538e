package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/examtrace/proctor-agent/internal/model"
)

// AvailableExams lists the exams the student may start.
func (c *Client) AvailableExams(ctx context.Context, token string) ([]model.Exam, error) {
	var out []model.Exam
	if err := c.doJSON(ctx, http.MethodGet, "/exam/available", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Questions fetches the ordered question list for an exam.
func (c *Client) Questions(ctx context.Context, token string, examID int) ([]model.Question, error) {
	var out []model.Question
	path := fmt.Sprintf("/exam/%d/questions", examID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartExam tells the backend the attempt has begun. Best-effort: callers
// log the error and proceed.
func (c *Client) StartExam(ctx context.Context, token string, examID int) error {
	path := fmt.Sprintf("/exam/%d/start", examID)
	return c.doJSON(ctx, http.MethodPost, path, token, nil, nil)
}

// SubmitExam sends the full answer set in one request.
func (c *Client) SubmitExam(ctx context.Context, token string, examID int, answers []model.Answer) error {
	path := fmt.Sprintf("/exam/%d/submit", examID)
	return c.doJSON(ctx, http.MethodPost, path, token, model.SubmitRequest{Answers: answers}, nil)
}
