package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/proctor-agent/internal/model"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"), "login carries no credential")

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "amira", req.Username)
		assert.Equal(t, "secret", req.Password)

		json.NewEncoder(w).Encode(LoginResponse{AccessToken: "tok-123", ID: 3, Role: "student"})
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	resp, err := c.Login(context.Background(), "amira", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.AccessToken)
	assert.Equal(t, 3, resp.ID)
	assert.Equal(t, "student", resp.Role)
}

func TestLoginFailureCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	_, err := c.Login(context.Background(), "amira", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Incorrect username or password", Detail(err))
}

func TestErrorWithoutDetailBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("oops"))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	_, err := c.AvailableExams(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Empty(t, Detail(err))
	assert.Contains(t, err.Error(), "500")
}

func TestBearerHeaderOnAuthedCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	_, err := c.AvailableExams(context.Background(), "tok-123")
	require.NoError(t, err)
	_, err = c.ListUsers(context.Background(), "tok-123")
	require.NoError(t, err)
	_, err = c.ActiveStudents(context.Background(), "tok-123")
	require.NoError(t, err)
}

func TestQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exam/7/questions", r.URL.Path)
		w.Write([]byte(`[{"question":"q1","option_a":"a","option_b":"b","option_c":"","option_d":""}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	questions, err := c.Questions(context.Background(), "tok", 7)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, []string{"A", "B"}, questions[0].OptionLabels())
}

func TestSubmitExamPayload(t *testing.T) {
	var got model.SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/exam/7/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"detail":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	answers := []model.Answer{
		{QuestionNumber: 1, SelectedOption: "B"},
		{QuestionNumber: 2, SelectedOption: "A"},
	}
	require.NoError(t, c.SubmitExam(context.Background(), "tok", 7, answers))
	assert.Equal(t, answers, got.Answers)
}

func TestUploadFrameMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/feed", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(4<<20))
		assert.Equal(t, "3", r.FormValue("user_id"))
		assert.Equal(t, "7", r.FormValue("exam_id"))

		file, header, err := r.FormFile("frame")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "frame.jpg", header.Filename)

		json.NewEncoder(w).Encode(model.Verdict{Count: 1, MovementType: "looking_away"})
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	verdict, err := c.UploadFrame(context.Background(), "tok", 3, 7, []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 1, verdict.Count)
	assert.Equal(t, "looking_away", verdict.MovementType)
}

func TestLogScreen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/log/screen", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "advisory channel is unauthenticated")

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(3), payload["user_id"])
		assert.Equal(t, float64(7), payload["exam_id"])
		assert.Equal(t, "chrome", payload["app_name"])
		assert.Equal(t, "Exam", payload["tab_title"])
		w.Write([]byte(`{"detail":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	err := c.LogScreen(context.Background(), 3, 7, model.ScreenContext{AppName: "chrome", TabTitle: "Exam"})
	require.NoError(t, err)
}

func TestLatestFrameQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/monitor/latest-frame", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("user_id"))
		assert.Equal(t, "7", r.URL.Query().Get("exam_id"))
		json.NewEncoder(w).Encode(model.LatestFrame{FrameImagePath: "/frames/3.jpg"})
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	frame, err := c.LatestFrame(context.Background(), "tok", 3, 7)
	require.NoError(t, err)
	assert.Equal(t, "/frames/3.jpg", frame.FrameImagePath)
}

func TestDeleteUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/auth/users/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	require.NoError(t, c.DeleteUser(context.Background(), "tok", 9))
}
