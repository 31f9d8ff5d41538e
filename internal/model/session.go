package model

import "strings"

// Role identifies which home page a user belongs to.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleStudent     Role = "student"
	RoleInvigilator Role = "invigilator"
)

// NormalizeRole lowercases and trims a raw role string from the backend.
func NormalizeRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether the role is one the agent knows how to route.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleInvigilator:
		return true
	}
	return false
}

// Session is the authenticated identity persisted between runs.
// Role and Token are immutable for the session's lifetime; ActiveExamID is
// set when a student selects an exam and cleared on logout or role mismatch.
type Session struct {
	UserID       int    `json:"user_id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	Token        string `json:"token"`
	ActiveExamID int    `json:"current_exam_id,omitempty"`
}

// HasActiveExam reports whether a student has selected an exam.
func (s *Session) HasActiveExam() bool {
	return s != nil && s.ActiveExamID > 0
}
