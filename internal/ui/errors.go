package ui

// ErrCode is a typed error code enum for consistent user-facing error
// identification across the agent's panels.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrRoleUnknown        ErrCode = "ROLE_UNKNOWN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrAccessDenied ErrCode = "ACCESS_DENIED"

	// ─── Loading ───────────────────────────────────────────────────────
	ErrExamsUnavailable     ErrCode = "EXAMS_UNAVAILABLE"
	ErrQuestionsUnavailable ErrCode = "QUESTIONS_UNAVAILABLE"
	ErrDirectoryUnavailable ErrCode = "DIRECTORY_UNAVAILABLE"

	// ─── Exam attempt ──────────────────────────────────────────────────
	ErrMissingExamSession ErrCode = "MISSING_EXAM_SESSION"
	ErrIncompleteAnswers  ErrCode = "INCOMPLETE_ANSWERS"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"

	// ─── Proctoring ────────────────────────────────────────────────────
	ErrCaptureDegraded       ErrCode = "CAPTURE_DEGRADED"
	ErrProctoringUnavailable ErrCode = "PROCTORING_UNAVAILABLE"

	// ─── Monitoring ────────────────────────────────────────────────────
	ErrStudentsFetchFailed   ErrCode = "STUDENTS_FETCH_FAILED"
	ErrDetectionsFetchFailed ErrCode = "DETECTIONS_FETCH_FAILED"
	ErrLiveViewUnavailable   ErrCode = "LIVE_VIEW_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionExpired:
		return "Session expired. Please log in again."
	case ErrRoleUnknown:
		return "User role not recognized. Contact an administrator."
	case ErrAccessDenied:
		return "Access denied for this page."
	case ErrExamsUnavailable:
		return "Failed to load exams. Reload to try again."
	case ErrQuestionsUnavailable:
		return "Failed to load questions. Reload to try again."
	case ErrDirectoryUnavailable:
		return "Failed to load users."
	case ErrMissingExamSession:
		return "Missing exam session. Please log in and start an exam."
	case ErrIncompleteAnswers:
		return "Please answer all questions before submitting."
	case ErrSubmitFailed:
		return "Failed to submit answers."
	case ErrSubmitInFlight:
		return "Submission already in progress."
	case ErrCaptureDegraded:
		return "Detection upload failed."
	case ErrProctoringUnavailable:
		return "Webcam not available."
	case ErrStudentsFetchFailed:
		return "Failed to load active students."
	case ErrDetectionsFetchFailed:
		return "Failed to load detections."
	case ErrLiveViewUnavailable:
		return "Unable to load live feed."
	default:
		return "An unexpected error occurred."
	}
}
