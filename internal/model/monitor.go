package model

// ActiveStudent is one {subject, exam} pair representing a student mid-attempt.
type ActiveStudent struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	ExamID   int    `json:"exam_id"`
}

// Detection is one flagged anomaly event from the detection backend.
type Detection struct {
	UserID       int    `json:"user_id"`
	ExamID       int    `json:"exam_id"`
	MovementType string `json:"movement_type"`
	Timestamp    string `json:"timestamp"`
}

// LatestFrame describes the most recent evidence frame stored for one
// student, used by the per-student live view.
type LatestFrame struct {
	FrameImagePath string `json:"frame_image_path"`
	Timestamp      string `json:"timestamp"`
	MovementType   string `json:"movement_type"`
}

// MonitoringView is the invigilator panel state, rebuilt wholesale on every
// poll tick. FilterExamID is the only field with cross-tick memory.
type MonitoringView struct {
	ActiveStudents []ActiveStudent
	Flagged        []Detection
	FilterExamID   int

	// Per-panel fetch errors; each poll tolerates the other's failure.
	StudentsErr   error
	DetectionsErr error
}

// VisibleStudents applies the exam filter to the active-students set.
func (v *MonitoringView) VisibleStudents() []ActiveStudent {
	if v.FilterExamID == 0 {
		return v.ActiveStudents
	}
	subset := make([]ActiveStudent, 0, len(v.ActiveStudents))
	for _, s := range v.ActiveStudents {
		if s.ExamID == v.FilterExamID {
			subset = append(subset, s)
		}
	}
	return subset
}
