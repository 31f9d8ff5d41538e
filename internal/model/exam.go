package model

// Exam is one entry from the student's available-exams listing.
type Exam struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Question is a single multiple-choice question as served by the backend.
// Options C and D are optional; empty strings mean the question has fewer
// than four choices.
type Question struct {
	Question string `json:"question"`
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	OptionC  string `json:"option_c"`
	OptionD  string `json:"option_d"`
}

// OptionLabels returns the labels ("A".."D") that carry a non-empty choice,
// in order.
func (q Question) OptionLabels() []string {
	labels := make([]string, 0, 4)
	for _, opt := range []struct {
		label string
		text  string
	}{
		{"A", q.OptionA},
		{"B", q.OptionB},
		{"C", q.OptionC},
		{"D", q.OptionD},
	} {
		if opt.text != "" {
			labels = append(labels, opt.label)
		}
	}
	return labels
}

// Answer pairs a 1-based question number with the selected option label.
type Answer struct {
	QuestionNumber int    `json:"question_number"`
	SelectedOption string `json:"selected_option"`
}

// SubmitRequest is the payload for the final answer submission.
type SubmitRequest struct {
	Answers []Answer `json:"answers"`
}
