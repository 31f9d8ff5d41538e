package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/examtrace/proctor-agent/internal/model"
)

// Panel is the user-visible surface controllers report to. Every error the
// components surface goes through here; nothing user-facing is allowed to
// stay inside a log file only.
type Panel interface {
	Info(msg string)
	// Fail surfaces an error state. detail carries the server-provided
	// reason when one exists and may be empty.
	Fail(code ErrCode, detail string)
	// Indicator updates the proctoring status shown to the student.
	Indicator(state model.IndicatorState)
	// HighlightQuestions marks the given 1-based question numbers as
	// missing an answer.
	HighlightQuestions(nums []int)
}

// Console renders panel updates as plain lines on a writer. It is the
// default Panel for the terminal agent and is safe for concurrent use by
// the capture and polling tickers.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole returns a Console panel writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter returns a Console panel writing to w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) Info(msg string) {
	c.print(msg)
}

func (c *Console) Fail(code ErrCode, detail string) {
	if detail != "" {
		c.print(fmt.Sprintf("[%s] %s (%s)", code, GetMessage(code), detail))
		return
	}
	c.print(fmt.Sprintf("[%s] %s", code, GetMessage(code)))
}

func (c *Console) Indicator(state model.IndicatorState) {
	switch state {
	case model.IndicatorClear:
		c.print("proctoring: all clear")
	case model.IndicatorAlert:
		c.print("proctoring: suspicious activity detected")
	case model.IndicatorDegraded:
		c.print("proctoring: detection failed")
	case model.IndicatorUnavailable:
		c.print("proctoring: webcam not available")
	}
}

func (c *Console) HighlightQuestions(nums []int) {
	for _, n := range nums {
		c.print(fmt.Sprintf("question %d is unanswered", n))
	}
}

func (c *Console) print(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
