package page

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input is where page controllers get user actions from. The terminal
// implementation reads lines; tests feed scripted commands.
type Input interface {
	// ReadLine shows prompt and returns one trimmed line. io.EOF means the
	// user is done.
	ReadLine(prompt string) (string, error)
}

// StdinInput reads commands from standard input.
type StdinInput struct {
	r *bufio.Reader
}

// NewStdinInput creates a StdinInput.
func NewStdinInput() *StdinInput {
	return &StdinInput{r: bufio.NewReader(os.Stdin)}
}

func (s *StdinInput) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ScriptInput replays a fixed command sequence, then reports EOF.
type ScriptInput struct {
	lines []string
	pos   int
}

// NewScriptInput creates a ScriptInput over the given lines.
func NewScriptInput(lines ...string) *ScriptInput {
	return &ScriptInput{lines: lines}
}

func (s *ScriptInput) ReadLine(string) (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}
