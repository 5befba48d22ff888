package fetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned when the input stream ends before an answer is given.
var ErrNoInput = errors.New("no input")

// Prompter asks the user a question and returns the trimmed answer.
type Prompter interface {
	Ask(prompt string) (string, error)
}

// LinePrompter reads one line per question.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskYesNo accepts "y" or "yes" in any case as yes; anything else is no.
func AskYesNo(p Prompter, prompt string) (bool, error) {
	ans, err := p.Ask(prompt + " (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// AskIndex reprompts until the answer is an integer in [0, n).
func AskIndex(p Prompter, out io.Writer, prompt string, n int) (int, error) {
	for {
		ans, err := p.Ask(prompt)
		if err != nil {
			return 0, err
		}
		i, err := strconv.Atoi(ans)
		if err != nil {
			fmt.Fprintln(out, "⚠️ Invalid input.")
			continue
		}
		if i < 0 || i >= n {
			fmt.Fprintln(out, "⚠️ Invalid index.")
			continue
		}
		return i, nil
	}
}
