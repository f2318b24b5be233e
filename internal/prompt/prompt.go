// Package prompt reads operator input from a terminal-like stream and gates
// mutating operations behind an explicit confirmation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrExit is returned when the operator asks to leave the session.
var ErrExit = errors.New("exit requested")

// Decision is the outcome of a confirmation gate.
type Decision int

const (
	Aborted Decision = iota
	Confirmed
)

func (d Decision) String() string {
	if d == Confirmed {
		return "confirmed"
	}
	return "aborted"
}

const exitHint = ` (or type "exit" to exit)`

// Prompter asks questions on out and reads the answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter over the given streams.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Out is the stream prompts and panels are written to.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// readLine returns the next trimmed line. A closed input ends the session.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(line) == "" {
				return "", ErrExit
			}
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Ask prints msg and returns the operator's answer. "help" calls help, when
// given, and asks again; "exit" returns ErrExit.
func (p *Prompter) Ask(msg string, help func()) (string, error) {
	for {
		fmt.Fprintf(p.out, "\n%s%s\n> ", msg, exitHint)
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}

		switch {
		case strings.EqualFold(answer, "exit"):
			p.exitPanel()
			return "", ErrExit
		case help != nil && strings.EqualFold(answer, "help"):
			help()
			continue
		}
		return answer, nil
	}
}

// AskCount asks for an integer in [1, max]. -1 returns ErrExit; anything else
// outside the range is rejected and asked again.
func (p *Prompter) AskCount(msg string, max int) (int, error) {
	for {
		fmt.Fprintf(p.out, "\n%s (or enter \"-1\" to exit)\n> ", msg)
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}

		n, err := strconv.Atoi(answer)
		if err != nil {
			p.Error("Please enter a valid integer number")
			continue
		}
		if n == -1 {
			p.exitPanel()
			return 0, ErrExit
		}
		if n < 1 || n > max {
			p.Error(fmt.Sprintf("Value cannot be less than -1, zero, or exceed the max %d", max))
			continue
		}
		return n, nil
	}
}

// AskYesNo asks a yes/no question and repeats it until the answer is one of
// y, yes, n or no.
func (p *Prompter) AskYesNo(msg string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "\n%s [y/n]: ", msg)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please enter Y or N")
	}
}

// Gate asks the operator to confirm msg. Only "y" or "yes" confirms; any
// other answer, including "exit" or a closed input, aborts. The question is
// never repeated.
func (p *Prompter) Gate(msg string) (Decision, error) {
	fmt.Fprintf(p.out, "\n%s [y/n]: ", msg)
	answer, err := p.readLine()
	if err != nil && !errors.Is(err, ErrExit) {
		return Aborted, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return Confirmed, nil
	default:
		return Aborted, nil
	}
}

func (p *Prompter) exitPanel() {
	p.Panel("Exit", "Exiting Program...")
}
