package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// errInputClosed ends interactive input when stdin reaches EOF.
var errInputClosed = errors.New("input closed")

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompter reads line-oriented answers from in, writing prompts to out.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints prompt and returns the next trimmed input line.
func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && s != "":
		// last line without a trailing newline
	case errors.Is(err, io.EOF):
		return "", errInputClosed
	default:
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// parsed re-prompts until the input parses.
func parsed[T any](p *prompter, prompt string, parse func(string) (T, error)) (T, error) {
	for {
		s, err := p.line(prompt)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(s)
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(p.out, "Could not parse: %s\n", s)
	}
}

func (p *prompter) readInt(prompt string) (int, error) {
	return parsed(p, prompt, strconv.Atoi)
}

func (p *prompter) readFloat(prompt string) (float64, error) {
	return parsed(p, prompt, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// choice shows a numbered list with "0 - back" and re-prompts until the
// answer is within range. 0 means back.
func (p *prompter) choice(title string, options []string, back string) (int, error) {
	for {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, title)
		for i, o := range options {
			fmt.Fprintf(p.out, "%d - %s\n", i+1, o)
		}
		fmt.Fprintf(p.out, "0 - %s\n", back)

		n, err := p.readInt("> ")
		if err != nil {
			return 0, err
		}
		if n >= 0 && n <= len(options) {
			return n, nil
		}
	}
}

// confirm asks a yes/no question as a one-entry menu.
func confirm(p *prompter, question string) bool {
	n, err := p.choice(question, []string{"Yes"}, "No")
	return err == nil && n == 1
}
