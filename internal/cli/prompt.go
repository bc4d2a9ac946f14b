package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompter reads answers from stdin. Secrets are read without echo when
// stdin is a terminal and as a plain line otherwise.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	w      io.Writer
}

func newPrompter(in io.Reader, w io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), w: w}
}

// line prints prompt and returns the trimmed reply. EOF yields whatever was
// typed before it.
func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	text, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *prompter) secret(prompt string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		return p.line(prompt)
	}
	fmt.Fprint(p.w, prompt)
	b, err := readPassword(int(f.Fd()))
	fmt.Fprintln(p.w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// confirm asks a yes/no question. Only "yes" and "y" count as yes.
func (p *prompter) confirm(prompt string) (bool, error) {
	reply, err := p.line(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(reply) {
	case "yes", "y":
		return true, nil
	}
	return false, nil
}
