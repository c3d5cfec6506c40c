package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// stdin is read by every prompt of a run.
var stdin io.Reader = os.Stdin

type prompter struct {
	raw io.Reader
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(out io.Writer) *prompter {
	return &prompter{raw: stdin, in: bufio.NewReader(stdin), out: out}
}

// readLine reads a line from the reader, trimming line endings.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return strings.TrimRight(line, "\r\n"), io.EOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptString asks until a non-empty value is given.
func (p *prompter) promptString(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		line, err := readLine(p.in)
		if err != nil && err != io.EOF {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
		if err == io.EOF {
			return "", fmt.Errorf("missing input for %s", label)
		}
	}
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line for pipes.
func (p *prompter) promptPassword(label string) (string, error) {
	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.out, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return p.promptString(label)
}

// topicFor asks which topic a pool goes to. Empty input means the book
// root.
func (p *prompter) topicFor(_ context.Context, poolTitle string) (int, error) {
	for {
		fmt.Fprintf(p.out, "Topic id for %q (empty for root): ", poolTitle)
		line, err := readLine(p.in)
		if err != nil && err != io.EOF {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return 0, nil
		}
		id, convErr := strconv.Atoi(line)
		if convErr == nil && id >= 0 {
			return id, nil
		}
		if err == io.EOF {
			return 0, fmt.Errorf("invalid topic id %q", line)
		}
		fmt.Fprintln(p.out, "Please enter a numeric topic id.")
	}
}
