package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Console is the line-oriented terminal the session talks through.
//
// Input is read on its own goroutine so a blocked prompt can be abandoned
// when the context is cancelled (e.g. on SIGINT). That goroutine lives as
// long as the input stream. Lines have no length limit.
type Console struct {
	out   io.Writer
	lines chan input
}

type input struct {
	line string
	err  error
}

// NewConsole starts reading lines from in.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lines: make(chan input)}
	go func() {
		defer close(c.lines)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				c.lines <- input{line: strings.TrimRight(line, "\r\n")}
			}
			if err == nil {
				continue
			}
			if !errors.Is(err, io.EOF) {
				c.lines <- input{err: fmt.Errorf("%w: %w", ErrInput, err)}
			}
			return
		}
	}()
	return c
}

// Out returns the console's writer.
func (c *Console) Out() io.Writer {
	return c.out
}

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// ReadLine blocks for the next input line. Returns io.EOF when input is
// exhausted, an ErrInput error when reading failed, and ctx.Err() when the
// context ends first.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case in, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return in.line, in.err
	}
}

// Prompt prints label and returns the trimmed answer.
func (c *Console) Prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question; anything but y/yes is "no".
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := c.Prompt(ctx, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
