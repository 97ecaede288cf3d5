package resolve

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ErrIO marks a failure to read input or write output during an
// interactive exchange. It is never reported as a cancellation.
var ErrIO = stderrors.New("interactive io failure")

// console is a line-oriented reader/writer pair with a sticky write error.
type console struct {
	in  *bufio.Reader
	out io.Writer
	err error
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// printf writes formatted output unless an earlier write failed.
func (c *console) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.err = fmt.Errorf("%w: write: %w", ErrIO, err)
	}
}

// flushErr returns the first write failure, if any.
func (c *console) flushErr() error {
	return c.err
}

// prompt writes text and reads one line, returning it trimmed.
// End of input before any character is an error; a final line without a
// trailing newline is accepted.
func (c *console) prompt(text string) (string, error) {
	c.printf("%s", text)
	if c.err != nil {
		return "", c.err
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if stderrors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if stderrors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return strings.TrimSpace(line), nil
}
