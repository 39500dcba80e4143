// Package term is the terminal side of the console: notices, the busy
// indicator, confirmation prompts and line input.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
)

// ErrClosed is returned by ReadLine once input is exhausted.
var ErrClosed = errors.New("term: input closed")

type line struct {
	text string
	err  error
}

// UI implements the labsdk UI ports over a line-oriented terminal. A single
// goroutine owns the input; the command loop and confirmation prompts both
// read through ReadLine so they never race for the same line.
type UI struct {
	mu  sync.Mutex // Guards out and busy
	out io.Writer

	busy    int
	lines   chan line
	prompt  string
	Verbose bool
}

// New starts reading in and returns a UI writing to out.
func New(in io.Reader, out io.Writer) *UI {
	u := &UI{
		out:    out,
		lines:  make(chan line),
		prompt: "> ",
	}
	go u.readLoop(in)
	return u
}

func (u *UI) readLoop(in io.Reader) {
	defer close(u.lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		u.lines <- line{text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		u.lines <- line{err: err}
	}
}

// ReadLine waits for the next input line. It returns ErrClosed at end of
// input and ctx.Err() if ctx ends first.
func (u *UI) ReadLine(ctx context.Context) (string, error) {
	select {
	case l, ok := <-u.lines:
		if !ok {
			return "", ErrClosed
		}
		if l.err != nil {
			return "", fmt.Errorf("read input: %w", l.err)
		}
		return strings.TrimSpace(l.text), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prompt prints the command prompt.
func (u *UI) Prompt() {
	u.print(u.prompt)
}

// Success implements labsdk.Notifier.
func (u *UI) Success(msg string) {
	u.println("[ok] " + msg)
}

// Error implements labsdk.Notifier.
func (u *UI) Error(msg string) {
	u.println("[error] " + msg)
}

// Start implements labsdk.Progress.
func (u *UI) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.busy++
	if u.busy == 1 && u.Verbose {
		fmt.Fprintln(u.out, "...")
	}
}

// Done implements labsdk.Progress.
func (u *UI) Done() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.busy > 0 {
		u.busy--
	}
}

// Busy reports whether any request is in flight.
func (u *UI) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.busy > 0
}

// Confirm implements labsdk.Prompter. "y" or "yes" confirms; any other answer
// cancels. End of input cancels with ErrClosed.
func (u *UI) Confirm(ctx context.Context, p labsdk.Prompt) (bool, error) {
	u.println("")
	if p.Title != "" {
		u.println(p.Title)
	}
	u.println(p.Message)
	u.print(fmt.Sprintf("[y] %s / [n] %s: ", p.ConfirmLabel, p.CancelLabel))

	answer, err := u.ReadLine(ctx)
	if err != nil {
		u.println("")
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// SetTitle shows the title of the screen being entered.
func (u *UI) SetTitle(title string) {
	u.println("== " + title + " ==")
}

// Writer returns a writer that serialises with the UI's own output.
func (u *UI) Writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.out.Write(p)
	})
}

func (u *UI) print(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprint(u.out, s)
}

func (u *UI) println(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintln(u.out, s)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
