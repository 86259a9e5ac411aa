package human

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// Line asks the human with a plain line prompt. An empty line skips.
// Input is read by one background goroutine for the prompter's lifetime, so
// an abandoned prompt does not leave a reader competing for the next one.
type Line struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
	mu    sync.Mutex
}

var _ broadcast.Prompter = (*Line)(nil)

// NewLine creates a line prompter.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: in, out: out, lines: make(chan string)}
}

func (l *Line) start() {
	l.once.Do(func() {
		go func() {
			sc := bufio.NewScanner(l.in)
			for sc.Scan() {
				l.lines <- sc.Text()
			}
			close(l.lines)
		}()
	})
}

// Ask implements broadcast.Prompter.
func (l *Line) Ask(ctx context.Context, p broadcast.Prompt) (broadcast.HumanReply, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start()

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	fmt.Fprintln(l.out)
	cyan.Fprintf(l.out, "Question from %s", p.RequesterID)
	if !p.Deadline.IsZero() {
		yellow.Fprintf(l.out, " (%s to answer)", time.Until(p.Deadline).Round(time.Second))
	}
	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, p.Question)
	faint.Fprintln(l.out, "Type your answer and press enter; an empty line skips.")
	fmt.Fprint(l.out, "> ")

	select {
	case line, ok := <-l.lines:
		if !ok {
			return broadcast.HumanReply{Skipped: true}, io.EOF
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			faint.Fprintln(l.out, "skipped")
			return broadcast.HumanReply{Skipped: true}, nil
		}
		return broadcast.HumanReply{Text: answer}, nil
	case <-ctx.Done():
		fmt.Fprintln(l.out)
		color.New(color.FgRed).Fprintln(l.out, "time is up; the question was withdrawn")
		return broadcast.HumanReply{}, ctx.Err()
	}
}
