package human

import (
	"context"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// Auto returns a Terminal prompter when stdin and stdout are terminals and a
// Line prompter otherwise.
func Auto() broadcast.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return NewTerminal(os.Stdin, os.Stdout)
	}
	return NewLine(os.Stdin, os.Stdout)
}

// Func adapts a callback that returns the answer text. An empty answer is a
// skip.
func Func(fn func(ctx context.Context, p broadcast.Prompt) (string, error)) broadcast.Prompter {
	return broadcast.PrompterFunc(func(ctx context.Context, p broadcast.Prompt) (broadcast.HumanReply, error) {
		answer, err := fn(ctx, p)
		if err != nil {
			return broadcast.HumanReply{}, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return broadcast.HumanReply{Skipped: true}, nil
		}
		return broadcast.HumanReply{Text: answer}, nil
	})
}

// Fixed always answers with text. Useful for unattended runs.
func Fixed(text string) broadcast.Prompter {
	return Func(func(context.Context, broadcast.Prompt) (string, error) { return text, nil })
}
