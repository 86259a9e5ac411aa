package human

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// Terminal asks the human through an interactive bubbletea prompt showing
// the requester, the question and a live countdown. Enter submits, esc skips.
type Terminal struct {
	in  io.Reader
	out io.Writer
	now func() time.Time
}

var _ broadcast.Prompter = (*Terminal)(nil)

// NewTerminal creates a terminal prompter on in and out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, now: time.Now}
}

// Ask implements broadcast.Prompter.
func (t *Terminal) Ask(ctx context.Context, p broadcast.Prompt) (broadcast.HumanReply, error) {
	m := newPromptModel(p, t.now)
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := prog.Run()
	if ctx.Err() != nil {
		return broadcast.HumanReply{}, ctx.Err()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return broadcast.HumanReply{}, fmt.Errorf("human: terminal prompt: %w", err)
	}
	pm, ok := final.(promptModel)
	if !ok {
		return broadcast.HumanReply{Skipped: true}, nil
	}
	return pm.reply(), nil
}

type tickMsg time.Time

type promptStyles struct {
	frame     lipgloss.Style
	title     lipgloss.Style
	requester lipgloss.Style
	question  lipgloss.Style
	timer     lipgloss.Style
	urgent    lipgloss.Style
	help      lipgloss.Style
}

func newPromptStyles() promptStyles {
	accent := lipgloss.Color("#01cdfe")
	warn := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")
	return promptStyles{
		frame: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		title:     lipgloss.NewStyle().Foreground(accent).Bold(true),
		requester: lipgloss.NewStyle().Bold(true),
		question:  lipgloss.NewStyle().MarginTop(1).MarginBottom(1),
		timer:     lipgloss.NewStyle().Foreground(muted),
		urgent:    lipgloss.NewStyle().Foreground(warn).Bold(true),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}

// promptModel is the bubbletea model behind Terminal.
type promptModel struct {
	prompt  broadcast.Prompt
	input   textinput.Model
	styles  promptStyles
	now     func() time.Time
	current time.Time

	answered bool
	skipped  bool
	expired  bool
}

func newPromptModel(p broadcast.Prompt, now func() time.Time) promptModel {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Type your answer"
	input.CharLimit = 4000
	input.Focus()
	return promptModel{
		prompt:  p,
		input:   input,
		styles:  newPromptStyles(),
		now:     now,
		current: now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m promptModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.current = m.now()
		if m.remaining() <= 0 {
			m.expired = true
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.skipped = true
			return m, tea.Quit
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				m.skipped = true
			} else {
				m.answered = true
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.answered || m.skipped || m.expired {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Question from an agent"))
	b.WriteString("  ")
	b.WriteString(m.styles.requester.Render(m.prompt.RequesterID))
	b.WriteString("\n")
	b.WriteString(m.styles.question.Render(m.prompt.Question))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.timerView())
	b.WriteString("   ")
	b.WriteString(m.styles.help.Render("enter: answer · esc: skip"))
	return m.styles.frame.Render(b.String()) + "\n"
}

func (m promptModel) remaining() time.Duration {
	if m.prompt.Deadline.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return m.prompt.Deadline.Sub(m.current)
}

func (m promptModel) timerView() string {
	if m.prompt.Deadline.IsZero() {
		return m.styles.timer.Render("no time limit")
	}
	left := max(m.remaining().Round(time.Second), 0)
	text := fmt.Sprintf("%s remaining", left)
	if left <= 10*time.Second {
		return m.styles.urgent.Render(text)
	}
	return m.styles.timer.Render(text)
}

func (m promptModel) reply() broadcast.HumanReply {
	if !m.answered {
		return broadcast.HumanReply{Skipped: true}
	}
	return broadcast.HumanReply{Text: strings.TrimSpace(m.input.Value())}
}
