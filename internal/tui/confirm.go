package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

// ConfirmPrompter asks on the terminal whether to switch to the other
// installed channel. Without a terminal on stdin it declines.
type ConfirmPrompter struct {
	AssumeYes bool
	Input     io.Reader
	Output    io.Writer
}

func (c ConfirmPrompter) ConfirmSwitch(ctx context.Context, from, to core.Channel) (bool, error) {
	if c.AssumeYes {
		log.Printf("[tui] switching to %s without prompting", to.DisplayName())
		return true, nil
	}
	if c.Input == nil && !stdinIsTerminal() {
		log.Printf("[tui] stdin is not a terminal, declining switch to %s", to.DisplayName())
		return false, nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(c.output())}
	if c.Input != nil {
		opts = append(opts, tea.WithInput(c.Input))
	}
	final, err := tea.NewProgram(newConfirmModel(from, to), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}
	return final.(confirmModel).accepted, nil
}

func (c ConfirmPrompter) output() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stderr
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirmModel is a yes/no question; anything but an explicit yes declines.
type confirmModel struct {
	from, to core.Channel
	accepted bool
	answered bool
}

func newConfirmModel(from, to core.Channel) confirmModel {
	return confirmModel{from: from, to: to}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m, done := m.handleKey(key)
	if done {
		return m, tea.Quit
	}
	return m, nil
}

// handleKey records the answer; done reports whether the question is settled.
func (m confirmModel) handleKey(key tea.KeyMsg) (confirmModel, bool) {
	switch key.String() {
	case "y", "Y":
		m.accepted, m.answered = true, true
	case "n", "N", "enter", "esc", "q", "ctrl+c":
		m.accepted, m.answered = false, true
	}
	return m, m.answered
}

func (m confirmModel) View() string {
	if m.answered {
		if m.accepted {
			return tealStyle.Render(fmt.Sprintf("Switched to %s.", m.to.DisplayName())) + "\n"
		}
		return ""
	}
	body := fmt.Sprintf("%s was not found, but %s is installed.\nSwitch to %s?",
		valueStyle.Render(m.from.DisplayName()),
		valueStyle.Render(m.to.DisplayName()),
		valueStyle.Render(m.to.DisplayName()),
	)
	help := helpKeyStyle.Render("y") + helpStyle.Render(" switch  ") +
		helpKeyStyle.Render("n") + helpStyle.Render(" cancel")
	return promptCardStyle.Render(body+"\n\n"+help) + "\n"
}
