package tui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/detect"
)

type taskDoneMsg struct{}

type promptMsg struct {
	from, to core.Channel
	reply    chan bool
}

// RunWithSpinner runs task while showing a spinner with label on stderr.
// Switch prompts raised by task must go through the prompter it is handed so
// they render inside the same program. Without a terminal the task runs
// directly with confirm as its prompter.
func RunWithSpinner[T any](ctx context.Context, label string, confirm ConfirmPrompter, task func(ctx context.Context, prompter detect.SwitchPrompter) (T, error)) (T, error) {
	if confirm.AssumeYes || !isatty.IsTerminal(os.Stderr.Fd()) || !stdinIsTerminal() {
		return task(ctx, confirm)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		val T
		err error
	}
	results := make(chan result, 1)

	p := tea.NewProgram(newSpinnerModel(label, cancel), tea.WithOutput(os.Stderr))
	go func() {
		val, err := task(ctx, programPrompter{p: p})
		results <- result{val, err}
		p.Send(taskDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-results
		var zero T
		return zero, err
	}
	res := <-results
	return res.val, res.err
}

// programPrompter forwards a switch question into a running spinner program.
type programPrompter struct {
	p *tea.Program
}

func (pp programPrompter) ConfirmSwitch(ctx context.Context, from, to core.Channel) (bool, error) {
	reply := make(chan bool, 1)
	pp.p.Send(promptMsg{from: from, to: to, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type spinnerModel struct {
	spinner spinner.Model
	label   string
	cancel  context.CancelFunc

	prompt *confirmModel
	reply  chan bool
	done   bool
}

func newSpinnerModel(label string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)
	return spinnerModel{spinner: s, label: label, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		return m, tea.Quit

	case promptMsg:
		cm := newConfirmModel(msg.from, msg.to)
		m.prompt = &cm
		m.reply = msg.reply
		return m, nil

	case tea.KeyMsg:
		if m.prompt != nil {
			answered, done := m.prompt.handleKey(msg)
			if done {
				m.reply <- answered.accepted
				m.prompt, m.reply = nil, nil
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.prompt != nil {
		return m.prompt.View()
	}
	return m.spinner.View() + " " + labelStyle.Render(m.label) + "\n"
}
