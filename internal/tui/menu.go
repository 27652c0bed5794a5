package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

type Action int

const (
	ActionQuit Action = iota
	ActionRefresh
	ActionStats
	ActionSwitchChannel
	ActionBack
)

func (a Action) String() string {
	switch a {
	case ActionRefresh:
		return "refresh"
	case ActionStats:
		return "stats"
	case ActionSwitchChannel:
		return "switch-channel"
	case ActionBack:
		return "back"
	default:
		return "quit"
	}
}

type menuItem struct {
	action Action
	title  string
	desc   string
}

// mainMenuItems lists the actions offered below the report. The switch entry
// names the channel it switches to.
func mainMenuItems(current core.Channel) []menuItem {
	alt := current.Alternate()
	return []menuItem{
		{ActionRefresh, "Refresh usage", "Fetch the latest usage from Cursor"},
		{ActionStats, "Detailed statistics", "Per-model breakdown of this period's requests"},
		{ActionSwitchChannel, "Switch to " + alt.DisplayName(), "Currently using " + current.DisplayName()},
		{ActionQuit, "Quit", ""},
	}
}

func statsMenuItems() []menuItem {
	return []menuItem{
		{ActionBack, "Back to main menu", ""},
		{ActionQuit, "Quit", ""},
	}
}

// RunMenu shows view with the main actions below it and returns the chosen
// action. Escape and q quit.
func RunMenu(ctx context.Context, view string, current core.Channel) (Action, error) {
	return runMenu(ctx, view, mainMenuItems(current))
}

// RunStatsMenu shows the detailed statistics view with a way back.
func RunStatsMenu(ctx context.Context, view string) (Action, error) {
	return runMenu(ctx, view, statsMenuItems())
}

func runMenu(ctx context.Context, view string, items []menuItem) (Action, error) {
	m := menuModel{view: view, items: items}
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return ActionQuit, fmt.Errorf("running menu: %w", err)
	}
	return final.(menuModel).chosen, nil
}

type menuModel struct {
	view   string
	items  []menuItem
	cursor int
	chosen Action
	done   bool
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.choose(m.items[m.cursor].action)
	case "r":
		if _, ok := lo.Find(m.items, func(it menuItem) bool { return it.action == ActionRefresh }); ok {
			return m.choose(ActionRefresh)
		}
	case "q", "esc", "ctrl+c":
		return m.choose(ActionQuit)
	default:
		if s := key.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(m.items) {
			return m.choose(m.items[s[0]-'1'].action)
		}
	}
	return m, nil
}

func (m menuModel) choose(a Action) (tea.Model, tea.Cmd) {
	m.chosen = a
	m.done = true
	return m, tea.Quit
}

func (m menuModel) View() string {
	if m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.view)
	sb.WriteString("\n\n")
	for i, it := range m.items {
		line := fmt.Sprintf("%d  %s", i+1, it.title)
		if i == m.cursor {
			sb.WriteString(cardSelectedStyle.Render("▸ " + line))
		} else {
			sb.WriteString(cardNormalStyle.Render("  " + line))
		}
		if it.desc != "" {
			sb.WriteString(dimStyle.Render("  " + it.desc))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpKeyStyle.Render("↑/↓") + helpStyle.Render(" move  ") +
		helpKeyStyle.Render("enter") + helpStyle.Render(" select  ") +
		helpKeyStyle.Render("q") + helpStyle.Render(" quit"))
	sb.WriteString("\n")
	return sb.String()
}
