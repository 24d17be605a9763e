package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"memestickers/internal/modules/command/dto"
	"memestickers/internal/ui/theme"
)

// Port lists the commands the router currently accepts.
type Port interface {
	Commands(ctx context.Context) ([]dto.CommandInfo, error)
}

// LoadedMsg carries a fresh command list.
type LoadedMsg struct {
	Commands []dto.CommandInfo
	Err      error
}

// UseMsg asks the parent to put Usage into the chat input.
type UseMsg struct{ Usage string }

type commandItem struct{ info dto.CommandInfo }

func (i commandItem) Title() string {
	title := i.info.Usage
	if i.info.Admin {
		title += "  (admin)"
	}
	return title
}

func (i commandItem) Description() string {
	switch {
	case i.info.Shortcut && !i.info.Active:
		return fmt.Sprintf("%s [%s] (disabled)", i.info.Summary, i.info.Pack)
	case i.info.Shortcut:
		return fmt.Sprintf("%s [%s]", i.info.Summary, i.info.Pack)
	}
	return i.info.Summary
}

func (i commandItem) FilterValue() string { return i.info.Name + " " + i.info.Summary }

// Model lists built-in commands and pack shortcuts.
type Model struct {
	port     Port
	list     list.Model
	commands []dto.CommandInfo
	err      error
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Commands"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return Model{port: port, list: l}
}

func (m Model) Init() tea.Cmd { return m.Reload() }

// Reload fetches the command list again; shortcuts change with pack config.
func (m Model) Reload() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		if port == nil {
			return LoadedMsg{}
		}
		cmds, err := port.Commands(context.Background())
		return LoadedMsg{Commands: cmds, Err: err}
	}
}

// Filtering reports whether the list's search filter is active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Commands returns the last loaded list.
func (m Model) Commands() []dto.CommandInfo { return m.commands }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case LoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.commands = msg.Commands
		items := make([]list.Item, len(msg.Commands))
		for i, c := range msg.Commands {
			items[i] = commandItem{info: c}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if msg.String() == "enter" && !m.Filtering() {
			if item, ok := m.list.SelectedItem().(commandItem); ok {
				usage := item.info.Usage
				return m, func() tea.Msg { return UseMsg{Usage: usage} }
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.err != nil {
		return theme.Error.Render("Error loading commands: " + m.err.Error())
	}
	return m.list.View()
}
