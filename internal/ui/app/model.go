package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memestickers/internal/modules/command/dto"
	"memestickers/internal/ui/components"
	"memestickers/internal/ui/theme"
	chatview "memestickers/internal/ui/views/chat"
	commandsview "memestickers/internal/ui/views/commands"
)

// Port is the command adapter surface the console drives.
type Port interface {
	Send(ctx context.Context, userID, text string) (dto.Response, error)
	Commands(ctx context.Context) ([]dto.CommandInfo, error)
}

type Options struct {
	// Title is shown in the tab bar, e.g. the plugin name.
	Title  string
	UserID string
	// OutputDir receives generated stickers; empty disables saving.
	OutputDir string
}

type tabID int

const (
	tabChat tabID = iota
	tabCommands
	tabCount
)

var tabLabels = [tabCount]string{"Chat", "Commands"}

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Use     key.Binding
	Scroll  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Palette: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Use:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send / use command")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll transcript")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Use, k.Scroll},
		{k.Help, k.Palette, k.Quit},
	}
}

// Model is the root Bubble Tea model. It owns tab routing, the help overlay
// and the command palette; the sub-views do the talking.
type Model struct {
	title  string
	userID string

	chatView     chatview.Model
	commandsView commandsview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	width     int
	height    int
}

func NewModel(port Port, opts Options) Model {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "memestickers"
	}
	return Model{
		title:        title,
		userID:       opts.UserID,
		chatView:     chatview.New(port, opts.UserID, opts.OutputDir),
		commandsView: commandsview.New(port),
		activeTab:    tabChat,
		keys:         defaultKeys(),
		help:         help.New(),
		palette:      components.NewPalette(),
		status:       "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.chatView.Init(), m.commandsView.Init())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The palette intercepts all input while open.
	if m.palette.Visible() {
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case chatview.RepliedMsg:
		if msg.Err != nil {
			m.status = "error: " + msg.Err.Error()
		} else {
			m.status = fmt.Sprintf("%d repl%s", len(msg.Response.Replies), plural(len(msg.Response.Replies)))
		}
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, tea.Batch(cmd, m.commandsView.Reload())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case commandsview.LoadedMsg:
		if msg.Err != nil {
			m.status = "commands: " + msg.Err.Error()
		}
		m.palette.SetHints(usages(msg.Commands))
		var cmd tea.Cmd
		m.commandsView, cmd = m.commandsView.Update(msg)
		return m, cmd

	case commandsview.UseMsg:
		m.activeTab = tabChat
		return m, m.chatView.SetInput(components.CommandPrefix(msg.Usage))

	case components.PaletteSubmitMsg:
		m.activeTab = tabChat
		if msg.Input == "" {
			return m, nil
		}
		m.status = "sending"
		return m, m.chatView.Submit(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "f1" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabCommands && m.commandsView.Filtering() {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "f1":
			m.showHelp = true
			return m, nil
		case "ctrl+k":
			return m, m.palette.Open()
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case tabChat:
		m.chatView, cmd = m.chatView.Update(msg)
	case tabCommands:
		m.commandsView, cmd = m.commandsView.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabCommands:
		content = m.commandsView.View()
	default:
		content = m.chatView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	bar := m.title + "  " + strings.Join(parts, theme.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := theme.Hot.Render("● "+m.userID) + "  " + m.status
	right := theme.Muted.Render("f1:help  tab:switch  ctrl+k:palette  ctrl+c:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.chatView, _ = m.chatView.Update(sz)
	m.commandsView, _ = m.commandsView.Update(sz)
}

func usages(cmds []dto.CommandInfo) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Usage)
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
