package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memestickers/internal/ui/theme"
)

const maxHints = 6

// PaletteSubmitMsg is emitted when the user confirms a command.
type PaletteSubmitMsg struct{ Input string }

// PaletteCancelMsg is emitted when the user presses esc.
type PaletteCancelMsg struct{}

var (
	paletteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	hintStyle     = lipgloss.NewStyle().Foreground(theme.Subtext0)
	selectedStyle = lipgloss.NewStyle().Foreground(theme.Lavender).Bold(true)
)

// Palette is a command-palette overlay backed by bubbles/textinput. Hints
// are the usage lines of the commands the router currently knows.
type Palette struct {
	input    textinput.Model
	hints    []string
	selected int
	visible  bool
	width    int
}

func NewPalette() Palette {
	ti := textinput.New()
	ti.Placeholder = "type a command…"
	ti.CharLimit = 256
	return Palette{input: ti}
}

func (p Palette) Visible() bool { return p.visible }

// SetHints replaces the suggestion list.
func (p *Palette) SetHints(hints []string) {
	p.hints = append([]string(nil), hints...)
	p.selected = 0
}

// Open shows the palette, clears the input, and returns the focus command.
func (p *Palette) Open() tea.Cmd {
	p.visible = true
	p.selected = 0
	p.input.SetValue("")
	return p.input.Focus()
}

func (p *Palette) SetWidth(w int) { p.width = w }

func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			p.close()
			return p, func() tea.Msg { return PaletteCancelMsg{} }
		case "up", "ctrl+p":
			if p.selected > 0 {
				p.selected--
			}
			return p, nil
		case "down", "ctrl+n":
			if p.selected < len(p.Matching())-1 {
				p.selected++
			}
			return p, nil
		case "tab":
			if matching := p.Matching(); len(matching) > 0 {
				p.input.SetValue(CommandPrefix(matching[p.selected]))
				p.input.CursorEnd()
			}
			return p, nil
		case "enter":
			val := strings.TrimSpace(p.input.Value())
			p.close()
			return p, func() tea.Msg { return PaletteSubmitMsg{Input: val} }
		}
	}
	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.selected = 0
	}
	return p, cmd
}

func (p *Palette) close() {
	p.visible = false
	p.input.Blur()
}

// Matching returns the hints containing the current input, case-insensitive.
func (p Palette) Matching() []string {
	query := strings.ToLower(strings.TrimSpace(p.input.Value()))
	var matching []string
	for _, h := range p.hints {
		if query == "" || strings.Contains(strings.ToLower(h), query) {
			matching = append(matching, h)
			if len(matching) == maxHints {
				break
			}
		}
	}
	return matching
}

// CommandPrefix drops the argument placeholders from a usage line so the
// user can type the arguments.
func CommandPrefix(usage string) string {
	var kept []string
	for _, field := range strings.Fields(usage) {
		if strings.ContainsAny(field[:1], "<[") {
			break
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ") + " "
}

func (p Palette) View() string {
	if !p.visible {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Command Palette") + "\n")
	sb.WriteString("> " + p.input.View() + "\n")
	if matching := p.Matching(); len(matching) > 0 {
		sb.WriteString("\n")
		for i, h := range matching {
			if i == p.selected {
				sb.WriteString(selectedStyle.Render("› "+h) + "\n")
				continue
			}
			sb.WriteString(hintStyle.Render("  "+h) + "\n")
		}
		sb.WriteString("\n" + hintStyle.Render("tab complete · enter send · esc close"))
	}

	w := p.width
	if w < 20 {
		w = 64
	}
	return paletteStyle.Width(w - 2).Render(sb.String())
}
