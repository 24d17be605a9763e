package chat

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memestickers/internal/modules/command/dto"
	"memestickers/internal/ui/theme"
)

const inputHeight = 3

// Port is the slice of the command adapter the chat view needs.
type Port interface {
	Send(ctx context.Context, userID, text string) (dto.Response, error)
}

// RepliedMsg carries the router's answer to one line. Saved holds the files
// image replies were written to, in reply order.
type RepliedMsg struct {
	Input    string
	Response dto.Response
	Saved    []string
	Err      error
}

type entry struct {
	speaker string
	body    string
}

// Model is a single-user chat transcript with an input line.
type Model struct {
	port      Port
	userID    string
	outputDir string

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	entries    []entry
	waiting    bool
	images     int
	width      int
	height     int
}

// New creates a chat Model that talks as userID. Image replies are written
// under outputDir; an empty outputDir only reports their size.
func New(port Port, userID, outputDir string) Model {
	ti := textinput.New()
	ti.Placeholder = "/meme help"
	ti.Prompt = "› "
	ti.CharLimit = 1024
	ti.Focus()

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Foreground(theme.Text)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:       port,
		userID:     userID,
		outputDir:  outputDir,
		input:      ti,
		transcript: vp,
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Waiting reports whether a message is in flight.
func (m Model) Waiting() bool { return m.waiting }

// SetInput replaces the input line and focuses it.
func (m *Model) SetInput(text string) tea.Cmd {
	m.input.SetValue(text)
	m.input.CursorEnd()
	return m.input.Focus()
}

// Submit sends text as if the user had typed it.
func (m *Model) Submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || m.waiting || m.port == nil {
		return nil
	}
	m.waiting = true
	m.entries = append(m.entries, entry{speaker: "you", body: text})
	m.refresh()
	return tea.Batch(m.sendCmd(text), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case RepliedMsg:
		m.waiting = false
		m.record(msg)
		m.refresh()

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			text := m.input.Value()
			if cmd := m.Submit(text); cmd != nil {
				m.input.SetValue("")
				cmds = append(cmds, cmd)
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			cmds = append(cmds, cmd)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) record(msg RepliedMsg) {
	if msg.Err != nil {
		m.entries = append(m.entries, entry{speaker: "error", body: msg.Err.Error()})
		if len(msg.Response.Replies) == 0 {
			return
		}
	}
	if !msg.Response.Handled {
		m.entries = append(m.entries, entry{speaker: "note", body: "not a command; try /meme help"})
		return
	}
	saved := 0
	for _, reply := range msg.Response.Replies {
		if reply.Kind != "image" {
			m.entries = append(m.entries, entry{speaker: "bot", body: reply.Text})
			continue
		}
		m.images++
		body := fmt.Sprintf("[%s, %d bytes]", reply.MIMEType, len(reply.Image))
		if saved < len(msg.Saved) {
			body += " saved to " + msg.Saved[saved]
			saved++
		}
		m.entries = append(m.entries, entry{speaker: "image", body: body})
	}
}

func (m *Model) resize() {
	m.input.Width = max(m.width-6, 10)
	m.transcript.Width = m.width
	m.transcript.Height = max(m.height-inputHeight, 1)
	m.refresh()
}

func (m *Model) refresh() {
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return theme.Muted.Render("Type /meme help to get started.")
	}
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 10))
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		var label string
		switch e.speaker {
		case "you":
			label = theme.You.Render("you")
		case "bot":
			label = theme.Bot.Render("bot")
		case "image":
			label = theme.Bot.Render("bot") + " " + theme.Image.Render(e.body)
			lines = append(lines, label)
			continue
		case "error":
			label = theme.Error.Render("error")
		default:
			lines = append(lines, theme.Muted.Render(e.body))
			continue
		}
		lines = append(lines, wrap.Render(label+" "+e.body))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	status := ""
	if m.waiting {
		status = m.spinner.View() + " " + theme.Muted.Render("waiting for reply")
	}
	input := theme.PaneActive.Width(max(m.width-2, 10)).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.transcript.View(), status, input)
}

func (m Model) sendCmd(text string) tea.Cmd {
	port, userID, outputDir, seq := m.port, m.userID, m.outputDir, m.images
	return func() tea.Msg {
		resp, err := port.Send(context.Background(), userID, text)
		if err != nil {
			return RepliedMsg{Input: text, Err: err}
		}
		saved, err := SaveImages(outputDir, seq, resp.Replies)
		return RepliedMsg{Input: text, Response: resp, Saved: saved, Err: err}
	}
}

// SaveImages writes every image reply to dir as sticker-<stamp>-<n>.<ext>.
func SaveImages(dir string, seq int, replies []dto.Reply) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	var saved []string
	stamp := time.Now().Format("20060102-150405")
	for _, reply := range replies {
		if reply.Kind != "image" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return saved, fmt.Errorf("save image: %w", err)
		}
		seq++
		path := filepath.Join(dir, fmt.Sprintf("sticker-%s-%d%s", stamp, seq, extensionFor(reply.MIMEType)))
		if err := os.WriteFile(path, reply.Image, 0o644); err != nil {
			return saved, fmt.Errorf("save image: %w", err)
		}
		saved = append(saved, path)
	}
	return saved, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
