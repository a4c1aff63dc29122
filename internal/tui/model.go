package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storyrag/internal/domain"
)

// Extractor is the TUI-facing subset of the extraction use case.
type Extractor interface {
	Extract(name string) (domain.CharacterInfo, error)
}

// Cleaner removes all indexed story data.
type Cleaner interface {
	Clear() error
}

// Model is the Bubble Tea model for the interactive session.
type Model struct {
	extractor Extractor
	cleaner   Cleaner
	input     textinput.Model
	viewport  viewport.Model
	info      *domain.CharacterInfo
	status    string
	ready     bool
}

// New creates a new TUI model instance. The summary line is shown under the
// header, typically the result of a preceding ingest.
func New(extractor Extractor, cleaner Cleaner, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a character name and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Ready. Type a character name to search."
	if summary != "" {
		status = summary
	}
	return Model{extractor: extractor, cleaner: cleaner, input: ti, viewport: vp, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status + query box + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			name := strings.TrimSpace(m.input.Value())
			if name != "" {
				m.query(name)
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		case "ctrl+x":
			if err := m.cleaner.Clear(); err != nil {
				m.status = "Error clearing data: " + err.Error()
			} else {
				m.status = "All story data cleared."
				m.info = nil
			}
			m.viewport.SetContent(m.renderResult())
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) query(name string) {
	info, err := m.extractor.Extract(name)
	if err != nil {
		m.info = nil
		switch {
		case errors.Is(err, domain.ErrCharacterNotFound):
			m.status = fmt.Sprintf("Character %q was not found in the stories.", name)
		case errors.Is(err, domain.ErrIndexNotFound), errors.Is(err, domain.ErrNotInitialized):
			m.status = "No index found. Run 'storyrag index' first."
		default:
			m.status = "Error: " + err.Error()
		}
		return
	}
	m.info = &info
	m.status = fmt.Sprintf("Showing %q. Ctrl+X clears all data, Ctrl+C quits.", name)
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Story Character Extractor")
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	result := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + result + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.info == nil {
		return "No character selected yet."
	}
	info := m.info

	var sb strings.Builder
	sb.WriteString(nameStyle.Render(info.Name))
	sb.WriteString(typeStyle.Render(" (" + info.CharacterType + ")"))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Story: "))
	sb.WriteString(info.StoryTitle)
	sb.WriteString("\n\n")
	sb.WriteString(info.Summary)
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Relationships:"))
	sb.WriteString("\n")
	if len(info.Relations) == 0 {
		sb.WriteString("No relationships found.")
	} else {
		for _, r := range info.Relations {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", nameStyle.Render(r.Name), r.Relation))
		}
	}
	return sb.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	nameStyle      = lipgloss.NewStyle().Bold(true)
	typeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
