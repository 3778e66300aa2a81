// Package tui is a terminal viewer for a paginated Document. Pages are laid
// out in terminal rows by Surface and navigated with the same Viewer the
// HTTP API uses.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/viewer"
)

// chrome is the number of lines drawn around the page: header, rule,
// footer and status.
const chrome = 4

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx     context.Context
	title   string
	viewer  *viewer.Viewer
	surface *Surface
	styles  Styles

	input     textinput.Model
	inputting bool

	cols, height int
	mounted      bool
	err          error
}

// NewModel builds a model for v. surface must be the surface v's paginator
// measures with, so that window height changes reach the page budget.
func NewModel(ctx context.Context, title string, v *viewer.Viewer, surface *Surface) Model {
	in := textinput.New()
	in.Placeholder = "page"
	in.CharLimit = 6
	in.Width = 8
	in.Prompt = "Go to: "

	return Model{
		ctx:     ctx,
		title:   title,
		viewer:  v,
		surface: surface,
		styles:  DefaultStyles(),
		input:   in,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		if m.inputting {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "left", "up", "pgup", "h", "k":
			m.viewer.HandleKey(viewer.ArrowLeft)
		case "right", "down", "pgdown", "l", "j", " ":
			m.viewer.HandleKey(viewer.ArrowRight)
		case "home":
			m.viewer.GoTo(1)
		case "end":
			m.viewer.GoTo(m.viewer.Total())
		case "g":
			m.inputting = true
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.viewer.GoToInput(m.input.Value())
		m.inputting = false
		m.input.Blur()
		return m, nil
	case "esc":
		m.inputting = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize repaginates for a new terminal size. A failed pass keeps the
// previous pages on screen.
func (m Model) resize(cols, height int) Model {
	m.cols, m.height = cols, height
	m.surface.SetRows(height - chrome)

	var err error
	if !m.mounted {
		err = m.viewer.Mount(m.ctx, cols)
		m.mounted = true
	} else {
		err = m.viewer.Resize(m.ctx, cols)
	}
	m.err = err
	return m
}

func (m Model) View() string {
	if !m.mounted {
		return "Loading..."
	}
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("  ")
	b.WriteString(m.styles.Status.Render(fmt.Sprintf("Page %d of %d", m.viewer.Current(), m.viewer.Total())))
	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(strings.Repeat("─", max(m.cols, 1))))
	b.WriteString("\n")

	body := m.pageLines()
	rows := m.surface.Rows()
	for i := 0; i < rows; i++ {
		if i < len(body) {
			b.WriteString(body[i])
		}
		b.WriteString("\n")
	}

	b.WriteString(m.footer())
	b.WriteString("\n")
	b.WriteString(m.status())
	return b.String()
}

func (m Model) pageLines() []string {
	var lines []string
	for _, blk := range m.viewer.Page().Blocks {
		rendered, err := RenderBlock(blk.Markup, m.cols, m.styles)
		if err != nil {
			rendered = []string{m.styles.Warning.Render(err.Error())}
		}
		lines = append(lines, rendered...)
		lines = append(lines, "")
	}
	return lines
}

func (m Model) footer() string {
	prev, next := m.styles.Disabled, m.styles.Disabled
	if m.viewer.CanPrev() {
		prev = m.styles.Enabled
	}
	if m.viewer.CanNext() {
		next = m.styles.Enabled
	}
	if m.inputting {
		return m.input.View()
	}
	return prev.Render("← Prev") + "   " + next.Render("Next →") +
		m.styles.Status.Render("   g go to  q quit")
}

func (m Model) status() string {
	switch {
	case m.viewer.Pending():
		return m.styles.Warning.Render("Layout unavailable, showing previous pages")
	case m.err != nil:
		return m.styles.Warning.Render(m.err.Error())
	case m.viewer.Page().Oversized():
		return m.styles.Status.Render("Page content is taller than the window")
	}
	return ""
}

// Run shows document full screen until the user quits or ctx ends.
func Run(ctx context.Context, title, document string, log *slog.Logger) error {
	surface := NewSurface(24 - chrome)
	v := viewer.New(document, paginate.New(surface), log)
	p := tea.NewProgram(NewModel(ctx, title, v, surface), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
