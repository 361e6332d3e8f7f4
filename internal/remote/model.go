// Package remote is the terminal control device: it moves a session's
// section cursor and mirrors what the display is showing.
package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hairvision-ai/hairvision/internal/display"
)

// FrameMsg carries the latest display frame.
type FrameMsg struct {
	Frame display.Frame
}

// PatchFailedMsg reports a section write the server rejected.
type PatchFailedMsg struct {
	Section display.Section
	Err     error
}

// FollowEndedMsg is sent when the display stream closes.
type FollowEndedMsg struct {
	Err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fafafa")).
			Background(lipgloss.Color("#7c3aed")).
			Padding(0, 1)
	codeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#262626")).
			Foreground(lipgloss.Color("#e5e5e5")).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#737373"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
)

type Model struct {
	ctx     context.Context
	ctrl    *display.Controller
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	frame     display.Frame
	following bool
	status    string
	lastErr   error
	quitting  bool
}

// New returns a model driving ctrl. ctx bounds the background writes.
func New(ctx context.Context, ctrl *display.Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case FrameMsg:
		m.frame = msg.Frame
		m.following = true
		if msg.Frame.State == display.StateFailed {
			m.lastErr = fmt.Errorf("display: %s", msg.Frame.Error)
		}

	case PatchFailedMsg:
		m.lastErr = fmt.Errorf("failed to move display to %s: %w", msg.Section, msg.Err)

	case FollowEndedMsg:
		m.following = false
		if msg.Err != nil {
			m.lastErr = msg.Err
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Next):
		m.moved(m.ctrl.Next(m.ctx))
	case key.Matches(msg, m.keys.Prev):
		m.moved(m.ctrl.Prev(m.ctx))
	case key.Matches(msg, m.keys.First):
		m.jump(0)
	case key.Matches(msg, m.keys.Last):
		m.jump(len(display.Sequence) - 1)
	case key.Matches(msg, m.keys.Jump):
		m.jump(int(msg.String()[0]-'1'))
	}
	return m, nil
}

func (m *Model) jump(idx int) {
	if idx < 0 || idx >= len(display.Sequence) {
		return
	}
	s, err := m.ctrl.Jump(m.ctx, display.Sequence[idx])
	if err != nil {
		m.lastErr = err
		return
	}
	m.moved(s)
}

func (m *Model) moved(s display.Section) {
	m.lastErr = nil
	m.status = "Showing " + s.Title()
}

// Current is the locally applied section.
func (m Model) Current() display.Section { return m.ctrl.Current() }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("HairVision Remote"))
	b.WriteString("  ")
	b.WriteString(codeStyle.Render(m.ctrl.Code()))
	b.WriteString("\n\n")

	current := m.ctrl.Current()
	for i, s := range display.Sequence {
		line := fmt.Sprintf("%d. %s", i+1, s.Title())
		switch {
		case s == current:
			b.WriteString(selectedStyle.Render("▸ " + line))
		case m.following && s == m.frame.Section:
			b.WriteString(mutedStyle.Render("· " + line))
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.displayLine())
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(successStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) displayLine() string {
	if !m.following {
		return mutedStyle.Render("Display: not connected")
	}
	switch m.frame.State {
	case display.StateLoading:
		return m.spinner.View() + " Display loading"
	case display.StateFailed:
		return errorStyle.Render("Display: " + m.frame.Error)
	}
	line := fmt.Sprintf("Display: %s (v%d)", m.frame.Section.Title(), m.frame.Version)
	if m.frame.Animating {
		line = m.spinner.View() + " " + line
	}
	return line
}
