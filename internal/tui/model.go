// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/sign2me/internal/session"
)

var (
	targetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Session is the part of a practice session the UI drives.
type Session interface {
	Subscribe() (<-chan session.State, func())
	Advance(ctx context.Context) (session.State, error)
}

type stateMsg session.State

type closedMsg struct{}

type errMsg struct{ err error }

// Model renders one session and lets the learner move on once a letter is signed.
type Model struct {
	sess        Session
	updates     <-chan session.State
	unsubscribe func()

	state  session.State
	ready  bool
	errMsg string
	width  int
}

// NewModel subscribes to the session's snapshots.
func NewModel(s Session) *Model {
	updates, unsubscribe := s.Subscribe()
	return &Model{sess: s, updates: updates, unsubscribe: unsubscribe}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.wait()
}

// wait delivers the next snapshot as a message.
func (m *Model) wait() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return stateMsg(s)
	}
}

func (m *Model) advance() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		if _, err := sess.Advance(context.Background()); err != nil {
			return errMsg{err: err}
		}
		// The new state arrives through the subscription.
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case stateMsg:
		m.state = session.State(msg)
		m.ready = true
		m.errMsg = ""
		return m, m.wait()
	case closedMsg:
		return m, tea.Quit
	case errMsg:
		m.errMsg = msg.err.Error()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.unsubscribe()
			return m, tea.Quit
		case "n", "enter", " ":
			if m.CanAdvance() {
				return m, m.advance()
			}
		}
	}
	return m, nil
}

// CanAdvance reports whether the next-letter action is offered.
func (m *Model) CanAdvance() bool {
	return m.ready && m.state.Locked
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return pendingStyle.Render("Waiting for session...") + "\n"
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Sign this letter") + "\n")
	b.WriteString(targetStyle.Render(m.state.Target) + "\n\n")

	b.WriteString(labelStyle.Render("Detected  ") + valueStyle.Render(m.state.PredictedSign))
	if m.state.Confidence != "" {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  (%s)", m.state.Confidence)))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Status    ") + renderStatus(m.state.Status) + "\n")

	if m.state.FeedbackText != "" {
		b.WriteString("\n" + statusStyle(m.state.Status).Render(m.state.FeedbackText) + "\n")
	}
	if len(m.state.Alternatives) > 0 {
		alts := make([]string, 0, len(m.state.Alternatives))
		for _, a := range m.state.Alternatives {
			alts = append(alts, fmt.Sprintf("%s %s", a.Label, a.Confidence))
		}
		b.WriteString(labelStyle.Render("Also considered: "+strings.Join(alts, ", ")) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n")
	if m.CanAdvance() {
		b.WriteString(helpStyle.Render("n next letter • q quit"))
	} else {
		b.WriteString(helpStyle.Render("q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func renderStatus(s session.Status) string {
	return statusStyle(s).Render(string(s))
}

func statusStyle(s session.Status) lipgloss.Style {
	switch s {
	case session.StatusCorrect:
		return correctStyle
	case session.StatusIncorrect:
		return incorrectStyle
	default:
		return pendingStyle
	}
}

// Run drives the interface until the learner quits or the session closes.
func Run(ctx context.Context, s Session, opts ...tea.ProgramOption) error {
	m := NewModel(s)
	defer m.unsubscribe()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(m, opts...)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
