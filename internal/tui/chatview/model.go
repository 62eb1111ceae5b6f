// Package chatview is the terminal chat view for the AI bot session.
package chatview

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/domain"
)

// Sender sends one chat message. Client satisfies it.
type Sender interface {
	Send(ctx context.Context, text string) ([]*domain.ChatMessage, error)
}

// --- Messages ---

// snapshotMsg carries a session snapshot pushed by the server.
type snapshotMsg chat.Snapshot

// streamClosedMsg is sent when the snapshot stream ends.
type streamClosedMsg struct{}

// sentMsg is sent when a Send call returns.
type sentMsg struct {
	msgs []*domain.ChatMessage
	err  error
}

// --- Model ---

// Model holds the chat view state. Locally it is idle or sending; the
// server's snapshot state is shown while another client is waiting too.
type Model struct {
	sender    Sender
	snapshots <-chan chat.Snapshot
	userID    string

	messages []*domain.ChatMessage
	state    chat.State
	remote   chat.State
	err      error

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
}

// New creates a chat model. snapshots may be nil when streaming is unavailable.
func New(sender Sender, snapshots <-chan chat.Snapshot, userID string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 2000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1D9BF0"))

	return Model{
		sender:    sender,
		snapshots: snapshots,
		userID:    userID,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spinner:   s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForSnapshot())
}

func (m Model) waitForSnapshot() tea.Cmd {
	if m.snapshots == nil {
		return nil
	}
	ch := m.snapshots
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.sender.Send(context.Background(), text)
		return sentMsg{msgs: msgs, err: err}
	}
}

// Typing reports whether the typing indicator is shown.
func (m Model) Typing() bool {
	return m.state != chat.StateIdle || m.remote != chat.StateIdle
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-5, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.state != chat.StateIdle {
				return m, nil
			}
			m.input.Reset()
			m.state = chat.StateSending
			m.err = nil
			return m, m.send(text)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case sentMsg:
		m.state = chat.StateIdle
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.merge(msg.msgs)
		m.refresh()
		return m, nil

	case snapshotMsg:
		m.messages = msg.Messages
		m.remote = msg.State
		m.refresh()
		return m, m.waitForSnapshot()

	case streamClosedMsg:
		m.snapshots = nil
		m.remote = chat.StateIdle
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// merge appends messages the snapshots have not delivered yet.
func (m *Model) merge(msgs []*domain.ChatMessage) {
	seen := make(map[string]bool, len(m.messages))
	for _, existing := range m.messages {
		seen[existing.ID] = true
	}
	for _, msg := range msgs {
		if !seen[msg.ID] {
			m.messages = append(m.messages, msg)
		}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return helpStyle.Render("Say hi to the AI bot.")
	}
	width := max(m.viewport.Width-2, 20)

	var b strings.Builder
	for _, msg := range m.messages {
		style := botStyle
		if msg.SenderID == m.userID {
			style = selfStyle
		}
		b.WriteString(style.Render(msg.Sender))
		b.WriteString("\n")
		b.WriteString(textStyle.Width(width).Render(msg.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat with AI"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.Typing():
		b.WriteString(m.spinner.View() + " " + typingStyle.Render(chat.TypingIndicator))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: send • esc: quit"))
	return b.String()
}
