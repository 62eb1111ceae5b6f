package chatview

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	texts []string
	reply []*domain.ChatMessage
	err   error
}

func (s *stubSender) Send(ctx context.Context, text string) ([]*domain.ChatMessage, error) {
	s.texts = append(s.texts, text)
	return s.reply, s.err
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func pressEnter(m Model) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_BlankInputIsIgnored(t *testing.T) {
	sender := &stubSender{}
	m := typeText(New(sender, nil, "u1"), "   ")

	m, cmd := pressEnter(m)
	assert.Nil(t, cmd)
	assert.Equal(t, chat.StateIdle, m.state)
	assert.Empty(t, sender.texts)
}

func TestModel_SendRoundTrip(t *testing.T) {
	sender := &stubSender{reply: []*domain.ChatMessage{
		{ID: "m1", SenderID: "u1", Sender: "Alice", Text: "hello"},
		{ID: "m2", SenderID: chat.BotID, Sender: chat.BotLabel, Text: "hi there"},
	}}
	m := typeText(New(sender, nil, "u1"), "hello")

	m, cmd := pressEnter(m)
	require.NotNil(t, cmd)
	assert.Equal(t, chat.StateSending, m.state)
	assert.Empty(t, m.input.Value())
	assert.True(t, m.Typing())
	assert.Contains(t, m.View(), chat.TypingIndicator)

	// Повторный Enter во время отправки ничего не делает.
	m = typeText(m, "again")
	m, second := pressEnter(m)
	assert.Nil(t, second)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, chat.StateIdle, m.state)
	assert.False(t, m.Typing())
	assert.Equal(t, []string{"hello"}, sender.texts)
	require.Len(t, m.messages, 2)
	assert.Contains(t, m.renderMessages(), "hi there")
}

func TestModel_SendError(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	m := typeText(New(sender, nil, "u1"), "hello")

	m, cmd := pressEnter(m)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, chat.StateIdle, m.state)
	assert.Contains(t, m.View(), "connection refused")
}

func TestModel_Snapshots(t *testing.T) {
	snaps := make(chan chat.Snapshot, 1)
	m := New(&stubSender{}, snaps, "u1")

	snaps <- chat.Snapshot{
		SessionID: "u1_ai",
		Messages:  []*domain.ChatMessage{{ID: "m1", SenderID: "u1", Sender: "Alice", Text: "ping"}},
		State:     chat.StateAwaitingReply,
		Typing:    chat.TypingIndicator,
	}
	msg := m.waitForSnapshot()()
	next, cmd := m.Update(msg)
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.True(t, m.Typing())
	require.Len(t, m.messages, 1)

	// Ответ из Send, уже доставленный снимком, не дублируется.
	m.merge([]*domain.ChatMessage{
		{ID: "m1", Text: "ping"},
		{ID: "m2", SenderID: chat.BotID, Text: "pong"},
	})
	assert.Len(t, m.messages, 2)

	close(snaps)
	next, _ = m.Update(m.waitForSnapshot()())
	m = next.(Model)
	assert.False(t, m.Typing())
	assert.Nil(t, m.snapshots)
}

func TestModel_ResizeAndQuit(t *testing.T) {
	m := New(&stubSender{}, nil, "u1")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Model)
	assert.Equal(t, 15, m.viewport.Height)
	assert.True(t, strings.Contains(m.View(), "Chat with AI"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
