package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

type sendRequest struct {
	Text string `json:"text"`
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.Chat.History(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.fail(w, r, "chat history", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleSendMessage blocks until the bot's turn is stored and returns both turns.
func (a *api) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	msgs, err := a.Chat.Send(r.Context(), identityFrom(r.Context()), req.Text)
	if err != nil {
		a.fail(w, r, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, msgs)
}

// handleChatStream pushes a session snapshot on every change until the
// client goes away.
func (a *api) handleChatStream(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go drain(conn, cancel)

	snapshots, err := a.Chat.Subscribe(ctx, id)
	if err != nil {
		a.logger.Error("chat subscribe", "user", id.UserID, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				a.logger.Debug("chat stream write", "user", id.UserID, "error", err)
				return
			}
		}
	}
}

// drain reads and discards client frames; it cancels once the connection closes.
func drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
