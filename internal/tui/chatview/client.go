package chatview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/httpapi"
	"github.com/gorilla/websocket"
)

// Client talks to the chat endpoints of the server as one signed-in user.
type Client struct {
	baseURL string
	id      domain.Identity
	http    *http.Client
	dialer  *websocket.Dialer
}

func NewClient(baseURL string, id domain.Identity) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		id:      id,
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set(httpapi.HeaderUserID, c.id.UserID)
	h.Set(httpapi.HeaderUserName, c.id.DisplayName)
	h.Set(httpapi.HeaderUserEmail, c.id.Email)
	return h
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header = c.header()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s: %s", path, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register makes sure the user has a profile on the server.
func (c *Client) Register(ctx context.Context) error {
	return c.post(ctx, "/api/session", nil, nil)
}

// Send posts one message and returns the user and bot turns.
func (c *Client) Send(ctx context.Context, text string) ([]*domain.ChatMessage, error) {
	var msgs []*domain.ChatMessage
	if err := c.post(ctx, "/api/messages", map[string]string{"text": text}, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Stream subscribes to session snapshots. The channel is closed when ctx is
// done or the connection drops.
func (c *Client) Stream(ctx context.Context) (<-chan chat.Snapshot, error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/messages/ws"
	conn, _, err := c.dialer.DialContext(ctx, url, c.header())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	out := make(chan chat.Snapshot)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		for {
			var snap chat.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
