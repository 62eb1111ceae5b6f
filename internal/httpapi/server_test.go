package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UkralStul/chirp/internal/blob"
	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/relay"
	"github.com/UkralStul/chirp/internal/social"
	"github.com/UkralStul/chirp/internal/storage/inmemory"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	alice = domain.Identity{UserID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	bob   = domain.Identity{UserID: "bob", DisplayName: "Bob", Email: "bob@example.com"}
)

type testAPI struct {
	srv   *httptest.Server
	store *inmemory.Store
}

func newTestAPI(t *testing.T, gen relay.Generator) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if gen == nil {
		gen = generatorFunc(func(ctx context.Context, prompt string) (string, error) {
			return "echo: " + prompt, nil
		})
	}

	store := inmemory.New()
	relaySvc := relay.NewService(gen, logger)

	srv := httptest.NewServer(nil)
	blobs := blob.NewMemory(srv.URL)
	srv.Config.Handler = NewRouter(Deps{
		Relay:          relaySvc,
		Chat:           chat.NewService(store, relaySvc, logger),
		Social:         social.NewService(store, blobs, logger),
		Users:          store,
		Blobs:          blobs,
		SearchDebounce: 50 * time.Millisecond,
	}, logger)
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, store: store}
}

func identityHeader(id domain.Identity) http.Header {
	h := http.Header{}
	if id.UserID != "" {
		h.Set(HeaderUserID, id.UserID)
		h.Set(HeaderUserName, id.DisplayName)
		h.Set(HeaderUserEmail, id.Email)
	}
	return h
}

func (a *testAPI) do(t *testing.T, id domain.Identity, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	req.Header = identityHeader(id)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) doJSON(t *testing.T, id domain.Identity, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(t, id, method, path, r, "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) signIn(t *testing.T, ids ...domain.Identity) {
	t.Helper()
	for _, id := range ids {
		resp := a.doJSON(t, id, http.MethodPost, "/api/session", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	resp := api.doJSON(t, domain.Identity{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestChatRelay(t *testing.T) {
	calls := 0
	api := newTestAPI(t, generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if prompt == "fail" {
			return "", errors.New("quota exceeded")
		}
		return " Hello! ", nil
	}))

	resp := api.doJSON(t, domain.Identity{}, http.MethodPost, "/api/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Message is required", decode[map[string]string](t, resp)["error"])
	assert.Zero(t, calls)

	resp = api.doJSON(t, domain.Identity{}, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello!", decode[map[string]string](t, resp)["reply"])

	resp = api.doJSON(t, domain.Identity{}, http.MethodPost, "/api/chat", `{"message":"fail"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, relay.ErrorMessage, body["error"])
	assert.Equal(t, "quota exceeded", body["details"])
}

func TestRequiresIdentity(t *testing.T) {
	api := newTestAPI(t, nil)
	for _, path := range []string{"/api/feed", "/api/notifications", "/api/messages", "/api/search"} {
		resp := api.doJSON(t, domain.Identity{}, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestPosts_Lifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice, bob)

	resp := api.doJSON(t, alice, http.MethodPost, "/api/posts", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodPost, "/api/posts", `{"text":"Hello, world"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[domain.Post](t, resp)
	assert.Equal(t, "Alice", post.AuthorName)

	resp = api.doJSON(t, bob, http.MethodPost, "/api/posts/"+post.ID+"/like", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"bob"}, decode[domain.Post](t, resp).Likes)

	resp = api.doJSON(t, bob, http.MethodPost, "/api/posts/"+post.ID+"/comments", `{"text":"nice one"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.doJSON(t, bob, http.MethodPost, "/api/posts/"+post.ID+"/comments", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/feed", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decode[[]domain.FeedEntry](t, resp)
	require.Len(t, feed, 4)
	assert.Equal(t, post.ID, feed[3].ID())
	assert.Equal(t, domain.OriginPersisted, feed[3].Origin)
	require.Len(t, feed[3].Post.Comments, 1)

	resp = api.doJSON(t, bob, http.MethodDelete, "/api/posts/"+post.ID, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodDelete, "/api/posts/"+post.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodPost, "/api/posts/"+post.ID+"/like", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes := decode[[]domain.Notification](t, resp)
	require.Len(t, notes, 2)
	assert.Equal(t, "Bob", notes[0].ActorName)
}

func multipartBody(t *testing.T, fields map[string]string, fileField string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploads(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice)
	png := []byte("\x89PNG\r\n\x1a\n0000")

	body, ct := multipartBody(t, map[string]string{"displayName": "Alice L"}, "photo", png)
	resp := api.do(t, alice, http.MethodPatch, "/api/users/me", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[domain.UserProfile](t, resp)
	assert.Equal(t, "Alice L", profile.DisplayName)
	require.NotNil(t, profile.PhotoURL)
	assert.Equal(t, api.srv.URL+"/blobs/profilePictures/alice", *profile.PhotoURL)

	body, ct = multipartBody(t, nil, "image", png)
	resp = api.do(t, alice, http.MethodPost, "/api/posts", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[domain.Post](t, resp)
	require.NotNil(t, post.ImageURL)

	img, err := api.srv.Client().Get(*post.ImageURL)
	require.NoError(t, err)
	defer img.Body.Close()
	require.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))
	data, err := io.ReadAll(img.Body)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/feed", "")
	feed := decode[[]domain.FeedEntry](t, resp)
	require.Len(t, feed, 4)
	require.NotNil(t, feed[3].AuthorPhoto)
	assert.Equal(t, *profile.PhotoURL, *feed[3].AuthorPhoto)

	missing, err := api.srv.Client().Get(api.srv.URL + "/blobs/tweets/nobody/1")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUsers_FollowAndSuggestions(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice, bob)

	resp := api.doJSON(t, alice, http.MethodPost, "/api/users/alice/follow", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodPost, "/api/users/bob/follow", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/users/bob", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"alice"}, decode[domain.UserProfile](t, resp).Followers)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/users/suggested", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]domain.UserProfile](t, resp)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].ID)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/users/suggested?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.doJSON(t, bob, http.MethodGet, "/api/notifications", "")
	notes := decode[[]domain.Notification](t, resp)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationFollow, notes[0].Kind)
}

type searchBody struct {
	Active    bool                  `json:"active"`
	NoResults bool                  `json:"noResults"`
	Query     string                `json:"query"`
	Posts     []*domain.Post        `json:"posts"`
	Users     []*domain.UserProfile `json:"users"`
	Feed      []domain.FeedEntry    `json:"feed"`
}

func TestSearch(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice, bob)
	resp := api.doJSON(t, bob, http.MethodPost, "/api/posts", `{"text":"Gophers everywhere"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/search?q=", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blank := decode[searchBody](t, resp)
	assert.False(t, blank.Active)
	assert.Len(t, blank.Feed, 4)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/search?q=gopher", "")
	hit := decode[searchBody](t, resp)
	assert.True(t, hit.Active)
	require.Len(t, hit.Posts, 1)
	assert.Empty(t, hit.Feed)

	resp = api.doJSON(t, alice, http.MethodGet, "/api/search?q=zzz", "")
	assert.True(t, decode[searchBody](t, resp).NoResults)
}

func wsURL(api *testAPI, path string) string {
	return "ws" + strings.TrimPrefix(api.srv.URL, "http") + path
}

func TestMessages_SendAndStream(t *testing.T) {
	api := newTestAPI(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(api, "/api/messages/ws"), identityHeader(alice))
	require.NoError(t, err)
	defer conn.Close()

	var initial chat.Snapshot
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "alice_ai", initial.SessionID)
	assert.Empty(t, initial.Messages)

	resp := api.doJSON(t, alice, http.MethodPost, "/api/messages", `{"text":"ping"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sent := decode[[]domain.ChatMessage](t, resp)
	require.Len(t, sent, 2)
	assert.Equal(t, "ping", sent[0].Text)
	assert.Equal(t, chat.BotID, sent[1].SenderID)
	assert.Equal(t, "echo: ping", sent[1].Text)

	// Снимки приходят, пока в сессии не появятся оба сообщения.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var raw struct {
			Messages []domain.ChatMessage `json:"messages"`
			State    string               `json:"state"`
		}
		require.NoError(t, conn.ReadJSON(&raw))
		if len(raw.Messages) == 2 && raw.State == "idle" {
			break
		}
	}

	resp = api.doJSON(t, alice, http.MethodGet, "/api/messages", "")
	assert.Len(t, decode[[]domain.ChatMessage](t, resp), 2)

	resp = api.doJSON(t, alice, http.MethodPost, "/api/messages", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveSearch_Debounced(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice)
	resp := api.doJSON(t, alice, http.MethodPost, "/api/posts", `{"text":"Mars rover"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(api, "/api/search/ws"), identityHeader(alice))
	require.NoError(t, err)
	defer conn.Close()

	for _, q := range []string{"m", "ma", "mar", "mars"} {
		require.NoError(t, conn.WriteJSON(map[string]string{"query": q}))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got searchBody
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "mars", got.Query)
	assert.True(t, got.Active)
	require.Len(t, got.Posts, 1)

	// Промежуточные запросы не выполняются.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	assert.Error(t, conn.ReadJSON(&got))
}

func TestLiveSearch_FeedPicksUpNewPhoto(t *testing.T) {
	api := newTestAPI(t, nil)
	api.signIn(t, alice)
	resp := api.doJSON(t, alice, http.MethodPost, "/api/posts", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(api, "/api/search/ws"), identityHeader(alice))
	require.NoError(t, err)
	defer conn.Close()

	blankFeed := func() []domain.FeedEntry {
		t.Helper()
		require.NoError(t, conn.WriteJSON(map[string]string{"query": ""}))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got searchBody
		require.NoError(t, conn.ReadJSON(&got))
		require.Len(t, got.Feed, 4)
		return got.Feed
	}

	assert.Nil(t, blankFeed()[3].AuthorPhoto)

	body, ct := multipartBody(t, map[string]string{"displayName": "Alice"}, "photo", []byte("\x89PNG\r\n\x1a\n0000"))
	resp = api.do(t, alice, http.MethodPatch, "/api/users/me", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// То же соединение, но фото уже новое.
	feed := blankFeed()
	require.NotNil(t, feed[3].AuthorPhoto)
	assert.Equal(t, api.srv.URL+"/blobs/profilePictures/alice", *feed[3].AuthorPhoto)
}
