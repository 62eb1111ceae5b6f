package httpapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/UkralStul/chirp/internal/dataloader"
	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
}

// searchResponse carries the feed instead of results for a blank query.
type searchResponse struct {
	search.Results
	Feed []domain.FeedEntry `json:"feed,omitempty"`
}

func (a *api) runSearch(ctx context.Context, id domain.Identity, query string) (searchResponse, error) {
	res, err := a.Social.Search(ctx, id, query)
	if err != nil {
		return searchResponse{}, err
	}
	if res.Active {
		return searchResponse{Results: res}, nil
	}

	feed, err := a.Social.Feed(ctx)
	if err != nil {
		return searchResponse{}, err
	}
	if err := dataloader.AttachAuthorPhotos(ctx, feed); err != nil {
		a.logger.Warn("load author photos", "error", err)
	}
	return searchResponse{Results: res, Feed: feed}, nil
}

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp, err := a.runSearch(r.Context(), identityFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLiveSearch answers query messages once the client has stopped
// typing for SearchDebounce. Superseded queries are never run.
func (a *api) handleLiveSearch(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	debouncer := search.NewDebouncer(a.SearchDebounce)
	defer debouncer.Stop()

	var writeMu sync.Mutex
	for {
		var req searchRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		query := req.Query
		debouncer.Trigger(func() {
			// Fresh loaders per run so author photos are never served from an old cache.
			runCtx := dataloader.WithLoaders(ctx, dataloader.NewLoaders(a.Users))
			resp, err := a.runSearch(runCtx, id, query)

			writeMu.Lock()
			defer writeMu.Unlock()
			if err != nil {
				a.logger.Error("live search", "user", id.UserID, "error", err)
				conn.WriteJSON(errorResponse{Error: "search failed"})
				return
			}
			conn.WriteJSON(resp)
		})
	}
}
