package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/UkralStul/chirp/internal/blob"
	"github.com/UkralStul/chirp/internal/dataloader"
	"github.com/UkralStul/chirp/internal/social"
	"github.com/go-chi/chi/v5"
)

// maxUploadSize caps multipart bodies with an image.
const maxUploadSize = 10 << 20

type textRequest struct {
	Text string `json:"text"`
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
}

func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	profile, err := a.Social.EnsureProfile(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.fail(w, r, "ensure profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *api) handleFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Social.Feed(r.Context())
	if err != nil {
		a.fail(w, r, "feed", err)
		return
	}
	if err := dataloader.AttachAuthorPhotos(r.Context(), entries); err != nil {
		a.logger.Warn("load author photos", "error", err)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *api) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var (
		text  string
		image *social.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form", err.Error())
			return
		}
		text = r.FormValue("text")
		upload, err := readUpload(r, "image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid image", err.Error())
			return
		}
		image = upload
	} else {
		var req textRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		text = req.Text
	}

	post, err := a.Social.CreatePost(r.Context(), identityFrom(r.Context()), text, image)
	if err != nil {
		a.fail(w, r, "create post", err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (a *api) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := a.Social.DeletePost(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	post, err := a.Social.ToggleLike(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, "toggle like", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *api) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	comment, err := a.Social.AddComment(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		a.fail(w, r, "add comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (a *api) handleSuggestedUsers(w http.ResponseWriter, r *http.Request) {
	limit := social.SuggestedLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50", "")
			return
		}
		limit = parsed
	}
	users, err := a.Social.SuggestedUsers(r.Context(), identityFrom(r.Context()), limit)
	if err != nil {
		a.fail(w, r, "suggested users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *api) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.Social.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *api) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.Social.UserPosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, "user posts", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *api) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var (
		name  string
		photo *social.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form", err.Error())
			return
		}
		name = r.FormValue("displayName")
		upload, err := readUpload(r, "photo")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid photo", err.Error())
			return
		}
		photo = upload
	} else {
		var req profileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		name = req.DisplayName
	}

	profile, err := a.Social.UpdateProfile(r.Context(), identityFrom(r.Context()), name, photo)
	if err != nil {
		a.fail(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *api) handleFollow(w http.ResponseWriter, r *http.Request) {
	if err := a.Social.Follow(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, "follow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.Social.Notifications(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.fail(w, r, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) handleBlob(w http.ResponseWriter, r *http.Request) {
	obj, err := a.Blobs.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		a.fail(w, r, "get blob", err)
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readUpload reads an optional file field. A missing field yields nil.
func readUpload(r *http.Request, field string) (*social.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &social.Upload{ContentType: contentType, Data: data}, nil
}
