// Package blob stores uploaded images and hands out public URLs for them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for unknown paths.
var ErrNotFound = errors.New("blob not found")

// Object is a stored blob.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Store persists blobs by path. Put overwrites an existing path.
type Store interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
	Get(ctx context.Context, path string) (*Object, error)
}

// PostImagePath returns the path for an image attached to a post.
func PostImagePath(userID string, at time.Time) string {
	return fmt.Sprintf("tweets/%s/%d", userID, at.UnixMilli())
}

// ProfilePicturePath returns the path of a user's profile picture.
func ProfilePicturePath(userID string) string {
	return "profilePictures/" + userID
}

// publicURL joins the service base URL with the blob route.
func publicURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/blobs/" + path
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("invalid blob path %q", path)
	}
	return nil
}
