// Package social implements the feed and social-graph operations: posts,
// likes, comments, follows, profiles and notifications.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UkralStul/chirp/internal/blob"
	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/search"
	"github.com/UkralStul/chirp/internal/storage"
)

// SuggestedLimit is how many users are read for the "who to follow" list.
const SuggestedLimit = 5

// Upload is an image sent along with a post or a profile update.
type Upload struct {
	ContentType string
	Data        []byte
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Data) == 0
}

// Service runs social operations against the document and blob stores.
type Service struct {
	store  storage.Storage
	blobs  blob.Store
	logger *slog.Logger
	demo   *ephemeralRegistry
	now    func() time.Time
}

func NewService(store storage.Storage, blobs blob.Store, logger *slog.Logger) *Service {
	now := func() time.Time { return time.Now().UTC() }
	return &Service{
		store:  store,
		blobs:  blobs,
		logger: logger,
		demo:   newEphemeralRegistry(demoPosts(now())),
		now:    now,
	}
}

// === Posts ===

// CreatePost stores a post with optional image. A post with blank text and
// no image is rejected before anything is uploaded or written.
func (s *Service) CreatePost(ctx context.Context, id domain.Identity, text string, image *Upload) (*domain.Post, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" && image.empty() {
		return nil, domain.ErrEmptyPost
	}

	post := &domain.Post{
		AuthorID:   id.UserID,
		AuthorName: id.Label(),
		Text:       text,
	}
	if !image.empty() {
		url, err := s.blobs.Put(ctx, blob.PostImagePath(id.UserID, s.now()), image.ContentType, image.Data)
		if err != nil {
			return nil, fmt.Errorf("upload post image: %w", err)
		}
		post.ImageURL = &url
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.logger.Info("post created", "post", created.ID, "author", id.UserID)
	return created, nil
}

// DeletePost removes a post. Only its author may delete it; demo posts
// cannot be deleted.
func (s *Service) DeletePost(ctx context.Context, id domain.Identity, postID string) error {
	if id.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if s.demo.has(postID) {
		return domain.ErrForbidden
	}

	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != id.UserID {
		return domain.ErrForbidden
	}
	return s.store.DeletePost(ctx, postID)
}

// Feed returns the demo posts followed by stored posts, newest first.
// If the store cannot be read, only the demo posts are returned.
func (s *Service) Feed(ctx context.Context) ([]domain.FeedEntry, error) {
	entries := make([]domain.FeedEntry, 0)
	for _, p := range s.demo.list() {
		entries = append(entries, domain.FeedEntry{Origin: domain.OriginEphemeral, Post: p})
	}

	posts, err := s.store.GetPosts(ctx, 0, 0)
	if err != nil {
		s.logger.Error("Error fetching posts", "error", err)
		return entries, nil
	}
	for _, p := range posts {
		entries = append(entries, domain.FeedEntry{Origin: domain.OriginPersisted, Post: p})
	}
	return entries, nil
}

// UserPosts returns a user's stored posts, newest first.
func (s *Service) UserPosts(ctx context.Context, userID string) ([]*domain.Post, error) {
	return s.store.GetPostsByAuthor(ctx, userID)
}

// === Likes & Comments ===

// ToggleLike adds the actor to the post's likes, or removes them if they
// already liked it. Applying it twice restores the previous set.
func (s *Service) ToggleLike(ctx context.Context, id domain.Identity, postID string) (*domain.Post, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if s.demo.has(postID) {
		return s.demo.toggleLike(postID, id.UserID)
	}

	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if domain.Contains(post.Likes, id.UserID) {
		return s.store.RemoveLike(ctx, postID, id.UserID)
	}

	updated, err := s.store.AddLike(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, id, post.AuthorID, domain.NotificationLike, &postID)
	return updated, nil
}

// AddComment appends a comment to a post.
func (s *Service) AddComment(ctx context.Context, id domain.Identity, postID, text string) (*domain.Comment, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	comment := &domain.Comment{
		AuthorID:   id.UserID,
		AuthorName: id.Label(),
		Text:       text,
	}
	if err := storage.ValidateComment(comment); err != nil {
		return nil, err
	}
	if s.demo.has(postID) {
		return s.demo.addComment(postID, comment)
	}

	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.AddComment(ctx, postID, comment)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, id, post.AuthorID, domain.NotificationComment, &postID)
	return created, nil
}

// === Users ===

// Follow records the actor following target as two separate writes. If the
// second write fails the first is not rolled back.
func (s *Service) Follow(ctx context.Context, id domain.Identity, targetID string) error {
	if id.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if targetID == id.UserID {
		return domain.ErrSelfFollow
	}

	if err := s.store.AddFollowing(ctx, id.UserID, targetID); err != nil {
		return fmt.Errorf("add following: %w", err)
	}
	if err := s.store.AddFollower(ctx, targetID, id.UserID); err != nil {
		s.logger.Warn("follow edge left one-sided", "user", id.UserID, "target", targetID, "error", err)
		return fmt.Errorf("add follower: %w", err)
	}
	s.notify(ctx, id, targetID, domain.NotificationFollow, nil)
	return nil
}

// EnsureProfile creates the signed-in user's profile on first sign-in.
func (s *Service) EnsureProfile(ctx context.Context, id domain.Identity) (*domain.UserProfile, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.UpsertUser(ctx, &domain.UserProfile{
		ID:          id.UserID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
	})
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.store.GetUserByID(ctx, userID)
}

// SuggestedUsers reads the first limit users and drops the caller.
func (s *Service) SuggestedUsers(ctx context.Context, id domain.Identity, limit int) ([]*domain.UserProfile, error) {
	if limit <= 0 {
		limit = SuggestedLimit
	}
	users, err := s.store.ListUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	res := make([]*domain.UserProfile, 0, len(users))
	for _, u := range users {
		if u.ID != id.UserID {
			res = append(res, u)
		}
	}
	return res, nil
}

// UpdateProfile sets the display name and, when a photo is given, replaces
// the profile picture. Without a photo the current one is kept.
func (s *Service) UpdateProfile(ctx context.Context, id domain.Identity, displayName string, photo *Upload) (*domain.UserProfile, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}

	current, err := s.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	photoURL := current.PhotoURL
	if !photo.empty() {
		url, err := s.blobs.Put(ctx, blob.ProfilePicturePath(id.UserID), photo.ContentType, photo.Data)
		if err != nil {
			return nil, fmt.Errorf("upload profile picture: %w", err)
		}
		photoURL = &url
	}
	return s.store.UpdateUser(ctx, id.UserID, displayName, photoURL)
}

// === Search ===

// Search filters stored posts and suggested users. A blank query returns an
// inactive result without touching the store.
func (s *Service) Search(ctx context.Context, id domain.Identity, query string) (search.Results, error) {
	if strings.TrimSpace(query) == "" {
		return search.Filter(query, nil, nil), nil
	}

	posts, err := s.store.GetPosts(ctx, 0, 0)
	if err != nil {
		return search.Results{}, fmt.Errorf("load posts: %w", err)
	}
	users, err := s.SuggestedUsers(ctx, id, SuggestedLimit)
	if err != nil {
		return search.Results{}, fmt.Errorf("load users: %w", err)
	}
	return search.Filter(query, posts, users), nil
}

// === Notifications ===

// Notifications lists the user's notifications, then marks the unread ones
// read. The returned list still shows which were unread.
func (s *Service) Notifications(ctx context.Context, id domain.Identity) ([]*domain.Notification, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	list, err := s.store.GetNotifications(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	for _, n := range list {
		if n.Read {
			continue
		}
		if err := s.store.MarkNotificationRead(ctx, n.ID); err != nil {
			s.logger.Error("mark notification read", "notification", n.ID, "error", err)
		}
	}
	return list, nil
}

// notify records a notification for recipient. Failures are logged only:
// the action that triggered it already succeeded.
func (s *Service) notify(ctx context.Context, actor domain.Identity, recipientID string, kind domain.NotificationKind, postID *string) {
	if recipientID == "" || recipientID == actor.UserID {
		return
	}
	_, err := s.store.CreateNotification(ctx, &domain.Notification{
		RecipientID: recipientID,
		ActorName:   actor.Label(),
		Kind:        kind,
		PostID:      postID,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("create notification", "recipient", recipientID, "kind", kind, "error", err)
	}
}
