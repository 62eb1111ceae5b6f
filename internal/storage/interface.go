package storage

import (
	"context"
	"strings"

	"github.com/UkralStul/chirp/internal/domain"
)

// Storage определяет контракт для хранилища документов.
// Массивы (лайки, подписки) меняются операциями add/remove, которые идемпотентны.
type Storage interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error)
	DeletePost(ctx context.Context, id string) error

	AddLike(ctx context.Context, postID, userID string) (*domain.Post, error)
	RemoveLike(ctx context.Context, postID, userID string) (*domain.Post, error)
	AddComment(ctx context.Context, postID string, comment *domain.Comment) (*domain.Comment, error)

	UpsertUser(ctx context.Context, user *domain.UserProfile) (*domain.UserProfile, error)
	GetUserByID(ctx context.Context, id string) (*domain.UserProfile, error)
	ListUsers(ctx context.Context, limit int) ([]*domain.UserProfile, error)
	UpdateUser(ctx context.Context, id, displayName string, photoURL *string) (*domain.UserProfile, error)
	AddFollowing(ctx context.Context, userID, targetID string) error
	AddFollower(ctx context.Context, userID, followerID string) error

	// Для Dataloader'а
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error)

	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetNotifications(ctx context.Context, recipientID string) ([]*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// Сообщения чата возвращаются по возрастанию времени.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	GetMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
}

// ValidateComment проверяет текст комментария одинаково во всех хранилищах.
func ValidateComment(c *domain.Comment) error {
	if len(c.Text) > domain.MaxCommentLength {
		return domain.ErrCommentTooLong
	}
	if strings.TrimSpace(c.Text) == "" {
		return domain.ErrEmptyComment
	}
	return nil
}
