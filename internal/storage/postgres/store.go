package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&domain.Post{},
		&domain.Comment{},
		&domain.UserProfile{},
		&domain.Notification{},
		&domain.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound переводит gorm.ErrRecordNotFound в доменную ошибку.
func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s with id %s: %w", what, id, domain.ErrNotFound)
	}
	return err
}

func commentsAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	// Комментарии добавляются только через AddComment.
	post.Comments = nil
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	// GORM автоматически заполнит ID и CreatedAt после создания
	post.Comments = []*domain.Comment{}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).Preload("Comments", commentsAsc).First(&post, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	var posts []*domain.Post
	query := s.db.WithContext(ctx).Preload("Comments", commentsAsc).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&posts).Error
	return posts, err
}

func (s *Store) GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Preload("Comments", commentsAsc).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// === Likes & Comments ===

func (s *Store) AddLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	return s.updateLikes(ctx, postID, func(likes []string) []string {
		if domain.Contains(likes, userID) {
			return likes
		}
		return append(likes, userID)
	})
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	return s.updateLikes(ctx, postID, func(likes []string) []string {
		return without(likes, userID)
	})
}

// updateLikes - аналог arrayUnion/arrayRemove: чтение и запись под блокировкой строки.
func (s *Store) updateLikes(ctx context.Context, postID string, fn func([]string) []string) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", postID).Error; err != nil {
			return notFound(err, "post", postID)
		}
		post.Likes = fn(post.Likes)
		return tx.Model(&post).Select("likes").Updates(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetPostByID(ctx, postID)
}

func (s *Store) AddComment(ctx context.Context, postID string, comment *domain.Comment) (*domain.Comment, error) {
	if err := storage.ValidateComment(comment); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post with id %s: %w", postID, domain.ErrNotFound)
		}
		comment.PostID = postID
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// === Users ===

func (s *Store) UpsertUser(ctx context.Context, user *domain.UserProfile) (*domain.UserProfile, error) {
	var out domain.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, "id = ?", user.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = *user
			if out.Followers == nil {
				out.Followers = []string{}
			}
			if out.Following == nil {
				out.Following = []string{}
			}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if out.DisplayName == "" && user.DisplayName != "" {
			out.DisplayName = user.DisplayName
			updates["display_name"] = user.DisplayName
		}
		if out.Email == "" && user.Email != "" {
			out.Email = user.Email
			updates["email"] = user.Email
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&domain.UserProfile{}).Where("id = ?", user.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	var user domain.UserProfile
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	var users []*domain.UserProfile
	query := s.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&users).Error
	return users, err
}

func (s *Store) UpdateUser(ctx context.Context, id, displayName string, photoURL *string) (*domain.UserProfile, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{"display_name": displayName, "photo_url": photoURL})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) AddFollowing(ctx context.Context, userID, targetID string) error {
	return s.unionUserSet(ctx, userID, "following", targetID)
}

func (s *Store) AddFollower(ctx context.Context, userID, followerID string) error {
	return s.unionUserSet(ctx, userID, "followers", followerID)
}

// unionUserSet добавляет id в множество followers/following одного пользователя.
func (s *Store) unionUserSet(ctx context.Context, userID, column, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.UserProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err, "user", userID)
		}

		set := &user.Following
		if column == "followers" {
			set = &user.Followers
		}
		if domain.Contains(*set, id) {
			return nil
		}
		*set = append(*set, id)
		return tx.Model(&user).Select(column).Updates(&user).Error
	})
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	var users []*domain.UserProfile
	// Загружаем всех пользователей одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	result := make(map[string]*domain.UserProfile, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	n.Read = false
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) GetNotifications(ctx context.Context, recipientID string) ([]*domain.Notification, error) {
	var list []*domain.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&domain.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// === Chat Messages ===

func (s *Store) AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	var msgs []*domain.ChatMessage
	err := messagesQuery(s.db.WithContext(ctx), sessionID).Find(&msgs).Error
	return msgs, err
}

// messagesQuery - сообщения сессии в порядке вставки.
// Метки времени двух сообщений могут совпасть, тогда порядок задает seq.
func messagesQuery(db *gorm.DB, sessionID string) *gorm.DB {
	return db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("seq ASC")
}

func without(set []string, id string) []string {
	res := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}
