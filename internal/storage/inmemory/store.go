package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются только копии, чтобы вызывающий код не гонялся с записью.
type Store struct {
	mu            sync.RWMutex
	posts         map[string]*domain.Post
	users         map[string]*domain.UserProfile
	userOrder     []string
	notifications map[string]*domain.Notification
	messages      map[string][]*domain.ChatMessage // map[sessionID][]message
	lastStamp     time.Time
	lastSeq       int64
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:         make(map[string]*domain.Post),
		users:         make(map[string]*domain.UserProfile),
		notifications: make(map[string]*domain.Notification),
		messages:      make(map[string][]*domain.ChatMessage),
	}
}

// stamp выдает строго возрастающие метки времени. Вызывать под блокировкой.
func (s *Store) stamp() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := clonePost(post)
	p.ID = uuid.NewString()
	p.CreatedAt = s.stamp()
	if p.Likes == nil {
		p.Likes = []string{}
	}
	p.Comments = []*domain.Comment{}
	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return clonePost(post), nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := s.sortedPosts(func(*domain.Post) bool { return true })

	start := offset
	if start >= len(allPosts) {
		return []*domain.Post{}, nil
	}
	end := len(allPosts)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return allPosts[start:end], nil
}

func (s *Store) GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPosts(func(p *domain.Post) bool { return p.AuthorID == authorID }), nil
}

// sortedPosts возвращает копии постов, новые сначала. Вызывать под блокировкой.
func (s *Store) sortedPosts(keep func(*domain.Post) bool) []*domain.Post {
	res := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			res = append(res, clonePost(p))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	delete(s.posts, id)
	return nil
}

// === Likes & Comments ===

func (s *Store) AddLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, domain.ErrNotFound)
	}
	post.Likes = union(post.Likes, userID)
	return clonePost(post), nil
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, domain.ErrNotFound)
	}
	post.Likes = remove(post.Likes, userID)
	return clonePost(post), nil
}

func (s *Store) AddComment(ctx context.Context, postID string, comment *domain.Comment) (*domain.Comment, error) {
	if err := storage.ValidateComment(comment); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, domain.ErrNotFound)
	}

	c := *comment
	c.ID = uuid.NewString()
	c.PostID = postID
	c.CreatedAt = s.stamp()
	post.Comments = append(post.Comments, &c)

	out := c
	return &out, nil
}

// === Users ===

func (s *Store) UpsertUser(ctx context.Context, user *domain.UserProfile) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		u := cloneUser(user)
		if u.Followers == nil {
			u.Followers = []string{}
		}
		if u.Following == nil {
			u.Following = []string{}
		}
		s.users[u.ID] = u
		s.userOrder = append(s.userOrder, u.ID)
		return cloneUser(u), nil
	}

	// Существующий профиль: заполняем только пустые поля, подписки не трогаем.
	if existing.DisplayName == "" {
		existing.DisplayName = user.DisplayName
	}
	if existing.Email == "" {
		existing.Email = user.Email
	}
	return cloneUser(existing), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*domain.UserProfile, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		if limit > 0 && len(res) >= limit {
			break
		}
		res = append(res, cloneUser(s.users[id]))
	}
	return res, nil
}

func (s *Store) UpdateUser(ctx context.Context, id, displayName string, photoURL *string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	u.DisplayName = displayName
	u.PhotoURL = copyString(photoURL)
	return cloneUser(u), nil
}

func (s *Store) AddFollowing(ctx context.Context, userID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user with id %s: %w", userID, domain.ErrNotFound)
	}
	u.Following = union(u.Following, targetID)
	return nil
}

func (s *Store) AddFollower(ctx context.Context, userID, followerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user with id %s: %w", userID, domain.ErrNotFound)
	}
	u.Followers = union(u.Followers, followerID)
	return nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.UserProfile, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			results[id] = cloneUser(u)
		}
	}
	return results, nil
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *n
	c.ID = uuid.NewString()
	c.CreatedAt = s.stamp()
	c.Read = false
	s.notifications[c.ID] = &c

	out := c
	return &out, nil
}

func (s *Store) GetNotifications(ctx context.Context, recipientID string) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*domain.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			c := *n
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification with id %s: %w", id, domain.ErrNotFound)
	}
	n.Read = true
	return nil
}

// === Chat Messages ===

func (s *Store) AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *msg
	c.ID = uuid.NewString()
	c.CreatedAt = s.stamp()
	s.lastSeq++
	c.Seq = s.lastSeq
	s.messages[c.SessionID] = append(s.messages[c.SessionID], &c)

	out := c
	return &out, nil
}

func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	res := make([]*domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		c := *m
		res[i] = &c
	}
	// Seq служит вторым ключом при равных временах.
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].Seq < res[j].Seq
	})
	return res, nil
}

// === helpers ===

func union(set []string, id string) []string {
	if domain.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func remove(set []string, id string) []string {
	res := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.ImageURL = copyString(p.ImageURL)
	c.Likes = append([]string{}, p.Likes...)
	c.Comments = make([]*domain.Comment, len(p.Comments))
	for i, cm := range p.Comments {
		cc := *cm
		c.Comments[i] = &cc
	}
	return &c
}

func cloneUser(u *domain.UserProfile) *domain.UserProfile {
	c := *u
	c.PhotoURL = copyString(u.PhotoURL)
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
