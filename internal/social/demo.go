package social

import (
	"sync"
	"time"

	"github.com/UkralStul/chirp/internal/domain"
)

// demoPosts seeds every feed. They live only in process memory.
func demoPosts(now time.Time) []*domain.Post {
	img := func(s string) *string { return &s }
	return []*domain.Post{
		{
			ID:         "demo1",
			AuthorName: "Elon Musk",
			Text:       "Exploring Mars is the future! 🚀",
			ImageURL:   img("https://images.unsplash.com/photo-1581091012184-91a2699aef4f?auto=format&fit=crop&w=800&q=80"),
			CreatedAt:  now,
		},
		{
			ID:         "demo2",
			AuthorName: "Jane Doe",
			Text:       "Just tried the new React 18 features, loving it! ✨",
			ImageURL:   img("https://images.unsplash.com/photo-1522202176988-66273c2fd55f?auto=format&fit=crop&w=800&q=80"),
			CreatedAt:  now,
		},
		{
			ID:         "demo3",
			AuthorName: "Nature Lover",
			Text:       "Sunsets like these make life beautiful. 🌅",
			ImageURL:   img("https://images.unsplash.com/photo-1506744038136-46273834b3fb?auto=format&fit=crop&w=800&q=80"),
			CreatedAt:  now,
		},
	}
}

// ephemeralRegistry holds the demo posts and their local likes and comments.
type ephemeralRegistry struct {
	mu    sync.RWMutex
	order []string
	posts map[string]*domain.Post
}

func newEphemeralRegistry(posts []*domain.Post) *ephemeralRegistry {
	r := &ephemeralRegistry{posts: make(map[string]*domain.Post, len(posts))}
	for _, p := range posts {
		if p.Likes == nil {
			p.Likes = []string{}
		}
		if p.Comments == nil {
			p.Comments = []*domain.Comment{}
		}
		r.order = append(r.order, p.ID)
		r.posts[p.ID] = p
	}
	return r
}

func (r *ephemeralRegistry) has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.posts[id]
	return ok
}

func (r *ephemeralRegistry) list() []*domain.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*domain.Post, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, copyPost(r.posts[id]))
	}
	return res
}

// toggleLike flips uid in the post's like set.
func (r *ephemeralRegistry) toggleLike(id, uid string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if domain.Contains(p.Likes, uid) {
		p.Likes = without(p.Likes, uid)
	} else {
		p.Likes = append(p.Likes, uid)
	}
	return copyPost(p), nil
}

func (r *ephemeralRegistry) addComment(id string, c *domain.Comment) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cc := *c
	cc.PostID = id
	cc.CreatedAt = time.Now().UTC()
	p.Comments = append(p.Comments, &cc)

	out := cc
	return &out, nil
}

func copyPost(p *domain.Post) *domain.Post {
	c := *p
	c.Likes = append([]string{}, p.Likes...)
	c.Comments = make([]*domain.Comment, len(p.Comments))
	for i, cm := range p.Comments {
		cc := *cm
		c.Comments[i] = &cc
	}
	return &c
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
