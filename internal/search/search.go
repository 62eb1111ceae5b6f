// Package search filters already-fetched posts and users by a free-text query.
package search

import (
	"strings"

	"github.com/UkralStul/chirp/internal/domain"
)

// Results of a search. Active is false for a blank query: callers fall back
// to the unfiltered feed instead of rendering an empty result set.
type Results struct {
	Query     string                `json:"query"`
	Active    bool                  `json:"active"`
	Posts     []*domain.Post        `json:"posts"`
	Users     []*domain.UserProfile `json:"users"`
	NoResults bool                  `json:"noResults"`
}

// Filter matches posts by text or author name and users by display name or
// email, case-insensitively.
func Filter(query string, posts []*domain.Post, users []*domain.UserProfile) Results {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Results{Query: query}
	}

	res := Results{
		Query:  query,
		Active: true,
		Posts:  []*domain.Post{},
		Users:  []*domain.UserProfile{},
	}
	for _, p := range posts {
		if contains(p.Text, q) || contains(p.AuthorName, q) {
			res.Posts = append(res.Posts, p)
		}
	}
	for _, u := range users {
		if contains(u.DisplayName, q) || contains(u.Email, q) {
			res.Users = append(res.Users, u)
		}
	}
	res.NoResults = len(res.Posts) == 0 && len(res.Users) == 0
	return res
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
