package main

import (
	"context"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/social"
)

var (
	mockAda   = domain.Identity{UserID: "user-1", DisplayName: "Ada Lovelace", Email: "ada@example.com"}
	mockLinus = domain.Identity{UserID: "user-2", DisplayName: "Linus", Email: "linus@example.com"}
	mockGrace = domain.Identity{UserID: "user-3", Email: "grace@example.com"}
)

// fillWithMockData создает пользователей, посты, лайк, комментарий и подписку.
func fillWithMockData(ctx context.Context, svc *social.Service) error {
	for _, id := range []domain.Identity{mockAda, mockLinus, mockGrace} {
		if _, err := svc.EnsureProfile(ctx, id); err != nil {
			return err
		}
	}

	post, err := svc.CreatePost(ctx, mockAda, "The Analytical Engine weaves algebraic patterns just as the Jacquard loom weaves flowers.", nil)
	if err != nil {
		return err
	}
	if _, err := svc.CreatePost(ctx, mockLinus, "Talk is cheap. Show me the code.", nil); err != nil {
		return err
	}

	if _, err := svc.ToggleLike(ctx, mockLinus, post.ID); err != nil {
		return err
	}
	if _, err := svc.AddComment(ctx, mockGrace, post.ID, "It's easier to ask forgiveness than it is to get permission."); err != nil {
		return err
	}
	return svc.Follow(ctx, mockGrace, mockAda.UserID)
}
