package domain

import "errors"

var (
	// ErrNotFound indicates the referenced post, user or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates the operation needs a signed-in user.
	ErrUnauthenticated = errors.New("sign in required")

	// ErrForbidden indicates the user may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrEmptyPost indicates a post with neither text nor image.
	ErrEmptyPost = errors.New("post must have text or an image")

	// ErrEmptyComment indicates a blank comment.
	ErrEmptyComment = errors.New("comment content cannot be empty")

	// ErrCommentTooLong indicates a comment over MaxCommentLength.
	ErrCommentTooLong = errors.New("comment content is too long")

	// ErrEmptyMessage indicates a blank chat message or relay prompt.
	ErrEmptyMessage = errors.New("message is required")

	// ErrSelfFollow indicates a user trying to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// MaxCommentLength ограничивает длину комментария.
const MaxCommentLength = 2000
