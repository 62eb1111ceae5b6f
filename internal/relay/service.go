// Package relay forwards a single chat prompt to a generative-language model.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UkralStul/chirp/internal/domain"
)

const (
	// ErrorMessage is the error field of every failed relay response.
	ErrorMessage = "No valid response from Gemini API"

	// FallbackReply replaces an empty model response.
	FallbackReply = "⚠️ Sorry, I couldn’t generate a response."
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service validates prompts and normalizes model output.
// There is no retry, timeout or rate limiting here: each call is one upstream call.
type Service struct {
	gen    Generator
	logger *slog.Logger
}

func NewService(gen Generator, logger *slog.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Reply forwards prompt verbatim and returns the trimmed reply, or FallbackReply
// when the model answered with nothing. A panicking generator is reported as an error.
func (s *Service) Reply(ctx context.Context, prompt string) (reply string, err error) {
	if prompt == "" {
		return "", domain.ErrEmptyMessage
	}

	defer func() {
		if r := recover(); r != nil {
			reply, err = "", fmt.Errorf("generator panic: %v", r)
		}
	}()

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("gemini api error", "error", err)
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReply, nil
	}
	return text, nil
}
