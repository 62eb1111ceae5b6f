package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/tui/chatview"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}

	server := flag.String("server", envOr("CHIRP_SERVER", "http://localhost:5000"), "Server base URL")
	userID := flag.String("user", os.Getenv("CHIRP_USER_ID"), "User id")
	name := flag.String("name", os.Getenv("CHIRP_USER_NAME"), "Display name")
	email := flag.String("email", os.Getenv("CHIRP_USER_EMAIL"), "Email")
	flag.Parse()

	id := domain.Identity{UserID: *userID, DisplayName: *name, Email: *email}
	if id.Anonymous() {
		return errors.New("a user id is required (-user or CHIRP_USER_ID)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := chatview.NewClient(*server, id)
	if err := client.Register(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	snapshots, err := client.Stream(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	p := tea.NewProgram(chatview.New(client, snapshots, id.UserID), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
