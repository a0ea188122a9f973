package faf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrPlayerNotFound = errors.New("faf player not found")

// APIError is returned when the FAF API answers with a non-success status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("faf api returned status %d: %s", e.StatusCode, e.Body)
}

type Player struct {
	ID        string
	Login     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Client interface {
	GetPlayerID(ctx context.Context, username string) (string, error)
	// GetPlayer falls back to historical usernames when no current login matches.
	GetPlayer(ctx context.Context, username string) (*Player, error)
	GetLastMatch(ctx context.Context, playerID string) (Document, error)
}
