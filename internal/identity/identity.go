package identity

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyQuery = errors.New("identity query needs at least one filter")

// Record correlates a FAF player with a Discord member of one guild.
// A (GuildID, ChatID) pair maps to at most one record.
type Record struct {
	GameID          string
	GameUsername    string
	GuildID         string
	ChatID          string
	ChatDisplayName string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Query filters records; unset fields are ignored.
type Query struct {
	GuildID      string
	ChatID       string
	GameID          string
	GameUsername    string
	ChatDisplayName string
}

func (q Query) Validate() error {
	if q.GuildID == "" && q.ChatID == "" && q.GameID == "" && q.GameUsername == "" && q.ChatDisplayName == "" {
		return ErrEmptyQuery
	}
	return nil
}

type UpsertInput struct {
	GameID          string
	GameUsername    string
	GuildID         string
	ChatID          string
	ChatDisplayName string
}

type Store interface {
	// Find returns the most recently updated match, or nil when nothing matches.
	Find(ctx context.Context, q Query) (*Record, error)
	FindMany(ctx context.Context, gameIDs []string, guildID string) ([]Record, error)
	// Upsert inserts or replaces the record keyed by (GuildID, ChatID).
	Upsert(ctx context.Context, input UpsertInput) (*Record, error)
}
