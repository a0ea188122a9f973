package webhook

import (
	"context"
	"time"
)

type TeamReport struct {
	Team        int      `json:"team"`
	ChannelID   string   `json:"channel_id"`
	ChannelName string   `json:"channel_name"`
	Players     []string `json:"players"`
}

// SortReport summarizes one completed sort.
type SortReport struct {
	GuildID        string       `json:"guild_id"`
	MatchID        string       `json:"match_id"`
	MatchName      string       `json:"match_name"`
	HostName       string       `json:"host_name"`
	InvokerID      string       `json:"invoker_id"`
	InvokerName    string       `json:"invoker_name"`
	Teams          []TeamReport `json:"teams"`
	MovedCount     int          `json:"moved_count"`
	FailedMoves    int          `json:"failed_moves"`
	FailedChannels int          `json:"failed_channels"`
	Unresolved     []string     `json:"unresolved"`
	Teamless       []string     `json:"teamless"`
	SortedAt       time.Time    `json:"sorted_at"`
}

type Sender interface {
	SendSortReport(ctx context.Context, report SortReport) error
}
