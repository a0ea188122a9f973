package discord

import (
	"context"
	"errors"
)

var (
	ErrChannelNotFound = errors.New("discord channel not found")
	// ErrStateUnavailable means voice occupancy is not known yet.
	ErrStateUnavailable = errors.New("discord voice state not cached")
)

type CommandOptionType int

const (
	OptionString CommandOptionType = iota + 1
	OptionUser
)

type SlashCommandOption struct {
	Name        string
	Description string
	Type        CommandOptionType
	Required    bool
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
}

type SlashCommandEvent struct {
	GuildID         string
	ChannelID       string
	CommandName     string
	UserID          string
	UserDisplayName string
	// Options maps option names to values; user options hold the user id.
	Options          map[string]string
	RespondEphemeral func(content string) error
	// Defer acknowledges the interaction publicly; replies then go through FollowUp.
	Defer    func() error
	FollowUp func(content string) error
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

type VoiceMember struct {
	UserID      string
	DisplayName string
	IsBot       bool
}

type Channel struct {
	ID       string
	GuildID  string
	Name     string
	ParentID string
	Position int
}

type CreateChannelInput struct {
	Name     string
	ParentID string
	Position int
	// Reason is written to the guild audit log.
	Reason string
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	// UpsertGuildSlashCommands registers global commands when guildID is empty.
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	ListVoiceChannelMembers(ctx context.Context, guildID, channelID string) ([]VoiceMember, error)
	GetChannel(ctx context.Context, channelID string) (Channel, error)
	// FindVoiceChannelByName returns nil when the guild has no voice channel with that exact name.
	FindVoiceChannelByName(ctx context.Context, guildID, name string) (*Channel, error)
	CreateVoiceChannel(ctx context.Context, guildID string, input CreateChannelInput) (Channel, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	GetMemberDisplayName(guildID, userID string) (string, error)
	GetBotUserID() (string, error)
	Run() error
}
