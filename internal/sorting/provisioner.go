package sorting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/brackman/internal/discord"
)

const (
	channelMarker = "(temp)"

	// Discord caps channel names at 100 characters. "Team N - " and
	// " (temp)" leave 82 for the match name with up to three digit teams.
	maxChannelNameRunes = 100
	maxMatchNameRunes   = 82
)

type ProvisionedChannel struct {
	Team    int
	Channel discord.Channel
}

// ChannelName is the deterministic name of a team's temporary channel.
func ChannelName(team int, matchName string) string {
	return fmt.Sprintf("Team %d - %s %s", team, truncateRunes(matchName, maxMatchNameRunes), channelMarker)
}

// IsManagedChannelName reports whether a channel was created for a sort.
func IsManagedChannelName(name string) bool {
	return strings.HasSuffix(name, channelMarker)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type Provisioner struct {
	discord discord.Client
}

func NewProvisioner(dc discord.Client) *Provisioner {
	return &Provisioner{discord: dc}
}

// EnsureChannel returns the team's channel, creating it under categoryID
// when no voice channel with the same name exists in the guild.
func (p *Provisioner) EnsureChannel(ctx context.Context, guildID, categoryID string, team int, matchName string) (discord.Channel, error) {
	name := ChannelName(team, matchName)
	existing, err := p.discord.FindVoiceChannelByName(ctx, guildID, name)
	if err != nil {
		return discord.Channel{}, fmt.Errorf("look up channel %q: %w", name, err)
	}
	if existing != nil {
		slog.Info("reusing team channel", "guild_id", guildID, "channel_id", existing.ID, "team", team)
		return *existing, nil
	}

	ch, err := p.discord.CreateVoiceChannel(ctx, guildID, discord.CreateChannelInput{
		Name:     name,
		ParentID: categoryID,
		Position: team,
		Reason:   fmt.Sprintf("temp channel %d for FAF game %s", team, truncateRunes(matchName, maxMatchNameRunes)),
	})
	if err != nil {
		return discord.Channel{}, fmt.Errorf("create channel %q: %w", name, err)
	}
	slog.Info("created team channel", "guild_id", guildID, "channel_id", ch.ID, "team", team)
	return ch, nil
}
