package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/brackman/internal/discord"
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(token string) *Client {
	return &Client{
		token: token,
		done:  make(chan struct{}),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)
	s.State.TrackVoice = true
	s.State.TrackChannels = true

	opened := make(chan error, 1)
	go func() {
		opened <- s.Open()
	}()
	select {
	case err := <-opened:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("discord gateway connect: %w", ctx.Err())
	}

	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
		if c.session != nil {
			err = c.session.Close()
		}
	})
	return err
}

// Run blocks until Close is called. Events are dispatched by discordgo.
func (c *Client) Run() error {
	<-c.done
	return nil
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if vs == nil {
			return
		}
		beforeChannelID := ""
		if vs.BeforeUpdate != nil {
			beforeChannelID = vs.BeforeUpdate.ChannelID
		}
		afterChannelID := vs.ChannelID
		if beforeChannelID == afterChannelID {
			return
		}
		if vs.GuildID == "" || vs.UserID == "" {
			return
		}
		handler(discordpkg.VoiceStateEvent{
			GuildID:         vs.GuildID,
			UserID:          vs.UserID,
			UserIsBot:       c.resolveUserIsBot(vs.GuildID, vs.UserID, vs.VoiceState),
			BeforeChannelID: beforeChannelID,
			AfterChannelID:  afterChannelID,
		})
	})
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return
		}
		var user *discordgo.User
		displayName := ""
		if ic.Member != nil && ic.Member.User != nil {
			user = ic.Member.User
			displayName = ic.Member.Nick
		}
		if user == nil && ic.User != nil {
			user = ic.User
		}
		if user == nil || user.ID == "" {
			return
		}
		if displayName == "" {
			displayName = preferredDiscordName(user.GlobalName, user.Username, user.ID)
		}
		slog.Info("slash command interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "command", data.Name, "user_id", user.ID)
		handler(discordpkg.SlashCommandEvent{
			GuildID:         ic.GuildID,
			ChannelID:       ic.ChannelID,
			CommandName:     data.Name,
			UserID:          user.ID,
			UserDisplayName: displayName,
			Options:         commandOptionValues(data.Options),
			RespondEphemeral: func(content string) error {
				return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: content,
						Flags:   discordgo.MessageFlagsEphemeral,
					},
				})
			},
			Defer: func() error {
				return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
				})
			},
			FollowUp: func(content string) error {
				_, err := s.FollowupMessageCreate(ic.Interaction, false, &discordgo.WebhookParams{
					Content: content,
				})
				return err
			},
		})
	})
}

func commandOptionValues(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	values := make(map[string]string, len(options))
	for _, opt := range options {
		if opt == nil {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			values[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionUser:
			values[opt.Name] = opt.UserValue(nil).ID
		}
	}
	return values
}

func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertGuildSlashCommand(appID, guildID, def, existingByName); err != nil {
			return fmt.Errorf("upsert command %s: %w", def.Name, err)
		}
	}
	return nil
}

func (c *Client) upsertGuildSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := toApplicationCommand(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	if commandUnchanged(cmd, payload) {
		return nil
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func toApplicationCommand(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, opt := range def.Options {
		optionType := discordgo.ApplicationCommandOptionString
		if opt.Type == discordpkg.OptionUser {
			optionType = discordgo.ApplicationCommandOptionUser
		}
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        optionType,
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		})
	}
	return cmd
}

func commandUnchanged(existing, want *discordgo.ApplicationCommand) bool {
	if existing.Description != want.Description || len(existing.Options) != len(want.Options) {
		return false
	}
	for i, opt := range want.Options {
		got := existing.Options[i]
		if got == nil || got.Name != opt.Name || got.Type != opt.Type || got.Description != opt.Description || got.Required != opt.Required {
			return false
		}
	}
	return true
}

func (c *Client) GetUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if c.session.State != nil {
		vs, err := c.session.State.VoiceState(guildID, userID)
		if err == nil && vs != nil {
			return vs.ChannelID, nil
		}
	}

	// Cache may be cold right after bot startup; ask Discord API directly as fallback.
	vs, err := c.session.UserVoiceState(guildID, userID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if vs == nil {
		return "", nil
	}
	return vs.ChannelID, nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

// ListVoiceChannelMembers reads occupants from the gateway state cache.
// Discord has no REST endpoint for voice occupancy, so an uncached guild
// is an error rather than an empty channel.
func (c *Client) ListVoiceChannelMembers(ctx context.Context, guildID, channelID string) ([]discordpkg.VoiceMember, error) {
	if c.session == nil || c.session.State == nil {
		return nil, discordpkg.ErrStateUnavailable
	}
	guild, err := c.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return nil, fmt.Errorf("%w: guild %s", discordpkg.ErrStateUnavailable, guildID)
	}
	c.session.State.RLock()
	states := make([]*discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, state := range guild.VoiceStates {
		if state != nil && state.ChannelID == channelID && state.UserID != "" {
			states = append(states, state)
		}
	}
	c.session.State.RUnlock()

	members := make([]discordpkg.VoiceMember, 0, len(states))
	seen := make(map[string]struct{}, len(states))
	for _, state := range states {
		if _, exists := seen[state.UserID]; exists {
			continue
		}
		seen[state.UserID] = struct{}{}
		members = append(members, c.resolveVoiceMember(ctx, guildID, state))
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (c *Client) resolveVoiceMember(ctx context.Context, guildID string, state *discordgo.VoiceState) discordpkg.VoiceMember {
	member := state.Member
	if member == nil || member.User == nil {
		member = c.resolveGuildMember(ctx, guildID, state.UserID)
	}
	vm := discordpkg.VoiceMember{UserID: state.UserID, DisplayName: state.UserID}
	if member != nil {
		vm.DisplayName = memberDisplayName(member, state.UserID)
		if member.User != nil {
			vm.IsBot = member.User.Bot
			return vm
		}
	}
	vm.IsBot = c.resolveUserIsBot(guildID, state.UserID, state)
	return vm
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (discordpkg.Channel, error) {
	ch := c.resolveChannel(ctx, channelID)
	if ch == nil {
		return discordpkg.Channel{}, fmt.Errorf("%w: %s", discordpkg.ErrChannelNotFound, channelID)
	}
	return toChannel(ch), nil
}

func (c *Client) FindVoiceChannelByName(ctx context.Context, guildID, name string) (*discordpkg.Channel, error) {
	if c.session.State != nil {
		if guild, err := c.session.State.Guild(guildID); err == nil && guild != nil {
			c.session.State.RLock()
			found := findVoiceChannel(guild.Channels, name)
			cached := len(guild.Channels) > 0
			c.session.State.RUnlock()
			if found != nil {
				ch := toChannel(found)
				return &ch, nil
			}
			if cached {
				return nil, nil
			}
		}
	}

	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	found := findVoiceChannel(channels, name)
	if found == nil {
		return nil, nil
	}
	ch := toChannel(found)
	return &ch, nil
}

func findVoiceChannel(channels []*discordgo.Channel, name string) *discordgo.Channel {
	for _, ch := range channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildVoice && ch.Name == name {
			return ch
		}
	}
	return nil
}

func (c *Client) CreateVoiceChannel(ctx context.Context, guildID string, input discordpkg.CreateChannelInput) (discordpkg.Channel, error) {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if input.Reason != "" {
		options = append(options, discordgo.WithAuditLogReason(input.Reason))
	}
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     input.Name,
		Type:     discordgo.ChannelTypeGuildVoice,
		Position: input.Position,
		ParentID: input.ParentID,
	}, options...)
	if err != nil {
		return discordpkg.Channel{}, err
	}
	return toChannel(ch), nil
}

func (c *Client) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return c.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx))
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		options = append(options, discordgo.WithAuditLogReason(reason))
	}
	_, err := c.session.ChannelDelete(channelID, options...)
	if err != nil && isRESTNotFound(err) {
		return nil
	}
	return err
}

func (c *Client) GetMemberDisplayName(guildID, userID string) (string, error) {
	member := c.resolveGuildMember(context.Background(), guildID, userID)
	if member == nil {
		return "", fmt.Errorf("discord member %s not found in guild %s", userID, guildID)
	}
	return memberDisplayName(member, userID), nil
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) resolveUserIsBot(guildID, userID string, state *discordgo.VoiceState) bool {
	if isBot, ok := botFlagFromVoiceState(state); ok {
		return isBot
	}
	if isBot, ok := c.botFlagFromSessionState(guildID, userID); ok {
		return isBot
	}
	return c.botFlagFromUserAPI(userID)
}

func botFlagFromVoiceState(state *discordgo.VoiceState) (bool, bool) {
	if state != nil && state.Member != nil && state.Member.User != nil {
		return state.Member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromSessionState(guildID, userID string) (bool, bool) {
	if c.session == nil || c.session.State == nil {
		return false, false
	}
	if c.session.State.User != nil && c.session.State.User.ID == userID {
		return true, true
	}
	member, err := c.session.State.Member(guildID, userID)
	if err == nil && member != nil && member.User != nil {
		return member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromUserAPI(userID string) bool {
	u, err := c.session.User(userID)
	if err != nil {
		return false
	}
	return u.Bot
}

func (c *Client) resolveChannel(ctx context.Context, channelID string) *discordgo.Channel {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil {
			return channel
		}
	}
	channel, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil || channel == nil {
		return nil
	}
	return channel
}

func (c *Client) resolveGuildMember(ctx context.Context, guildID, userID string) *discordgo.Member {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return member
		}
	}
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil
	}
	if c.session.State != nil {
		member.GuildID = guildID
		_ = c.session.State.MemberAdd(member)
	}
	return member
}

func toChannel(ch *discordgo.Channel) discordpkg.Channel {
	return discordpkg.Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		Name:     ch.Name,
		ParentID: ch.ParentID,
		Position: ch.Position,
	}
}

func memberDisplayName(member *discordgo.Member, fallback string) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return preferredDiscordName(member.User.GlobalName, member.User.Username, fallback)
	}
	return fallback
}

func preferredDiscordName(globalName, username, fallback string) string {
	if globalName != "" {
		return globalName
	}
	if username != "" {
		return username
	}
	return fallback
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

var _ discordpkg.Client = (*Client)(nil)
