package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/foxseedlab/brackman/internal/config"
	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/foxseedlab/brackman/internal/sorting"
	"github.com/foxseedlab/brackman/internal/webhook"
)

const (
	commandSet  = "faf-set"
	commandSort = "faf-sort"
	commandWho  = "faf-who"

	optionFAFUsername = "faf_username"
	optionMember      = "member"
	optionPlayer      = "player"

	cleanupTimeout = 10 * time.Second
	reportTimeout  = 15 * time.Second
	cleanupReason  = "temporary team channel is empty"
)

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        commandSet,
			Description: slashCommandSetDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionFAFUsername, Description: optionFAFUsernameDescription, Type: discord.OptionString, Required: true},
				{Name: optionMember, Description: optionSetMemberDescription, Type: discord.OptionUser},
			},
		},
		{
			Name:        commandSort,
			Description: slashCommandSortDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionMember, Description: optionSortMemberDescription, Type: discord.OptionUser},
			},
		},
		{
			Name:        commandWho,
			Description: slashCommandWhoDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionPlayer, Description: optionPlayerDescription, Type: discord.OptionString},
			},
		},
	}
}

// CommandNames lists the registered slash commands.
func CommandNames() []string {
	defs := SlashCommandDefinitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

type Handler struct {
	cfg     *config.Config
	discord discord.Client
	faf     faf.Client
	store   identity.Store
	sorter  *sorting.Sorter
	webhook webhook.Sender

	pick func(n int) int
	now  func() time.Time
}

func NewHandler(cfg *config.Config, dc discord.Client, fc faf.Client, store identity.Store, sorter *sorting.Sorter, wh webhook.Sender) *Handler {
	return &Handler{
		cfg:     cfg,
		discord: dc,
		faf:     fc,
		store:   store,
		sorter:  sorter,
		webhook: wh,
		pick:    rand.IntN,
		now:     time.Now,
	}
}

func (h *Handler) HandleSlashCommand(event discord.SlashCommandEvent) {
	if event.GuildID == "" {
		h.respondEphemeral(event, messageGuildOnly)
		return
	}
	if len(h.cfg.DiscordGuildIDs) > 0 && !slices.Contains(h.cfg.DiscordGuildIDs, event.GuildID) {
		slog.Info("ignoring command for unconfigured guild", "guild_id", event.GuildID, "command", event.CommandName)
		h.respondEphemeral(event, messageWrongGuild)
		return
	}
	switch event.CommandName {
	case commandSet:
		h.handleSet(event)
	case commandSort:
		h.handleSort(event)
	case commandWho:
		h.handleWho(event)
	default:
		h.respondEphemeral(event, messageUnknownCommand)
	}
}

func (h *Handler) handleSet(event discord.SlashCommandEvent) {
	username := strings.TrimSpace(event.Options[optionFAFUsername])
	if username == "" {
		h.respondEphemeral(event, messageSetUsage)
		return
	}
	targetID, targetName, ok := h.resolveTarget(event, messageNotPrivilegedSet)
	if !ok {
		return
	}
	if !h.deferReply(event) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SortTimeout())
	defer cancel()

	gameID, err := h.faf.GetPlayerID(ctx, username)
	if err != nil {
		if errors.Is(err, faf.ErrPlayerNotFound) {
			h.followUp(event, fmt.Sprintf(messageFAFUnknownPlayer, username))
			return
		}
		slog.Error("failed to look up faf player", "error", err, "username", username)
		h.followUp(event, messageFAFUnavailable)
		return
	}
	if _, err := h.store.Upsert(ctx, identity.UpsertInput{
		GameID:          gameID,
		GameUsername:    username,
		GuildID:         event.GuildID,
		ChatID:          targetID,
		ChatDisplayName: targetName,
	}); err != nil {
		slog.Error("failed to store identity", "error", err, "game_id", gameID, "chat_id", targetID, "guild_id", event.GuildID)
		h.followUp(event, messageSetFailed)
		return
	}
	slog.Info("identity set", "game_id", gameID, "username", username, "chat_id", targetID, "guild_id", event.GuildID, "set_by", event.UserID)

	if targetID != event.UserID {
		h.followUp(event, fmt.Sprintf(messageSetOther, username, targetName, event.UserDisplayName))
		return
	}
	h.followUp(event, fmt.Sprintf(messageSetSelf, username))
}

func (h *Handler) handleSort(event discord.SlashCommandEvent) {
	targetID, targetName, ok := h.resolveTarget(event, messageNotPrivilegedSort)
	if !ok {
		return
	}
	if !h.deferReply(event) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SortTimeout())
	defer cancel()

	req := sorting.Request{
		GuildID:     event.GuildID,
		InvokerID:   event.UserID,
		InvokerName: event.UserDisplayName,
		Announce: func(m *faf.Match) {
			h.followUp(event, h.greetingFor(event, m))
		},
	}
	if targetID != event.UserID {
		req.TargetID = targetID
		req.TargetName = targetName
	}

	res, err := h.sorter.Sort(ctx, req)
	if err != nil {
		slog.Info("sort did not complete", "error", err, "guild_id", event.GuildID, "user_id", event.UserID)
		h.followUp(event, sortErrorMessage(err, event.UserDisplayName, targetName))
		return
	}
	h.followUp(event, sortSummary(res))
	h.sendReport(event, res)
}

func (h *Handler) handleWho(event discord.SlashCommandEvent) {
	player := strings.TrimSpace(event.Options[optionPlayer])
	if !h.deferReply(event) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SortTimeout())
	defer cancel()

	q := identity.Query{GameUsername: player}
	if player == "" {
		q = identity.Query{GuildID: event.GuildID, ChatID: event.UserID}
		player = event.UserDisplayName
	}
	rec, err := h.store.Find(ctx, q)
	if err != nil {
		slog.Error("failed to look up stored identity", "error", err, "guild_id", event.GuildID)
	}
	if rec == nil && q.GameUsername != "" {
		// The name may be a member's chat name rather than a FAF login.
		rec, err = h.store.Find(ctx, identity.Query{GuildID: event.GuildID, ChatDisplayName: player})
		if err != nil {
			slog.Error("failed to look up stored identity by chat name", "error", err, "guild_id", event.GuildID)
		}
	}
	if rec != nil && rec.GameUsername != "" {
		player = rec.GameUsername
	}

	p, err := h.faf.GetPlayer(ctx, player)
	if err != nil {
		if errors.Is(err, faf.ErrPlayerNotFound) {
			h.followUp(event, fmt.Sprintf(messageFAFUnknownPlayer, player))
			return
		}
		slog.Error("failed to look up faf player", "error", err, "username", player)
		h.followUp(event, messageFAFUnavailable)
		return
	}
	h.followUp(event, whoMessage(p.Login, p.CreatedAt, p.UpdatedAt, h.cfg.DisplayLocation(), rec != nil))
}

// HandleVoiceStateUpdate deletes a managed team channel once its last
// occupant leaves.
func (h *Handler) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	if event.BeforeChannelID == "" || event.BeforeChannelID == event.AfterChannelID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	ch, err := h.discord.GetChannel(ctx, event.BeforeChannelID)
	if err != nil {
		slog.Debug("channel check: channel not found", "error", err, "channel_id", event.BeforeChannelID)
		return
	}
	if !sorting.IsManagedChannelName(ch.Name) {
		return
	}
	members, err := h.discord.ListVoiceChannelMembers(ctx, event.GuildID, ch.ID)
	if err != nil {
		slog.Error("channel check: failed to list members", "error", err, "channel_id", ch.ID)
		return
	}
	if len(members) > 0 {
		slog.Info("channel check: not empty", "channel_id", ch.ID, "channel_name", ch.Name, "members", len(members))
		return
	}
	slog.Info("channel check: deleting", "channel_id", ch.ID, "channel_name", ch.Name, "guild_id", event.GuildID)
	if err := h.discord.DeleteChannel(ctx, ch.ID, cleanupReason); err != nil {
		slog.Error("channel check: failed to delete channel", "error", err, "channel_id", ch.ID)
	}
}

// resolveTarget returns the member a command acts on. Naming another member
// is reserved for privileged users; others get the denial reply.
func (h *Handler) resolveTarget(event discord.SlashCommandEvent, denial string) (string, string, bool) {
	memberID := event.Options[optionMember]
	if memberID == "" || memberID == event.UserID {
		return event.UserID, event.UserDisplayName, true
	}
	if !h.cfg.IsPrivileged(event.UserID) {
		slog.Warn("unprivileged user named another member", "user_id", event.UserID, "member_id", memberID, "command", event.CommandName)
		h.respondEphemeral(event, denial)
		return "", "", false
	}
	name, err := h.discord.GetMemberDisplayName(event.GuildID, memberID)
	if err != nil {
		slog.Warn("failed to resolve member display name", "error", err, "member_id", memberID)
		name = memberID
	}
	return memberID, name, true
}

func (h *Handler) greetingFor(event discord.SlashCommandEvent, m *faf.Match) string {
	templates := standardGreetings
	if h.cfg.IsPrivileged(event.UserID) {
		templates = append(slices.Clone(standardGreetings), privilegedGreetings...)
	}
	return greeting(templates[h.pick(len(templates))], event.UserDisplayName, m.HostDisplayName, m.Name)
}

func (h *Handler) sendReport(event discord.SlashCommandEvent, res *sorting.Result) {
	report := webhook.SortReport{
		GuildID:        event.GuildID,
		MatchID:        res.Match.ID,
		MatchName:      res.Match.Name,
		HostName:       res.Match.HostDisplayName,
		InvokerID:      event.UserID,
		InvokerName:    event.UserDisplayName,
		MovedCount:     len(res.Moved),
		FailedMoves:    res.FailedMoves,
		FailedChannels: res.FailedChannels,
		Unresolved:     res.Unresolved,
		Teamless:       res.Teamless,
		SortedAt:       h.now().UTC(),
	}
	for _, pc := range res.Channels {
		report.Teams = append(report.Teams, webhook.TeamReport{
			Team:        pc.Team,
			ChannelID:   pc.Channel.ID,
			ChannelName: pc.Channel.Name,
			Players:     res.Match.Roster.TeamMembers(pc.Team),
		})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := h.webhook.SendSortReport(ctx, report); err != nil {
			slog.Error("failed to send sort report", "error", err, "match_id", report.MatchID)
		}
	}()
}

func sortErrorMessage(err error, invokerName, subjectName string) string {
	var already *sorting.AlreadySortingError
	var apiErr *faf.APIError
	var normErr *faf.NormalizationError
	switch {
	case errors.Is(err, sorting.ErrNotInChannel):
		return messageNotInChannel
	case errors.Is(err, sorting.ErrWrongCategory):
		return messageWrongCategory
	case errors.Is(err, sorting.ErrUnknownGameIdentity):
		return fmt.Sprintf(messageUnknownIdentity, subjectName)
	case errors.Is(err, sorting.ErrNoMatch):
		return messageNoMatch
	case errors.Is(err, sorting.ErrMatchEnded):
		return messageMatchEnded
	case errors.As(err, &already):
		return fmt.Sprintf(messageAlreadySorting, invokerName, already.Holder, already.MatchName)
	case errors.Is(err, sorting.ErrNoChannelsAvailable):
		return messageNoChannels
	case errors.As(err, &apiErr), errors.As(err, &normErr), errors.Is(err, context.DeadlineExceeded):
		return messageFAFUnavailable
	default:
		return messageSortFailed
	}
}

func sortSummary(res *sorting.Result) string {
	lines := []string{fmt.Sprintf(messageSortDone, res.Match.Name, len(res.Moved), len(res.Channels))}
	if res.FailedMoves > 0 {
		lines = append(lines, fmt.Sprintf(messageCouldNotPlace, res.FailedMoves))
	}
	if res.FailedChannels > 0 {
		lines = append(lines, fmt.Sprintf(messageCouldNotCreate, res.FailedChannels))
	}
	if len(res.Unresolved) > 0 {
		lines = append(lines, fmt.Sprintf(messageUnresolvedPlayers, strings.Join(res.Unresolved, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) respondEphemeral(event discord.SlashCommandEvent, content string) {
	if event.RespondEphemeral == nil {
		return
	}
	if err := event.RespondEphemeral(content); err != nil {
		slog.Error("failed to respond to interaction", "error", err, "command", event.CommandName)
	}
}

func (h *Handler) deferReply(event discord.SlashCommandEvent) bool {
	if event.Defer == nil {
		return true
	}
	if err := event.Defer(); err != nil {
		slog.Error("failed to defer interaction", "error", err, "command", event.CommandName)
		return false
	}
	return true
}

func (h *Handler) followUp(event discord.SlashCommandEvent, content string) {
	if event.FollowUp == nil {
		return
	}
	if err := event.FollowUp(content); err != nil {
		slog.Error("failed to send follow-up", "error", err, "command", event.CommandName)
	}
}
