package sorting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	GuildID     string
	InvokerID   string
	InvokerName string
	// TargetID and TargetName name another member whose match is sorted
	// instead of the invoker's. Both empty means the invoker.
	TargetID   string
	TargetName string
	// Announce is called once the match lock is held.
	Announce func(*faf.Match)
}

func (r Request) subject() (string, string) {
	if r.TargetID != "" {
		return r.TargetID, r.TargetName
	}
	return r.InvokerID, r.InvokerName
}

type Result struct {
	Match    *faf.Match
	Channels []ProvisionedChannel
	// Moved holds the user ids moved into team channels.
	Moved          []string
	FailedMoves    int
	FailedChannels int
	ChannelErr     error
	MoveErr        error
	// Unresolved lists display names of players without a chat identity.
	Unresolved []string
	Teamless   []string
}

type Sorter struct {
	discord     discord.Client
	faf         faf.Client
	store       identity.Store
	resolver    *Resolver
	provisioner *Provisioner
	sessions    *SessionRegistry
	// categoryID restricts sorting to voice channels under one category when set.
	categoryID string
}

func NewSorter(dc discord.Client, fc faf.Client, store identity.Store, sessions *SessionRegistry, categoryID string) *Sorter {
	return &Sorter{
		discord:     dc,
		faf:         fc,
		store:       store,
		resolver:    NewResolver(store),
		provisioner: NewProvisioner(dc),
		sessions:    sessions,
		categoryID:  categoryID,
	}
}

// Sort moves the members of the invoker's voice channel into per-team
// channels for the subject's current match.
func (s *Sorter) Sort(ctx context.Context, req Request) (*Result, error) {
	channelID, err := s.discord.GetUserVoiceChannelID(req.GuildID, req.InvokerID)
	if err != nil {
		return nil, fmt.Errorf("look up voice channel: %w", err)
	}
	if channelID == "" {
		return nil, ErrNotInChannel
	}
	active, err := s.discord.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("look up active channel: %w", err)
	}
	if s.categoryID != "" && active.ParentID != s.categoryID {
		return nil, ErrWrongCategory
	}

	gameID, err := s.lookupGameID(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := s.faf.GetLastMatch(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetch last match for %s: %w", gameID, err)
	}
	match, err := faf.Normalize(doc)
	if err != nil {
		if errors.Is(err, faf.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNoMatch, err)
		}
		return nil, err
	}
	if !match.InProgress() {
		return nil, &MatchEndedError{Match: match}
	}

	holder, acquired := s.sessions.TryAcquire(match.ID, req.InvokerName)
	if !acquired {
		slog.Info("match already being sorted", "match_id", match.ID, "holder", holder, "guild_id", req.GuildID)
		return nil, &AlreadySortingError{MatchID: match.ID, MatchName: match.Name, Holder: holder}
	}
	defer s.sessions.Release(match.ID)
	slog.Info("sort started", "match_id", match.ID, "match_name", match.Name, "teams", match.TeamCount, "guild_id", req.GuildID, "invoker_id", req.InvokerID)

	if req.Announce != nil {
		req.Announce(match)
	}
	return s.sortLocked(ctx, req.GuildID, active, match)
}

func (s *Sorter) sortLocked(ctx context.Context, guildID string, active discord.Channel, match *faf.Match) (*Result, error) {
	members, err := s.discord.ListVoiceChannelMembers(ctx, guildID, active.ID)
	if err != nil {
		slog.Error("failed to list voice channel members", "error", err, "channel_id", active.ID, "guild_id", guildID)
	}

	unresolved := s.resolver.Resolve(ctx, match.Roster, guildID, members)
	if len(unresolved) > 0 {
		slog.Info("players without chat identity", "match_id", match.ID, "game_ids", unresolved)
	}
	teamless := match.Roster.Teamless()
	if len(teamless) > 0 {
		slog.Warn("players without team", "match_id", match.ID, "players", teamless)
	}

	result := &Result{
		Match:      match,
		Unresolved: match.Roster.UnresolvedNames(),
		Teamless:   teamless,
	}

	channels, channelErr := s.provision(ctx, guildID, active.ParentID, match)
	result.Channels = channels
	result.ChannelErr = channelErr
	result.FailedChannels = match.TeamCount - len(channels)
	if len(channels) == 0 {
		if channelErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoChannelsAvailable, channelErr)
		}
		return nil, ErrNoChannelsAvailable
	}

	moved, moveErr := s.move(ctx, guildID, match, members, channels)
	result.Moved = moved
	result.MoveErr = moveErr
	var merr *multierror.Error
	if errors.As(moveErr, &merr) {
		result.FailedMoves = len(merr.Errors)
	}
	slog.Info("sort finished", "match_id", match.ID, "moved", len(moved), "failed_moves", result.FailedMoves, "failed_channels", result.FailedChannels, "guild_id", guildID)
	return result, nil
}

func (s *Sorter) lookupGameID(ctx context.Context, req Request) (string, error) {
	subjectID, subjectName := req.subject()
	rec, err := s.store.Find(ctx, identity.Query{GuildID: req.GuildID, ChatID: subjectID})
	if err != nil {
		slog.Error("failed to look up stored identity", "error", err, "chat_id", subjectID, "guild_id", req.GuildID)
	}
	if rec != nil {
		return rec.GameID, nil
	}

	gameID, err := s.faf.GetPlayerID(ctx, subjectName)
	if err != nil {
		if errors.Is(err, faf.ErrPlayerNotFound) {
			return "", ErrUnknownGameIdentity
		}
		return "", fmt.Errorf("look up faf player %s: %w", subjectName, err)
	}
	if _, err := s.store.Upsert(ctx, identity.UpsertInput{
		GameID:          gameID,
		GameUsername:    subjectName,
		GuildID:         req.GuildID,
		ChatID:          subjectID,
		ChatDisplayName: subjectName,
	}); err != nil {
		slog.Error("failed to remember identity", "error", err, "game_id", gameID, "chat_id", subjectID, "guild_id", req.GuildID)
	}
	return gameID, nil
}

// provision ensures one channel per team concurrently. Failed teams are
// left out of the returned slice and reported in the aggregate error.
func (s *Sorter) provision(ctx context.Context, guildID, categoryID string, match *faf.Match) ([]ProvisionedChannel, error) {
	if match.TeamCount == 0 {
		return nil, nil
	}
	provisioned := make([]*ProvisionedChannel, match.TeamCount)
	failures := make([]error, match.TeamCount)

	var g errgroup.Group
	g.SetLimit(match.TeamCount)
	for team := 0; team < match.TeamCount; team++ {
		g.Go(func() error {
			ch, err := s.provisioner.EnsureChannel(ctx, guildID, categoryID, team, match.Name)
			if err != nil {
				slog.Error("failed to provision team channel", "error", err, "team", team, "match_id", match.ID, "guild_id", guildID)
				failures[team] = &ChannelProvisionError{Team: team, Err: err}
				return nil
			}
			provisioned[team] = &ProvisionedChannel{Team: team, Channel: ch}
			return nil
		})
	}
	_ = g.Wait()

	channels := make([]ProvisionedChannel, 0, match.TeamCount)
	var errs *multierror.Error
	for team := range provisioned {
		if provisioned[team] != nil {
			channels = append(channels, *provisioned[team])
		}
		if failures[team] != nil {
			errs = multierror.Append(errs, failures[team])
		}
	}
	return channels, errs.ErrorOrNil()
}

// move sends every present member with a resolved, teamed roster entry to
// their team channel. Members without a mapping are skipped.
func (s *Sorter) move(ctx context.Context, guildID string, match *faf.Match, members []discord.VoiceMember, channels []ProvisionedChannel) ([]string, error) {
	channelOfTeam := make(map[int]string, len(channels))
	for _, pc := range channels {
		channelOfTeam[pc.Team] = pc.Channel.ID
	}
	// Roster order is by game id, so the first entry claiming a member wins.
	channelOfMember := make(map[string]string)
	for _, gameID := range match.Roster.GameIDs() {
		entry := match.Roster[gameID]
		if !entry.Resolved() || entry.Team == nil {
			continue
		}
		if _, taken := channelOfMember[entry.ChatID]; taken {
			slog.Warn("member tied to more than one player", "chat_id", entry.ChatID, "game_id", gameID, "match_id", match.ID)
			continue
		}
		if channelID, ok := channelOfTeam[*entry.Team]; ok {
			channelOfMember[entry.ChatID] = channelID
		}
	}

	var (
		mu    sync.Mutex
		moved []string
		errs  *multierror.Error
		g     errgroup.Group
	)
	for _, m := range members {
		channelID, ok := channelOfMember[m.UserID]
		if !ok {
			continue
		}
		g.Go(func() error {
			slog.Info("moving member", "user_id", m.UserID, "display_name", m.DisplayName, "channel_id", channelID, "match_id", match.ID)
			err := s.discord.MoveMember(ctx, guildID, m.UserID, channelID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("failed to move member", "error", err, "user_id", m.UserID, "channel_id", channelID)
				errs = multierror.Append(errs, &MoveError{UserID: m.UserID, ChannelID: channelID, Err: err})
				return nil
			}
			moved = append(moved, m.UserID)
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(moved)
	return moved, errs.ErrorOrNil()
}
