package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/foxseedlab/brackman/internal/webhook"
)

type mockDiscordClient struct {
	mu sync.Mutex

	voiceChannelByUser map[string]string
	channels           map[string]discord.Channel
	members            map[string][]discord.VoiceMember
	displayNames       map[string]string
	listErr            error

	moves   map[string]string
	deleted []string
	nextID  int
}

func newMockDiscordClient() *mockDiscordClient {
	return &mockDiscordClient{
		voiceChannelByUser: map[string]string{},
		channels:           map[string]discord.Channel{},
		members:            map[string][]discord.VoiceMember{},
		displayNames:       map[string]string{},
		moves:              map[string]string{},
	}
}

func (m *mockDiscordClient) Connect(_ context.Context) error { return nil }
func (m *mockDiscordClient) Close() error                    { return nil }
func (m *mockDiscordClient) Run() error                      { return nil }
func (m *mockDiscordClient) RegisterVoiceStateUpdateHandler(_ func(discord.VoiceStateEvent)) {
}
func (m *mockDiscordClient) RegisterSlashCommandHandler(_ func(discord.SlashCommandEvent)) {}
func (m *mockDiscordClient) UpsertGuildSlashCommands(_ string, _ []discord.SlashCommandDefinition) error {
	return nil
}
func (m *mockDiscordClient) GetBotUserID() (string, error) { return "bot-self", nil }

func (m *mockDiscordClient) GetMemberDisplayName(_, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.displayNames[userID]; ok {
		return name, nil
	}
	return userID, nil
}

func (m *mockDiscordClient) GetUserVoiceChannelID(_, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voiceChannelByUser[userID], nil
}

func (m *mockDiscordClient) ListVoiceChannelMembers(_ context.Context, _, channelID string) ([]discord.VoiceMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]discord.VoiceMember(nil), m.members[channelID]...), nil
}

func (m *mockDiscordClient) GetChannel(_ context.Context, channelID string) (discord.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return discord.Channel{}, discord.ErrChannelNotFound
	}
	return ch, nil
}

func (m *mockDiscordClient) FindVoiceChannelByName(_ context.Context, guildID, name string) (*discord.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.GuildID == guildID && ch.Name == name {
			found := ch
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockDiscordClient) CreateVoiceChannel(_ context.Context, guildID string, input discord.CreateChannelInput) (discord.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ch := discord.Channel{
		ID:       fmt.Sprintf("vc-new-%d", m.nextID),
		GuildID:  guildID,
		Name:     input.Name,
		ParentID: input.ParentID,
		Position: input.Position,
	}
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *mockDiscordClient) MoveMember(_ context.Context, _, userID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves[userID] = channelID
	return nil
}

func (m *mockDiscordClient) DeleteChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, channelID)
	delete(m.channels, channelID)
	return nil
}

func (m *mockDiscordClient) deletedChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type mockFAFClient struct {
	mu        sync.Mutex
	players   map[string]*faf.Player
	docs      map[string]faf.Document
	lookups   []string
	lookupErr error
}

func (m *mockFAFClient) GetPlayerID(ctx context.Context, username string) (string, error) {
	p, err := m.GetPlayer(ctx, username)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (m *mockFAFClient) GetPlayer(_ context.Context, username string) (*faf.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, username)
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	p, ok := m.players[username]
	if !ok {
		return nil, faf.ErrPlayerNotFound
	}
	return p, nil
}

func (m *mockFAFClient) GetLastMatch(_ context.Context, playerID string) (faf.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[playerID], nil
}

type mockStore struct {
	mu      sync.Mutex
	records []identity.Record
	upserts []identity.UpsertInput
}

func (m *mockStore) Find(_ context.Context, q identity.Query) (*identity.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if (q.GuildID == "" || q.GuildID == r.GuildID) &&
			(q.ChatID == "" || q.ChatID == r.ChatID) &&
			(q.GameID == "" || q.GameID == r.GameID) &&
			(q.GameUsername == "" || q.GameUsername == r.GameUsername) &&
			(q.ChatDisplayName == "" || q.ChatDisplayName == r.ChatDisplayName) {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockStore) FindMany(_ context.Context, gameIDs []string, guildID string) ([]identity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []identity.Record
	for _, r := range m.records {
		for _, id := range gameIDs {
			if r.GameID == id && r.GuildID == guildID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *mockStore) Upsert(_ context.Context, input identity.UpsertInput) (*identity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, input)
	rec := identity.Record{
		GameID:          input.GameID,
		GameUsername:    input.GameUsername,
		GuildID:         input.GuildID,
		ChatID:          input.ChatID,
		ChatDisplayName: input.ChatDisplayName,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *mockStore) upsertList() []identity.UpsertInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]identity.UpsertInput(nil), m.upserts...)
}

type mockWebhookSender struct {
	reports chan webhook.SortReport
}

func (m *mockWebhookSender) SendSortReport(_ context.Context, report webhook.SortReport) error {
	m.reports <- report
	return nil
}

// recorder captures the replies an interaction receives.
type recorder struct {
	mu        sync.Mutex
	ephemeral []string
	followUps []string
	deferred  bool
}

func (r *recorder) event(guildID, command, userID, userName string, options map[string]string) discord.SlashCommandEvent {
	if options == nil {
		options = map[string]string{}
	}
	return discord.SlashCommandEvent{
		GuildID:         guildID,
		ChannelID:       "text-1",
		CommandName:     command,
		UserID:          userID,
		UserDisplayName: userName,
		Options:         options,
		RespondEphemeral: func(content string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ephemeral = append(r.ephemeral, content)
			return nil
		},
		Defer: func() error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deferred = true
			return nil
		},
		FollowUp: func(content string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.followUps = append(r.followUps, content)
			return nil
		},
	}
}

func (r *recorder) replies() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ephemeral...), append([]string(nil), r.followUps...)
}

// matchDocument builds an in-progress game hosted by the first player, with
// every player on their own team in argument order.
func matchDocument(id, name string, players ...faf.PlayerResource) faf.Document {
	game := faf.Resource{
		Type: "game",
		ID:   id,
		Attributes: faf.GameAttributes{
			Name:      name,
			StartTime: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		},
	}
	if len(players) > 0 {
		game.Relationships.Host = faf.Relationship{Data: &faf.ResourceIdentifier{Type: "player", ID: players[0].ID}}
	}
	doc := faf.Document{Data: []faf.Resource{game}}
	for i, p := range players {
		player := p
		doc.Included = append(doc.Included,
			faf.IncludedResource{Kind: faf.IncludedPlayer, Type: "player", Player: &player},
			faf.IncludedResource{
				Kind:        faf.IncludedPlayerStats,
				Type:        "gamePlayerStats",
				PlayerStats: &faf.PlayerStatsResource{ID: fmt.Sprintf("stat-%d", i), PlayerID: p.ID, Team: i + 1},
			},
		)
	}
	return doc
}
