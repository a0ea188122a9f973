package sorting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
)

type mockDiscordClient struct {
	mu sync.Mutex

	voiceChannelByUser map[string]string
	channels           map[string]discord.Channel
	members            map[string][]discord.VoiceMember
	createErrByName    map[string]error
	moveErrByUser      map[string]error
	listErr            error
	// createGate, when set, blocks CreateVoiceChannel until closed.
	createGate chan struct{}

	created []discord.CreateChannelInput
	moves   map[string]string
	nextID  int
}

func newMockDiscordClient() *mockDiscordClient {
	return &mockDiscordClient{
		voiceChannelByUser: map[string]string{},
		channels:           map[string]discord.Channel{},
		members:            map[string][]discord.VoiceMember{},
		createErrByName:    map[string]error{},
		moveErrByUser:      map[string]error{},
		moves:              map[string]string{},
	}
}

func (m *mockDiscordClient) Connect(_ context.Context) error                         { return nil }
func (m *mockDiscordClient) Close() error                                            { return nil }
func (m *mockDiscordClient) Run() error                                              { return nil }
func (m *mockDiscordClient) RegisterVoiceStateUpdateHandler(_ func(discord.VoiceStateEvent)) {}
func (m *mockDiscordClient) RegisterSlashCommandHandler(_ func(discord.SlashCommandEvent))   {}
func (m *mockDiscordClient) UpsertGuildSlashCommands(_ string, _ []discord.SlashCommandDefinition) error {
	return nil
}
func (m *mockDiscordClient) GetBotUserID() (string, error) { return "bot-self", nil }
func (m *mockDiscordClient) GetMemberDisplayName(_, userID string) (string, error) {
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
	if m.createGate != nil {
		<-m.createGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, input)
	if err := m.createErrByName[input.Name]; err != nil {
		return discord.Channel{}, err
	}
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
	if err := m.moveErrByUser[userID]; err != nil {
		return err
	}
	m.moves[userID] = channelID
	return nil
}

func (m *mockDiscordClient) DeleteChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channelID)
	return nil
}

func (m *mockDiscordClient) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func (m *mockDiscordClient) moveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

func (m *mockDiscordClient) channelName(channelID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[channelID].Name
}

type mockFAFClient struct {
	mu          sync.Mutex
	idByName    map[string]string
	docByPlayer map[string]faf.Document
	matchErr    error
	lookups     []string
}

func (m *mockFAFClient) GetPlayerID(_ context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, username)
	id, ok := m.idByName[username]
	if !ok {
		return "", faf.ErrPlayerNotFound
	}
	return id, nil
}

func (m *mockFAFClient) GetPlayer(ctx context.Context, username string) (*faf.Player, error) {
	id, err := m.GetPlayerID(ctx, username)
	if err != nil {
		return nil, err
	}
	return &faf.Player{ID: id, Login: username}, nil
}

func (m *mockFAFClient) GetLastMatch(_ context.Context, playerID string) (faf.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matchErr != nil {
		return faf.Document{}, m.matchErr
	}
	return m.docByPlayer[playerID], nil
}

type mockStore struct {
	mu        sync.Mutex
	records   []identity.Record
	upserts   []identity.UpsertInput
	upsertErr error
	findErr   error
}

func (m *mockStore) Find(_ context.Context, q identity.Query) (*identity.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
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
	if m.findErr != nil {
		return nil, m.findErr
	}
	wanted := make(map[string]struct{}, len(gameIDs))
	for _, id := range gameIDs {
		wanted[id] = struct{}{}
	}
	var out []identity.Record
	for _, r := range m.records {
		if _, ok := wanted[r.GameID]; ok && r.GuildID == guildID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) Upsert(_ context.Context, input identity.UpsertInput) (*identity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, input)
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	rec := identity.Record{
		GameID:          input.GameID,
		GameUsername:    input.GameUsername,
		GuildID:         input.GuildID,
		ChatID:          input.ChatID,
		ChatDisplayName: input.ChatDisplayName,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	for i, r := range m.records {
		if r.GuildID == input.GuildID && r.ChatID == input.ChatID {
			rec.CreatedAt = r.CreatedAt
			m.records[i] = rec
			return &rec, nil
		}
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

func (m *mockStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

type testPlayer struct {
	id      string
	name    string
	rawTeam int
}

// matchDocument builds a game document. rawTeam 0 omits the player's stats.
func matchDocument(id, name, hostID string, ended bool, players ...testPlayer) faf.Document {
	game := faf.Resource{
		Type: "game",
		ID:   id,
		Attributes: faf.GameAttributes{
			Name:      name,
			StartTime: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		},
		Relationships: faf.GameRelationships{
			Host: faf.Relationship{Data: &faf.ResourceIdentifier{Type: "player", ID: hostID}},
		},
	}
	if ended {
		end := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
		game.Attributes.EndTime = &end
	}
	doc := faf.Document{Data: []faf.Resource{game}}
	for i, p := range players {
		doc.Included = append(doc.Included, faf.IncludedResource{
			Kind:   faf.IncludedPlayer,
			Type:   "player",
			Player: &faf.PlayerResource{ID: p.id, Login: p.name},
		})
		if p.rawTeam == 0 {
			continue
		}
		doc.Included = append(doc.Included, faf.IncludedResource{
			Kind:        faf.IncludedPlayerStats,
			Type:        "gamePlayerStats",
			PlayerStats: &faf.PlayerStatsResource{ID: fmt.Sprintf("stat-%d", i), PlayerID: p.id, Team: p.rawTeam},
		})
	}
	return doc
}
