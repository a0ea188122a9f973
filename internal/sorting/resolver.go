package sorting

import (
	"context"
	"log/slog"
	"sort"

	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"golang.org/x/text/cases"
)

// Resolver attaches chat identities to roster entries.
type Resolver struct {
	store identity.Store
}

func NewResolver(store identity.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fills ChatID on roster entries, first from stored identities and
// then by matching display names against voice channel members. It returns
// the game ids still unresolved, sorted. Lookup and persistence failures are
// logged and never fail the call.
func (r *Resolver) Resolve(ctx context.Context, roster faf.Roster, guildID string, members []discord.VoiceMember) []string {
	gameIDs := roster.GameIDs()
	if len(gameIDs) == 0 {
		return nil
	}

	records, err := r.store.FindMany(ctx, gameIDs, guildID)
	if err != nil {
		slog.Error("failed to load stored identities", "error", err, "guild_id", guildID)
	}
	for _, rec := range records {
		entry, ok := roster[rec.GameID]
		if !ok || entry.Resolved() {
			continue
		}
		entry.ChatID = rec.ChatID
		slog.Debug("resolved player from store", "game_id", rec.GameID, "chat_id", rec.ChatID, "guild_id", guildID)
	}

	// A member already tied to an entry is never matched by name again.
	claimed := make(map[string]struct{}, len(roster))
	for _, entry := range roster {
		if entry.Resolved() {
			claimed[entry.ChatID] = struct{}{}
		}
	}

	// Caser is stateful; one per call.
	fold := cases.Fold()
	byName := make(map[string]discord.VoiceMember, len(members))
	for _, m := range members {
		if m.IsBot || m.DisplayName == "" {
			continue
		}
		if _, ok := claimed[m.UserID]; ok {
			continue
		}
		key := fold.String(m.DisplayName)
		if _, exists := byName[key]; exists {
			slog.Warn("ambiguous voice member display name", "display_name", m.DisplayName, "guild_id", guildID)
			continue
		}
		byName[key] = m
	}

	unresolved := make([]string, 0)
	for _, gameID := range gameIDs {
		entry := roster[gameID]
		if entry.Resolved() {
			continue
		}
		if entry.DisplayName != "" {
			key := fold.String(entry.DisplayName)
			if m, ok := byName[key]; ok {
				delete(byName, key)
				entry.ChatID = m.UserID
				slog.Info("resolved player from voice channel", "game_id", gameID, "chat_id", m.UserID, "guild_id", guildID)
				r.remember(ctx, guildID, entry, m)
				continue
			}
		}
		unresolved = append(unresolved, gameID)
	}
	sort.Strings(unresolved)
	return unresolved
}

// remember persists a discovered correlation. Failures are logged only.
func (r *Resolver) remember(ctx context.Context, guildID string, entry *faf.RosterEntry, m discord.VoiceMember) {
	_, err := r.store.Upsert(ctx, identity.UpsertInput{
		GameID:          entry.GameID,
		GameUsername:    entry.DisplayName,
		GuildID:         guildID,
		ChatID:          m.UserID,
		ChatDisplayName: m.DisplayName,
	})
	if err != nil {
		slog.Error("failed to remember identity", "error", err, "game_id", entry.GameID, "chat_id", m.UserID, "guild_id", guildID)
	}
}
