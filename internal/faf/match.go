package faf

import (
	"sort"
	"time"
)

type Match struct {
	ID              string
	Name            string
	StartTime       time.Time
	EndTime         *time.Time
	HostGameID      string
	HostDisplayName string
	// TeamCount is the highest team index seen plus one, or 0 without player stats.
	TeamCount int
	Roster    Roster
}

func (m *Match) InProgress() bool {
	return m.EndTime == nil
}

type RosterEntry struct {
	GameID      string
	DisplayName string
	Team        *int
	ChatID      string
}

// Label is the name shown to users, falling back to the game id.
func (e *RosterEntry) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.GameID
}

func (e *RosterEntry) Resolved() bool {
	return e.ChatID != ""
}

// Roster is keyed by game identity.
type Roster map[string]*RosterEntry

func (r Roster) entry(gameID string) *RosterEntry {
	e, ok := r[gameID]
	if !ok {
		e = &RosterEntry{GameID: gameID}
		r[gameID] = e
	}
	return e
}

func (r Roster) GameIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnresolvedNames lists entries without a chat identity, sorted by label.
func (r Roster) UnresolvedNames() []string {
	names := make([]string, 0)
	for _, e := range r {
		if !e.Resolved() {
			names = append(names, e.Label())
		}
	}
	sort.Strings(names)
	return names
}

// Teamless lists entries the API never assigned a team, sorted by label.
func (r Roster) Teamless() []string {
	names := make([]string, 0)
	for _, e := range r {
		if e.Team == nil {
			names = append(names, e.Label())
		}
	}
	sort.Strings(names)
	return names
}

// TeamMembers returns the labels of entries on the given team, sorted.
func (r Roster) TeamMembers(team int) []string {
	names := make([]string, 0)
	for _, e := range r {
		if e.Team != nil && *e.Team == team {
			names = append(names, e.Label())
		}
	}
	sort.Strings(names)
	return names
}
