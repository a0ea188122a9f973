package faf

import (
	"errors"
	"fmt"
)

const unknownHostName = "someone"

var (
	ErrMatchNotFound   = errors.New("no match in faf document")
	ErrUnexpectedShape = errors.New("unexpected faf document shape")
)

type NormalizationError struct {
	Kind   error
	Detail string
}

func (e *NormalizationError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *NormalizationError) Unwrap() error {
	return e.Kind
}

// Normalize builds a Match from a game document. FAF encodes free-for-all as
// team 1, so stored teams are the raw value minus one.
func Normalize(doc Document) (*Match, error) {
	if len(doc.Data) == 0 {
		return nil, &NormalizationError{Kind: ErrMatchNotFound}
	}
	game := doc.Data[0]
	if game.Type != resourceTypeGame {
		return nil, &NormalizationError{Kind: ErrUnexpectedShape, Detail: fmt.Sprintf("data[0] has type %q", game.Type)}
	}

	m := &Match{
		ID:              game.ID,
		Name:            game.Attributes.Name,
		StartTime:       game.Attributes.StartTime,
		EndTime:         game.Attributes.EndTime,
		HostDisplayName: unknownHostName,
		Roster:          make(Roster),
	}
	if host := game.Relationships.Host.Data; host != nil {
		m.HostGameID = host.ID
	}

	maxTeam := -1
	for _, inc := range doc.Included {
		switch inc.Kind {
		case IncludedPlayer:
			m.Roster.entry(inc.Player.ID).DisplayName = inc.Player.Login
			if m.HostGameID != "" && inc.Player.ID == m.HostGameID && inc.Player.Login != "" {
				m.HostDisplayName = inc.Player.Login
			}
		case IncludedPlayerStats:
			team := inc.PlayerStats.Team - 1
			m.Roster.entry(inc.PlayerStats.PlayerID).Team = &team
			if team > maxTeam {
				maxTeam = team
			}
		}
	}
	m.TeamCount = maxTeam + 1
	return m, nil
}
