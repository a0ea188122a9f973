package faf

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
)

const (
	resourceTypeGame        = "game"
	resourceTypePlayer      = "player"
	resourceTypePlayerStats = "gamePlayerStats"
)

// Document is a JSON:API response from the FAF data API.
type Document struct {
	Data     []Resource         `json:"data"`
	Included []IncludedResource `json:"included"`
}

type Resource struct {
	Type          string            `json:"type"`
	ID            string            `json:"id"`
	Attributes    GameAttributes    `json:"attributes"`
	Relationships GameRelationships `json:"relationships"`
}

type GameAttributes struct {
	Name      string     `json:"name"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

type GameRelationships struct {
	Host Relationship `json:"host"`
}

type Relationship struct {
	Data *ResourceIdentifier `json:"data"`
}

type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type IncludedKind int

const (
	IncludedUnknown IncludedKind = iota
	IncludedPlayer
	IncludedPlayerStats
)

// IncludedResource holds exactly one of Player or PlayerStats, selected by Kind.
type IncludedResource struct {
	Kind        IncludedKind
	Type        string
	Player      *PlayerResource
	PlayerStats *PlayerStatsResource
}

type PlayerResource struct {
	ID        string
	Login     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlayerStatsResource struct {
	ID       string
	PlayerID string
	Team     int
}

type rawIncluded struct {
	Type          string          `json:"type"`
	ID            string          `json:"id"`
	Attributes    json.RawMessage `json:"attributes"`
	Relationships json.RawMessage `json:"relationships"`
}

type rawPlayerAttributes struct {
	Login      string    `json:"login"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

type rawPlayerStatsAttributes struct {
	Team *int `json:"team"`
}

type rawPlayerStatsRelationships struct {
	Player Relationship `json:"player"`
}

func (r *IncludedResource) UnmarshalJSON(b []byte) error {
	var raw rawIncluded
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = IncludedResource{Kind: IncludedUnknown, Type: raw.Type}

	switch raw.Type {
	case resourceTypePlayer:
		var attrs rawPlayerAttributes
		if err := unmarshalOptional(raw.Attributes, &attrs); err != nil {
			return fmt.Errorf("player %s attributes: %w", raw.ID, err)
		}
		r.Kind = IncludedPlayer
		r.Player = &PlayerResource{
			ID:        raw.ID,
			Login:     attrs.Login,
			CreatedAt: attrs.CreateTime,
			UpdatedAt: attrs.UpdateTime,
		}
	case resourceTypePlayerStats:
		var attrs rawPlayerStatsAttributes
		if err := unmarshalOptional(raw.Attributes, &attrs); err != nil {
			return fmt.Errorf("player stats %s attributes: %w", raw.ID, err)
		}
		var rels rawPlayerStatsRelationships
		if err := unmarshalOptional(raw.Relationships, &rels); err != nil {
			return fmt.Errorf("player stats %s relationships: %w", raw.ID, err)
		}
		if attrs.Team == nil || rels.Player.Data == nil || rels.Player.Data.ID == "" {
			// Incomplete stats cannot be attached to a roster entry.
			return nil
		}
		r.Kind = IncludedPlayerStats
		r.PlayerStats = &PlayerStatsResource{
			ID:       raw.ID,
			PlayerID: rels.Player.Data.ID,
			Team:     *attrs.Team,
		}
	}
	return nil
}

func unmarshalOptional(b json.RawMessage, v any) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, v)
}

func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode faf document: %w", err)
	}
	return doc, nil
}

// PlayerDocument is a player search response; its data holds player resources.
type PlayerDocument struct {
	Data []IncludedResource `json:"data"`
}

func DecodePlayerDocument(r io.Reader) (PlayerDocument, error) {
	var doc PlayerDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return PlayerDocument{}, fmt.Errorf("decode faf player document: %w", err)
	}
	return doc, nil
}

func (d PlayerDocument) Players() []PlayerResource {
	players := make([]PlayerResource, 0, len(d.Data))
	for _, res := range d.Data {
		if res.Kind != IncludedPlayer || res.Player.ID == "" {
			continue
		}
		players = append(players, *res.Player)
	}
	return players
}
