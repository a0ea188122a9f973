package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) identity.Store {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Find(ctx context.Context, q identity.Query) (*identity.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, args := buildFindQuery(q, postgresPlaceholder)
	rec, err := scanPostgresRecord(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return rec, nil
}

func (r *PostgresStore) FindMany(ctx context.Context, gameIDs []string, guildID string) ([]identity.Record, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+identityColumns+`
		 FROM identities WHERE game_id = ANY($1) AND guild_id = $2
		 ORDER BY updated_at DESC`,
		gameIDs, guildID)
	if err != nil {
		return nil, fmt.Errorf("find identities: %w", err)
	}
	defer rows.Close()
	var list []identity.Record
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func (r *PostgresStore) Upsert(ctx context.Context, input identity.UpsertInput) (*identity.Record, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO identities (game_id, game_username, guild_id, chat_id, chat_display_name, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (guild_id, chat_id) DO UPDATE SET
		   game_id = EXCLUDED.game_id,
		   game_username = EXCLUDED.game_username,
		   chat_display_name = EXCLUDED.chat_display_name,
		   updated_at = EXCLUDED.updated_at
		 RETURNING `+identityColumns,
		input.GameID, input.GameUsername, input.GuildID, input.ChatID, input.ChatDisplayName)
	rec, err := scanPostgresRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return rec, nil
}

func (r *PostgresStore) Close() {
	r.pool.Close()
}

func scanPostgresRecord(row pgx.Row) (*identity.Record, error) {
	var rec identity.Record
	if err := row.Scan(&rec.GameID, &rec.GameUsername, &rec.GuildID, &rec.ChatID, &rec.ChatDisplayName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
