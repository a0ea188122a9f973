package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/brackman/internal/identity"
	_ "modernc.org/sqlite"
)

// Fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database file at path (":memory:" for an in-memory
// database) and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := RunSQLiteMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run sqlite migration: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (r *SQLiteStore) Find(ctx context.Context, q identity.Query) (*identity.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildFindQuery(q, sqlitePlaceholder)
	rec, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return rec, nil
}

func (r *SQLiteStore) FindMany(ctx context.Context, gameIDs []string, guildID string) ([]identity.Record, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(gameIDs)), ", ")
	args := make([]any, 0, len(gameIDs)+1)
	for _, id := range gameIDs {
		args = append(args, id)
	}
	args = append(args, guildID)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+`
		 FROM identities WHERE game_id IN (`+marks+`) AND guild_id = ?
		 ORDER BY updated_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("find identities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var list []identity.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func (r *SQLiteStore) Upsert(ctx context.Context, input identity.UpsertInput) (*identity.Record, error) {
	now := r.now().UTC().Format(sqliteTimeLayout)
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO identities (game_id, game_username, guild_id, chat_id, chat_display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (guild_id, chat_id) DO UPDATE SET
		   game_id = excluded.game_id,
		   game_username = excluded.game_username,
		   chat_display_name = excluded.chat_display_name,
		   updated_at = excluded.updated_at
		 RETURNING `+identityColumns,
		input.GameID, input.GameUsername, input.GuildID, input.ChatID, input.ChatDisplayName, now, now)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return rec, nil
}

func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row sqlScanner) (*identity.Record, error) {
	var rec identity.Record
	var createdAt, updatedAt string
	if err := row.Scan(&rec.GameID, &rec.GameUsername, &rec.GuildID, &rec.ChatID, &rec.ChatDisplayName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}
