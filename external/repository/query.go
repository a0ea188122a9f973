package repository

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/brackman/internal/identity"
)

const identityColumns = `game_id, game_username, guild_id, chat_id, chat_display_name, created_at, updated_at`

// buildFindQuery renders the WHERE clause for q with the dialect's placeholder.
func buildFindQuery(q identity.Query, placeholder func(n int) string) (string, []any) {
	fields := []struct {
		column string
		value  string
	}{
		{column: "guild_id", value: q.GuildID},
		{column: "chat_id", value: q.ChatID},
		{column: "game_id", value: q.GameID},
		{column: "game_username", value: q.GameUsername},
		{column: "chat_display_name", value: q.ChatDisplayName},
	}
	conditions := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		args = append(args, f.value)
		conditions = append(conditions, fmt.Sprintf("%s = %s", f.column, placeholder(len(args))))
	}
	sql := fmt.Sprintf(`SELECT %s FROM identities WHERE %s ORDER BY updated_at DESC LIMIT 1`,
		identityColumns, strings.Join(conditions, " AND "))
	return sql, args
}

func postgresPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func sqlitePlaceholder(int) string {
	return "?"
}
