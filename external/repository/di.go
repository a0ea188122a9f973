package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/brackman/internal/config"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (identity.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		if cfg.UsesSQLite() {
			s, err := OpenSQLite(ctx, cfg.SQLitePath())
			if err != nil {
				return nil, err
			}
			return s, nil
		}

		if err := RunPostgresMigration(cfg.DatabaseURL, "up"); err != nil {
			return nil, fmt.Errorf("failed to run migration: %w", err)
		}
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresStore(p), nil
	})
}
