package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/brackman/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                       string   `env:"ENV" envDefault:"production"`
	DatabaseURL               string   `env:"DATABASE_URL,required"`
	DiscordToken              string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildIDs           []string `env:"DISCORD_GUILD_IDS" envSeparator:","`
	PrivilegedUserIDs         []string `env:"PRIVILEGED_USER_IDS" envSeparator:","`
	SortCategoryRestrictionID string   `env:"SORT_CATEGORY_RESTRICTION_ID"`
	SortTimeoutSec            int      `env:"SORT_TIMEOUT_SEC" envDefault:"60"`
	DisplayTimezone           string   `env:"DISPLAY_TIMEZONE" envDefault:"Australia/Sydney"`
	FAFAPIBaseURL             string   `env:"FAF_API_BASE_URL" envDefault:"https://api.faforever.com/data/"`
	FAFOAuthTokenURL          string   `env:"FAF_OAUTH_TOKEN_URL" envDefault:"https://hydra.faforever.com/oauth2/token"`
	FAFOAuthClientID          string   `env:"FAF_OAUTH_CLIENT_ID,required"`
	FAFOAuthClientSecret      string   `env:"FAF_OAUTH_CLIENT_SECRET,required"`
	FAFOAuthScopes            []string `env:"FAF_OAUTH_SCOPES" envSeparator:","`
	FAFRequestTimeoutSec      int      `env:"FAF_REQUEST_TIMEOUT_SEC" envDefault:"15"`
	FAFRequestsPerSecond      float64  `env:"FAF_REQUESTS_PER_SECOND" envDefault:"5"`
	SortReportWebhookURL      string   `env:"SORT_REPORT_WEBHOOK_URL"`
}

// databaseEnvConfig is the subset needed by schema migrations.
type databaseEnvConfig struct {
	Env         string `env:"ENV" envDefault:"production"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*internalconfig.Config, error) {
	loadDotEnv()

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                       raw.Env,
		DatabaseURL:               raw.DatabaseURL,
		DiscordToken:              raw.DiscordToken,
		DiscordGuildIDs:           compact(raw.DiscordGuildIDs),
		PrivilegedUserIDs:         compact(raw.PrivilegedUserIDs),
		SortCategoryRestrictionID: raw.SortCategoryRestrictionID,
		SortTimeoutSec:            raw.SortTimeoutSec,
		DisplayTimezone:           raw.DisplayTimezone,
		FAFAPIBaseURL:             raw.FAFAPIBaseURL,
		FAFOAuthTokenURL:          raw.FAFOAuthTokenURL,
		FAFOAuthClientID:          raw.FAFOAuthClientID,
		FAFOAuthClientSecret:      raw.FAFOAuthClientSecret,
		FAFOAuthScopes:            compact(raw.FAFOAuthScopes),
		FAFRequestTimeoutSec:      raw.FAFRequestTimeoutSec,
		FAFRequestsPerSecond:      raw.FAFRequestsPerSecond,
		SortReportWebhookURL:      raw.SortReportWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only what the migrate command needs, so bot
// credentials may stay unset.
func LoadDatabase() (*internalconfig.Config, error) {
	loadDotEnv()

	var raw databaseEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	cfg := &internalconfig.Config{Env: raw.Env, DatabaseURL: raw.DatabaseURL}
	if !cfg.UsesSQLite() && !cfg.UsesPostgres() {
		return nil, fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://")
	}
	return cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
