package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

type Config struct {
	Env                       string
	DatabaseURL               string
	DiscordToken              string
	DiscordGuildIDs           []string
	PrivilegedUserIDs         []string
	SortCategoryRestrictionID string
	SortTimeoutSec            int
	DisplayTimezone           string
	FAFAPIBaseURL             string
	FAFOAuthTokenURL          string
	FAFOAuthClientID          string
	FAFOAuthClientSecret      string
	FAFOAuthScopes            []string
	FAFRequestTimeoutSec      int
	FAFRequestsPerSecond      float64
	SortReportWebhookURL      string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if !c.UsesSQLite() && !c.UsesPostgres() {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://")
	}
	if _, err := url.Parse(c.FAFAPIBaseURL); err != nil {
		return fmt.Errorf("FAF_API_BASE_URL is invalid: %w", err)
	}
	if c.SortTimeoutSec <= 0 {
		return fmt.Errorf("SORT_TIMEOUT_SEC must be positive, got %d", c.SortTimeoutSec)
	}
	if c.FAFRequestTimeoutSec <= 0 {
		return fmt.Errorf("FAF_REQUEST_TIMEOUT_SEC must be positive, got %d", c.FAFRequestTimeoutSec)
	}
	if c.FAFRequestsPerSecond <= 0 {
		return fmt.Errorf("FAF_REQUESTS_PER_SECOND must be positive, got %v", c.FAFRequestsPerSecond)
	}
	if c.DisplayTimezone == "" {
		return fmt.Errorf("DISPLAY_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "FAF_API_BASE_URL", value: c.FAFAPIBaseURL},
		{name: "FAF_OAUTH_TOKEN_URL", value: c.FAFOAuthTokenURL},
		{name: "FAF_OAUTH_CLIENT_ID", value: c.FAFOAuthClientID},
		{name: "FAF_OAUTH_CLIENT_SECRET", value: c.FAFOAuthClientSecret},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsPrivileged reports whether the user may act on behalf of other members.
func (c *Config) IsPrivileged(userID string) bool {
	return userID != "" && slices.Contains(c.PrivilegedUserIDs, userID)
}

func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite://")
}

func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// SQLitePath returns the database file path of a sqlite:// URL.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

func (c *Config) SortTimeout() time.Duration {
	return time.Duration(c.SortTimeoutSec) * time.Second
}

func (c *Config) FAFRequestTimeout() time.Duration {
	return time.Duration(c.FAFRequestTimeoutSec) * time.Second
}

func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
