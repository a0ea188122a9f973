package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/brackman/external/config"
	"github.com/foxseedlab/brackman/external/discord"
	fafimpl "github.com/foxseedlab/brackman/external/faf"
	repositoryimpl "github.com/foxseedlab/brackman/external/repository"
	webhookimpl "github.com/foxseedlab/brackman/external/webhook"
	"github.com/foxseedlab/brackman/internal/bot"
	"github.com/foxseedlab/brackman/internal/config"
	discordpkg "github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/sorting"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const discordConnectTimeout = 20 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "brackman",
		Short: "Sorts FAF players into per-team Discord voice channels",
		Long: `Brackman watches a Discord server and answers /faf-set, /faf-sort and /faf-who.

Configuration is read from the environment and an optional .env file:
DATABASE_URL             postgres://... or sqlite://path
DISCORD_TOKEN            bot token
DISCORD_GUILD_IDS        comma separated guilds to register commands in (empty means global)
FAF_OAUTH_CLIENT_ID      FAF API client credentials
FAF_OAUTH_CLIENT_SECRET`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			slog.Info("startup: building dependency graph")
			injector := setupDI(cfg)
			slog.Info("startup: launching discord bot")
			return runBot(cfg, injector)
		},
	}
	rootCmd.AddCommand(newMigrateCommand())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("brackman exited", "error", err)
		os.Exit(1)
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Run postgres schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configloader.LoadDatabase()
			if err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			initLogger(cfg)
			if !cfg.UsesPostgres() {
				return fmt.Errorf("migrate only applies to postgres; sqlite schemas are created on startup")
			}
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			slog.Info("running migration", "command", command)
			return repositoryimpl.RunPostgresMigration(cfg.DatabaseURL, command)
		},
	}
}

func loadConfig() (*config.Config, error) {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	fafimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	sorting.RegisterDI(injector)
	bot.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) error {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve discord client: %w", err)
	}
	handler, err := do.Invoke[*bot.Handler](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve command handler: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		return fmt.Errorf("discord connect failed: %w", err)
	}
	slog.Info("startup: discord connected")
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	guildIDs := cfg.DiscordGuildIDs
	if len(guildIDs) == 0 {
		guildIDs = []string{""}
	}
	for _, guildID := range guildIDs {
		if err := dc.UpsertGuildSlashCommands(guildID, bot.SlashCommandDefinitions()); err != nil {
			return fmt.Errorf("failed to upsert slash commands for guild %q: %w", guildID, err)
		}
	}

	dc.RegisterVoiceStateUpdateHandler(handler.HandleVoiceStateUpdate)
	dc.RegisterSlashCommandHandler(handler.HandleSlashCommand)
	slog.Info("discord handlers registered", "guild_ids", cfg.DiscordGuildIDs, "commands", bot.CommandNames())

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}
	return nil
}
