package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"

	"github.com/zulandar/switchboard/internal/audit"
	"github.com/zulandar/switchboard/internal/backend"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/digest"
	"github.com/zulandar/switchboard/internal/history"
	"github.com/zulandar/switchboard/internal/httpapi"
	"github.com/zulandar/switchboard/internal/registry"
	"github.com/zulandar/switchboard/internal/router"
	"github.com/zulandar/switchboard/internal/slackbot"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the event router",
		Long:  "Connects to Slack (Socket Mode or the Events API over HTTP per config) and routes inbound events until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	var apiOpts []slackapi.Option
	if cfg.Slack.SocketMode {
		apiOpts = append(apiOpts, slackapi.OptionAppLevelToken(cfg.Slack.AppToken))
	}
	api := slackapi.New(cfg.Slack.BotToken, apiOpts...)

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	fmt.Fprintf(out, "authenticated as %s (%s) on team %s\n", auth.User, auth.UserID, auth.Team)

	reg, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	policy, err := router.NewPolicy(reg, auth.UserID)
	if err != nil {
		return err
	}
	platform, err := slackbot.NewPlatform(api)
	if err != nil {
		return err
	}
	fetcher, err := history.NewFetcher(history.FetcherOpts{Client: api, BotUserID: auth.UserID})
	if err != nil {
		return err
	}
	responder, err := backend.NewGemini(ctx, cfg.Backend.APIKey, cfg.Backend.Model)
	if err != nil {
		return err
	}

	store, err := buildAuditStore(cfg)
	if err != nil {
		return err
	}
	var recorder router.Recorder
	if store != nil {
		recorder = store
	}

	dispatcher, err := router.NewDispatcher(router.DispatcherOpts{
		Policy:             policy,
		Registry:           reg,
		Platform:           platform,
		Fetcher:            fetcher,
		Responder:          responder,
		Recorder:           recorder,
		Out:                out,
		ThreadTTL:          time.Duration(cfg.Registry.ThreadTTLSeconds) * time.Second,
		MaxHistory:         cfg.Router.MaxHistory,
		TerminationKeyword: cfg.Router.TerminationKeyword,
		FallbackMessage:    cfg.Router.FallbackMessage,
		ClosingMessage:     cfg.Router.ClosingMessage,
		AckEmoji:           cfg.Router.AckEmoji,
		ResponseTimeout:    time.Duration(cfg.Router.ResponseTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	if cfg.Digest.Schedule != "" {
		if store == nil {
			return fmt.Errorf("digest.schedule requires an audit store (set audit.driver)")
		}
		dg, err := digest.New(digest.Opts{
			Store:     store,
			Poster:    platform,
			ChannelID: cfg.Digest.ChannelID,
			Schedule:  cfg.Digest.Schedule,
			Out:       out,
		})
		if err != nil {
			return err
		}
		go dg.Run(ctx)
	}

	if cfg.Slack.SocketMode {
		socket := socketmode.New(api)
		bot, err := slackbot.New(slackbot.BotOpts{Socket: socket, Handler: dispatcher, Out: out})
		if err != nil {
			return err
		}
		bot.Run(ctx)
		return nil
	}

	server, err := httpapi.NewServer(httpapi.ServerOpts{
		Handler:       dispatcher,
		SigningSecret: cfg.Slack.SigningSecret,
		Out:           out,
	})
	if err != nil {
		return err
	}
	return server.Run(cfg.HTTP.Addr)
}

// buildRegistry creates the configured thread registry backend.
func buildRegistry(ctx context.Context, cfg *config.Config) (registry.Registry, error) {
	switch cfg.Registry.Backend {
	case "redis":
		kv, err := registry.OpenRedis(ctx, cfg.Registry.RedisURL)
		if err != nil {
			return nil, err
		}
		return registry.NewStore(kv)
	default:
		return registry.NewLocal(), nil
	}
}

// buildAuditStore creates the configured audit store, or nil when auditing
// is disabled.
func buildAuditStore(cfg *config.Config) (*audit.Store, error) {
	switch cfg.Audit.Driver {
	case "sqlite":
		return audit.OpenSQLite(cfg.Audit.SQLitePath)
	case "mysql":
		m := cfg.Audit.MySQL
		return audit.OpenMySQL(m.Host, m.Port, m.User, m.Database)
	default:
		return nil, nil
	}
}
