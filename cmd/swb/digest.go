package main

import (
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/digest"
	"github.com/zulandar/switchboard/internal/slackbot"
)

func newDigestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Post a one-off activity digest",
		Long:  "Summarizes the last 24 hours of routing activity from the audit store and posts it to the configured digest channel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runDigest(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Audit.Driver == "" {
		return fmt.Errorf("digest requires an audit store (set audit.driver)")
	}
	if cfg.Digest.ChannelID == "" {
		return fmt.Errorf("digest.channel_id is required")
	}

	store, err := buildAuditStore(cfg)
	if err != nil {
		return err
	}

	api := slackapi.New(cfg.Slack.BotToken)
	platform, err := slackbot.NewPlatform(api)
	if err != nil {
		return err
	}

	schedule := cfg.Digest.Schedule
	if schedule == "" {
		schedule = "0 9 * * *" // placeholder, one-off posts never consult it
	}
	dg, err := digest.New(digest.Opts{
		Store:     store,
		Poster:    platform,
		ChannelID: cfg.Digest.ChannelID,
		Schedule:  schedule,
		Out:       cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if err := dg.PostOnce(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "digest posted to %s\n", cfg.Digest.ChannelID)
	return nil
}
