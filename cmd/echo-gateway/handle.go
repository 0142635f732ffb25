package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"echo-gateway/internal/config"
	"echo-gateway/internal/protocol"

	"github.com/spf13/cobra"
)

func handleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handle <base64-envelope>",
		Short: "Handle a single socket event and exit",
		Long: "Decodes a base64 JSON event envelope, runs it through the protocol router " +
			"and delivers any replies through the edge at MANAGEMENT_URL.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return handle(cmd.Context(), cfg, logger, args[0], cmd.OutOrStdout())
		},
	}
}

func handle(ctx context.Context, cfg *config.Config, logger *slog.Logger, payload string, out io.Writer) error {
	env, err := protocol.DecodeBase64Envelope(payload)
	if err != nil {
		return err
	}

	c, err := openCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.close(context.Background()); err != nil {
			logger.Error("Failed to close subscription store", "error", err)
		}
	}()

	sender, err := c.remoteSender()
	if err != nil {
		return err
	}
	if err := c.router(sender).Handle(ctx, env); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, `{"statusCode":200}`)
	return err
}
