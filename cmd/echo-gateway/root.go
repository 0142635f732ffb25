package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"echo-gateway/internal/broadcast"
	"echo-gateway/internal/config"
	"echo-gateway/internal/database"
	"echo-gateway/internal/registry"
	"echo-gateway/internal/router"
	"echo-gateway/internal/signature"
	"echo-gateway/internal/transport"

	"github.com/spf13/cobra"
)

var (
	errNoManagementURL   = errors.New("MANAGEMENT_URL is required when deliveries go through a remote edge")
	errNoManagementToken = errors.New("MANAGEMENT_TOKEN is required when edges and handlers talk over HTTP")
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "echo-gateway",
		Short:        "Pusher-compatible websocket gateway over a shared subscription store",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), handleCmd(), workerCmd(), signCmd())
	return root
}

// core is what every event-handling command builds: the signer and the
// registry over the configured store.
type core struct {
	cfg      *config.Config
	logger   *slog.Logger
	signer   *signature.Signer
	registry *registry.Registry
	close    database.Closer
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, config.NewLogger(cfg.Log), nil
}

func openCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core, error) {
	signer, err := signature.NewSigner(cfg.App.Key)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := database.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription store: %w", err)
	}
	return &core{
		cfg:      cfg,
		logger:   logger,
		signer:   signer,
		registry: registry.New(store, logger),
		close:    closeStore,
	}, nil
}

// remoteSender delivers through the management API of a remote edge.
func (c *core) remoteSender() (*broadcast.Sender, error) {
	if c.cfg.Transport.ManagementURL == "" {
		return nil, errNoManagementURL
	}
	if c.cfg.Transport.ManagementToken == "" {
		return nil, errNoManagementToken
	}
	t := transport.NewHTTPTransport(c.cfg.Transport.ManagementURL, c.cfg.Transport.ManagementToken, c.cfg.Transport.Timeout)
	return c.sender(t), nil
}

func (c *core) sender(t transport.Transport) *broadcast.Sender {
	return broadcast.NewSender(t, c.registry, c.logger, c.cfg.Broadcast.MaxConcurrency)
}

func (c *core) router(s *broadcast.Sender) *router.Router {
	return router.New(c.signer, c.registry, s, c.logger)
}
