package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echo-gateway/internal/api/routes"
	"echo-gateway/internal/broadcast"
	"echo-gateway/internal/config"
	"echo-gateway/internal/database"
	"echo-gateway/internal/gateway"
	"echo-gateway/internal/queue"
	"echo-gateway/internal/services"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP surface and, in local transport mode, the websocket edge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

type server struct {
	engine    http.Handler
	hub       *gateway.Hub
	publisher *queue.Publisher
	redis     *database.RedisClient
	core      *core
}

// buildServer wires the HTTP surface for the configured transport mode.
// In local mode this process owns the sockets; in http mode it is a
// stateless handler node that delivers through MANAGEMENT_URL.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	c, err := openCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	srv := &server{core: c}

	deps := routes.Dependencies{
		Signer:          c.signer,
		ManagementToken: cfg.Transport.ManagementToken,
		JWTSecret:       cfg.JWT.Secret,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		AuthRequests:    cfg.RateLimit.AuthRequests,
		AuthWindow:      cfg.RateLimit.AuthWindow,
		Logger:          logger,
	}

	var hub *gateway.Hub
	var sender *broadcast.Sender
	switch cfg.Transport.Mode {
	case "", "local":
		hub = gateway.NewHub(logger)
		sender = c.sender(hub)
		deps.Sockets = hub
		deps.Connections = hub
	case "http":
		if sender, err = c.remoteSender(); err != nil {
			srv.close(ctx)
			return nil, err
		}
	default:
		srv.close(ctx)
		return nil, fmt.Errorf("unsupported transport mode %q", cfg.Transport.Mode)
	}

	rt := c.router(sender)
	deps.Invocations = rt
	if hub != nil {
		if cfg.Transport.HandlerURL != "" {
			if cfg.Transport.ManagementToken == "" {
				srv.close(ctx)
				return nil, errNoManagementToken
			}
			logger.Info("Forwarding socket events", "handler_url", cfg.Transport.HandlerURL)
			hub.SetDispatcher(gateway.NewForwardingDispatcher(cfg.Transport.HandlerURL, cfg.Transport.ManagementToken, cfg.Transport.Timeout))
		} else {
			hub.SetDispatcher(rt)
		}
	}

	var fanout broadcast.Fanout = sender
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := queue.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			srv.close(ctx)
			return nil, err
		}
		srv.publisher = publisher
		fanout = publisher
	}
	deps.Publisher = broadcast.NewDriver(fanout, logger)

	if cfg.RateLimit.AuthRequests > 0 {
		rc, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, auth endpoint is not rate limited", "error", err)
		} else {
			srv.redis = rc
			deps.RateLimiter = services.NewRateLimitService(rc.GetClient())
		}
	}

	router := routes.NewRouter(deps)
	router.SetupRoutes()
	srv.engine = router.GetEngine()

	if hub != nil {
		srv.hub = hub
		go hub.Run()
	}
	return srv, nil
}

func (s *server) close(ctx context.Context) {
	logger := s.core.logger
	if s.hub != nil {
		s.hub.Stop()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", "error", err)
		}
	}
	if err := s.core.close(ctx); err != nil {
		logger.Error("Failed to close subscription store", "error", err)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", httpServer.Addr, "transport", cfg.Transport.Mode, "store", cfg.Store.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Server shutting down...")
	case err := <-errChan:
		srv.close(context.Background())
		return fmt.Errorf("server failed to start: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	srv.close(shutdownCtx)

	logger.Info("Server stopped")
	return nil
}
