package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"marketplace-client/internal/api"
	"marketplace-client/internal/cache"
	"marketplace-client/internal/chatview"
	"marketplace-client/internal/config"
	"marketplace-client/internal/handlers"
	"marketplace-client/internal/logging"
	"marketplace-client/internal/models"
	"marketplace-client/internal/observability"
	"marketplace-client/internal/rabbitmq"
	"marketplace-client/internal/session"
	"marketplace-client/internal/telemetry"
	"marketplace-client/internal/ws"
)

const auditRoutingKey = "audit.marketplace_client"

func main() {
	configPath := flag.String("config", getEnv("MARKET_CONFIG", ""), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "marketplace-client: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.LoadDotEnv(getEnv("MARKET_ENV_FILE", ".env")); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn(context.Background(), "tracing shutdown failed", "error", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info(ctx, "event publisher ready",
		"mode", rabbitmq.PublisherMode(publisher),
		"noop_reason", rabbitmq.PublisherNoopReason(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment, log)

	sess, err := session.Open(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.BaseURL, sess,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		api.WithLogger(log),
	)
	mirror := cache.New(client, log)

	channel, err := ws.New(sess, ws.Options{
		Origin:     cfg.BaseURL,
		Path:       cfg.RealtimePath,
		PollPath:   cfg.PollPath,
		Transports: cfg.Transports,
		Reconnect: ws.ReconnectPolicy{
			InitialDelay: cfg.Reconnect.InitialDelay,
			MaxDelay:     cfg.Reconnect.MaxDelay,
			Multiplier:   cfg.Reconnect.Multiplier,
			Jitter:       cfg.Reconnect.Jitter,
			MaxAttempts:  cfg.Reconnect.MaxAttempts,
			MaxElapsed:   cfg.Reconnect.MaxElapsed,
		},
		AckTimeout: cfg.AckTimeout,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("realtime channel: %w", err)
	}

	view := chatview.New(chatview.DefaultLimit)
	channel.OnMessage(view.Receive)
	channel.OnDelivery(view.Track)
	channel.OnNotification(func(n models.Notification) {
		if err := mirror.ApplyNotification(ctx, n); err != nil {
			log.Warn(ctx, "notification not applied", "type", n.Type, "error", err)
		}
	})
	channel.OnStateChange(func(s ws.State) {
		log.Info(ctx, "realtime state changed", "state", s.String())
	})

	if sess.Authenticated() {
		if sess.Expired(time.Now()) {
			log.Warn(ctx, "stored credential has expired; requests will fail until a new login")
		}
		mirror.Initialize(ctx)
		if err := channel.Connect(ctx); err != nil {
			log.Warn(ctx, "realtime not connected at startup", "error", err)
		}
	} else {
		log.Info(ctx, "no stored credential; waiting for POST /session")
	}

	router := handlers.NewRouter(handlers.Bridge{
		ServiceName:  cfg.ServiceName,
		Debug:        cfg.DebugRoutes,
		Session:      handlers.NewSessionHandler(sess, mirror, channel, log),
		Listings:     handlers.NewListingHandler(mirror, auditEmitter),
		Users:        handlers.NewUserHandler(mirror, auditEmitter),
		Chat:         handlers.NewChatHandler(channel, mirror, view, auditEmitter, log),
		Realtime:     channel,
		SessionGuard: sess,
		DebugDeps: handlers.DebugDeps{
			Listings: mirror,
			Users:    mirror,
			Realtime: channel,
			Audit:    auditEmitter,
		},
	})
	srv := &http.Server{
		Addr:              cfg.BridgeAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "bridge listening", "addr", cfg.BridgeAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = channel.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
