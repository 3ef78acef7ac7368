package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"careerpilot/internal/app"
	"careerpilot/internal/config"
	"careerpilot/internal/revalidate"
	"careerpilot/internal/scheduler"
	"careerpilot/internal/server"
	"careerpilot/internal/usertoken"
	"careerpilot/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.JWKSURL,
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	publisher, err := revalidate.NewPublisher(revalidate.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Channel:  cfg.RevalidateChannel,
	})
	if err != nil {
		log.Fatalf("failed to init revalidate publisher: %v", err)
	}
	defer publisher.Close()

	appCore, err := app.New(app.Config{
		DatabaseURL:  cfg.DatabaseURL,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Revalidator:  publisher,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	sweep := scheduler.New(appCore, cfg.SweepCron)

	httpServer, err := server.New(server.Config{
		App:            appCore,
		TokenVerifier:  verifier,
		Sweeper:        sweep,
		SweepToken:     cfg.SweepToken,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		QuizRateLimit:  cfg.QuizRateLimit,
		QuizRateWindow: time.Duration(cfg.QuizRateWindowSec) * time.Second,
		AIRateLimit:    cfg.AIRateLimit,
		AIRateWindow:   time.Duration(cfg.AIRateWindowSec) * time.Second,
		TrustedProxies: trustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweep.Start(ctx); err != nil {
		log.Fatalf("failed to start insight sweep: %v", err)
	}
	defer sweep.Stop()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
