package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"arkx/internal/app"
	"arkx/internal/application/service"
	"arkx/internal/infrastructure/config"
	"arkx/internal/infrastructure/logger"
)

func main() {
	// secrets may live in .env; missing file is fine
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	account := flag.String("account", "", "account name filter (empty = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer func() {
		done := make(chan struct{})
		go func() {
			if err := sc.Close(); err != nil {
				log.Error().Err(err).Msg("shutdown error")
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			log.Warn().Msg("shutdown grace elapsed, exiting")
		}
	}()

	rows, err := sc.Store().ListAccounts(ctx, *account)
	if err != nil {
		log.Fatal().Err(err).Msg("list accounts failed")
	}
	if len(rows) == 0 {
		log.Warn().Str("filter", *account).Msg("no accounts configured")
		return
	}

	log.Info().Str("config", *configPath).Int("accounts", len(rows)).Msg("arkx started")

	deps := service.Deps{
		Pool:     sc.Pool(),
		Store:    sc.Store(),
		Cookies:  sc.CookieStore(),
		Config:   cfg,
		Prompter: sc.Prompter,
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			log.Warn().Msg("interrupted, stopping account loop")
			break
		}

		acc := service.NewAccount(deps, row)
		if err := acc.EnsureAuthenticated(ctx); err != nil {
			log.Error().Err(err).Str("account", row.Name).Msg("authentication failed")
			acc.Close()
			continue
		}

		stats, err := acc.RefreshStats(ctx)
		if err != nil {
			log.Error().Err(err).Str("account", row.Name).Msg("stats refresh failed")
			acc.Close()
			continue
		}

		_ = sc.Sink.WriteLine(fmt.Sprintf("%-20s balance=%.3f volume=%.3f points=%d bonus=%.3f fee=%.3f",
			row.Name, stats.Balance, stats.Volume, stats.Points, stats.MarginBonus, stats.MarginFee))
		acc.Close()
	}
}
