package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"snatch/internal/activity"
	"snatch/internal/config"
	"snatch/internal/downloader"
	"snatch/internal/handlers"
	xlog "snatch/internal/log"
	"snatch/internal/media"
	"snatch/internal/storage"
	"snatch/internal/task"
	"snatch/internal/version"
)

func main() {
	// Load .env if present; real environment takes precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger := xlog.Base()
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel})
	logger := xlog.WithComponent("server")

	// Download history is best-effort: a broken database disables the
	// audit log but never blocks downloads.
	var history downloader.HistoryRecorder
	if cfg.HistoryDB != "" {
		db, err := storage.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("history store disabled")
		} else {
			defer db.Close()
			history = storage.NewHistoryRepository(db)
		}
	}

	tracker := activity.NewTracker()
	avail := activity.NewAvailability(tracker)

	engine := media.NewYouTube()
	registry := task.NewRegistry()
	dl := downloader.New(engine, history, tracker, cfg.DownloadDir)

	action := activity.SleepAction
	if cfg.IdleAction == config.IdleActionShutdown {
		// Terminate-on-idle has no dormant state; the server starts armed.
		action = activity.ShutdownAction
		avail.Wake()
	}
	monitor := activity.NewMonitor(tracker, avail, cfg.IdleTimeout, cfg.IdleCheckInterval, action)
	go monitor.Run(context.Background())

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := handlers.NewAPI(registry, dl, engine, avail, tracker, cfg.IdleTimeout, cfg.DownloadDir)
	api.Register(e)

	logger.Info().
		Str("version", version.Version).
		Str("addr", cfg.Addr()).
		Str("download_dir", cfg.DownloadDir).
		Dur("idle_timeout", cfg.IdleTimeout).
		Str("idle_action", string(cfg.IdleAction)).
		Msg("starting server")

	if err := e.Start(cfg.Addr()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
