package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/volume-tray/internal/alsa"
	"github.com/petems/volume-tray/internal/app"
	"github.com/petems/volume-tray/internal/config"
	"github.com/petems/volume-tray/internal/logging"
	"github.com/petems/volume-tray/internal/mixer"
	"github.com/petems/volume-tray/internal/notify"
	"github.com/petems/volume-tray/internal/tone"
	"github.com/petems/volume-tray/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG config dir
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := alsa.New(log)

	mode := mixer.Linear
	if cfg.Normalize {
		mode = mixer.Perceptual
	}

	registry := mixer.NewRegistry(backend, log)
	session := mixer.NewSession(backend, mode, log)
	bridge := mixer.NewBridge(log)
	controller := mixer.NewController(registry, session, bridge, log)
	defer controller.Close()

	// Desktop notifications are best effort; some sessions run without
	// a notification daemon.
	notifier, err := notify.New(log)
	if err != nil {
		log.Warn().Err(err).Msg("Desktop notifications unavailable")
		notifier = nil
	} else {
		defer notifier.Close()
	}

	player, err := tone.New()
	if err != nil {
		log.Warn().Err(err).Msg("Test sound unavailable")
		player = nil
	} else {
		defer player.Close()
	}

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, Version, Commit, log) // App reference set below

	// Create app with tray as status updater
	application := app.New(app.Config{
		Mixer:         controller,
		Notifier:      notifier,
		Tone:          player,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})

	// Set app reference in tray; the mixer opens once the tray exists
	// so the first status update has somewhere to land.
	trayUI.SetApp(application)
	trayUI.OnReady = application.Start

	// Reload on external edits to the config file
	watcher, err := config.Watch(application.ReloadConfig, log)
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable")
	} else {
		defer watcher.Close()
	}

	log.Info().Str("version", Version).Msg("VolumeTray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		application.Shutdown()
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}
