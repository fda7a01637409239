package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	SetupLogger(cfg.LogLevel)

	var (
		db        *DB
		analytics *Analytics
		recorder  Recorder = nopRecorder{}
	)
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
		}
		analytics = NewAnalytics(db)
		recorder = analytics
		log.Info().Str("path", cfg.DBPath).Msg("round history enabled")
	}

	invites, err := NewInvites(cfg.InviteSecret, cfg.PublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invites")
	}
	if cfg.InviteSecret == "" {
		log.Warn().Msg("INVITE_SECRET not set, invites will not survive a restart")
	}

	rooms := NewRoomRegistry(recorder)
	hub := NewHub(rooms)
	mux := SetupRoutes(&Server{hub: hub, invites: invites, db: db}, cfg.StaticDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if cfg.StaticDir != "" {
			log.Info().Str("dir", cfg.StaticDir).Msg("serving client files")
		}
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	rooms.StopAll()
	if analytics != nil {
		analytics.Stop()
	}
	if db != nil {
		db.Close()
	}
}
