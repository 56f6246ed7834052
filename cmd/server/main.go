package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/gamerz-app/gamerz/internal/adapters/http"
	wsadapter "github.com/gamerz-app/gamerz/internal/adapters/signal"
	"github.com/gamerz-app/gamerz/internal/app"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
	"github.com/gamerz-app/gamerz/internal/core"
	"github.com/gamerz-app/gamerz/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be configured")
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("store close")
		}
	}()

	users := store.NewUserStore(db)
	rooms := store.NewRoomStore(db)
	messages := store.NewMessageStore(db)

	tokens := auth.NewManager(cfg.Secret, cfg.TokenTTL)
	resolver := auth.NewResolver(tokens, users)

	registry := core.NewRegistry()
	roster := core.NewRoster(registry)
	engine := core.NewEngine(roster)
	orch := app.NewOrchestrator(registry, roster, engine, messages, rooms)

	handlers := &router.Handlers{
		Users:    users,
		Rooms:    rooms,
		Messages: messages,
		Tokens:   tokens,
		Cfg:      cfg,
	}
	ws := wsadapter.NewChatWSController(orch, resolver, cfg)

	r := router.SetupRouter(ctx, cfg, handlers, ws, resolver)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Gamerz server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
