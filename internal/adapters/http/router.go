package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/adapters/signal"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers, ws *signal.ChatWSController, resolver *auth.Resolver) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.GET("/rooms", h.ListRooms)

	authed := api.Group("")
	authed.Use(AuthMiddleware(resolver))
	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms/:id/messages", h.History)

	admin := authed.Group("/admin")
	admin.Use(AdminMiddleware(cfg))
	admin.GET("/users/pending", h.PendingUsers)
	admin.PATCH("/users/:id/status", h.UpdateStatus)

	api.GET("/ws/chat", func(c *gin.Context) {
		ws.HandleChat(ctx, c)
	})

	return r
}
