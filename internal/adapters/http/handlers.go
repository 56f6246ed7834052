// Package http exposes the REST surface: registration, login, the
// chatroom directory, message history, and the admin approval flag.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/adapters/signal"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
	"github.com/gamerz-app/gamerz/internal/domain"
	"github.com/gamerz-app/gamerz/internal/store"
)

type Handlers struct {
	Users    *store.UserStore
	Rooms    *store.RoomStore
	Messages *store.MessageStore
	Tokens   *auth.Manager
	Cfg      *config.Config
}

type registerRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Motivation string `json:"motivation" binding:"required"`
}

func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := domain.NewUser(req.Username, hash, req.Motivation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Users.Create(user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.Users.GetByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := h.Tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.SetCookie(signal.CookieName, token, int(h.Cfg.TokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handlers) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.List()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
	Game string `json:"game"`
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	ident := identityFrom(c)
	if !ident.Approved() {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not approved"})
		return
	}
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, err := domain.NewRoom(req.Name, req.Game, ident.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Rooms.Create(room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "creation failed"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handlers) History(c *gin.Context) {
	ident := identityFrom(c)
	if !ident.Approved() {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not approved"})
		return
	}
	room := domain.RoomID(c.Param("id"))
	if ok, err := h.Rooms.Exists(room); err != nil || !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, cursor, err := h.Messages.History(room, c.Query("cursor"), limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "cursor": cursor})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := domain.ApprovalStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	user, err := h.Users.UpdateStatus(domain.UserID(c.Param("id")), status)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("update status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) PendingUsers(c *gin.Context) {
	users, err := h.Users.ListPending()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list pending")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
