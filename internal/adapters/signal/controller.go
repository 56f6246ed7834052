package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gamerz-app/gamerz/internal/app"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
	"github.com/gamerz-app/gamerz/internal/core"
	"github.com/gamerz-app/gamerz/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatWSController runs one client's real-time session: authenticate,
// register, serve join/leave/send until the transport drops, then tear
// down exactly once.
type ChatWSController struct {
	Orch     *app.Orchestrator
	Resolver *auth.Resolver
	Limiter  *SendRateLimiter
	Cfg      *config.Config
}

func NewChatWSController(orch *app.Orchestrator, resolver *auth.Resolver, cfg *config.Config) *ChatWSController {
	return &ChatWSController{
		Orch:     orch,
		Resolver: resolver,
		Limiter:  NewSendRateLimiter(cfg.SendBurst, cfg.SendWindow),
		Cfg:      cfg,
	}
}

// HandleChat upgrades the connection and runs its session. Identity is
// resolved from the session cookie (or bearer token) before anything is
// registered; a connection that fails resolution is refused.
func (ctl *ChatWSController) HandleChat(ctx context.Context, c *gin.Context) {
	ident, err := ctl.Resolver.Resolve(tokenFromRequest(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("ws auth refused")
		c.JSON(http.StatusUnauthorized, gin.H{"code": codeUnauthorized, "error": "authentication required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := core.ConnID(uuid.NewString())
	conn := newWSConn(ws)

	if err := ctl.Orch.Connect(sid, ident); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("register failed")
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(sid)).
		Str("user", string(ident.UserID)).Msg("new WS connection")

	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, ident, conn)
}

// tokenFromRequest checks the session cookie first, then the query
// parameter browsers cannot set headers for, then the bearer header.
func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// CookieName is the session cookie carrying the JWT.
const CookieName = "gamerz_token"

func (ctl *ChatWSController) handleRequest(ctx context.Context, sid core.ConnID, ident core.Identity, conn *wsConn, data []byte) {
	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(conn, codeBadPayload, "malformed request")
		return
	}

	switch env.Type {
	case reqJoin:
		ctl.handleJoin(sid, conn, env)
	case reqLeave:
		ctl.handleLeave(sid, conn, env)
	case reqSend:
		ctl.handleSend(ctx, sid, ident, conn, env)
	case reqPing:
		ctl.sendJSON(conn, pongReply{Type: "pong"})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown request")
		ctl.sendError(conn, codeBadPayload, "unknown request type")
	}
}

func (ctl *ChatWSController) handleJoin(sid core.ConnID, conn *wsConn, env requestEnvelope) {
	if env.Room == "" {
		ctl.sendError(conn, codeBadPayload, "room required")
		return
	}
	room := domain.RoomID(env.Room)
	if err := ctl.Orch.Join(room, sid, conn); err != nil {
		ctl.sendOrchError(conn, err)
		return
	}

	members := make([]memberView, 0)
	for _, peer := range ctl.Orch.Roster.MembersOf(room) {
		members = append(members, memberView{
			UserID:   peer.Identity.UserID,
			Username: peer.Identity.Username,
		})
	}
	ctl.sendJSON(conn, joinedReply{
		Type:    "joined",
		Room:    room,
		Members: members,
		Count:   len(members),
	})
}

func (ctl *ChatWSController) handleLeave(sid core.ConnID, conn *wsConn, env requestEnvelope) {
	if env.Room == "" {
		ctl.sendError(conn, codeBadPayload, "room required")
		return
	}
	room := domain.RoomID(env.Room)
	ctl.Orch.Leave(sid, room)
	ctl.sendJSON(conn, leftReply{Type: "left", Room: room})
}

func (ctl *ChatWSController) handleSend(ctx context.Context, sid core.ConnID, ident core.Identity, conn *wsConn, env requestEnvelope) {
	if env.Room == "" || env.Content == "" {
		ctl.sendError(conn, codeBadPayload, "room and content required")
		return
	}
	if !ctl.Limiter.Allow(ident.UserID) {
		ctl.sendError(conn, codeRateLimited, "slow down")
		return
	}
	msg, err := ctl.Orch.Send(ctx, sid, domain.RoomID(env.Room), env.Content)
	if err != nil {
		ctl.sendOrchError(conn, err)
		return
	}
	ctl.sendJSON(conn, ackReply{
		Type:      "ack",
		Room:      msg.Room,
		ID:        msg.ID,
		CreatedAt: msg.CreatedAt,
	})
}

// sendOrchError maps orchestrator errors onto wire error codes.
func (ctl *ChatWSController) sendOrchError(conn *wsConn, err error) {
	var perm *core.PermissionError
	var persist *core.PersistenceError
	switch {
	case errors.As(err, &perm):
		code := codeAccessRevoked
		if perm.Pending() {
			code = codePendingApproval
		}
		ctl.sendError(conn, code, perm.Error())
	case errors.As(err, &persist):
		ctl.sendError(conn, codePersistence, "message could not be saved")
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, core.ErrNotMember):
		ctl.sendError(conn, codeNotFound, err.Error())
	case errors.Is(err, core.ErrNotRegistered):
		ctl.sendError(conn, codeUnauthorized, err.Error())
	default:
		log.Error().Err(err).Str("module", "signal").Msg("unexpected orchestrator error")
		ctl.sendError(conn, codeBadPayload, "request failed")
	}
}

func (ctl *ChatWSController) sendError(conn *wsConn, code, msg string) {
	ctl.sendJSON(conn, errorReply{Type: "error", Code: code, Error: msg})
}

func (ctl *ChatWSController) sendJSON(conn *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = conn.TrySend(b)
}
