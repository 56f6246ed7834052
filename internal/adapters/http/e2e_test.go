package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpadapter "github.com/gamerz-app/gamerz/internal/adapters/http"
	"github.com/gamerz-app/gamerz/internal/adapters/signal"
	"github.com/gamerz-app/gamerz/internal/app"
	"github.com/gamerz-app/gamerz/internal/auth"
	"github.com/gamerz-app/gamerz/internal/config"
	"github.com/gamerz-app/gamerz/internal/core"
	"github.com/gamerz-app/gamerz/internal/store"
	"github.com/gamerz-app/gamerz/pkg/client"
)

type stack struct {
	ts    *httptest.Server
	users *store.UserStore
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		Secret:     "e2e-secret",
		TokenTTL:   time.Hour,
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		SendBurst:  100,
		SendWindow: time.Second,
		AdminUsers: []string{"admin"},
	}
	db, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := store.NewUserStore(db)
	rooms := store.NewRoomStore(db)
	messages := store.NewMessageStore(db)
	tokens := auth.NewManager(cfg.Secret, cfg.TokenTTL)
	resolver := auth.NewResolver(tokens, users)

	registry := core.NewRegistry()
	roster := core.NewRoster(registry)
	orch := app.NewOrchestrator(registry, roster, core.NewEngine(roster), messages, rooms)

	handlers := &httpadapter.Handlers{
		Users:    users,
		Rooms:    rooms,
		Messages: messages,
		Tokens:   tokens,
		Cfg:      cfg,
	}
	ws := signal.NewChatWSController(orch, resolver, cfg)

	r := httpadapter.SetupRouter(context.Background(), cfg, handlers, ws, resolver)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &stack{ts: ts, users: users}
}

func (s *stack) postJSON(t *testing.T, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	return s.doJSON(t, http.MethodPost, path, token, body)
}

func (s *stack) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

// register creates an account and returns its id.
func (s *stack) register(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := s.postJSON(t, "/api/register", "", map[string]string{
		"username":   username,
		"password":   password,
		"motivation": "I main support and I never rage quit",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (s *stack) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := s.postJSON(t, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// approvedPlayer registers, approves (via the admin endpoint), and logs
// in one account.
func (s *stack) approvedPlayer(t *testing.T, adminToken, username string) string {
	t.Helper()
	id := s.register(t, username, "super-secret-pw")
	resp, _ := s.doJSON(t, http.MethodPatch, "/api/admin/users/"+id+"/status", adminToken,
		map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return s.login(t, username, "super-secret-pw")
}

func (s *stack) adminToken(t *testing.T) string {
	t.Helper()
	id := s.register(t, "admin", "super-secret-pw")
	token := s.login(t, "admin", "super-secret-pw")
	// Admin rights come from config by username; the admin still
	// self-approves to get out of the pending queue.
	resp, _ := s.doJSON(t, http.MethodPatch, "/api/admin/users/"+id+"/status", token,
		map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return token
}

func (s *stack) chatURL() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/api/ws/chat"
}

func waitEvent(t *testing.T, c *client.Client, typ string) client.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %q", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", typ)
		}
	}
}

func TestEndToEnd_Chat_Flow(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	admin := s.adminToken(t)
	aliceToken := s.approvedPlayer(t, admin, "alice")
	bobToken := s.approvedPlayer(t, admin, "bob")

	// Alice creates the room through the directory
	resp, body := s.postJSON(t, "/api/rooms", aliceToken, map[string]string{
		"name": "FPS Legends", "game": "fps",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	roomID, _ := body["id"].(string)
	req.NotEmpty(roomID)

	alice := client.New(client.Config{URL: s.chatURL(), Token: aliceToken})
	req.NoError(alice.Connect())
	defer alice.Close()
	req.NoError(alice.Join(roomID))
	waitEvent(t, alice, "joined")

	bob := client.New(client.Config{URL: s.chatURL(), Token: bobToken})
	req.NoError(bob.Connect())
	defer bob.Close()
	req.NoError(bob.Join(roomID))
	waitEvent(t, bob, "joined")

	// Alice sees Bob join
	joined := waitEvent(t, alice, "member_joined")
	req.Equal("bob", joined.Username)

	// Alice sends; Bob receives exactly that message
	req.NoError(alice.Send(roomID, "gg"))
	ack := waitEvent(t, alice, "ack")
	req.NotEmpty(ack.ID)

	msg := waitEvent(t, bob, "message")
	req.Equal("gg", msg.Content)
	req.Equal("alice", msg.Username)
	req.Equal(roomID, msg.Room)

	// The message is durably readable through the history endpoint
	resp, body = s.doJSON(t, http.MethodGet, "/api/rooms/"+roomID+"/messages", aliceToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	msgs, _ := body["messages"].([]any)
	req.Len(msgs, 1)
}

func TestEndToEnd_Pending_User_Cannot_Join(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	admin := s.adminToken(t)
	aliceToken := s.approvedPlayer(t, admin, "alice")

	resp, body := s.postJSON(t, "/api/rooms", aliceToken, map[string]string{"name": "FPS Legends"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	roomID, _ := body["id"].(string)

	// Carol registered but was never approved; the connection itself is
	// allowed, joining is not
	s.register(t, "carol", "super-secret-pw")
	carolToken := s.login(t, "carol", "super-secret-pw")

	carol := client.New(client.Config{URL: s.chatURL(), Token: carolToken})
	req.NoError(carol.Connect())
	defer carol.Close()
	req.NoError(carol.Join(roomID))

	ev := waitEvent(t, carol, "error")
	req.Equal("pending_approval", ev.Code)
}

func TestEndToEnd_Unauthenticated_WS_Refused(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	c := client.New(client.Config{URL: s.chatURL(), Token: "garbage"})
	req.Error(c.Connect())
}

func TestEndToEnd_Join_Unknown_Room(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	admin := s.adminToken(t)
	aliceToken := s.approvedPlayer(t, admin, "alice")

	alice := client.New(client.Config{URL: s.chatURL(), Token: aliceToken})
	req.NoError(alice.Connect())
	defer alice.Close()
	req.NoError(alice.Join("no-such-room"))

	ev := waitEvent(t, alice, "error")
	req.Equal("not_found", ev.Code)
}

func TestEndToEnd_Disconnect_Notifies_Members(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	admin := s.adminToken(t)
	aliceToken := s.approvedPlayer(t, admin, "alice")
	bobToken := s.approvedPlayer(t, admin, "bob")

	resp, body := s.postJSON(t, "/api/rooms", aliceToken, map[string]string{"name": "FPS Legends"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	roomID := fmt.Sprint(body["id"])

	alice := client.New(client.Config{URL: s.chatURL(), Token: aliceToken})
	req.NoError(alice.Connect())
	defer alice.Close()
	req.NoError(alice.Join(roomID))
	waitEvent(t, alice, "joined")

	bob := client.New(client.Config{URL: s.chatURL(), Token: bobToken})
	req.NoError(bob.Connect())
	req.NoError(bob.Join(roomID))
	waitEvent(t, bob, "joined")
	waitEvent(t, alice, "member_joined")

	// Bob's transport drops without a clean leave
	bob.Close()

	left := waitEvent(t, alice, "member_left")
	req.Equal("bob", left.Username)
	req.Equal(roomID, left.Room)
}

func TestEndToEnd_Admin_Gate(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	admin := s.adminToken(t)
	aliceToken := s.approvedPlayer(t, admin, "alice")

	// A non-admin cannot touch the approval flag
	resp, _ := s.doJSON(t, http.MethodPatch, "/api/admin/users/someone/status", aliceToken,
		map[string]string{"status": "approved"})
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// The admin sees the pending queue
	s.register(t, "carol", "super-secret-pw")
	resp, body := s.doJSON(t, http.MethodGet, "/api/admin/users/pending", admin, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	users, _ := body["users"].([]any)
	req.Len(users, 1)
}
