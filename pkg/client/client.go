// Package client is the Go client for the Gamerz real-time channel. It
// owns the client half of the connection lifecycle: dial, authenticate,
// and on a transport drop reconnect with exponential backoff. The
// server never restores memberships across a reconnect, so the client
// re-issues a join for every room it is tracking.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is one server push or reply, decoded loosely so callers can
// switch on Type.
type Event struct {
	Type      string    `json:"type"`
	Room      string    `json:"room,omitempty"`
	ID        string    `json:"id,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content,omitempty"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	Count     int       `json:"count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrRetriesExhausted is the terminal error after the reconnect budget
// runs out.
var ErrRetriesExhausted = errors.New("reconnect retries exhausted")

var ErrClosed = errors.New("client closed")

type Config struct {
	// URL of the chat endpoint, e.g. ws://host:8080/api/ws/chat.
	URL string
	// Token is the JWT obtained from the login endpoint.
	Token string

	// Reconnect policy. Delay doubles from BackoffBase up to BackoffMax;
	// MaxRetries consecutive failures is terminal.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxRetries  int

	// EventBuffer is the capacity of the Events channel. When the caller
	// falls behind, pushes are dropped, mirroring the server's
	// best-effort delivery.
	EventBuffer int
}

func (c *Config) withDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
}

type Client struct {
	cfg    Config
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[string]struct{}
	closed bool
	err    error
}

func New(cfg Config) *Client {
	cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// Connect dials the server and starts the session loop. It returns once
// the first connection is established; reconnects happen in the
// background afterwards.
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.run()
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

// run reads events until the transport drops, then drives the reconnect
// policy. Terminal exits close the Events channel.
func (c *Client) run() {
	defer close(c.events)
	for {
		c.readLoop()

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if err := c.reconnect(); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			log.Warn().Err(err).Str("module", "client").Msg("session terminated")
			return
		}
	}
}

func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad server frame")
			continue
		}
		select {
		case c.events <- ev:
		default:
			log.Warn().Str("module", "client").Str("type", ev.Type).Msg("event dropped, consumer too slow")
		}
	}
}

// reconnect retries the dial with doubling delay and, on success,
// re-issues joins for every tracked room.
func (c *Client) reconnect() error {
	delay := c.cfg.BackoffBase
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-c.done:
			return ErrClosed
		case <-time.After(delay):
		}

		conn, err := c.dial()
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Int("attempt", attempt).Msg("reconnect failed")
			delay *= 2
			if delay > c.cfg.BackoffMax {
				delay = c.cfg.BackoffMax
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		rooms := make([]string, 0, len(c.rooms))
		for room := range c.rooms {
			rooms = append(rooms, room)
		}
		c.mu.Unlock()

		log.Info().Str("module", "client").Int("rooms", len(rooms)).Msg("reconnected")
		for _, room := range rooms {
			if err := c.writeJSON(map[string]string{"type": "join", "room": room}); err != nil {
				log.Warn().Err(err).Str("module", "client").Str("room", room).Msg("rejoin failed")
			}
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, c.cfg.MaxRetries)
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(v)
}

// Join subscribes to a room and tracks it for rejoin-after-reconnect.
func (c *Client) Join(room string) error {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	return c.writeJSON(map[string]string{"type": "join", "room": room})
}

// Leave unsubscribes and stops tracking the room.
func (c *Client) Leave(room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	return c.writeJSON(map[string]string{"type": "leave", "room": room})
}

func (c *Client) Send(room, content string) error {
	return c.writeJSON(map[string]string{"type": "send", "room": room, "content": content})
}

// Events delivers server pushes and replies. The channel closes when
// the session ends, either via Close or exhausted retries (see Err).
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err reports why the session terminated, if it terminated abnormally.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	close(c.done)
	if conn != nil {
		_ = conn.Close()
	}
}
