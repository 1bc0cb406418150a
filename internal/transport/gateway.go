package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"notes-bot/internal/config"
	"notes-bot/internal/interaction"
	"notes-bot/internal/permission"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	reconnectBackoff = 5 * time.Second
	maxMessageSize   = 1 << 20
)

// Gateway opcodes.
const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatAck = 11
)

// Interaction wire types.
const (
	interactionCommand      = 2
	interactionComponent    = 3
	interactionAutocomplete = 4
	interactionModalSubmit  = 5
)

// The administrator bit of the member permissions bitfield.
const permissionAdministrator = 1 << 3

// EventHandler receives each classified inbound event. Handlers run on their
// own goroutine, so a slow store or REST call never stalls the read loop.
type EventHandler func(ctx context.Context, ev interaction.Event, r interaction.Responder)

// Gateway maintains the websocket connection to the platform's event stream
// and turns interaction payloads into typed events.
type Gateway struct {
	url     string
	token   string
	rest    *Client
	handler EventHandler

	writeMu sync.Mutex
	conn    *websocket.Conn

	// Last dispatch sequence number, echoed in heartbeats. Written by the
	// read loop and read by the heartbeat goroutine.
	seq atomic.Int64
}

func NewGateway(rest *Client, handler EventHandler) *Gateway {
	return &Gateway{
		url:     config.Conf.GatewayURL,
		token:   config.Conf.Token,
		rest:    rest,
		handler: handler,
	}
}

// Run connects and keeps reconnecting until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		err := g.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Gateway connection lost: %v, reconnecting in %v", err, reconnectBackoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

type gatewayPayload struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Seq  int64           `json:"s,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

func (g *Gateway) writeJSON(v interface{}) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return g.conn.WriteJSON(v)
}

func (g *Gateway) connectOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	g.conn = conn
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)

	// Close the socket when the context ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// The server speaks first with a hello carrying the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}

	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}
	heartbeatInterval := time.Duration(helloData.HeartbeatInterval) * time.Millisecond
	if heartbeatInterval <= 0 {
		heartbeatInterval = 41250 * time.Millisecond
	}

	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.token,
			"intents": 1, // guild events only; interactions need nothing more
			"properties": map[string]string{
				"os":      "linux",
				"browser": "notes-bot",
				"device":  "notes-bot",
			},
		},
	}
	if err := g.writeJSON(identify); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	go g.heartbeatLoop(ctx, done, heartbeatInterval)

	for {
		conn.SetReadDeadline(time.Now().Add(2 * heartbeatInterval))
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("read payload: %w", err)
		}

		switch payload.Op {
		case opDispatch:
			if payload.Seq != 0 {
				g.seq.Store(payload.Seq)
			}
			if payload.Type == "INTERACTION_CREATE" {
				g.dispatchInteraction(ctx, payload.Data)
			}
		case opHeartbeat:
			if err := g.writeJSON(map[string]interface{}{"op": opHeartbeat, "d": g.seq.Load()}); err != nil {
				return fmt.Errorf("heartbeat reply: %w", err)
			}
		case opHeartbeatAck:
			// nothing to do
		}
	}
}

func (g *Gateway) heartbeatLoop(ctx context.Context, done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := g.writeJSON(map[string]interface{}{"op": opHeartbeat, "d": g.seq.Load()}); err != nil {
				log.Printf("Error sending gateway heartbeat: %v", err)
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Wire shapes for INTERACTION_CREATE.

type wireUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type wireMember struct {
	User        wireUser `json:"user"`
	Roles       []string `json:"roles"`
	Permissions string   `json:"permissions"`
}

type wireOption struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value"`
	Focused bool            `json:"focused"`
	Options []wireOption    `json:"options"`
}

type wireComponent struct {
	CustomID   string          `json:"custom_id"`
	Value      string          `json:"value"`
	Components []wireComponent `json:"components"`
}

type wireInteraction struct {
	ID        string      `json:"id"`
	Token     string      `json:"token"`
	Type      int         `json:"type"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	Member    *wireMember `json:"member"`
	Data      struct {
		Name       string          `json:"name"`
		CustomID   string          `json:"custom_id"`
		Options    []wireOption    `json:"options"`
		Components []wireComponent `json:"components"`
	} `json:"data"`
}

// The option type tag for a subcommand.
const optionSubcommand = 1

func optionValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Numeric and boolean values come back as their literal text.
	return string(raw)
}

func flattenOptions(opts []wireOption) (sub string, values map[string]string) {
	values = make(map[string]string)
	if len(opts) == 1 && opts[0].Type == optionSubcommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		values[o.Name] = optionValue(o.Value)
	}
	return sub, values
}

func focusedOption(opts []wireOption) (name, partial string) {
	for _, o := range opts {
		if o.Focused {
			return o.Name, optionValue(o.Value)
		}
		if len(o.Options) > 0 {
			if n, p := focusedOption(o.Options); n != "" {
				return n, p
			}
		}
	}
	return "", ""
}

func modalFields(rows []wireComponent) map[string]string {
	fields := make(map[string]string)
	for _, row := range rows {
		for _, c := range row.Components {
			if c.CustomID != "" {
				fields[c.CustomID] = c.Value
			}
		}
	}
	return fields
}

func (g *Gateway) buildActor(ctx context.Context, w *wireInteraction) permission.Actor {
	actor := permission.Actor{}
	if w.Member == nil {
		return actor
	}
	actor.ID = w.Member.User.ID
	actor.Username = w.Member.User.Username
	actor.RoleIDs = w.Member.Roles

	if bits, err := strconv.ParseUint(w.Member.Permissions, 10, 64); err == nil {
		actor.IsAdmin = bits&permissionAdministrator != 0
	}

	ownerID, err := g.rest.GuildOwnerID(ctx, w.GuildID)
	if err != nil {
		// Owner still passes the admin check; log and move on.
		log.Printf("Failed to resolve owner for guild %s: %v", w.GuildID, err)
	}
	actor.IsOwner = ownerID != "" && ownerID == actor.ID

	return actor
}

// dispatchInteraction classifies one interaction payload and hands it to the
// handler on its own goroutine.
func (g *Gateway) dispatchInteraction(ctx context.Context, data json.RawMessage) {
	var w wireInteraction
	if err := json.Unmarshal(data, &w); err != nil {
		log.Printf("Error decoding interaction payload: %v", err)
		return
	}
	if w.GuildID == "" || w.Member == nil {
		// Direct-message interactions are not supported.
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic handling interaction %s: %v", w.ID, r)
			}
		}()

		actor := g.buildActor(ctx, &w)
		responder := &interactionResponder{rest: g.rest, id: w.ID, token: w.Token}

		var ev interaction.Event
		switch w.Type {
		case interactionCommand:
			sub, values := flattenOptions(w.Data.Options)
			ev = interaction.NewCommand(w.GuildID, actor, w.Data.Name, sub, values)
		case interactionAutocomplete:
			name, partial := focusedOption(w.Data.Options)
			ev = interaction.NewAutocomplete(w.GuildID, actor, w.Data.Name, name, partial)
		case interactionModalSubmit:
			ev = interaction.NewModalSubmit(w.GuildID, actor, w.Data.CustomID, modalFields(w.Data.Components))
		case interactionComponent:
			ev = interaction.NewButton(w.GuildID, actor, w.Data.CustomID)
		default:
			return
		}

		g.handler(ctx, ev, responder)
	}()
}

type interactionResponder struct {
	rest  *Client
	id    string
	token string
}

func (r *interactionResponder) Reply(ctx context.Context, content string, private bool) error {
	return r.rest.RespondMessage(ctx, r.id, r.token, content, private)
}

func (r *interactionResponder) ShowModal(ctx context.Context, modal interaction.Modal) error {
	return r.rest.RespondModal(ctx, r.id, r.token, modal)
}

func (r *interactionResponder) Choices(ctx context.Context, choices []interaction.Choice) error {
	return r.rest.RespondChoices(ctx, r.id, r.token, choices)
}
