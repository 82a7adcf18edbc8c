package ws

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const messagesStream = "messages_stream"

// Engine applies each validated inbound action to the state store and
// the hub, then fans the resulting event out. It is the only writer of
// both structures.
type Engine struct {
	hub    *Hub
	store  *StateStore
	rdc    *redis.Client // nil: no archiving, no cross-instance fan-out
	fanout *subscriptionManager
	now    func() time.Time
}

func NewEngine(hub *Hub, store *StateStore, rdc *redis.Client) *Engine {
	e := &Engine{
		hub:   hub,
		store: store,
		rdc:   rdc,
		now:   time.Now,
	}
	if rdc != nil {
		e.fanout = newSubscriptionManager(rdc, hub)
	}
	return e
}

// ─────────────────────────────── chat ────────────────────────────────────────

func (e *Engine) JoinChannel(ctx context.Context, c *ConnContext, req JoinChannelRequest) error {
	e.join(chatRoomKey(req.ChannelID), c.Conn)
	return nil
}

// SendMessage is a stateless relay: the whole channel, sender
// included, gets the message with a server-assigned timestamp. The
// durable write happens out of band via the message stream.
func (e *Engine) SendMessage(ctx context.Context, c *ConnContext, req SendMessageRequest) error {
	body := ReceiveMessageBody{
		User:      req.User,
		ChannelID: req.ChannelID,
		Message:   req.Message,
		CreatedAt: e.now().UTC(),
	}
	e.broadcast(ctx, chatRoomKey(req.ChannelID), EvtReceiveMessage, body, "")
	e.archive(ctx, body)
	return nil
}

// ──────────────────────────── watch party ────────────────────────────────────

// WatchJoin registers the connection in the room and, when a session
// already exists, unicasts the current state to the joiner only.
func (e *Engine) WatchJoin(ctx context.Context, c *ConnContext, req WatchRoomRequest) error {
	e.join(watchRoomKey(req.RoomID), c.Conn)
	if st, ok := e.store.Get(req.RoomID); ok {
		_ = c.Conn.WriteJSON(outEnvelope{Event: EvtWpSync, Body: st})
	}
	return nil
}

func (e *Engine) WatchURL(ctx context.Context, c *ConnContext, req WatchURLRequest) error {
	e.store.SetURL(req.RoomID, req.URL)
	e.broadcast(ctx, watchRoomKey(req.RoomID), EvtWpURL, WatchURLBody{URL: req.URL}, c.Conn.ID())
	return nil
}

func (e *Engine) WatchPlay(ctx context.Context, c *ConnContext, req WatchRoomRequest) error {
	e.store.SetPlaying(req.RoomID, true)
	e.broadcast(ctx, watchRoomKey(req.RoomID), EvtWpPlay, nil, c.Conn.ID())
	return nil
}

func (e *Engine) WatchPause(ctx context.Context, c *ConnContext, req WatchRoomRequest) error {
	e.store.SetPlaying(req.RoomID, false)
	e.broadcast(ctx, watchRoomKey(req.RoomID), EvtWpPause, nil, c.Conn.ID())
	return nil
}

func (e *Engine) WatchSeek(ctx context.Context, c *ConnContext, req WatchSeekRequest) error {
	e.store.SetPosition(req.RoomID, req.Position)
	e.broadcast(ctx, watchRoomKey(req.RoomID), EvtWpSeek, WatchSeekBody{Position: req.Position}, c.Conn.ID())
	return nil
}

// ─────────────────────────────── lifecycle ───────────────────────────────────

// Disconnect is the only cancellation signal: the connection leaves
// every room it was in.
func (e *Engine) Disconnect(c Conn) {
	left := e.hub.Disconnect(c)
	if e.fanout != nil {
		for _, roomKey := range left {
			e.fanout.Unsubscribe(roomKey)
		}
	}
}

// ─────────────────────────────── helpers ─────────────────────────────────────

func (e *Engine) join(roomKey string, c Conn) {
	// Re-joins are side-effect-free: only a genuinely new membership
	// takes a fan-out reference, mirroring the single decrement a
	// later disconnect will make.
	if e.hub.Join(roomKey, c) && e.fanout != nil {
		e.fanout.Subscribe(roomKey)
	}
}

func (e *Engine) broadcast(ctx context.Context, roomKey, event string, body any, exceptID string) {
	env := outEnvelope{Event: event, Body: body}
	e.hub.Broadcast(roomKey, env, exceptID)
	if e.fanout != nil {
		e.fanout.Publish(ctx, roomKey, env)
	}
}

func (e *Engine) archive(ctx context.Context, msg ReceiveMessageBody) {
	if e.rdc == nil {
		return
	}
	err := e.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: messagesStream,
		Values: []any{
			"user", msg.User,
			"cid", msg.ChannelID,
			"msg", msg.Message,
			"at", strconv.FormatInt(msg.CreatedAt.Unix(), 10),
		},
	}).Err()
	if err != nil {
		zap.L().Warn("ws.archive", zap.Error(err))
	}
}
