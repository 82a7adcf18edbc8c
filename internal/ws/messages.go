package ws

import (
	"encoding/json"
	"time"
)

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "wp:seek"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// outEnvelope is the outbound counterpart; Body is marshalled in place.
type outEnvelope struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// Inbound events.
const (
	EvtJoinChannel = "join_channel"
	EvtSendMessage = "send_message"
	EvtWpJoin      = "wp:join"
	EvtWpURL       = "wp:url"
	EvtWpPlay      = "wp:play"
	EvtWpPause     = "wp:pause"
	EvtWpSeek      = "wp:seek"
)

// Outbound events.
const (
	EvtReceiveMessage = "receive_message"
	EvtWpSync         = "wp:sync"
)

// ──────────────────────────── Request / Broadcast DTOs ───────────────────────

type JoinChannelRequest struct {
	ChannelID string `json:"channelId"`
}

type SendMessageRequest struct {
	User      string `json:"user"      validate:"required"`
	ChannelID string `json:"channelId" validate:"required"`
	Message   string `json:"message"   validate:"required"`
}

// ReceiveMessageBody echoes a chat message to the whole channel,
// sender included. CreatedAt is assigned by the server, never trusted
// from the client.
type ReceiveMessageBody struct {
	User      string    `json:"user"`
	ChannelID string    `json:"channelId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type WatchRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type WatchURLRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	URL    string `json:"url"    validate:"required"`
}

type WatchSeekRequest struct {
	RoomID   string  `json:"roomId" validate:"required"`
	Position float64 `json:"position"`
}

type WatchURLBody struct {
	URL string `json:"url"`
}

type WatchSeekBody struct {
	Position float64 `json:"position"`
}

// Chat channels and watch parties live in disjoint room-key spaces.
func chatRoomKey(channelID string) string { return "ch_" + channelID }
func watchRoomKey(roomID string) string   { return "wp_" + roomID }
