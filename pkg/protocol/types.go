// Package protocol defines the messages exchanged between a session and the
// native host. Every message is a JSON object discriminated by a "type" field,
// except the host's untyped request replies which decode as Response.
package protocol

import (
	"encoding/json"
	"time"
)

// Type is the value of the "type" discriminator.
type Type string

const (
	TypePageScraped  Type = "PAGE_SCRAPED"
	TypeChatUpdated  Type = "CHAT_UPDATED"
	TypeSessionSaved Type = "SESSION_SAVED"
	TypeCommand      Type = "COMMAND"
	TypeDomChanged   Type = "DOM_CHANGED"
	TypeError        Type = "ERROR"
	TypePing         Type = "PING"
	TypePong         Type = "PONG"
	TypeConnected    Type = "CONNECTED"
	TypeDisconnected Type = "DISCONNECTED"

	// TypeResponse is never written on the wire; it tags decoded host replies.
	TypeResponse Type = "RESPONSE"
)

// Message is implemented by every variant.
type Message interface {
	MessageType() Type
}

// Now returns the wire timestamp for t, in milliseconds since the epoch.
func Now(t time.Time) int64 {
	return t.UnixMilli()
}

type PageScraped struct {
	URL       string            `json:"url" yaml:"url"`
	Title     string            `json:"title" yaml:"title"`
	Content   string            `json:"content" yaml:"content"`
	Metadata  map[string]string `json:"metadata" yaml:"metadata"`
	Timestamp int64             `json:"timestamp" yaml:"timestamp"`
}

type ChatMessage struct {
	Role      string `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp int64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

type ChatUpdated struct {
	Messages []ChatMessage `json:"messages"`
}

type SessionSaved struct {
	SessionID    string        `json:"sessionId" yaml:"sessionId"`
	URL          string        `json:"url" yaml:"url"`
	StartTime    int64         `json:"startTime" yaml:"startTime"`
	LastActivity int64         `json:"lastActivity" yaml:"lastActivity"`
	Pages        []PageScraped `json:"pages" yaml:"pages"`
	ChatMessages []ChatMessage `json:"chatMessages" yaml:"chatMessages"`
}

// Command is an instruction from the host, e.g. {"action":"scrape"}.
type Command struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type DomChanged struct {
	URL       string         `json:"url"`
	Changes   []ChangeRecord `json:"changes"`
	Timestamp int64          `json:"timestamp"`
}

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Ping is the liveness probe. Action mirrors the host's request form so that
// hosts which only speak {action} requests answer it with a "pong" Response.
type Ping struct {
	ID        string `json:"id,omitempty"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

type Connected struct {
	Version string `json:"version"`
}

type Disconnected struct {
	Reason string `json:"reason"`
}

// Response is the host's reply to an action request.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (PageScraped) MessageType() Type  { return TypePageScraped }
func (ChatUpdated) MessageType() Type  { return TypeChatUpdated }
func (SessionSaved) MessageType() Type { return TypeSessionSaved }
func (Command) MessageType() Type      { return TypeCommand }
func (DomChanged) MessageType() Type   { return TypeDomChanged }
func (Error) MessageType() Type        { return TypeError }
func (Ping) MessageType() Type         { return TypePing }
func (Pong) MessageType() Type         { return TypePong }
func (Connected) MessageType() Type    { return TypeConnected }
func (Disconnected) MessageType() Type { return TypeDisconnected }
func (Response) MessageType() Type     { return TypeResponse }

// IsPong reports whether m acknowledges a liveness probe.
func IsPong(m Message) bool {
	switch v := m.(type) {
	case Pong:
		return true
	case Response:
		var data string
		return v.Success && json.Unmarshal(v.Data, &data) == nil && data == "pong"
	}
	return false
}
