// Package sse implements the per-tenant event stream: a registry of live
// dashboard subscribers with fan-out of typed, framed events. Delivery is
// at-most-once and fire-and-forget; events emitted while nobody is
// subscribed are lost by design.
package sse

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates stream frames.
type EventType string

const (
	// EventConnected is the synthetic first frame on every subscription.
	EventConnected EventType = "connected"
	// EventHeartbeat is the periodic keep-alive frame.
	EventHeartbeat EventType = "heartbeat"
	// EventConversationUpdate carries a conversation change notification.
	EventConversationUpdate EventType = "conversation_update"
)

// Event is one stream frame before wire framing.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ConversationUpdate is the payload of an EventConversationUpdate frame.
type ConversationUpdate struct {
	// Type names the concrete change: new_message, new_thread_reply,
	// reaction_added, reaction_removed, message_updated.
	Type                 string `json:"type"`
	ConversationID       string `json:"conversationId"`
	ParentConversationID string `json:"parentConversationId,omitempty"`
	ChannelID            string `json:"channelId,omitempty"`
	Content              string `json:"content,omitempty"`
	UserName             string `json:"userName,omitempty"`
	Timestamp            string `json:"timestamp,omitempty"`
}

// NewConnectedEvent builds the synthetic subscription-opened frame.
func NewConnectedEvent() Event {
	return Event{Type: EventConnected, Timestamp: time.Now().UTC()}
}

// NewHeartbeatEvent builds a keep-alive frame.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now().UTC()}
}

// NewConversationUpdateEvent builds a conversation change frame.
func NewConversationUpdateEvent(update ConversationUpdate) Event {
	return Event{Type: EventConversationUpdate, Timestamp: time.Now().UTC(), Data: update}
}

// Frame serializes the event as a text/event-stream data frame.
func (e Event) Frame() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}
