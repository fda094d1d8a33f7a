// Package notify delivers call events (invites, recording, hang-up) to the
// websocket connections of the users involved. Events are fire-and-forget:
// a user with no open connection simply misses them.
package notify

import (
	"context"
	"time"
)

type EventType string

const (
	EventCallInvite       EventType = "call.invite"
	EventRecordingStarted EventType = "call.recording_started"
	EventCallEnded        EventType = "call.ended"
)

// Event is what a connected client receives.
type Event struct {
	Type     EventType `json:"type"`
	RoomName string    `json:"roomName"`
	From     string    `json:"from"`
	To       []uint    `json:"to"`
	At       time.Time `json:"at"`
}

// ClientEvent is the form written to websocket clients. Recipients are left
// out so a client never learns other users' ids.
type ClientEvent struct {
	Type     EventType `json:"type"`
	RoomName string    `json:"roomName"`
	From     string    `json:"from"`
	At       time.Time `json:"at"`
}

func (e Event) ForClient() ClientEvent {
	return ClientEvent{Type: e.Type, RoomName: e.RoomName, From: e.From, At: e.At}
}

// Publisher hands an event to whoever delivers it.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
