package config

import "time"

const (
	// Call events
	EventsChannel    = "callgate:events"
	EventBufferSize  = 64
	ClientBufferSize = 16

	// Websocket
	WSWriteWait      = 10 * time.Second
	WSPongWait       = 60 * time.Second
	WSPingPeriod     = (WSPongWait * 9) / 10
	WSMaxMessageSize = 512

	// HTTP server
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 5 * time.Second
	MaxHeaderBytes  = 1 << 20
)
