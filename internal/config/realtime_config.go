package config

import "time"

const (
	// WebSocket transport
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBufferSize = 256

	// Typing indicators
	// Clients debounce their own stop_typing (recommended: 1s of
	// inactivity). TypingExpiry is the server-side backstop that clears
	// a stuck indicator if a client vanishes without emitting it.
	ClientTypingDebounce = 1 * time.Second
	TypingExpiry         = 5 * time.Second

	// HTTP server
	ReadTimeout    = 10 * time.Second
	WriteTimeout   = 10 * time.Second
	MaxHeaderBytes = 1 << 20

	// Auth
	TokenIssuer = "unimarket-api"
)
