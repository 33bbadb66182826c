package chathub

import "unimarket/backend/internal/models"

// Client is the interface for one authenticated realtime connection.
// It abstracts the underlying transport, allowing the hub and the tests
// to manage connections uniformly.
type Client interface {
	// GetUserID returns the identity the connection authenticated as.
	GetUserID() string

	// GetSendChannel returns the channel through which the hub delivers
	// events to this specific connection. It is a send-only channel.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps, which handle
	// incoming and outgoing events.
	Run()
	// Close shuts down the client's outgoing channel exactly once,
	// stopping its write pump.
	Close()
}

// InboundEvent pairs a client-issued event with its origin connection,
// so the hub knows who asked to join a room or started typing.
type InboundEvent struct {
	Client Client
	Event  models.Event
}
