package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Channels published by the claims service and its worker.
const (
	ChannelNotifications = "claims.notifications"
	ChannelClaimEvents   = "claims.events"
)

// Message is the envelope published to broker channels.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
