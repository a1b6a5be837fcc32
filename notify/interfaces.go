package notify

import (
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// Sender delivers one plain-text email.
type Sender interface {
	// Send validates msg and hands it to the transport. Invalid messages
	// never reach the transport.
	Send(ctx context.Context, msg Message) (*Receipt, error)
}
