package notify

import (
	"context"
)

// Message is an email to deliver through a provider
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	// Text is the plain text alternative
	Text string
	// RefID identifies the message for deduplication by the provider
	RefID string
}

// Sender is the interface for sending emails via an external provider
type Sender interface {
	// Send delivers msg and returns the provider's message id
	Send(ctx context.Context, msg Message) (string, error)
}
