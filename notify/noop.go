package notify

import (
	"context"
	"log/slog"
)

// NoopSender logs messages but does not deliver them
type NoopSender struct{}

// NewNoopSender creates a new NoopSender
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email and returns its RefID as message id
func (s *NoopSender) Send(_ context.Context, msg Message) (string, error) {
	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject, "ref_id", msg.RefID)
	return "noop-" + msg.RefID, nil
}
