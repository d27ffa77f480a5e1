package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/roessland/coachsync/bridge"
)

// mdRenderer escapes raw HTML in the template input
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var expiryTemplate = template.Must(template.New("expiry").Parse(`Hi,

Your TrainerRoad connection in **{{.AppName}}** stopped working on {{.When}}.
TrainerRoad no longer accepts the saved session, so workouts can't be read until you reconnect.

Reconnect with:

    {{.ReconnectHint}}

Your password is never stored; only the session cookies from your last login are kept.
`))

type expiryData struct {
	AppName       string
	When          string
	ReconnectHint string
}

// ExpiryNotifier emails a principal when their stored session expires
type ExpiryNotifier struct {
	sender        Sender
	appName       string
	reconnectHint string
	logger        *slog.Logger
}

// NewExpiryNotifier creates a notifier sending through sender
func NewExpiryNotifier(sender Sender, appName, reconnectHint string, logger *slog.Logger) *ExpiryNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryNotifier{
		sender:        sender,
		appName:       appName,
		reconnectHint: reconnectHint,
		logger:        logger,
	}
}

// SessionExpired sends the expiry email. Principals without an address are skipped.
func (n *ExpiryNotifier) SessionExpired(ctx context.Context, p bridge.Principal) error {
	if strings.TrimSpace(p.Email) == "" {
		n.logger.Debug("expiry_notification_skipped", "user_id", p.ID, "reason", "no email")
		return nil
	}

	msg, err := n.render(p, time.Now().UTC())
	if err != nil {
		return err
	}

	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send expiry notification: %w", err)
	}
	n.logger.Info("expiry_notification_sent", "user_id", p.ID, "message_id", id)
	return nil
}

// render builds the markdown body and its HTML rendering
func (n *ExpiryNotifier) render(p bridge.Principal, at time.Time) (Message, error) {
	var text bytes.Buffer
	err := expiryTemplate.Execute(&text, expiryData{
		AppName:       n.appName,
		When:          at.Format("2 January 2006 15:04 MST"),
		ReconnectHint: n.reconnectHint,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render expiry template: %w", err)
	}

	var html bytes.Buffer
	if err := mdRenderer.Convert(text.Bytes(), &html); err != nil {
		return Message{}, fmt.Errorf("failed to render expiry markdown: %w", err)
	}

	return Message{
		To:      []string{p.Email},
		Subject: "Your TrainerRoad connection needs attention",
		HTML:    html.String(),
		Text:    text.String(),
		RefID:   uuid.New().String(),
	}, nil
}
