// Package notify publishes best-effort notification events for side effects
// like welcome emails and order confirmations. Publishing never blocks or
// fails the primary operation; failures are only logged.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event identifies a notification kind.
type Event string

const (
	EventClientCreated  Event = "client-created"
	EventOrderCreated   Event = "order-created"
	EventEnquiryCreated Event = "enquiry-created"
)

// Notifier is the fire-and-forget notification contract.
type Notifier interface {
	Publish(event Event, payload any)
}

// NATSNotifier publishes events as JSON messages on NATS subjects.
type NATSNotifier struct {
	conn        *nats.Conn
	subjectBase string
	logger      *slog.Logger
}

// NewNATSNotifier connects to NATS. Subjects are "<base>.<event>".
func NewNATSNotifier(url, subjectBase, serviceName string, timeout time.Duration, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name(serviceName),
		nats.Timeout(timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", url)

	return &NATSNotifier{conn: conn, subjectBase: subjectBase, logger: logger}, nil
}

// Publish sends the event. Marshal or transport failures are logged and
// swallowed so the calling operation succeeds regardless.
func (n *NATSNotifier) Publish(event Event, payload any) {
	subject := fmt.Sprintf("%s.%s", n.subjectBase, event)

	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal notification payload", "event", event, "error", err)
		return
	}

	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error("failed to publish notification", "subject", subject, "error", err)
		return
	}

	n.logger.Info("notification published", "subject", subject)
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
		n.logger.Info("NATS connection closed")
	}
	return nil
}

// Conn exposes the underlying connection for subscribers.
func (n *NATSNotifier) Conn() *nats.Conn {
	return n.conn
}

// NoopNotifier discards all events. Used when NATS is not configured and in
// tests.
type NoopNotifier struct{}

func (NoopNotifier) Publish(Event, any) {}
