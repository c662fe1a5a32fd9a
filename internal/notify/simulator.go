package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// WebhookSimulator stands in for the downstream consumers of notification
// events (mailer, CRM, payment provider, instructor calendar). It subscribes
// to every event subject and logs the notifications a real integration would
// send.
type WebhookSimulator struct {
	sub    *nats.Subscription
	logger *slog.Logger
}

// StartWebhookSimulator subscribes to "<base>.>" on the given connection.
func StartWebhookSimulator(conn *nats.Conn, subjectBase string, logger *slog.Logger) (*WebhookSimulator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sim := &WebhookSimulator{logger: logger}
	sub, err := conn.Subscribe(subjectBase+".>", sim.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s.>: %w", subjectBase, err)
	}
	sim.sub = sub

	logger.Info("webhook simulator listening", "subject", subjectBase+".>")
	return sim, nil
}

func (w *WebhookSimulator) handle(msg *nats.Msg) {
	var payload map[string]any
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		w.logger.Warn("webhook simulator: bad payload", "subject", msg.Subject, "error", err)
		return
	}

	var notifications []string
	switch Event(lastToken(msg.Subject)) {
	case EventClientCreated:
		notifications = []string{
			fmt.Sprintf("Welcome email sent to %v", payload["email"]),
			fmt.Sprintf("Client %v added to CRM", payload["name"]),
			"New client event tracked",
		}
	case EventOrderCreated:
		notifications = []string{
			fmt.Sprintf("Order confirmation sent to %v", payload["client_email"]),
			fmt.Sprintf("Payment link generated for $%v", payload["amount"]),
			"Instructor notified about new enrollment",
			"Calendar slots updated",
		}
	case EventEnquiryCreated:
		notifications = []string{
			fmt.Sprintf("Lead %v added to CRM", payload["name"]),
			fmt.Sprintf("Auto-response sent to %v", payload["email"]),
			"Sales team notified of new enquiry",
		}
	default:
		w.logger.Warn("webhook simulator: unknown event", "subject", msg.Subject)
		return
	}

	for _, n := range notifications {
		w.logger.Info("webhook notification", "subject", msg.Subject, "action", n)
	}
}

// Stop unsubscribes the simulator.
func (w *WebhookSimulator) Stop() error {
	if w.sub != nil {
		return w.sub.Unsubscribe()
	}
	return nil
}

func lastToken(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '.' {
			return subject[i+1:]
		}
	}
	return subject
}
