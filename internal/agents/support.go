// Package agents houses the two conversational agents. Each one runs the
// same pipeline per query: resolve references against session memory,
// classify intent (LLM first, keyword fallback second), route to a data
// operation and record the exchange back into the session.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anbose/studiodesk/internal/intent"
	"github.com/anbose/studiodesk/internal/memory"
	"github.com/anbose/studiodesk/internal/models"
	"github.com/anbose/studiodesk/internal/notify"
	"github.com/anbose/studiodesk/internal/store"
)

const supportCapabilities = "I can help you with client searches, order status, class schedules, payments, and creating new orders. Please be more specific."

// SupportAgent answers customer support queries: client lookups, order
// status, order and client creation, class schedules and payment checks.
type SupportAgent struct {
	repo       store.Repository
	classifier *intent.Classifier
	sessions   *memory.Store
	resolver   *memory.Resolver
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewSupportAgent wires a support agent. The notifier may be a NoopNotifier.
func NewSupportAgent(repo store.Repository, classifier *intent.Classifier, sessions *memory.Store, notifier notify.Notifier, logger *slog.Logger) *SupportAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &SupportAgent{
		repo:       repo,
		classifier: classifier,
		sessions:   sessions,
		resolver:   memory.NewResolver(sessions),
		notifier:   notifier,
		logger:     logger,
	}
}

// HandleQuery runs the full pipeline. It never returns an error: every
// failure mode resolves to a textual response paired with a valid session id.
func (a *SupportAgent) HandleQuery(ctx context.Context, query, sessionID string) *models.QueryResult {
	resolved := a.resolver.Resolve(sessionID, query)
	if resolved != query {
		a.logger.Debug("resolved references", "session_id", sessionID, "resolved", resolved)
	}

	classification := a.classifier.Classify(ctx, models.AgentSupport, resolved, a.sessions.GetContext(sessionID))

	var response string
	if classification.Unknown() {
		response = a.HandleSpecificQueries(ctx, resolved)
	} else {
		response = a.route(ctx, classification, resolved)
	}

	extracted := mergeExtraction(classification.ExtractedData, resolved)
	id := a.sessions.StoreInteraction(sessionID, models.AgentSupport, query, response, extracted, classification.Intent)

	return &models.QueryResult{Response: response, SessionID: id}
}

// HandleSpecificQueries is the deterministic tier-2 path. It is used both as
// the classifier fallback and as a direct entry point for machine-built
// queries that need no conversational memory.
func (a *SupportAgent) HandleSpecificQueries(ctx context.Context, query string) string {
	m := intent.MatchSupport(query)
	if m == nil {
		return supportCapabilities
	}
	return a.route(ctx, m, query)
}

func (a *SupportAgent) route(ctx context.Context, c *models.Classification, query string) string {
	var (
		response string
		err      error
	)

	switch c.Intent {
	case models.IntentSearchClient:
		response, err = a.searchClients(ctx, query)
	case models.IntentOrderStatus:
		orderRef := c.ExtractedData["orderId"]
		if orderRef == "" {
			orderRef = intent.ExtractOrderID(query)
		}
		response, err = a.orderStatus(ctx, orderRef)
	case models.IntentCreateOrder:
		response, err = a.createOrder(ctx, c, query)
	case models.IntentCreateClient:
		response, err = a.createClient(ctx, c, query)
	case models.IntentWeeklyClasses:
		response, err = a.weeklyClasses(ctx)
	case models.IntentPaymentInfo:
		response, err = a.paymentInfo(ctx, query)
	default:
		return a.HandleSpecificQueries(ctx, query)
	}

	if err != nil {
		a.logger.Error("support operation failed", "intent", c.Intent, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return response
}

func (a *SupportAgent) searchClients(ctx context.Context, query string) (string, error) {
	filter := store.ClientFilter{}
	if email := extractEmail(query); email != "" {
		filter.Email = email
	} else if phone := extractPhone(query); phone != "" {
		filter.Phone = phone
	} else if name := extractName(query); name != "" {
		filter.Name = name
	}

	clients, err := a.repo.FindClients(ctx, filter, 10)
	if err != nil {
		return "", fmt.Errorf("client search: %w", err)
	}
	if len(clients) == 0 {
		return "No clients found matching your search.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d client(s):\n", len(clients))
	for _, c := range clients {
		status := "active"
		if !c.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(&b, "- %s (%s, %s, %s)", c.Name, c.Email, c.Phone, status)
		if len(c.EnrolledServices) > 0 {
			fmt.Fprintf(&b, " enrolled in: %s", strings.Join(c.EnrolledServices, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *SupportAgent) orderStatus(ctx context.Context, orderRef string) (string, error) {
	if orderRef == "" {
		return `Please provide an order number, for example "order #123".`, nil
	}

	order, err := a.repo.GetOrder(ctx, orderRef)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Order %s not found", orderRef), nil
	}
	if err != nil {
		return "", fmt.Errorf("order lookup: %w", err)
	}

	payment, err := a.repo.GetPaymentForOrder(ctx, order.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Order %s is %s with no payment record", orderRef, order.Status), nil
	}
	if err != nil {
		return "", fmt.Errorf("payment lookup: %w", err)
	}

	return fmt.Sprintf("Order %s is %s and payment is %s", orderRef, order.Status, payment.Status), nil
}

func (a *SupportAgent) weeklyClasses(ctx context.Context) (string, error) {
	classes, err := a.repo.WeeklyClasses(ctx)
	if err != nil {
		return "", fmt.Errorf("weekly classes: %w", err)
	}
	if len(classes) == 0 {
		return "No classes scheduled this week.", nil
	}

	var b strings.Builder
	b.WriteString("Classes this week:\n")
	for _, c := range classes {
		fmt.Fprintf(&b, "- %s with %s on %s (%s)\n",
			c.Name, c.Instructor, c.Date.Format("Mon Jan 2 15:04"), c.Status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *SupportAgent) paymentInfo(ctx context.Context, query string) (string, error) {
	if orderRef := intent.ExtractOrderID(query); orderRef != "" {
		return a.orderStatus(ctx, orderRef)
	}

	orders, err := a.repo.PendingOrders(ctx, 10)
	if err != nil {
		return "", fmt.Errorf("pending orders: %w", err)
	}
	if len(orders) == 0 {
		return "No pending payments.", nil
	}

	var b strings.Builder
	b.WriteString("Pending payments:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s: $%.2f\n", o.OrderRef, o.Amount)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *SupportAgent) createOrder(ctx context.Context, c *models.Classification, query string) (string, error) {
	serviceName := firstOf(c.ExtractedData, "serviceName", "service")
	if serviceName == "" {
		serviceName = extractServiceName(query)
	}

	identifier := firstOf(c.ExtractedData, "email", "clientEmail")
	if identifier == "" {
		identifier = extractClientIdentifier(query)
	}

	if serviceName == "" || identifier == "" {
		return "Please specify: 'Create an order for [Service Name] for client [Client Name/Email]'", nil
	}

	clientEmail := identifier
	if !strings.Contains(identifier, "@") {
		clients, err := a.repo.FindClients(ctx, store.ClientFilter{Name: identifier}, 1)
		if err != nil {
			return "", fmt.Errorf("client lookup: %w", err)
		}
		if len(clients) == 0 {
			return fmt.Sprintf("No client found named %q. Please provide the client's email address.", identifier), nil
		}
		clientEmail = clients[0].Email
	}
	if !validEmail(clientEmail) {
		return fmt.Sprintf("%q doesn't look like a valid email address. Please check and try again.", clientEmail), nil
	}

	serviceType := c.ExtractedData["serviceType"]
	if serviceType == "" {
		serviceType = "course"
	}

	created, err := a.repo.CreateOrder(ctx, clientEmail, serviceName, serviceType)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Order creation failed: %v", err), nil
	}
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	a.notifier.Publish(notify.EventOrderCreated, map[string]any{
		"order_ref":    created.Order.OrderRef,
		"client_email": clientEmail,
		"service_name": created.ServiceName,
		"amount":       created.Order.Amount,
	})

	return fmt.Sprintf("Order %s created: %s for %s ($%.2f). Status: %s.",
		created.Order.OrderRef, created.ServiceName, created.ClientName,
		created.Order.Amount, created.Order.Status), nil
}

func (a *SupportAgent) createClient(ctx context.Context, c *models.Classification, query string) (string, error) {
	name := firstOf(c.ExtractedData, "name", "clientName")
	if name == "" {
		name = extractName(query)
	}
	email := firstOf(c.ExtractedData, "email", "clientEmail")
	if email == "" {
		email = extractEmail(query)
	}
	phone := c.ExtractedData["phone"]
	if phone == "" {
		phone = extractPhone(query)
	}

	if name == "" || email == "" || phone == "" {
		return "Please specify: 'Create client [Name] with email [email] and phone [phone number]'", nil
	}
	if !validEmail(email) {
		return fmt.Sprintf("%q doesn't look like a valid email address. Please check and try again.", email), nil
	}
	if !validPhone(phone) {
		return fmt.Sprintf("%q doesn't look like a valid phone number. Please use 10-15 digits, optionally starting with +.", phone), nil
	}

	client := &store.Client{Name: name, Email: email, Phone: phone}
	err := a.repo.CreateClient(ctx, client)
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Sprintf("A client with email %s already exists.", email), nil
	}
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	a.notifier.Publish(notify.EventClientCreated, map[string]any{
		"client_id": client.ID,
		"email":     client.Email,
		"name":      client.Name,
	})

	return fmt.Sprintf("Client %s created (%s).", name, email), nil
}

// mergeExtraction backfills entities the classifier missed from the resolved
// query text, so session context stays useful on the fallback path too.
func mergeExtraction(extracted map[string]string, query string) map[string]string {
	out := make(map[string]string, len(extracted)+2)
	for k, v := range extracted {
		out[k] = v
	}
	if out["email"] == "" && out["clientEmail"] == "" {
		if email := extractEmail(query); email != "" {
			out["email"] = email
		}
	}
	if out["orderId"] == "" {
		if id := intent.ExtractOrderID(query); id != "" {
			out["orderId"] = id
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
