package models

// AgentType identifies which conversational agent recorded an interaction.
type AgentType string

const (
	AgentSupport   AgentType = "support"
	AgentDashboard AgentType = "dashboard"
)

// Support agent intents
const (
	IntentSearchClient  = "search_client"
	IntentOrderStatus   = "order_status"
	IntentCreateOrder   = "create_order"
	IntentCreateClient  = "create_client"
	IntentWeeklyClasses = "weekly_classes"
	IntentPaymentInfo   = "payment_info"
)

// Dashboard agent intents
const (
	IntentRevenue             = "revenue"
	IntentOutstandingPayments = "outstanding_payments"
	IntentEnrollment          = "enrollment"
	IntentAttendance          = "attendance"
	IntentClients             = "clients"
	IntentDashboard           = "dashboard"
)

// IntentUnknown is shared by both agents and always falls through to the
// deterministic keyword matcher.
const IntentUnknown = "unknown"

// Classification is the structured guess produced by the intent classifier.
// ExtractedData values are coerced to strings at parse time so downstream
// consumers (session context folding, routing) never see raw JSON scalars.
type Classification struct {
	Intent          string            `json:"intent"`
	ExtractedData   map[string]string `json:"extracted_data,omitempty"`
	Period          string            `json:"period,omitempty"`
	TranslatedQuery string            `json:"translated_query,omitempty"`
}

// Unknown reports whether the classification carries no usable intent.
func (c *Classification) Unknown() bool {
	return c == nil || c.Intent == "" || c.Intent == IntentUnknown
}

// QueryResult is the caller-visible contract of an agent query: the caller
// always gets an answer and a session handle, never an error.
type QueryResult struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}
