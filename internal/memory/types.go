package memory

import (
	"context"
	"time"

	"github.com/anbose/studiodesk/internal/models"
)

// Interaction is an immutable record of one query/response exchange.
type Interaction struct {
	ID            string            `json:"id"`
	SessionID     string            `json:"session_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Query         string            `json:"query"` // raw, pre-resolution
	Response      string            `json:"response"`
	ExtractedData map[string]string `json:"extracted_data,omitempty"`
	Intent        string            `json:"intent,omitempty"`
	AgentType     models.AgentType  `json:"agent_type"`
}

// ClientContext remembers the last client entity referenced in a session.
type ClientContext struct {
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	LastSearchedAt time.Time `json:"last_searched_at"`
}

// ServiceContext remembers the last service or order referenced in a session.
type ServiceContext struct {
	ServiceName       string    `json:"service_name,omitempty"`
	ServiceType       string    `json:"service_type,omitempty"`
	OrderID           string    `json:"order_id,omitempty"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// Session is one bounded-lifetime conversational context. Access is guarded
// by the owning Store's lock; sessions handed out of the store are copies.
type Session struct {
	ID             string          `json:"id"`
	ClientContext  *ClientContext  `json:"client_context,omitempty"`
	ServiceContext *ServiceContext `json:"service_context,omitempty"`
	Interactions   []Interaction   `json:"interactions"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActiveAt   time.Time       `json:"last_active_at"`
}

// SessionStats summarizes a session for the management API.
type SessionStats struct {
	SessionID         string    `json:"session_id"`
	TotalInteractions int       `json:"total_interactions"`
	HasClientContext  bool      `json:"has_client_context"`
	HasServiceContext bool      `json:"has_service_context"`
	CreatedAt         time.Time `json:"created_at"`
	LastActiveAt      time.Time `json:"last_active_at"`
}

// Snapshotter receives best-effort copies of sessions as they change.
// Implementations must not assume every mutation produces a snapshot; the
// store fires these asynchronously and only logs failures.
type Snapshotter interface {
	// Save persists a session snapshot.
	Save(ctx context.Context, session *Session) error

	// Delete removes a persisted snapshot.
	Delete(ctx context.Context, sessionID string) error
}
