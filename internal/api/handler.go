// Package api provides the HTTP surface over the two agents and the
// session-management endpoints of the memory store.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/anbose/studiodesk/internal/agents"
	"github.com/anbose/studiodesk/internal/memory"
)

// Handler holds the HTTP dependencies.
type Handler struct {
	support   *agents.SupportAgent
	dashboard *agents.DashboardAgent
	sessions  *memory.Store
}

// NewHandler creates a new Handler.
func NewHandler(support *agents.SupportAgent, dashboard *agents.DashboardAgent, sessions *memory.Store) *Handler {
	return &Handler{support: support, dashboard: dashboard, sessions: sessions}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/health"))

	r.Route("/api/agents/support", func(r chi.Router) {
		r.Post("/query", h.supportQuery)
		r.Post("/orders/create", h.createOrder)
		r.Get("/classes/weekly", h.weeklyClasses)
		r.Get("/orders/{orderID}/status", h.orderStatus)
		h.sessionRoutes(r)
	})

	r.Route("/api/agents/dashboard", func(r chi.Router) {
		r.Post("/query", h.dashboardQuery)
		r.Get("/summary", h.dashboardSummary)
		r.Get("/courses/top-enrollment", h.topEnrollments)
		r.Get("/clients/courses/completion-rates", h.completionRates)
		r.Get("/attendance", h.attendanceStats)
		r.Get("/attendance/{className}", h.attendanceByClass)
		r.Get("/clients/inactive", h.inactiveClients)
		r.Get("/clients/active", h.activeClients)
		r.Get("/clients/birthday-reminder", h.birthdayReminders)
		r.Get("/clients/new-this-month", h.newClients)
		h.sessionRoutes(r)
	})

	return r
}

func (h *Handler) sessionRoutes(r chi.Router) {
	r.Post("/memory/sessions/new", h.createSession)
	r.Get("/memory/sessions", h.listSessions)
	r.Get("/memory/sessions/{sessionID}", h.sessionContext)
	r.Delete("/memory/sessions/{sessionID}", h.clearSession)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Success   bool   `json:"success"`
	Data      string `json:"data"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) supportQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.support.HandleQuery(r.Context(), req.Query, req.SessionID)
	JSON(w, http.StatusOK, queryResponse{
		Success:   true,
		Data:      result.Response,
		SessionID: result.SessionID,
		Message:   "Support query processed",
	})
}

func (h *Handler) dashboardQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.dashboard.HandleQuery(r.Context(), req.Query, req.SessionID)
	JSON(w, http.StatusOK, queryResponse{
		Success:   true,
		Data:      result.Response,
		SessionID: result.SessionID,
		Message:   "Dashboard query processed",
	})
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: summary, Message: "Dashboard summary generated"})
}

type createOrderRequest struct {
	ServiceName string `json:"service_name"`
	ClientEmail string `json:"client_email"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServiceName == "" || req.ClientEmail == "" {
		Error(w, http.StatusBadRequest, "service_name and client_email are required")
		return
	}

	query := fmt.Sprintf("Create an order for %s for client %s", req.ServiceName, req.ClientEmail)
	result := h.support.HandleSpecificQueries(r.Context(), query)
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Order creation processed"})
}

func (h *Handler) weeklyClasses(w http.ResponseWriter, r *http.Request) {
	result := h.support.HandleSpecificQueries(r.Context(), "What classes are available this week?")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Weekly classes retrieved"})
}

func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		Error(w, http.StatusBadRequest, "order id is required")
		return
	}

	result := h.support.HandleSpecificQueries(r.Context(), fmt.Sprintf("Has order #%s been paid?", orderID))
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Order status retrieved"})
}

func (h *Handler) topEnrollments(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "Which course has the highest enrollment?")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Top enrollment data retrieved"})
}

func (h *Handler) completionRates(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "Show course completion rates")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Completion rates retrieved"})
}

func (h *Handler) attendanceStats(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "Show attendance statistics")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Attendance statistics calculated"})
}

func (h *Handler) attendanceByClass(w http.ResponseWriter, r *http.Request) {
	className := chi.URLParam(r, "className")
	if className == "" {
		Error(w, http.StatusBadRequest, "class name is required")
		return
	}

	query := fmt.Sprintf("What is the attendance percentage for %s?", className)
	result := h.dashboard.HandleSpecificQueries(r.Context(), query)
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Attendance statistics calculated"})
}

func (h *Handler) inactiveClients(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "How many inactive clients do we have?")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Inactive clients data retrieved"})
}

func (h *Handler) activeClients(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "How many active clients do we have?")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Active clients data retrieved"})
}

func (h *Handler) birthdayReminders(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "Show clients with birthdays this month")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "Birthday reminders retrieved"})
}

func (h *Handler) newClients(w http.ResponseWriter, r *http.Request) {
	result := h.dashboard.HandleSpecificQueries(r.Context(), "How many new clients joined this month?")
	JSON(w, http.StatusOK, queryResponse{Success: true, Data: result, Message: "New clients this month retrieved"})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.CreateNewSession()
	JSON(w, http.StatusOK, map[string]any{"success": true, "session_id": id})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"success": true, "sessions": h.sessions.ActiveSessionIDs()})
}

func (h *Handler) sessionContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	stats := h.sessions.GetSessionStats(sessionID)
	if stats == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"stats":        stats,
		"context":      h.sessions.GetContext(sessionID),
		"interactions": h.sessions.GetRecentInteractions(sessionID, 5),
	})
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if !h.sessions.ClearSession(sessionID) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "message": "session cleared"})
}
