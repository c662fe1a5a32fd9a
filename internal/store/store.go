// Package store provides persistence for the business data the agents
// operate on: clients, orders, courses, classes, payments and attendance.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("already exists")
)

// Client is a business customer.
type Client struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	IsActive         bool       `json:"is_active"`
	EnrolledServices []string   `json:"enrolled_services"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Order links a client to a purchased course or class.
type Order struct {
	ID          string    `json:"id"`
	OrderRef    string    `json:"order_ref"` // user-facing "ORD-..." identifier
	ClientID    string    `json:"client_id"`
	ServiceType string    `json:"service_type"` // course or class
	ServiceID   string    `json:"service_id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"` // pending, paid, cancelled
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Course is a multi-week offering.
type Course struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Instructor        string    `json:"instructor"`
	DurationWeeks     int       `json:"duration_weeks"`
	Price             float64   `json:"price"`
	MaxStudents       int       `json:"max_students"`
	CurrentEnrollment int       `json:"current_enrollment"`
	Status            string    `json:"status"` // active, inactive, completed
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
}

// Class is a single scheduled session.
type Class struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	CourseID          string    `json:"course_id,omitempty"`
	Instructor        string    `json:"instructor"`
	Date              time.Time `json:"date"`
	DurationMinutes   int       `json:"duration_minutes"`
	MaxStudents       int       `json:"max_students"`
	CurrentEnrollment int       `json:"current_enrollment"`
	Price             float64   `json:"price"`
	Status            string    `json:"status"` // scheduled, ongoing, completed, cancelled
}

// Payment records money received against an order.
type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"` // completed, failed, pending
	TransactionID string    `json:"transaction_id"`
}

// ClientFilter narrows a client search. Empty fields are ignored; matching
// is case-insensitive substring.
type ClientFilter struct {
	Email string
	Phone string
	Name  string
}

// CreatedOrder is the result of CreateOrder, with the names the agents need
// for their confirmation text.
type CreatedOrder struct {
	Order       Order  `json:"order"`
	ClientName  string `json:"client_name"`
	ServiceName string `json:"service_name"`
}

// RevenueSummary totals completed payments for a period.
type RevenueSummary struct {
	TotalRevenue float64 `json:"total_revenue"`
	Count        int     `json:"count"`
}

// OutstandingSummary totals pending orders.
type OutstandingSummary struct {
	TotalOutstanding float64 `json:"total_outstanding"`
	Count            int     `json:"count"`
}

// EnrollmentCount is one row of a top-enrollments ranking.
type EnrollmentCount struct {
	ServiceName string `json:"service_name"`
	Enrollments int    `json:"enrollments"`
}

// ServiceAnalytics ranks courses and classes by enrollments.
type ServiceAnalytics struct {
	TopCourses []EnrollmentCount `json:"top_courses"`
	TopClasses []EnrollmentCount `json:"top_classes"`
}

// AttendanceLine aggregates attendance for one class.
type AttendanceLine struct {
	ClassName            string  `json:"class_name"`
	TotalSessions        int     `json:"total_sessions"`
	AttendedSessions     int     `json:"attended_sessions"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// ClientInsights summarizes the client base.
type ClientInsights struct {
	ActiveClients     int      `json:"active_clients"`
	InactiveClients   int      `json:"inactive_clients"`
	NewClients        int      `json:"new_clients"`
	BirthdayReminders []Client `json:"birthday_reminders"`
}

// Repository is the data collaborator consumed by the agents. Lookups that
// match nothing return ErrNotFound where a single record is expected, and
// empty slices or zero-valued summaries otherwise.
type Repository interface {
	// FindClients searches clients by email, phone or name.
	FindClients(ctx context.Context, filter ClientFilter, limit int) ([]Client, error)

	// CreateClient inserts a new client; ErrDuplicate if the email is taken.
	CreateClient(ctx context.Context, client *Client) error

	// GetOrder fetches an order by its user-facing reference.
	GetOrder(ctx context.Context, orderRef string) (*Order, error)

	// GetPaymentForOrder fetches the payment recorded against an order, or
	// ErrNotFound when no payment record exists.
	GetPaymentForOrder(ctx context.Context, orderID string) (*Payment, error)

	// CreateOrder creates an order for a client (by email) against a named
	// course or class, and enrolls the client in that service.
	CreateOrder(ctx context.Context, clientEmail, serviceName, serviceType string) (*CreatedOrder, error)

	// WeeklyClasses lists scheduled and ongoing classes for the current week.
	WeeklyClasses(ctx context.Context) ([]Class, error)

	// PendingOrders lists orders awaiting payment.
	PendingOrders(ctx context.Context, limit int) ([]Order, error)

	// Revenue sums completed payments for a period (today, week, month, year;
	// empty means all time).
	Revenue(ctx context.Context, period string) (*RevenueSummary, error)

	// OutstandingPayments sums pending orders.
	OutstandingPayments(ctx context.Context) (*OutstandingSummary, error)

	// TopEnrollments ranks courses and classes by order count for a period.
	TopEnrollments(ctx context.Context, period string) (*ServiceAnalytics, error)

	// AttendanceReport aggregates attendance per class; className narrows the
	// report to a single class when non-empty.
	AttendanceReport(ctx context.Context, className string) ([]AttendanceLine, error)

	// ClientInsights counts active/inactive/new clients and collects
	// birthday reminders for the current month.
	ClientInsights(ctx context.Context) (*ClientInsights, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
