package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCourse(t *testing.T, s *SQLiteStore, name string, price float64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO courses (id, name, price) VALUES (?, ?, ?)`, id, name, price)
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return id
}

func seedClass(t *testing.T, s *SQLiteStore, name string, date time.Time, status string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO classes (id, name, date, status) VALUES (?, ?, ?, ?)`,
		id, name, date.Unix(), status)
	if err != nil {
		t.Fatalf("seed class: %v", err)
	}
	return id
}

func TestCreateAndFindClients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := &Client{Name: "John Doe", Email: "john@example.com", Phone: "+1 (234) 567-8901"}
	if err := s.CreateClient(ctx, client); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if client.ID == "" {
		t.Fatal("expected generated client id")
	}

	err := s.CreateClient(ctx, &Client{Name: "Dup", Email: "JOHN@example.com", Phone: "x"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for same email, got %v", err)
	}

	tests := []struct {
		name   string
		filter ClientFilter
	}{
		{"by email substring", ClientFilter{Email: "john@"}},
		{"by name substring", ClientFilter{Name: "John"}},
		{"by normalized phone", ClientFilter{Phone: "+1 234-567"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindClients(ctx, tt.filter, 10)
			if err != nil {
				t.Fatalf("FindClients: %v", err)
			}
			if len(got) != 1 || got[0].Email != "john@example.com" {
				t.Errorf("got %+v", got)
			}
		})
	}

	got, err := s.FindClients(ctx, ClientFilter{Email: "nobody@"}, 10)
	if err != nil {
		t.Fatalf("FindClients: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
}

func TestCreateOrderFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "Yoga Course", 99.5)
	if err := s.CreateClient(ctx, &Client{Name: "John Doe", Email: "john@example.com", Phone: "+12345678901"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	created, err := s.CreateOrder(ctx, "John@Example.com", "Yoga", "course")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !strings.HasPrefix(created.Order.OrderRef, "ORD-") {
		t.Errorf("order ref = %q", created.Order.OrderRef)
	}
	if created.ServiceName != "Yoga Course" || created.ClientName != "John Doe" {
		t.Errorf("created = %+v", created)
	}
	if created.Order.Amount != 99.5 || created.Order.Status != "pending" {
		t.Errorf("order = %+v", created.Order)
	}

	// Ordering a service enrolls the client in it.
	clients, err := s.FindClients(ctx, ClientFilter{Email: "john@example.com"}, 1)
	if err != nil || len(clients) != 1 {
		t.Fatalf("FindClients: %v %v", clients, err)
	}
	if len(clients[0].EnrolledServices) != 1 || clients[0].EnrolledServices[0] != "Yoga Course" {
		t.Errorf("enrolled services = %v", clients[0].EnrolledServices)
	}

	order, err := s.GetOrder(ctx, created.Order.OrderRef)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.ID != created.Order.ID {
		t.Errorf("GetOrder returned %+v", order)
	}

	if _, err := s.GetOrder(ctx, "ORD-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPaymentForOrder(ctx, order.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unpaid order, got %v", err)
	}

	pending, err := s.PendingOrders(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingOrders: %v %v", pending, err)
	}

	outstanding, err := s.OutstandingPayments(ctx)
	if err != nil {
		t.Fatalf("OutstandingPayments: %v", err)
	}
	if outstanding.Count != 1 || outstanding.TotalOutstanding != 99.5 {
		t.Errorf("outstanding = %+v", outstanding)
	}
}

func TestCreateOrderUnknownClientOrService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateOrder(ctx, "ghost@example.com", "Yoga", "course"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown client, got %v", err)
	}

	if err := s.CreateClient(ctx, &Client{Name: "John", Email: "john@example.com", Phone: "+12345678901"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if _, err := s.CreateOrder(ctx, "john@example.com", "Underwater Chess", "course"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown course, got %v", err)
	}
	if _, err := s.CreateOrder(ctx, "john@example.com", "Yoga", "subscription"); err == nil {
		t.Error("expected error for unknown service type")
	}
}

func TestRevenue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "Yoga Course", 100)
	if err := s.CreateClient(ctx, &Client{Name: "John", Email: "john@example.com", Phone: "+12345678901"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	created, err := s.CreateOrder(ctx, "john@example.com", "Yoga", "course")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO payments (id, order_id, amount, payment_date, status)
		VALUES (?, ?, ?, ?, 'completed'), (?, ?, ?, ?, 'pending')`,
		uuid.NewString(), created.Order.ID, 100.0, time.Now().Unix(),
		uuid.NewString(), created.Order.ID, 50.0, time.Now().Unix())
	if err != nil {
		t.Fatalf("seed payments: %v", err)
	}

	summary, err := s.Revenue(ctx, "month")
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if summary.Count != 1 || summary.TotalRevenue != 100 {
		t.Errorf("summary = %+v, want only the completed payment", summary)
	}

	// A payment dated before the window is excluded.
	_, err = s.db.Exec(`
		INSERT INTO payments (id, order_id, amount, payment_date, status)
		VALUES (?, ?, ?, ?, 'completed')`,
		uuid.NewString(), created.Order.ID, 70.0, time.Now().AddDate(0, -2, 0).Unix())
	if err != nil {
		t.Fatalf("seed old payment: %v", err)
	}

	summary, err = s.Revenue(ctx, "month")
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if summary.TotalRevenue != 100 {
		t.Errorf("monthly revenue = %v, want 100", summary.TotalRevenue)
	}

	all, err := s.Revenue(ctx, "")
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if all.TotalRevenue != 170 {
		t.Errorf("all-time revenue = %v, want 170", all.TotalRevenue)
	}
}

func TestWeeklyClasses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedClass(t, s, "Morning Yoga", time.Now(), "scheduled")
	seedClass(t, s, "Next Month Yoga", time.Now().AddDate(0, 1, 0), "scheduled")
	seedClass(t, s, "Cancelled Yoga", time.Now(), "cancelled")

	classes, err := s.WeeklyClasses(ctx)
	if err != nil {
		t.Fatalf("WeeklyClasses: %v", err)
	}
	if len(classes) != 1 || classes[0].Name != "Morning Yoga" {
		t.Errorf("classes = %+v", classes)
	}
}

func TestTopEnrollments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "Yoga Course", 100)
	seedCourse(t, s, "Pilates Course", 80)
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if err := s.CreateClient(ctx, &Client{Name: "C", Email: email, Phone: "+12345678901"}); err != nil {
			t.Fatalf("CreateClient: %v", err)
		}
		course := "Yoga"
		if i == 2 {
			course = "Pilates"
		}
		if _, err := s.CreateOrder(ctx, email, course, "course"); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	analytics, err := s.TopEnrollments(ctx, "month")
	if err != nil {
		t.Fatalf("TopEnrollments: %v", err)
	}
	if len(analytics.TopCourses) != 2 {
		t.Fatalf("top courses = %+v", analytics.TopCourses)
	}
	if analytics.TopCourses[0].ServiceName != "Yoga Course" || analytics.TopCourses[0].Enrollments != 2 {
		t.Errorf("expected Yoga Course ranked first, got %+v", analytics.TopCourses)
	}
}

func TestAttendanceReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	classID := seedClass(t, s, "Morning Yoga", time.Now(), "scheduled")
	if err := s.CreateClient(ctx, &Client{Name: "John", Email: "john@example.com", Phone: "+12345678901"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	clients, err := s.FindClients(ctx, ClientFilter{Email: "john@"}, 1)
	if err != nil || len(clients) != 1 {
		t.Fatalf("FindClients: %v %v", clients, err)
	}

	for _, present := range []int{1, 1, 1, 0} {
		_, err := s.db.Exec(`
			INSERT INTO attendance (id, class_id, client_id, date, present)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), classID, clients[0].ID, time.Now().Unix(), present)
		if err != nil {
			t.Fatalf("seed attendance: %v", err)
		}
	}

	lines, err := s.AttendanceReport(ctx, "")
	if err != nil {
		t.Fatalf("AttendanceReport: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].TotalSessions != 4 || lines[0].AttendedSessions != 3 || lines[0].AttendancePercentage != 75 {
		t.Errorf("line = %+v", lines[0])
	}

	byName, err := s.AttendanceReport(ctx, "Morning")
	if err != nil || len(byName) != 1 {
		t.Errorf("filtered report = %+v, %v", byName, err)
	}
	none, err := s.AttendanceReport(ctx, "Evening")
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty report, got %+v, %v", none, err)
	}
}

func TestClientInsights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	birthday := time.Date(1990, time.Now().Month(), 15, 0, 0, 0, 0, time.UTC)
	jane := &Client{Name: "Jane", Email: "jane@example.com", Phone: "+12345678901", DateOfBirth: &birthday}
	if err := s.CreateClient(ctx, jane); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if err := s.CreateClient(ctx, &Client{Name: "John", Email: "john@example.com", Phone: "+12345678902"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE clients SET is_active = 0 WHERE email = 'john@example.com'`); err != nil {
		t.Fatalf("deactivate client: %v", err)
	}

	insights, err := s.ClientInsights(ctx)
	if err != nil {
		t.Fatalf("ClientInsights: %v", err)
	}
	if insights.ActiveClients != 1 || insights.InactiveClients != 1 {
		t.Errorf("insights = %+v", insights)
	}
	if insights.NewClients != 2 {
		t.Errorf("new clients = %d, want 2", insights.NewClients)
	}
	if len(insights.BirthdayReminders) != 1 || insights.BirthdayReminders[0].Name != "Jane" {
		t.Errorf("birthday reminders = %+v", insights.BirthdayReminders)
	}
}
