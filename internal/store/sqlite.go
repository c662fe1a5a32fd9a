package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL,
		date_of_birth INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		enrolled_services TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		order_ref TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL REFERENCES clients(id),
		service_type TEXT NOT NULL,
		service_id TEXT NOT NULL,
		amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_service ON orders(service_type, service_id);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instructor TEXT NOT NULL DEFAULT '',
		duration_weeks INTEGER NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		max_students INTEGER NOT NULL DEFAULT 0,
		current_enrollment INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		start_date INTEGER,
		end_date INTEGER
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		course_id TEXT,
		instructor TEXT NOT NULL DEFAULT '',
		date INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		max_students INTEGER NOT NULL DEFAULT 0,
		current_enrollment INTEGER NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);
	CREATE INDEX IF NOT EXISTS idx_classes_date ON classes(date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		amount REAL NOT NULL,
		payment_date INTEGER NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		transaction_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL REFERENCES classes(id),
		client_id TEXT NOT NULL REFERENCES clients(id),
		date INTEGER NOT NULL,
		present INTEGER NOT NULL,
		notes TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_class ON attendance(class_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindClients searches clients by email, phone or name (case-insensitive
// substring). Empty filter fields are ignored.
func (s *SQLiteStore) FindClients(ctx context.Context, filter ClientFilter, limit int) ([]Client, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, name, email, phone, date_of_birth, is_active,
		       enrolled_services, created_at, updated_at
		FROM clients WHERE 1=1`
	var args []any

	if filter.Email != "" {
		query += ` AND email LIKE '%' || ? || '%'`
		args = append(args, filter.Email)
	}
	if filter.Phone != "" {
		query += ` AND REPLACE(REPLACE(REPLACE(REPLACE(phone, ' ', ''), '-', ''), '(', ''), ')', '') LIKE '%' || ? || '%'`
		args = append(args, normalizePhone(filter.Phone))
	}
	if filter.Name != "" {
		query += ` AND name LIKE '%' || ? || '%'`
		args = append(args, filter.Name)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// CreateClient inserts a new client record.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *Client) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE email = ? COLLATE NOCASE`, client.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check client email: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("client %s: %w", client.Email, ErrDuplicate)
	}

	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now
	client.IsActive = true
	if client.EnrolledServices == nil {
		client.EnrolledServices = []string{}
	}

	services, err := json.Marshal(client.EnrolledServices)
	if err != nil {
		return fmt.Errorf("marshal enrolled services: %w", err)
	}

	var dob any
	if client.DateOfBirth != nil {
		dob = client.DateOfBirth.Unix()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, phone, date_of_birth, is_active, enrolled_services, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		client.ID, client.Name, client.Email, client.Phone, dob,
		string(services), now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetOrder fetches an order by its user-facing reference.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderRef string) (*Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_ref, client_id, service_type, service_id, amount, status, created_at, updated_at
		FROM orders WHERE order_ref = ?`, orderRef)

	var o Order
	var createdAt, updatedAt int64
	err := row.Scan(&o.ID, &o.OrderRef, &o.ClientID, &o.ServiceType, &o.ServiceID,
		&o.Amount, &o.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderRef, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	o.CreatedAt = time.Unix(createdAt, 0)
	o.UpdatedAt = time.Unix(updatedAt, 0)
	return &o, nil
}

// GetPaymentForOrder fetches the payment recorded against an order.
func (s *SQLiteStore) GetPaymentForOrder(ctx context.Context, orderID string) (*Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, amount, payment_date, payment_method, status, transaction_id
		FROM payments WHERE order_id = ?`, orderID)

	var p Payment
	var paymentDate int64
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &paymentDate, &p.PaymentMethod, &p.Status, &p.TransactionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment row: %w", err)
	}
	p.PaymentDate = time.Unix(paymentDate, 0)
	return &p, nil
}

// CreateOrder creates an order for a client against a named course or class
// and enrolls the client in the service.
func (s *SQLiteStore) CreateOrder(ctx context.Context, clientEmail, serviceName, serviceType string) (*CreatedOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var clientID, clientName, servicesJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, enrolled_services FROM clients WHERE email = ? COLLATE NOCASE`,
		clientEmail).Scan(&clientID, &clientName, &servicesJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %s: %w", clientEmail, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}

	var serviceTable string
	switch serviceType {
	case "course":
		serviceTable = "courses"
	case "class":
		serviceTable = "classes"
	default:
		return nil, fmt.Errorf("unknown service type: %s", serviceType)
	}

	var serviceID, resolvedName string
	var price float64
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, price FROM `+serviceTable+` WHERE name LIKE '%' || ? || '%' LIMIT 1`,
		serviceName).Scan(&serviceID, &resolvedName, &price)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s with name %q: %w", serviceType, serviceName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", serviceType, err)
	}

	now := time.Now()
	order := Order{
		ID:          uuid.NewString(),
		OrderRef:    fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		ClientID:    clientID,
		ServiceType: serviceType,
		ServiceID:   serviceID,
		Amount:      price,
		Status:      "pending",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_ref, client_id, service_type, service_id, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderRef, order.ClientID, order.ServiceType, order.ServiceID,
		order.Amount, order.Status, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	var services []string
	if err := json.Unmarshal([]byte(servicesJSON), &services); err != nil {
		services = nil
	}
	enrolled := false
	for _, sv := range services {
		if sv == resolvedName {
			enrolled = true
			break
		}
	}
	if !enrolled {
		services = append(services, resolvedName)
		updated, err := json.Marshal(services)
		if err != nil {
			return nil, fmt.Errorf("marshal enrolled services: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE clients SET enrolled_services = ?, updated_at = ? WHERE id = ?`,
			string(updated), now.Unix(), clientID)
		if err != nil {
			return nil, fmt.Errorf("update enrolled services: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	return &CreatedOrder{Order: order, ClientName: clientName, ServiceName: resolvedName}, nil
}

// WeeklyClasses lists the current week's scheduled and ongoing classes,
// earliest first. The week starts on Sunday.
func (s *SQLiteStore) WeeklyClasses(ctx context.Context) ([]Class, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.AddDate(0, 0, -int(now.Weekday()))
	end := start.AddDate(0, 0, 7)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(course_id, ''), instructor, date, duration_minutes,
		       max_students, current_enrollment, price, status
		FROM classes
		WHERE date >= ? AND date < ? AND status IN ('scheduled', 'ongoing')
		ORDER BY date`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query weekly classes: %w", err)
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		var c Class
		var date int64
		if err := rows.Scan(&c.ID, &c.Name, &c.CourseID, &c.Instructor, &date,
			&c.DurationMinutes, &c.MaxStudents, &c.CurrentEnrollment, &c.Price, &c.Status); err != nil {
			return nil, fmt.Errorf("scan class row: %w", err)
		}
		c.Date = time.Unix(date, 0)
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// PendingOrders lists orders awaiting payment, newest first.
func (s *SQLiteStore) PendingOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_ref, client_id, service_type, service_id, amount, status, created_at, updated_at
		FROM orders WHERE status = 'pending' ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var createdAt, updatedAt int64
		if err := rows.Scan(&o.ID, &o.OrderRef, &o.ClientID, &o.ServiceType, &o.ServiceID,
			&o.Amount, &o.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.CreatedAt = time.Unix(createdAt, 0)
		o.UpdatedAt = time.Unix(updatedAt, 0)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Revenue sums completed payments since the start of the given period.
func (s *SQLiteStore) Revenue(ctx context.Context, period string) (*RevenueSummary, error) {
	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM payments WHERE status = 'completed'`
	var args []any
	if since := periodStart(period); !since.IsZero() {
		query += ` AND payment_date >= ?`
		args = append(args, since.Unix())
	}

	var summary RevenueSummary
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&summary.TotalRevenue, &summary.Count); err != nil {
		return nil, fmt.Errorf("query revenue: %w", err)
	}
	return &summary, nil
}

// OutstandingPayments sums orders still pending payment.
func (s *SQLiteStore) OutstandingPayments(ctx context.Context) (*OutstandingSummary, error) {
	var summary OutstandingSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM orders WHERE status = 'pending'`,
	).Scan(&summary.TotalOutstanding, &summary.Count)
	if err != nil {
		return nil, fmt.Errorf("query outstanding payments: %w", err)
	}
	return &summary, nil
}

// TopEnrollments ranks the five most-ordered courses and classes for a period.
func (s *SQLiteStore) TopEnrollments(ctx context.Context, period string) (*ServiceAnalytics, error) {
	courses, err := s.topServices(ctx, "course", "courses", period)
	if err != nil {
		return nil, err
	}
	classes, err := s.topServices(ctx, "class", "classes", period)
	if err != nil {
		return nil, err
	}
	return &ServiceAnalytics{TopCourses: courses, TopClasses: classes}, nil
}

func (s *SQLiteStore) topServices(ctx context.Context, serviceType, table, period string) ([]EnrollmentCount, error) {
	query := `
		SELECT sv.name, COUNT(*) AS enrollments
		FROM orders o JOIN ` + table + ` sv ON sv.id = o.service_id
		WHERE o.service_type = ?`
	args := []any{serviceType}
	if since := periodStart(period); !since.IsZero() {
		query += ` AND o.created_at >= ?`
		args = append(args, since.Unix())
	}
	query += ` GROUP BY sv.id ORDER BY enrollments DESC LIMIT 5`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top %s: %w", table, err)
	}
	defer rows.Close()

	var counts []EnrollmentCount
	for rows.Next() {
		var ec EnrollmentCount
		if err := rows.Scan(&ec.ServiceName, &ec.Enrollments); err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		counts = append(counts, ec)
	}
	return counts, rows.Err()
}

// AttendanceReport aggregates attendance per class with a percentage.
func (s *SQLiteStore) AttendanceReport(ctx context.Context, className string) ([]AttendanceLine, error) {
	query := `
		SELECT cl.name, COUNT(*), SUM(CASE WHEN a.present THEN 1 ELSE 0 END)
		FROM attendance a JOIN classes cl ON cl.id = a.class_id`
	var args []any
	if className != "" {
		query += ` WHERE cl.name LIKE '%' || ? || '%'`
		args = append(args, className)
	}
	query += ` GROUP BY a.class_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var lines []AttendanceLine
	for rows.Next() {
		var line AttendanceLine
		if err := rows.Scan(&line.ClassName, &line.TotalSessions, &line.AttendedSessions); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		if line.TotalSessions > 0 {
			line.AttendancePercentage = float64(line.AttendedSessions) / float64(line.TotalSessions) * 100
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ClientInsights counts active, inactive and new clients and collects
// birthday reminders for the current month.
func (s *SQLiteStore) ClientInsights(ctx context.Context) (*ClientInsights, error) {
	insights := &ClientInsights{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE is_active = 1`).Scan(&insights.ActiveClients); err != nil {
		return nil, fmt.Errorf("count active clients: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE is_active = 0`).Scan(&insights.InactiveClients); err != nil {
		return nil, fmt.Errorf("count inactive clients: %w", err)
	}

	monthAgo := time.Now().AddDate(0, -1, 0)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE created_at >= ?`, monthAgo.Unix()).Scan(&insights.NewClients); err != nil {
		return nil, fmt.Errorf("count new clients: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, date_of_birth, is_active,
		       enrolled_services, created_at, updated_at
		FROM clients
		WHERE date_of_birth IS NOT NULL
		  AND CAST(strftime('%m', date_of_birth, 'unixepoch') AS INTEGER) = ?`,
		int(time.Now().Month()))
	if err != nil {
		return nil, fmt.Errorf("query birthday clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		insights.BirthdayReminders = append(insights.BirthdayReminders, *c)
	}
	return insights, rows.Err()
}

func scanClient(rows *sql.Rows) (*Client, error) {
	var c Client
	var dob sql.NullInt64
	var active int
	var servicesJSON string
	var createdAt, updatedAt int64

	err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &dob, &active,
		&servicesJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan client row: %w", err)
	}

	if dob.Valid {
		t := time.Unix(dob.Int64, 0)
		c.DateOfBirth = &t
	}
	c.IsActive = active == 1
	if err := json.Unmarshal([]byte(servicesJSON), &c.EnrolledServices); err != nil {
		c.EnrolledServices = []string{}
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
}

// periodStart maps a period keyword to its starting instant. Unknown or
// empty periods return the zero time, meaning no filter.
func periodStart(period string) time.Time {
	now := time.Now()
	switch period {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}
