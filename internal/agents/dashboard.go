package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/anbose/studiodesk/internal/intent"
	"github.com/anbose/studiodesk/internal/memory"
	"github.com/anbose/studiodesk/internal/models"
	"github.com/anbose/studiodesk/internal/store"
)

const dashboardCapabilities = "I can provide revenue metrics, client insights, service analytics, and attendance reports. Please be more specific."

var attendanceClassPattern = regexp.MustCompile(`(?i)(?:for|of)\s+(.+?)\s*\??$`)

// DashboardAgent answers business analytics queries: revenue, outstanding
// payments, enrollments, attendance and client insights, plus a composite
// dashboard summary.
type DashboardAgent struct {
	repo       store.Repository
	classifier *intent.Classifier
	sessions   *memory.Store
	resolver   *memory.Resolver
	logger     *slog.Logger
}

// NewDashboardAgent wires a dashboard agent.
func NewDashboardAgent(repo store.Repository, classifier *intent.Classifier, sessions *memory.Store, logger *slog.Logger) *DashboardAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardAgent{
		repo:       repo,
		classifier: classifier,
		sessions:   sessions,
		resolver:   memory.NewResolver(sessions),
		logger:     logger,
	}
}

// HandleQuery runs the full pipeline; like the support agent it always
// returns a textual answer and a session handle.
func (a *DashboardAgent) HandleQuery(ctx context.Context, query, sessionID string) *models.QueryResult {
	resolved := a.resolver.Resolve(sessionID, query)

	classification := a.classifier.Classify(ctx, models.AgentDashboard, resolved, a.sessions.GetContext(sessionID))

	var response string
	if classification.Unknown() {
		response = a.HandleSpecificQueries(ctx, resolved)
	} else {
		response = a.route(ctx, classification, resolved)
	}

	id := a.sessions.StoreInteraction(sessionID, models.AgentDashboard, query, response, classification.ExtractedData, classification.Intent)

	return &models.QueryResult{Response: response, SessionID: id}
}

// HandleSpecificQueries is the deterministic tier-2 path.
func (a *DashboardAgent) HandleSpecificQueries(ctx context.Context, query string) string {
	m := intent.MatchDashboard(query)
	if m == nil {
		return dashboardCapabilities
	}
	return a.route(ctx, m, query)
}

func (a *DashboardAgent) route(ctx context.Context, c *models.Classification, query string) string {
	var (
		response string
		err      error
	)

	switch c.Intent {
	case models.IntentRevenue:
		response, err = a.revenue(ctx, c.Period)
	case models.IntentOutstandingPayments:
		response, err = a.outstandingPayments(ctx)
	case models.IntentEnrollment:
		response, err = a.topEnrollments(ctx, c.Period)
	case models.IntentAttendance:
		response, err = a.attendanceStats(ctx, extractClassName(query))
	case models.IntentClients:
		response, err = a.clientInsights(ctx)
	case models.IntentDashboard:
		response, err = a.Summary(ctx)
	default:
		return a.HandleSpecificQueries(ctx, query)
	}

	if err != nil {
		a.logger.Error("dashboard operation failed", "intent", c.Intent, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return response
}

// Summary fans out to the four underlying reports concurrently and joins
// their results under one heading. A single failure aborts the whole
// composite rather than reporting partial results.
func (a *DashboardAgent) Summary(ctx context.Context) (string, error) {
	period := "month"

	parts := make([]string, 4)
	errs := make([]error, 4)
	ops := []func() (string, error){
		func() (string, error) { return a.revenue(ctx, period) },
		func() (string, error) { return a.clientInsights(ctx) },
		func() (string, error) { return a.topEnrollments(ctx, period) },
		func() (string, error) { return a.attendanceStats(ctx, "") },
	}

	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parts[i], errs[i] = op()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", fmt.Errorf("generate dashboard: %w", err)
		}
	}

	return "Business Dashboard Summary\n\n" + strings.Join(parts, "\n\n"), nil
}

func (a *DashboardAgent) revenue(ctx context.Context, period string) (string, error) {
	if period == "" {
		period = "month"
	}
	summary, err := a.repo.Revenue(ctx, period)
	if err != nil {
		return "", fmt.Errorf("revenue: %w", err)
	}
	if summary.Count == 0 {
		return fmt.Sprintf("No revenue recorded for this %s.", periodNoun(period)), nil
	}
	return fmt.Sprintf("%s revenue: $%.2f from %d completed payment(s).",
		periodAdjective(period), summary.TotalRevenue, summary.Count), nil
}

func (a *DashboardAgent) outstandingPayments(ctx context.Context) (string, error) {
	summary, err := a.repo.OutstandingPayments(ctx)
	if err != nil {
		return "", fmt.Errorf("outstanding payments: %w", err)
	}
	if summary.Count == 0 {
		return "No outstanding payments.", nil
	}
	return fmt.Sprintf("Outstanding payments: $%.2f across %d pending order(s).",
		summary.TotalOutstanding, summary.Count), nil
}

func (a *DashboardAgent) topEnrollments(ctx context.Context, period string) (string, error) {
	if period == "" {
		period = "month"
	}
	analytics, err := a.repo.TopEnrollments(ctx, period)
	if err != nil {
		return "", fmt.Errorf("top enrollments: %w", err)
	}
	if len(analytics.TopCourses) == 0 && len(analytics.TopClasses) == 0 {
		return "No enrollment data found.", nil
	}

	var b strings.Builder
	b.WriteString("Top enrollments:")
	if len(analytics.TopCourses) > 0 {
		b.WriteString("\nCourses:")
		for _, ec := range analytics.TopCourses {
			fmt.Fprintf(&b, "\n- %s: %d enrollment(s)", ec.ServiceName, ec.Enrollments)
		}
	}
	if len(analytics.TopClasses) > 0 {
		b.WriteString("\nClasses:")
		for _, ec := range analytics.TopClasses {
			fmt.Fprintf(&b, "\n- %s: %d enrollment(s)", ec.ServiceName, ec.Enrollments)
		}
	}
	return b.String(), nil
}

func (a *DashboardAgent) attendanceStats(ctx context.Context, className string) (string, error) {
	lines, err := a.repo.AttendanceReport(ctx, className)
	if err != nil {
		return "", fmt.Errorf("attendance report: %w", err)
	}
	if len(lines) == 0 {
		return "No attendance records found.", nil
	}

	var b strings.Builder
	b.WriteString("Attendance statistics:")
	for _, line := range lines {
		fmt.Fprintf(&b, "\n- %s: %.1f%% (%d of %d sessions attended)",
			line.ClassName, line.AttendancePercentage, line.AttendedSessions, line.TotalSessions)
	}
	return b.String(), nil
}

func (a *DashboardAgent) clientInsights(ctx context.Context) (string, error) {
	insights, err := a.repo.ClientInsights(ctx)
	if err != nil {
		return "", fmt.Errorf("client insights: %w", err)
	}
	if insights.ActiveClients == 0 && insights.InactiveClients == 0 &&
		insights.NewClients == 0 && len(insights.BirthdayReminders) == 0 {
		return "No client data found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Client insights: %d active, %d inactive, %d new this month.",
		insights.ActiveClients, insights.InactiveClients, insights.NewClients)
	if len(insights.BirthdayReminders) > 0 {
		names := make([]string, len(insights.BirthdayReminders))
		for i, c := range insights.BirthdayReminders {
			names[i] = c.Name
		}
		fmt.Fprintf(&b, " Birthdays this month: %s.", strings.Join(names, ", "))
	}
	return b.String(), nil
}

// extractClassName pulls the trailing class name out of queries like
// "What is the attendance percentage for Morning Yoga?". Returns "" when the
// query names no class, which widens the report to all classes.
func extractClassName(query string) string {
	lower := strings.ToLower(query)
	if !strings.Contains(lower, "attendance") {
		return ""
	}
	if m := attendanceClassPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func periodNoun(period string) string {
	switch period {
	case "today":
		return "day"
	case "week":
		return "week"
	case "year":
		return "year"
	default:
		return "month"
	}
}

func periodAdjective(period string) string {
	switch period {
	case "today":
		return "Daily"
	case "week":
		return "Weekly"
	case "year":
		return "Yearly"
	default:
		return "Monthly"
	}
}
