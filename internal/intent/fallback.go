package intent

import (
	"regexp"
	"strings"

	"github.com/anbose/studiodesk/internal/models"
)

// langKeywords is a keyword set tagged by language, so token lists stay
// extensible without touching the matching code.
type langKeywords map[string][]string

func (k langKeywords) countIn(query string) int {
	n := 0
	for _, tokens := range k {
		for _, token := range tokens {
			if strings.Contains(query, token) {
				n++
			}
		}
	}
	return n
}

// rule is one ordered fallback predicate. Keywords must produce at least
// minMatches hits (default 1); a non-nil secondary set must also hit; an
// orderRef rule additionally requires an "order #<id>" shaped substring.
type rule struct {
	intent     string
	keywords   langKeywords
	minMatches int
	secondary  langKeywords
	orderRef   bool
}

// Order references may be bare numbers or dashed "ORD-..." identifiers.
var orderRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)order\s*#?([\w-]+)`),
	regexp.MustCompile(`ऑर्डर\s*#?([\w-]+)`),
	regexp.MustCompile(`অর্ডার\s*#?([\w-]+)`),
}

// Rule order matters where keyword sets overlap: the first matching rule
// wins, so the more specific checks come first.
var supportRules = []rule{
	{
		intent: models.IntentCreateOrder,
		keywords: langKeywords{
			"en": {"create", "order"},
			"hi": {"बनाएं", "ऑर्डर"},
			"bn": {"তৈরি", "অর্ডার"},
		},
		minMatches: 2,
	},
	{
		intent: models.IntentCreateClient,
		keywords: langKeywords{
			"en": {"create", "add", "register"},
			"hi": {"बनाएं", "जोड़ें"},
			"bn": {"তৈরি", "যোগ"},
		},
		secondary: langKeywords{
			"en": {"client", "customer"},
			"hi": {"ग्राहक"},
			"bn": {"গ্রাহক"},
		},
	},
	{
		intent: models.IntentSearchClient,
		keywords: langKeywords{
			"en": {"client", "search", "find"},
			"hi": {"ग्राहक", "खोज"},
			"bn": {"গ্রাহক", "খুঁজ"},
		},
	},
	{
		intent: models.IntentOrderStatus,
		keywords: langKeywords{
			"en": {"order", "status"},
			"hi": {"ऑर्डर", "स्थिति"},
			"bn": {"অর্ডার", "অবস্থা"},
		},
		orderRef: true,
	},
	{
		intent: models.IntentWeeklyClasses,
		keywords: langKeywords{
			"en": {"classes", "week"},
			"hi": {"कक्षा", "सप्ताह"},
			"bn": {"ক্লাস", "সপ্তাহ"},
		},
	},
	{
		intent: models.IntentPaymentInfo,
		keywords: langKeywords{
			"en": {"paid", "payment"},
			"hi": {"भुगतान"},
			"bn": {"পেমেন্ট"},
		},
	},
}

var dashboardRules = []rule{
	{
		intent: models.IntentOutstandingPayments,
		keywords: langKeywords{
			"en": {"outstanding", "pending", "due"},
			"hi": {"बकाया"},
			"bn": {"বকেয়া"},
		},
	},
	{
		intent: models.IntentRevenue,
		keywords: langKeywords{
			"en": {"revenue", "income", "earnings", "money", "sales"},
			"hi": {"राजस्व", "आय"},
			"bn": {"রাজস্ব", "আয়", "কমাই"},
		},
	},
	{
		intent: models.IntentEnrollment,
		keywords: langKeywords{
			"en": {"enrollment", "registration", "signup", "popular", "top"},
			"hi": {"नामांकन", "पंजीकरण"},
			"bn": {"নথিভুক্তি", "নিবন্ধন"},
		},
	},
	{
		intent: models.IntentAttendance,
		keywords: langKeywords{
			"en": {"attendance", "present", "absent", "participation"},
			"hi": {"उपस्थिति"},
			"bn": {"উপস্থিতি"},
		},
	},
	{
		intent: models.IntentClients,
		keywords: langKeywords{
			"en": {"client", "customer", "user", "inactive"},
			"hi": {"ग्राहक"},
			"bn": {"গ্রাহক"},
		},
	},
	{
		intent: models.IntentDashboard,
		keywords: langKeywords{
			"en": {"dashboard", "summary", "overview", "report"},
			"hi": {"डैशबोर्ड", "सारांश"},
			"bn": {"ড্যাশবোর্ড", "সারসংক্ষেপ"},
		},
	},
}

// MatchSupport evaluates the support agent's fallback rules against the
// query. Returns nil when no rule matches; the caller answers with its
// capability listing in that case.
func MatchSupport(query string) *models.Classification {
	return match(supportRules, query)
}

// MatchDashboard evaluates the dashboard agent's fallback rules.
func MatchDashboard(query string) *models.Classification {
	return match(dashboardRules, query)
}

func match(rules []rule, query string) *models.Classification {
	lower := strings.ToLower(query)

	for _, r := range rules {
		min := r.minMatches
		if min <= 0 {
			min = 1
		}
		if r.keywords.countIn(lower) < min {
			continue
		}
		if r.secondary != nil && r.secondary.countIn(lower) == 0 {
			continue
		}

		c := &models.Classification{Intent: r.intent}
		if r.orderRef {
			id := ExtractOrderID(query)
			if id == "" {
				continue
			}
			c.ExtractedData = map[string]string{"orderId": id}
		}
		return c
	}
	return nil
}

// ExtractOrderID pulls the order token out of an "order #<id>" shaped
// substring, in any of the supported scripts. Returns "" when absent.
func ExtractOrderID(query string) string {
	for _, re := range orderRefPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return m[1]
		}
	}
	return ""
}
