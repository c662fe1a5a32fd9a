package agents

import (
	"regexp"
	"strings"
)

// Language-tagged extraction patterns for queries the classifier did not
// decompose cleanly. Mirrors the shapes accepted in English, Hindi and
// Bengali.
var (
	emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	phonePattern = regexp.MustCompile(`(\+?[\d\s\-()]{10,})`)

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)name\s+([^@\n]+?)(?:\s|$)`),
		regexp.MustCompile(`नाम\s+([^@\n]+?)(?:\s|$)`),
		regexp.MustCompile(`নাম\s+([^@\n]+?)(?:\s|$)`),
	}

	servicePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)for\s+(.+?)\s+for\s+client`),
		regexp.MustCompile(`(.+?)\s+के लिए\s+ग्राहक`),
		regexp.MustCompile(`(.+?)\s+জন্য\s+গ্রাহক`),
	}

	clientPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)client\s+([^"'\n]+?)(?:\s|$)`),
		regexp.MustCompile(`ग्राहक\s+([^"'\n]+?)(?:\s|$)`),
		regexp.MustCompile(`গ্রাহক\s+([^"'\n]+?)(?:\s|$)`),
	}

	emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneShape = regexp.MustCompile(`^\+?\d{10,15}$`)
)

func extractEmail(query string) string {
	if m := emailPattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return ""
}

func extractPhone(query string) string {
	if m := phonePattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractName(query string) string {
	return firstMatch(namePatterns, query)
}

func extractServiceName(query string) string {
	return firstMatch(servicePatterns, query)
}

func extractClientIdentifier(query string) string {
	return firstMatch(clientPatterns, query)
}

func firstMatch(patterns []*regexp.Regexp, query string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func validEmail(email string) bool {
	return emailShape.MatchString(email)
}

// validPhone normalizes spaces, dashes and parentheses away and accepts an
// optional leading "+" followed by 10 to 15 digits.
func validPhone(phone string) bool {
	normalized := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	return phoneShape.MatchString(normalized)
}
