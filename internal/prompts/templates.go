package prompts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anbose/studiodesk/internal/models"
)

const supportPrompt = `Analyze this customer support query (it may be in any language - English, Hindi, Bengali, etc.) and extract key information: "%s"

Return JSON with:
- intent: one of [search_client, order_status, create_order, create_client, weekly_classes, payment_info, unknown]
- extracted_data: object with relevant extracted information (email, orderId, name, serviceName, phone)
- translated_query: English translation of the query

Examples:
- "Find client john@example.com" -> {"intent": "search_client", "extracted_data": {"email": "john@example.com"}, "translated_query": "Find client john@example.com"}
- "ग्राहक john@example.com खोजें" -> {"intent": "search_client", "extracted_data": {"email": "john@example.com"}, "translated_query": "Find client john@example.com"}
- "অর্ডার #123 এর অবস্থা কী?" -> {"intent": "order_status", "extracted_data": {"orderId": "123"}, "translated_query": "What is the status of order #123?"}
- "योग कोर्स के लिए ऑर्डर बनाएं" -> {"intent": "create_order", "extracted_data": {"serviceName": "Yoga Course"}, "translated_query": "Create order for Yoga Course"}`

const dashboardPrompt = `Analyze this business analytics query (it may be in any language - English, Hindi, Bengali, etc.) and classify the intent: "%s"

Return JSON with:
- intent: one of [revenue, outstanding_payments, enrollment, attendance, clients, dashboard, unknown]
- period: if mentioned (today, week, month, year)
- translated_query: English translation of the query

Examples:
- "Show me monthly revenue" -> {"intent": "revenue", "period": "month", "translated_query": "Show me monthly revenue"}
- "मासिक राजस्व दिखाएं" -> {"intent": "revenue", "period": "month", "translated_query": "Show me monthly revenue"}
- "মাসিক রাজস্ব দেখান" -> {"intent": "revenue", "period": "month", "translated_query": "Show me monthly revenue"}
- "उपस्थिति रिपोर्ट" -> {"intent": "attendance", "translated_query": "attendance report"}
- "ড্যাশবোর্ড" -> {"intent": "dashboard", "translated_query": "dashboard"}`

const contextSection = `

Conversation context so far:
%s
Use this context to resolve any remaining references such as "that client" or "the order".`

// BuildSupportPrompt renders the support agent classification prompt,
// appending the rendered session context when one is available.
func BuildSupportPrompt(query, sessionContext string) string {
	prompt := fmt.Sprintf(supportPrompt, query)
	if sessionContext != "" {
		prompt += fmt.Sprintf(contextSection, sessionContext)
	}
	return prompt
}

// BuildDashboardPrompt renders the dashboard agent classification prompt.
func BuildDashboardPrompt(query, sessionContext string) string {
	prompt := fmt.Sprintf(dashboardPrompt, query)
	if sessionContext != "" {
		prompt += fmt.Sprintf(contextSection, sessionContext)
	}
	return prompt
}

// rawClassification mirrors the model's JSON before field coercion.
type rawClassification struct {
	Intent          string         `json:"intent"`
	ExtractedData   map[string]any `json:"extracted_data"`
	Period          string         `json:"period"`
	TranslatedQuery string         `json:"translated_query"`
}

// ParseClassification extracts the first brace-delimited JSON object from the
// model's free-text output and parses it into a Classification. Scalar
// extracted values are coerced to strings; anything else is dropped.
func ParseClassification(content string) (*models.Classification, error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	c := &models.Classification{
		Intent:          raw.Intent,
		Period:          raw.Period,
		TranslatedQuery: raw.TranslatedQuery,
	}
	if c.Intent == "" {
		c.Intent = models.IntentUnknown
	}

	if len(raw.ExtractedData) > 0 {
		c.ExtractedData = make(map[string]string, len(raw.ExtractedData))
		for k, v := range raw.ExtractedData {
			switch t := v.(type) {
			case string:
				if t != "" {
					c.ExtractedData[k] = t
				}
			case float64:
				c.ExtractedData[k] = strconv.FormatFloat(t, 'f', -1, 64)
			case bool:
				c.ExtractedData[k] = strconv.FormatBool(t)
			}
		}
	}

	return c, nil
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
